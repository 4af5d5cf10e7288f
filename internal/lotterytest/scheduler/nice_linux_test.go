package scheduler

import (
	"os/exec"
	"testing"

	"github.com/prometheus/procfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/lotterytest/internal/common/harnesserrors"
)

func TestNiceScheduler_InvalidArguments(t *testing.T) {
	stats, err := NewProcfsStatistics(writeProcFixture(t, 0))
	require.NoError(t, err)

	_, err = NewNiceScheduler(stats, 0)
	var e *harnesserrors.ErrInvalidArgument
	assert.ErrorAs(t, err, &e)

	s, err := NewNiceScheduler(stats, 30)
	require.NoError(t, err)
	err = s.AssignWeight(1, 0)
	assert.ErrorAs(t, err, &e)
}

func TestNiceScheduler_UnknownProcess(t *testing.T) {
	stats, err := NewProcfsStatistics(writeProcFixture(t, 0))
	require.NoError(t, err)
	s, err := NewNiceScheduler(stats, 30)
	require.NoError(t, err)

	assert.Error(t, s.AssignWeight(4242, 10))
}

func TestNiceScheduler_RenicesChild(t *testing.T) {
	cmd := exec.Command("sleep", "30")
	if err := cmd.Start(); err != nil {
		t.Skipf("cannot start child process: %s", err)
	}
	defer func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
	}()

	stats, err := NewProcfsStatistics(procfs.DefaultMountPoint)
	require.NoError(t, err)
	s, err := NewNiceScheduler(stats, 30)
	require.NoError(t, err)

	require.NoError(t, s.AssignWeight(cmd.Process.Pid, 10))

	fs, err := procfs.NewDefaultFS()
	require.NoError(t, err)
	p, err := fs.Proc(cmd.Process.Pid)
	require.NoError(t, err)
	stat, err := p.Stat()
	require.NoError(t, err)
	assert.Equal(t, 5, stat.Nice)

	table, err := s.QueryStatistics()
	require.NoError(t, err)
	_, found := table.Lookup(cmd.Process.Pid)
	assert.True(t, found)
}
