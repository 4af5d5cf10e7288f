package workerpool

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/lotterytest/internal/common/runcontext"
	"github.com/armadaproject/lotterytest/internal/lotterytest/configuration"
)

func lookPath(t *testing.T, name string) string {
	t.Helper()
	path, err := exec.LookPath(name)
	if err != nil {
		t.Skipf("%s not available: %s", name, err)
	}
	return path
}

func TestExecLauncher_TerminatedWorkerWaitsCleanly(t *testing.T) {
	launcher := &ExecLauncher{Path: lookPath(t, "sleep"), Args: []string{"30"}}

	w, err := launcher.Launch(runcontext.Background(), &configuration.WorkerSlot{Index: 0, Tickets: 10})
	require.NoError(t, err)
	assert.Greater(t, w.Pid(), 0)

	require.NoError(t, w.Release())
	require.NoError(t, w.Terminate())
	require.NoError(t, w.Terminate())
	assert.NoError(t, w.Wait())
}

func TestExecLauncher_WorkerStopsWhenStdinCloses(t *testing.T) {
	launcher := &ExecLauncher{Path: lookPath(t, "cat")}

	w, err := launcher.Launch(runcontext.Background(), &configuration.WorkerSlot{Index: 0, Tickets: 10})
	require.NoError(t, err)
	require.NoError(t, w.Release())

	assert.NoError(t, w.Wait())
	// Already exited.
	assert.NoError(t, w.Terminate())
}

func TestExecLauncher_UnexpectedExitIsReported(t *testing.T) {
	launcher := &ExecLauncher{Path: lookPath(t, "false")}

	w, err := launcher.Launch(runcontext.Background(), &configuration.WorkerSlot{Index: 0, Tickets: 10})
	require.NoError(t, err)

	assert.Error(t, w.Wait())
}

func TestExecLauncher_MissingBinary(t *testing.T) {
	launcher := &ExecLauncher{Path: "/nonexistent/lotterytest"}

	_, err := launcher.Launch(runcontext.Background(), &configuration.WorkerSlot{Index: 0, Tickets: 10})

	assert.Error(t, err)
}

func TestNewExecLauncher(t *testing.T) {
	launcher, err := NewExecLauncher(3)
	require.NoError(t, err)
	assert.NotEmpty(t, launcher.Path)
	assert.Equal(t, []string{WorkerCommand, "--cpu", "3"}, launcher.Args)
}
