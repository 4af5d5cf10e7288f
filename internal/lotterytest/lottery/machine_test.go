package lottery

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/lotterytest/internal/common/harnesserrors"
	"github.com/armadaproject/lotterytest/internal/lotterytest/scheduler"
)

func spawnReleased(t *testing.T, m *Machine, tickets ...int) []int {
	t.Helper()
	pids := make([]int, len(tickets))
	for i, n := range tickets {
		pid, err := m.Spawn()
		require.NoError(t, err)
		require.NoError(t, m.AssignWeight(pid, n))
		require.NoError(t, m.Release(pid))
		pids[i] = pid
	}
	return pids
}

func ticksOf(t *testing.T, m *Machine, pids []int) []int {
	t.Helper()
	table, err := m.QueryStatistics()
	require.NoError(t, err)
	rv := make([]int, len(pids))
	for i, pid := range pids {
		row, found := table.Lookup(pid)
		require.True(t, found)
		rv[i] = row.Ticks
	}
	return rv
}

func TestMachine_ProportionalShare(t *testing.T) {
	m := NewMachine(42, 10*time.Millisecond)
	pids := spawnReleased(t, m, 30, 20, 10)

	m.Run(6000)

	ticks := ticksOf(t, m, pids)
	assert.Equal(t, 6000, ticks[0]+ticks[1]+ticks[2])
	assert.InDelta(t, 3000, ticks[0], 300)
	assert.InDelta(t, 2000, ticks[1], 300)
	assert.InDelta(t, 1000, ticks[2], 300)
	total, idle := m.Elapsed()
	assert.Equal(t, 6000, total)
	assert.Equal(t, 0, idle)
}

func TestMachine_Deterministic(t *testing.T) {
	a := NewMachine(7, time.Millisecond)
	b := NewMachine(7, time.Millisecond)
	pidsA := spawnReleased(t, a, 5, 15)
	pidsB := spawnReleased(t, b, 5, 15)

	a.Run(500)
	b.Run(500)

	assert.Equal(t, ticksOf(t, a, pidsA), ticksOf(t, b, pidsB))
}

func TestMachine_OnlyRunnableProcessesWin(t *testing.T) {
	m := NewMachine(1, time.Millisecond)
	embryo, err := m.Spawn()
	require.NoError(t, err)
	require.NoError(t, m.AssignWeight(embryo, 100))
	pids := spawnReleased(t, m, 1, 1)
	require.NoError(t, m.Kill(pids[1]))

	m.Run(100)

	assert.Equal(t, []int{0, 100, 0}, ticksOf(t, m, append([]int{embryo}, pids...)))
	assert.Equal(t, []int{0}, ticksOf(t, m, []int{m.SelfPid()}))
}

func TestMachine_IdleWithoutRunnableProcesses(t *testing.T) {
	m := NewMachine(1, time.Millisecond)
	m.Run(10)
	total, idle := m.Elapsed()
	assert.Equal(t, 10, total)
	assert.Equal(t, 10, idle)
}

func TestMachine_ZombiesKeepTicksUntilReaped(t *testing.T) {
	m := NewMachine(3, time.Millisecond)
	pids := spawnReleased(t, m, 1)
	m.Run(25)

	require.NoError(t, m.Kill(pids[0]))
	m.Run(25)
	assert.Equal(t, []int{25}, ticksOf(t, m, pids))

	require.NoError(t, m.Reap(pids[0]))
	table, err := m.QueryStatistics()
	require.NoError(t, err)
	_, found := table.Lookup(pids[0])
	assert.False(t, found)
}

func TestMachine_Errors(t *testing.T) {
	m := NewMachine(1, time.Millisecond)
	pids := spawnReleased(t, m, 1)

	assert.Error(t, m.Release(pids[0]), "double release")
	assert.Error(t, m.Reap(pids[0]), "reaping a running process")
	assert.Error(t, m.Kill(999))
	assert.Error(t, m.Reap(999))
	assert.Error(t, m.AssignWeight(999, 1))

	var e *harnesserrors.ErrInvalidArgument
	assert.ErrorAs(t, m.AssignWeight(pids[0], 0), &e)
}

func TestMachine_ProcessLimit(t *testing.T) {
	m := NewMachine(1, time.Millisecond).WithProcessLimit(3)
	_, err := m.Spawn()
	require.NoError(t, err)
	_, err = m.Spawn()
	require.NoError(t, err)
	_, err = m.Spawn()
	assert.Error(t, err)
}

func TestMachine_SelfIsListed(t *testing.T) {
	m := NewMachine(1, time.Millisecond)
	require.NoError(t, m.AssignWeight(m.SelfPid(), 1))
	table, err := m.QueryStatistics()
	require.NoError(t, err)
	assert.Equal(t, scheduler.Statistics{m.SelfPid(): {Pid: m.SelfPid(), Active: true, Ticks: 0}}, table)
}
