package workerpool

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/lotterytest/internal/common/harnesserrors"
	"github.com/armadaproject/lotterytest/internal/common/runcontext"
	"github.com/armadaproject/lotterytest/internal/lotterytest/configuration"
	"github.com/armadaproject/lotterytest/internal/lotterytest/scheduler"
)

type recorder struct {
	events []string
}

func (r *recorder) record(format string, args ...any) {
	r.events = append(r.events, fmt.Sprintf(format, args...))
}

type fakeWorker struct {
	pid          int
	rec          *recorder
	releaseErr   error
	terminateErr error
	waitErr      error
	waits        int
}

func (w *fakeWorker) Pid() int { return w.pid }

func (w *fakeWorker) Release() error {
	w.rec.record("release %d", w.pid)
	return w.releaseErr
}

func (w *fakeWorker) Terminate() error {
	w.rec.record("terminate %d", w.pid)
	return w.terminateErr
}

func (w *fakeWorker) Wait() error {
	w.waits++
	w.rec.record("wait %d", w.pid)
	return w.waitErr
}

type fakeLauncher struct {
	rec     *recorder
	nextPid int
	failAt  int
	workers []*fakeWorker
}

func (l *fakeLauncher) Launch(_ *runcontext.Context, slot *configuration.WorkerSlot) (Worker, error) {
	if slot.Index == l.failAt {
		return nil, errors.New("fork failed")
	}
	l.nextPid++
	w := &fakeWorker{pid: l.nextPid, rec: l.rec}
	l.workers = append(l.workers, w)
	l.rec.record("launch %d", w.pid)
	return w, nil
}

type fakeScheduler struct {
	rec     *recorder
	weights map[int]int
	failPid int
}

func (s *fakeScheduler) AssignWeight(pid int, weight int) error {
	if pid == s.failPid {
		return errors.New("no such process")
	}
	s.weights[pid] = weight
	s.rec.record("weight %d=%d", pid, weight)
	return nil
}

func (s *fakeScheduler) QueryStatistics() (scheduler.Statistics, error) {
	return nil, nil
}

func newTestPool(failLaunchAt int, failWeightPid int) (*WorkerPool, *fakeLauncher, *fakeScheduler, *recorder) {
	rec := &recorder{}
	launcher := &fakeLauncher{rec: rec, nextPid: 100, failAt: failLaunchAt}
	sched := &fakeScheduler{rec: rec, weights: map[int]int{}, failPid: failWeightPid}
	return New(launcher, sched), launcher, sched, rec
}

func testConfiguration(t *testing.T, args ...string) *configuration.TestConfiguration {
	t.Helper()
	cfg, err := configuration.Resolve(args)
	require.NoError(t, err)
	return cfg
}

func TestSpawnAll(t *testing.T) {
	pool, _, sched, rec := newTestPool(-1, 0)
	cfg := testConfiguration(t, "30", "20", "10")

	require.NoError(t, pool.SpawnAll(runcontext.Background(), cfg))

	assert.Equal(t, 3, pool.Size())
	assert.Equal(t, []int{101, 102, 103}, cfg.WorkerIds())
	assert.Equal(t, map[int]int{101: 30, 102: 20, 103: 10}, sched.weights)
	assert.Equal(t, []string{
		"launch 101", "weight 101=30", "release 101",
		"launch 102", "weight 102=20", "release 102",
		"launch 103", "weight 103=10", "release 103",
	}, rec.events)
}

func TestSpawnAll_LaunchFailureUnwinds(t *testing.T) {
	pool, _, _, rec := newTestPool(2, 0)
	cfg := testConfiguration(t, "30", "20", "10")

	err := pool.SpawnAll(runcontext.Background(), cfg)

	var e *harnesserrors.ErrSpawn
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 2, e.Index)
	assert.Equal(t, 10, e.Tickets)
	assert.Equal(t, harnesserrors.ExitSpawn, harnesserrors.ExitCodeFromError(err))
	assert.Equal(t, []string{
		"launch 101", "weight 101=30", "release 101",
		"launch 102", "weight 102=20", "release 102",
		"terminate 101", "terminate 102",
		"wait 101", "wait 102",
	}, rec.events)
}

func TestSpawnAll_WeightFailureUnwindsUnreleasedWorker(t *testing.T) {
	pool, launcher, _, rec := newTestPool(-1, 102)
	cfg := testConfiguration(t, "30", "20", "10")

	err := pool.SpawnAll(runcontext.Background(), cfg)

	var e *harnesserrors.ErrSpawn
	require.ErrorAs(t, err, &e)
	assert.Equal(t, 1, e.Index)
	assert.Len(t, launcher.workers, 2)
	assert.NotContains(t, rec.events, "release 102")
	assert.Contains(t, rec.events, "terminate 102")
	assert.Contains(t, rec.events, "wait 102")
	assert.Equal(t, 0, cfg.Slots[1].WorkerId)
}

func TestSpawnAll_CancelledContext(t *testing.T) {
	pool, _, _, rec := newTestPool(-1, 0)
	ctx, cancel := runcontext.WithCancel(runcontext.Background())
	cancel()

	err := pool.SpawnAll(ctx, testConfiguration(t))

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, harnesserrors.ExitInterrupted, harnesserrors.ExitCodeFromError(err))
	assert.Empty(t, rec.events)
}

func TestTerminateAll_AttemptsEveryWorker(t *testing.T) {
	pool, launcher, _, rec := newTestPool(-1, 0)
	require.NoError(t, pool.SpawnAll(runcontext.Background(), testConfiguration(t)))
	launcher.workers[0].terminateErr = errors.New("permission denied")
	rec.events = nil

	err := pool.TerminateAll(runcontext.Background())

	assert.Error(t, err)
	assert.Equal(t, []string{"terminate 101", "terminate 102", "terminate 103"}, rec.events)
}

func TestAwaitAll_ReapsOnce(t *testing.T) {
	pool, launcher, _, _ := newTestPool(-1, 0)
	require.NoError(t, pool.SpawnAll(runcontext.Background(), testConfiguration(t)))
	launcher.workers[1].waitErr = errors.New("interrupted")

	require.NoError(t, pool.TerminateAll(runcontext.Background()))
	assert.Error(t, pool.AwaitAll(runcontext.Background()))

	launcher.workers[1].waitErr = nil
	require.NoError(t, pool.AwaitAll(runcontext.Background()))

	assert.Equal(t, 1, launcher.workers[0].waits)
	assert.Equal(t, 2, launcher.workers[1].waits)
	assert.Equal(t, 1, launcher.workers[2].waits)
}
