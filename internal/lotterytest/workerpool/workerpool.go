// Package workerpool spawns, weights, terminates and reaps the CPU-bound workers of a run.
package workerpool

import (
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/armadaproject/lotterytest/internal/common/harnesserrors"
	"github.com/armadaproject/lotterytest/internal/common/runcontext"
	"github.com/armadaproject/lotterytest/internal/lotterytest/configuration"
	"github.com/armadaproject/lotterytest/internal/lotterytest/scheduler"
)

// Worker is a single spawned test subject.
// Workers are created blocked and do no work until released.
type Worker interface {
	Pid() int
	// Release lets the worker begin its CPU-bound loop.
	Release() error
	// Terminate forcibly stops the worker. Calling it more than once, or on a worker that has
	// already exited, is not an error.
	Terminate() error
	// Wait blocks until the worker has exited and been reaped.
	Wait() error
}

// Launcher creates blocked workers.
type Launcher interface {
	Launch(ctx *runcontext.Context, slot *configuration.WorkerSlot) (Worker, error)
}

type entry struct {
	slot   *configuration.WorkerSlot
	worker Worker
	reaped bool
}

// WorkerPool tracks the workers of a single run.
// It is not threadsafe and should only be accessed from a single goroutine.
type WorkerPool struct {
	launcher  Launcher
	scheduler scheduler.Scheduler
	workers   []*entry
}

func New(launcher Launcher, scheduler scheduler.Scheduler) *WorkerPool {
	return &WorkerPool{
		launcher:  launcher,
		scheduler: scheduler,
	}
}

// SpawnAll creates one worker per slot, in slot order. Each worker is weighted with the slot's
// tickets before being released, so that it never runs at the default weight. The worker's pid is
// recorded in the slot.
//
// If any worker cannot be started, all workers spawned so far are terminated and reaped, and an
// ErrSpawn identifying the failing slot is returned.
func (p *WorkerPool) SpawnAll(ctx *runcontext.Context, cfg *configuration.TestConfiguration) error {
	for _, slot := range cfg.Slots {
		if err := ctx.Err(); err != nil {
			p.unwind(ctx)
			return errors.WithStack(err)
		}
		if err := p.spawn(runcontext.WithLogField(ctx, "worker", slot.Name()), slot); err != nil {
			p.unwind(ctx)
			return errors.WithStack(&harnesserrors.ErrSpawn{Index: slot.Index, Tickets: slot.Tickets, Cause: err})
		}
	}
	return nil
}

func (p *WorkerPool) unwind(ctx *runcontext.Context) {
	if err := p.Shutdown(ctx); err != nil {
		ctx.Warnf("error cleaning up workers: %s", err)
	}
}

func (p *WorkerPool) spawn(ctx *runcontext.Context, slot *configuration.WorkerSlot) error {
	worker, err := p.launcher.Launch(ctx, slot)
	if err != nil {
		return err
	}
	// Tracked before weighting so that it is cleaned up if anything below fails.
	p.workers = append(p.workers, &entry{slot: slot, worker: worker})
	if err := p.scheduler.AssignWeight(worker.Pid(), slot.Tickets); err != nil {
		return errors.WithMessagef(err, "assigning weight to pid %d", worker.Pid())
	}
	slot.WorkerId = worker.Pid()
	if err := worker.Release(); err != nil {
		return errors.WithMessagef(err, "releasing pid %d", worker.Pid())
	}
	ctx.WithField("pid", worker.Pid()).Debugf("started with %d tickets", slot.Tickets)
	return nil
}

// Size is the number of workers spawned so far.
func (p *WorkerPool) Size() int {
	return len(p.workers)
}

// TerminateAll forcibly stops every worker without reaping it, so that the scheduler still reports
// each worker's final tick count. Every worker is attempted even if some fail.
func (p *WorkerPool) TerminateAll(ctx *runcontext.Context) error {
	var result *multierror.Error
	for _, e := range p.workers {
		if e.reaped {
			continue
		}
		if err := e.worker.Terminate(); err != nil {
			result = multierror.Append(result, errors.WithMessagef(err, "terminating %s", e.slot.Name()))
		}
	}
	if result != nil {
		ctx.Warnf("%d workers could not be terminated", result.Len())
	}
	return result.ErrorOrNil()
}

// AwaitAll reaps every terminated worker. Workers already reaped are skipped, so it is safe to
// call more than once.
func (p *WorkerPool) AwaitAll(ctx *runcontext.Context) error {
	var result *multierror.Error
	for _, e := range p.workers {
		if e.reaped {
			continue
		}
		if err := e.worker.Wait(); err != nil {
			result = multierror.Append(result, errors.WithMessagef(err, "waiting for %s", e.slot.Name()))
			continue
		}
		e.reaped = true
	}
	if result != nil {
		ctx.Warnf("%d workers could not be reaped", result.Len())
	}
	return result.ErrorOrNil()
}

// Shutdown terminates and reaps all workers.
func (p *WorkerPool) Shutdown(ctx *runcontext.Context) error {
	var result *multierror.Error
	if err := p.TerminateAll(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	if err := p.AwaitAll(ctx); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}
