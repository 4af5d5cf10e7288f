// Package lotterytest runs a proportional-share scheduler validation: it spawns CPU-bound workers
// with different ticket weights, samples how much CPU each receives and scores how closely the
// observed shares match the weights.
package lotterytest

import (
	"fmt"
	"io"
	"os"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/renstrom/shortuuid"
	log "github.com/sirupsen/logrus"
	"k8s.io/utils/clock"

	"github.com/armadaproject/lotterytest/internal/common/harnesserrors"
	"github.com/armadaproject/lotterytest/internal/common/runcontext"
	"github.com/armadaproject/lotterytest/internal/lotterytest/analysis"
	"github.com/armadaproject/lotterytest/internal/lotterytest/build"
	"github.com/armadaproject/lotterytest/internal/lotterytest/configuration"
	"github.com/armadaproject/lotterytest/internal/lotterytest/lottery"
	"github.com/armadaproject/lotterytest/internal/lotterytest/metrics"
	"github.com/armadaproject/lotterytest/internal/lotterytest/report"
	"github.com/armadaproject/lotterytest/internal/lotterytest/sampler"
	"github.com/armadaproject/lotterytest/internal/lotterytest/scheduler"
	"github.com/armadaproject/lotterytest/internal/lotterytest/spin"
	"github.com/armadaproject/lotterytest/internal/lotterytest/workerpool"
)

// HarnessTickets is the weight the harness gives itself once all workers are running.
const HarnessTickets = 1

// Backend is a scheduler together with the means to run workers on it and to wait for it.
// SelfPid is the id under which the scheduler knows the harness. Close releases anything the
// backend created and is called once the run is over.
type Backend struct {
	Scheduler scheduler.Scheduler
	Launcher  workerpool.Launcher
	Clock     clock.Clock
	SelfPid   int
	Close     func() error
}

// BackendFactory creates the backend for a run of cfg.
type BackendFactory func(config configuration.Configuration, cfg *configuration.TestConfiguration) (*Backend, error)

type App struct {
	// Harness settings, normally loaded by viper from config files, environment and flags.
	Config configuration.Configuration
	// Out is used to write the output. Defaults to standard out,
	// but can be overridden in tests to make assertions on the application's output.
	Out io.Writer
	// Metrics updated during the run. Served or pushed by the caller.
	Metrics *metrics.Metrics
	// Creates the scheduler backend. Tests can replace it to inject failures.
	NewBackend BackendFactory
}

// New instantiates an App writing to standard output.
func New(config configuration.Configuration) *App {
	return &App{
		Config:     config,
		Out:        os.Stdout,
		Metrics:    metrics.New(),
		NewBackend: NewBackend,
	}
}

// Version prints build information (e.g., current git commit) to the app output.
func (a *App) Version() error {
	w := tabwriter.NewWriter(a.Out, 1, 1, 1, ' ', 0)
	defer w.Flush()
	fmt.Fprintf(w, "Version:\t%s\n", build.ReleaseVersion)
	fmt.Fprintf(w, "Commit:\t%s\n", build.GitCommit)
	fmt.Fprintf(w, "Go version:\t%s\n", build.GoVersion)
	fmt.Fprintf(w, "Built:\t%s\n", build.BuildTime)
	return nil
}

// NewBackend returns the backend named by config.Backend.
func NewBackend(config configuration.Configuration, cfg *configuration.TestConfiguration) (*Backend, error) {
	switch config.Backend {
	case configuration.SimulatedBackend:
		machine := lottery.NewMachine(config.Seed, config.Quantum)
		return &Backend{
			Scheduler: machine,
			Launcher:  lottery.NewLauncher(machine),
			Clock:     lottery.NewVirtualClock(machine, time.Now()),
			SelfPid:   machine.SelfPid(),
			Close: func() error {
				total, idle := machine.Elapsed()
				log.Debugf("simulated %d quanta, %d of them idle", total, idle)
				return nil
			},
		}, nil
	case configuration.NiceBackend, configuration.CgroupBackend:
		return newProcessBackend(config, cfg)
	}
	return nil, errors.WithStack(&harnesserrors.ErrInvalidArgument{
		Name:    "backend",
		Value:   config.Backend,
		Message: "must be one of nice, cgroup or simulated",
	})
}

// newProcessBackend runs workers as OS processes weighted by the host kernel.
func newProcessBackend(config configuration.Configuration, cfg *configuration.TestConfiguration) (*Backend, error) {
	stats, err := scheduler.NewProcfsStatistics(config.ProcMount)
	if err != nil {
		return nil, err
	}
	selfPid, err := stats.SelfPid()
	if err != nil {
		return nil, err
	}
	launcher, err := workerpool.NewExecLauncher(config.Cpu)
	if err != nil {
		return nil, err
	}
	backend := &Backend{
		Launcher: launcher,
		Clock:    clock.RealClock{},
		SelfPid:  selfPid,
	}
	if config.Backend == configuration.CgroupBackend {
		s, err := scheduler.NewCgroupScheduler(stats, config.CgroupMount, config.CgroupRoot)
		if err != nil {
			return nil, err
		}
		log.Debugf("weighting workers with cgroups under %s", s.Root())
		backend.Scheduler = s
	} else {
		s, err := scheduler.NewNiceScheduler(stats, cfg.MaxTickets())
		if err != nil {
			return nil, err
		}
		backend.Scheduler = s
	}
	backend.Close = closerOf(backend.Scheduler)
	return backend, nil
}

// closerOf returns the Close method of s, or a no-op if s holds nothing to release.
func closerOf(s scheduler.Scheduler) func() error {
	if c, ok := s.(scheduler.Closer); ok {
		return c.Close
	}
	return func() error { return nil }
}

// pinHarness keeps the calling goroutine on one OS thread bound to cpu, so that the harness
// competes for the same core as its workers. Only that thread is pinned; other runtime threads,
// the signal handler and the metrics server may run on any CPU. The returned function undoes
// the thread lock.
func pinHarness(cpu int) (func(), error) {
	runtime.LockOSThread()
	if err := spin.PinCurrentThread(cpu); err != nil {
		runtime.UnlockOSThread()
		return nil, errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "cpu",
			Value:   cpu,
			Message: err.Error(),
		})
	}
	return runtime.UnlockOSThread, nil
}

func sleep(ctx *runcontext.Context, c clock.Clock, d time.Duration) error {
	select {
	case <-ctx.Done():
		return errors.WithStack(ctx.Err())
	case <-c.After(d):
		return nil
	}
}

// Run carries out one validation run with the ticket weights in args, or those configured if args
// is empty, and returns its report.
//
// Configuration errors are returned before anything is spawned. Once workers exist, every exit path
// terminates and reaps them. If a.Config.Report.MinAccuracy is set and not reached, the report is
// returned together with an ErrAccuracyBelowThreshold.
func (a *App) Run(ctx *runcontext.Context, args []string) (*report.RunReport, error) {
	if len(args) == 0 {
		args = a.Config.Tickets
	}
	cfg, err := configuration.Resolve(args)
	if err != nil {
		return nil, err
	}

	runId := shortuuid.New()
	ctx = runcontext.WithLogFields(ctx, log.Fields{"run": runId, "backend": a.Config.Backend})

	if a.Config.Backend != configuration.SimulatedBackend && a.Config.Cpu >= 0 {
		unpin, err := pinHarness(a.Config.Cpu)
		if err != nil {
			return nil, err
		}
		defer unpin()
	}

	backend, err := a.NewBackend(a.Config, cfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			ctx.Warnf("error releasing the %s backend: %s", a.Config.Backend, err)
		}
	}()

	out := report.NewReporter(a.Out)
	out.Arguments(cfg)
	out.Banner(cfg, a.Config.Backend)
	out.Setup(cfg)
	a.Metrics.ReportConfiguration(cfg)

	out.Starting()
	pool := workerpool.New(backend.Launcher, backend.Scheduler)
	if err := pool.SpawnAll(ctx, cfg); err != nil {
		return nil, err
	}
	defer func() {
		// Nothing to do after a complete run; everything was reaped already.
		if err := pool.Shutdown(ctx); err != nil {
			ctx.Warnf("error cleaning up workers: %s", err)
		}
	}()
	for _, slot := range cfg.Slots {
		out.WorkerStarted(slot)
	}
	ctx.Debugf("spawned %d workers as pids %v with tickets %s", pool.Size(), cfg.WorkerIds(), cfg.Ratio())

	if err := backend.Scheduler.AssignWeight(backend.SelfPid, HarnessTickets); err != nil {
		ctx.Warnf("failed to lower the weight of the harness: %s", err)
	} else {
		out.HarnessWeighted()
	}

	startedAt := backend.Clock.Now()
	if err := sleep(ctx, backend.Clock, a.Config.SettleDelay); err != nil {
		return nil, err
	}

	out.Running(a.Config.Duration)
	collector := sampler.NewCollector(backend.Scheduler)
	failedSamples := 0
	for i := 1; i <= a.Config.Samples; i++ {
		if err := sleep(ctx, backend.Clock, a.Config.SampleInterval()); err != nil {
			return nil, err
		}
		sampledAt := backend.Clock.Now()
		view := collector.Sample(ctx, cfg)
		a.Metrics.ReportSample(cfg, view, backend.Clock.Since(sampledAt))
		if view == nil {
			failedSamples++
		}
		out.Progress(i, a.Config.Samples, view)
	}
	out.Complete()

	// Terminated workers stay in the scheduler's table, with their final counts, until reaped.
	// Errors are logged by the pool; whatever can still be counted is worth counting.
	_ = pool.TerminateAll(ctx)
	if final := collector.Sample(ctx, cfg); final == nil {
		failedSamples++
		ctx.Warnf("final statistics query failed; using the counts from the last successful sample")
	}
	_ = pool.AwaitAll(ctx)

	result, err := analysis.Analyze(cfg, cfg.ObservedTicks())
	if err != nil {
		return nil, err
	}
	out.Results(cfg, result)
	out.Accuracy(cfg, result, a.Config.Duration, a.Config.Samples)
	a.Metrics.ReportResult(cfg, result)

	runReport := report.NewRunReport(report.RunInfo{
		RunId:         runId,
		Backend:       a.Config.Backend,
		StartedAt:     startedAt,
		Duration:      a.Config.Duration,
		Elapsed:       backend.Clock.Since(startedAt),
		Samples:       a.Config.Samples,
		FailedSamples: failedSamples,
	}, cfg, result)

	if url := a.Config.Metrics.PushgatewayUrl; url != "" {
		if err := a.Metrics.Push(url, runId); err != nil {
			ctx.Warnf("%s", err)
		}
	}
	if path := a.Config.Report.Output; path != "" {
		if err := report.WriteFile(path, a.Config.Report.Format, a.Config.Report.Tolerance, runReport); err != nil {
			return runReport, err
		}
		ctx.Infof("wrote %s report to %s", a.Config.Report.Format, path)
	}

	if threshold := a.Config.Report.MinAccuracy; threshold > 0 && result.Accuracy < threshold {
		return runReport, errors.WithStack(&harnesserrors.ErrAccuracyBelowThreshold{
			Accuracy:  result.Accuracy,
			Threshold: threshold,
		})
	}
	return runReport, nil
}
