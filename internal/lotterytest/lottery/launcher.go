package lottery

import (
	"github.com/pkg/errors"

	"github.com/armadaproject/lotterytest/internal/common/runcontext"
	"github.com/armadaproject/lotterytest/internal/lotterytest/configuration"
	"github.com/armadaproject/lotterytest/internal/lotterytest/workerpool"
)

// Launcher spawns workers as processes on a Machine.
type Launcher struct {
	machine *Machine
}

func NewLauncher(machine *Machine) *Launcher {
	return &Launcher{machine: machine}
}

func (l *Launcher) Launch(ctx *runcontext.Context, slot *configuration.WorkerSlot) (workerpool.Worker, error) {
	pid, err := l.machine.Spawn()
	if err != nil {
		return nil, err
	}
	ctx.Debugf("spawned simulated %s as pid %d", slot.Name(), pid)
	return &worker{machine: l.machine, pid: pid}, nil
}

type worker struct {
	machine *Machine
	pid     int
}

func (w *worker) Pid() int {
	return w.pid
}

func (w *worker) Release() error {
	return w.machine.Release(w.pid)
}

func (w *worker) Terminate() error {
	return w.machine.Kill(w.pid)
}

func (w *worker) Wait() error {
	return errors.WithMessagef(w.machine.Reap(w.pid), "reaping %d", w.pid)
}
