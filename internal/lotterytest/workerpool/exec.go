package workerpool

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"github.com/pkg/errors"

	"github.com/armadaproject/lotterytest/internal/common/runcontext"
	"github.com/armadaproject/lotterytest/internal/lotterytest/configuration"
)

// WorkerCommand is the subcommand of the harness binary that runs a worker.
const WorkerCommand = "worker"

// ExecLauncher starts each worker as a separate OS process running the harness binary's worker
// subcommand. Workers block reading stdin until released, and exit once stdin is closed.
type ExecLauncher struct {
	// Binary to run. Defaults to the running executable.
	Path string
	// Arguments passed to the binary.
	Args []string
	// Destination of worker stderr.
	Stderr io.Writer
}

// NewExecLauncher returns a launcher re-running the current executable as a worker pinned to cpu,
// or unpinned if cpu is negative.
func NewExecLauncher(cpu int) (*ExecLauncher, error) {
	path, err := os.Executable()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &ExecLauncher{
		Path:   path,
		Args:   []string{WorkerCommand, "--cpu", fmt.Sprintf("%d", cpu)},
		Stderr: os.Stderr,
	}, nil
}

func (l *ExecLauncher) Launch(ctx *runcontext.Context, slot *configuration.WorkerSlot) (Worker, error) {
	cmd := exec.Command(l.Path, l.Args...)
	// A single P keeps the worker to one runnable thread.
	cmd.Env = append(os.Environ(), "GOMAXPROCS=1")
	cmd.Stderr = l.Stderr
	cmd.SysProcAttr = workerSysProcAttr()
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if err := cmd.Start(); err != nil {
		return nil, errors.WithStack(err)
	}
	ctx.Debugf("launched %s as pid %d", slot.Name(), cmd.Process.Pid)
	return &execWorker{cmd: cmd, stdin: stdin}, nil
}

type execWorker struct {
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	mu         sync.Mutex
	terminated bool
}

func (w *execWorker) Pid() int {
	return w.cmd.Process.Pid
}

func (w *execWorker) Release() error {
	// stdin stays open; the worker treats it closing as a signal to stop.
	if _, err := w.stdin.Write([]byte{1}); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

func (w *execWorker) Terminate() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.terminated = true
	if err := w.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		return errors.WithStack(err)
	}
	return nil
}

func (w *execWorker) Wait() error {
	_ = w.stdin.Close()
	err := w.cmd.Wait()
	w.mu.Lock()
	defer w.mu.Unlock()
	var exitErr *exec.ExitError
	if w.terminated && errors.As(err, &exitErr) {
		// Killed by Terminate.
		return nil
	}
	return errors.WithStack(err)
}
