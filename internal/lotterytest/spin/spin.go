// Package spin is the body of a worker process: a gate followed by a CPU-bound loop that never
// voluntarily yields.
package spin

import (
	"context"
	"io"
	"runtime"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// checkInterval is how many iterations run between checks for cancellation.
const checkInterval = 1 << 20

// sink keeps the loop's result live.
var sink uint64

// Loop burns CPU until ctx is cancelled and returns the number of iterations completed.
func Loop(ctx context.Context) uint64 {
	done := ctx.Done()
	var sum uint64
	for i := uint64(1); ; i++ {
		sum += (i * i) % 997
		if i%checkInterval == 0 {
			select {
			case <-done:
				sink = sum
				return i
			default:
			}
		}
	}
}

// Run blocks until one byte can be read from gate, then loops until gate is closed or fails.
// If cpu is not negative the looping thread is pinned to it first.
func Run(gate io.Reader, cpu int) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	if cpu >= 0 {
		if err := PinCurrentThread(cpu); err != nil {
			return err
		}
	}

	buf := make([]byte, 1)
	if _, err := io.ReadFull(gate, buf); err != nil {
		// The harness went away before releasing us.
		if errors.Is(err, io.EOF) {
			return nil
		}
		return errors.WithStack(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		_, _ = io.Copy(io.Discard, gate)
		cancel()
	}()
	iterations := Loop(ctx)
	log.Debugf("worker stopped after %d iterations", iterations)
	return nil
}
