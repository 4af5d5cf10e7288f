package app

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/armadaproject/lotterytest/internal/common/runcontext"
)

// CreateContextWithShutdown returns a context that will report done when SIGINT or SIGTERM is received.
// The returned stop function releases the signal handler.
func CreateContextWithShutdown(parent *runcontext.Context) (ctx *runcontext.Context, stop func()) {
	ctx, cancel := runcontext.WithCancel(parent)
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-c:
			ctx.Warnf("received %s, stopping", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(c)
		cancel()
	}
}
