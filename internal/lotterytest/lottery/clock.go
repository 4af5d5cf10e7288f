package lottery

import (
	"sync"
	"time"

	clock "k8s.io/utils/clock/testing"
)

// VirtualClock is a clock whose passage of time drives a Machine. Sleeping runs one lottery per
// quantum slept and then advances the clock, so a run that would take seconds on a real scheduler
// completes immediately and deterministically.
type VirtualClock struct {
	*clock.FakeClock
	machine *Machine
	mu      sync.Mutex
	pending time.Duration
}

func NewVirtualClock(machine *Machine, start time.Time) *VirtualClock {
	return &VirtualClock{
		FakeClock: clock.NewFakeClock(start),
		machine:   machine,
	}
}

func (c *VirtualClock) Sleep(d time.Duration) {
	c.mu.Lock()
	c.pending += d
	quanta := int(c.pending / c.machine.Quantum())
	c.pending -= time.Duration(quanta) * c.machine.Quantum()
	c.mu.Unlock()

	c.machine.Run(quanta)
	c.FakeClock.Step(d)
}

// After sleeps for d and returns a channel that has already fired.
func (c *VirtualClock) After(d time.Duration) <-chan time.Time {
	c.Sleep(d)
	ch := make(chan time.Time, 1)
	ch <- c.Now()
	return ch
}
