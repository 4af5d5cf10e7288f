package configuration

import (
	"math"
	"strconv"
	"strings"
)

const (
	// MaxWorkers is the largest number of workers a single run can track.
	MaxWorkers = 32
	// MaxTicketCount is the largest weight of a single worker. Totals and percentage products of
	// MaxWorkers such weights stay within int.
	MaxTicketCount = math.MaxInt32
	// NumSamples is the default number of live samples taken during a run.
	NumSamples = 10
)

// DefaultTickets are used when no ticket weights are provided.
var DefaultTickets = []int{30, 20, 10}

// WorkerSlot is one configured test subject.
type WorkerSlot struct {
	// Position in the configuration. Stable for the lifetime of the run.
	Index int
	// Ticket weight. Always positive.
	Tickets int
	// Process id, assigned at spawn time. Used to find the worker in scheduler statistics.
	WorkerId int
	// Cumulative ticks the worker has received, as of the most recent sample.
	ObservedTicks int
}

// Name is the display name of the slot, e.g. "P1" for the first slot.
func (s *WorkerSlot) Name() string {
	return "P" + strconv.Itoa(s.Index+1)
}

// TestConfiguration is the ordered set of workers making up one run.
type TestConfiguration struct {
	Slots []*WorkerSlot
	// Literal arguments the configuration was resolved from. Empty if the defaults were used.
	Args []string
}

func newTestConfiguration(tickets []int, args []string) *TestConfiguration {
	slots := make([]*WorkerSlot, len(tickets))
	for i, t := range tickets {
		slots[i] = &WorkerSlot{Index: i, Tickets: t}
	}
	return &TestConfiguration{Slots: slots, Args: args}
}

// TotalTickets is the size of the ticket pool shared by all workers.
func (c *TestConfiguration) TotalTickets() int {
	total := 0
	for _, s := range c.Slots {
		total += s.Tickets
	}
	return total
}

// MaxTickets is the largest ticket weight of any worker.
func (c *TestConfiguration) MaxTickets() int {
	rv := 0
	for _, s := range c.Slots {
		if s.Tickets > rv {
			rv = s.Tickets
		}
	}
	return rv
}

// Tickets returns the ticket weight of each slot, in slot order.
func (c *TestConfiguration) Tickets() []int {
	rv := make([]int, len(c.Slots))
	for i, s := range c.Slots {
		rv[i] = s.Tickets
	}
	return rv
}

// ObservedTicks returns the most recently observed tick count of each slot, in slot order.
func (c *TestConfiguration) ObservedTicks() []int {
	rv := make([]int, len(c.Slots))
	for i, s := range c.Slots {
		rv[i] = s.ObservedTicks
	}
	return rv
}

// WorkerIds returns the process id of each slot, in slot order.
func (c *TestConfiguration) WorkerIds() []int {
	rv := make([]int, len(c.Slots))
	for i, s := range c.Slots {
		rv[i] = s.WorkerId
	}
	return rv
}

// Ratio formats the ticket weights as e.g. "30:20:10".
func (c *TestConfiguration) Ratio() string {
	parts := make([]string, len(c.Slots))
	for i, s := range c.Slots {
		parts[i] = strconv.Itoa(s.Tickets)
	}
	return strings.Join(parts, ":")
}
