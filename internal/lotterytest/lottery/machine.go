// Package lottery is an in-process lottery scheduler. Each quantum, one runnable process is
// chosen by drawing a ticket uniformly from all runnable processes' tickets, so that over time
// each process receives CPU in proportion to its ticket count.
package lottery

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/armadaproject/lotterytest/internal/common/harnesserrors"
	"github.com/armadaproject/lotterytest/internal/lotterytest/scheduler"
)

const (
	// DefaultTickets is the weight of a newly created process.
	DefaultTickets = 1
	// DefaultProcessLimit is the default size of the process table.
	DefaultProcessLimit = 64
	// Pid of the process that owns the machine. It exists from the start and never becomes runnable.
	selfPid = 1
)

type state int

const (
	embryo state = iota
	runnable
	zombie
)

type process struct {
	pid     int
	tickets int
	ticks   int
	state   state
}

// Machine is a single simulated CPU running a lottery scheduler. It is threadsafe.
type Machine struct {
	mu      sync.Mutex
	rand    *rand.Rand
	quantum time.Duration
	limit   int
	procs   []*process
	nextPid int
	elapsed int
	idle    int
}

// NewMachine returns a machine whose draws are determined entirely by seed.
func NewMachine(seed int64, quantum time.Duration) *Machine {
	return &Machine{
		rand:    rand.New(rand.NewSource(seed)),
		quantum: quantum,
		limit:   DefaultProcessLimit,
		procs:   []*process{{pid: selfPid, tickets: DefaultTickets}},
		nextPid: selfPid + 1,
	}
}

// WithProcessLimit sets the size of the process table. Spawning beyond it fails.
func (m *Machine) WithProcessLimit(limit int) *Machine {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.limit = limit
	return m
}

func (m *Machine) Quantum() time.Duration {
	return m.quantum
}

// SelfPid is the pid of the machine's owner.
func (m *Machine) SelfPid() int {
	return selfPid
}

// Spawn creates a process that does not run until released.
func (m *Machine) Spawn() (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.procs) >= m.limit {
		return 0, errors.Errorf("process table full (%d entries)", m.limit)
	}
	p := &process{pid: m.nextPid, tickets: DefaultTickets, state: embryo}
	m.nextPid++
	m.procs = append(m.procs, p)
	return p.pid, nil
}

// Release makes an embryo process runnable.
func (m *Machine) Release(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.lookup(pid)
	if err != nil {
		return err
	}
	if p.state != embryo {
		return errors.Errorf("process %d has already been released", pid)
	}
	p.state = runnable
	return nil
}

// Kill stops pid. The process keeps its slot, and its ticks, until reaped.
func (m *Machine) Kill(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.lookup(pid)
	if err != nil {
		return err
	}
	p.state = zombie
	return nil
}

// Reap frees the slot of a killed process.
func (m *Machine) Reap(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.procs {
		if p.pid != pid {
			continue
		}
		if p.state != zombie {
			return errors.Errorf("process %d is still running", pid)
		}
		m.procs = append(m.procs[:i], m.procs[i+1:]...)
		return nil
	}
	return errors.Errorf("no such process %d", pid)
}

func (m *Machine) AssignWeight(pid int, weight int) error {
	if weight <= 0 {
		return errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "weight",
			Value:   weight,
			Message: "must be positive",
		})
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p, err := m.lookup(pid)
	if err != nil {
		return err
	}
	p.tickets = weight
	return nil
}

func (m *Machine) QueryStatistics() (scheduler.Statistics, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rv := make(scheduler.Statistics, len(m.procs))
	for _, p := range m.procs {
		rv[p.pid] = scheduler.ProcessStatistics{Pid: p.pid, Active: true, Ticks: p.ticks}
	}
	return rv, nil
}

// Run holds quanta lotteries. Quanta with no runnable process are counted as idle.
func (m *Machine) Run(quanta int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := 0; i < quanta; i++ {
		m.elapsed++
		if winner := m.draw(); winner != nil {
			winner.ticks++
		} else {
			m.idle++
		}
	}
}

// Elapsed returns the number of quanta run so far and how many of them were idle.
func (m *Machine) Elapsed() (total int, idle int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.elapsed, m.idle
}

func (m *Machine) draw() *process {
	total := 0
	for _, p := range m.procs {
		if p.state == runnable {
			total += p.tickets
		}
	}
	if total == 0 {
		return nil
	}
	winner := m.rand.Intn(total)
	counter := 0
	for _, p := range m.procs {
		if p.state != runnable {
			continue
		}
		counter += p.tickets
		if counter > winner {
			return p
		}
	}
	return nil
}

func (m *Machine) lookup(pid int) (*process, error) {
	for _, p := range m.procs {
		if p.pid == pid {
			return p, nil
		}
	}
	return nil, errors.Errorf("no such process %d", pid)
}
