// Package scheduler exposes the proportional-share scheduler under test. A Scheduler accepts a
// ticket weight per process and reports the cumulative CPU ticks each process has received.
package scheduler

// ProcessStatistics is one row of the scheduler's process table.
type ProcessStatistics struct {
	Pid int
	// Whether the row describes a live process. Processes that have exited but have not yet been
	// reaped are still active and keep their tick counts.
	Active bool
	// Cumulative scheduling quanta the process has received since it was created.
	Ticks int
}

// Statistics is a snapshot of the scheduler's process table, keyed by pid.
type Statistics map[int]ProcessStatistics

// Lookup returns the row for pid if the process is active.
func (s Statistics) Lookup(pid int) (ProcessStatistics, bool) {
	row, ok := s[pid]
	if !ok || !row.Active {
		return ProcessStatistics{}, false
	}
	return row, true
}

// StatisticsSource can snapshot the process table.
type StatisticsSource interface {
	QueryStatistics() (Statistics, error)
}

// Scheduler is a proportional-share scheduler that processes can be weighted under.
type Scheduler interface {
	StatisticsSource
	// AssignWeight sets the ticket weight of pid. weight must be positive.
	AssignWeight(pid int, weight int) error
}

// Closer is implemented by schedulers holding resources that must be released after a run.
type Closer interface {
	Close() error
}
