package scheduler

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	"github.com/armadaproject/lotterytest/internal/common/harnesserrors"
)

const (
	minCpuWeight = 1
	maxCpuWeight = 10000
)

// CgroupScheduler weights processes by placing each in its own cgroup v2 leaf under a common
// parent and setting cpu.weight on the leaf.
type CgroupScheduler struct {
	*ProcfsStatistics
	mount     string
	root      string
	origin    string
	selfPid   int
	movedSelf bool
	leaves    []string
	remove    func(string) error
}

var _ Closer = (*CgroupScheduler)(nil)

// NewCgroupScheduler creates the cgroup name under mount with the cpu controller enabled for its children.
func NewCgroupScheduler(stats *ProcfsStatistics, mount string, name string) (*CgroupScheduler, error) {
	origin, err := stats.SelfCgroup()
	if err != nil {
		return nil, err
	}
	selfPid, err := stats.SelfPid()
	if err != nil {
		return nil, err
	}
	root := filepath.Join(mount, name)
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.WithStack(err)
	}
	// The mount root may already delegate cpu, or may refuse the write; the write below on our
	// own cgroup is the one that has to succeed.
	_ = writeControlFile(mount, "cgroup.subtree_control", "+cpu")
	if err := writeControlFile(root, "cgroup.subtree_control", "+cpu"); err != nil {
		return nil, err
	}
	return &CgroupScheduler{
		ProcfsStatistics: stats,
		mount:            mount,
		root:             root,
		origin:           origin,
		selfPid:          selfPid,
		remove:           os.Remove,
	}, nil
}

// Root is the absolute path of the cgroup holding the leaves.
func (s *CgroupScheduler) Root() string {
	return s.root
}

// AssignWeight moves pid into its own leaf cgroup, creating it if needed, with cpu.weight set to weight.
// Weights outside the range accepted by the kernel are clamped.
func (s *CgroupScheduler) AssignWeight(pid int, weight int) error {
	if weight <= 0 {
		return errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "weight",
			Value:   weight,
			Message: "must be positive",
		})
	}
	leaf := filepath.Join(s.root, fmt.Sprintf("pid-%d", pid))
	if _, err := os.Stat(leaf); os.IsNotExist(err) {
		if err := os.Mkdir(leaf, 0o755); err != nil {
			return errors.WithStack(err)
		}
		s.leaves = append(s.leaves, leaf)
	}
	if err := writeControlFile(leaf, "cpu.weight", strconv.Itoa(CpuWeight(weight))); err != nil {
		return err
	}
	if err := writeControlFile(leaf, "cgroup.procs", strconv.Itoa(pid)); err != nil {
		return err
	}
	if pid == s.selfPid {
		s.movedSelf = true
	}
	return nil
}

// Close moves the harness back, if it was moved, to the cgroup it started in and removes every cgroup created.
// Leaves still holding processes cannot be removed, so workers must have been reaped first.
func (s *CgroupScheduler) Close() error {
	var result *multierror.Error
	if s.movedSelf {
		if err := writeControlFile(filepath.Join(s.mount, s.origin), "cgroup.procs", strconv.Itoa(s.selfPid)); err != nil {
			result = multierror.Append(result, err)
		}
	}
	for i := len(s.leaves) - 1; i >= 0; i-- {
		if err := s.remove(s.leaves[i]); err != nil {
			result = multierror.Append(result, errors.WithStack(err))
		}
	}
	s.leaves = nil
	if err := s.remove(s.root); err != nil && !os.IsNotExist(err) {
		result = multierror.Append(result, errors.WithStack(err))
	}
	return result.ErrorOrNil()
}

// CpuWeight clamps a ticket weight into the range of cpu.weight.
func CpuWeight(weight int) int {
	if weight < minCpuWeight {
		return minCpuWeight
	}
	if weight > maxCpuWeight {
		return maxCpuWeight
	}
	return weight
}

func writeControlFile(dir, name, value string) error {
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(value), 0o644); err != nil {
		return errors.Wrapf(err, "writing %q to %s", value, path)
	}
	return nil
}
