package scheduler

import (
	"github.com/pkg/errors"
	"github.com/prometheus/procfs"
)

// ProcfsStatistics reads per-process CPU time from a procfs mount.
// Ticks are user plus system time, in USER_HZ units.
type ProcfsStatistics struct {
	fs    procfs.FS
	mount string
}

func NewProcfsStatistics(mountPoint string) (*ProcfsStatistics, error) {
	fs, err := procfs.NewFS(mountPoint)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &ProcfsStatistics{fs: fs, mount: mountPoint}, nil
}

func (s *ProcfsStatistics) QueryStatistics() (Statistics, error) {
	procs, err := s.fs.AllProcs()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	rv := make(Statistics, len(procs))
	for _, p := range procs {
		stat, err := p.Stat()
		if err != nil {
			// Exited and reaped between listing and reading.
			continue
		}
		rv[p.PID] = ProcessStatistics{
			Pid:    p.PID,
			Active: stat.State != "X",
			Ticks:  int(stat.UTime + stat.STime),
		}
	}
	return rv, nil
}

// SelfCgroup returns the cgroup v2 path of the calling process, relative to the cgroup mount.
func (s *ProcfsStatistics) SelfCgroup() (string, error) {
	self, err := s.fs.Self()
	if err != nil {
		return "", errors.WithStack(err)
	}
	return unifiedCgroup(self)
}

func unifiedCgroup(p procfs.Proc) (string, error) {
	cgroups, err := p.Cgroups()
	if err != nil {
		return "", errors.WithStack(err)
	}
	for _, cg := range cgroups {
		if cg.HierarchyID == 0 {
			return cg.Path, nil
		}
	}
	return "", errors.Errorf("process %d is not in a cgroup v2 hierarchy", p.PID)
}

// SelfPid returns the pid of the calling process as seen by the procfs mount.
func (s *ProcfsStatistics) SelfPid() (int, error) {
	self, err := s.fs.Self()
	if err != nil {
		return 0, errors.WithStack(err)
	}
	return self.PID, nil
}
