package scheduler

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"

	"github.com/armadaproject/lotterytest/internal/common/harnesserrors"
)

// NiceScheduler weights processes under the kernel's fair scheduler by renicing every thread.
type NiceScheduler struct {
	*ProcfsStatistics
	referenceWeight int
}

// NewNiceScheduler returns a NiceScheduler where referenceWeight, usually the largest configured
// weight, maps to nice 0.
func NewNiceScheduler(stats *ProcfsStatistics, referenceWeight int) (*NiceScheduler, error) {
	if referenceWeight <= 0 {
		return nil, errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "referenceWeight",
			Value:   referenceWeight,
			Message: "must be positive",
		})
	}
	return &NiceScheduler{ProcfsStatistics: stats, referenceWeight: referenceWeight}, nil
}

func (s *NiceScheduler) AssignWeight(pid int, weight int) error {
	if weight <= 0 {
		return errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "weight",
			Value:   weight,
			Message: "must be positive",
		})
	}
	nice := NiceForWeight(weight, s.referenceWeight)
	tasks, err := os.ReadDir(filepath.Join(s.mount, strconv.Itoa(pid), "task"))
	if err != nil {
		return errors.WithStack(err)
	}
	var result *multierror.Error
	for _, task := range tasks {
		tid, err := strconv.Atoi(task.Name())
		if err != nil {
			continue
		}
		if err := unix.Setpriority(unix.PRIO_PROCESS, tid, nice); err != nil && !errors.Is(err, unix.ESRCH) {
			result = multierror.Append(result, errors.Wrapf(err, "setting nice %d on thread %d of %d", nice, tid, pid))
		}
	}
	return result.ErrorOrNil()
}
