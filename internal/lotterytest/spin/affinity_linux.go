package spin

import (
	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// PinCurrentThread restricts the calling OS thread to cpu.
func PinCurrentThread(cpu int) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(cpu)
	if err := unix.SchedSetaffinity(0, &set); err != nil {
		return errors.Wrapf(err, "pinning to cpu %d", cpu)
	}
	return nil
}
