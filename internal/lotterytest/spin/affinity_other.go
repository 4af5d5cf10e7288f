//go:build !linux

package spin

import "github.com/pkg/errors"

func PinCurrentThread(cpu int) error {
	return errors.Errorf("cannot pin to cpu %d: cpu affinity is only supported on linux", cpu)
}
