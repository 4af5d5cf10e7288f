//go:build !linux

package scheduler

import "github.com/pkg/errors"

type NiceScheduler struct {
	*ProcfsStatistics
}

func NewNiceScheduler(_ *ProcfsStatistics, _ int) (*NiceScheduler, error) {
	return nil, errors.New("the nice backend is only supported on linux")
}

func (s *NiceScheduler) AssignWeight(_ int, _ int) error {
	return errors.New("the nice backend is only supported on linux")
}
