package configuration

import (
	"strconv"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/armadaproject/lotterytest/internal/common/harnesserrors"
)

// Resolve turns ticket weight arguments into a TestConfiguration, one worker per argument in order.
// With no arguments the DefaultTickets are used.
//
// Fails with ErrTooManyWorkers if more than MaxWorkers arguments are given, and with
// ErrInvalidTicketCount for the first argument that is not an integer in [1, MaxTicketCount].
func Resolve(args []string) (*TestConfiguration, error) {
	if len(args) == 0 {
		return newTestConfiguration(slices.Clone(DefaultTickets), nil), nil
	}
	if len(args) > MaxWorkers {
		return nil, errors.WithStack(&harnesserrors.ErrTooManyWorkers{
			Count: len(args),
			Max:   MaxWorkers,
		})
	}
	tickets := make([]int, len(args))
	for i, arg := range args {
		t, err := strconv.Atoi(arg)
		if err != nil || t <= 0 || t > MaxTicketCount {
			return nil, errors.WithStack(&harnesserrors.ErrInvalidTicketCount{Arg: arg})
		}
		tickets[i] = t
	}
	return newTestConfiguration(tickets, args), nil
}
