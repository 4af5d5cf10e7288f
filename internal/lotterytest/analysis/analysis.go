// Package analysis compares the CPU share each worker received against the share its tickets
// entitle it to.
package analysis

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/armadaproject/lotterytest/internal/common/harnesserrors"
	"github.com/armadaproject/lotterytest/internal/common/util"
	"github.com/armadaproject/lotterytest/internal/lotterytest/configuration"
)

type Rating int

const (
	Poor Rating = iota
	Fair
	Good
	Excellent
)

func (r Rating) String() string {
	switch r {
	case Excellent:
		return "excellent"
	case Good:
		return "good"
	case Fair:
		return "fair"
	default:
		return "poor"
	}
}

// RatingFor buckets an accuracy score.
func RatingFor(accuracy int) Rating {
	switch {
	case accuracy >= 90:
		return Excellent
	case accuracy >= 80:
		return Good
	case accuracy >= 70:
		return Fair
	default:
		return Poor
	}
}

// Ratio is a ratio to the smallest value of a set, in tenths; 25 means 2.5.
type Ratio int

func (r Ratio) String() string {
	return fmt.Sprintf("%d.%d", r/10, r%10)
}

// ratios divides each of xs by the smallest, floored to tenths. Returns nil if the smallest is 0.
func ratios(xs []int) []Ratio {
	min := util.MinOf(xs)
	if min <= 0 {
		return nil
	}
	rv := make([]Ratio, len(xs))
	for i, x := range xs {
		rv[i] = Ratio(x * 10 / min)
	}
	return rv
}

// WorkerResult is the outcome for a single worker. Percentages are integer percentage points.
type WorkerResult struct {
	Index           int
	Tickets         int
	Ticks           int
	ExpectedPercent int
	ActualPercent   int
	// ActualPercent minus ExpectedPercent.
	Deviation int
}

type AccuracyReport struct {
	Workers      []WorkerResult
	TotalTickets int
	TotalTicks   int
	// Mean of the absolute deviations, in percentage points.
	MeanAbsoluteDeviation int
	// 100 minus MeanAbsoluteDeviation, within [0, 100].
	Accuracy int
	Rating   Rating
	// Tickets and ticks relative to the smallest of each. ActualRatios is nil if any worker
	// received no ticks.
	ExpectedRatios []Ratio
	ActualRatios   []Ratio
	// Set when no worker received any ticks, in which case nothing else can be concluded.
	Degenerate bool
}

// ExpectedShareTenths is the share of the ticket pool held by tickets, in tenths of a percent.
func ExpectedShareTenths(tickets, totalTickets int) int {
	if totalTickets <= 0 {
		return 0
	}
	return tickets * 1000 / totalTickets
}

// Analyze compares finalTicks, the tick count of each worker in slot order, to the share of
// cfg's ticket pool each worker holds. All percentages are floored.
func Analyze(cfg *configuration.TestConfiguration, finalTicks []int) (*AccuracyReport, error) {
	if len(finalTicks) != len(cfg.Slots) {
		return nil, errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "finalTicks",
			Value:   len(finalTicks),
			Message: fmt.Sprintf("expected one tick count for each of %d workers", len(cfg.Slots)),
		})
	}
	if len(cfg.Slots) == 0 {
		return nil, errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "slots",
			Value:   0,
			Message: "at least one worker is required",
		})
	}

	tickets := cfg.Tickets()
	totalTickets := util.Sum(tickets)
	totalTicks := util.Sum(finalTicks)
	report := &AccuracyReport{
		Workers:        make([]WorkerResult, len(cfg.Slots)),
		TotalTickets:   totalTickets,
		TotalTicks:     totalTicks,
		ExpectedRatios: ratios(tickets),
	}
	for i, slot := range cfg.Slots {
		report.Workers[i] = WorkerResult{
			Index:           slot.Index,
			Tickets:         slot.Tickets,
			Ticks:           finalTicks[i],
			ExpectedPercent: slot.Tickets * 100 / totalTickets,
		}
	}

	if totalTicks == 0 {
		report.Degenerate = true
		report.Accuracy = 0
		report.Rating = Poor
		report.ExpectedRatios = nil
		return report, nil
	}

	sumAbsDeviation := 0
	for i := range report.Workers {
		w := &report.Workers[i]
		w.ActualPercent = w.Ticks * 100 / totalTicks
		w.Deviation = w.ActualPercent - w.ExpectedPercent
		sumAbsDeviation += util.Abs(w.Deviation)
	}
	report.MeanAbsoluteDeviation = sumAbsDeviation / len(report.Workers)
	report.Accuracy = clamp(100-report.MeanAbsoluteDeviation, 0, 100)
	report.Rating = RatingFor(report.Accuracy)
	report.ActualRatios = ratios(finalTicks)
	if report.ActualRatios == nil {
		report.ExpectedRatios = nil
	}
	return report, nil
}

func clamp(x, lo, hi int) int {
	return util.Min(util.Max(x, lo), hi)
}
