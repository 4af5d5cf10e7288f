package report

import (
	"time"

	"github.com/armadaproject/lotterytest/internal/lotterytest/analysis"
	"github.com/armadaproject/lotterytest/internal/lotterytest/configuration"
)

// RunReport is the machine-readable outcome of a run.
type RunReport struct {
	RunId                 string         `json:"runId" yaml:"runId"`
	Backend               string         `json:"backend" yaml:"backend"`
	StartedAt             time.Time      `json:"startedAt" yaml:"startedAt"`
	Duration              string         `json:"duration" yaml:"duration"`
	Elapsed               string         `json:"elapsed" yaml:"elapsed"`
	Samples               int            `json:"samples" yaml:"samples"`
	FailedSamples         int            `json:"failedSamples" yaml:"failedSamples"`
	Tickets               string         `json:"tickets" yaml:"tickets"`
	TotalTickets          int            `json:"totalTickets" yaml:"totalTickets"`
	TotalTicks            int            `json:"totalTicks" yaml:"totalTicks"`
	Workers               []WorkerReport `json:"workers" yaml:"workers"`
	MeanAbsoluteDeviation int            `json:"meanAbsoluteDeviation" yaml:"meanAbsoluteDeviation"`
	Accuracy              int            `json:"accuracy" yaml:"accuracy"`
	Rating                string         `json:"rating" yaml:"rating"`
	ExpectedRatios        []string       `json:"expectedRatios,omitempty" yaml:"expectedRatios,omitempty"`
	ActualRatios          []string       `json:"actualRatios,omitempty" yaml:"actualRatios,omitempty"`
	Degenerate            bool           `json:"degenerate" yaml:"degenerate"`
}

type WorkerReport struct {
	Name            string `json:"name" yaml:"name"`
	Pid             int    `json:"pid" yaml:"pid"`
	Tickets         int    `json:"tickets" yaml:"tickets"`
	Ticks           int    `json:"ticks" yaml:"ticks"`
	ExpectedPercent int    `json:"expectedPercent" yaml:"expectedPercent"`
	ActualPercent   int    `json:"actualPercent" yaml:"actualPercent"`
	Deviation       int    `json:"deviation" yaml:"deviation"`
}

// RunInfo describes how a run was carried out.
type RunInfo struct {
	RunId         string
	Backend       string
	StartedAt     time.Time
	Duration      time.Duration
	Elapsed       time.Duration
	Samples       int
	FailedSamples int
}

func NewRunReport(info RunInfo, cfg *configuration.TestConfiguration, result *analysis.AccuracyReport) *RunReport {
	workers := make([]WorkerReport, len(cfg.Slots))
	for i, slot := range cfg.Slots {
		w := result.Workers[i]
		workers[i] = WorkerReport{
			Name:            slot.Name(),
			Pid:             slot.WorkerId,
			Tickets:         w.Tickets,
			Ticks:           w.Ticks,
			ExpectedPercent: w.ExpectedPercent,
			ActualPercent:   w.ActualPercent,
			Deviation:       w.Deviation,
		}
	}
	return &RunReport{
		RunId:                 info.RunId,
		Backend:               info.Backend,
		StartedAt:             info.StartedAt.UTC(),
		Duration:              info.Duration.String(),
		Elapsed:               info.Elapsed.String(),
		Samples:               info.Samples,
		FailedSamples:         info.FailedSamples,
		Tickets:               cfg.Ratio(),
		TotalTickets:          result.TotalTickets,
		TotalTicks:            result.TotalTicks,
		Workers:               workers,
		MeanAbsoluteDeviation: result.MeanAbsoluteDeviation,
		Accuracy:              result.Accuracy,
		Rating:                result.Rating.String(),
		ExpectedRatios:        ratioStrings(result.ExpectedRatios),
		ActualRatios:          ratioStrings(result.ActualRatios),
		Degenerate:            result.Degenerate,
	}
}

func ratioStrings(ratios []analysis.Ratio) []string {
	if ratios == nil {
		return nil
	}
	rv := make([]string, len(ratios))
	for i, r := range ratios {
		rv[i] = r.String()
	}
	return rv
}
