// Package sampler takes live snapshots of how many ticks each worker has received.
package sampler

import (
	"fmt"
	"strings"

	"github.com/armadaproject/lotterytest/internal/common/runcontext"
	"github.com/armadaproject/lotterytest/internal/lotterytest/configuration"
	"github.com/armadaproject/lotterytest/internal/lotterytest/scheduler"
)

// View is the state of the run as of one sample.
type View struct {
	// Ticks of each worker, in slot order.
	Ticks []int
	Total int
	// Integer percentage of Total received by each worker. Nil while Total is 0.
	Percentages []int
}

// String formats the view as e.g. "P1=123 (50%), P2=...". Empty when there are no percentages.
func (v *View) String() string {
	if v == nil || v.Percentages == nil {
		return ""
	}
	var sb strings.Builder
	for i, ticks := range v.Ticks {
		if i > 0 {
			sb.WriteString(", ")
		}
		fmt.Fprintf(&sb, "P%d=%d (%d%%)", i+1, ticks, v.Percentages[i])
	}
	return sb.String()
}

// NewView derives a view from per-worker tick counts.
func NewView(ticks []int) *View {
	v := &View{Ticks: ticks}
	for _, t := range ticks {
		v.Total += t
	}
	if v.Total > 0 {
		v.Percentages = make([]int, len(ticks))
		for i, t := range ticks {
			v.Percentages[i] = t * 100 / v.Total
		}
	}
	return v
}

// Collector samples worker tick counts from a scheduler. It never sleeps; the caller decides when to sample.
type Collector struct {
	source scheduler.StatisticsSource
}

func NewCollector(source scheduler.StatisticsSource) *Collector {
	return &Collector{source: source}
}

// Sample queries the scheduler once and updates the observed ticks of every slot whose worker
// appears in the result. Slots whose worker is missing keep their previous value.
// If the query fails nothing is updated and nil is returned.
func (c *Collector) Sample(ctx *runcontext.Context, cfg *configuration.TestConfiguration) *View {
	table, err := c.source.QueryStatistics()
	if err != nil {
		ctx.Warnf("failed to query scheduler statistics: %s", err)
		return nil
	}
	for _, slot := range cfg.Slots {
		if row, ok := table.Lookup(slot.WorkerId); ok {
			slot.ObservedTicks = row.Ticks
		}
	}
	return NewView(cfg.ObservedTicks())
}
