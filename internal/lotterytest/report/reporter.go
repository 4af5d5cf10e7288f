// Package report presents a run: live progress and results to a terminal, and a machine-readable
// summary to a file.
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/armadaproject/lotterytest/internal/common/util"
	"github.com/armadaproject/lotterytest/internal/lotterytest/analysis"
	"github.com/armadaproject/lotterytest/internal/lotterytest/configuration"
	"github.com/armadaproject/lotterytest/internal/lotterytest/sampler"
)

const (
	barWidth   = 40
	ruleWidth  = 50
	filledCell = "█"
	emptyCell  = "░"
	indent     = "   "
)

var rule = strings.Repeat("=", ruleWidth)

// Reporter writes human-readable progress and results.
// Write errors are ignored; output is best effort and never affects the run.
type Reporter struct {
	out io.Writer
}

func NewReporter(out io.Writer) *Reporter {
	return &Reporter{out: out}
}

func (r *Reporter) printf(format string, a ...any) {
	_, _ = fmt.Fprintf(r.out, format, a...)
}

// bar draws n/d of width cells as filled.
func bar(n, d, width int) string {
	filled := 0
	if d > 0 {
		filled = util.Min(util.Max(n*width/d, 0), width)
	}
	return strings.Repeat(filledCell, filled) + strings.Repeat(emptyCell, width-filled)
}

// Arguments echoes how the configuration was derived.
func (r *Reporter) Arguments(cfg *configuration.TestConfiguration) {
	if len(cfg.Args) == 0 {
		r.printf("No arguments provided, using default configuration\n")
		return
	}
	r.printf("Parsing %d processes from command line:\n", len(cfg.Slots))
	for i, slot := range cfg.Slots {
		r.printf("  Process %d: %d tickets (from arg '%s')\n", i+1, slot.Tickets, cfg.Args[i])
	}
	r.printf("\n")
}

func (r *Reporter) Banner(cfg *configuration.TestConfiguration, backend string) {
	r.printf("\n%s\n", rule)
	r.printf("%s\n", center("LOTTERY SCHEDULER DEMONSTRATION"))
	r.printf("%s\n", center("Configuration: "+cfg.Ratio()))
	r.printf("%s\n", center(fmt.Sprintf("Total Tickets: %d", cfg.TotalTickets())))
	r.printf("%s\n", center("Backend: "+backend))
	r.printf("%s\n\n", rule)
}

func center(s string) string {
	width := len([]rune(s))
	if width >= ruleWidth {
		return s
	}
	return strings.Repeat(" ", (ruleWidth-width)/2) + s
}

// Setup lists each worker's tickets and the share of CPU it should receive.
func (r *Reporter) Setup(cfg *configuration.TestConfiguration) {
	total := cfg.TotalTickets()
	r.printf("🎲 TEST CONFIGURATION:\n")
	for _, slot := range cfg.Slots {
		r.printf("%s├─ Process %s: %d tickets\n", indent, slot.Name(), slot.Tickets)
	}
	r.printf("%sTotal Pool: %d tickets\n\n", indent, total)

	r.printf("📊 EXPECTED ALLOCATION (Proportional Fair Share):\n")
	for _, slot := range cfg.Slots {
		tenths := analysis.ExpectedShareTenths(slot.Tickets, total)
		r.printf("%s├─ %s: %d.%d%% of CPU time (%d/%d tickets)\n",
			indent, slot.Name(), tenths/10, tenths%10, slot.Tickets, total)
	}
	r.printf("\n%sRatio: %s\n\n", indent, cfg.Ratio())
}

func (r *Reporter) Starting() {
	r.printf("🚀 STARTING PROCESSES...\n")
}

func (r *Reporter) WorkerStarted(slot *configuration.WorkerSlot) {
	r.printf("%s✓ %s (PID %d) started with %d tickets\n", indent, slot.Name(), slot.WorkerId, slot.Tickets)
}

func (r *Reporter) HarnessWeighted() {
	r.printf("%s✓ Harness monitoring with 1 ticket\n\n", indent)
}

func (r *Reporter) Running(duration time.Duration) {
	r.printf("⏱️  RUNNING TEST FOR %s...\n\n", duration)
}

// Progress redraws the progress line for sample current of total. view may be nil.
func (r *Reporter) Progress(current, total int, view *sampler.View) {
	r.printf("\rProgress [%s] %d%%", bar(current, total, barWidth), current*100/total)
	if stats := view.String(); stats != "" {
		r.printf(" %s", stats)
	}
	// Clear whatever the previous, possibly longer, line left behind.
	r.printf("%s", strings.Repeat(" ", barWidth))
	if current >= total {
		r.printf("\n")
	}
}

func (r *Reporter) Complete() {
	r.printf("\n⏹️  TEST COMPLETE. COLLECTING RESULTS...\n")
}

// Results shows each worker's ticks as a table and as bars.
func (r *Reporter) Results(cfg *configuration.TestConfiguration, report *analysis.AccuracyReport) {
	r.printf("\n%s\n%s\n%s\n\n", rule, center("LOTTERY TEST RESULTS"), rule)

	r.printf("📈 SCHEDULING STATISTICS\n")
	table := util.NewTabbedStringBuilder(1, 1, 3, ' ', 0)
	table.Row(indent+"Process", "Tickets", "Ticks", "Percentage")
	for i, slot := range cfg.Slots {
		w := report.Workers[i]
		table.Row(indent+slot.Name(), w.Tickets, w.Ticks, fmt.Sprintf("%d%%", w.ActualPercent))
	}
	r.printf("%s", table.String())
	r.printf("%sTotal Ticks: %d\n\n", indent, report.TotalTicks)

	if report.Degenerate {
		r.printf("%s⚠️  No worker received any ticks; the CPU distribution cannot be shown.\n", indent)
		return
	}

	r.printf("📊 VISUAL CPU TIME DISTRIBUTION\n\n")
	labels := make([]string, len(cfg.Slots))
	labelWidth := 0
	for i, slot := range cfg.Slots {
		labels[i] = fmt.Sprintf("%s%s (%d tickets): ", indent, slot.Name(), slot.Tickets)
		labelWidth = util.Max(labelWidth, len(labels[i]))
	}
	for i, w := range report.Workers {
		r.printf("%-*s%s %d%%\n", labelWidth, labels[i], bar(w.Ticks, report.TotalTicks, barWidth), w.ActualPercent)
	}
	r.printf("\n%s\n", scale(labelWidth))
}

// scale draws a percentage axis under bars that start at column offset.
func scale(offset int) string {
	var ticks, values strings.Builder
	ticks.WriteString(fmt.Sprintf("%-*s", offset, indent+"Scale:"))
	values.WriteString(strings.Repeat(" ", offset))
	for i := 0; i <= barWidth; i += barWidth / 4 {
		label := fmt.Sprintf("%d%%", i*100/barWidth)
		ticks.WriteString("|")
		values.WriteString(label)
		if i < barWidth {
			ticks.WriteString(strings.Repeat(" ", barWidth/4-1))
			values.WriteString(strings.Repeat(" ", barWidth/4-len(label)))
		}
	}
	return ticks.String() + "\n" + values.String()
}

// Accuracy shows the deviation of each worker from its expected share and the overall score.
func (r *Reporter) Accuracy(cfg *configuration.TestConfiguration, report *analysis.AccuracyReport, duration time.Duration, samples int) {
	r.printf("\n🎯 ACCURACY ANALYSIS\n\n")
	table := util.NewTabbedStringBuilder(1, 1, 3, ' ', 0)
	table.Row(indent+"Process", "Expected", "Actual", "Deviation")
	for i, slot := range cfg.Slots {
		w := report.Workers[i]
		table.Row(indent+slot.Name(),
			fmt.Sprintf("%d%%", w.ExpectedPercent),
			fmt.Sprintf("%d%%", w.ActualPercent),
			fmt.Sprintf("%+d%%", w.Deviation))
	}
	r.printf("%s\n", table.String())

	r.printf("🏆 LOTTERY SCHEDULER ACCURACY: %d%%\n\n", report.Accuracy)
	r.printf("%s\n", verdict(report))

	if report.ActualRatios != nil {
		r.printf("\n📊 PROPORTIONAL RATIOS\n")
		r.printf("%sExpected: %s\n", indent, joinRatios(report.ExpectedRatios))
		r.printf("%sActual  : %s\n", indent, joinRatios(report.ActualRatios))
	}

	r.printf("\n📝 CONFIGURATION SUMMARY\n")
	r.printf("%sTicket Ratio: %s\n", indent, cfg.Ratio())
	r.printf("%sTest Duration: %s\n", indent, duration)
	r.printf("%sSamples: %d\n", indent, samples)
	r.printf("%sTotal Ticks: %d\n", indent, report.TotalTicks)
	r.printf("\n%s\n", rule)
}

func verdict(report *analysis.AccuracyReport) string {
	if report.Degenerate {
		return "❌ NO DATA: no worker was scheduled during the run."
	}
	switch report.Rating {
	case analysis.Excellent:
		return "✅ EXCELLENT: Lottery scheduler working perfectly!"
	case analysis.Good:
		return "✅ GOOD: Lottery scheduler working well!"
	case analysis.Fair:
		return "⚠️  FAIR: Lottery scheduler needs improvement."
	default:
		return "❌ POOR: Lottery scheduler has issues."
	}
}

func joinRatios(ratios []analysis.Ratio) string {
	parts := make([]string, len(ratios))
	for i, r := range ratios {
		parts[i] = r.String()
	}
	return strings.Join(parts, " : ")
}
