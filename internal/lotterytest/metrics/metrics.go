// Package metrics exports the progress and outcome of a run as prometheus metrics.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/armadaproject/lotterytest/internal/lotterytest/analysis"
	"github.com/armadaproject/lotterytest/internal/lotterytest/configuration"
	"github.com/armadaproject/lotterytest/internal/lotterytest/sampler"
)

const (
	prefix = "lotterytest_"

	workerLabel  = "worker"
	ticketsLabel = "tickets"
	resultLabel  = "result"

	successResult = "success"
	failureResult = "failure"

	pushJobName = "lotterytest"
)

var workerLabels = []string{workerLabel, ticketsLabel}

// Metrics is a prometheus.Collector for a single run. It is threadsafe.
type Metrics struct {
	mu sync.Mutex

	workerTicks    *prometheus.GaugeVec
	workerShare    *prometheus.GaugeVec
	expectedShare  *prometheus.GaugeVec
	deviation      *prometheus.GaugeVec
	accuracy       prometheus.Gauge
	samples        *prometheus.CounterVec
	sampleDuration prometheus.Histogram
	allMetrics     []prometheus.Collector
}

func New() *Metrics {
	workerTicks := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "worker_ticks",
			Help: "Ticks received by each worker as of the latest sample",
		},
		workerLabels,
	)

	workerShare := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "worker_share_percent",
			Help: "Percentage of all worker ticks received by each worker as of the latest sample",
		},
		workerLabels,
	)

	expectedShare := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "worker_expected_share_percent",
			Help: "Percentage of the ticket pool held by each worker",
		},
		workerLabels,
	)

	deviation := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: prefix + "worker_deviation_percent",
			Help: "Final actual share minus expected share of each worker, in percentage points",
		},
		workerLabels,
	)

	accuracy := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: prefix + "accuracy_score",
			Help: "Final accuracy score of the run, from 0 to 100",
		},
	)

	samples := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: prefix + "samples_total",
			Help: "Number of scheduler statistics samples taken",
		},
		[]string{resultLabel},
	)

	sampleDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    prefix + "sample_latency_seconds",
			Help:    "Time taken to query scheduler statistics",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 15),
		},
	)

	return &Metrics{
		workerTicks:    workerTicks,
		workerShare:    workerShare,
		expectedShare:  expectedShare,
		deviation:      deviation,
		accuracy:       accuracy,
		samples:        samples,
		sampleDuration: sampleDuration,
		allMetrics: []prometheus.Collector{
			workerTicks,
			workerShare,
			expectedShare,
			deviation,
			accuracy,
			samples,
			sampleDuration,
		},
	}
}

func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, metric := range m.allMetrics {
		metric.Describe(ch)
	}
}

func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, metric := range m.allMetrics {
		metric.Collect(ch)
	}
}

func labelValues(slot *configuration.WorkerSlot) []string {
	return []string{slot.Name(), strconv.Itoa(slot.Tickets)}
}

// ReportConfiguration records the share of the ticket pool each worker is entitled to.
func (m *Metrics) ReportConfiguration(cfg *configuration.TestConfiguration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := cfg.TotalTickets()
	for _, slot := range cfg.Slots {
		share := float64(analysis.ExpectedShareTenths(slot.Tickets, total)) / 10
		m.expectedShare.WithLabelValues(labelValues(slot)...).Set(share)
	}
}

// ReportSample records the outcome of one sample. view is nil if the sample failed.
func (m *Metrics) ReportSample(cfg *configuration.TestConfiguration, view *sampler.View, latency time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sampleDuration.Observe(latency.Seconds())
	if view == nil {
		m.samples.WithLabelValues(failureResult).Inc()
		return
	}
	m.samples.WithLabelValues(successResult).Inc()
	for i, slot := range cfg.Slots {
		m.workerTicks.WithLabelValues(labelValues(slot)...).Set(float64(view.Ticks[i]))
		if view.Percentages != nil {
			m.workerShare.WithLabelValues(labelValues(slot)...).Set(float64(view.Percentages[i]))
		}
	}
}

// ReportResult records the final analysis of the run.
func (m *Metrics) ReportResult(cfg *configuration.TestConfiguration, report *analysis.AccuracyReport) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, slot := range cfg.Slots {
		w := report.Workers[i]
		m.workerTicks.WithLabelValues(labelValues(slot)...).Set(float64(w.Ticks))
		m.workerShare.WithLabelValues(labelValues(slot)...).Set(float64(w.ActualPercent))
		m.deviation.WithLabelValues(labelValues(slot)...).Set(float64(w.Deviation))
	}
	m.accuracy.Set(float64(report.Accuracy))
}

// Push sends the current value of every metric to the push gateway at url, grouped by run.
func (m *Metrics) Push(url string, runId string) error {
	err := push.New(url, pushJobName).
		Grouping("run", runId).
		Collector(m).
		Push()
	return errors.Wrapf(err, "pushing metrics to %s", url)
}
