package configuration

import (
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	commonconfig "github.com/armadaproject/lotterytest/internal/common/config"
)

const (
	NiceBackend      = "nice"
	CgroupBackend    = "cgroup"
	SimulatedBackend = "simulated"
)

const (
	YamlFormat  = "yaml"
	JsonFormat  = "json"
	JunitFormat = "junit"
)

// TicketList is the raw, unparsed list of ticket weights.
// In config it may be written as "30:20:10", "30,20,10" or as a list.
type TicketList []string

type Configuration struct {
	// Ticket weight of each worker, used when no weights are given on the command line.
	Tickets TicketList
	// Scheduler backend the workers run under: nice, cgroup or simulated.
	Backend string `validate:"oneof=nice cgroup simulated"`
	// Length of the measured part of the run, excluding SettleDelay.
	Duration time.Duration `validate:"gt=0"`
	// Number of evenly spaced live samples taken during Duration.
	Samples int `validate:"gt=0"`
	// Time given to workers to start before measuring.
	SettleDelay time.Duration `validate:"gte=0"`
	// CPU every worker is pinned to. -1 disables pinning.
	Cpu int `validate:"gte=-1"`
	// Mount point of procfs, read for per-process tick counts.
	ProcMount string `validate:"required"`
	// Mount point of the cgroup v2 hierarchy, and the cgroup under it that holds the workers.
	CgroupMount string
	CgroupRoot  string
	// Seed and quantum of the simulated scheduler.
	Seed    int64
	Quantum time.Duration `validate:"gt=0"`
	Metrics MetricsConfig
	Report  ReportConfig
}

type MetricsConfig struct {
	// Port to serve prometheus metrics on while the run is in progress. 0 disables the endpoint.
	Port uint16
	// If set, final metrics are pushed to this prometheus push gateway.
	PushgatewayUrl string `validate:"omitempty,url"`
}

type ReportConfig struct {
	// File the run report is written to. Empty disables the report file.
	Output string
	Format string `validate:"omitempty,oneof=yaml json junit"`
	// Largest absolute deviation, in percentage points, a worker may show before it is reported
	// as failed in junit output.
	Tolerance int `validate:"gte=0,lte=100"`
	// Runs scoring below this accuracy exit with a failure. 0 disables the check.
	MinAccuracy int `validate:"gte=0,lte=100"`
}

// SampleInterval is the time between consecutive live samples.
func (c Configuration) SampleInterval() time.Duration {
	return c.Duration / time.Duration(c.Samples)
}

func (c Configuration) Validate() error {
	return commonconfig.Validate(c)
}

// DecodeHooks returns the hooks needed to unmarshal a Configuration.
func DecodeHooks() []mapstructure.DecodeHookFunc {
	return []mapstructure.DecodeHookFunc{
		commonconfig.SeparatedListHookFunc(reflect.TypeOf(TicketList{}), ":,"),
	}
}

// SetDefaults registers the built-in defaults on v.
// These apply when no config file provides a value.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("tickets", []string{})
	v.SetDefault("backend", NiceBackend)
	v.SetDefault("duration", 15*time.Second)
	v.SetDefault("samples", NumSamples)
	v.SetDefault("settleDelay", time.Second)
	v.SetDefault("cpu", 0)
	v.SetDefault("procMount", "/proc")
	v.SetDefault("cgroupMount", "/sys/fs/cgroup")
	v.SetDefault("cgroupRoot", "lotterytest")
	v.SetDefault("seed", 1)
	v.SetDefault("quantum", 10*time.Millisecond)
	v.SetDefault("metrics.port", 0)
	v.SetDefault("metrics.pushgatewayUrl", "")
	v.SetDefault("report.output", "")
	v.SetDefault("report.format", YamlFormat)
	v.SetDefault("report.tolerance", 5)
	v.SetDefault("report.minAccuracy", 0)
}
