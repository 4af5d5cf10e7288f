package cmd

import (
	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sanity-io/litter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/armadaproject/lotterytest/internal/common"
	"github.com/armadaproject/lotterytest/internal/common/app"
	commonconfig "github.com/armadaproject/lotterytest/internal/common/config"
	"github.com/armadaproject/lotterytest/internal/common/harnesserrors"
	"github.com/armadaproject/lotterytest/internal/common/runcontext"
	"github.com/armadaproject/lotterytest/internal/lotterytest"
	"github.com/armadaproject/lotterytest/internal/lotterytest/configuration"
)

const (
	CustomConfigLocation string = "config"
	defaultConfigPath    string = "./config/lotterytest"
)

// RootCmd is the root Cobra command that gets called from the main func.
// Running it without a subcommand performs a test run.
func RootCmd() *cobra.Command {
	v := viper.New()
	configuration.SetDefaults(v)

	cmd := &cobra.Command{
		Use:   "lotterytest [tickets...]",
		Short: "lotterytest checks that a scheduler shares CPU time in proportion to ticket weights.",
		Long: `lotterytest checks that a scheduler shares CPU time in proportion to ticket weights.

One CPU-bound worker is started per ticket weight given on the command line (30 20 10 if none
are given, at most 32). Each worker is weighted by the selected backend, all of them compete for
the same CPU, and the share of CPU time each receives is sampled while they run. The run ends
with a comparison of the observed shares with the shares implied by the weights.

Settings are read from ./config/lotterytest/config.yaml, any files passed with --config,
LOTTERYTEST_* environment variables (e.g. LOTTERYTEST_REPORT_FORMAT) and flags, in increasing
order of precedence.

Exit codes: 0 success, 1 unexpected error, 2 invalid configuration, 3 a worker could not be
started, 4 accuracy below report.minAccuracy, 130 interrupted.`,
		Example: `  lotterytest
  lotterytest 10 20 15 5
  lotterytest --backend simulated --duration 1m 3 2 1
  lotterytest --backend cgroup --report.output result.xml --report.format junit`,
		Args:          cobra.ArbitraryArgs,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
				common.ConfigureLogging()
			}
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHarness(cmd, v, args)
		},
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Log at debug level, with timestamps.")

	cmd.Flags().StringSlice(
		CustomConfigLocation,
		[]string{},
		"Fully qualified path to application configuration file (for multiple config files repeat this arg or separate paths with commas)")
	cmd.Flags().String("backend", configuration.NiceBackend, "Scheduler to test: nice, cgroup or simulated.")
	cmd.Flags().Duration("duration", 0, "How long the workers compete for CPU after settling.")
	cmd.Flags().Int("samples", 0, "Number of live samples taken over the run.")
	cmd.Flags().Duration("settleDelay", 0, "Time given to workers to start before sampling begins.")
	cmd.Flags().Int("cpu", 0, "CPU the harness and workers are pinned to. -1 disables pinning.")
	cmd.Flags().String("cgroupRoot", "", "Cgroup, relative to the cgroup mount, under which the cgroup backend creates worker cgroups.")
	cmd.Flags().Int64("seed", 0, "Seed of the simulated backend's ticket draws.")
	cmd.Flags().Duration("quantum", 0, "Length of one scheduling quantum of the simulated backend.")
	cmd.Flags().Uint16("metrics.port", 0, "Serve prometheus metrics on this port while running. Disabled if 0.")
	cmd.Flags().String("metrics.pushgatewayUrl", "", "Push final metrics to this prometheus push gateway.")
	cmd.Flags().String("report.output", "", "Write a machine-readable report to this file.")
	cmd.Flags().String("report.format", configuration.YamlFormat, "Format of the report file: yaml, json or junit.")
	cmd.Flags().Int("report.tolerance", 0, "Largest deviation, in percentage points, of a worker that passes in a junit report.")
	cmd.Flags().Int("report.minAccuracy", 0, "Fail with exit code 4 if accuracy is below this. Disabled if 0.")

	cmd.AddCommand(
		versionCmd(lotterytest.New(configuration.Configuration{})),
		workerCmd(),
	)

	return cmd
}

// loadConfig merges all configuration sources into a validated Configuration.
// Any problem with the configuration is returned as an ErrInvalidArgument.
func loadConfig(cmd *cobra.Command, v *viper.Viper) (configuration.Configuration, error) {
	var config configuration.Configuration
	// Flags that were not set fall through to the config files and the defaults registered on v.
	if err := common.BindCommandlineArguments(v, cmd.Flags()); err != nil {
		return config, err
	}
	userSpecifiedConfigs, err := cmd.Flags().GetStringSlice(CustomConfigLocation)
	if err != nil {
		return config, errors.WithStack(err)
	}
	for i, path := range userSpecifiedConfigs {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return config, errors.WithStack(&harnesserrors.ErrInvalidArgument{
				Name:    CustomConfigLocation,
				Value:   path,
				Message: err.Error(),
			})
		}
		userSpecifiedConfigs[i] = expanded
	}

	err = common.LoadConfig(v, &config, defaultConfigPath, userSpecifiedConfigs, configuration.DecodeHooks()...)
	if err != nil {
		return config, errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    CustomConfigLocation,
			Value:   userSpecifiedConfigs,
			Message: err.Error(),
		})
	}
	log.Debugf("configuration: %s", litter.Sdump(config))

	if err := config.Validate(); err != nil {
		commonconfig.LogValidationErrors(err)
		return config, errors.WithStack(&harnesserrors.ErrInvalidArgument{
			Name:    "configuration",
			Value:   v.ConfigFileUsed(),
			Message: "see the configuration errors logged above",
		})
	}
	return config, nil
}

// runHarness performs one test run with the ticket weights in args, serving metrics alongside it
// if a metrics port is configured. SIGINT and SIGTERM interrupt the run.
func runHarness(cmd *cobra.Command, v *viper.Viper, args []string) error {
	config, err := loadConfig(cmd, v)
	if err != nil {
		return err
	}
	harness := lotterytest.New(config)
	harness.Out = cmd.OutOrStdout()

	ctx, stop := app.CreateContextWithShutdown(runcontext.Background())
	defer stop()
	g, ctx := runcontext.ErrGroup(ctx)
	ctx, cancel := runcontext.WithCancel(ctx)
	defer cancel()

	if port := config.Metrics.Port; port > 0 {
		registry := prometheus.NewRegistry()
		if err := registry.Register(harness.Metrics); err != nil {
			return errors.WithStack(err)
		}
		gatherer := prometheus.Gatherers{prometheus.DefaultGatherer, registry}
		g.Go(func() error {
			return common.ServeMetrics(ctx, port, gatherer)
		})
	}

	g.Go(func() error {
		// Stops the metrics server once the run is over.
		defer cancel()
		_, err := harness.Run(ctx, args)
		return err
	})
	return g.Wait()
}
