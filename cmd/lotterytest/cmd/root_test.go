package cmd

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armadaproject/lotterytest/internal/common/harnesserrors"
	"github.com/armadaproject/lotterytest/internal/lotterytest/configuration"
)

func loadWithArgs(t *testing.T, args ...string) (configuration.Configuration, error) {
	t.Helper()
	cmd := RootCmd()
	require.NoError(t, cmd.ParseFlags(args))
	v := viper.New()
	configuration.SetDefaults(v)
	return loadConfig(cmd, v)
}

func TestLoadConfig_Defaults(t *testing.T) {
	config, err := loadWithArgs(t)
	require.NoError(t, err)
	assert.Equal(t, configuration.NiceBackend, config.Backend)
	assert.Equal(t, 15*time.Second, config.Duration)
	assert.Equal(t, configuration.NumSamples, config.Samples)
	assert.Equal(t, 5, config.Report.Tolerance)
	assert.Empty(t, config.Tickets)
}

func TestLoadConfig_Flags(t *testing.T) {
	config, err := loadWithArgs(t,
		"--backend", "simulated",
		"--duration", "3s",
		"--cpu", "-1",
		"--metrics.port", "9100",
		"--report.tolerance", "7",
		"--report.format", "junit",
	)
	require.NoError(t, err)
	assert.Equal(t, configuration.SimulatedBackend, config.Backend)
	assert.Equal(t, 3*time.Second, config.Duration)
	assert.Equal(t, -1, config.Cpu)
	assert.Equal(t, uint16(9100), config.Metrics.Port)
	assert.Equal(t, 7, config.Report.Tolerance)
	assert.Equal(t, configuration.JunitFormat, config.Report.Format)
	// Untouched settings keep their defaults.
	assert.Equal(t, configuration.NumSamples, config.Samples)
}

func TestLoadConfig_Environment(t *testing.T) {
	t.Setenv("LOTTERYTEST_REPORT_FORMAT", "json")
	t.Setenv("LOTTERYTEST_SAMPLES", "20")

	config, err := loadWithArgs(t)
	require.NoError(t, err)
	assert.Equal(t, configuration.JsonFormat, config.Report.Format)
	assert.Equal(t, 20, config.Samples)
}

func TestLoadConfig_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lotterytest.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tickets: \"5:15\"\nduration: 2s\nbackend: simulated\n"), 0o644))

	config, err := loadWithArgs(t, "--config", path, "--duration", "4s")
	require.NoError(t, err)
	assert.Equal(t, configuration.TicketList{"5", "15"}, config.Tickets)
	assert.Equal(t, configuration.SimulatedBackend, config.Backend)
	// Flags take precedence over files.
	assert.Equal(t, 4*time.Second, config.Duration)
}

func TestLoadConfig_ConfigFileInHomeDir(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	homedir.Reset()
	t.Cleanup(homedir.Reset)
	require.NoError(t, os.WriteFile(filepath.Join(home, "lotterytest.yaml"), []byte("samples: 7\n"), 0o644))

	config, err := loadWithArgs(t, "--config", "~/lotterytest.yaml")
	require.NoError(t, err)
	assert.Equal(t, 7, config.Samples)
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := map[string]struct {
		args []string
	}{
		"unknown backend":    {args: []string{"--backend", "fifo"}},
		"no samples":         {args: []string{"--samples", "-1"}},
		"unknown format":     {args: []string{"--report.format", "csv"}},
		"missing config":     {args: []string{"--config", "/does/not/exist.yaml"}},
		"tolerance too high": {args: []string{"--report.tolerance", "101"}},
	}
	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := loadWithArgs(t, tc.args...)
			assert.True(t, harnesserrors.IsConfigurationError(err))
			assert.Equal(t, harnesserrors.ExitConfiguration, harnesserrors.ExitCodeFromError(err))
		})
	}
}
