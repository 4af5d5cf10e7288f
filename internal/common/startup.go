package common

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	commonconfig "github.com/armadaproject/lotterytest/internal/common/config"
	"github.com/armadaproject/lotterytest/internal/common/logging"
)

const envPrefix = "LOTTERYTEST"

// BindCommandlineArguments makes every flag in flags addressable as a viper key of the same name.
// Flags named with dots, e.g. "metrics.port", bind to nested config keys.
func BindCommandlineArguments(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// LoadConfig populates config from, in increasing order of precedence, the defaults already registered
// on v, config.yaml found in defaultPath, each of overrideConfigs, LOTTERYTEST_* environment variables
// and any flags bound to v. hooks are applied ahead of the default decode hooks.
func LoadConfig(v *viper.Viper, config any, defaultPath string, overrideConfigs []string, hooks ...mapstructure.DecodeHookFunc) error {
	v.SetConfigName("config")
	v.AddConfigPath(defaultPath)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return errors.WithMessagef(err, "error reading config from %s", defaultPath)
		}
		log.Debugf("no config found in %s, using built-in defaults", defaultPath)
	}

	for _, path := range overrideConfigs {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return errors.WithMessagef(err, "error reading config from %s", path)
		}
		log.Debugf("merged config from %s", path)
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.Unmarshal(config, commonconfig.CustomHooks(hooks...)...); err != nil {
		return errors.WithStack(err)
	}
	return nil
}

// ConfigureLogging sets up timestamped, coloured logging at debug level.
func ConfigureLogging() {
	log.SetFormatter(&log.TextFormatter{ForceColors: true, FullTimestamp: true})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}

// ConfigureCommandLineLogging sets up message-only logging suitable for interactive use.
func ConfigureCommandLineLogging() {
	log.SetFormatter(&logging.CommandLineFormatter{})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.InfoLevel)
}

// ServeMetrics exposes the metrics gathered by gatherer on /metrics until ctx is cancelled.
// Log lines are counted per level for as long as the process runs.
func ServeMetrics(ctx context.Context, port uint16, gatherer prometheus.Gatherer) error {
	if err := logging.AddPrometheusHook(); err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return ServeHttp(ctx, port, mux)
}

// ServeHttp serves handler on port until ctx is cancelled, then shuts the server down.
func ServeHttp(ctx context.Context, port uint16, handler http.Handler) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Debugf("Starting http server listening on %d", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- errors.WithStack(err)
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	log.Debugf("Stopping http server listening on %d", port)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.WithStack(err)
	}
	return nil
}
