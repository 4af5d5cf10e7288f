package logging

import (
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/weaveworks/promrus"
)

var (
	hookOnce sync.Once
	hookErr  error
)

// AddPrometheusHook counts log messages per level into the default prometheus registry.
// Safe to call more than once; the hook is only installed on the first call.
func AddPrometheusHook() error {
	hookOnce.Do(func() {
		hook, err := promrus.NewPrometheusHook()
		if err != nil {
			hookErr = errors.WithStack(err)
			return
		}
		log.AddHook(hook)
	})
	return hookErr
}
