// Package monitoring reports unexpected failures to Sentry when a DSN is configured.
package monitoring

import (
	"fmt"
	"time"

	"NawaxRadio/logger"

	"github.com/getsentry/sentry-go"
)

// Reporter sends errors to Sentry. The zero value and a nil *Reporter are disabled.
type Reporter struct {
	enabled bool
}

// Init configures the Sentry client. An empty dsn returns a disabled reporter.
func Init(dsn, environment, release string) (*Reporter, error) {
	if dsn == "" {
		return &Reporter{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	})
	if err != nil {
		return &Reporter{}, fmt.Errorf("sentry init: %w", err)
	}
	logger.Info("sentry reporting enabled", logger.String("environment", environment))
	return &Reporter{enabled: true}, nil
}

// Enabled reports whether events are sent.
func (r *Reporter) Enabled() bool {
	return r != nil && r.enabled
}

// CaptureException sends err with the given tags.
func (r *Reporter) CaptureException(err error, tags map[string]string) {
	if !r.Enabled() || err == nil {
		return
	}

	// clone so concurrent requests do not share a scope
	hub := sentry.CurrentHub().Clone()
	hub.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}

// Flush waits for buffered events to be delivered.
func (r *Reporter) Flush(timeout time.Duration) {
	if r.Enabled() {
		sentry.Flush(timeout)
	}
}
