// Package telemetry provides opt-in, privacy filtered error reporting to Sentry.
package telemetry

import (
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/tphakala/phishguard/internal/buildinfo"
	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/privacy"
)

// DefaultFlushTimeout bounds Flush at shutdown.
const DefaultFlushTimeout = 2 * time.Second

var initialized atomic.Bool

// allowedExtra are the only extra fields kept on outgoing events.
var allowedExtra = map[string]bool{
	"error_type": true,
	"component":  true,
}

func getLogger() logger.Logger {
	return logger.Global().Module("telemetry")
}

// InitSentry initializes the Sentry SDK when sentry.enabled is set and installs
// the enhanced error reporter. It is a no-op otherwise.
func InitSentry(settings *conf.Settings, build *buildinfo.Context) error {
	if !settings.Sentry.Enabled {
		getLogger().Debug("sentry telemetry disabled")
		return nil
	}

	environment := settings.Sentry.Environment
	if environment == "" {
		environment = "production"
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.Sentry.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      environment,
		ServerName:       "",
		Release:          build.Release(),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return errors.New(err).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	sentry.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetTag("app", "phishguard")
		scope.SetTag("version", build.GetVersion())
		if settings.Main.Name != "" {
			scope.SetTag("instance", settings.Main.Name)
		}
	})
	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	initialized.Store(true)

	getLogger().Info("sentry telemetry enabled",
		logger.String("environment", environment),
		logger.String("release", build.Release()))
	return nil
}

// applyPrivacyFilters strips host identity and scrubs URLs from an event.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Message = privacy.ScrubMessage(event.Message)

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}
	for k := range event.Extra {
		if !allowedExtra[k] {
			delete(event.Extra, k)
		}
	}
	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}
	for i := range event.Exception {
		event.Exception[i].Value = privacy.ScrubMessage(event.Exception[i].Value)
	}
	return event
}

// Flush waits for buffered events to be sent. It does nothing when Sentry was
// never initialized.
func Flush(timeout time.Duration) {
	if !initialized.Load() {
		return
	}
	sentry.Flush(timeout)
}
