// Package app assembles the PhishGuard services from settings and owns their
// lifecycle. Commands build one App, use its services and Close it.
package app

import (
	"context"
	"slices"
	"time"

	"github.com/tphakala/phishguard/internal/buildinfo"
	"github.com/tphakala/phishguard/internal/conf"
	"github.com/tphakala/phishguard/internal/datastore"
	"github.com/tphakala/phishguard/internal/detector"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/httpclient"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/mqtt"
	"github.com/tphakala/phishguard/internal/notification"
	"github.com/tphakala/phishguard/internal/observability"
	"github.com/tphakala/phishguard/internal/phishtank"
	"github.com/tphakala/phishguard/internal/ratelimit"
	"github.com/tphakala/phishguard/internal/urlhaus"
)

// DefaultCloseTimeout bounds flushing notifiers and closing the store.
const DefaultCloseTimeout = 15 * time.Second

// Options selects optional services.
type Options struct {
	// Notifiers enables the alert dispatcher and MQTT publisher when configured.
	Notifiers bool
}

// App holds the wired services.
type App struct {
	Settings *conf.Settings
	Build    *buildinfo.Context
	Metrics  *observability.Metrics

	Store     datastore.Interface
	Limiter   *ratelimit.Limiter
	URLhaus   *urlhaus.Client
	PhishTank *phishtank.Client
	Detector  *detector.Detector

	httpClients []*httpclient.Client
	closers     []namedCloser
}

type namedCloser struct {
	name  string
	close func(ctx context.Context) error
}

// GetLogger returns the app module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("app")
}

// New opens the store and builds the detector with its intel clients. Optional
// notifiers that fail to start are logged and skipped; they never block analysis.
func New(ctx context.Context, settings *conf.Settings, build *buildinfo.Context, opts Options) (*App, error) {
	m, err := observability.NewMetrics()
	if err != nil {
		return nil, errors.New(err).
			Component("app").
			Category(errors.CategoryConfiguration).
			Context("operation", "metrics_init").
			Build()
	}

	a := &App{Settings: settings, Build: build, Metrics: m}

	store, err := datastore.New(settings)
	if err != nil {
		return nil, err
	}
	store.SetMetrics(m.Datastore)
	if err := store.Open(); err != nil {
		return nil, err
	}
	a.Store = store
	a.addCloser("datastore", func(context.Context) error { return store.Close() })

	a.Limiter = ratelimit.New(settings.RateLimit.Interval)
	a.URLhaus = urlhaus.New(urlhaus.Config{
		AuthKey:      settings.URLhaus.AuthKey,
		BaseURL:      settings.URLhaus.BaseURL,
		Timeout:      settings.URLhaus.Timeout,
		HostCacheTTL: settings.URLhaus.HostCacheTTL,
	},
		urlhaus.WithLimiter(a.Limiter),
		urlhaus.WithHTTPClient(a.newHTTPClient(settings.URLhaus.Timeout)),
		urlhaus.WithStatusRecorder(store),
		urlhaus.WithMetrics(m.Intel))

	if settings.PhishTank.Enabled {
		a.PhishTank = phishtank.New(phishtank.Config{
			Enabled: true,
			URL:     settings.PhishTank.URL,
			AppKey:  settings.PhishTank.AppKey,
			Timeout: settings.PhishTank.Timeout,
		},
			phishtank.WithLimiter(a.Limiter),
			phishtank.WithHTTPClient(a.newHTTPClient(settings.PhishTank.Timeout)),
			phishtank.WithStatusRecorder(store),
			phishtank.WithMetrics(m.Intel))
	}

	detectorOpts := []detector.Option{
		detector.WithThresholds(thresholds(settings.Detector)),
		detector.WithWriteThroughTimeout(settings.Detector.WriteThroughTimeout),
		detector.WithMetrics(m.Detector),
	}
	if opts.Notifiers {
		detectorOpts = append(detectorOpts, detector.WithNotifiers(a.startNotifiers(ctx)...))
	}

	// a nil *phishtank.Client must reach the detector as a nil interface
	var phish detector.PhishChecker
	if a.PhishTank != nil {
		phish = a.PhishTank
	}
	a.Detector = detector.New(store, a.URLhaus, phish, detectorOpts...)

	GetLogger().Info("services initialized",
		logger.String("version", build.GetVersion()),
		logger.String("database", settings.Database.Type),
		logger.Bool("urlhaus_configured", a.URLhaus.Configured()),
		logger.Bool("phishtank_enabled", a.PhishTank != nil),
		logger.Bool("notifiers", opts.Notifiers))
	return a, nil
}

func thresholds(s conf.DetectorSettings) detector.Thresholds {
	t := detector.DefaultThresholds()
	if s.PatternThreshold > 0 {
		t.Pattern = s.PatternThreshold
	}
	if s.StructureThreshold > 0 {
		t.Structure = s.StructureThreshold
	}
	if s.RegionalThreshold > 0 {
		t.Regional = s.RegionalThreshold
	}
	return t
}

func (a *App) newHTTPClient(timeout time.Duration) *httpclient.Client {
	c := httpclient.New(&httpclient.Config{
		DefaultTimeout: timeout,
		UserAgent:      a.Build.UserAgent(),
	})
	a.httpClients = append(a.httpClients, c)
	return c
}

func (a *App) addCloser(name string, fn func(ctx context.Context) error) {
	a.closers = append(a.closers, namedCloser{name: name, close: fn})
}

// startNotifiers builds the configured verdict sinks.
func (a *App) startNotifiers(ctx context.Context) []detector.Notifier {
	var notifiers []detector.Notifier
	log := GetLogger()

	if n := a.Settings.Notification; n.Enabled {
		minLevel, _ := detector.ParseThreatLevel(n.MinLevel)
		d, err := notification.New(notification.Config{
			URLs:     n.URLs,
			MinLevel: minLevel,
			Timeout:  n.Timeout,
			Instance: a.Settings.Main.Name,
		}, notification.WithMetrics(a.Metrics.Notification))
		if err != nil {
			log.Error("alert dispatcher disabled", logger.Error(err))
		} else {
			notifiers = append(notifiers, d)
			a.addCloser("notification", d.Close)
			log.Info("alert dispatcher enabled",
				logger.Int("services", len(n.URLs)),
				logger.String("min_level", string(d.MinLevel())))
		}
	}

	if s := a.Settings.MQTT; s.Enabled {
		cfg := mqtt.DefaultConfig()
		cfg.Broker = s.Broker
		cfg.Username = s.Username
		cfg.Password = s.Password
		cfg.Retain = s.Retain
		if s.Topic != "" {
			cfg.Topic = s.Topic
		}
		if s.ClientID != "" {
			cfg.ClientID = s.ClientID
		}

		client, err := mqtt.NewClient(cfg, a.Metrics.MQTT)
		if err != nil {
			log.Error("mqtt publisher disabled", logger.Error(err))
			return notifiers
		}
		p := mqtt.NewPublisher(client, mqtt.PublisherConfig{
			Topic:    cfg.Topic,
			Instance: a.Settings.Main.Name,
		}, a.Metrics.MQTT)
		if err := p.Start(ctx); err != nil {
			log.Error("mqtt publisher disabled", logger.String("broker", logger.RedactURL(cfg.Broker)), logger.Error(err))
			return notifiers
		}
		notifiers = append(notifiers, p)
		a.addCloser("mqtt", p.Close)
	}
	return notifiers
}

// Close flushes notifiers and closes the store, in reverse start order. It
// returns the first error and logs the rest.
func (a *App) Close(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultCloseTimeout)
	defer cancel()

	var first error
	for _, c := range slices.Backward(a.closers) {
		if err := c.close(ctx); err != nil {
			GetLogger().Warn("close failed", logger.String("service", c.name), logger.Error(err))
			if first == nil {
				first = err
			}
		}
	}
	a.closers = nil
	for _, c := range a.httpClients {
		c.Close()
	}
	a.httpClients = nil
	return first
}

// Run builds an App, calls fn and closes the App. A close error is returned
// only when fn succeeded.
func Run(ctx context.Context, settings *conf.Settings, build *buildinfo.Context, opts Options, fn func(*App) error) (err error) {
	a, err := New(ctx, settings, build, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(context.WithoutCancel(ctx)); err == nil {
			err = cerr
		}
	}()
	return fn(a)
}
