// Package notification sends threat alerts to chat and push services through
// shoutrrr. Alerts are delivered asynchronously so analysis latency is unaffected.
package notification

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	shoutrrr "github.com/nicholas-fedor/shoutrrr"
	stypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/tphakala/phishguard/internal/detector"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/observability/metrics"
	"github.com/tphakala/phishguard/internal/privacy"
)

const (
	providerName = "shoutrrr"

	// DefaultTimeout bounds a single delivery.
	DefaultTimeout = 10 * time.Second
)

// Sender delivers one message to every configured service. The shoutrrr
// router satisfies it.
type Sender interface {
	Send(message string, params *stypes.Params) []error
}

// Config configures a Dispatcher.
type Config struct {
	URLs     []string
	MinLevel detector.ThreatLevel
	Timeout  time.Duration
	Instance string // prefixed to alert titles
}

// Option customizes a Dispatcher.
type Option func(*Dispatcher)

// WithMetrics enables delivery metrics.
func WithMetrics(m *metrics.NotificationMetrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithCircuitBreaker overrides the default breaker settings.
func WithCircuitBreaker(cfg CircuitBreakerConfig) Option {
	return func(d *Dispatcher) { d.breaker = NewCircuitBreaker(cfg, providerName) }
}

// Dispatcher alerts on verdicts at or above a minimum threat level.
type Dispatcher struct {
	sender   Sender
	minLevel detector.ThreatLevel
	timeout  time.Duration
	instance string
	breaker  *CircuitBreaker
	metrics  *metrics.NotificationMetrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// GetLogger returns the notification module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("notification")
}

// New creates a Dispatcher backed by shoutrrr service URLs.
func New(cfg Config, opts ...Option) (*Dispatcher, error) {
	if len(cfg.URLs) == 0 {
		return nil, errors.Newf("at least one notification URL is required").
			Component("notification").
			Category(errors.CategoryConfiguration).
			Build()
	}

	router, err := shoutrrr.CreateSender(cfg.URLs...)
	if err != nil {
		return nil, errors.New(privacy.WrapError(err)).
			Component("notification").
			Category(errors.CategoryConfiguration).
			Context("url_count", len(cfg.URLs)).
			Build()
	}
	router.Timeout = timeoutOrDefault(cfg.Timeout)
	router.SetLogger(log.New(io.Discard, "", 0))

	return NewWithSender(router, cfg, opts...), nil
}

// NewWithSender creates a Dispatcher that delivers through sender.
func NewWithSender(sender Sender, cfg Config, opts ...Option) *Dispatcher {
	minLevel := cfg.MinLevel
	if minLevel.Rank() <= detector.LevelSafe.Rank() {
		minLevel = detector.LevelCritical
	}
	d := &Dispatcher{
		sender:   sender,
		minLevel: minLevel,
		timeout:  timeoutOrDefault(cfg.Timeout),
		instance: cfg.Instance,
		breaker:  NewCircuitBreaker(DefaultCircuitBreakerConfig(), providerName),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func timeoutOrDefault(t time.Duration) time.Duration {
	if t <= 0 {
		return DefaultTimeout
	}
	return t
}

// MinLevel returns the lowest threat level that raises an alert.
func (d *Dispatcher) MinLevel() detector.ThreatLevel {
	return d.minLevel
}

// Notify queues an alert for v when it meets the minimum level. It never blocks
// on delivery.
func (d *Dispatcher) Notify(ctx context.Context, v detector.Verdict) {
	if !v.ThreatLevel.AtLeast(d.minLevel) {
		if d.metrics != nil {
			d.metrics.RecordFilterRejection(string(v.ThreatLevel))
		}
		return
	}

	d.mu.RLock()
	if d.closed {
		d.mu.RUnlock()
		GetLogger().Debug("dispatcher closed, alert dropped", logger.String("threat_level", string(v.ThreatLevel)))
		return
	}
	d.wg.Add(1)
	d.mu.RUnlock()

	title, body := formatAlert(d.instance, &v)
	deliverCtx := context.WithoutCancel(ctx)
	if d.metrics != nil {
		d.metrics.IncrementDispatchTotal()
		d.metrics.AddDispatchActive(1)
	}

	go func() {
		defer d.wg.Done()
		if d.metrics != nil {
			defer d.metrics.AddDispatchActive(-1)
		}
		d.deliver(deliverCtx, title, body)
	}()
}

func (d *Dispatcher) deliver(ctx context.Context, title, body string) {
	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	start := time.Now()
	err := d.breaker.Call(ctx, func(context.Context) error {
		return d.send(title, body)
	})
	elapsed := time.Since(start)

	status := metrics.StatusSuccess
	switch {
	case errors.Is(err, ErrCircuitOpen):
		status = "circuit_open"
	case err != nil && elapsed >= d.timeout:
		status = metrics.StatusTimeout
		if d.metrics != nil {
			d.metrics.RecordTimeout(providerName)
		}
	case err != nil:
		status = metrics.StatusError
	}
	if d.metrics != nil {
		d.metrics.RecordDelivery(providerName, status, elapsed)
	}

	if err != nil {
		GetLogger().WithContext(ctx).Warn("alert delivery failed",
			logger.String("status", status),
			logger.Error(err),
			logger.Duration("elapsed", elapsed))
		return
	}
	GetLogger().WithContext(ctx).Debug("alert delivered", logger.Duration("elapsed", elapsed))
}

// send delivers through the router, which enforces its own timeout.
func (d *Dispatcher) send(title, body string) error {
	params := stypes.Params{}
	params.SetTitle(title)
	for _, err := range d.sender.Send(body, &params) {
		if err != nil {
			return errors.New(privacy.WrapError(err)).
				Component("notification").
				Category(errors.CategoryNotification).
				Build()
		}
	}
	return nil
}

// Close stops accepting alerts and waits for in-flight deliveries or ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return errors.New(ctx.Err()).
			Component("notification").
			Category(errors.CategoryTimeout).
			Context("operation", "close").
			Build()
	}
}
