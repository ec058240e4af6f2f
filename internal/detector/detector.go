// Package detector combines the local threat store, threat-intel lookups and
// offline heuristics into a single verdict per URL.
package detector

import (
	"context"
	"time"

	"github.com/tphakala/phishguard/internal/datastore"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/normalize"
	"github.com/tphakala/phishguard/internal/observability/metrics"
	"github.com/tphakala/phishguard/internal/phishtank"
	"github.com/tphakala/phishguard/internal/urlhaus"
)

// DefaultWriteThroughTimeout bounds caching a URLhaus hit in the local store.
const DefaultWriteThroughTimeout = 5 * time.Second

// Store is the slice of the threat store the detector uses.
type Store interface {
	Lookup(ctx context.Context, url string) (*datastore.ThreatRecord, error)
	InsertOrBump(ctx context.Context, url, threatType, source string, confidence float64, tags []string) (*datastore.ThreatRecord, error)
	AddReport(ctx context.Context, url, description, userID string) (uint, string, error)
	LogDetection(ctx context.Context, event *datastore.DetectionEvent) error
	Stats(ctx context.Context) (*datastore.Stats, error)
	SearchByDomain(ctx context.Context, domain string, limit int) ([]datastore.ThreatRecord, error)
	SeedDefaults(ctx context.Context) (int, error)
}

// IntelClient answers URL and host reputation queries.
type IntelClient interface {
	Configured() bool
	QueryURL(ctx context.Context, url string) urlhaus.URLResult
	QueryHost(ctx context.Context, host string) urlhaus.HostResult
}

// PhishChecker is a secondary phishing database.
type PhishChecker interface {
	Enabled() bool
	Check(ctx context.Context, url string) phishtank.Result
}

// Notifier receives every finished verdict and decides itself whether to act.
type Notifier interface {
	Notify(ctx context.Context, v Verdict)
}

// Verdict is the result of one Analyze call.
type Verdict struct {
	URL              string      `json:"url"`
	IsSuspicious     bool        `json:"is_suspicious"`
	ThreatLevel      ThreatLevel `json:"threat_level"`
	Confidence       float64     `json:"confidence"`
	DetectionMethods []string    `json:"detection_methods"`
	Warnings         []string    `json:"warnings"`
	Message          string      `json:"message"`
	AnalysisTime     time.Time   `json:"analysis_time"`
	ResponseTimeMs   int64       `json:"response_time_ms"`
}

// Option customizes a Detector.
type Option func(*Detector)

// WithThresholds overrides the heuristic thresholds.
func WithThresholds(t Thresholds) Option {
	return func(d *Detector) { d.thresholds = t }
}

// WithWriteThroughTimeout overrides DefaultWriteThroughTimeout.
func WithWriteThroughTimeout(timeout time.Duration) Option {
	return func(d *Detector) {
		if timeout > 0 {
			d.writeThroughTimeout = timeout
		}
	}
}

// WithMetrics enables verdict metrics.
func WithMetrics(m *metrics.DetectorMetrics) Option {
	return func(d *Detector) { d.metrics = m }
}

// WithNotifiers registers verdict sinks.
func WithNotifiers(n ...Notifier) Option {
	return func(d *Detector) { d.notifiers = append(d.notifiers, n...) }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(d *Detector) { d.now = now }
}

// Detector runs the tier pipeline. It is safe for concurrent use; the only
// shared state is the store and the intel clients' rate limiter.
type Detector struct {
	store     Store
	intel     IntelClient
	phish     PhishChecker
	notifiers []Notifier
	metrics   *metrics.DetectorMetrics

	thresholds          Thresholds
	writeThroughTimeout time.Duration
	now                 func() time.Time

	pipeline []tier
}

// New creates a Detector. intel and phish may be nil, which skips their tiers.
func New(store Store, intel IntelClient, phish PhishChecker, opts ...Option) *Detector {
	d := &Detector{
		store:               store,
		intel:               intel,
		phish:               phish,
		thresholds:          DefaultThresholds(),
		writeThroughTimeout: DefaultWriteThroughTimeout,
		now:                 time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.pipeline = d.tiers()
	return d
}

// GetLogger returns the detector module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("detector")
}

func newVerdict(u string, at time.Time) *Verdict {
	return &Verdict{
		URL:              u,
		ThreatLevel:      LevelSafe,
		DetectionMethods: []string{},
		Warnings:         []string{},
		AnalysisTime:     at,
	}
}

// escalate raises the level; it never lowers it.
func (v *Verdict) escalate(level ThreatLevel) {
	if level.Rank() > v.ThreatLevel.Rank() {
		v.ThreatLevel = level
	}
}

func (v *Verdict) hit(method string, confidence float64, warning string) {
	v.IsSuspicious = true
	v.DetectionMethods = append(v.DetectionMethods, method)
	v.Confidence += confidence
	if warning != "" {
		v.Warnings = append(v.Warnings, warning)
	}
}

// Analyze scores raw and never fails: input that cannot be parsed as a URL
// yields an unknown verdict. Every call records exactly one detection event.
func (d *Detector) Analyze(ctx context.Context, raw string) *Verdict {
	start := d.now()
	u := normalize.URL(raw)
	v := newVerdict(u, start)
	log := GetLogger().WithContext(ctx)

	host := normalize.Host(u)
	if u == "" || host == "" {
		v.ThreatLevel = LevelUnknown
		log.Debug("URL rejected as unparseable", logger.String("input", logger.RedactURL(raw)))
		d.finish(ctx, &analysis{verdict: v, url: u}, start)
		return v
	}

	a := &analysis{verdict: v, url: u, host: host}
	for _, t := range d.pipeline {
		if t.run(ctx, a) {
			log.Debug("terminal tier fired", logger.String("tier", t.name))
			break
		}
	}

	d.finish(ctx, a, start)
	return v
}

// finish clamps and renders the verdict, then records it.
func (d *Detector) finish(ctx context.Context, a *analysis, start time.Time) {
	v := a.verdict
	v.Confidence = max(0, min(v.Confidence, 1))
	v.Message = renderMessage(v.ThreatLevel, v.DetectionMethods, a.urlhausClean)
	elapsed := d.now().Sub(start)
	v.ResponseTimeMs = elapsed.Milliseconds()

	logCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.writeThroughTimeout)
	defer cancel()
	event := &datastore.DetectionEvent{
		OriginalURL:      v.URL,
		ThreatLevel:      string(v.ThreatLevel),
		Confidence:       v.Confidence,
		DetectionMethods: datastore.StringList(v.DetectionMethods),
		IsSuspicious:     v.IsSuspicious,
		ResponseTimeMs:   v.ResponseTimeMs,
	}
	if err := d.store.LogDetection(logCtx, event); err != nil {
		GetLogger().WithContext(ctx).Warn("failed to log detection", logger.Error(err))
		if d.metrics != nil {
			d.metrics.RecordStoreFailOpen("log_detection")
		}
	}

	if d.metrics != nil {
		d.metrics.RecordVerdict(string(v.ThreatLevel), v.DetectionMethods, elapsed.Seconds())
	}

	GetLogger().WithContext(ctx).Info("URL analyzed",
		logger.String("url", logger.RedactURL(v.URL)),
		logger.String("threat_level", string(v.ThreatLevel)),
		logger.Float64("confidence", v.Confidence),
		logger.Strings("methods", v.DetectionMethods),
		logger.Duration("elapsed", elapsed))

	for _, n := range d.notifiers {
		n.Notify(ctx, *v)
	}
}
