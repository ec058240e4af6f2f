package mqtt

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/tphakala/phishguard/internal/detector"
	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/observability/metrics"
)

// PublisherConfig configures a Publisher.
type PublisherConfig struct {
	Topic    string
	Instance string
	// MinLevel is the lowest level published; zero publishes every known level.
	MinLevel detector.ThreatLevel
}

// Publisher publishes verdicts asynchronously. It implements detector.Notifier.
type Publisher struct {
	client   Client
	topic    string
	instance string
	minLevel detector.ThreatLevel
	metrics  *metrics.MQTTMetrics

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPublisher creates a Publisher on top of client. m may be nil.
func NewPublisher(client Client, cfg PublisherConfig, m *metrics.MQTTMetrics) *Publisher {
	if cfg.Topic == "" {
		cfg.Topic = DefaultConfig().Topic
	}
	if cfg.MinLevel.Rank() < detector.LevelSafe.Rank() {
		cfg.MinLevel = detector.LevelSafe
	}
	return &Publisher{
		client:   client,
		topic:    cfg.Topic,
		instance: cfg.Instance,
		minLevel: cfg.MinLevel,
		metrics:  m,
	}
}

// Start connects the underlying client.
func (p *Publisher) Start(ctx context.Context) error {
	if err := p.client.Connect(ctx); err != nil {
		return err
	}
	GetLogger().Info("verdict publishing enabled", logger.String("topic", p.topic))
	return nil
}

// Notify publishes v in the background when it meets the minimum level.
func (p *Publisher) Notify(ctx context.Context, v detector.Verdict) {
	if !v.ThreatLevel.AtLeast(p.minLevel) {
		return
	}

	payload, err := json.Marshal(NewVerdictEvent(&v, p.instance))
	if err != nil {
		GetLogger().Error("failed to encode verdict", logger.Error(err))
		if p.metrics != nil {
			p.metrics.IncrementErrors("encode")
		}
		return
	}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	level := string(v.ThreatLevel)
	pubCtx := context.WithoutCancel(ctx)
	go func() {
		defer p.wg.Done()
		if err := p.client.Publish(pubCtx, p.topic, payload); err != nil {
			GetLogger().WithContext(pubCtx).Warn("failed to publish verdict",
				logger.String("topic", p.topic),
				logger.Error(err))
			return
		}
		if p.metrics != nil {
			p.metrics.RecordPublished(level, len(payload))
		}
	}()
}

// Close waits for in-flight publishes, bounded by ctx, then disconnects.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = errors.New(ctx.Err()).
			Component("mqtt").
			Category(errors.CategoryTimeout).
			Context("operation", "close").
			Build()
	}
	p.client.Disconnect()
	return err
}
