package mqtt

import (
	"context"
	"net"
	"net/url"
	"sync"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/tphakala/phishguard/internal/errors"
	"github.com/tphakala/phishguard/internal/logger"
	"github.com/tphakala/phishguard/internal/observability/metrics"
)

// client implements Client on top of paho.
type client struct {
	config  Config
	metrics *metrics.MQTTMetrics

	mu       sync.Mutex
	internal paho.Client
}

// NewClient creates an unconnected MQTT client. m may be nil.
func NewClient(cfg Config, m *metrics.MQTTMetrics) (Client, error) {
	u, err := url.Parse(cfg.Broker)
	if err != nil || u.Scheme == "" || u.Hostname() == "" {
		return nil, errors.Newf("invalid MQTT broker URL %q", cfg.Broker).
			Component("mqtt").
			Category(errors.CategoryConfiguration).
			Build()
	}
	defaults := DefaultConfig()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = defaults.ConnectTimeout
	}
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = defaults.PublishTimeout
	}
	if cfg.DisconnectTimeout <= 0 {
		cfg.DisconnectTimeout = defaults.DisconnectTimeout
	}
	if cfg.MaxReconnectDelay <= 0 {
		cfg.MaxReconnectDelay = defaults.MaxReconnectDelay
	}
	if cfg.ClientID == "" {
		cfg.ClientID = defaults.ClientID
	}
	return &client{config: cfg, metrics: m}, nil
}

// Connect resolves the broker host and then connects. paho reconnects on its
// own after a successful first connection.
func (c *client) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	u, _ := url.Parse(c.config.Broker)
	host := u.Hostname()
	if net.ParseIP(host) == nil {
		if _, err := net.DefaultResolver.LookupHost(ctx, host); err != nil {
			c.recordError("connect")
			return errors.New(err).
				Component("mqtt").
				Category(errors.CategoryNetwork).
				Context("broker_host", host).
				Build()
		}
	}

	opts := paho.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(c.config.MaxReconnectDelay)
	opts.SetConnectTimeout(c.config.ConnectTimeout)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)
	opts.SetReconnectingHandler(c.onReconnecting)

	c.internal = paho.NewClient(opts)
	token := c.internal.Connect()

	select {
	case <-token.Done():
	case <-ctx.Done():
		c.recordError("connect")
		return errors.New(ctx.Err()).
			Component("mqtt").
			Category(errors.CategoryTimeout).
			Context("operation", "connect").
			Build()
	}
	if err := token.Error(); err != nil {
		c.recordError("connect")
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("operation", "connect").
			Build()
	}
	return nil
}

// Publish sends payload with QoS 1 and waits for the broker acknowledgement.
func (c *client) Publish(ctx context.Context, topic string, payload []byte) error {
	c.mu.Lock()
	if c.internal == nil || !c.internal.IsConnectionOpen() {
		c.mu.Unlock()
		c.recordError("publish")
		return errors.Newf("not connected to MQTT broker").
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Build()
	}
	token := c.internal.Publish(topic, 1, c.config.Retain, payload)
	c.mu.Unlock()

	if c.metrics != nil {
		timer := c.metrics.StartPublishTimer()
		defer timer.ObserveDuration()
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.PublishTimeout)
	defer cancel()
	select {
	case <-token.Done():
	case <-ctx.Done():
		c.recordError("timeout")
		return errors.New(ctx.Err()).
			Component("mqtt").
			Category(errors.CategoryTimeout).
			Context("topic", topic).
			Build()
	}
	if err := token.Error(); err != nil {
		c.recordError("publish")
		return errors.New(err).
			Component("mqtt").
			Category(errors.CategoryNetwork).
			Context("topic", topic).
			Build()
	}
	return nil
}

// IsConnected reports whether paho holds an active connection.
func (c *client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.internal != nil && c.internal.IsConnectionOpen()
}

// Disconnect closes the connection and stops reconnect attempts.
func (c *client) Disconnect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.internal == nil {
		return
	}
	c.internal.Disconnect(uint(c.config.DisconnectTimeout.Milliseconds()))
	c.internal = nil
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(false)
	}
}

func (c *client) onConnect(paho.Client) {
	GetLogger().Info("connected to MQTT broker", logger.String("broker", logger.RedactURL(c.config.Broker)))
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(true)
	}
}

func (c *client) onConnectionLost(_ paho.Client, err error) {
	GetLogger().Warn("MQTT connection lost", logger.Error(err))
	c.recordError("connection_lost")
	if c.metrics != nil {
		c.metrics.UpdateConnectionStatus(false)
	}
}

func (c *client) onReconnecting(paho.Client, *paho.ClientOptions) {
	GetLogger().Debug("reconnecting to MQTT broker")
	if c.metrics != nil {
		c.metrics.IncrementReconnectAttempts()
	}
}

func (c *client) recordError(stage string) {
	if c.metrics != nil {
		c.metrics.IncrementErrors(stage)
	}
}

var _ Client = (*client)(nil)
