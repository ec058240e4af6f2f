// Package mqtt publishes analysis verdicts to an MQTT broker so home automation
// and SIEM pipelines can react to detections.
package mqtt

import (
	"context"
	"time"

	"github.com/tphakala/phishguard/internal/logger"
)

// Client defines the MQTT operations the publisher needs.
type Client interface {
	// Connect connects to the broker. It fails fast when the broker host does not resolve.
	Connect(ctx context.Context) error

	// Publish sends payload to topic and waits for the broker to accept it.
	Publish(ctx context.Context, topic string, payload []byte) error

	// IsConnected reports whether the client currently holds a broker connection.
	IsConnected() bool

	// Disconnect closes the broker connection.
	Disconnect()
}

// Config holds the MQTT client configuration.
type Config struct {
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // verdicts are published here
	Retain   bool

	ConnectTimeout    time.Duration
	PublishTimeout    time.Duration
	DisconnectTimeout time.Duration
	MaxReconnectDelay time.Duration
}

// DefaultConfig returns a Config with default timeouts.
func DefaultConfig() Config {
	return Config{
		Topic:             "phishguard/detections",
		ClientID:          "phishguard",
		ConnectTimeout:    30 * time.Second,
		PublishTimeout:    10 * time.Second,
		DisconnectTimeout: 250 * time.Millisecond,
		MaxReconnectDelay: 5 * time.Minute,
	}
}

// GetLogger returns the mqtt module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("mqtt")
}
