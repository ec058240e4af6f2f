// config.go: settings struct for PhishGuard and the functions that load it.
package conf

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/phishguard/internal/logger"
)

//go:embed config.yaml
var configFiles embed.FS

// DatabaseSettings selects and configures the threat store engine
type DatabaseSettings struct {
	Type   string // sqlite or mysql
	SQLite SQLiteSettings
	MySQL  MySQLSettings
}

// SQLiteSettings contains settings for the SQLite database
type SQLiteSettings struct {
	Path string // path to the database file, ":memory:" for an ephemeral store
}

// MySQLSettings contains settings for the MySQL database
type MySQLSettings struct {
	Username string
	Password string
	Database string
	Host     string
	Port     string
}

// URLhausSettings configures the URLhaus threat-intel client
type URLhausSettings struct {
	AuthKey      string        // abuse.ch Auth-Key, lookups are skipped when empty
	BaseURL      string        // API root, https://urlhaus-api.abuse.ch/v1
	Timeout      time.Duration // per request timeout
	HostCacheTTL time.Duration // how long host verdicts are cached
}

// PhishTankSettings configures the secondary phishing feed
type PhishTankSettings struct {
	Enabled bool
	URL     string
	AppKey  string // optional application key
	Timeout time.Duration
}

// RateLimitSettings controls outbound threat-intel traffic
type RateLimitSettings struct {
	Interval time.Duration // minimum spacing between outbound intel calls
}

// DetectorSettings holds tunable heuristic thresholds
type DetectorSettings struct {
	PatternThreshold    float64
	StructureThreshold  float64
	RegionalThreshold   float64
	WriteThroughTimeout time.Duration // budget for caching a URLhaus hit locally
}

// MaxRetentionDays caps retention.days and prune requests at 100 years.
const MaxRetentionDays = 36500

// RetentionSettings controls pruning of detection history
type RetentionSettings struct {
	Days int // 1..MaxRetentionDays
}

// WebServerSettings configures the HTTP API
type WebServerSettings struct {
	Listen   string // e.g. ":8080"
	APIToken string // bearer token guarding admin routes, empty disables the guard
}

// NotificationSettings configures alert delivery through shoutrrr
type NotificationSettings struct {
	Enabled  bool
	URLs     []string // shoutrrr service URLs
	MinLevel string   // lowest threat level that triggers an alert
	Timeout  time.Duration
}

// MQTTSettings configures verdict publishing
type MQTTSettings struct {
	Enabled  bool
	Broker   string // tcp://host:1883
	Topic    string
	ClientID string
	Username string
	Password string
	Retain   bool
}

// SentrySettings configures error telemetry
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
}

// Settings contains all configuration options for PhishGuard
type Settings struct {
	Debug bool

	Main struct {
		Name string // instance name, used in alerts and MQTT client ids
	}

	Logging      logger.LoggingConfig
	Database     DatabaseSettings
	URLhaus      URLhausSettings
	PhishTank    PhishTankSettings
	RateLimit    RateLimitSettings
	Detector     DetectorSettings
	Retention    RetentionSettings
	WebServer    WebServerSettings
	Notification NotificationSettings
	MQTT         MQTTSettings
	Sentry       SentrySettings
}

var settingsMutex sync.Mutex

// Load reads the configuration file and environment variables into a Settings value.
// An empty configPath searches the default locations and writes a default file if none exists.
func Load(configPath string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings, err := load(viper.GetViper(), configPath)
	if err != nil {
		return nil, err
	}

	return settings, nil
}

func load(v *viper.Viper, configPath string) (*Settings, error) {
	if err := initViper(v, configPath); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	return settings, nil
}

// initViper sets defaults, binds the environment and reads the configuration file.
func initViper(v *viper.Viper, configPath string) error {
	setDefaultConfig(v)

	if err := configureEnvironmentVariables(v); err != nil {
		GetLogger().Warn("environment configuration problems", logger.Error(err))
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading config file %s: %w", configPath, err)
		}
		return nil
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		v.AddConfigPath(path)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(v, configPaths)
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the embedded config.yaml to the first config path
func createDefaultConfig(v *viper.Viper, configPaths []string) error {
	configPath := filepath.Join(configPaths[0], "config.yaml")

	if err := os.MkdirAll(filepath.Dir(configPath), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	defaultConfig, err := getDefaultConfig()
	if err != nil {
		return err
	}
	if err := os.WriteFile(configPath, defaultConfig, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return v.ReadInConfig()
}

// getDefaultConfig reads the default configuration from the embedded config.yaml file.
func getDefaultConfig() ([]byte, error) {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		return nil, fmt.Errorf("error reading embedded config: %w", err)
	}
	return data, nil
}
