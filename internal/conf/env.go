// env.go - Environment variable configuration and validation for PhishGuard
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVars   []string           // Environment variable names, first set one wins
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		// URLHAUS_AUTH_KEY predates the PHISHGUARD_ prefix and is still honoured
		{"urlhaus.authkey", []string{"PHISHGUARD_URLHAUS_AUTHKEY", "URLHAUS_AUTH_KEY"}, nil},
		{"urlhaus.baseurl", []string{"PHISHGUARD_URLHAUS_BASEURL"}, validateEnvURL},
		{"urlhaus.timeout", []string{"PHISHGUARD_URLHAUS_TIMEOUT"}, validateEnvDuration},

		{"phishtank.enabled", []string{"PHISHGUARD_PHISHTANK_ENABLED"}, validateEnvBool},
		{"phishtank.appkey", []string{"PHISHGUARD_PHISHTANK_APPKEY", "PHISHTANK_APP_KEY"}, nil},

		{"ratelimit.interval", []string{"PHISHGUARD_RATELIMIT_INTERVAL"}, validateEnvDuration},

		{"database.type", []string{"PHISHGUARD_DATABASE_TYPE"}, validateEnvDatabaseType},
		{"database.sqlite.path", []string{"PHISHGUARD_DATABASE_PATH"}, nil},
		{"database.mysql.host", []string{"PHISHGUARD_MYSQL_HOST"}, nil},
		{"database.mysql.port", []string{"PHISHGUARD_MYSQL_PORT"}, validateEnvPort},
		{"database.mysql.username", []string{"PHISHGUARD_MYSQL_USERNAME"}, nil},
		{"database.mysql.password", []string{"PHISHGUARD_MYSQL_PASSWORD"}, nil},
		{"database.mysql.database", []string{"PHISHGUARD_MYSQL_DATABASE"}, nil},

		{"webserver.listen", []string{"PHISHGUARD_LISTEN"}, nil},
		{"webserver.apitoken", []string{"PHISHGUARD_API_TOKEN"}, nil},

		{"logging.default_level", []string{"PHISHGUARD_LOG_LEVEL"}, validateEnvLogLevel},
		{"retention.days", []string{"PHISHGUARD_RETENTION_DAYS"}, validateEnvPositiveInt},

		{"mqtt.broker", []string{"PHISHGUARD_MQTT_BROKER"}, validateEnvURL},
		{"sentry.dsn", []string{"PHISHGUARD_SENTRY_DSN", "SENTRY_DSN"}, nil},
	}
}

// bindEnvVars sets up environment variable bindings with validation (internal)
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		args := append([]string{binding.ConfigKey}, binding.EnvVars...)
		if err := v.BindEnv(args...); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.ConfigKey, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		for _, envVar := range binding.EnvVars {
			if envValue := os.Getenv(envVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value '%s': %v", envVar, envValue, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

// Environment variable validation functions

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid boolean value: %w", err)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d < 0 {
		return fmt.Errorf("duration must not be negative, got %s", d)
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include scheme and host, got %s", value)
	}
	return nil
}

func validateEnvDatabaseType(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sqlite", "mysql":
		return nil
	default:
		return fmt.Errorf("database type must be sqlite or mysql, got %s", value)
	}
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("invalid log level %s", value)
	}
}

func validateEnvPositiveInt(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("invalid integer: %w", err)
	}
	if n < 1 {
		return fmt.Errorf("value must be positive, got %d", n)
	}
	return nil
}

// configureEnvironmentVariables sets up environment variable support for Viper
func configureEnvironmentVariables(v *viper.Viper) error {
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return bindEnvVars(v)
}
