// conf/validate.go

package conf

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// alertLevels are the verdict levels an alert threshold may name
var alertLevels = []string{"medium", "high", "critical"}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) error{
		validateDatabaseSettings,
		validateURLhausSettings,
		validatePhishTankSettings,
		validateDetectorSettings,
		validateRuntimeSettings,
		validateNotificationSettings,
		validateMQTTSettings,
		validateSentrySettings,
	}
	for _, validate := range validators {
		if err := validate(settings); err != nil {
			ve.Errors = append(ve.Errors, err.Error())
		}
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateDatabaseSettings(s *Settings) error {
	switch s.Database.Type {
	case "sqlite":
		if s.Database.SQLite.Path == "" {
			return errors.New("database.sqlite.path must be set")
		}
	case "mysql":
		if s.Database.MySQL.Host == "" || s.Database.MySQL.Database == "" {
			return errors.New("database.mysql.host and database.mysql.database must be set")
		}
	default:
		return fmt.Errorf("database.type must be sqlite or mysql, got %q", s.Database.Type)
	}
	return nil
}

func validateURLhausSettings(s *Settings) error {
	if err := validateAbsoluteURL("urlhaus.baseurl", s.URLhaus.BaseURL); err != nil {
		return err
	}
	if s.URLhaus.Timeout <= 0 {
		return errors.New("urlhaus.timeout must be positive")
	}
	if s.URLhaus.HostCacheTTL < 0 {
		return errors.New("urlhaus.hostcachettl must not be negative")
	}
	return nil
}

func validatePhishTankSettings(s *Settings) error {
	if !s.PhishTank.Enabled {
		return nil
	}
	if err := validateAbsoluteURL("phishtank.url", s.PhishTank.URL); err != nil {
		return err
	}
	if s.PhishTank.Timeout <= 0 {
		return errors.New("phishtank.timeout must be positive")
	}
	return nil
}

func validateDetectorSettings(s *Settings) error {
	thresholds := map[string]float64{
		"detector.patternthreshold":   s.Detector.PatternThreshold,
		"detector.structurethreshold": s.Detector.StructureThreshold,
		"detector.regionalthreshold":  s.Detector.RegionalThreshold,
	}
	for key, value := range thresholds {
		if value < 0 || value > 1 {
			return fmt.Errorf("%s must be between 0 and 1, got %g", key, value)
		}
	}
	if s.Detector.WriteThroughTimeout <= 0 {
		return errors.New("detector.writethroughtimeout must be positive")
	}
	return nil
}

func validateRuntimeSettings(s *Settings) error {
	if s.RateLimit.Interval < 0 {
		return errors.New("ratelimit.interval must not be negative")
	}
	if s.Retention.Days < 1 || s.Retention.Days > MaxRetentionDays {
		return fmt.Errorf("retention.days must be between 1 and %d, got %d", MaxRetentionDays, s.Retention.Days)
	}
	if s.WebServer.Listen == "" {
		return errors.New("webserver.listen must be set")
	}
	return nil
}

func validateNotificationSettings(s *Settings) error {
	if !s.Notification.Enabled {
		return nil
	}
	if len(s.Notification.URLs) == 0 {
		return errors.New("notification.urls must contain at least one service URL when notifications are enabled")
	}
	if !slices.Contains(alertLevels, s.Notification.MinLevel) {
		return fmt.Errorf("notification.minlevel must be one of %v, got %q", alertLevels, s.Notification.MinLevel)
	}
	return nil
}

func validateMQTTSettings(s *Settings) error {
	if !s.MQTT.Enabled {
		return nil
	}
	if err := validateAbsoluteURL("mqtt.broker", s.MQTT.Broker); err != nil {
		return err
	}
	if s.MQTT.Topic == "" {
		return errors.New("mqtt.topic must be set when mqtt is enabled")
	}
	return nil
}

func validateSentrySettings(s *Settings) error {
	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		return errors.New("sentry.dsn must be set when sentry is enabled")
	}
	return nil
}

func validateAbsoluteURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", key, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%s must include scheme and host, got %q", key, raw)
	}
	return nil
}
