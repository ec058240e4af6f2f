// conf/defaults.go default values for settings
package conf

import (
	"time"

	"github.com/spf13/viper"

	"github.com/tphakala/phishguard/internal/logger"
)

// Sets default values for the configuration.
func setDefaultConfig(v *viper.Viper) {
	v.SetDefault("debug", false)
	v.SetDefault("main.name", "PhishGuard")

	v.SetDefault("logging.default_level", logger.DefaultLogLevel)
	v.SetDefault("logging.timezone", "Local")
	v.SetDefault("logging.console.enabled", logger.DefaultConsoleEnabled)
	v.SetDefault("logging.console.level", logger.DefaultLogLevel)
	v.SetDefault("logging.file_output.enabled", logger.DefaultFileEnabled)
	v.SetDefault("logging.file_output.path", logger.DefaultLogPath)
	v.SetDefault("logging.file_output.level", logger.DefaultLogLevel)

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.sqlite.path", "phishguard.db")
	v.SetDefault("database.mysql.host", "localhost")
	v.SetDefault("database.mysql.port", "3306")
	v.SetDefault("database.mysql.database", "phishguard")

	v.SetDefault("urlhaus.authkey", "")
	v.SetDefault("urlhaus.baseurl", "https://urlhaus-api.abuse.ch/v1")
	v.SetDefault("urlhaus.timeout", 15*time.Second)
	v.SetDefault("urlhaus.hostcachettl", 10*time.Minute)

	v.SetDefault("phishtank.enabled", true)
	v.SetDefault("phishtank.url", "https://checkurl.phishtank.com/checkurl/")
	v.SetDefault("phishtank.appkey", "")
	v.SetDefault("phishtank.timeout", 10*time.Second)

	v.SetDefault("ratelimit.interval", time.Second)

	v.SetDefault("detector.patternthreshold", 0.3)
	v.SetDefault("detector.structurethreshold", 0.6)
	v.SetDefault("detector.regionalthreshold", 0.7)
	v.SetDefault("detector.writethroughtimeout", 5*time.Second)

	v.SetDefault("retention.days", 30)

	v.SetDefault("webserver.listen", ":8080")
	v.SetDefault("webserver.apitoken", "")

	v.SetDefault("notification.enabled", false)
	v.SetDefault("notification.urls", []string{})
	v.SetDefault("notification.minlevel", "critical")
	v.SetDefault("notification.timeout", 10*time.Second)

	v.SetDefault("mqtt.enabled", false)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.topic", "phishguard/detections")
	v.SetDefault("mqtt.clientid", "phishguard")
	v.SetDefault("mqtt.retain", false)

	v.SetDefault("sentry.enabled", false)
	v.SetDefault("sentry.dsn", "")
	v.SetDefault("sentry.environment", "production")
}
