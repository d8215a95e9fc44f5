// Package config holds cabin-monitor settings: defaults, environment
// overrides for credentials, and validation.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sweeney/cabin-monitor/internal/logic"
)

// EnvPrefix is the environment variable prefix used by LoadFromEnv.
const EnvPrefix = "CABIN"

// Detection sources.
const (
	SourceMQTT = "mqtt"
	SourceHTTP = "http"
	SourceNone = "none"
)

// SensorConfig configures the SCD30.
type SensorConfig struct {
	I2CDevice       string
	ReadyChip       string
	ReadyLine       int // -1 polls data-ready over I2C instead
	MeasureInterval time.Duration
	AmbientPressure uint16 // mbar, 0 disables compensation
}

// VisionConfig configures the detection feed.
type VisionConfig struct {
	Source        string // mqtt, http or none
	Topic         string
	URL           string
	Path          string
	MinConfidence float64
	MaxAge        time.Duration
	PersonLabels  []string
	AnimalLabels  []string
}

// MQTTConfig configures the broker connection; an empty Broker disables MQTT.
type MQTTConfig struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	BufferSize int
	WSBroker   string
}

// InfluxConfig configures the InfluxDB sink; an empty URL disables it.
type InfluxConfig struct {
	URL      string
	Database string
	Username string
	Password string
}

// RedisConfig configures the Redis stream sink; an empty Addr disables it.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64
}

// TwilioConfig configures SMS notification.
type TwilioConfig struct {
	BaseURL    string
	AccountSID string
	AuthToken  string
	From       string
	To         string
}

// Config is the complete daemon configuration.
type Config struct {
	Interval          time.Duration
	IOTimeout         time.Duration
	WindowSize        int
	Thresholds        logic.Thresholds
	Heartbeat         time.Duration
	BootstrapAttempts int
	BootstrapWait     time.Duration
	HTTPAddr          string
	LogLevel          string
	LogFormat         string
	DryRun            bool

	Sensor SensorConfig
	Vision VisionConfig
	MQTT   MQTTConfig
	Influx InfluxConfig
	Redis  RedisConfig
	Twilio TwilioConfig
}

// Default returns the configuration used when no flags or environment are set.
func Default() Config {
	return Config{
		Interval:          time.Second,
		IOTimeout:         2 * time.Second,
		WindowSize:        logic.DefaultWindowSize,
		Thresholds:        logic.DefaultThresholds(),
		Heartbeat:         15 * time.Minute,
		BootstrapAttempts: 30,
		BootstrapWait:     2 * time.Second,
		HTTPAddr:          ":8080",
		LogLevel:          "info",
		LogFormat:         "json",
		Sensor: SensorConfig{
			I2CDevice:       "/dev/i2c-1",
			ReadyChip:       "gpiochip0",
			ReadyLine:       -1,
			MeasureInterval: 2 * time.Second,
		},
		Vision: VisionConfig{
			Source:        SourceMQTT,
			Topic:         "vehicle/cabin/detections",
			Path:          "/api/detections",
			MinConfidence: 0.5,
			MaxAge:        5 * time.Second,
			PersonLabels:  append([]string(nil), logic.DefaultPersonLabels...),
			AnimalLabels:  append([]string(nil), logic.DefaultAnimalLabels...),
		},
		MQTT: MQTTConfig{
			Broker:     "tcp://localhost:1883",
			BufferSize: 256,
		},
		Influx: InfluxConfig{
			URL:      "http://localhost:8086",
			Database: "home",
		},
		Redis: RedisConfig{
			Stream: "cabin:telemetry",
			MaxLen: 10000,
		},
		Twilio: TwilioConfig{
			BaseURL: "https://api.twilio.com",
		},
	}
}

// LoadFromEnv overrides connection settings and credentials from
// environment variables named prefix_SECTION_KEY, e.g. CABIN_TWILIO_AUTH_TOKEN.
func (c *Config) LoadFromEnv(prefix string) error {
	var errs []error
	if v := os.Getenv(prefix + "_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(prefix + "_LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	c.MQTT.LoadFromEnv(prefix + "_MQTT")
	c.Influx.LoadFromEnv(prefix + "_INFLUX")
	if err := c.Redis.LoadFromEnv(prefix + "_REDIS"); err != nil {
		errs = append(errs, err)
	}
	c.Twilio.LoadFromEnv(prefix + "_TWILIO")
	return errors.Join(errs...)
}

// LoadFromEnv reads prefix_BROKER, prefix_CLIENT_ID, prefix_USERNAME and prefix_PASSWORD.
func (c *MQTTConfig) LoadFromEnv(prefix string) {
	if v := os.Getenv(prefix + "_BROKER"); v != "" {
		c.Broker = v
	}
	if v := os.Getenv(prefix + "_CLIENT_ID"); v != "" {
		c.ClientID = v
	}
	if v := os.Getenv(prefix + "_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv(prefix + "_PASSWORD"); v != "" {
		c.Password = v
	}
}

// LoadFromEnv reads prefix_URL, prefix_DATABASE, prefix_USERNAME and prefix_PASSWORD.
func (c *InfluxConfig) LoadFromEnv(prefix string) {
	if v := os.Getenv(prefix + "_URL"); v != "" {
		c.URL = v
	}
	if v := os.Getenv(prefix + "_DATABASE"); v != "" {
		c.Database = v
	}
	if v := os.Getenv(prefix + "_USERNAME"); v != "" {
		c.Username = v
	}
	if v := os.Getenv(prefix + "_PASSWORD"); v != "" {
		c.Password = v
	}
}

// LoadFromEnv reads prefix_ADDR, prefix_PASSWORD and prefix_DB.
func (c *RedisConfig) LoadFromEnv(prefix string) error {
	if v := os.Getenv(prefix + "_ADDR"); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(prefix + "_PASSWORD"); v != "" {
		c.Password = v
	}
	if v := os.Getenv(prefix + "_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%s_DB: %w", prefix, err)
		}
		c.DB = db
	}
	return nil
}

// LoadFromEnv reads prefix_ACCOUNT_SID, prefix_AUTH_TOKEN, prefix_FROM and prefix_TO.
func (c *TwilioConfig) LoadFromEnv(prefix string) {
	if v := os.Getenv(prefix + "_ACCOUNT_SID"); v != "" {
		c.AccountSID = v
	}
	if v := os.Getenv(prefix + "_AUTH_TOKEN"); v != "" {
		c.AuthToken = v
	}
	if v := os.Getenv(prefix + "_FROM"); v != "" {
		c.From = v
	}
	if v := os.Getenv(prefix + "_TO"); v != "" {
		c.To = strings.TrimSpace(v)
	}
}

// Complete reports whether SMS can be sent.
func (c TwilioConfig) Complete() bool {
	return c.AccountSID != "" && c.AuthToken != "" && c.From != "" && c.To != ""
}

// Sinks lists the enabled telemetry sinks.
func (c Config) Sinks() []string {
	var sinks []string
	if c.Influx.URL != "" {
		sinks = append(sinks, "influx")
	}
	if c.MQTT.Broker != "" {
		sinks = append(sinks, "mqtt")
	}
	if c.Redis.Addr != "" {
		sinks = append(sinks, "redis")
	}
	return sinks
}

// Notifier names the notifier that will be used.
func (c Config) Notifier() string {
	if c.DryRun {
		return "log"
	}
	return "twilio"
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Interval <= 0 {
		errs = append(errs, errors.New("interval must be positive"))
	}
	if c.IOTimeout <= 0 {
		errs = append(errs, errors.New("io-timeout must be positive"))
	}
	if c.WindowSize < 1 {
		errs = append(errs, errors.New("window must be at least 1"))
	}
	if c.Thresholds.CO2Max <= 0 {
		errs = append(errs, errors.New("co2-max must be positive"))
	}
	if c.Thresholds.MinInterval < 0 {
		errs = append(errs, errors.New("min-alert-interval must not be negative"))
	}
	if c.Heartbeat < 0 {
		errs = append(errs, errors.New("heartbeat must not be negative"))
	}
	if c.BootstrapAttempts < 1 {
		errs = append(errs, errors.New("bootstrap-attempts must be at least 1"))
	}

	switch c.Vision.Source {
	case SourceMQTT:
		if c.MQTT.Broker == "" {
			errs = append(errs, errors.New("detections from mqtt require --broker"))
		}
	case SourceHTTP:
		if c.Vision.URL == "" {
			errs = append(errs, errors.New("detections from http require --detections-url"))
		}
	case SourceNone:
	default:
		errs = append(errs, fmt.Errorf("unknown detection source %q", c.Vision.Source))
	}
	if c.Vision.MinConfidence < 0 || c.Vision.MinConfidence > 1 {
		errs = append(errs, errors.New("min-confidence must be within [0, 1]"))
	}

	if !c.DryRun && !c.Twilio.Complete() {
		errs = append(errs, fmt.Errorf("sms requires %s_TWILIO_ACCOUNT_SID, _AUTH_TOKEN, _FROM and _TO (or --dry-run)", EnvPrefix))
	}
	return errors.Join(errs...)
}
