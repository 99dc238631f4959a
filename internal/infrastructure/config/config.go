package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage driver names accepted in storage.driver.
const (
	StorageDriverNone     = ""
	StorageDriverSQLite   = "sqlite"
	StorageDriverPostgres = "postgres"
)

// Poll backoff policies accepted in poll.backoff.
const (
	BackoffFixed       = "fixed"
	BackoffExponential = "exponential"
)

// Config is the root configuration structure for neobridge.
// Values come from defaults, an optional YAML file, environment variables
// and finally command-line flags (applied by the caller before Validate).
type Config struct {
	Hub      HubConfig      `yaml:"hub"`
	MQTT     MQTTConfig     `yaml:"mqtt"`
	Storage  StorageConfig  `yaml:"storage"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	Poll     PollConfig     `yaml:"poll"`
	Command  CommandConfig  `yaml:"command"`
	API      APIConfig      `yaml:"api"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// HubConfig contains the thermostat hub connection settings.
type HubConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`

	// Timeout bounds a single request/response exchange.
	Timeout time.Duration `yaml:"timeout"`

	// Retries is the number of attempts per request (1 = no retry).
	Retries int `yaml:"retries"`

	// RetryDelay is the base delay between attempts.
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Retain    bool                `yaml:"retain"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig caps the delay between reconnect attempts (seconds).
type MQTTReconnectConfig struct {
	MaxDelay int `yaml:"max_delay"`
}

// StorageConfig selects and configures the optional readings sink.
// An empty Driver disables persistence.
type StorageConfig struct {
	Driver string `yaml:"driver"`

	// SQLite
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`

	// PostgreSQL
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`

	// CommitTimeout bounds the final commit of a cycle.
	CommitTimeout time.Duration `yaml:"commit_timeout"`
}

// Enabled reports whether a storage sink is configured.
func (s StorageConfig) Enabled() bool {
	return s.Driver != StorageDriverNone
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// PollConfig controls the continuous poll loop.
type PollConfig struct {
	Topic       string        `yaml:"topic"`
	Interval    time.Duration `yaml:"interval"`
	Backoff     string        `yaml:"backoff"`
	MaxInterval time.Duration `yaml:"max_interval"`
}

// CommandConfig controls one-shot command mode.
type CommandConfig struct {
	// LegacyTruthiness treats empty hub responses as failures.
	LegacyTruthiness bool `yaml:"legacy_truthiness"`
}

// APIConfig contains the optional status HTTP server settings.
type APIConfig struct {
	Enabled bool   `yaml:"enabled"`
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
}

// Address returns host:port for the listener.
func (a APIConfig) Address() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string            `yaml:"level"`
	Format string            `yaml:"format"`
	Output string            `yaml:"output"`
	File   FileLoggingConfig `yaml:"file"`
}

// FileLoggingConfig contains file-based logging settings.
type FileLoggingConfig struct {
	Path string `yaml:"path"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values, if path is not empty
//  3. Environment variables (NEOBRIDGE_SECTION_KEY)
//
// Validation is left to the caller, since command-line flags are applied
// on top of the returned value.
//
// Parameters:
//   - path: Path to the YAML configuration file, or "" for none
//
// Returns:
//   - *Config: Loaded configuration
//   - error: If the file cannot be read or parsed
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Hub: HubConfig{
			Port:       4242,
			Timeout:    10 * time.Second,
			Retries:    3,
			RetryDelay: time.Second,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "Heatmiser",
			},
			QoS: 0,
			Reconnect: MQTTReconnectConfig{
				MaxDelay: 60,
			},
		},
		Storage: StorageConfig{
			Path:          "./data/readings.db",
			WALMode:       true,
			BusyTimeout:   5,
			Port:          5432,
			SSLMode:       "disable",
			CommitTimeout: 10 * time.Second,
		},
		Poll: PollConfig{
			Topic:       "heating/state",
			Interval:    60 * time.Second,
			Backoff:     BackoffFixed,
			MaxInterval: 10 * time.Minute,
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 9242,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: NEOBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Hub
	if v := os.Getenv("NEOBRIDGE_HUB_HOST"); v != "" {
		cfg.Hub.Host = v
	}
	if v := envInt("NEOBRIDGE_HUB_PORT"); v > 0 {
		cfg.Hub.Port = v
	}

	// MQTT
	if v := os.Getenv("NEOBRIDGE_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := envInt("NEOBRIDGE_MQTT_PORT"); v > 0 {
		cfg.MQTT.Broker.Port = v
	}
	if v := os.Getenv("NEOBRIDGE_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("NEOBRIDGE_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// Storage
	if v := os.Getenv("NEOBRIDGE_STORAGE_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("NEOBRIDGE_STORAGE_HOST"); v != "" {
		cfg.Storage.Host = v
	}
	if v := os.Getenv("NEOBRIDGE_STORAGE_USER"); v != "" {
		cfg.Storage.User = v
	}
	if v := os.Getenv("NEOBRIDGE_STORAGE_PASSWORD"); v != "" {
		cfg.Storage.Password = v
	}

	// InfluxDB
	if v := os.Getenv("NEOBRIDGE_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("NEOBRIDGE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// envInt returns the integer value of an environment variable, or 0.
func envInt(key string) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return 0
	}
	return v
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of all validation failures, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Hub validation
	if c.Hub.Host == "" {
		errs = append(errs, "hub.host is required")
	}
	if c.Hub.Port < 1 || c.Hub.Port > 65535 {
		errs = append(errs, "hub.port must be between 1 and 65535")
	}
	if c.Hub.Retries < 1 {
		errs = append(errs, "hub.retries must be at least 1")
	}

	// MQTT validation
	if c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}
	if c.MQTT.Broker.Port < 1 || c.MQTT.Broker.Port > 65535 {
		errs = append(errs, "mqtt.broker.port must be between 1 and 65535")
	}
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	// Storage validation
	switch c.Storage.Driver {
	case StorageDriverNone:
	case StorageDriverSQLite:
		if c.Storage.Path == "" {
			errs = append(errs, "storage.path is required for sqlite")
		}
	case StorageDriverPostgres:
		if c.Storage.Host == "" {
			errs = append(errs, "storage.host is required for postgres")
		}
		if c.Storage.Name == "" {
			errs = append(errs, "storage.name is required for postgres")
		}
		if c.Storage.User == "" {
			errs = append(errs, "storage.user is required for postgres")
		}
	default:
		errs = append(errs, fmt.Sprintf("storage.driver %q is not supported (use sqlite or postgres)", c.Storage.Driver))
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && (c.InfluxDB.URL == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url and influxdb.bucket are required when enabled")
	}

	// Poll validation
	if c.Poll.Topic == "" {
		errs = append(errs, "poll.topic is required")
	}
	if c.Poll.Interval <= 0 {
		errs = append(errs, "poll.interval must be positive")
	}
	switch c.Poll.Backoff {
	case BackoffFixed:
	case BackoffExponential:
		if c.Poll.MaxInterval < c.Poll.Interval {
			errs = append(errs, "poll.max_interval must not be shorter than poll.interval")
		}
	default:
		errs = append(errs, fmt.Sprintf("poll.backoff %q is not supported (use fixed or exponential)", c.Poll.Backoff))
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// Logging validation
	if strings.EqualFold(c.Logging.Output, "file") && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is file")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}
