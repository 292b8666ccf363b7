package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Monitor modes.
const (
	ModeContinuous = "continuous"
	ModeOnce       = "once"
)

// Primary storage backends for the sampling pass.
const (
	StorageDB    = "db"
	StorageFile  = "file"
	StorageDummy = "dummy"
)

// Config is the root configuration structure for the meteo collector.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Database  DatabaseConfig  `yaml:"database"`
	Monitor   MonitorConfig   `yaml:"monitor"`
	Readers   []ReaderConfig  `yaml:"readers"`
	Query     QueryConfig     `yaml:"query"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Export    ExportConfig    `yaml:"export"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig identifies the station.
type SiteConfig struct {
	ID       string `yaml:"id"`
	Name     string `yaml:"name"`
	Timezone string `yaml:"timezone"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MonitorConfig controls the sampling scheduler.
type MonitorConfig struct {
	// Mode is "continuous" (loop every Interval seconds) or "once".
	Mode string `yaml:"mode"`

	// Interval is the pause between passes, in seconds.
	Interval int `yaml:"interval"`

	// Storage selects the primary sink: "db", "file" or "dummy".
	Storage string `yaml:"storage"`

	// FilePath is the CSV file used when Storage is "file".
	FilePath string `yaml:"file_path"`

	// MedianSamples is how many raw samples a use_median sensor takes per pass.
	MedianSamples int `yaml:"median_samples"`
}

// ReaderConfig describes one attached reader and its sensors.
type ReaderConfig struct {
	Name    string            `yaml:"name"`
	Driver  string            `yaml:"driver"`
	Options map[string]string `yaml:"options"`
	Sensors []SensorConfig    `yaml:"sensors"`
}

// SensorConfig is a single metric produced by a reader.
type SensorConfig struct {
	Name      string   `yaml:"name"`
	Field     string   `yaml:"field"`
	Kind      string   `yaml:"kind"`
	Unit      string   `yaml:"unit"`
	Datatype  string   `yaml:"datatype"`
	Args      []string `yaml:"args"`
	UseMedian bool     `yaml:"use_median"`
}

// QueryConfig controls how range queries are answered.
type QueryConfig struct {
	Resampling          bool   `yaml:"resampling"`
	ResamplingFrequency string `yaml:"resampling_frequency"`
	ResamplingFill      string `yaml:"resampling_fill"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Root     string           `yaml:"root"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains live feed settings.
type WebSocketConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	TopicPrefix string              `yaml:"topic_prefix"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
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

// ExportConfig contains CSV export defaults.
type ExportConfig struct {
	Directory string `yaml:"directory"`
	LocalTime bool   `yaml:"local_time"`
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
	Path       string `yaml:"path"`
	MaxSize    int    `yaml:"max_size"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"`
	Compress   bool   `yaml:"compress"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: METEO_SECTION_KEY
// For example: METEO_DATABASE_PATH, METEO_MONITOR_INTERVAL
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:       "meteo-001",
			Name:     "Meteo Station",
			Timezone: "UTC",
		},
		Database: DatabaseConfig{
			Path:        "./data/meteodata.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Monitor: MonitorConfig{
			Mode:     ModeContinuous,
			Interval: 60,
			Storage:  StorageDB,
			FilePath: "./data/meteodata.csv",

			MedianSamples: 5,
		},
		Query: QueryConfig{
			Resampling:          false,
			ResamplingFrequency: "1m",
			ResamplingFill:      "nan",
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8080,
			Root:    "/",
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Enabled:        true,
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "meteo-core",
			},
			QoS:         1,
			TopicPrefix: "meteo",
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		Export: ExportConfig{
			Directory: "./data/csv",
			LocalTime: true,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
			File: FileLoggingConfig{
				MaxSize:    10,
				MaxBackups: 3,
				MaxAge:     28,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("METEO_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}
	if v := os.Getenv("METEO_MONITOR_INTERVAL"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Monitor.Interval = n
		}
	}
	if v := os.Getenv("METEO_MONITOR_STORAGE"); v != "" {
		cfg.Monitor.Storage = v
	}
	if v := os.Getenv("METEO_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("METEO_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("METEO_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("METEO_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}
	if v := os.Getenv("METEO_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("METEO_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Reader and sensor descriptors are only checked structurally here; field
// names and datatypes are resolved against the drivers when readers attach.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	switch c.Monitor.Mode {
	case ModeContinuous, ModeOnce:
	default:
		errs = append(errs, fmt.Sprintf("monitor.mode %q must be %q or %q", c.Monitor.Mode, ModeContinuous, ModeOnce))
	}
	if c.Monitor.Interval < 1 {
		errs = append(errs, "monitor.interval must be at least 1 second")
	}
	if c.Monitor.MedianSamples < 3 {
		errs = append(errs, "monitor.median_samples must be at least 3")
	}
	switch c.Monitor.Storage {
	case StorageDB, StorageDummy:
	case StorageFile:
		if c.Monitor.FilePath == "" {
			errs = append(errs, "monitor.file_path is required when monitor.storage is \"file\"")
		}
	default:
		errs = append(errs, fmt.Sprintf("monitor.storage %q must be db, file or dummy", c.Monitor.Storage))
	}

	seen := make(map[string]bool)
	for i, r := range c.Readers {
		if r.Name == "" {
			errs = append(errs, fmt.Sprintf("readers[%d].name is required", i))
		}
		if r.Driver == "" {
			errs = append(errs, fmt.Sprintf("readers[%d].driver is required", i))
		}
		for j, s := range r.Sensors {
			if s.Name == "" {
				errs = append(errs, fmt.Sprintf("readers[%d].sensors[%d].name is required", i, j))
				continue
			}
			if seen[s.Name] {
				errs = append(errs, fmt.Sprintf("sensor name %q is declared more than once", s.Name))
			}
			seen[s.Name] = true
			if s.Field == "" {
				errs = append(errs, fmt.Sprintf("sensor %q: field is required", s.Name))
			}
		}
	}

	if c.Query.Resampling {
		if _, err := c.ResamplingFrequency(); err != nil {
			errs = append(errs, fmt.Sprintf("query.resampling_frequency: %v", err))
		}
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.MQTT.Enabled && (c.MQTT.QoS < 0 || c.MQTT.QoS > 2) {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if strings.ToLower(c.Logging.Output) == "file" && c.Logging.File.Path == "" {
		errs = append(errs, "logging.file.path is required when logging.output is \"file\"")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// MonitorInterval returns the pause between passes as a Duration.
func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.Interval) * time.Second
}

// ResamplingFrequency parses query.resampling_frequency.
func (c *Config) ResamplingFrequency() (time.Duration, error) {
	d, err := time.ParseDuration(c.Query.ResamplingFrequency)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", d)
	}
	return d, nil
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
