// Package config loads the service configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/neurolytix/go-forecaster/errs"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "NEUROLYTIX_"

var validate = validator.New()

type Config struct {
	Data     DataConfig     `yaml:"data"`
	Store    StoreConfig    `yaml:"store"`
	Cache    CacheConfig    `yaml:"cache"`
	Forecast ForecastConfig `yaml:"forecast"`
	Monitor  MonitorConfig  `yaml:"monitor"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// DataConfig selects where raw datasets are loaded from
type DataConfig struct {
	Source     string       `yaml:"source" validate:"oneof=csv influx"`
	Dir        string       `yaml:"dir" validate:"required_if=Source csv"`
	TimeColumn string       `yaml:"time_column" validate:"required"`
	Influx     InfluxConfig `yaml:"influx"`
}

type InfluxConfig struct {
	URL    string `yaml:"url" validate:"omitempty,url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// StoreConfig selects where forecast tables are persisted
type StoreConfig struct {
	Backend     string      `yaml:"backend" validate:"oneof=file postgres redis"`
	Dir         string      `yaml:"dir" validate:"required_if=Backend file"`
	PostgresDSN string      `yaml:"postgres_dsn" validate:"required_if=Backend postgres"`
	Redis       RedisConfig `yaml:"redis"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr" validate:"omitempty,hostname_port"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db" validate:"gte=0"`
	TTL      time.Duration `yaml:"ttl" validate:"gte=0"`
}

type CacheConfig struct {
	Size int           `yaml:"size" validate:"gte=1"`
	TTL  time.Duration `yaml:"ttl" validate:"gte=0"`
}

type ForecastConfig struct {
	Horizon int    `yaml:"horizon" validate:"gte=1"`
	Method  string `yaml:"method" validate:"required"`
}

type MonitorConfig struct {
	Interval      time.Duration `yaml:"interval" validate:"gt=0"`
	AlertsPerHour float64       `yaml:"alerts_per_hour" validate:"gte=0"`
	Burst         int           `yaml:"burst" validate:"gte=1"`
	Detector      string        `yaml:"detector" validate:"oneof=zscore tukey iqr"`
	Threshold     float64       `yaml:"threshold" validate:"gte=0"`
	Detrend       bool          `yaml:"detrend"`
	Jobs          []JobConfig   `yaml:"jobs" validate:"dive"`
}

// JobConfig is an anomaly check scheduled at startup. A zero interval uses the monitor
// interval.
type JobConfig struct {
	DatasetID     string        `yaml:"dataset_id" validate:"required"`
	Column        string        `yaml:"column" validate:"required"`
	NotifyAddress string        `yaml:"notify_address" validate:"omitempty,email"`
	Interval      time.Duration `yaml:"interval" validate:"gte=0"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" validate:"oneof=text json"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns a configuration reading CSV datasets and writing forecast tables
// under the working directory.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Source:     "csv",
			Dir:        "data/raw",
			TimeColumn: "ds",
		},
		Store: StoreConfig{
			Backend: "file",
			Dir:     "data/forecasts",
			Redis:   RedisConfig{Addr: "localhost:6379"},
		},
		Cache:    CacheConfig{Size: 128, TTL: 30 * time.Minute},
		Forecast: ForecastConfig{Horizon: 30, Method: "hybrid"},
		Monitor: MonitorConfig{
			Interval:      time.Hour,
			AlertsPerHour: 1,
			Burst:         1,
			Detector:      "zscore",
			Threshold:     3.0,
		},
		Log:     LogConfig{Level: "info", Format: "text"},
		Metrics: MetricsConfig{Addr: ":9090"},
	}
}

// Load reads the YAML file at path on top of the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("unable to read config %s, %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("unable to parse config %s, %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from NEUROLYTIX_* variables. The InfluxDB connection also
// honors the standard INFLUXDB_* variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	str(&c.Data.Source, EnvPrefix+"DATA_SOURCE")
	str(&c.Data.Dir, EnvPrefix+"DATA_DIR")
	str(&c.Data.TimeColumn, EnvPrefix+"TIME_COLUMN")
	str(&c.Data.Influx.URL, EnvPrefix+"INFLUX_URL", "INFLUXDB_URL")
	str(&c.Data.Influx.Token, EnvPrefix+"INFLUX_TOKEN", "INFLUXDB_TOKEN")
	str(&c.Data.Influx.Org, EnvPrefix+"INFLUX_ORG", "INFLUXDB_ORG")
	str(&c.Data.Influx.Bucket, EnvPrefix+"INFLUX_BUCKET", "INFLUXDB_BUCKET")
	str(&c.Store.Backend, EnvPrefix+"STORE_BACKEND")
	str(&c.Store.Dir, EnvPrefix+"STORE_DIR")
	str(&c.Store.PostgresDSN, EnvPrefix+"POSTGRES_DSN")
	str(&c.Store.Redis.Addr, EnvPrefix+"REDIS_ADDR")
	str(&c.Store.Redis.Password, EnvPrefix+"REDIS_PASSWORD")
	str(&c.Forecast.Method, EnvPrefix+"FORECAST_METHOD")
	str(&c.Log.Level, EnvPrefix+"LOG_LEVEL")
	str(&c.Log.Format, EnvPrefix+"LOG_FORMAT")
	str(&c.Metrics.Addr, EnvPrefix+"METRICS_ADDR")

	if v, ok := lookup(EnvPrefix + "FORECAST_HORIZON"); ok && v != "" {
		h, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%sFORECAST_HORIZON %q, %w", EnvPrefix, v, errs.ErrConfiguration)
		}
		c.Forecast.Horizon = h
	}
	if v, ok := lookup(EnvPrefix + "MONITOR_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%sMONITOR_INTERVAL %q, %w", EnvPrefix, v, errs.ErrConfiguration)
		}
		c.Monitor.Interval = d
	}
	return nil
}

// Validate checks every section. Failures wrap errs.ErrConfiguration.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config %s, %w", strings.Join(fields, ", "), errs.ErrConfiguration)
		}
		return fmt.Errorf("%w, %w", err, errs.ErrConfiguration)
	}
	return nil
}

// NewLogger builds the structured logger described by the log section
func NewLogger(c LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	hopt := &slog.HandlerOptions{Level: level}
	if c.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, hopt))
	}
	return slog.New(slog.NewTextHandler(w, hopt))
}
