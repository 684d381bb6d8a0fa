// Package config loads the citydesk configuration from a YAML file and
// applies CITYDESK_* environment overrides on top of it.
package config

import (
	"citydesk/internal/blob"
	"citydesk/internal/core"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration shared by the server and the terminal front end.
type Config struct {
	Server  ServerConfig       `yaml:"server"`
	Log     LogConfig          `yaml:"log"`
	Storage core.StorageConfig `yaml:"storage"`
	Client  ClientConfig       `yaml:"client"`
	Export  ExportConfig       `yaml:"export"`
	Metrics core.MetricsConfig `yaml:"metrics"`
}

// ServerConfig configures the HTTP API listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// LogConfig selects the slog handler and level. Trace additionally writes
// one JSON line per service span to the log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Trace  bool   `yaml:"trace"`
}

// ClientConfig configures the REST client used by the form manager.
type ClientConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// ExportConfig configures where list exports are written.
type ExportConfig struct {
	Prefix string      `yaml:"prefix"`
	Blob   blob.Config `yaml:"blob"`
}

// Default returns the configuration used when no file or override is given.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":8080", ShutdownTimeout: 10 * time.Second},
		Log:     LogConfig{Level: "info", Format: "text"},
		Storage: core.StorageConfig{Driver: core.StorageSQLite, SQLitePath: "citydesk.db"},
		Client:  ClientConfig{BaseURL: "http://localhost:8080", Timeout: 10 * time.Second},
		Export:  ExportConfig{Prefix: "exports", Blob: blob.Config{Driver: blob.DriverFilesystem, FSRoot: "./blobdata"}},
		Metrics: core.DefaultMetricsConfig(),
	}
}

// Load reads path (optional) over the defaults and then applies environment
// overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file: %w", err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from CITYDESK_* variables resolved by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(name); ok && v != "" {
			*dst = v
		}
	}
	dur := func(name string, dst *time.Duration) error {
		v, ok := lookup(name)
		if !ok || v == "" {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = d
		return nil
	}

	boolean := func(name string, dst *bool) error {
		v, ok := lookup(name)
		if !ok || v == "" {
			return nil
		}
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		*dst = b
		return nil
	}

	str("CITYDESK_SERVER_ADDR", &c.Server.Addr)
	str("CITYDESK_LOG_LEVEL", &c.Log.Level)
	str("CITYDESK_LOG_FORMAT", &c.Log.Format)
	driver := string(c.Storage.Driver)
	str("CITYDESK_STORAGE_DRIVER", &driver)
	c.Storage.Driver = core.StorageDriver(driver)
	str("CITYDESK_SQLITE_PATH", &c.Storage.SQLitePath)
	str("CITYDESK_POSTGRES_DSN", &c.Storage.PostgresDSN)
	str("CITYDESK_API_URL", &c.Client.BaseURL)
	str("CITYDESK_EXPORT_PREFIX", &c.Export.Prefix)
	blobDriver := string(c.Export.Blob.Driver)
	str("CITYDESK_BLOB_DRIVER", &blobDriver)
	c.Export.Blob.Driver = blob.Driver(blobDriver)
	str("CITYDESK_BLOB_FS_ROOT", &c.Export.Blob.FSRoot)
	str("CITYDESK_BLOB_S3_BUCKET", &c.Export.Blob.S3.Bucket)
	str("CITYDESK_BLOB_S3_REGION", &c.Export.Blob.S3.Region)
	str("CITYDESK_BLOB_S3_ENDPOINT", &c.Export.Blob.S3.Endpoint)
	str("CITYDESK_METRICS_NAMESPACE", &c.Metrics.Namespace)

	if err := boolean("CITYDESK_LOG_TRACE", &c.Log.Trace); err != nil {
		return err
	}
	if err := boolean("CITYDESK_BLOB_S3_PATH_STYLE", &c.Export.Blob.S3.PathStyle); err != nil {
		return err
	}
	if err := dur("CITYDESK_CLIENT_TIMEOUT", &c.Client.Timeout); err != nil {
		return err
	}
	return dur("CITYDESK_SHUTDOWN_TIMEOUT", &c.Server.ShutdownTimeout)
}

// Validate rejects values the commands cannot start with.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case core.StorageMemory, core.StorageSQLite, core.StoragePostgres:
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Export.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Export.Blob.S3.Bucket == "" {
			return fmt.Errorf("export.blob.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown blob driver %q", c.Export.Blob.Driver)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("unknown log format %q", c.Log.Format)
	}
	if c.Client.BaseURL == "" {
		return fmt.Errorf("client.base_url is required")
	}
	return nil
}

// NewLogger builds the slog logger described by the log section.
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level, err := parseLevel(l.Level)
	if err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if l.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func parseLevel(raw string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(raw))); err != nil {
		return 0, fmt.Errorf("unknown log level %q", raw)
	}
	return level, nil
}
