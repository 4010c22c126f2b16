// Package config loads designerctl settings from a YAML file, an optional
// .env file and DESIGNER_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const envPrefix = "DESIGNER_"

// Config is the full runtime configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Charts    ChartsConfig    `yaml:"charts"`
	Designer  DesignerConfig  `yaml:"designer"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the listener settings. Origins lists the cross-origin
// pages allowed to open the event websocket.
type ServerConfig struct {
	Addr     string   `yaml:"addr"`
	BasePath string   `yaml:"base_path"`
	Origins  []string `yaml:"origins"`
}

// StorageConfig picks the blob backend: memory, file or postgres.
type StorageConfig struct {
	Driver string `yaml:"driver"`
	Dir    string `yaml:"dir"`
	DSN    string `yaml:"dsn"`
	Table  string `yaml:"table"`
}

// TelemetryConfig picks the data backend: mock or http.
type TelemetryConfig struct {
	Mode           string        `yaml:"mode"`
	BaseURL        string        `yaml:"base_url"`
	APIKey         string        `yaml:"api_key"`
	CatalogDelay   time.Duration `yaml:"catalog_delay"`
	SeriesDelay    time.Duration `yaml:"series_delay"`
	StreamInterval time.Duration `yaml:"stream_interval"`
}

type ChartsConfig struct {
	Theme      string        `yaml:"theme"`
	AssetsHost string        `yaml:"assets_host"`
	CacheTTL   time.Duration `yaml:"cache_ttl"`
}

type DesignerConfig struct {
	EditorMode  string `yaml:"editor_mode"`
	DashboardID string `yaml:"dashboard_id"`
}

type LoggingConfig struct {
	Environment string `yaml:"environment"`
	Level       string `yaml:"level"`
}

// Default returns the settings used when nothing is configured.
func Default() Config {
	return Config{
		Server:  ServerConfig{Addr: ":8080", BasePath: "/designer"},
		Storage: StorageConfig{Driver: "file", Dir: "./data", Table: "designer_blobs"},
		Telemetry: TelemetryConfig{
			Mode:           "mock",
			CatalogDelay:   500 * time.Millisecond,
			SeriesDelay:    time.Second,
			StreamInterval: 2 * time.Second,
		},
		Charts:   ChartsConfig{CacheTTL: 5 * time.Minute},
		Designer: DesignerConfig{EditorMode: "dialog"},
		Logging:  LoggingConfig{Environment: "development", Level: "info"},
	}
}

// LoadOptions controls where Load reads from.
type LoadOptions struct {
	// Path is the YAML file. Empty skips the file.
	Path string
	// EnvFiles are loaded with godotenv; missing files are ignored. Nil means ".env".
	EnvFiles []string
	// Lookup resolves environment variables, defaulting to os.LookupEnv.
	Lookup func(string) (string, bool)
}

// Load merges defaults, the YAML file and the environment, then validates.
func Load(opts LoadOptions) (Config, error) {
	cfg := Default()
	if opts.Path != "" {
		data, err := os.ReadFile(opts.Path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", opts.Path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", opts.Path, err)
		}
	}

	envFiles := opts.EnvFiles
	if envFiles == nil {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("config: load %s: %w", file, err)
		}
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(envPrefix + key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("config: %s%s: %w", envPrefix, key, err)
		}
		*dst = d
		return nil
	}

	str("ADDR", &cfg.Server.Addr)
	str("BASE_PATH", &cfg.Server.BasePath)
	str("STORAGE_DRIVER", &cfg.Storage.Driver)
	str("STORAGE_DIR", &cfg.Storage.Dir)
	str("DATABASE_URL", &cfg.Storage.DSN)
	str("STORAGE_TABLE", &cfg.Storage.Table)
	str("TELEMETRY_MODE", &cfg.Telemetry.Mode)
	str("TELEMETRY_URL", &cfg.Telemetry.BaseURL)
	str("TELEMETRY_API_KEY", &cfg.Telemetry.APIKey)
	str("ECHARTS_CDN", &cfg.Charts.AssetsHost)
	str("CHART_THEME", &cfg.Charts.Theme)
	if v, ok := lookup(envPrefix + "ORIGINS"); ok {
		cfg.Server.Origins = nil
		for _, origin := range strings.Split(v, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				cfg.Server.Origins = append(cfg.Server.Origins, origin)
			}
		}
	}
	str("EDITOR_MODE", &cfg.Designer.EditorMode)
	str("DASHBOARD_ID", &cfg.Designer.DashboardID)
	str("ENV", &cfg.Logging.Environment)
	str("LOG_LEVEL", &cfg.Logging.Level)

	for key, dst := range map[string]*time.Duration{
		"CATALOG_DELAY":   &cfg.Telemetry.CatalogDelay,
		"SERIES_DELAY":    &cfg.Telemetry.SeriesDelay,
		"STREAM_INTERVAL": &cfg.Telemetry.StreamInterval,
		"CHART_CACHE_TTL": &cfg.Charts.CacheTTL,
	} {
		if err := dur(key, dst); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks cross-field requirements.
func (c Config) Validate() error {
	return validation.Errors{
		"server":    c.Server.validate(),
		"storage":   c.Storage.validate(),
		"telemetry": c.Telemetry.validate(),
		"charts": validation.ValidateStruct(&c.Charts,
			validation.Field(&c.Charts.CacheTTL, validation.Min(time.Duration(0))),
		),
		"designer": validation.ValidateStruct(&c.Designer,
			validation.Field(&c.Designer.EditorMode, validation.Required, validation.In("dialog", "inline")),
		),
		"logging": validation.ValidateStruct(&c.Logging,
			validation.Field(&c.Logging.Level, validation.In("debug", "info", "warn", "error")),
		),
	}.Filter()
}

func (s ServerConfig) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Addr, validation.Required),
		validation.Field(&s.BasePath, validation.Required, validation.By(func(any) error {
			if !strings.HasPrefix(s.BasePath, "/") {
				return errors.New("must start with /")
			}
			return nil
		})),
	)
}

func (s StorageConfig) validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In("memory", "file", "postgres")),
		validation.Field(&s.Dir, validation.When(s.Driver == "file", validation.Required)),
		validation.Field(&s.DSN, validation.When(s.Driver == "postgres", validation.Required)),
	)
}

func (t TelemetryConfig) validate() error {
	return validation.ValidateStruct(&t,
		validation.Field(&t.Mode, validation.Required, validation.In("mock", "http")),
		validation.Field(&t.BaseURL, validation.When(t.Mode == "http", validation.Required)),
		validation.Field(&t.StreamInterval, validation.Min(time.Second)),
	)
}
