// Package config loads crawler settings from a YAML file, applies environment
// overrides and validates the result.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where Load looks when no path is given
const DefaultPath = "configs/config.yaml"

const envPrefix = "COMPSLEUTH_"

// Config is the full application configuration
type Config struct {
	Crawl   CrawlConfig   `yaml:"crawl"`
	Fetcher FetcherConfig `yaml:"fetcher"`
	Storage StorageConfig `yaml:"storage"`
	Logging LoggingConfig `yaml:"logging"`
}

type CrawlConfig struct {
	BaseURL       string        `yaml:"base_url" validate:"required,url"`
	OutputBase    string        `yaml:"output_base" validate:"required"`
	DataDir       string        `yaml:"data_dir" validate:"required"`
	TargetCount   int           `yaml:"target_count" validate:"min=1"`
	PageStride    int           `yaml:"page_stride" validate:"min=1"`
	MaxEmptyPages int           `yaml:"max_empty_pages" validate:"min=1"`
	MinDelay      time.Duration `yaml:"min_delay" validate:"min=0"`
	MaxDelay      time.Duration `yaml:"max_delay" validate:"gtefield=MinDelay"`
	Concurrency   int           `yaml:"concurrency" validate:"min=1,max=16"`
}

type FetcherConfig struct {
	Driver           string        `yaml:"driver" validate:"oneof=chromedp playwright http"`
	WaitTimeout      time.Duration `yaml:"wait_timeout" validate:"gt=0"`
	SettleTime       time.Duration `yaml:"settle_time" validate:"min=0"`
	Headless         bool          `yaml:"headless"`
	InspectFirstPage bool          `yaml:"inspect_first_page"`
	Proxy            string        `yaml:"proxy" validate:"omitempty,url"`
}

type StorageConfig struct {
	SQLitePath string `yaml:"sqlite_path"` // empty disables the SQLite mirror
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		Crawl: CrawlConfig{
			BaseURL:       "https://www.levels.fyi/t/software-engineer/locations/brazil?limit=50",
			OutputBase:    "brazil_software_engineer_salaries",
			DataDir:       "data",
			TargetCount:   1000,
			PageStride:    50,
			MaxEmptyPages: 3,
			MinDelay:      time.Second,
			MaxDelay:      3 * time.Second,
			Concurrency:   1,
		},
		Fetcher: FetcherConfig{
			Driver:      "chromedp",
			WaitTimeout: 10 * time.Second,
			SettleTime:  2 * time.Second,
			Headless:    true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load reads the YAML file at path over the defaults. A missing file is not an
// error. Environment overrides are applied before validation.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overrides selected settings from COMPSLEUTH_* variables
func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	overrides := map[string]*string{
		"BASE_URL":    &c.Crawl.BaseURL,
		"DRIVER":      &c.Fetcher.Driver,
		"PROXY":       &c.Fetcher.Proxy,
		"SQLITE_PATH": &c.Storage.SQLitePath,
		"LOG_LEVEL":   &c.Logging.Level,
	}
	for name, dst := range overrides {
		if v, ok := lookup(envPrefix + name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
}

// Validate checks every field constraint
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
