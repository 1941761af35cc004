// Package config loads the YAML configuration of the service.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v2"
)

const DefaultPath = "config.yaml"

type Config struct {
	Http     HTTPConfig     `yaml:"http"`
	Log      LogConfig      `yaml:"log"`
	Model    ModelConfig    `yaml:"model"`
	Metadata MetadataConfig `yaml:"metadata"`
	Display  DisplayConfig  `yaml:"display"`
	Cache    CacheConfig    `yaml:"cache"`
}

type HTTPConfig struct {
	Port           int           `yaml:"port"`
	Timeout        time.Duration `yaml:"timeout"`
	AllowedOrigins []string      `yaml:"allowed_origins"`
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

type ModelConfig struct {
	Path            string        `yaml:"path"`
	URL             string        `yaml:"url"`
	DriveFileID     string        `yaml:"drive_file_id"`
	MinSizeBytes    int64         `yaml:"min_size_bytes"`
	DownloadTimeout time.Duration `yaml:"download_timeout"`
}

type MetadataConfig struct {
	FeaturesPath string `yaml:"features_path"`
	ChoicesPath  string `yaml:"choices_path"`
}

type DisplayConfig struct {
	Locale   string `yaml:"locale"`
	Currency string `yaml:"currency"`
	AreaUnit string `yaml:"area_unit"`
}

type CacheConfig struct {
	Size int `yaml:"size"`
}

func Default() *Config {
	return &Config{
		Http: HTTPConfig{
			Port:           8501,
			Timeout:        30 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  50,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Model: ModelConfig{
			Path:            "rf_price_per_m2.json",
			MinSizeBytes:    10_000_000,
			DownloadTimeout: 30 * time.Minute,
		},
		Metadata: MetadataConfig{
			FeaturesPath: "rf_price_features.json",
			ChoicesPath:  "choices.json",
		},
		Display: DisplayConfig{
			Locale:   "en",
			Currency: "€",
			AreaUnit: "m²",
		},
		Cache: CacheConfig{Size: 256},
	}
}

// Load reads path over the defaults. An empty path looks for config.yaml in
// the working directory and then its parent; when neither exists the
// defaults are returned. Relative file paths are resolved against the
// directory the configuration was found in.
func Load(path string) (*Config, error) {
	config := Default()
	if path == "" {
		path = find()
		if path == "" {
			return config, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	config.resolve(filepath.Dir(path))
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func find() string {
	for _, candidate := range []string{DefaultPath, filepath.Join("..", DefaultPath)} {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return ""
}

func (c *Config) resolve(dir string) {
	if dir == "" || dir == "." {
		return
	}
	for _, p := range []*string{&c.Model.Path, &c.Metadata.FeaturesPath, &c.Metadata.ChoicesPath, &c.Log.File} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(dir, *p)
		}
	}
}

func (c *Config) Validate() error {
	var errs []error
	if c.Http.Port <= 0 || c.Http.Port > 65535 {
		errs = append(errs, fmt.Errorf("http.port %d out of range", c.Http.Port))
	}
	if c.Model.Path == "" {
		errs = append(errs, errors.New("model.path is required"))
	}
	if c.Metadata.FeaturesPath == "" {
		errs = append(errs, errors.New("metadata.features_path is required"))
	}
	if c.Model.MinSizeBytes < 0 {
		errs = append(errs, errors.New("model.min_size_bytes must not be negative"))
	}
	return errors.Join(errs...)
}
