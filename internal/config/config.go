package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/scenematch/internal/histogram"
	"github.com/kikiluvv/scenematch/internal/report"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir     string `yaml:"work_dir"`
	Concurrency int    `yaml:"concurrency"`

	Template  TemplateConfig  `yaml:"template"`
	Histogram HistogramConfig `yaml:"histogram"`
	FFmpeg    FFmpegConfig    `yaml:"ffmpeg"`
	Report    ReportConfig    `yaml:"report"`
}

type TemplateConfig struct {
	Path string `yaml:"path"`
}

type HistogramConfig struct {
	HueBins      int        `yaml:"hue_bins"`
	SatBins      int        `yaml:"sat_bins"`
	HueRange     [2]float64 `yaml:"hue_range,flow"`
	SatRange     [2]float64 `yaml:"sat_range,flow"`
	MaxDimension uint       `yaml:"max_dimension"`
}

type FFmpegConfig struct {
	BinaryPath     string  `yaml:"binary_path"`
	Threads        int     `yaml:"threads"`
	SceneThreshold float64 `yaml:"scene_threshold"`
}

type ReportConfig struct {
	Format    string `yaml:"format"`
	PerMetric bool   `yaml:"per_metric"`
}

// Load reads configuration from file or returns defaults
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = findConfigFile()
	}

	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Marshal renders the configuration as YAML
func (c *Config) Marshal() ([]byte, error) {
	return yaml.Marshal(c)
}

// Validate checks values that would otherwise fail deep inside a run
func (c *Config) Validate() error {
	if err := c.HistogramConfig().Validate(); err != nil {
		return fmt.Errorf("histogram: %w", err)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative: %d", c.Concurrency)
	}
	if t := c.FFmpeg.SceneThreshold; t < 0 || t >= 1 {
		return fmt.Errorf("ffmpeg.scene_threshold must be in [0, 1): %g", t)
	}
	switch c.Report.Format {
	case report.FormatText, report.FormatYAML:
	default:
		return fmt.Errorf("unknown report format %q", c.Report.Format)
	}
	return nil
}

// HistogramConfig converts the histogram section to the extractor's config
func (c *Config) HistogramConfig() histogram.Config {
	h := c.Histogram
	return histogram.Config{
		HueBins:      h.HueBins,
		SatBins:      h.SatBins,
		HueRange:     histogram.Range{Min: h.HueRange[0], Max: h.HueRange[1]},
		SatRange:     histogram.Range{Min: h.SatRange[0], Max: h.SatRange[1]},
		MaxDimension: h.MaxDimension,
	}
}

// Default returns the reference configuration
func Default() *Config {
	hist := histogram.DefaultConfig()
	return &Config{
		WorkDir:     "./work",
		Concurrency: 4,
		Template: TemplateConfig{
			Path: "./test_files/pitch_template.png",
		},
		Histogram: HistogramConfig{
			HueBins:  hist.HueBins,
			SatBins:  hist.SatBins,
			HueRange: [2]float64{hist.HueRange.Min, hist.HueRange.Max},
			SatRange: [2]float64{hist.SatRange.Min, hist.SatRange.Max},
		},
		FFmpeg: FFmpegConfig{
			BinaryPath:     "ffmpeg",
			Threads:        0,
			SceneThreshold: 0.3,
		},
		Report: ReportConfig{
			Format: report.FormatText,
		},
	}
}

func findConfigFile() string {
	candidates := []string{
		"./scenematch.yaml",
		"./scenematch.yml",
	}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates, filepath.Join(home, ".scenematch", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// WithConfig stores config in context
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey, cfg)
}

// FromContext retrieves config from context
func FromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(configKey).(*Config); ok {
		return cfg
	}
	return Default()
}
