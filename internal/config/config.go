package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kikiluvv/trimlay/pkg/util"
)

type contextKey string

const configKey contextKey = "config"

// Config holds all application configuration
type Config struct {
	// Core settings
	WorkDir   string `yaml:"work_dir"`
	OutputDir string `yaml:"output_dir"`

	// FFmpeg settings
	FFmpeg FFmpegConfig `yaml:"ffmpeg"`

	// Overlay settings
	Overlays OverlayConfig `yaml:"overlays"`

	// Display used when no player reports its own extent
	Display DisplayConfig `yaml:"display"`

	History HistoryConfig `yaml:"history"`
	Server  ServerConfig  `yaml:"server"`
}

type FFmpegConfig struct {
	BinaryPath  string `yaml:"binary_path"`
	ProbePath   string `yaml:"probe_path"`
	Threads     int    `yaml:"threads"`
	Preset      string `yaml:"preset"`
	CRF         int    `yaml:"crf"`
	KeepScratch bool   `yaml:"keep_scratch"`
}

type OverlayConfig struct {
	// ReferenceSize is the overlay's native pixel size when the asset
	// cannot report one
	ReferenceSize  int               `yaml:"reference_size"`
	InitialSize    float64           `yaml:"initial_size"`
	DefaultOverlay string            `yaml:"default_overlay"`
	Overlays       map[string]string `yaml:"overlays"`
}

type DisplayConfig struct {
	Width  float64 `yaml:"width"`
	Height float64 `yaml:"height"`
}

type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Load reads configuration from file, .env and TRIMLAY_* variables
func Load(path string) (*Config, error) {
	return load(path, ".env")
}

func load(path, dotenv string) (*Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = findConfigFile()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, err
		}
	}

	if err := LoadDotEnv(dotenv); err != nil {
		return nil, fmt.Errorf("load %s: %w", dotenv, err)
	}

	env, err := loadEnv()
	if err != nil {
		return nil, fmt.Errorf("environment: %w", err)
	}
	env.apply(cfg)

	cfg.expandPaths()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes configuration to file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports every invalid setting at once
func (c *Config) Validate() error {
	var errs []error

	if c.WorkDir == "" {
		errs = append(errs, errors.New("work_dir is required"))
	}
	if c.OutputDir == "" {
		errs = append(errs, errors.New("output_dir is required"))
	}
	if c.FFmpeg.Threads < 0 {
		errs = append(errs, errors.New("ffmpeg.threads cannot be negative"))
	}
	if c.FFmpeg.CRF < 0 || c.FFmpeg.CRF > 51 {
		errs = append(errs, errors.New("ffmpeg.crf must be between 0 and 51"))
	}
	if c.Overlays.ReferenceSize <= 0 {
		errs = append(errs, errors.New("overlays.reference_size must be positive"))
	}
	if c.Overlays.InitialSize <= 0 {
		errs = append(errs, errors.New("overlays.initial_size must be positive"))
	}
	if c.Display.Width < 0 || c.Display.Height < 0 {
		errs = append(errs, errors.New("display extent cannot be negative"))
	}
	if c.History.Enabled && c.History.Path == "" {
		errs = append(errs, errors.New("history.path is required when history is enabled"))
	}
	if c.Server.Addr == "" {
		errs = append(errs, errors.New("server.addr is required"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c *Config) expandPaths() {
	c.WorkDir = util.ExpandHome(c.WorkDir)
	c.OutputDir = util.ExpandHome(c.OutputDir)
	c.History.Path = util.ExpandHome(c.History.Path)
}

func defaultConfig() *Config {
	return &Config{
		WorkDir:   "./work",
		OutputDir: ".",
		FFmpeg: FFmpegConfig{
			BinaryPath: "ffmpeg",
			ProbePath:  "ffprobe",
			Threads:    0,
			Preset:     "medium",
			CRF:        23,
		},
		Overlays: OverlayConfig{
			ReferenceSize: 512,
			InitialSize:   128,
			Overlays:      make(map[string]string),
		},
		History: HistoryConfig{
			Enabled: true,
			Path:    filepath.Join("~", ".trimlay", "history.db"),
		},
		Server: ServerConfig{
			Addr: "127.0.0.1:8787",
		},
	}
}

// Default returns the built-in configuration
func Default() *Config {
	cfg := defaultConfig()
	cfg.expandPaths()
	return cfg
}

func findConfigFile() string {
	candidates := []string{
		"./trimlay.yaml",
		"./trimlay.yml",
		util.ExpandHome("~/.trimlay/config.yaml"),
	}

	for _, path := range candidates {
		if util.FileExists(path) {
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
