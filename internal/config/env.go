package config

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix namespaces every environment override
const EnvPrefix = "TRIMLAY"

// envConfig holds environment overrides. Zero values leave the file value alone.
type envConfig struct {
	// Env: TRIMLAY_WORK_DIR
	WorkDir string `envconfig:"WORK_DIR"`
	// Env: TRIMLAY_OUTPUT_DIR
	OutputDir string `envconfig:"OUTPUT_DIR"`

	FFmpegPath  string `envconfig:"FFMPEG_PATH"`
	FFprobePath string `envconfig:"FFPROBE_PATH"`
	Threads     int    `envconfig:"FFMPEG_THREADS"`
	Preset      string `envconfig:"FFMPEG_PRESET"`

	// Env: TRIMLAY_OVERLAY_REFERENCE_SIZE
	ReferenceSize int    `envconfig:"OVERLAY_REFERENCE_SIZE"`
	Overlay       string `envconfig:"OVERLAY"`

	HistoryPath string `envconfig:"HISTORY_PATH"`
	// Env: TRIMLAY_HISTORY_DISABLED (default: false)
	HistoryDisabled bool `envconfig:"HISTORY_DISABLED" default:"false"`

	// Env: TRIMLAY_ADDR
	Addr string `envconfig:"ADDR"`
}

func loadEnv() (envConfig, error) {
	var env envConfig
	if err := envconfig.Process(EnvPrefix, &env); err != nil {
		return envConfig{}, err
	}
	return env, nil
}

func (e envConfig) apply(cfg *Config) {
	if e.WorkDir != "" {
		cfg.WorkDir = e.WorkDir
	}
	if e.OutputDir != "" {
		cfg.OutputDir = e.OutputDir
	}
	if e.FFmpegPath != "" {
		cfg.FFmpeg.BinaryPath = e.FFmpegPath
	}
	if e.FFprobePath != "" {
		cfg.FFmpeg.ProbePath = e.FFprobePath
	}
	if e.Threads != 0 {
		cfg.FFmpeg.Threads = e.Threads
	}
	if e.Preset != "" {
		cfg.FFmpeg.Preset = e.Preset
	}
	if e.ReferenceSize != 0 {
		cfg.Overlays.ReferenceSize = e.ReferenceSize
	}
	if e.Overlay != "" {
		cfg.Overlays.DefaultOverlay = e.Overlay
	}
	if e.HistoryPath != "" {
		cfg.History.Path = e.HistoryPath
	}
	if e.HistoryDisabled {
		cfg.History.Enabled = false
	}
	if e.Addr != "" {
		cfg.Server.Addr = e.Addr
	}
}

// LoadDotEnv loads environment variables from a .env file.
// A missing file is not an error; existing variables are not overridden.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil
	}

	return godotenv.Load(path)
}
