package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	StagingDir string `toml:"staging_dir" env:"STAGING_DIR"`
	OutputDir  string `toml:"output_dir" env:"OUTPUT_DIR"`
	LogDir     string `toml:"log_dir" env:"LOG_DIR"`
	InboxDir   string `toml:"inbox_dir" env:"INBOX_DIR"`
	APIBind    string `toml:"api_bind" env:"API_BIND"`
	APIToken   string `toml:"api_token" env:"API_TOKEN"`
}

// Edge contains configuration for the Microsoft Edge speech service. Edge
// needs no credential, so it is available unless explicitly disabled.
type Edge struct {
	Disabled bool   `toml:"disabled" env:"DISABLED"`
	Voice    string `toml:"voice" env:"VOICE"`
}

// Fish contains configuration for the Fish Audio speech API.
type Fish struct {
	APIKey  string `toml:"api_key" env:"API_KEY"`
	BaseURL string `toml:"base_url" env:"BASE_URL"`
	ModelID string `toml:"model_id" env:"MODEL_ID"`
}

// OpenAI contains configuration for the OpenAI speech API.
type OpenAI struct {
	APIKey  string `toml:"api_key" env:"API_KEY"`
	BaseURL string `toml:"base_url" env:"BASE_URL"`
	Model   string `toml:"model" env:"MODEL"`
	Voice   string `toml:"voice" env:"VOICE"`
}

// Azure contains configuration for the Azure Cognitive Services speech API.
type Azure struct {
	SubscriptionKey string `toml:"subscription_key" env:"SUBSCRIPTION_KEY"`
	Region          string `toml:"region" env:"REGION"`
	Voice           string `toml:"voice" env:"VOICE"`
}

// TTS contains speech synthesis dispatch configuration shared by all engines.
type TTS struct {
	EngineOrder           []string `toml:"engine_order" env:"ENGINE_ORDER"`
	PreferredEngine       string   `toml:"preferred_engine" env:"PREFERRED_ENGINE"`
	Language              string   `toml:"language" env:"LANGUAGE"`
	Rate                  string   `toml:"rate"`
	Pitch                 string   `toml:"pitch"`
	MaxAttempts           int      `toml:"max_attempts"`
	RetryBaseDelayMS      int      `toml:"retry_base_delay_ms"`
	RetryMaxDelayMS       int      `toml:"retry_max_delay_ms"`
	RequestTimeout        int      `toml:"request_timeout"`
	RequestsPerSecond     float64  `toml:"requests_per_second"`
	SilenceMinSeconds     float64  `toml:"silence_min_seconds"`
	SilenceCharsPerSecond float64  `toml:"silence_chars_per_second"`
	SampleRate            int      `toml:"sample_rate"`

	Edge   Edge   `toml:"edge" envPrefix:"EDGE_"`
	Fish   Fish   `toml:"fish" envPrefix:"FISH_"`
	OpenAI OpenAI `toml:"openai" envPrefix:"OPENAI_"`
	Azure  Azure  `toml:"azure" envPrefix:"AZURE_"`
}

// Video contains clip rendering configuration.
type Video struct {
	Width   int    `toml:"width"`
	Height  int    `toml:"height"`
	FPS     int    `toml:"fps"`
	Bitrate string `toml:"bitrate"`
	Preset  string `toml:"preset"`
}

// Subtitles contains configuration for SRT generation and muxing.
type Subtitles struct {
	Enabled       bool `toml:"enabled"`
	MuxIntoVideo  bool `toml:"mux_into_video"`
	MaxLineLength int  `toml:"max_line_length"`
}

// Notifications contains configuration for ntfy push notifications.
type Notifications struct {
	NtfyTopic          string `toml:"ntfy_topic" env:"NTFY_TOPIC"`
	RequestTimeout     int    `toml:"request_timeout"`
	JobComplete        bool   `toml:"job_complete"`
	Errors             bool   `toml:"errors"`
	DegradedAudio      bool   `toml:"degraded_audio"`
	DedupWindowSeconds int    `toml:"dedup_window_seconds"`
}

// Workflow contains configuration for daemon timing and concurrency.
type Workflow struct {
	QueuePollInterval  int `toml:"queue_poll_interval"`
	ErrorRetryInterval int `toml:"error_retry_interval"`
	HeartbeatInterval  int `toml:"heartbeat_interval"`
	HeartbeatTimeout   int `toml:"heartbeat_timeout"`
	StageTimeout       int `toml:"stage_timeout"`
	WorkerCount        int `toml:"worker_count"`
	UnitWorkers        int `toml:"unit_workers"`
	InboxSettleSeconds int `toml:"inbox_settle_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format" env:"FORMAT"`
	Level         string `toml:"level" env:"LEVEL"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for Slidecast.
//
// Configuration sections by subsystem:
//   - Paths: staging/output/log/inbox directories and API bind address
//   - TTS: engine ordering, retry policy, silence fallback, per-engine credentials
//   - Video: slide clip rendering geometry and bitrate
//   - Subtitles: SRT generation and final mux behavior
//   - Notifications: ntfy push notification settings
//   - Workflow: daemon polling intervals, timeouts, and worker counts
//   - Logging: log format, level, and retention
type Config struct {
	Paths         Paths         `toml:"paths" envPrefix:"PATHS_"`
	TTS           TTS           `toml:"tts" envPrefix:"TTS_"`
	Video         Video         `toml:"video"`
	Subtitles     Subtitles     `toml:"subtitles"`
	Notifications Notifications `toml:"notifications" envPrefix:"NOTIFY_"`
	Workflow      Workflow      `toml:"workflow"`
	Logging       Logging       `toml:"logging" envPrefix:"LOG_"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/slidecast/config.toml")
}

// Load locates, parses, and validates a configuration file. Environment
// variables with the SLIDECAST_ prefix override file values. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "SLIDECAST_"}); err != nil {
		return nil, "", false, fmt.Errorf("apply env overrides: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("slidecast.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates required directories for daemon operation. The
// inbox directory is created best-effort since the watcher tolerates its
// absence.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.StagingDir, c.Paths.OutputDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.InboxDir) != "" {
		_ = os.MkdirAll(c.Paths.InboxDir, 0o755)
	}
	return nil
}

// FFmpegBinary returns the ffmpeg executable name used for rendering and muxing.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

// SofficeBinary returns the LibreOffice executable used for deck conversion.
func (c *Config) SofficeBinary() string {
	return "soffice"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
