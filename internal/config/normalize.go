package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeTTS()
	c.normalizeVideo()
	c.normalizeSubtitles()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.StagingDir, err = expandPath(c.Paths.StagingDir); err != nil {
		return fmt.Errorf("paths.staging_dir: %w", err)
	}
	if c.Paths.OutputDir, err = expandPath(c.Paths.OutputDir); err != nil {
		return fmt.Errorf("paths.output_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.InboxDir) != "" {
		if c.Paths.InboxDir, err = expandPath(c.Paths.InboxDir); err != nil {
			return fmt.Errorf("paths.inbox_dir: %w", err)
		}
	}
	c.Paths.APIBind = strings.TrimSpace(c.Paths.APIBind)
	if c.Paths.APIBind == "" {
		c.Paths.APIBind = defaultAPIBind
	}
	return nil
}

func (c *Config) normalizeTTS() {
	order := make([]string, 0, len(c.TTS.EngineOrder))
	seen := make(map[string]struct{}, len(c.TTS.EngineOrder))
	for _, name := range c.TTS.EngineOrder {
		normalized := strings.ToLower(strings.TrimSpace(name))
		if normalized == "" {
			continue
		}
		if _, exists := seen[normalized]; exists {
			continue
		}
		seen[normalized] = struct{}{}
		order = append(order, normalized)
	}
	if len(order) == 0 {
		order = append(order, EngineNames...)
	}
	c.TTS.EngineOrder = order
	c.TTS.PreferredEngine = strings.ToLower(strings.TrimSpace(c.TTS.PreferredEngine))

	c.TTS.Language = strings.TrimSpace(c.TTS.Language)
	if c.TTS.Language == "" {
		c.TTS.Language = defaultTTSLanguage
	}
	if c.TTS.MaxAttempts <= 0 {
		c.TTS.MaxAttempts = defaultMaxAttempts
	}
	if c.TTS.RetryBaseDelayMS <= 0 {
		c.TTS.RetryBaseDelayMS = defaultRetryBaseMS
	}
	if c.TTS.RetryMaxDelayMS < c.TTS.RetryBaseDelayMS {
		c.TTS.RetryMaxDelayMS = defaultRetryMaxMS
	}
	if c.TTS.RequestTimeout <= 0 {
		c.TTS.RequestTimeout = defaultTTSTimeout
	}
	if c.TTS.RequestsPerSecond <= 0 {
		c.TTS.RequestsPerSecond = defaultRequestsPS
	}
	if c.TTS.SilenceMinSeconds <= 0 {
		c.TTS.SilenceMinSeconds = defaultSilenceFloor
	}
	if c.TTS.SilenceCharsPerSecond <= 0 {
		c.TTS.SilenceCharsPerSecond = defaultCharsPerSec
	}
	if c.TTS.SampleRate <= 0 {
		c.TTS.SampleRate = defaultSampleRate
	}

	c.TTS.Edge.Voice = strings.TrimSpace(c.TTS.Edge.Voice)
	if c.TTS.Edge.Voice == "" {
		c.TTS.Edge.Voice = defaultEdgeVoice
	}

	c.TTS.Fish.APIKey = strings.TrimSpace(c.TTS.Fish.APIKey)
	if c.TTS.Fish.APIKey == "" {
		if value, ok := os.LookupEnv("FISH_AUDIO_API_KEY"); ok {
			c.TTS.Fish.APIKey = strings.TrimSpace(value)
		}
	}
	c.TTS.Fish.BaseURL = strings.TrimSpace(c.TTS.Fish.BaseURL)
	if c.TTS.Fish.BaseURL == "" {
		c.TTS.Fish.BaseURL = defaultFishBaseURL
	}

	c.TTS.OpenAI.APIKey = strings.TrimSpace(c.TTS.OpenAI.APIKey)
	if c.TTS.OpenAI.APIKey == "" {
		if value, ok := os.LookupEnv("OPENAI_API_KEY"); ok {
			c.TTS.OpenAI.APIKey = strings.TrimSpace(value)
		}
	}
	c.TTS.OpenAI.BaseURL = strings.TrimSpace(c.TTS.OpenAI.BaseURL)
	if c.TTS.OpenAI.BaseURL == "" {
		c.TTS.OpenAI.BaseURL = defaultOpenAIURL
	}
	c.TTS.OpenAI.Model = strings.TrimSpace(c.TTS.OpenAI.Model)
	if c.TTS.OpenAI.Model == "" {
		c.TTS.OpenAI.Model = defaultOpenAIModel
	}
	c.TTS.OpenAI.Voice = strings.TrimSpace(c.TTS.OpenAI.Voice)
	if c.TTS.OpenAI.Voice == "" {
		c.TTS.OpenAI.Voice = defaultOpenAIVoice
	}

	c.TTS.Azure.SubscriptionKey = strings.TrimSpace(c.TTS.Azure.SubscriptionKey)
	if c.TTS.Azure.SubscriptionKey == "" {
		if value, ok := os.LookupEnv("AZURE_SPEECH_KEY"); ok {
			c.TTS.Azure.SubscriptionKey = strings.TrimSpace(value)
		}
	}
	c.TTS.Azure.Region = strings.TrimSpace(c.TTS.Azure.Region)
	if c.TTS.Azure.Region == "" {
		if value, ok := os.LookupEnv("AZURE_SPEECH_REGION"); ok {
			c.TTS.Azure.Region = strings.TrimSpace(value)
		}
	}
	c.TTS.Azure.Voice = strings.TrimSpace(c.TTS.Azure.Voice)
	if c.TTS.Azure.Voice == "" {
		c.TTS.Azure.Voice = defaultAzureVoice
	}
}

func (c *Config) normalizeVideo() {
	if c.Video.Width <= 0 {
		c.Video.Width = defaultVideoWidth
	}
	if c.Video.Height <= 0 {
		c.Video.Height = defaultVideoHeight
	}
	if c.Video.FPS <= 0 {
		c.Video.FPS = defaultVideoFPS
	}
	c.Video.Bitrate = strings.TrimSpace(c.Video.Bitrate)
	if c.Video.Bitrate == "" {
		c.Video.Bitrate = defaultVideoBitrate
	}
	c.Video.Preset = strings.TrimSpace(c.Video.Preset)
	if c.Video.Preset == "" {
		c.Video.Preset = defaultVideoPreset
	}
}

func (c *Config) normalizeSubtitles() {
	if c.Subtitles.MaxLineLength <= 0 {
		c.Subtitles.MaxLineLength = defaultMaxLineLength
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
