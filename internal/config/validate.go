package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateTTS(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.queue_poll_interval":  c.Workflow.QueuePollInterval,
		"workflow.error_retry_interval": c.Workflow.ErrorRetryInterval,
		"workflow.stage_timeout":        c.Workflow.StageTimeout,
		"workflow.worker_count":         c.Workflow.WorkerCount,
		"workflow.unit_workers":         c.Workflow.UnitWorkers,
	}); err != nil {
		return err
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		return errors.New("workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= 0 {
		return errors.New("workflow.heartbeat_timeout must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		return errors.New("workflow.heartbeat_timeout must be greater than workflow.heartbeat_interval")
	}
	if c.Workflow.InboxSettleSeconds < 0 {
		return errors.New("workflow.inbox_settle_seconds must be >= 0")
	}
	return nil
}

func (c *Config) validateTTS() error {
	known := make(map[string]struct{}, len(EngineNames))
	for _, name := range EngineNames {
		known[name] = struct{}{}
	}
	for _, name := range c.TTS.EngineOrder {
		if _, ok := known[name]; !ok {
			return fmt.Errorf("tts.engine_order: unknown engine %q", name)
		}
	}
	if c.TTS.PreferredEngine != "" {
		if _, ok := known[c.TTS.PreferredEngine]; !ok {
			return fmt.Errorf("tts.preferred_engine: unknown engine %q", c.TTS.PreferredEngine)
		}
	}
	if err := ensurePositiveMap(map[string]int{
		"tts.max_attempts":        c.TTS.MaxAttempts,
		"tts.retry_base_delay_ms": c.TTS.RetryBaseDelayMS,
		"tts.request_timeout":     c.TTS.RequestTimeout,
		"tts.sample_rate":         c.TTS.SampleRate,
	}); err != nil {
		return err
	}
	if c.TTS.RetryMaxDelayMS < c.TTS.RetryBaseDelayMS {
		return errors.New("tts.retry_max_delay_ms must be >= tts.retry_base_delay_ms")
	}
	if c.TTS.SilenceMinSeconds <= 0 {
		return errors.New("tts.silence_min_seconds must be positive")
	}
	if c.TTS.SilenceCharsPerSecond <= 0 {
		return errors.New("tts.silence_chars_per_second must be positive")
	}
	if c.TTS.RequestsPerSecond <= 0 {
		return errors.New("tts.requests_per_second must be positive")
	}
	return nil
}

func (c *Config) validateVideo() error {
	return ensurePositiveMap(map[string]int{
		"video.width":  c.Video.Width,
		"video.height": c.Video.Height,
		"video.fps":    c.Video.FPS,
	})
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	if c.Notifications.DedupWindowSeconds < 0 {
		return errors.New("notifications.dedup_window_seconds must be >= 0")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
