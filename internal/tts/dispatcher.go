package tts

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"slidecast/internal/config"
	"slidecast/internal/logging"
	"slidecast/internal/services"
)

const (
	defaultMaxAttempts    = 3
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
)

// Dispatcher turns speech units into audio clips by walking the enabled
// engines in priority order with bounded retries, falling back to generated
// silence when every engine fails.
type Dispatcher struct {
	registry *Registry
	logger   *slog.Logger

	preferred      string
	language       string
	maxAttempts    int
	baseDelay      time.Duration
	maxDelay       time.Duration
	sampleRate     int
	silenceMin     float64
	silenceCharsPS float64
	limiters       map[string]*rate.Limiter
	sleeper        func(context.Context, time.Duration) error
	defaultRate    string
	defaultPitch   string
}

// DispatcherOption customizes dispatcher behavior, mostly for tests.
type DispatcherOption func(*Dispatcher)

// WithSleeper overrides how backoff waits are performed.
func WithSleeper(sleeper func(context.Context, time.Duration) error) DispatcherOption {
	return func(d *Dispatcher) {
		if sleeper != nil {
			d.sleeper = sleeper
		}
	}
}

// WithDispatcherLogger attaches a logger for per-attempt diagnostics.
func WithDispatcherLogger(logger *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// NewDispatcher builds a dispatcher from configuration and a registry.
func NewDispatcher(cfg *config.Config, registry *Registry, opts ...DispatcherOption) *Dispatcher {
	dispatcher := &Dispatcher{
		registry:       registry,
		logger:         logging.NewNop(),
		preferred:      strings.ToLower(strings.TrimSpace(cfg.TTS.PreferredEngine)),
		language:       cfg.TTS.Language,
		maxAttempts:    cfg.TTS.MaxAttempts,
		baseDelay:      time.Duration(cfg.TTS.RetryBaseDelayMS) * time.Millisecond,
		maxDelay:       time.Duration(cfg.TTS.RetryMaxDelayMS) * time.Millisecond,
		sampleRate:     cfg.TTS.SampleRate,
		silenceMin:     cfg.TTS.SilenceMinSeconds,
		silenceCharsPS: cfg.TTS.SilenceCharsPerSecond,
		limiters:       make(map[string]*rate.Limiter),
		defaultRate:    cfg.TTS.Rate,
		defaultPitch:   cfg.TTS.Pitch,
	}
	if dispatcher.maxAttempts <= 0 {
		dispatcher.maxAttempts = defaultMaxAttempts
	}
	if dispatcher.baseDelay <= 0 {
		dispatcher.baseDelay = defaultRetryBaseDelay
	}
	if dispatcher.maxDelay <= 0 {
		dispatcher.maxDelay = defaultRetryMaxDelay
	}

	limit := rate.Inf
	if cfg.TTS.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.TTS.RequestsPerSecond)
	}
	for _, descriptor := range registry.List() {
		dispatcher.limiters[descriptor.Name] = rate.NewLimiter(limit, 1)
	}

	for _, opt := range opts {
		opt(dispatcher)
	}
	return dispatcher
}

// Candidates returns the default dispatch order: the configured preferred
// engine first when enabled, then the remaining enabled engines in registry
// order. A unit's own preference takes precedence during Synthesize.
func (d *Dispatcher) Candidates() []string {
	return d.candidatesFor("")
}

func (d *Dispatcher) candidatesFor(unitPreferred string) []string {
	preferred := strings.ToLower(strings.TrimSpace(unitPreferred))
	if preferred == "" {
		preferred = d.preferred
	}
	enabled := d.registry.ListEnabled()
	out := make([]string, 0, len(enabled))
	if preferred != "" {
		if descriptor, ok := d.registry.Describe(preferred); ok && descriptor.Enabled {
			out = append(out, preferred)
		}
	}
	for _, descriptor := range enabled {
		if len(out) > 0 && descriptor.Name == out[0] {
			continue
		}
		out = append(out, descriptor.Name)
	}
	return out
}

// Synthesize produces exactly one outcome for a unit. Engine failures are
// absorbed into fallback; only a failure to write the silence clip itself
// surfaces in the outcome's Error field.
func (d *Dispatcher) Synthesize(ctx context.Context, unit SpeechUnit) Outcome {
	outcome := Outcome{SlideIndex: unit.Index}

	text := CleanText(unit.Text)
	if text == "" {
		duration := SilenceDuration("", d.silenceMin, d.silenceCharsPS)
		return d.silenceOutcome(outcome, unit.OutputPath, duration)
	}

	req := Request{
		Text:       text,
		Language:   NormalizeLanguage(unit.Language, d.language),
		Voice:      unit.Voice,
		Rate:       unit.Rate,
		Pitch:      unit.Pitch,
		OutputPath: unit.OutputPath,
	}
	if req.Rate == "" {
		req.Rate = d.defaultRate
	}
	if req.Pitch == "" {
		req.Pitch = d.defaultPitch
	}

	tried := 0
	for _, name := range d.candidatesFor(unit.Engine) {
		engine, ok := d.registry.Engine(name)
		if !ok {
			continue
		}
		clip, attempts, err := d.attemptEngine(ctx, name, engine, req)
		outcome.Attempts += attempts
		if err == nil {
			outcome.Engine = name
			outcome.Path = clip.Path
			outcome.Duration = Seconds(clip.Duration)
			outcome.FallbackChain = tried
			return outcome
		}
		tried++
		outcome.EngineErrors = append(outcome.EngineErrors, name+": "+strings.TrimSpace(services.Details(err).Message))
		d.logger.Warn(
			"speech engine exhausted",
			logging.String(logging.FieldEngine, name),
			logging.Int(logging.FieldSlide, unit.Index),
			logging.Int("attempts", attempts),
			logging.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}

	duration := SilenceDuration(text, d.silenceMin, d.silenceCharsPS)
	outcome.FallbackChain = tried
	return d.silenceOutcome(outcome, unit.OutputPath, duration)
}

// silenceOutcome fills the unit with generated silence. Silence is always a
// degraded success, whether the unit had no text or every engine failed.
func (d *Dispatcher) silenceOutcome(outcome Outcome, path string, duration time.Duration) Outcome {
	if err := WriteSilenceWAV(path, duration, d.sampleRate); err != nil {
		outcome.Error = err.Error()
		return outcome
	}
	outcome.Engine = SilenceEngine
	outcome.Path = path
	outcome.Duration = Seconds(duration)
	outcome.Degraded = true
	return outcome
}

// attemptEngine retries a single engine until success, a permanent error, or
// the retry budget runs out. Unclassified errors are treated as transient.
func (d *Dispatcher) attemptEngine(ctx context.Context, name string, engine Engine, req Request) (Clip, int, error) {
	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= d.maxAttempts; attempt++ {
		if limiter, ok := d.limiters[name]; ok {
			if err := limiter.Wait(ctx); err != nil {
				return Clip{}, attempts, err
			}
		}
		attempts++
		clip, err := engine.Synthesize(ctx, req)
		if err == nil {
			return clip, attempts, nil
		}
		lastErr = err
		if services.IsPermanent(err) || ctx.Err() != nil {
			return Clip{}, attempts, err
		}
		if attempt < d.maxAttempts {
			if err := d.wait(ctx, d.backoffDelay(attempt)); err != nil {
				return Clip{}, attempts, lastErr
			}
		}
	}
	return Clip{}, attempts, lastErr
}

// backoffDelay doubles from the base delay per retry, capped at the maximum.
func (d *Dispatcher) backoffDelay(attempt int) time.Duration {
	delay := d.baseDelay
	for i := 1; i < attempt; i++ {
		if delay > d.maxDelay/2 {
			return d.maxDelay
		}
		delay *= 2
	}
	if delay > d.maxDelay {
		return d.maxDelay
	}
	return delay
}

func (d *Dispatcher) wait(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if d.sleeper != nil {
		return d.sleeper(ctx, delay)
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
