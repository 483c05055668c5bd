package tts

import (
	"context"
	"time"

	"slidecast/internal/config"
	"slidecast/internal/services/azuretts"
	"slidecast/internal/services/edge"
	"slidecast/internal/services/fishaudio"
	"slidecast/internal/services/openaitts"
)

// DurationProber measures the playable duration of a finished clip. The
// ffmpeg CLI client satisfies this.
type DurationProber interface {
	AudioDuration(ctx context.Context, path string) (time.Duration, error)
}

// BuildRegistry constructs the production engine clients and registers them
// against the configured descriptors.
func BuildRegistry(cfg *config.Config, prober DurationProber) *Registry {
	registry := NewRegistry(cfg)

	registry.Register("edge", &edgeEngine{
		client: edge.NewClient(edge.Config{
			Voice:          cfg.TTS.Edge.Voice,
			TimeoutSeconds: cfg.TTS.RequestTimeout,
		}),
		prober: prober,
	})
	registry.Register("fish", &fishEngine{
		client: fishaudio.NewClient(fishaudio.Config{
			APIKey:         cfg.TTS.Fish.APIKey,
			BaseURL:        cfg.TTS.Fish.BaseURL,
			ModelID:        cfg.TTS.Fish.ModelID,
			TimeoutSeconds: cfg.TTS.RequestTimeout,
		}),
		prober: prober,
	})
	registry.Register("openai", &openaiEngine{
		client: openaitts.NewClient(openaitts.Config{
			APIKey:         cfg.TTS.OpenAI.APIKey,
			BaseURL:        cfg.TTS.OpenAI.BaseURL,
			Model:          cfg.TTS.OpenAI.Model,
			Voice:          cfg.TTS.OpenAI.Voice,
			TimeoutSeconds: cfg.TTS.RequestTimeout,
		}),
		prober: prober,
	})
	registry.Register("azure", &azureEngine{
		client: azuretts.NewClient(azuretts.Config{
			SubscriptionKey: cfg.TTS.Azure.SubscriptionKey,
			Region:          cfg.TTS.Azure.Region,
			Voice:           cfg.TTS.Azure.Voice,
			TimeoutSeconds:  cfg.TTS.RequestTimeout,
		}),
		prober: prober,
	})

	return registry
}

type edgeEngine struct {
	client *edge.Client
	prober DurationProber
}

func (e *edgeEngine) Synthesize(ctx context.Context, req Request) (Clip, error) {
	if err := e.client.Synthesize(ctx, req.Text, req.Language, req.Voice, req.Rate, req.Pitch, req.OutputPath); err != nil {
		return Clip{}, err
	}
	return probedClip(ctx, e.prober, req.OutputPath)
}

type fishEngine struct {
	client *fishaudio.Client
	prober DurationProber
}

func (e *fishEngine) Synthesize(ctx context.Context, req Request) (Clip, error) {
	if err := e.client.Synthesize(ctx, req.Text, req.OutputPath); err != nil {
		return Clip{}, err
	}
	return probedClip(ctx, e.prober, req.OutputPath)
}

type openaiEngine struct {
	client *openaitts.Client
	prober DurationProber
}

func (e *openaiEngine) Synthesize(ctx context.Context, req Request) (Clip, error) {
	if err := e.client.Synthesize(ctx, req.Text, req.Voice, req.OutputPath); err != nil {
		return Clip{}, err
	}
	return probedClip(ctx, e.prober, req.OutputPath)
}

type azureEngine struct {
	client *azuretts.Client
	prober DurationProber
}

func (e *azureEngine) Synthesize(ctx context.Context, req Request) (Clip, error) {
	if err := e.client.Synthesize(ctx, req.Text, req.Language, req.Voice, req.OutputPath); err != nil {
		return Clip{}, err
	}
	return probedClip(ctx, e.prober, req.OutputPath)
}

func probedClip(ctx context.Context, prober DurationProber, path string) (Clip, error) {
	duration, err := prober.AudioDuration(ctx, path)
	if err != nil {
		return Clip{}, err
	}
	return Clip{Path: path, Duration: duration}, nil
}
