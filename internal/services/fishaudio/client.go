// Package fishaudio wraps the Fish Audio speech synthesis API.
package fishaudio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"slidecast/internal/services"
)

const defaultHTTPTimeout = 30 * time.Second

// Config captures the runtime settings required to talk to Fish Audio.
type Config struct {
	APIKey         string
	BaseURL        string
	ModelID        string
	TimeoutSeconds int
}

// Client issues single-shot synthesis requests; retry policy belongs to the
// dispatcher.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// NewClient constructs a Fish Audio client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIKey:         strings.TrimSpace(cfg.APIKey),
			BaseURL:        strings.TrimSpace(cfg.BaseURL),
			ModelID:        strings.TrimSpace(cfg.ModelID),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = "https://api.fish.audio/v1"
	}
	return client
}

type synthesisRequest struct {
	Text        string `json:"text"`
	Format      string `json:"format"`
	Normalize   bool   `json:"normalize"`
	ReferenceID string `json:"reference_id,omitempty"`
}

// Synthesize renders text to a WAV file at outputPath.
func (c *Client) Synthesize(ctx context.Context, text, outputPath string) error {
	if strings.TrimSpace(text) == "" {
		return services.Wrap(services.ErrValidation, "synthesize", "fish", "text required", nil)
	}
	if c.cfg.APIKey == "" {
		return services.Wrap(services.ErrConfiguration, "synthesize", "fish", "api key required", nil)
	}

	endpoint, err := url.JoinPath(c.cfg.BaseURL, "tts")
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "synthesize", "fish", "build url", err)
	}
	encoded, err := json.Marshal(synthesisRequest{
		Text:        text,
		Format:      "wav",
		Normalize:   true,
		ReferenceID: c.cfg.ModelID,
	})
	if err != nil {
		return services.Wrap(services.ErrValidation, "synthesize", "fish", "encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return services.Wrap(services.ErrValidation, "synthesize", "fish", "build request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "synthesize", "fish", "http error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		message := fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return services.Wrap(services.MarkerForHTTPStatus(resp.StatusCode), "synthesize", "fish", message, nil)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "synthesize", "fish", "create output", err)
	}
	defer file.Close()
	if _, err := io.Copy(file, resp.Body); err != nil {
		return services.Wrap(services.ErrTransient, "synthesize", "fish", "stream audio", err)
	}
	if err := file.Close(); err != nil {
		return services.Wrap(services.ErrExternalTool, "synthesize", "fish", "close output", err)
	}
	return nil
}
