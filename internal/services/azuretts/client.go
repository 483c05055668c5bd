// Package azuretts wraps the Azure Cognitive Services speech synthesis API.
package azuretts

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"slidecast/internal/services"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	outputFormat       = "riff-22050hz-16bit-mono-pcm"
	userAgent          = "Slidecast-Go/0.1.0"
)

// Config captures the runtime settings required to talk to Azure speech.
// Endpoint overrides the region-derived URL, mainly for tests.
type Config struct {
	SubscriptionKey string
	Region          string
	Voice           string
	Endpoint        string
	TimeoutSeconds  int
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

// NewClient constructs an Azure speech client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			SubscriptionKey: strings.TrimSpace(cfg.SubscriptionKey),
			Region:          strings.TrimSpace(cfg.Region),
			Voice:           strings.TrimSpace(cfg.Voice),
			Endpoint:        strings.TrimSpace(cfg.Endpoint),
			TimeoutSeconds:  cfg.TimeoutSeconds,
		},
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

func (c *Client) endpoint() string {
	if c.cfg.Endpoint != "" {
		return c.cfg.Endpoint
	}
	return fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", c.cfg.Region)
}

// Synthesize renders text to a PCM WAV file at outputPath. Voice and language
// overrides take precedence over the configured defaults.
func (c *Client) Synthesize(ctx context.Context, text, language, voice, outputPath string) error {
	if strings.TrimSpace(text) == "" {
		return services.Wrap(services.ErrValidation, "synthesize", "azure", "text required", nil)
	}
	if c.cfg.SubscriptionKey == "" || (c.cfg.Region == "" && c.cfg.Endpoint == "") {
		return services.Wrap(services.ErrConfiguration, "synthesize", "azure", "subscription key and region required", nil)
	}
	if voice = strings.TrimSpace(voice); voice == "" {
		voice = c.cfg.Voice
	}
	if language = strings.TrimSpace(language); language == "" {
		language = "en-US"
	}

	ssml := buildSSML(language, voice, text)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), strings.NewReader(ssml))
	if err != nil {
		return services.Wrap(services.ErrValidation, "synthesize", "azure", "build request", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.cfg.SubscriptionKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", outputFormat)
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrTransient, "synthesize", "azure", "http error", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		message := fmt.Sprintf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
		return services.Wrap(services.MarkerForHTTPStatus(resp.StatusCode), "synthesize", "azure", message, nil)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "synthesize", "azure", "create output", err)
	}
	defer file.Close()
	if _, err := io.Copy(file, resp.Body); err != nil {
		return services.Wrap(services.ErrTransient, "synthesize", "azure", "stream audio", err)
	}
	if err := file.Close(); err != nil {
		return services.Wrap(services.ErrExternalTool, "synthesize", "azure", "close output", err)
	}
	return nil
}

func buildSSML(language, voice, text string) string {
	var builder strings.Builder
	builder.WriteString(`<speak version='1.0' xml:lang='`)
	builder.WriteString(language)
	builder.WriteString(`'><voice name='`)
	builder.WriteString(voice)
	builder.WriteString(`'>`)
	builder.WriteString(escapeXML(text))
	builder.WriteString(`</voice></speak>`)
	return builder.String()
}

func escapeXML(text string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		`"`, "&quot;",
		"'", "&apos;",
	)
	return replacer.Replace(text)
}
