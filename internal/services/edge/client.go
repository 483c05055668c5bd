// Package edge speaks the Microsoft Edge read-aloud websocket protocol. The
// service is credential-free, which makes it the default narration engine.
package edge

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"slidecast/internal/services"
)

const (
	defaultEndpoint = "wss://speech.platform.bing.com/consumer/speech/synthesize/readaloud/edge/v1"
	trustedToken    = "6A5AA1D4EAFF4E9FB37E23D68491D6F4"
	defaultTimeout  = 30 * time.Second
	audioFormat     = "audio-24khz-48kbitrate-mono-mp3"
	wsOrigin        = "chrome-extension://jdiccldimpdaibmpdkjnbmckianbfold"
	wsUserAgent     = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36 Edg/122.0.0.0"
)

// Config captures the runtime settings for the Edge speech service.
type Config struct {
	Voice          string
	Endpoint       string
	TimeoutSeconds int
}

// Client synthesizes speech over a websocket session, one session per call.
type Client struct {
	cfg    Config
	dialer *websocket.Dialer
	newID  func() string
}

// Option customizes the client.
type Option func(*Client)

// WithDialer overrides the websocket dialer.
func WithDialer(dialer *websocket.Dialer) Option {
	return func(c *Client) {
		if dialer != nil {
			c.dialer = dialer
		}
	}
}

// WithRequestIDSource overrides request ID generation, useful for tests.
func WithRequestIDSource(source func() string) Option {
	return func(c *Client) {
		if source != nil {
			c.newID = source
		}
	}
}

// NewClient constructs an Edge speech client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			Voice:          strings.TrimSpace(cfg.Voice),
			Endpoint:       strings.TrimSpace(cfg.Endpoint),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		dialer: &websocket.Dialer{HandshakeTimeout: timeout},
		newID:  func() string { return strings.ReplaceAll(uuid.NewString(), "-", "") },
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.Endpoint == "" {
		client.cfg.Endpoint = defaultEndpoint
	}
	if client.cfg.Voice == "" {
		client.cfg.Voice = "en-US-AriaNeural"
	}
	return client
}

// Synthesize renders text to an MP3 file at outputPath. Rate and pitch use
// the readaloud percentage and hertz offsets, defaulting to neutral.
func (c *Client) Synthesize(ctx context.Context, text, language, voice, ssmlRate, ssmlPitch, outputPath string) error {
	if strings.TrimSpace(text) == "" {
		return services.Wrap(services.ErrValidation, "synthesize", "edge", "text required", nil)
	}
	if voice = strings.TrimSpace(voice); voice == "" {
		voice = c.cfg.Voice
	}
	if language = strings.TrimSpace(language); language == "" {
		language = "en-US"
	}
	if ssmlRate = strings.TrimSpace(ssmlRate); ssmlRate == "" {
		ssmlRate = "+0%"
	}
	if ssmlPitch = strings.TrimSpace(ssmlPitch); ssmlPitch == "" {
		ssmlPitch = "+0Hz"
	}

	endpoint := fmt.Sprintf("%s?TrustedClientToken=%s&ConnectionId=%s", c.cfg.Endpoint, trustedToken, c.newID())
	header := http.Header{}
	header.Set("Origin", wsOrigin)
	header.Set("User-Agent", wsUserAgent)

	conn, resp, err := c.dialer.DialContext(ctx, endpoint, header)
	if err != nil {
		if resp != nil && resp.StatusCode != 0 {
			return services.Wrap(services.MarkerForHTTPStatus(resp.StatusCode), "synthesize", "edge",
				fmt.Sprintf("handshake rejected: http %d", resp.StatusCode), err)
		}
		return services.Wrap(services.ErrTransient, "synthesize", "edge", "dial", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetReadDeadline(deadline)
		_ = conn.SetWriteDeadline(deadline)
	}

	requestID := c.newID()
	if err := conn.WriteMessage(websocket.TextMessage, []byte(speechConfigMessage())); err != nil {
		return services.Wrap(services.ErrTransient, "synthesize", "edge", "send speech config", err)
	}
	ssml := buildSSML(language, voice, ssmlRate, ssmlPitch, text)
	if err := conn.WriteMessage(websocket.TextMessage, []byte(ssmlMessage(requestID, ssml))); err != nil {
		return services.Wrap(services.ErrTransient, "synthesize", "edge", "send ssml", err)
	}

	audio, err := collectAudio(conn)
	if err != nil {
		return services.Wrap(services.ErrTransient, "synthesize", "edge", "receive audio", err)
	}
	if len(audio) == 0 {
		return services.Wrap(services.ErrTransient, "synthesize", "edge", "no audio frames received", nil)
	}

	if err := os.WriteFile(outputPath, audio, 0o644); err != nil {
		return services.Wrap(services.ErrExternalTool, "synthesize", "edge", "write output", err)
	}
	return nil
}

// collectAudio drains the session until turn.end. Binary frames carry a
// big-endian header length followed by the header and the audio payload.
func collectAudio(conn *websocket.Conn) ([]byte, error) {
	var audio bytes.Buffer
	for {
		messageType, payload, err := conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		switch messageType {
		case websocket.TextMessage:
			if strings.Contains(string(payload), "Path:turn.end") {
				return audio.Bytes(), nil
			}
		case websocket.BinaryMessage:
			if len(payload) < 2 {
				continue
			}
			headerLen := int(binary.BigEndian.Uint16(payload[:2]))
			if len(payload) < 2+headerLen {
				continue
			}
			header := string(payload[2 : 2+headerLen])
			if !strings.Contains(header, "Path:audio") {
				continue
			}
			audio.Write(payload[2+headerLen:])
		}
	}
}

func speechConfigMessage() string {
	config := `{"context":{"synthesis":{"audio":{"metadataoptions":{"sentenceBoundaryEnabled":"false","wordBoundaryEnabled":"false"},"outputFormat":"` + audioFormat + `"}}}}`
	return "X-Timestamp:" + timestamp() + "\r\n" +
		"Content-Type:application/json; charset=utf-8\r\n" +
		"Path:speech.config\r\n\r\n" + config
}

func ssmlMessage(requestID, ssml string) string {
	return "X-RequestId:" + requestID + "\r\n" +
		"Content-Type:application/ssml+xml\r\n" +
		"X-Timestamp:" + timestamp() + "\r\n" +
		"Path:ssml\r\n\r\n" + ssml
}

func buildSSML(language, voice, rate, pitch, text string) string {
	var builder strings.Builder
	builder.WriteString(`<speak version='1.0' xmlns='http://www.w3.org/2001/10/synthesis' xml:lang='`)
	builder.WriteString(language)
	builder.WriteString(`'><voice name='`)
	builder.WriteString(voice)
	builder.WriteString(`'><prosody pitch='`)
	builder.WriteString(pitch)
	builder.WriteString(`' rate='`)
	builder.WriteString(rate)
	builder.WriteString(`' volume='+0%'>`)
	builder.WriteString(escapeXML(text))
	builder.WriteString(`</prosody></voice></speak>`)
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

func timestamp() string {
	return time.Now().UTC().Format("Mon Jan 02 2006 15:04:05 GMT+0000 (Coordinated Universal Time)")
}
