package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"slidecast/internal/config"
)

const userAgent = "Slidecast-Go/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyDeckReceived(ctx context.Context, title string, slideCount int) error
	NotifyExtractionComplete(ctx context.Context, title string, slideCount int) error
	NotifySynthesisComplete(ctx context.Context, title, engine string) error
	NotifyDegradedAudio(ctx context.Context, title string, silentSlides int) error
	NotifyRenderComplete(ctx context.Context, title string) error
	NotifyJobComplete(ctx context.Context, title, finalFile string) error
	NotifyJobFailed(ctx context.Context, title, reason string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	dedup := time.Duration(cfg.Notifications.DedupWindowSeconds) * time.Second

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:      topic,
		client:        client,
		jobComplete:   cfg.Notifications.JobComplete,
		errors:        cfg.Notifications.Errors,
		degradedAudio: cfg.Notifications.DegradedAudio,
		dedupWindow:   dedup,
		recent:        make(map[string]time.Time),
		now:           time.Now,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint      string
	client        *http.Client
	jobComplete   bool
	errors        bool
	degradedAudio bool
	dedupWindow   time.Duration
	now           func() time.Time

	mu     sync.Mutex
	recent map[string]time.Time
}

func (n *ntfyService) NotifyDeckReceived(ctx context.Context, title string, slideCount int) error {
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Slidecast - Deck Received",
		message: fmt.Sprintf("Queued for narration: %s (%d slides)", title, slideCount),
		tags:    []string{"slidecast", "deck", "queued"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyExtractionComplete(ctx context.Context, title string, slideCount int) error {
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Slidecast - Extracted",
		message: fmt.Sprintf("Extracted %d slides from %s", slideCount, title),
		tags:    []string{"slidecast", "extract", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifySynthesisComplete(ctx context.Context, title, engine string) error {
	title = strings.TrimSpace(title)
	engine = strings.TrimSpace(engine)
	if engine == "" {
		engine = "unknown"
	}
	data := payload{
		title:   "Slidecast - Narration Ready",
		message: fmt.Sprintf("Narration synthesized for %s (engine: %s)", title, engine),
		tags:    []string{"slidecast", "synthesize", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDegradedAudio(ctx context.Context, title string, silentSlides int) error {
	if !n.degradedAudio {
		return nil
	}
	title = strings.TrimSpace(title)
	data := payload{
		title:    "Slidecast - Degraded Audio",
		message:  fmt.Sprintf("%d slide(s) in %s fell back to silence after all engines failed", silentSlides, title),
		tags:     []string{"slidecast", "synthesize", "degraded"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRenderComplete(ctx context.Context, title string) error {
	title = strings.TrimSpace(title)
	data := payload{
		title:   "Slidecast - Rendered",
		message: fmt.Sprintf("Slide clips rendered for %s", title),
		tags:    []string{"slidecast", "render", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobComplete(ctx context.Context, title, finalFile string) error {
	if !n.jobComplete {
		return nil
	}
	title = strings.TrimSpace(title)
	finalFile = strings.TrimSpace(finalFile)
	message := fmt.Sprintf("Video ready: %s", title)
	if finalFile != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, finalFile)
	}
	data := payload{
		title:    "Slidecast - Complete",
		message:  message,
		tags:     []string{"slidecast", "workflow", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, title, reason string) error {
	if !n.errors {
		return nil
	}
	title = strings.TrimSpace(title)
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "unknown"
	}
	data := payload{
		title:    "Slidecast - Failed",
		message:  fmt.Sprintf("Processing failed for %s: %s", title, reason),
		tags:     []string{"slidecast", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Slidecast - Error",
		message:  builder.String(),
		tags:     []string{"slidecast", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Slidecast - Test",
		message:  "Notification system test",
		tags:     []string{"slidecast", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

// shouldSend suppresses identical messages that repeat inside the configured
// dedup window. Failures that flap during retry loops otherwise spam the topic.
func (n *ntfyService) shouldSend(message string) bool {
	if n.dedupWindow <= 0 {
		return true
	}
	now := n.now()
	n.mu.Lock()
	defer n.mu.Unlock()
	if last, ok := n.recent[message]; ok && now.Sub(last) < n.dedupWindow {
		return false
	}
	for key, sent := range n.recent {
		if now.Sub(sent) >= n.dedupWindow {
			delete(n.recent, key)
		}
	}
	n.recent[message] = now
	return true
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}
	if !n.shouldSend(data.message) {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyDeckReceived(context.Context, string, int) error        { return nil }
func (noopService) NotifyExtractionComplete(context.Context, string, int) error  { return nil }
func (noopService) NotifySynthesisComplete(context.Context, string, string) error { return nil }
func (noopService) NotifyDegradedAudio(context.Context, string, int) error       { return nil }
func (noopService) NotifyRenderComplete(context.Context, string) error           { return nil }
func (noopService) NotifyJobComplete(context.Context, string, string) error      { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error        { return nil }
func (noopService) NotifyError(context.Context, error, string) error             { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
