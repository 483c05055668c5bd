package daemon

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"log/slog"

	"github.com/fsnotify/fsnotify"

	"slidecast/internal/config"
	"slidecast/internal/logging"
	"slidecast/internal/queue"
)

// deckSubmitter enqueues a deck for processing. Satisfied by the daemon;
// tests substitute a recorder.
type deckSubmitter interface {
	Submit(ctx context.Context, sourcePath string, params queue.VoiceParams) (*queue.Job, error)
}

// deckLookup answers whether a source path is already queued.
type deckLookup interface {
	FindBySourcePath(ctx context.Context, sourcePath string) (*queue.Job, error)
}

type pendingDeck struct {
	size   int64
	stable time.Time
}

// inboxMonitor watches the inbox directory and auto-submits presentation
// decks once their size has been stable for the settle window. Files still
// being copied grow between sweeps and are left alone.
type inboxMonitor struct {
	cfg       *config.Config
	logger    *slog.Logger
	submitter deckSubmitter
	lookup    deckLookup

	dir    string
	settle time.Duration
	sweep  time.Duration

	mu      sync.Mutex
	pending map[string]pendingDeck
	running bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func newInboxMonitor(cfg *config.Config, d *Daemon, logger *slog.Logger) *inboxMonitor {
	if cfg == nil || d == nil {
		return nil
	}
	dir := strings.TrimSpace(cfg.Paths.InboxDir)
	if dir == "" {
		return nil
	}

	settle := time.Duration(cfg.Workflow.InboxSettleSeconds) * time.Second
	if settle <= 0 {
		settle = 2 * time.Second
	}

	monitorLogger := logger
	if monitorLogger != nil {
		monitorLogger = monitorLogger.With(logging.String(logging.FieldComponent, "inbox-monitor"))
	}

	return &inboxMonitor{
		cfg:       cfg,
		logger:    monitorLogger,
		submitter: d,
		lookup:    d.store,
		dir:       dir,
		settle:    settle,
		sweep:     settle / 2,
		pending:   make(map[string]pendingDeck),
	}
}

func (m *inboxMonitor) Start(ctx context.Context) error {
	if m == nil {
		return errors.New("inbox monitor unavailable")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return errors.New("inbox monitor already running")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := watcher.Add(m.dir); err != nil {
		_ = watcher.Close()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	m.ctx = runCtx
	m.cancel = cancel
	m.running = true

	m.wg.Add(1)
	go m.loop(watcher)
	return nil
}

func (m *inboxMonitor) Stop() {
	if m == nil {
		return
	}
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	m.wg.Wait()
}

func (m *inboxMonitor) loop(watcher *fsnotify.Watcher) {
	defer m.wg.Done()
	defer watcher.Close()

	m.scanExisting()

	sweep := m.sweep
	if sweep <= 0 {
		sweep = time.Second
	}
	ticker := time.NewTicker(sweep)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				m.markPending(event.Name)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			m.log().Warn("inbox watch error",
				logging.Error(err),
				logging.String(logging.FieldEventType, "inbox_watch_error"),
				logging.String(logging.FieldErrorHint, "check inbox directory permissions"))
		case <-ticker.C:
			m.sweepPending()
		}
	}
}

// scanExisting queues decks already present when the daemon starts.
func (m *inboxMonitor) scanExisting() {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		m.log().Warn("inbox scan failed",
			logging.Error(err),
			logging.String(logging.FieldEventType, "inbox_scan_failed"),
			logging.String(logging.FieldErrorHint, "check inbox_dir in config"))
		return
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		m.markPending(filepath.Join(m.dir, entry.Name()))
	}
}

func (m *inboxMonitor) markPending(path string) {
	if strings.ToLower(filepath.Ext(path)) != ".pptx" {
		return
	}
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.pending[path]
	if ok && existing.size == info.Size() {
		return
	}
	m.pending[path] = pendingDeck{size: info.Size(), stable: time.Now()}
}

func (m *inboxMonitor) sweepPending() {
	ctx := m.ctx
	if ctx == nil {
		return
	}

	m.mu.Lock()
	candidates := make(map[string]pendingDeck, len(m.pending))
	for path, deck := range m.pending {
		candidates[path] = deck
	}
	m.mu.Unlock()

	now := time.Now()
	for path, deck := range candidates {
		info, err := os.Stat(path)
		if err != nil {
			m.forget(path)
			continue
		}
		if info.Size() != deck.size {
			m.markPending(path)
			continue
		}
		if now.Sub(deck.stable) < m.settle {
			continue
		}
		m.forget(path)
		m.submit(ctx, path)
	}
}

func (m *inboxMonitor) forget(path string) {
	m.mu.Lock()
	delete(m.pending, path)
	m.mu.Unlock()
}

func (m *inboxMonitor) submit(ctx context.Context, path string) {
	if m.lookup != nil {
		if existing, err := m.lookup.FindBySourcePath(ctx, path); err == nil && existing != nil && !existing.IsTerminal() {
			m.log().Debug("deck already queued, skipping",
				logging.Int64(logging.FieldJobID, existing.ID),
				logging.String("source", path))
			return
		}
	}

	job, err := m.submitter.Submit(ctx, path, queue.VoiceParams{})
	if err != nil {
		m.log().Warn("inbox deck submission failed",
			logging.Error(err),
			logging.String("source", path),
			logging.String(logging.FieldEventType, "inbox_submit_failed"),
			logging.String(logging.FieldImpact, "deck will not be narrated"),
			logging.String(logging.FieldErrorHint, "submit the deck manually with slidecast submit"))
		return
	}
	m.log().Info("inbox deck queued",
		logging.Int64(logging.FieldJobID, job.ID),
		logging.String("source", path),
		logging.String(logging.FieldEventType, "inbox_deck_queued"))
}

func (m *inboxMonitor) log() *slog.Logger {
	if m.logger == nil {
		return logging.NewNop()
	}
	return m.logger
}
