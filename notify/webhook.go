// Package notify tells an external endpoint about QR codes written to disk.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// SavedEvent is the JSON body posted for every persisted QR code.
type SavedEvent struct {
	Path        string `json:"path"`
	Text        string `json:"text"`
	Level       string `json:"level"`
	Version     int    `json:"version"`
	Transparent bool   `json:"transparent"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Bytes       int    `json:"bytes"`
	Timestamp   int64  `json:"timestamp"`
}

func (e *SavedEvent) key() string {
	return e.Path + "\x00" + e.Text + "\x00" + strconv.FormatBool(e.Transparent)
}

// WebhookSender delivers SavedEvents to an HTTP endpoint, dropping repeats
// of the same save within seenTTL.
type WebhookSender struct {
	url    string
	seen   map[string]time.Time // event key -> first seen time (dedup)
	mu     sync.Mutex
	client *http.Client
	log    *slog.Logger
}

// seenTTL is the time-to-live for entries in the deduplication map.
const seenTTL = 5 * time.Minute

// NewWebhookSender creates a sender posting to url. With an empty url Send
// is a no-op.
func NewWebhookSender(url string, log *slog.Logger) *WebhookSender {
	return &WebhookSender{
		url:  url,
		seen: make(map[string]time.Time),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		log: log,
	}
}

// Enabled reports whether a webhook URL is configured.
func (w *WebhookSender) Enabled() bool { return w.url != "" }

// Send posts evt to the webhook. It returns nil without sending when no URL
// is configured or the same save was already delivered recently.
func (w *WebhookSender) Send(ctx context.Context, evt *SavedEvent) error {
	if w.url == "" {
		return nil
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().Unix()
	}

	key := evt.key()
	w.mu.Lock()
	w.cleanupSeenLocked()
	if _, ok := w.seen[key]; ok {
		w.mu.Unlock()
		w.log.Debug("webhook skipping duplicate save", "path", evt.Path)
		return nil
	}
	w.seen[key] = time.Now()
	w.mu.Unlock()

	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("webhook marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		w.forget(key)
		return fmt.Errorf("webhook POST: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		w.log.Info("webhook delivered", "status", resp.StatusCode, "path", evt.Path)
		return nil
	}

	w.forget(key)
	return fmt.Errorf("webhook POST: unexpected status %d", resp.StatusCode)
}

// forget drops key so a failed delivery can be retried.
func (w *WebhookSender) forget(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.seen, key)
}

// cleanupSeenLocked removes stale entries from the seen map. The caller MUST
// hold w.mu.
func (w *WebhookSender) cleanupSeenLocked() {
	cutoff := time.Now().Add(-seenTTL)
	for k, t := range w.seen {
		if t.Before(cutoff) {
			delete(w.seen, k)
		}
	}
}
