package notify_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/qrgen/notify"
)

type recorder struct {
	mu     sync.Mutex
	events []notify.SavedEvent
	status int
}

func (r *recorder) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var evt notify.SavedEvent
	if err := json.NewDecoder(req.Body).Decode(&evt); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	r.mu.Lock()
	r.events = append(r.events, evt)
	status := r.status
	r.mu.Unlock()
	if status == 0 {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSendDeliversAndDeduplicates(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	w := notify.NewWebhookSender(srv.URL, discard())
	assert.True(t, w.Enabled())

	evt := &notify.SavedEvent{Path: "/tmp/a.png", Text: "HELLO", Level: "H", Version: 1, Width: 145, Height: 145}
	require.NoError(t, w.Send(context.Background(), evt))
	require.NoError(t, w.Send(context.Background(), &notify.SavedEvent{Path: "/tmp/a.png", Text: "HELLO"}))

	require.Equal(t, 1, rec.count())
	assert.Equal(t, "HELLO", rec.events[0].Text)
	assert.Equal(t, 145, rec.events[0].Width)
	assert.NotZero(t, rec.events[0].Timestamp)

	// A different transparency setting is a different save.
	require.NoError(t, w.Send(context.Background(), &notify.SavedEvent{Path: "/tmp/a.png", Text: "HELLO", Transparent: true}))
	assert.Equal(t, 2, rec.count())
}

func TestSendRetriesAfterFailure(t *testing.T) {
	t.Parallel()

	rec := &recorder{status: http.StatusBadGateway}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	w := notify.NewWebhookSender(srv.URL, discard())
	evt := &notify.SavedEvent{Path: "/tmp/b.png", Text: "retry"}

	assert.Error(t, w.Send(context.Background(), evt))

	rec.mu.Lock()
	rec.status = http.StatusOK
	rec.mu.Unlock()

	assert.NoError(t, w.Send(context.Background(), evt))
	assert.Equal(t, 2, rec.count())
}

func TestSendFailureIsReturnedNotLogged(t *testing.T) {
	t.Parallel()

	rec := &recorder{status: http.StatusInternalServerError}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	var logs bytes.Buffer
	w := notify.NewWebhookSender(srv.URL, slog.New(slog.NewTextHandler(&logs, nil)))

	err := w.Send(context.Background(), &notify.SavedEvent{Path: "/tmp/c.png", Text: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 500")
	assert.Empty(t, logs.String())
}

func TestSendDisabled(t *testing.T) {
	t.Parallel()

	w := notify.NewWebhookSender("", discard())
	assert.False(t, w.Enabled())
	assert.NoError(t, w.Send(context.Background(), &notify.SavedEvent{Text: "x"}))
}
