package api_test

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/qrgen/api"
	"github.com/openclaw/qrgen/pngio"
	"github.com/openclaw/qrgen/scanner"
	"github.com/openclaw/qrgen/store"
	"github.com/openclaw/qrgen/studio"
)

func newServer(t *testing.T, withHistory bool) (http.Handler, *store.HistoryStore) {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen, err := studio.NewGenerator(studio.Options{}, log)
	require.NoError(t, err)

	var hs *store.HistoryStore
	if withHistory {
		hs, err = store.NewHistoryStore(filepath.Join(t.TempDir(), "history.db"))
		require.NoError(t, err)
		t.Cleanup(func() { hs.Close() })
	}

	return api.NewRouter(&api.Server{
		Generator:    gen,
		Store:        hs,
		Log:          log,
		Version:      "test",
		MaxTextBytes: 4096,
	}), hs
}

func do(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestGeneratePNG(t *testing.T) {
	t.Parallel()

	h, hs := newServer(t, true)
	w := do(h, http.MethodPost, "/generate", "HELLO")

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	img, err := pngio.Decode(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 145, img.Bounds().Dx())
	assert.True(t, img.Opaque())

	text, err := scanner.Decode(img)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", text)

	recs, err := hs.List(10, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "HELLO", recs[0].Text)
	assert.Equal(t, "http", recs[0].Source)
	assert.Equal(t, 1, recs[0].Version)
}

func TestGenerateTransparentAndScale(t *testing.T) {
	t.Parallel()

	h, _ := newServer(t, false)
	w := do(h, http.MethodPost, "/generate?transparent=true&scale=2", "HELLO")
	require.Equal(t, http.StatusOK, w.Code)

	img, err := pngio.Decode(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, 58, img.Bounds().Dx())
	assert.Equal(t, uint8(0), img.NRGBAAt(0, 0).A)
	assert.False(t, img.Opaque())
}

func TestGenerateEmptyBody(t *testing.T) {
	t.Parallel()

	h, hs := newServer(t, true)
	w := do(h, http.MethodPost, "/generate", "")

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Zero(t, w.Body.Len())

	recs, err := hs.List(10, 0)
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestGenerateErrors(t *testing.T) {
	t.Parallel()

	h, _ := newServer(t, false)

	tests := []struct {
		name   string
		target string
		body   string
		status int
		msg    string
	}{
		{"too long to encode", "/generate", strings.Repeat("a", 3000), http.StatusUnprocessableEntity, "text too long to encode"},
		{"body too large", "/generate", strings.Repeat("a", 5000), http.StatusRequestEntityTooLarge, "request body too large"},
		{"zero scale", "/generate?scale=0", "x", http.StatusBadRequest, "scale must be between 1 and 64"},
		{"huge scale", "/generate?scale=500", "x", http.StatusBadRequest, "scale must be between 1 and 64"},
		{"bad transparent", "/generate?transparent=maybe", "x", http.StatusBadRequest, "transparent must be a boolean"},
	}
	for _, tt := range tests {
		w := do(h, http.MethodPost, tt.target, tt.body)
		assert.Equal(t, tt.status, w.Code, tt.name)

		var body map[string]string
		require.NoError(t, json.NewDecoder(w.Body).Decode(&body), tt.name)
		assert.Equal(t, tt.msg, body["error"], tt.name)
	}
}

func TestQRData(t *testing.T) {
	t.Parallel()

	h, hs := newServer(t, true)
	w := do(h, http.MethodGet, "/qr/data?text=HELLO&transparent=1", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		PNG         string `json:"png"`
		Version     int    `json:"version"`
		Level       string `json:"level"`
		Width       int    `json:"width"`
		Height      int    `json:"height"`
		Transparent bool   `json:"transparent"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))

	assert.Equal(t, 1, resp.Version)
	assert.Equal(t, "H", resp.Level)
	assert.Equal(t, 145, resp.Width)
	assert.Equal(t, 145, resp.Height)
	assert.True(t, resp.Transparent)

	data, err := base64.StdEncoding.DecodeString(resp.PNG)
	require.NoError(t, err)
	text, err := scanner.ScanPNG(data)
	require.NoError(t, err)
	assert.Equal(t, "HELLO", text)

	recs, err := hs.List(10, 0)
	require.NoError(t, err)
	assert.Empty(t, recs, "previews are not recorded")

	w = do(h, http.MethodGet, "/qr/data?text=", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestDownload(t *testing.T) {
	t.Parallel()

	h, hs := newServer(t, true)
	w := do(h, http.MethodGet, "/qr/download?text=save+me&transparent=true", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `attachment; filename="qrcode.png"`, w.Header().Get("Content-Disposition"))

	img, err := pngio.Decode(w.Body.Bytes())
	require.NoError(t, err)
	assert.False(t, img.Opaque())

	recs, err := hs.List(10, 0)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "save me", recs[0].Text)
	assert.True(t, recs[0].Transparent)
	assert.Equal(t, "download", recs[0].Source)
}

func TestHistoryEndpoints(t *testing.T) {
	t.Parallel()

	h, _ := newServer(t, true)
	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/generate", "https://example.com").Code)
	require.Equal(t, http.StatusOK, do(h, http.MethodPost, "/generate", "wifi secret").Code)

	w := do(h, http.MethodGet, "/history?limit=1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var recs []store.Record
	require.NoError(t, json.NewDecoder(w.Body).Decode(&recs))
	assert.Len(t, recs, 1)

	w = do(h, http.MethodGet, "/history/search?q=example", "")
	require.Equal(t, http.StatusOK, w.Code)
	recs = nil
	require.NoError(t, json.NewDecoder(w.Body).Decode(&recs))
	require.Len(t, recs, 1)
	assert.Equal(t, "https://example.com", recs[0].Text)

	w = do(h, http.MethodGet, "/history/search?q=nothing", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, "[]", w.Body.String())

	assert.Equal(t, http.StatusBadRequest, do(h, http.MethodGet, "/history/search", "").Code)
}

func TestHistoryDisabled(t *testing.T) {
	t.Parallel()

	h, _ := newServer(t, false)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/history", "").Code)
	assert.Equal(t, http.StatusNotFound, do(h, http.MethodGet, "/history/search?q=x", "").Code)
}

func TestStatusAndHealth(t *testing.T) {
	t.Parallel()

	h, _ := newServer(t, true)

	w := do(h, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = do(h, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, w.Code)
	var status map[string]interface{}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&status))
	assert.Equal(t, "test", status["version"])
	assert.Equal(t, "H", status["level"])
	assert.Equal(t, float64(5), status["scale"])
	assert.Equal(t, true, status["history"])
}

func TestIndexPageAndCORS(t *testing.T) {
	t.Parallel()

	h, _ := newServer(t, false)

	w := do(h, http.MethodGet, "/", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), `id="transparent" disabled`)

	w = do(h, http.MethodOptions, "/generate", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	assert.Equal(t, http.StatusMethodNotAllowed, do(h, http.MethodGet, "/generate", "").Code)
}
