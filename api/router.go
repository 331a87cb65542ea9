package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/openclaw/qrgen/store"
	"github.com/openclaw/qrgen/studio"
)

// Server holds the dependencies for all HTTP handlers.
type Server struct {
	Generator    *studio.Generator
	Store        *store.HistoryStore // nil when history is disabled
	Log          *slog.Logger
	Version      string
	MaxTextBytes int64
	MaxScale     int
	StartTime    time.Time
}

// NewRouter returns a fully configured chi router with all API routes.
func NewRouter(s *Server) http.Handler {
	if s.MaxTextBytes <= 0 {
		s.MaxTextBytes = 4096
	}
	if s.MaxScale <= 0 {
		s.MaxScale = 64
	}
	if s.StartTime.IsZero() {
		s.StartTime = time.Now()
	}

	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)
	r.Use(corsMiddleware)
	r.Use(requestLogger(s.Log))

	// Web UI
	r.Get("/", s.handleIndex)

	// Generation
	r.Post("/generate", s.handleGenerate)
	r.Get("/qr/data", s.handleQRData)
	r.Get("/qr/download", s.handleDownload)

	// History
	r.Get("/history", s.handleHistory)
	r.Get("/history/search", s.handleSearchHistory)

	// Status
	r.Get("/health", s.handleHealth)
	r.Get("/status", s.handleStatus)

	return r
}

// --- helpers ----------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// --- middleware --------------------------------------------------------------

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"remote", r.RemoteAddr,
				"request_id", middleware.GetReqID(r.Context()),
			)
			next.ServeHTTP(w, r)
		})
	}
}
