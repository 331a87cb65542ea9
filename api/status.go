package api

import (
	"net/http"
	"time"
)

type statusResponse struct {
	Status  string `json:"status"`
	Uptime  string `json:"uptime"`
	Version string `json:"version"`
	Level   string `json:"level"`
	Scale   int    `json:"scale"`
	History bool   `json:"history"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  "ok",
		Uptime:  time.Since(s.StartTime).Truncate(time.Second).String(),
		Version: s.Version,
		Level:   s.Generator.Level().String(),
		Scale:   s.Generator.Scale(),
		History: s.Store != nil,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
