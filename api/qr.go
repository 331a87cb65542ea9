package api

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/openclaw/qrgen/encoder"
	"github.com/openclaw/qrgen/render"
	"github.com/openclaw/qrgen/store"
	"github.com/openclaw/qrgen/studio"
)

type qrDataResponse struct {
	PNG         string `json:"png"`
	Version     int    `json:"version"`
	Level       string `json:"level"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Transparent bool   `json:"transparent"`
}

// handleGenerate takes the raw request body as text and answers with a PNG.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.MaxTextBytes)
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		s.Log.Error("failed to read request body", "error", err)
		writeError(w, http.StatusBadRequest, "failed to read request body")
		return
	}

	res, png, ok := s.generate(w, r, string(body))
	if !ok {
		return
	}
	s.record(res, len(png), "http", "")

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// handleQRData backs the web page: the PNG comes back base64 encoded inside
// JSON together with the symbol metadata.
func (s *Server) handleQRData(w http.ResponseWriter, r *http.Request) {
	res, png, ok := s.generate(w, r, r.URL.Query().Get("text"))
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, qrDataResponse{
		PNG:         base64.StdEncoding.EncodeToString(png),
		Version:     res.Matrix.Version(),
		Level:       res.Matrix.Level().String(),
		Width:       res.Width(),
		Height:      res.Height(),
		Transparent: res.Transparent,
	})
}

// handleDownload is the web page's Save button.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	res, png, ok := s.generate(w, r, r.URL.Query().Get("text"))
	if !ok {
		return
	}
	s.record(res, len(png), "download", "")

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="qrcode.png"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(png)))
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

// generate runs the pipeline for text using the transparent and scale query
// parameters. It writes the response itself and reports ok=false when there
// is nothing more to send: empty text (204), bad parameters or an encoding
// failure.
func (s *Server) generate(w http.ResponseWriter, r *http.Request, text string) (*studio.Result, []byte, bool) {
	if text == "" {
		w.WriteHeader(http.StatusNoContent)
		return nil, nil, false
	}
	if int64(len(text)) > s.MaxTextBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "text too large")
		return nil, nil, false
	}

	transparent, err := queryBool(r, "transparent")
	if err != nil {
		writeError(w, http.StatusBadRequest, "transparent must be a boolean")
		return nil, nil, false
	}

	scale := s.Generator.Scale()
	if v := r.URL.Query().Get("scale"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > s.MaxScale {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("scale must be between 1 and %d", s.MaxScale))
			return nil, nil, false
		}
		scale = n
	}

	res, err := s.Generator.GenerateScaled(text, scale, transparent)
	if err != nil {
		s.writeGenerateError(w, err)
		return nil, nil, false
	}

	png, err := res.PNG()
	if err != nil {
		s.Log.Error("failed to encode png", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to encode png")
		return nil, nil, false
	}
	return res, png, true
}

func (s *Server) writeGenerateError(w http.ResponseWriter, err error) {
	var encErr *encoder.EncodingError
	switch {
	case errors.Is(err, encoder.ErrTooLong):
		writeError(w, http.StatusUnprocessableEntity, "text too long to encode")
	case errors.As(err, &encErr):
		writeError(w, http.StatusUnprocessableEntity, encErr.Error())
	case errors.Is(err, render.ErrInvalidScale), errors.Is(err, render.ErrTooLarge):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		s.Log.Error("failed to generate QR code", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// record adds res to the history. Failures are logged, never returned: the
// code has already been produced.
func (s *Server) record(res *studio.Result, pngSize int, source, path string) {
	if s.Store == nil {
		return
	}
	rec := &store.Record{
		Text:        res.Text(),
		Level:       res.Matrix.Level().String(),
		Version:     res.Matrix.Version(),
		Scale:       res.Scale,
		Transparent: res.Transparent,
		Width:       res.Width(),
		Height:      res.Height(),
		PNGSize:     pngSize,
		Source:      source,
		Path:        path,
	}
	if err := s.Store.Save(rec); err != nil {
		s.Log.Error("failed to record history", "error", err)
	}
}

func queryBool(r *http.Request, key string) (bool, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return false, nil
	}
	return strconv.ParseBool(v)
}
