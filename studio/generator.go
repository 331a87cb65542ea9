// Package studio wires the encoder, renderer and PNG boundary into a single
// generation pipeline, and keeps the per-user state a front end needs.
package studio

import (
	"fmt"
	"image"
	"image/color"
	"log/slog"

	"github.com/openclaw/qrgen/encoder"
	"github.com/openclaw/qrgen/pngio"
	"github.com/openclaw/qrgen/render"
)

// DefaultScale is the number of pixels per module edge.
const DefaultScale = 5

// Options configures a Generator. Zero values fall back to the defaults
// (level H, scale 5, black on white).
type Options struct {
	Level      encoder.Level
	Scale      int
	Foreground color.Color
	Background color.Color
}

// Result is one generated code.
type Result struct {
	Matrix      *encoder.Matrix
	Image       *image.NRGBA
	Scale       int
	Transparent bool
}

// Text returns the encoded text.
func (r *Result) Text() string { return r.Matrix.Content() }

// Width returns the image width in pixels.
func (r *Result) Width() int { return r.Image.Bounds().Dx() }

// Height returns the image height in pixels.
func (r *Result) Height() int { return r.Image.Bounds().Dy() }

// PNG encodes the image.
func (r *Result) PNG() ([]byte, error) { return pngio.Encode(r.Image) }

// Generator runs text through the encode and render steps. It holds no
// mutable state and is safe for concurrent use.
type Generator struct {
	level    encoder.Level
	scale    int
	renderer *render.Renderer
	log      *slog.Logger
}

// NewGenerator validates opts and returns a Generator.
func NewGenerator(opts Options, log *slog.Logger) (*Generator, error) {
	if opts.Level == 0 {
		opts.Level = encoder.DefaultLevel
	}
	if opts.Scale == 0 {
		opts.Scale = DefaultScale
	}
	if opts.Scale < 1 {
		return nil, render.ErrInvalidScale
	}
	if opts.Foreground == nil {
		opts.Foreground = render.Black
	}
	if opts.Background == nil {
		opts.Background = render.White
	}
	if log == nil {
		log = slog.Default()
	}

	r, err := render.New(opts.Foreground, opts.Background)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}

	return &Generator{
		level:    opts.Level,
		scale:    opts.Scale,
		renderer: r,
		log:      log,
	}, nil
}

// Level returns the error-correction level used for every code.
func (g *Generator) Level() encoder.Level { return g.level }

// Scale returns the default pixels per module.
func (g *Generator) Scale() int { return g.scale }

// Generate encodes and renders text at the default scale. Empty text is not
// an error: it yields a nil Result and a nil error.
func (g *Generator) Generate(text string, transparent bool) (*Result, error) {
	return g.GenerateScaled(text, g.scale, transparent)
}

// GenerateScaled is Generate with an explicit scale.
func (g *Generator) GenerateScaled(text string, scale int, transparent bool) (*Result, error) {
	if text == "" {
		return nil, nil
	}
	if scale < 1 {
		return nil, render.ErrInvalidScale
	}

	m, err := encoder.Encode(text, g.level)
	if err != nil {
		g.log.Warn("qr encode failed", "text_length", len(text), "level", g.level.String(), "error", err)
		return nil, err
	}

	res, err := g.Render(m, scale, transparent)
	if err != nil {
		return nil, err
	}

	g.log.Debug("qr generated",
		"text_length", len(text),
		"version", m.Version(),
		"level", g.level.String(),
		"scale", scale,
		"transparent", transparent,
	)
	return res, nil
}

// Render rasterizes an already encoded matrix.
func (g *Generator) Render(m *encoder.Matrix, scale int, transparent bool) (*Result, error) {
	img, err := g.renderer.Do(render.Request{Grid: m, Scale: scale, Transparent: transparent})
	if err != nil {
		return nil, fmt.Errorf("render qr: %w", err)
	}
	return &Result{Matrix: m, Image: img, Scale: scale, Transparent: transparent}, nil
}
