// Package render rasterizes QR module grids into two-tone RGBA images.
//
// Each module becomes a solid scale×scale block: no anti-aliasing, no
// interpolation. An optional second pass makes every background-coloured
// pixel fully transparent. Images are *image.NRGBA so a transparent pixel
// keeps the background RGB, which keeps the transparency pass idempotent and
// lets PNG round-trips preserve exact colour values.
package render

import (
	"errors"
	"fmt"
	"image"
	"image/color"
)

var (
	// Black is the default foreground colour.
	Black = color.NRGBA{R: 0, G: 0, B: 0, A: 255}
	// White is the default background colour.
	White = color.NRGBA{R: 255, G: 255, B: 255, A: 255}
)

// MaxDimension is the largest width or height, in pixels, Render produces.
const MaxDimension = 16384

var (
	ErrInvalidScale = errors.New("scale must be at least 1")
	ErrTooLarge     = errors.New("image too large")
	ErrEmptyMatrix  = errors.New("matrix is empty")
	ErrSameColors   = errors.New("foreground and background colors must differ")
)

// Grid is a rectangular grid of modules.
type Grid interface {
	Rows() int
	Cols() int
	Dark(row, col int) bool
}

// Request bundles the inputs of a single render.
type Request struct {
	Grid        Grid
	Scale       int
	Transparent bool
}

// Renderer paints grids in a fixed foreground/background pair.
type Renderer struct {
	fg color.NRGBA
	bg color.NRGBA
}

var defaultRenderer = &Renderer{fg: Black, bg: White}

// New returns a Renderer for the given colours. Both colours are made fully
// opaque. They must still differ after that.
func New(foreground, background color.Color) (*Renderer, error) {
	fg := opaque(foreground)
	bg := opaque(background)
	if fg == bg {
		return nil, ErrSameColors
	}
	return &Renderer{fg: fg, bg: bg}, nil
}

// Default returns the black-on-white renderer.
func Default() *Renderer { return defaultRenderer }

// Foreground returns the colour of dark modules.
func (r *Renderer) Foreground() color.NRGBA { return r.fg }

// Background returns the colour of light modules.
func (r *Renderer) Background() color.NRGBA { return r.bg }

// Render rasterizes g with the default black-on-white renderer.
func Render(g Grid, scale int, transparent bool) (*image.NRGBA, error) {
	return defaultRenderer.Render(g, scale, transparent)
}

// Do renders req.
func (r *Renderer) Do(req Request) (*image.NRGBA, error) {
	return r.Render(req.Grid, req.Scale, req.Transparent)
}

// Render rasterizes g into an image of g.Cols()*scale by g.Rows()*scale
// pixels. When transparent is set, background pixels get alpha 0 and all
// other pixels stay opaque.
func (r *Renderer) Render(g Grid, scale int, transparent bool) (*image.NRGBA, error) {
	if scale < 1 {
		return nil, ErrInvalidScale
	}
	if g == nil || g.Rows() <= 0 || g.Cols() <= 0 {
		return nil, ErrEmptyMatrix
	}

	rows, cols := g.Rows(), g.Cols()
	if scale > MaxDimension/max(rows, cols) {
		return nil, fmt.Errorf("%w: %dx%d modules at scale %d exceed %d px", ErrTooLarge, cols, rows, scale, MaxDimension)
	}
	img := image.NewNRGBA(image.Rect(0, 0, cols*scale, rows*scale))

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			c := r.bg
			if g.Dark(row, col) {
				c = r.fg
			}
			fillBlock(img, col*scale, row*scale, scale, c)
		}
	}

	if transparent {
		ApplyTransparency(img, r.bg)
	}
	return img, nil
}

// ApplyTransparency sets alpha to 0 on every pixel whose RGB equals bg
// exactly. Other pixels are left untouched. Running it twice is the same as
// running it once.
func ApplyTransparency(img *image.NRGBA, bg color.Color) {
	key := color.NRGBAModel.Convert(bg).(color.NRGBA)
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			i := img.PixOffset(x, y)
			p := img.Pix[i : i+4 : i+4]
			if p[0] == key.R && p[1] == key.G && p[2] == key.B {
				p[3] = 0
			}
		}
	}
}

func fillBlock(img *image.NRGBA, x0, y0, size int, c color.NRGBA) {
	for y := y0; y < y0+size; y++ {
		i := img.PixOffset(x0, y)
		row := img.Pix[i : i+4*size]
		for j := 0; j < len(row); j += 4 {
			row[j] = c.R
			row[j+1] = c.G
			row[j+2] = c.B
			row[j+3] = c.A
		}
	}
}

func opaque(c color.Color) color.NRGBA {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 255
	return n
}
