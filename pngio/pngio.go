// Package pngio moves rendered images across the PNG boundary: encoding to
// bytes, decoding back to NRGBA, and writing files safely.
//
// PNG is lossless and the encoder never reduces to a palette, so an image
// with transparent pixels is always written as truecolour with alpha.
package pngio

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"io"
	"os"
	"path/filepath"
)

var pngEncoder = &png.Encoder{CompressionLevel: png.BestCompression}

// Encode returns img as PNG bytes.
func Encode(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := pngEncoder.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode parses PNG bytes into an NRGBA image.
func Decode(data []byte) (*image.NRGBA, error) {
	return DecodeReader(bytes.NewReader(data))
}

// DecodeReader parses a PNG stream into an NRGBA image. Non-NRGBA PNGs
// (greyscale, paletted, 16-bit) are converted.
func DecodeReader(r io.Reader) (*image.NRGBA, error) {
	img, err := png.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode png: %w", err)
	}
	return ToNRGBA(img), nil
}

// ToNRGBA returns img unchanged if it is already *image.NRGBA, otherwise a
// converted copy whose bounds start at the origin.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok {
		return n
	}
	b := img.Bounds()
	out := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}

// ReadFile decodes the PNG file at path.
func ReadFile(path string) (*image.NRGBA, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	img, err := DecodeReader(f)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return img, nil
}

// Save encodes img and writes it to path.
func Save(path string, img image.Image) error {
	data, err := Encode(img)
	if err != nil {
		return err
	}
	return WriteFile(path, data)
}

// WriteError reports a failure to persist a file. The in-memory image is not
// affected and the write can be retried.
type WriteError struct {
	Path string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("write %s: %v", e.Path, e.Err)
}

func (e *WriteError) Unwrap() error { return e.Err }

// WriteFile writes data to path through a temporary file in the same
// directory that is renamed into place once it has been flushed and closed.
// The destination is either fully written or left untouched.
func WriteFile(path string, data []byte) error {
	if err := writeFile(path, data); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

func writeFile(path string, data []byte) (err error) {
	f, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmp := f.Name()
	closed := false
	defer func() {
		if !closed {
			f.Close()
		}
		if err != nil {
			os.Remove(tmp)
		}
	}()

	if _, err = f.Write(data); err != nil {
		return err
	}
	if err = f.Sync(); err != nil {
		return err
	}
	closed = true
	if err = f.Close(); err != nil {
		return err
	}
	if err = os.Chmod(tmp, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
