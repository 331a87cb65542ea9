// Package scanner reads QR codes back out of images.
package scanner

import (
	"fmt"
	"image"
	"image/draw"

	"github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/openclaw/qrgen/pngio"
)

// ScanFile opens a PNG file and decodes a QR code from it.
func ScanFile(path string) (string, error) {
	img, err := pngio.ReadFile(path)
	if err != nil {
		return "", err
	}
	return Decode(img)
}

// ScanPNG decodes a QR code from PNG bytes.
func ScanPNG(data []byte) (string, error) {
	img, err := pngio.Decode(data)
	if err != nil {
		return "", err
	}
	return Decode(img)
}

// Decode returns the text of the QR code in img. Transparent pixels are read
// as white, the way a viewer shows them on a light page.
func Decode(img image.Image) (string, error) {
	bmp, err := gozxing.NewBinaryBitmapFromImage(flatten(img))
	if err != nil {
		return "", fmt.Errorf("creating bitmap: %w", err)
	}

	result, err := qrcode.NewQRCodeReader().Decode(bmp, nil)
	if err != nil {
		return "", fmt.Errorf("no QR code found in image: %w", err)
	}
	return result.GetText(), nil
}

func flatten(img image.Image) image.Image {
	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		return img
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, image.White, image.Point{}, draw.Src)
	draw.Draw(out, b, img, b.Min, draw.Over)
	return out
}
