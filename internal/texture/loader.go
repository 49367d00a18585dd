// Package texture loads floor textures from PNG, JPEG or TGA files, including
// the game's OZJ/OZT wrappers around JPEG and TGA data.
package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/ftrvxmtrx/tga"
)

var ErrFormat = errors.New("texture: unsupported format")

// Load reads an image file and returns it as NRGBA. The format is chosen by
// extension; OZJ and OZT headers are stripped first.
func Load(path string) (*image.NRGBA, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("texture: read %s: %w", path, err)
	}
	img, err := Decode(raw, filepath.Ext(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Decode decodes raw image bytes for the given extension.
func Decode(raw []byte, ext string) (*image.NRGBA, error) {
	data := raw
	switch strings.ToLower(ext) {
	case ".ozj":
		// OZJ: 24-byte header + JPEG data
		if len(raw) <= 24 {
			return nil, fmt.Errorf("texture: OZJ too short: %w", ErrFormat)
		}
		data = raw[24:]
	case ".ozt":
		// OZT: 4-byte header + TGA data
		if len(raw) <= 4 {
			return nil, fmt.Errorf("texture: OZT too short: %w", ErrFormat)
		}
		data = raw[4:]
	case ".png", ".jpg", ".jpeg", ".tga":
	default:
		return nil, fmt.Errorf("%w: %q", ErrFormat, ext)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("texture: decode: %w", err)
	}
	return toNRGBA(img), nil
}

// toNRGBA converts any image to NRGBA format with its origin at (0, 0).
func toNRGBA(src image.Image) *image.NRGBA {
	b := src.Bounds()
	if n, ok := src.(*image.NRGBA); ok && b.Min == (image.Point{}) {
		return n
	}
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	switch src.(type) {
	case *image.YCbCr, *image.Gray:
		// No alpha
		draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	default:
		for y := 0; y < b.Dy(); y++ {
			for x := 0; x < b.Dx(); x++ {
				dst.SetNRGBA(x, y, color.NRGBAModel.Convert(src.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA))
			}
		}
	}
	return dst
}
