package batch

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"time"

	"github.com/HugoSmits86/nativewebp"
)

var ErrNoFrames = errors.New("batch: no frames to encode")

// EncodeAnimated writes imgs as a looping animated WebP with a fixed delay
// per frame.
func EncodeAnimated(w io.Writer, imgs []image.Image, delay time.Duration) error {
	if len(imgs) == 0 {
		return ErrNoFrames
	}
	ms := uint(delay / time.Millisecond)
	if ms == 0 {
		ms = 1
	}
	ani := &nativewebp.Animation{
		Images:    imgs,
		Durations: make([]uint, len(imgs)),
		Disposals: make([]uint, len(imgs)),
	}
	for i := range imgs {
		ani.Durations[i] = ms
	}
	if err := nativewebp.EncodeAll(w, ani, nil); err != nil {
		return fmt.Errorf("batch: animated webp: %w", err)
	}
	return nil
}

// WriteAnimated collects the kept images of results and writes them to path.
func WriteAnimated(path string, results []Result, delay time.Duration) error {
	var imgs []image.Image
	for _, r := range results {
		if r.Image != nil {
			imgs = append(imgs, r.Image)
		}
	}
	if len(imgs) == 0 {
		return ErrNoFrames
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("batch: %w", err)
	}
	if err := EncodeAnimated(f, imgs, delay); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
