package raster

import (
	"image"
	"image/color"
	"math"
)

// FrameBuffer holds the rendering target as flat slices for cache locality.
// Larger depth values are closer to the camera.
type FrameBuffer struct {
	Width  int
	Height int
	Color  []uint8   // RGBA interleaved, len = W*H*4
	ZBuf   []float64 // depth per pixel, len = W*H, initialized to -inf
}

// NewFrameBuffer allocates a transparent color buffer and -inf z-buffer.
func NewFrameBuffer(w, h int) *FrameBuffer {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	n := w * h
	zbuf := make([]float64, n)
	for i := range zbuf {
		zbuf[i] = math.Inf(-1)
	}
	return &FrameBuffer{
		Width:  w,
		Height: h,
		Color:  make([]uint8, n*4),
		ZBuf:   zbuf,
	}
}

// Clear fills the color buffer with c and resets depth.
func (fb *FrameBuffer) Clear(c color.NRGBA) {
	for i := range fb.ZBuf {
		fb.ZBuf[i] = math.Inf(-1)
		fb.Color[i*4] = c.R
		fb.Color[i*4+1] = c.G
		fb.Color[i*4+2] = c.B
		fb.Color[i*4+3] = c.A
	}
}

// plot writes c at (x, y) if z passes the depth test. bias lets lines lying
// on a surface win against it.
func (fb *FrameBuffer) plot(x, y int, z, bias float64, c color.NRGBA) {
	if x < 0 || y < 0 || x >= fb.Width || y >= fb.Height {
		return
	}
	i := y*fb.Width + x
	if z+bias < fb.ZBuf[i] {
		return
	}
	fb.ZBuf[i] = z
	fb.Color[i*4] = c.R
	fb.Color[i*4+1] = c.G
	fb.Color[i*4+2] = c.B
	fb.Color[i*4+3] = c.A
}

// Image copies the color buffer into a new NRGBA image.
func (fb *FrameBuffer) Image() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, fb.Width, fb.Height))
	copy(img.Pix, fb.Color)
	return img
}
