package raster

import (
	"image"
	"image/color"
	"math"
)

// Vertex is a screen-space vertex. Z is inverse view depth, so U and V are
// interpolated perspective-correct.
type Vertex struct {
	X, Y, Z float64
	U, V    float64
}

// RasterizeTriangle rasterizes a single triangle with texture mapping, z-buffer,
// sRGB color space, lighting, and ACES tone mapping.
//
// Lighting is flat: the caller computes shade once per face. With a nil tex
// the triangle is filled with def.
func RasterizeTriangle(fb *FrameBuffer, tri [3]Vertex, tex *image.NRGBA, def color.NRGBA, shade float64, lc *LightConfig) {
	x0, y0, z0 := tri[0].X, tri[0].Y, tri[0].Z
	x1, y1, z1 := tri[1].X, tri[1].Y, tri[1].Z
	x2, y2, z2 := tri[2].X, tri[2].Y, tri[2].Z

	minX := int(math.Floor(math.Min(math.Min(x0, x1), x2)))
	maxX := int(math.Ceil(math.Max(math.Max(x0, x1), x2)))
	minY := int(math.Floor(math.Min(math.Min(y0, y1), y2)))
	maxY := int(math.Ceil(math.Max(math.Max(y0, y1), y2)))

	if minX < 0 {
		minX = 0
	}
	if maxX >= fb.Width {
		maxX = fb.Width - 1
	}
	if minY < 0 {
		minY = 0
	}
	if maxY >= fb.Height {
		maxY = fb.Height - 1
	}
	if minX > maxX || minY > maxY {
		return
	}

	// Barycentric setup
	det := (y1-y2)*(x0-x2) + (x2-x1)*(y0-y2)
	if det > -1e-8 && det < 1e-8 {
		return
	}
	invDet := 1.0 / det

	dy12 := y1 - y2
	dx21 := x2 - x1
	dy20 := y2 - y0
	dx02 := x0 - x2

	// UV over depth, divided back per pixel
	uz0, vz0 := tri[0].U*z0, tri[0].V*z0
	uz1, vz1 := tri[1].U*z1, tri[1].V*z1
	uz2, vz2 := tri[2].U*z2, tri[2].V*z2

	flat := lc.Apply(def, shade)

	for sy := minY; sy <= maxY; sy++ {
		dsy := float64(sy) + 0.5 - y2
		rowOff := sy * fb.Width
		for sx := minX; sx <= maxX; sx++ {
			dsx := float64(sx) + 0.5 - x2
			w0 := (dy12*dsx + dx21*dsy) * invDet
			w1 := (dy20*dsx + dx02*dsy) * invDet
			w2 := 1.0 - w0 - w1

			if w0 < -0.001 || w1 < -0.001 || w2 < -0.001 {
				continue
			}

			z := w0*z0 + w1*z1 + w2*z2
			zIdx := rowOff + sx
			if z <= fb.ZBuf[zIdx] {
				continue
			}

			c := flat
			if tex != nil {
				u := (w0*uz0 + w1*uz1 + w2*uz2) / z
				v := (w0*vz0 + w1*vz1 + w2*vz2) / z
				r, g, b, a := SampleTexture(tex, u, v)
				c = lc.Apply(color.NRGBA{r, g, b, a}, shade)
			}

			// Skip transparent texels
			if c.A < 8 {
				continue
			}
			fb.ZBuf[zIdx] = z

			pxIdx := zIdx * 4
			fb.Color[pxIdx] = c.R
			fb.Color[pxIdx+1] = c.G
			fb.Color[pxIdx+2] = c.B
			fb.Color[pxIdx+3] = c.A
		}
	}
}
