// Package raster is a software debug-draw target: depth-tested 3D lines and
// markers over a lit, textured floor.
package raster

import (
	"errors"
	"fmt"
	"image/color"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/vqs"
)

var ErrMismatch = errors.New("raster: matrix and parent counts differ")

// lineBias is the relative depth slack that keeps lines lying on the floor
// visible.
const lineBias = 0.05

// DrawLine3D draws a depth-tested segment from a to b, width pixels wide.
// Segments crossing the near plane are clipped.
func DrawLine3D(fb *FrameBuffer, cam *Camera, a, b mathutil.Vec3, c color.NRGBA, width int) {
	ca, cb := cam.clip(a), cam.clip(b)
	wa, wb := ca.W(), cb.W()
	if wa < cam.Near && wb < cam.Near {
		return
	}
	if wa < cam.Near {
		ca = lerp4(ca, cb, (cam.Near-wa)/(wb-wa))
	} else if wb < cam.Near {
		cb = lerp4(cb, ca, (cam.Near-wb)/(wa-wb))
	}
	x0, y0, z0 := cam.toScreen(ca)
	x1, y1, z1 := cam.toScreen(cb)

	n := int(math.Ceil(math.Max(math.Abs(x1-x0), math.Abs(y1-y0))))
	if n < 1 {
		n = 1
	}
	// Guards against segments projecting to absurd lengths near the plane.
	if limit := 4 * (fb.Width + fb.Height); n > limit {
		n = limit
	}
	if width < 1 {
		width = 1
	}
	lo := -(width - 1) / 2
	hi := lo + width - 1
	for i := 0; i <= n; i++ {
		t := float64(i) / float64(n)
		x := int(math.Floor(x0 + (x1-x0)*t))
		y := int(math.Floor(y0 + (y1-y0)*t))
		z := z0 + (z1-z0)*t
		for dy := lo; dy <= hi; dy++ {
			for dx := lo; dx <= hi; dx++ {
				fb.plot(x+dx, y+dy, z, z*lineBias, c)
			}
		}
	}
}

func lerp4(a, b mgl64.Vec4, t float64) mgl64.Vec4 {
	return a.Add(b.Sub(a).Mul(t))
}

// DrawMarker draws a three-axis cross of world size centred on p.
func DrawMarker(fb *FrameBuffer, cam *Camera, p mathutil.Vec3, size float64, c color.NRGBA) {
	h := size / 2
	for _, axis := range []mathutil.Vec3{mathutil.UnitX, mathutil.UnitY, mathutil.UnitZ} {
		d := axis.Scale(h)
		DrawLine3D(fb, cam, p.Sub(d), p.Add(d), c, 2)
	}
}

// DrawPolyline connects pts in order.
func DrawPolyline(fb *FrameBuffer, cam *Camera, pts []mathutil.Vec3, c color.NRGBA) {
	for i := 1; i < len(pts); i++ {
		DrawLine3D(fb, cam, pts[i-1], pts[i], c, 1)
	}
}

// SkeletonStyle sets how DrawSkeleton paints bones and joints.
type SkeletonStyle struct {
	Bone      color.NRGBA
	Joint     color.NRGBA
	Width     int
	JointSize float64
}

// DefaultSkeletonStyle is light bones with orange joints.
func DefaultSkeletonStyle() SkeletonStyle {
	return SkeletonStyle{
		Bone:      color.NRGBA{230, 230, 220, 255},
		Joint:     color.NRGBA{255, 140, 40, 255},
		Width:     3,
		JointSize: 4,
	}
}

// DrawSkeleton draws a line from every bone to its parent. world holds
// skeleton-space bone matrices and model places them in the scene.
func DrawSkeleton(fb *FrameBuffer, cam *Camera, model vqs.VQS, world []mathutil.Mat4, parents []int, style SkeletonStyle) error {
	if len(world) != len(parents) {
		return fmt.Errorf("%w: %d matrices, %d parents", ErrMismatch, len(world), len(parents))
	}
	pos := make([]mathutil.Vec3, len(world))
	for i, m := range world {
		pos[i] = model.Transform(m.Translation())
	}
	for i, p := range parents {
		if p >= 0 && p < len(pos) {
			DrawLine3D(fb, cam, pos[p], pos[i], style.Bone, style.Width)
		}
	}
	if style.JointSize > 0 {
		for _, p := range pos {
			DrawMarker(fb, cam, p, style.JointSize, style.Joint)
		}
	}
	return nil
}
