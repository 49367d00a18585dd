package raster

import (
	"github.com/go-gl/mathgl/mgl64"

	"mu-rig-motion/internal/mathutil"
)

// Camera is a perspective pinhole camera. Y is up.
type Camera struct {
	Eye    mathutil.Vec3
	Target mathutil.Vec3
	FovY   float64 // degrees
	Near   float64
	Far    float64
	Width  int
	Height int

	viewProj mgl64.Mat4
}

// NewCamera builds a camera at eye looking at target, rendering w×h pixels.
func NewCamera(eye, target mathutil.Vec3, fovY float64, w, h int) *Camera {
	c := &Camera{Eye: eye, Target: target, FovY: fovY, Near: 1, Far: 10000, Width: w, Height: h}
	c.Update()
	return c
}

// Update recomputes the view-projection matrix after a field changed.
func (c *Camera) Update() {
	aspect := 1.0
	if c.Height > 0 {
		aspect = float64(c.Width) / float64(c.Height)
	}
	proj := mgl64.Perspective(mgl64.DegToRad(c.FovY), aspect, c.Near, c.Far)
	view := mgl64.LookAtV(vec(c.Eye), vec(c.Target), mgl64.Vec3{0, 1, 0})
	c.viewProj = proj.Mul4(view)
}

// Follow moves the camera so it keeps its offset to the target while looking
// at p.
func (c *Camera) Follow(p mathutil.Vec3) {
	offset := c.Eye.Sub(c.Target)
	c.Target = p
	c.Eye = p.Add(offset)
	c.Update()
}

// ViewDir returns the unit direction the camera looks along.
func (c *Camera) ViewDir() mathutil.Vec3 {
	return c.Target.Sub(c.Eye).Normalize()
}

func (c *Camera) clip(p mathutil.Vec3) mgl64.Vec4 {
	return c.viewProj.Mul4x1(mgl64.Vec4{p[0], p[1], p[2], 1})
}

// toScreen maps a clip-space point to pixels. Depth is 1/w so that larger
// values are closer and interpolate linearly across the screen.
func (c *Camera) toScreen(v mgl64.Vec4) (x, y, depth float64) {
	inv := 1 / v.W()
	x = (v.X()*inv + 1) * 0.5 * float64(c.Width)
	y = (1 - v.Y()*inv) * 0.5 * float64(c.Height)
	return x, y, inv
}

// Project maps a world point to pixel coordinates. ok is false for points
// at or behind the near plane.
func (c *Camera) Project(p mathutil.Vec3) (x, y, depth float64, ok bool) {
	v := c.clip(p)
	if v.W() < c.Near {
		return 0, 0, 0, false
	}
	x, y, depth = c.toScreen(v)
	return x, y, depth, true
}

func vec(v mathutil.Vec3) mgl64.Vec3 {
	return mgl64.Vec3{v[0], v[1], v[2]}
}
