package raster

import (
	"image/color"
	"math"

	"mu-rig-motion/internal/mathutil"
)

// LightConfig holds precomputed lighting parameters for a Y-up scene.
type LightConfig struct {
	LightDir  mathutil.Vec3
	RimDir    mathutil.Vec3
	HalfMain  mathutil.Vec3 // half-vector for Blinn-Phong, set by SetView
	Ambient   float64
	Hemi      float64
	Direct    float64
	Rim       float64
	SpecInt   float64
	SpecPow   float64
	Exposure  float64
	SRGBGamma float64
	InvGamma  float64
}

// DefaultLightConfig returns a key light from above and behind the camera
// with a cool rim from the opposite side.
func DefaultLightConfig() LightConfig {
	lc := LightConfig{
		LightDir:  mathutil.Vec3{140, 260, 180}.Normalize(),
		RimDir:    mathutil.Vec3{-210, 130, -160}.Normalize(),
		Ambient:   0.35,
		Hemi:      0.30,
		Direct:    0.80,
		Rim:       0.20,
		SpecInt:   0.15,
		SpecPow:   12.0,
		Exposure:  1.05,
		SRGBGamma: 2.2,
		InvGamma:  1.0 / 2.2,
	}
	lc.SetView(mathutil.Vec3{0, -110, -400})
	return lc
}

// SetView updates the specular half-vector for a camera looking along dir.
func (lc *LightConfig) SetView(dir mathutil.Vec3) {
	lc.HalfMain = lc.LightDir.Sub(dir.Normalize()).Normalize()
}

// ComputeShade returns the combined lighting scalar for a face normal.
func (lc *LightConfig) ComputeShade(normal mathutil.Vec3) float64 {
	// Lambertian (abs for double-sided)
	ndlMain := math.Abs(normal.Dot(lc.LightDir))
	ndlRim := math.Abs(normal.Dot(lc.RimDir))

	// Hemisphere fill
	hemi := (1.0-math.Abs(normal[1]))*0.5 + 0.5
	hemiLight := hemi * lc.Hemi

	// Blinn-Phong specular
	ndh := normal.Dot(lc.HalfMain)
	if ndh < 0 {
		ndh = 0
	}
	spec := math.Pow(ndh, lc.SpecPow) * lc.SpecInt

	return lc.Ambient + hemiLight + ndlMain*lc.Direct + ndlRim*lc.Rim + spec
}

// Apply lights an sRGB color: decode to linear, scale by shade and exposure,
// tone map, encode back. Alpha passes through.
func (lc *LightConfig) Apply(c color.NRGBA, shade float64) color.NRGBA {
	k := shade * lc.Exposure
	return color.NRGBA{
		R: clamp255(math.Pow(ACESTonemap(srgbToLinear[c.R]*k), lc.InvGamma) * 255),
		G: clamp255(math.Pow(ACESTonemap(srgbToLinear[c.G]*k), lc.InvGamma) * 255),
		B: clamp255(math.Pow(ACESTonemap(srgbToLinear[c.B]*k), lc.InvGamma) * 255),
		A: c.A,
	}
}

// Precomputed sRGB-to-linear lookup table (256 entries).
var srgbToLinear [256]float64

func init() {
	for i := 0; i < 256; i++ {
		srgbToLinear[i] = math.Pow(float64(i)/255.0, 2.2)
	}
}

// ACESTonemap applies ACES Filmic tone mapping to a linear value.
func ACESTonemap(x float64) float64 {
	return (x * (2.51*x + 0.03)) / (x*(2.43*x+0.59) + 0.14)
}

func clamp255(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v + 0.5)
}
