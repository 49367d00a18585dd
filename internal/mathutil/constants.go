package mathutil

import "math"

// Axis corrections for MU Online assets.
var (
	// ModelFlip converts Z-up (DirectX) to Y-up (OpenGL): Rx(-90°)
	ModelFlip = RotX(math.Pi / -2)

	// ModelFlipQuat is ModelFlip as a rotation quaternion, applied to rig roots.
	ModelFlipQuat = QuatFromAxisAngle(UnitX, math.Pi/-2)
)

// AngleDist returns the shortest angular distance between two angles in radians (0–π).
func AngleDist(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d < 0 {
		d += 2 * math.Pi
	}
	if d > math.Pi {
		return 2*math.Pi - d
	}
	return d
}
