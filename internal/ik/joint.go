package ik

import (
	"math"

	"mu-rig-motion/internal/mathutil"
)

// Joint is one rotating link of a chain. LocalAxis is fixed in the parent
// bone's frame; Position and Axis are the world-space values from the last
// forward pass.
type Joint struct {
	Bone      int
	LocalAxis mathutil.Vec3
	Position  mathutil.Vec3
	Axis      mathutil.Vec3
	Angle     float64
	BaseAngle float64
	Min       float64
	Max       float64
}

func (j *Joint) clamp() {
	j.Angle = mathutil.Clamp(j.Angle, j.Min, j.Max)
}

// Manipulator is a chain from the first joint below the root down to the
// end effector. Joints are ordered root to tip; the end effector bone itself
// does not rotate.
type Manipulator struct {
	EndEffector int
	Joints      []Joint
}

// Constraint bounds a joint angle in radians.
type Constraint struct {
	Min float64
	Max float64
}

// Unbounded leaves a joint free.
func Unbounded() Constraint {
	return Constraint{Min: math.Inf(-1), Max: math.Inf(1)}
}

// Degrees builds a Constraint from limits given in degrees.
func Degrees(lo, hi float64) Constraint {
	return Constraint{Min: mathutil.Deg2Rad(lo), Max: mathutil.Deg2Rad(hi)}
}

// DefaultRightArmConstraints are the human range-of-motion limits for a
// spine, upper spine, upper arm, lower arm, hand chain.
func DefaultRightArmConstraints() []Constraint {
	return []Constraint{
		Degrees(-100, 20),
		Degrees(-50, 20),
		Degrees(80, 170),
		Degrees(15, 150),
		Degrees(0, 150),
	}
}
