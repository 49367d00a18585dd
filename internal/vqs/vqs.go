// Package vqs implements the translation + rotation + uniform scale transform
// used for every bone pose.
package vqs

import (
	"errors"
	"fmt"
	"math"

	"mu-rig-motion/internal/mathutil"
)

var (
	ErrScale    = errors.New("vqs: scale must be positive and finite")
	ErrRotation = errors.New("vqs: rotation quaternion is zero or not finite")
)

// VQS is a rigid transform with uniform scale. Applying it to a point p
// gives V + Q·(S·p).
type VQS struct {
	V mathutil.Vec3
	Q mathutil.Quat
	S float64
}

func Identity() VQS {
	return VQS{Q: mathutil.QuatIdentity(), S: 1}
}

// New builds a VQS with a normalized rotation.
func New(v mathutil.Vec3, q mathutil.Quat, s float64) VQS {
	return VQS{V: v, Q: q.Normalize(), S: s}
}

// FromTranslation is a pure translation.
func FromTranslation(v mathutil.Vec3) VQS {
	return VQS{V: v, Q: mathutil.QuatIdentity(), S: 1}
}

// FromRotation is a pure rotation.
func FromRotation(q mathutil.Quat) VQS {
	return VQS{Q: q.Normalize(), S: 1}
}

// Validate checks the invariants imported data must satisfy.
func (a VQS) Validate() error {
	if !(a.S > 0) || math.IsInf(a.S, 0) {
		return fmt.Errorf("%w (got %v)", ErrScale, a.S)
	}
	l := a.Q.Len()
	if l < 1e-12 || math.IsNaN(l) || math.IsInf(l, 0) {
		return ErrRotation
	}
	if !a.V.IsFinite() {
		return fmt.Errorf("vqs: translation %v is not finite", a.V)
	}
	return nil
}

// Concatenate returns a∘b: b is applied first, then a. With a as the parent
// frame and b as a child expressed in it, the result is the child's
// transform in a's parent space.
func (a VQS) Concatenate(b VQS) VQS {
	return VQS{
		V: a.V.Add(a.Q.Rotate(b.V.Scale(a.S))),
		Q: a.Q.Mul(b.Q).Normalize(),
		S: a.S * b.S,
	}
}

// Transform applies the transform to a point.
func (a VQS) Transform(p mathutil.Vec3) mathutil.Vec3 {
	return a.V.Add(a.Q.Rotate(p.Scale(a.S)))
}

// Inverse returns the transform undoing a. Scale must be non-zero.
func (a VQS) Inverse() VQS {
	invS := 1 / a.S
	invQ := a.Q.Conj()
	return VQS{
		V: invQ.Rotate(a.V).Scale(-invS),
		Q: invQ,
		S: invS,
	}
}

// InterpolateTo blends toward target: linear on translation and scale,
// shortest-arc slerp on rotation. t is expected in [0, 1].
func (a VQS) InterpolateTo(target VQS, t float64) VQS {
	return VQS{
		V: a.V.Lerp(target.V, t),
		Q: a.Q.Slerp(target.Q, t),
		S: a.S + (target.S-a.S)*t,
	}
}

// ToMatrix yields translate × rotate × scale: points are scaled, then
// rotated, then translated.
func (a VQS) ToMatrix() mathutil.Mat4 {
	return mathutil.FromMat3Translation(mathutil.QuatToMat3(a.Q).Scale(a.S), a.V)
}

// ApproxEqual compares translation and scale within eps and rotation up to sign.
func (a VQS) ApproxEqual(b VQS, eps float64) bool {
	if math.Abs(a.S-b.S) > eps || a.V.Dist(b.V) > eps {
		return false
	}
	return a.Q.SameRotation(b.Q, eps)
}

func (a VQS) String() string {
	return fmt.Sprintf("VQS{V:(%.4f, %.4f, %.4f) Q:(%.4f, %.4f, %.4f, %.4f) S:%.4f}",
		a.V[0], a.V[1], a.V[2], a.Q[0], a.Q[1], a.Q[2], a.Q[3], a.S)
}
