package mathutil

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// Quat represents a quaternion (x, y, z, w).
// Algebra is delegated to gonum's quat.Number (Real=w, Imag/Jmag/Kmag=x/y/z).
type Quat [4]float64

func QuatIdentity() Quat {
	return Quat{0, 0, 0, 1}
}

func (q Quat) num() quat.Number {
	return quat.Number{Real: q[3], Imag: q[0], Jmag: q[1], Kmag: q[2]}
}

func fromNum(n quat.Number) Quat {
	return Quat{n.Imag, n.Jmag, n.Kmag, n.Real}
}

// Mul returns the Hamilton product a·b (b is applied first when rotating).
func (a Quat) Mul(b Quat) Quat {
	return fromNum(quat.Mul(a.num(), b.num()))
}

func (q Quat) Conj() Quat {
	return fromNum(quat.Conj(q.num()))
}

func (q Quat) Neg() Quat {
	return Quat{-q[0], -q[1], -q[2], -q[3]}
}

func (q Quat) Len() float64 {
	return quat.Abs(q.num())
}

func (a Quat) Dot(b Quat) float64 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] + a[3]*b[3]
}

// Normalize returns the unit quaternion. A zero quaternion normalizes to identity.
func (q Quat) Normalize() Quat {
	l := q.Len()
	if l < 1e-12 {
		return QuatIdentity()
	}
	return fromNum(quat.Scale(1/l, q.num()))
}

// Rotate applies the rotation q·v·q* to v. q must be unit length.
func (q Quat) Rotate(v Vec3) Vec3 {
	p := quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}
	n := q.num()
	r := quat.Mul(quat.Mul(n, p), quat.Conj(n))
	return Vec3{r.Imag, r.Jmag, r.Kmag}
}

// QuatFromAxisAngle builds a rotation of angle radians about axis.
// A degenerate axis yields identity.
func QuatFromAxisAngle(axis Vec3, angle float64) Quat {
	a := axis.Normalize()
	if a == (Vec3{}) {
		return QuatIdentity()
	}
	s, c := math.Sin(angle*0.5), math.Cos(angle*0.5)
	return Quat{a[0] * s, a[1] * s, a[2] * s, c}
}

// ToAxisAngle decomposes q into a unit axis and an angle in [0, π].
// For (near) identity rotations the axis is undefined and fallback is returned
// with a zero angle.
func (q Quat) ToAxisAngle(fallback Vec3) (Vec3, float64) {
	q = q.Normalize()
	if q[3] < 0 {
		q = q.Neg()
	}
	w := math.Min(q[3], 1)
	s := math.Sqrt(1 - w*w)
	if s < 1e-9 {
		return fallback.Normalize(), 0
	}
	return Vec3{q[0] / s, q[1] / s, q[2] / s}, 2 * math.Acos(w)
}

// Nlerp is the normalized component-wise interpolation.
func (a Quat) Nlerp(b Quat, t float64) Quat {
	return Quat{
		a[0] + (b[0]-a[0])*t,
		a[1] + (b[1]-a[1])*t,
		a[2] + (b[2]-a[2])*t,
		a[3] + (b[3]-a[3])*t,
	}.Normalize()
}

// Slerp interpolates along the shortest great arc between unit quaternions.
// Nearly parallel inputs fall back to Nlerp.
func (a Quat) Slerp(b Quat, t float64) Quat {
	dot := a.Dot(b)
	if dot < 0 {
		dot = -dot
		b = b.Neg()
	}
	if dot > 0.9995 {
		return a.Nlerp(b, t)
	}

	theta0 := math.Acos(dot)
	theta := theta0 * t
	sinTheta := math.Sin(theta)
	sinTheta0 := math.Sin(theta0)

	s0 := math.Cos(theta) - dot*sinTheta/sinTheta0
	s1 := sinTheta / sinTheta0
	return fromNum(quat.Add(quat.Scale(s0, a.num()), quat.Scale(s1, b.num()))).Normalize()
}

// SameRotation reports whether a and b describe the same rotation within eps
// (q and -q are equivalent).
func (a Quat) SameRotation(b Quat, eps float64) bool {
	return 1-math.Abs(a.Normalize().Dot(b.Normalize())) <= eps
}

// EulerToQuat converts Euler XYZ (radians) to a quaternion.
// Matches MU Online's bmdAngleToQuaternion function.
func EulerToQuat(rx, ry, rz float64) Quat {
	cx, sx := math.Cos(rx*0.5), math.Sin(rx*0.5)
	cy, sy := math.Cos(ry*0.5), math.Sin(ry*0.5)
	cz, sz := math.Cos(rz*0.5), math.Sin(rz*0.5)

	return Quat{
		sx*cy*cz - cx*sy*sz, // x
		cx*sy*cz + sx*cy*sz, // y
		cx*cy*sz - sx*sy*cz, // z
		cx*cy*cz + sx*sy*sz, // w
	}
}

// QuatToMat3 converts a quaternion to a 3×3 rotation matrix.
func QuatToMat3(q Quat) Mat3 {
	x, y, z, w := q[0], q[1], q[2], q[3]
	xx, yy, zz := x*x, y*y, z*z
	xy, xz, yz := x*y, x*z, y*z
	wx, wy, wz := w*x, w*y, w*z

	return Mat3{
		1 - 2*(yy+zz), 2 * (xy - wz), 2 * (xz + wy),
		2 * (xy + wz), 1 - 2*(xx+zz), 2 * (yz - wx),
		2 * (xz - wy), 2 * (yz + wx), 1 - 2*(xx+yy),
	}
}
