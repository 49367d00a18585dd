package ik

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"mu-rig-motion/internal/mathutil"
)

const (
	// Singular values below svdCutoff times the largest are treated as zero.
	svdCutoff = 1e-6
	minLever  = 1e-9
)

// solveJacobian takes one pseudo-inverse step:
// Δθ = J⁺ (target − Pc) · dt · gain, with column i = axis_i × (Pc − p_i).
// J⁺ comes from a truncated SVD, so rank-deficient chains (planar or fully
// extended) still move within the directions they can reach. A degenerate
// Jacobian or a non-finite step leaves the angles unchanged.
func (c *Controller) solveJacobian(m *Manipulator, dt float64) bool {
	n := len(m.Joints)
	pc := c.world[m.EndEffector].V

	jac := mat.NewDense(3, n, nil)
	for i, j := range m.Joints {
		col := j.Axis.Cross(pc.Sub(j.Position))
		jac.Set(0, i, col[0])
		jac.Set(1, i, col[1])
		jac.Set(2, i, col[2])
	}

	var svd mat.SVD
	if !svd.Factorize(jac, mat.SVDThin) {
		return false
	}
	sv := svd.Values(nil)
	if len(sv) == 0 || !(sv[0] > minLever) {
		return false
	}
	var u, v mat.Dense
	svd.UTo(&u)
	svd.VTo(&v)

	e := c.target.Sub(pc)
	d := mat.NewVecDense(n, nil)
	for k, s := range sv {
		if s < sv[0]*svdCutoff {
			break
		}
		proj := (u.At(0, k)*e[0] + u.At(1, k)*e[1] + u.At(2, k)*e[2]) / s
		d.AddScaledVec(d, proj, v.ColView(k))
	}

	scale := dt * c.opts.gain
	for i := 0; i < n; i++ {
		if x := d.AtVec(i) * scale; math.IsNaN(x) || math.IsInf(x, 0) {
			return false
		}
	}
	for i := range m.Joints {
		m.Joints[i].Angle += d.AtVec(i) * scale
		m.Joints[i].clamp()
	}
	c.forward()
	return true
}

// solveCCD sweeps joints from the end effector back to the root. Each joint
// turns by the signed angle between (EE − p) and (target − p) projected onto
// its rotation plane, is clamped, and the chain is re-evaluated before the
// next joint. Only joint k's angle changes; the joints beyond it are carried
// along by the hierarchy rather than each receiving the same increment.
func (c *Controller) solveCCD(m *Manipulator) {
	for k := len(m.Joints) - 1; k >= 0; k-- {
		j := &m.Joints[k]
		ee := c.world[m.EndEffector].V
		a := project(ee.Sub(j.Position), j.Axis)
		b := project(c.target.Sub(j.Position), j.Axis)
		la, lb := a.Len(), b.Len()
		if la < minLever || lb < minLever {
			continue
		}
		cos := mathutil.Clamp(a.Dot(b)/(la*lb), -1, 1)
		angle := math.Acos(cos)
		if j.Axis.Dot(a.Cross(b)) < 0 {
			angle = -angle
		}
		j.Angle += angle
		j.clamp()
		c.forward()
	}
}

// project removes v's component along the unit vector axis.
func project(v, axis mathutil.Vec3) mathutil.Vec3 {
	return v.Sub(axis.Scale(v.Dot(axis)))
}
