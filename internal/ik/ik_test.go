package ik

import (
	"errors"
	"math"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"mu-rig-motion/internal/animation"
	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/skeleton"
	"mu-rig-motion/internal/vqs"
)

// rig builds a skeleton plus a one-key base animation from local transforms,
// where bone i's parent is i-1.
func rig(t *testing.T, locals []vqs.VQS) (*skeleton.Skeleton, *animation.Animation) {
	t.Helper()
	bones := make([]skeleton.Bone, len(locals))
	tracks := make([]animation.Track, len(locals))
	for i, l := range locals {
		bones[i] = skeleton.Bone{Parent: i - 1, Bind: l}
		tracks[i] = animation.Track{Keys: []animation.KeyFrame{{Time: 0, Transform: l}}}
	}
	sk, err := skeleton.New(bones)
	if err != nil {
		t.Fatal(err)
	}
	anim, err := animation.New("base", 0, 0, tracks)
	if err != nil {
		t.Fatal(err)
	}
	return sk, anim
}

// planar is a root plus three Z-axis joints with 10-unit links along +Y and
// an end effector at (0,30,0).
func planar(t *testing.T, opts ...Option) *Controller {
	t.Helper()
	up := vqs.FromTranslation(mathutil.Vec3{0, 10, 0})
	sk, anim := rig(t, []vqs.VQS{vqs.Identity(), vqs.Identity(), up, up, up})
	c, err := New(sk, opts...)
	if err != nil {
		t.Fatal(err)
	}
	c.SetBaseAnimation(anim)
	if _, err := c.AddEndEffector(4); err != nil {
		t.Fatal(err)
	}
	return c
}

func anglesFinite(c *Controller) bool {
	for _, m := range c.Manipulators() {
		for _, j := range m.Joints {
			if math.IsNaN(j.Angle) || math.IsInf(j.Angle, 0) {
				return false
			}
		}
	}
	return true
}

func TestChainOrderRootToTip(t *testing.T) {
	c := planar(t)
	m := c.Manipulators()[0]
	if m.EndEffector != 4 || len(m.Joints) != 3 {
		t.Fatalf("manipulator %+v", m)
	}
	for i, want := range []int{1, 2, 3} {
		j := m.Joints[i]
		if j.Bone != want {
			t.Fatalf("joint %d bone %d, want %d", i, j.Bone, want)
		}
		if j.Axis.Dist(mathutil.UnitZ) > 1e-12 || j.Angle != 0 {
			t.Fatalf("joint %d axis %v angle %v", i, j.Axis, j.Angle)
		}
	}
	if got := c.EndEffectorPosition(0); got.Dist(mathutil.Vec3{0, 30, 0}) > 1e-12 {
		t.Fatalf("end effector at %v", got)
	}
}

func TestCCDConvergesOnReachableTarget(t *testing.T) {
	c := planar(t, WithThreshold(0.1))
	c.SetTarget(mathutil.Vec3{15, 12, 0})

	iters := 0
	for ; iters < 100 && c.Distance(0) >= 0.1; iters++ {
		if err := c.Process(1.0/60, SolverCCD); err != nil {
			t.Fatal(err)
		}
	}
	if d := c.Distance(0); d >= 0.1 {
		t.Fatalf("distance %v after %d iterations", d, iters)
	}

	ee := c.Matrices()[4].Translation()
	if ee.Dist(c.EndEffectorPosition(0)) > 1e-9 {
		t.Fatalf("rendered end effector %v, solved %v", ee, c.EndEffectorPosition(0))
	}
}

func TestCCDHonoursModelTransform(t *testing.T) {
	c := planar(t, WithThreshold(0.1), WithMaxIterations(5))
	c.SetModelTransform(vqs.FromTranslation(mathutil.Vec3{100, 0, 0}))
	if got := c.EndEffectorPosition(0); got.Dist(mathutil.Vec3{100, 30, 0}) > 1e-12 {
		t.Fatalf("placed end effector at %v", got)
	}
	c.SetTarget(mathutil.Vec3{85, 12, 0})
	for i := 0; i < 50 && c.Distance(0) >= 0.1; i++ {
		c.ProcessManipulators(1.0/60, SolverCCD)
	}
	if d := c.Distance(0); d >= 0.1 {
		t.Fatalf("distance %v", d)
	}
}

func TestJacobianExtendedChain(t *testing.T) {
	// Fully extended along Y: every column of J is parallel to X.
	c := planar(t, WithThreshold(0.01))
	c.SetTarget(mathutil.Vec3{0, 40, 0})
	before := c.Manipulators()[0]
	for i := 0; i < 10; i++ {
		if err := c.Process(1.0/60, SolverJacobian); err != nil {
			t.Fatal(err)
		}
	}
	if !anglesFinite(c) {
		t.Fatal("non-finite joint angle")
	}
	after := c.Manipulators()[0]
	for i := range after.Joints {
		if !scalar.EqualWithinAbs(after.Joints[i].Angle, before.Joints[i].Angle, 1e-9) {
			t.Fatalf("joint %d moved from %v to %v toward an unreachable direction", i, before.Joints[i].Angle, after.Joints[i].Angle)
		}
	}

	// An off-axis target still has a reachable component.
	c = planar(t, WithThreshold(0.01))
	c.SetTarget(mathutil.Vec3{5, 29, 0})
	start := c.Distance(0)
	for i := 0; i < 60; i++ {
		if err := c.Process(1.0/60, SolverJacobian); err != nil {
			t.Fatal(err)
		}
	}
	if !anglesFinite(c) {
		t.Fatal("non-finite joint angle")
	}
	if got := c.Distance(0); !(got < start) {
		t.Fatalf("distance %v, started at %v", got, start)
	}
}

func TestJacobianBentPlanarChain(t *testing.T) {
	up := mathutil.Vec3{0, 10, 0}
	sk, anim := rig(t, []vqs.VQS{
		vqs.Identity(),
		vqs.FromRotation(mathutil.QuatFromAxisAngle(mathutil.UnitZ, 0.3)),
		vqs.New(up, mathutil.QuatFromAxisAngle(mathutil.UnitZ, 0.5), 1),
		vqs.New(up, mathutil.QuatFromAxisAngle(mathutil.UnitZ, 0.5), 1),
		vqs.FromTranslation(up),
	})
	c, err := New(sk, WithThreshold(1e-3))
	if err != nil {
		t.Fatal(err)
	}
	c.SetBaseAnimation(anim)
	if _, err := c.AddEndEffector(4); err != nil {
		t.Fatal(err)
	}
	c.SetTarget(c.EndEffectorPosition(0).Add(mathutil.Vec3{2, -2, 0}))
	start := c.Distance(0)

	for i := 0; i < 200; i++ {
		if err := c.Process(0.2, SolverJacobian); err != nil {
			t.Fatal(err)
		}
	}
	if !anglesFinite(c) {
		t.Fatal("non-finite joint angle")
	}
	if got := c.Distance(0); got > 0.05*start {
		t.Fatalf("distance %v, started at %v", got, start)
	}
}

func TestJacobianConverges(t *testing.T) {
	// Bent chain with X, Z, X axes so the Jacobian has full row rank.
	sk, anim := rig(t, []vqs.VQS{
		vqs.Identity(),
		vqs.FromRotation(mathutil.QuatFromAxisAngle(mathutil.UnitX, 0.1)),
		vqs.New(mathutil.Vec3{0, 10, 0}, mathutil.QuatFromAxisAngle(mathutil.UnitZ, 0.1), 1),
		vqs.New(mathutil.Vec3{0, 10, 0}, mathutil.QuatFromAxisAngle(mathutil.UnitX, 0.1), 1),
		vqs.FromTranslation(mathutil.Vec3{0, 0, 10}),
	})
	c, err := New(sk, WithThreshold(1e-4))
	if err != nil {
		t.Fatal(err)
	}
	c.SetBaseAnimation(anim)
	if _, err := c.AddEndEffector(4); err != nil {
		t.Fatal(err)
	}
	start := c.EndEffectorPosition(0)
	c.SetTarget(start.Add(mathutil.Vec3{1, -1, 1}))

	for i := 0; i < 200; i++ {
		if err := c.Process(0.2, SolverJacobian); err != nil {
			t.Fatal(err)
		}
	}
	if d := c.Distance(0); d > 1e-2 {
		t.Fatalf("distance %v after Jacobian steps", d)
	}
	if !anglesFinite(c) {
		t.Fatal("non-finite joint angle")
	}
}

func TestConstraintsClamp(t *testing.T) {
	c := planar(t, WithThreshold(0.1))
	lim := Constraint{Min: -0.1, Max: 0.1}
	if err := c.SetConstraints(0, []Constraint{lim, lim, lim}); err != nil {
		t.Fatal(err)
	}
	c.SetTarget(mathutil.Vec3{20, 0, 0})
	for i := 0; i < 30; i++ {
		c.ProcessManipulators(1.0/60, SolverCCD)
	}
	for i, j := range c.Manipulators()[0].Joints {
		if j.Angle < lim.Min || j.Angle > lim.Max {
			t.Fatalf("joint %d angle %v outside limits", i, j.Angle)
		}
	}
	if c.Distance(0) < 0.1 {
		t.Fatal("clamped chain should not reach the target")
	}

	if err := c.SetConstraints(0, []Constraint{lim}); !errors.Is(err, ErrConstraints) {
		t.Fatalf("got %v", err)
	}
	if err := c.SetConstraints(3, nil); !errors.Is(err, ErrManipulator) {
		t.Fatalf("got %v", err)
	}
}

func TestResetRestoresBasePose(t *testing.T) {
	c := planar(t, WithThreshold(0.1))
	c.SetTarget(mathutil.Vec3{15, 12, 0})
	for i := 0; i < 5; i++ {
		c.ProcessManipulators(1.0/60, SolverCCD)
	}
	if c.EndEffectorPosition(0).Dist(mathutil.Vec3{0, 30, 0}) < 1 {
		t.Fatal("solve did not move the chain")
	}

	c.Reset()
	for i, j := range c.Manipulators()[0].Joints {
		if j.Angle != j.BaseAngle {
			t.Fatalf("joint %d angle %v, base %v", i, j.Angle, j.BaseAngle)
		}
	}
	if got := c.EndEffectorPosition(0); got.Dist(mathutil.Vec3{0, 30, 0}) > 1e-9 {
		t.Fatalf("end effector at %v after reset", got)
	}
}

func TestBaseRotationGivesAxisAndAngle(t *testing.T) {
	sk, anim := rig(t, []vqs.VQS{
		vqs.Identity(),
		vqs.FromRotation(mathutil.QuatFromAxisAngle(mathutil.UnitX, 0.7)),
		vqs.FromTranslation(mathutil.Vec3{0, 5, 0}),
	})
	c, err := New(sk)
	if err != nil {
		t.Fatal(err)
	}
	c.SetBaseAnimation(anim)
	if _, err := c.AddEndEffector(2); err != nil {
		t.Fatal(err)
	}
	j := c.Manipulators()[0].Joints[0]
	if j.LocalAxis.Dist(mathutil.UnitX) > 1e-9 || !scalar.EqualWithinAbs(j.BaseAngle, 0.7, 1e-9) {
		t.Fatalf("axis %v angle %v", j.LocalAxis, j.BaseAngle)
	}

	if err := c.ProcessAnimation(); err != nil {
		t.Fatal(err)
	}
	base := sk.NewMatrixBuffer()
	if err := sk.ProcessBaseAnimationGraph(anim, base); err != nil {
		t.Fatal(err)
	}
	for i := range base {
		if !base[i].ApproxEqual(c.Matrices()[i], 1e-9) {
			t.Fatalf("bone %d differs from base pose", i)
		}
	}
}

func TestAddEndEffectorErrors(t *testing.T) {
	up := vqs.FromTranslation(mathutil.Vec3{0, 10, 0})
	sk, anim := rig(t, []vqs.VQS{vqs.Identity(), up, up})
	c, err := New(sk)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := c.AddEndEffector(2); !errors.Is(err, ErrNoBase) {
		t.Fatalf("got %v", err)
	}
	if err := c.Process(0.1, SolverCCD); !errors.Is(err, ErrNoBase) {
		t.Fatalf("got %v", err)
	}
	c.SetBaseAnimation(anim)

	tests := []struct {
		bone int
		want error
	}{
		{0, ErrChain},
		{1, ErrChain},
		{3, ErrBone},
		{-1, ErrBone},
	}
	for _, tt := range tests {
		if _, err := c.AddEndEffector(tt.bone); !errors.Is(err, tt.want) {
			t.Errorf("bone %d: got %v, want %v", tt.bone, err, tt.want)
		}
	}
	if _, err := New(sk, WithMaxIterations(0)); !errors.Is(err, ErrOption) {
		t.Fatalf("got %v", err)
	}
}

func TestDefaultRightArmConstraints(t *testing.T) {
	cs := DefaultRightArmConstraints()
	if len(cs) != 5 {
		t.Fatalf("%d constraints", len(cs))
	}
	if !scalar.EqualWithinAbs(cs[2].Min, 80*math.Pi/180, 1e-12) || !scalar.EqualWithinAbs(cs[0].Min, -100*math.Pi/180, 1e-12) {
		t.Fatalf("upper arm %+v spine %+v", cs[2], cs[0])
	}
	for i, cn := range cs {
		if cn.Min > cn.Max {
			t.Fatalf("constraint %d inverted", i)
		}
	}
}
