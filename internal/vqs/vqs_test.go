package vqs

import (
	"errors"
	"math"
	"testing"

	"mu-rig-motion/internal/mathutil"
)

func sample() (VQS, VQS) {
	a := New(mathutil.Vec3{1, 2, 3}, mathutil.QuatFromAxisAngle(mathutil.UnitY, 0.8), 2)
	b := New(mathutil.Vec3{-4, 0.5, 1}, mathutil.QuatFromAxisAngle(mathutil.Vec3{1, 1, 0}, -0.3), 0.5)
	return a, b
}

func TestConcatenateAppliesRightFirst(t *testing.T) {
	a, b := sample()
	p := mathutil.Vec3{0.25, -1, 7}

	got := a.Concatenate(b).Transform(p)
	want := a.Transform(b.Transform(p))
	if got.Dist(want) > 1e-9 {
		t.Fatalf("(a∘b)(p) = %v, a(b(p)) = %v", got, want)
	}
}

func TestInverse(t *testing.T) {
	a, _ := sample()
	if got := a.Concatenate(a.Inverse()); !got.ApproxEqual(Identity(), 1e-9) {
		t.Fatalf("a∘a⁻¹ = %v", got)
	}
	if got := a.Inverse().Concatenate(a); !got.ApproxEqual(Identity(), 1e-9) {
		t.Fatalf("a⁻¹∘a = %v", got)
	}
}

func TestToMatrixMatchesTransform(t *testing.T) {
	a, b := sample()
	p := mathutil.Vec3{3, -2, 1}
	for _, x := range []VQS{a, b, a.Concatenate(b)} {
		if got, want := x.ToMatrix().MulPoint(p), x.Transform(p); got.Dist(want) > 1e-9 {
			t.Fatalf("matrix %v, transform %v", got, want)
		}
	}

	m := mathutil.Mat4Mul(a.ToMatrix(), b.ToMatrix())
	if !m.ApproxEqual(a.Concatenate(b).ToMatrix(), 1e-9) {
		t.Fatal("ToMatrix(a∘b) != ToMatrix(a)·ToMatrix(b)")
	}
}

func TestInterpolateTo(t *testing.T) {
	a := FromTranslation(mathutil.Vec3{0, 0, 0})
	b := New(mathutil.Vec3{0, 10, 0}, mathutil.QuatFromAxisAngle(mathutil.UnitZ, math.Pi/2), 3)

	mid := a.InterpolateTo(b, 0.5)
	if mid.V != (mathutil.Vec3{0, 5, 0}) {
		t.Errorf("V = %v", mid.V)
	}
	if mid.S != 2 {
		t.Errorf("S = %v", mid.S)
	}
	if !mid.Q.SameRotation(mathutil.QuatFromAxisAngle(mathutil.UnitZ, math.Pi/4), 1e-12) {
		t.Errorf("Q = %v", mid.Q)
	}
	if got := a.InterpolateTo(b, 1); !got.ApproxEqual(b, 1e-12) {
		t.Errorf("t=1 gave %v", got)
	}
}

func TestInterpolateToTakesShortArc(t *testing.T) {
	a := FromRotation(mathutil.QuatFromAxisAngle(mathutil.UnitX, 0.1))
	b := VQS{Q: mathutil.QuatFromAxisAngle(mathutil.UnitX, 0.5).Neg(), S: 1}

	mid := a.InterpolateTo(b, 0.5)
	if !mid.Q.SameRotation(mathutil.QuatFromAxisAngle(mathutil.UnitX, 0.3), 1e-12) {
		t.Fatalf("went the long way: %v", mid.Q)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		x    VQS
		want error
	}{
		{"identity", Identity(), nil},
		{"zero scale", VQS{Q: mathutil.QuatIdentity()}, ErrScale},
		{"negative scale", VQS{Q: mathutil.QuatIdentity(), S: -1}, ErrScale},
		{"nan scale", VQS{Q: mathutil.QuatIdentity(), S: math.NaN()}, ErrScale},
		{"zero rotation", VQS{S: 1}, ErrRotation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.x.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}
}
