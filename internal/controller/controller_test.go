package controller

import (
	"errors"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"mu-rig-motion/internal/animation"
	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/path"
	"mu-rig-motion/internal/skeleton"
	"mu-rig-motion/internal/vqs"
)

// fixedMover reports a constant velocity.
type fixedMover struct {
	v, cruise float64
	elapsed   float64
}

func (m *fixedMover) Update(dt float64)         { m.elapsed += dt }
func (m *fixedMover) CurrentVelocity() float64 { return m.v }
func (m *fixedMover) CruiseVelocity() float64  { return m.cruise }

func clip(t *testing.T, name string, dur, pace, y float64) *animation.Animation {
	t.Helper()
	tr := animation.Track{Keys: []animation.KeyFrame{
		{Time: 0, Transform: vqs.FromTranslation(mathutil.Vec3{0, y, 0})},
		{Time: dur, Transform: vqs.FromTranslation(mathutil.Vec3{0, y, 0})},
	}}
	a, err := animation.New(name, dur, pace, []animation.Track{tr})
	if err != nil {
		t.Fatal(err)
	}
	return a
}

// newGaitController has idle (0), walk (1) and run (2) clips on a one-bone
// skeleton, with idle active.
func newGaitController(t *testing.T) *Controller {
	t.Helper()
	sk, err := skeleton.New([]skeleton.Bone{{Parent: -1, Bind: vqs.Identity()}})
	if err != nil {
		t.Fatal(err)
	}
	c := New()
	c.SetSkeleton(sk)
	for _, a := range []*animation.Animation{
		clip(t, "idle", 2, 0, 0),
		clip(t, "walk", 1, 250, 1),
		clip(t, "run", 5, 600, 2),
	} {
		if _, err := c.AddAnimation(a); err != nil {
			t.Fatal(err)
		}
	}
	if err := c.SetGaitAnimations(0, 1, 2); err != nil {
		t.Fatal(err)
	}
	if err := c.SetActiveAnimation(0); err != nil {
		t.Fatal(err)
	}
	return c
}

func TestSelectGaitThresholds(t *testing.T) {
	tests := []struct {
		v    float64
		want Gait
	}{
		{0, GaitIdle},
		{19, GaitIdle},
		{20, GaitWalk},
		{446, GaitWalk},
		{447, GaitRun},
		{670, GaitRun},
	}
	for _, tt := range tests {
		c := newGaitController(t)
		c.selectGait(tt.v, 670)
		if c.Gait() != tt.want {
			t.Errorf("v=%v: gait %v, want %v", tt.v, c.Gait(), tt.want)
		}
	}
}

func TestGaitChangeStartsBlend(t *testing.T) {
	c := newGaitController(t)
	c.selectGait(300, 670)
	if blending, next := c.Blending(); !blending || next != 1 {
		t.Fatalf("blending=%v next=%d", blending, next)
	}

	// Retargeting is ignored while in flight.
	c.selectGait(600, 670)
	if _, next := c.Blending(); next != 1 {
		t.Fatalf("blend retargeted to %d", next)
	}

	// Returning to the active gait cancels.
	c.selectGait(0, 670)
	if blending, _ := c.Blending(); blending {
		t.Fatal("blend not cancelled")
	}
}

func TestProcessCommitsCompletedBlend(t *testing.T) {
	c := newGaitController(t)
	c.selectGait(300, 670)
	c.blendWeight = 0.5

	c.time = 0.5
	if err := c.Process(); err != nil {
		t.Fatal(err)
	}
	if got := c.Matrices()[0].Translation(); !scalar.EqualWithinAbs(got[1], 0.5, 1e-12) {
		t.Fatalf("half blend at %v", got)
	}
	if blending, _ := c.Blending(); !blending {
		t.Fatal("blend finished early")
	}

	c.time = 1
	if err := c.Process(); err != nil {
		t.Fatal(err)
	}
	if blending, _ := c.Blending(); blending || c.Active() != 1 {
		t.Fatalf("blending=%v active=%d after incoming final key", blending, c.Active())
	}
	if got := c.Matrices()[0].Translation(); got[1] != 1 {
		t.Fatalf("committed pose at %v", got)
	}
}

func TestWrapCommitsBlendInFlight(t *testing.T) {
	c := newGaitController(t)
	if err := c.SetActiveAnimation(1); err != nil {
		t.Fatal(err)
	}
	c.selectGait(600, 670)

	c.Update(1.5)
	if c.Time() != 0 {
		t.Fatalf("time = %v after wrap", c.Time())
	}
	if blending, _ := c.Blending(); blending || c.Active() != 2 {
		t.Fatalf("blending=%v active=%d", blending, c.Active())
	}
}

func TestUpdateWithoutPathPlaysAtUnitSpeed(t *testing.T) {
	c := newGaitController(t)
	c.Update(0.5)
	if c.Time() != 0.5 || c.Speed() != 1 {
		t.Fatalf("time=%v speed=%v", c.Time(), c.Speed())
	}
	c.Update(0)
	c.Update(-1)
	if c.Time() != 0.5 {
		t.Fatalf("non-positive dt advanced time to %v", c.Time())
	}
}

func TestSpeedFollowsPace(t *testing.T) {
	c := newGaitController(t)
	if err := c.SetActiveAnimation(2); err != nil {
		t.Fatal(err)
	}
	m := &fixedMover{v: 660, cruise: 670}
	c.SetAnimationPath(m)

	c.Update(0.01)
	if c.Gait() != GaitRun {
		t.Fatalf("gait %v", c.Gait())
	}
	if !scalar.EqualWithinAbs(c.Speed(), 660.0/600, 1e-12) {
		t.Fatalf("speed = %v", c.Speed())
	}
	if !scalar.EqualWithinAbs(c.Time(), 0.01*660/600, 1e-12) {
		t.Fatalf("time = %v", c.Time())
	}
	if m.elapsed != 0.01 {
		t.Fatalf("mover not advanced")
	}

	m.v = 0
	c.Update(0.01)
	if c.Gait() != GaitIdle || c.Speed() != 1 {
		t.Fatalf("idle gait=%v speed=%v", c.Gait(), c.Speed())
	}
}

func TestBlendWeightRamps(t *testing.T) {
	c := newGaitController(t)
	m := &fixedMover{v: 335, cruise: 670}
	c.SetAnimationPath(m)

	c.Update(0.1)
	// 0.1 s * rate 2 * max(0.5, 0.25)
	if !scalar.EqualWithinAbs(c.BlendWeight(), 0.1, 1e-12) {
		t.Fatalf("weight = %v", c.BlendWeight())
	}
	for i := 0; i < 20; i++ {
		c.Update(0.1)
		if w := c.BlendWeight(); w < 0 || w > 1 {
			t.Fatalf("weight %v out of range", w)
		}
	}
}

func TestControllerFollowsRealPath(t *testing.T) {
	c := newGaitController(t)
	p, err := path.New([]mathutil.Vec3{{0, 0, 0}, {0, 0, 1000}, {0, 0, 2000}}, path.WithDuration(30))
	if err != nil {
		t.Fatal(err)
	}
	c.SetAnimationPath(p)
	c.Update(15)
	if c.Gait() != GaitRun {
		t.Fatalf("gait at cruise = %v", c.Gait())
	}
	if err := c.Process(); err != nil {
		t.Fatal(err)
	}
}

func TestSetTunablesRetimesGaitClips(t *testing.T) {
	c := newGaitController(t)
	orig := c.Animation(1)

	tun := c.Tunables()
	tun.WalkPace = 123
	if err := c.SetTunables(tun); err != nil {
		t.Fatal(err)
	}
	if got := c.Animation(1).Pace; got != 123 {
		t.Fatalf("walk pace = %v", got)
	}
	if orig.Pace != 250 {
		t.Fatalf("original clip mutated: pace %v", orig.Pace)
	}

	tun.RunFraction = 2
	if err := c.SetTunables(tun); !errors.Is(err, ErrTunables) {
		t.Fatalf("got %v", err)
	}
}

func TestControllerErrors(t *testing.T) {
	c := New()
	if err := c.Process(); !errors.Is(err, ErrNoSkeleton) {
		t.Fatalf("got %v", err)
	}
	if err := c.ProcessBindPose(); !errors.Is(err, ErrNoSkeleton) {
		t.Fatalf("got %v", err)
	}

	g := newGaitController(t)
	if err := g.SetActiveAnimation(7); !errors.Is(err, ErrIndex) {
		t.Fatalf("got %v", err)
	}
	if err := g.SetGaitAnimations(0, 1, 9); !errors.Is(err, ErrIndex) {
		t.Fatalf("got %v", err)
	}
	if _, err := g.AddAnimation(nil); !errors.Is(err, ErrNoAnimation) {
		t.Fatalf("got %v", err)
	}
}
