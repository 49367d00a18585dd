// Package controller drives animation time from path velocity, picks an
// idle/walk/run clip and cross-fades between clips.
package controller

import (
	"errors"
	"fmt"
	"math"

	"mu-rig-motion/internal/animation"
	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/skeleton"
)

var (
	ErrNoSkeleton  = errors.New("controller: no skeleton")
	ErrNoAnimation = errors.New("controller: no animation")
	ErrIndex       = errors.New("controller: animation index out of range")
)

// Gait is the locomotion state picked from path velocity.
type Gait int

const (
	GaitIdle Gait = iota
	GaitWalk
	GaitRun
)

func (g Gait) String() string {
	switch g {
	case GaitIdle:
		return "idle"
	case GaitWalk:
		return "walk"
	case GaitRun:
		return "run"
	}
	return fmt.Sprintf("gait(%d)", int(g))
}

// Mover is the locomotion source the controller follows. *path.Path
// satisfies it.
type Mover interface {
	Update(dt float64)
	CurrentVelocity() float64
	CruiseVelocity() float64
}

// Controller owns the clips, the playback clock and two independent cursor
// arrays: one for the active clip and one for the blend target.
type Controller struct {
	sk    *skeleton.Skeleton
	anims []*animation.Animation
	mover Mover
	tun   Tunables

	active      int
	next        int
	blending    bool
	blendWeight float64
	time        float64
	speed       float64
	gait        Gait
	gaitAnims   [3]int

	cursors     []animation.TrackData
	nextCursors []animation.TrackData
	matrices    []mathutil.Mat4
}

func New() *Controller {
	return &Controller{
		tun:       DefaultTunables(),
		speed:     1,
		gaitAnims: [3]int{-1, -1, -1},
	}
}

// SetSkeleton installs the skeleton and sizes the cursor and matrix buffers.
func (c *Controller) SetSkeleton(sk *skeleton.Skeleton) {
	c.sk = sk
	c.cursors = animation.NewTrackData(sk.Len())
	c.nextCursors = animation.NewTrackData(sk.Len())
	c.matrices = sk.NewMatrixBuffer()
}

// AddAnimation appends a clip and returns its index.
func (c *Controller) AddAnimation(a *animation.Animation) (int, error) {
	if a == nil {
		return -1, fmt.Errorf("controller: add animation: %w", ErrNoAnimation)
	}
	c.anims = append(c.anims, a)
	return len(c.anims) - 1, nil
}

// SetActiveAnimation switches to clip i immediately, dropping any blend.
func (c *Controller) SetActiveAnimation(i int) error {
	if i < 0 || i >= len(c.anims) {
		return fmt.Errorf("controller: set active %d of %d: %w", i, len(c.anims), ErrIndex)
	}
	c.active = i
	c.next = i
	c.blending = false
	c.blendWeight = 0
	c.time = 0
	animation.ResetTrackData(c.cursors)
	animation.ResetTrackData(c.nextCursors)
	return nil
}

// SetAnimationPath attaches the locomotion source. Nil detaches it and
// playback continues at speed 1.
func (c *Controller) SetAnimationPath(m Mover) {
	c.mover = m
}

// SetGaitAnimations maps each gait to a clip index and applies the tunable
// paces to those clips.
func (c *Controller) SetGaitAnimations(idle, walk, run int) error {
	for _, i := range []int{idle, walk, run} {
		if i < 0 || i >= len(c.anims) {
			return fmt.Errorf("controller: gait animation %d of %d: %w", i, len(c.anims), ErrIndex)
		}
	}
	c.gaitAnims = [3]int{idle, walk, run}
	return c.applyPaces()
}

func (c *Controller) Tunables() Tunables {
	return c.tun
}

// SetTunables validates t, stores it and re-applies the gait paces.
func (c *Controller) SetTunables(t Tunables) error {
	if err := t.Validate(); err != nil {
		return err
	}
	c.tun = t
	return c.applyPaces()
}

func (c *Controller) applyPaces() error {
	for g, idx := range c.gaitAnims {
		pace := c.tun.pace(Gait(g))
		if idx < 0 || pace <= 0 || c.anims[idx].Pace == pace {
			continue
		}
		a, err := c.anims[idx].Retime(pace)
		if err != nil {
			return fmt.Errorf("controller: apply %s pace: %w", Gait(g), err)
		}
		c.anims[idx] = a
	}
	return nil
}

// Update advances the path, selects the gait and advances playback time by
// dt scaled to locomotion speed. Time wraps to zero past the active clip's
// duration; a blend still in flight at that point is committed.
func (c *Controller) Update(dt float64) {
	if c.sk == nil || len(c.anims) == 0 || !(dt > 0) {
		return
	}

	var v, cruise float64
	if c.mover != nil {
		c.mover.Update(dt)
		v = c.mover.CurrentVelocity()
		cruise = c.mover.CruiseVelocity()
		c.selectGait(v, cruise)
	}

	active := c.anims[c.active]
	c.speed = 1
	if c.mover != nil && c.gait != GaitIdle && active.Pace > 0 {
		c.speed = v / active.Pace
	}
	c.time += dt * c.speed

	if c.blending {
		rate := c.tun.BlendFloor
		if cruise > 0 {
			rate = math.Max(v/cruise, c.tun.BlendFloor)
		}
		c.blendWeight = mathutil.Clamp(c.blendWeight+dt*c.tun.BlendRate*rate, 0, 1)
	}

	if active.Duration > 0 && c.time > active.Duration {
		c.time = 0
		animation.ResetTrackData(c.cursors)
		animation.ResetTrackData(c.nextCursors)
		if c.blending {
			c.commit()
		}
	}
}

// selectGait thresholds v and requests a blend when the gait's clip differs
// from the active one. A blend in flight is not retargeted, but one heading
// away from a gait that is selected again is cancelled.
func (c *Controller) selectGait(v, cruise float64) {
	g := GaitWalk
	switch {
	case v < c.tun.IdleVelocity:
		g = GaitIdle
	case v > c.tun.RunFraction*cruise:
		g = GaitRun
	}
	c.gait = g

	idx := c.gaitAnims[g]
	if idx < 0 {
		return
	}
	if c.blending {
		if idx == c.active {
			c.blending = false
			c.blendWeight = 0
			c.next = c.active
			animation.ResetTrackData(c.nextCursors)
		}
		return
	}
	if idx != c.active {
		c.next = idx
		c.blending = true
		c.blendWeight = 0
		animation.ResetTrackData(c.nextCursors)
	}
}

func (c *Controller) commit() {
	c.active = c.next
	c.blending = false
	c.blendWeight = 0
	animation.ResetTrackData(c.cursors)
	animation.ResetTrackData(c.nextCursors)
}

// Process evaluates the pose into the matrix buffer. While blending it runs
// the blend graph and commits the target clip once the graph reports that
// every incoming track reached its final key.
func (c *Controller) Process() error {
	if err := c.ready(); err != nil {
		return err
	}
	active := c.anims[c.active]
	if !c.blending {
		return c.sk.ProcessAnimationGraph(c.time, active, c.cursors, c.matrices)
	}
	done, err := c.sk.ProcessBlendAnimationGraph(c.time, active, c.anims[c.next], c.cursors, c.nextCursors, c.blendWeight, c.matrices)
	if err != nil {
		return err
	}
	if done {
		c.commit()
	}
	return nil
}

// ProcessBindPose writes the rest pose into the matrix buffer.
func (c *Controller) ProcessBindPose() error {
	if c.sk == nil {
		return ErrNoSkeleton
	}
	return c.sk.ProcessBindPose(c.matrices)
}

func (c *Controller) ready() error {
	if c.sk == nil {
		return ErrNoSkeleton
	}
	if len(c.anims) == 0 {
		return ErrNoAnimation
	}
	return nil
}

// Matrices returns the world matrix buffer written by the last Process call.
// The slice is reused across calls.
func (c *Controller) Matrices() []mathutil.Mat4 {
	return c.matrices
}

func (c *Controller) Skeleton() *skeleton.Skeleton {
	return c.sk
}

func (c *Controller) Gait() Gait {
	return c.gait
}

func (c *Controller) Time() float64 {
	return c.time
}

func (c *Controller) Speed() float64 {
	return c.speed
}

func (c *Controller) Active() int {
	return c.active
}

// Blending reports whether a cross-fade is in flight and its target clip.
func (c *Controller) Blending() (bool, int) {
	return c.blending, c.next
}

func (c *Controller) BlendWeight() float64 {
	return c.blendWeight
}

func (c *Controller) AnimationCount() int {
	return len(c.anims)
}

func (c *Controller) Animation(i int) *animation.Animation {
	if i < 0 || i >= len(c.anims) {
		return nil
	}
	return c.anims[i]
}
