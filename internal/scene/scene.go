// Package scene drives the two demo set-ups frame by frame: a character
// walking a spline path with gait blending, and a character that walks to a
// target and then reaches for it with IK.
package scene

import (
	"errors"
	"fmt"

	"mu-rig-motion/internal/controller"
	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/path"
	"mu-rig-motion/internal/rig"
	"mu-rig-motion/internal/vqs"
)

var ErrStep = errors.New("scene: time step must be positive")

// Frame is a snapshot of one simulated frame. World is owned by the frame.
type Frame struct {
	Index int
	Time  float64
	Model vqs.VQS
	World []mathutil.Mat4
	Gait  string

	HasTarget bool
	Target    mathutil.Vec3
	Reaching  bool
	Distance  float64 // end effector to target, valid while Reaching
}

// Scene advances a simulation and reports what to draw.
type Scene interface {
	Step(dt float64) (Frame, error)
	Parents() []int
	Path() []mathutil.Vec3
}

// polylineSamples is the number of points used to draw the path.
const polylineSamples = 200

// Walk moves a character along a path, letting the controller pick and blend
// the gait clips from the path's velocity.
type Walk struct {
	ctrl    *controller.Controller
	path    *path.Path
	line    []mathutil.Vec3
	parents []int

	time  float64
	frame int
}

// NewWalk wires r's clips into a controller driven by p. Clips named idle,
// walk and run become the gaits; rigs without them use clip 0 for all three.
func NewWalk(r *rig.Rig, p *path.Path, tun controller.Tunables) (*Walk, error) {
	if len(r.Animations) == 0 {
		return nil, fmt.Errorf("scene: rig %q: %w", r.Name, controller.ErrNoAnimation)
	}
	c := controller.New()
	c.SetSkeleton(r.Skeleton)
	for _, a := range r.Animations {
		if _, err := c.AddAnimation(a); err != nil {
			return nil, fmt.Errorf("scene: %w", err)
		}
	}
	if err := c.SetTunables(tun); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	gaits := [3]int{}
	for g, name := range []string{"idle", "walk", "run"} {
		if i, ok := r.Animation(name); ok {
			gaits[g] = i
		}
	}
	if err := c.SetGaitAnimations(gaits[0], gaits[1], gaits[2]); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	if err := c.SetActiveAnimation(gaits[0]); err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	c.SetAnimationPath(p)

	return &Walk{
		ctrl:    c,
		path:    p,
		line:    p.Polyline(polylineSamples),
		parents: r.Skeleton.Parents(),
	}, nil
}

// Step advances the path and the controller by dt and evaluates the pose.
func (w *Walk) Step(dt float64) (Frame, error) {
	if !(dt > 0) {
		return Frame{}, fmt.Errorf("%w (got %v)", ErrStep, dt)
	}
	w.ctrl.Update(dt)
	if err := w.ctrl.Process(); err != nil {
		return Frame{}, fmt.Errorf("scene: frame %d: %w", w.frame, err)
	}
	w.time += dt
	f := Frame{
		Index: w.frame,
		Time:  w.time,
		Model: w.path.Transform(),
		World: append([]mathutil.Mat4(nil), w.ctrl.Matrices()...),
		Gait:  w.ctrl.Gait().String(),
	}
	w.frame++
	return f, nil
}

func (w *Walk) Parents() []int {
	return w.parents
}

func (w *Walk) Path() []mathutil.Vec3 {
	return w.line
}

// Controller exposes the animation controller for inspection.
func (w *Walk) Controller() *controller.Controller {
	return w.ctrl
}
