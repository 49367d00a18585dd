// Package ik solves joint angles for end effector chains on top of a fixed
// base pose, with either a Jacobian pseudo-inverse or cyclic coordinate
// descent.
package ik

import (
	"errors"
	"fmt"
	"math"

	"mu-rig-motion/internal/animation"
	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/skeleton"
	"mu-rig-motion/internal/vqs"
)

var (
	ErrNoBase      = errors.New("ik: no base animation")
	ErrBone        = errors.New("ik: bone index out of range")
	ErrChain       = errors.New("ik: end effector has no joints between it and the root")
	ErrManipulator = errors.New("ik: manipulator index out of range")
	ErrConstraints = errors.New("ik: invalid constraints")
	ErrOption      = errors.New("ik: invalid option")
)

// Solver selects the per-frame solve strategy.
type Solver int

const (
	SolverJacobian Solver = iota
	SolverCCD
)

func (s Solver) String() string {
	switch s {
	case SolverJacobian:
		return "jacobian"
	case SolverCCD:
		return "ccd"
	}
	return fmt.Sprintf("solver(%d)", int(s))
}

// Controller owns the manipulators and the override pose. Joint bones take
// their rotation from the solved angle; every other local value comes from
// the base animation's first keyframe.
type Controller struct {
	sk     *skeleton.Skeleton
	base   *animation.Animation
	model  vqs.VQS
	target mathutil.Vec3
	opts   options

	manips   []Manipulator
	locals   []vqs.VQS
	world    []vqs.VQS
	matrices []mathutil.Mat4
}

// New creates a controller for sk.
func New(sk *skeleton.Skeleton, opts ...Option) (*Controller, error) {
	if sk == nil {
		return nil, fmt.Errorf("ik: new: %w", skeleton.ErrEmpty)
	}
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	switch {
	case math.IsNaN(o.threshold) || o.threshold < 0:
		return nil, fmt.Errorf("%w: threshold %v", ErrOption, o.threshold)
	case math.IsNaN(o.gain) || math.IsInf(o.gain, 0) || o.gain <= 0:
		return nil, fmt.Errorf("%w: step %v", ErrOption, o.gain)
	case o.iterations < 1:
		return nil, fmt.Errorf("%w: iterations %d", ErrOption, o.iterations)
	case o.defaultAxis.Len() < 1e-12:
		return nil, fmt.Errorf("%w: zero default axis", ErrOption)
	}
	o.defaultAxis = o.defaultAxis.Normalize()

	n := sk.Len()
	return &Controller{
		sk:       sk,
		model:    vqs.Identity(),
		opts:     o,
		locals:   make([]vqs.VQS, n),
		world:    make([]vqs.VQS, n),
		matrices: sk.NewMatrixBuffer(),
	}, nil
}

// SetBaseAnimation installs the clip whose first keyframe is the static pose
// and rebuilds every manipulator from it.
func (c *Controller) SetBaseAnimation(anim *animation.Animation) {
	c.base = anim
	if anim == nil {
		return
	}
	for i := range c.locals {
		c.locals[i] = anim.BaseTransform(i)
	}
	for m := range c.manips {
		c.initJoints(&c.manips[m])
	}
	c.forward()
}

// SetModelTransform places the skeleton in the world. Targets are world
// positions.
func (c *Controller) SetModelTransform(t vqs.VQS) {
	c.model = t
	if c.base != nil {
		c.forward()
	}
}

func (c *Controller) SetTarget(p mathutil.Vec3) {
	c.target = p
}

func (c *Controller) Target() mathutil.Vec3 {
	return c.target
}

// AddEndEffector builds a chain from bone up to, but excluding, its root and
// returns the manipulator index.
func (c *Controller) AddEndEffector(bone int) (int, error) {
	if c.base == nil {
		return -1, ErrNoBase
	}
	if bone < 0 || bone >= c.sk.Len() {
		return -1, fmt.Errorf("ik: add end effector %d: %w", bone, ErrBone)
	}
	var chain []int
	for b := c.sk.Parent(bone); b >= 0 && c.sk.Parent(b) >= 0; b = c.sk.Parent(b) {
		chain = append(chain, b)
	}
	if len(chain) == 0 {
		return -1, fmt.Errorf("ik: add end effector %d: %w", bone, ErrChain)
	}

	m := Manipulator{EndEffector: bone, Joints: make([]Joint, len(chain))}
	for i, b := range chain {
		j := &m.Joints[len(chain)-1-i]
		j.Bone = b
		j.Min, j.Max = math.Inf(-1), math.Inf(1)
	}
	c.initJoints(&m)
	c.manips = append(c.manips, m)
	c.forward()
	return len(c.manips) - 1, nil
}

// initJoints takes each joint's axis and angle from the base rotation.
func (c *Controller) initJoints(m *Manipulator) {
	for i := range m.Joints {
		j := &m.Joints[i]
		j.LocalAxis, j.BaseAngle = c.base.BaseTransform(j.Bone).Q.ToAxisAngle(c.opts.defaultAxis)
		j.Angle = j.BaseAngle
	}
}

// SetConstraints assigns one angle range per joint, root to tip.
func (c *Controller) SetConstraints(manip int, cs []Constraint) error {
	if manip < 0 || manip >= len(c.manips) {
		return fmt.Errorf("ik: set constraints %d: %w", manip, ErrManipulator)
	}
	m := &c.manips[manip]
	if len(cs) != len(m.Joints) {
		return fmt.Errorf("ik: set constraints: %w: %d for %d joints", ErrConstraints, len(cs), len(m.Joints))
	}
	for i, cn := range cs {
		if cn.Min > cn.Max {
			return fmt.Errorf("ik: set constraints: joint %d: min %v > max %v: %w", i, cn.Min, cn.Max, ErrConstraints)
		}
		m.Joints[i].Min, m.Joints[i].Max = cn.Min, cn.Max
	}
	return nil
}

// Process solves every manipulator once and re-evaluates the pose.
func (c *Controller) Process(dt float64, solver Solver) error {
	if c.base == nil {
		return ErrNoBase
	}
	c.ProcessManipulators(dt, solver)
	return c.ProcessAnimation()
}

// ProcessManipulators updates joint angles toward the target. Chains already
// within the threshold are skipped.
func (c *Controller) ProcessManipulators(dt float64, solver Solver) {
	if c.base == nil {
		return
	}
	for i := range c.manips {
		m := &c.manips[i]
		if c.Distance(i) < c.opts.threshold {
			continue
		}
		switch solver {
		case SolverJacobian:
			c.solveJacobian(m, dt)
		case SolverCCD:
			for it := 0; it < c.opts.iterations; it++ {
				c.solveCCD(m)
				if c.Distance(i) < c.opts.threshold {
					break
				}
			}
		}
	}
}

// ProcessAnimation composes the override pose into the matrix buffer, in
// skeleton space like skeleton.ProcessAnimationGraph.
func (c *Controller) ProcessAnimation() error {
	if c.base == nil {
		return ErrNoBase
	}
	c.applyJoints()
	return c.sk.Walk(c.matrices, func(i int) vqs.VQS {
		return c.locals[i]
	})
}

// Reset restores the base angles and recomputes joint positions.
func (c *Controller) Reset() {
	for m := range c.manips {
		for j := range c.manips[m].Joints {
			jt := &c.manips[m].Joints[j]
			jt.Angle = jt.BaseAngle
		}
	}
	if c.base != nil {
		c.forward()
	}
}

// applyJoints writes each joint's solved rotation into the local pose. A bone
// shared by two chains takes the later chain's angle.
func (c *Controller) applyJoints() {
	for m := range c.manips {
		for _, j := range c.manips[m].Joints {
			l := c.locals[j.Bone]
			l.Q = mathutil.QuatFromAxisAngle(j.LocalAxis, j.Angle)
			c.locals[j.Bone] = l
		}
	}
}

// forward recomputes world transforms, including the model placement, and
// refreshes every joint's world position and axis.
func (c *Controller) forward() {
	c.applyJoints()
	for i := range c.world {
		p := c.sk.Parent(i)
		if p < 0 {
			c.world[i] = c.model.Concatenate(c.locals[i])
		} else {
			c.world[i] = c.world[p].Concatenate(c.locals[i])
		}
	}
	for m := range c.manips {
		for k := range c.manips[m].Joints {
			j := &c.manips[m].Joints[k]
			j.Position = c.world[j.Bone].V
			j.Axis = c.world[c.sk.Parent(j.Bone)].Q.Rotate(j.LocalAxis)
		}
	}
}

// EndEffectorPosition returns the world position of manipulator m's end
// effector as of the last solve.
func (c *Controller) EndEffectorPosition(m int) mathutil.Vec3 {
	if m < 0 || m >= len(c.manips) {
		return mathutil.Vec3{}
	}
	return c.world[c.manips[m].EndEffector].V
}

// Distance is the world distance from manipulator m's end effector to the
// target.
func (c *Controller) Distance(m int) float64 {
	return c.EndEffectorPosition(m).Dist(c.target)
}

// Matrices returns the buffer written by ProcessAnimation.
func (c *Controller) Matrices() []mathutil.Mat4 {
	return c.matrices
}

// Manipulators returns a copy of the chains and their current joint state.
func (c *Controller) Manipulators() []Manipulator {
	out := make([]Manipulator, len(c.manips))
	for i, m := range c.manips {
		out[i] = Manipulator{EndEffector: m.EndEffector, Joints: append([]Joint(nil), m.Joints...)}
	}
	return out
}
