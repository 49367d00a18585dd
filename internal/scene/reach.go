package scene

import (
	"fmt"

	"mu-rig-motion/internal/controller"
	"mu-rig-motion/internal/ik"
	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/path"
	"mu-rig-motion/internal/rig"
	"mu-rig-motion/internal/vqs"
)

// ReachOptions configures the IK half of a Reach scene.
type ReachOptions struct {
	Chain       rig.Chain
	Solver      ik.Solver
	Target      mathutil.Vec3
	Arrive      float64 // distance to the path end that starts the reach
	Constraints []ik.Constraint
	IK          []ik.Option
}

// Reach walks the path like Walk. Once the character is within Arrive of the
// path's end, or the held path finishes, the pose freezes on the active clip's
// first key and the IK solver moves the chain toward the target.
type Reach struct {
	*Walk
	ik       *ik.Controller
	opts     ReachOptions
	end      mathutil.Vec3
	model    vqs.VQS
	manip    int
	reaching bool
}

// NewReach builds the walk and the solver. The chain must exist in r.
func NewReach(r *rig.Rig, p *path.Path, tun controller.Tunables, opts ReachOptions) (*Reach, error) {
	w, err := NewWalk(r, p, tun)
	if err != nil {
		return nil, err
	}
	ee, err := r.Resolve(opts.Chain)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	solver, err := ik.New(r.Skeleton, opts.IK...)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	solver.SetBaseAnimation(w.ctrl.Animation(w.ctrl.Active()))
	m, err := solver.AddEndEffector(ee)
	if err != nil {
		return nil, fmt.Errorf("scene: %w", err)
	}
	if opts.Constraints != nil {
		if err := solver.SetConstraints(m, opts.Constraints); err != nil {
			return nil, fmt.Errorf("scene: %w", err)
		}
	}
	solver.SetTarget(opts.Target)

	pts := p.Points()
	end := pts[len(pts)-1]
	if p.Loop() {
		end = pts[0]
	}
	return &Reach{Walk: w, ik: solver, opts: opts, end: end, manip: m}, nil
}

// Step walks until arrival, then runs one solver pass per frame.
func (r *Reach) Step(dt float64) (Frame, error) {
	if !r.reaching {
		f, err := r.Walk.Step(dt)
		if err != nil {
			return f, err
		}
		f.HasTarget = true
		f.Target = r.opts.Target
		if r.path.Finished() || horizontal(r.path.CurrentPosition(), r.end) < r.opts.Arrive {
			r.startReach(f)
		}
		return f, nil
	}

	if !(dt > 0) {
		return Frame{}, fmt.Errorf("%w (got %v)", ErrStep, dt)
	}
	if err := r.ik.Process(dt, r.opts.Solver); err != nil {
		return Frame{}, fmt.Errorf("scene: frame %d: %w", r.frame, err)
	}
	r.time += dt
	f := Frame{
		Index:     r.frame,
		Time:      r.time,
		Model:     r.model,
		World:     append([]mathutil.Mat4(nil), r.ik.Matrices()...),
		Gait:      "ik",
		HasTarget: true,
		Target:    r.opts.Target,
		Reaching:  true,
		Distance:  r.ik.Distance(r.manip),
	}
	r.frame++
	return f, nil
}

func (r *Reach) startReach(f Frame) {
	r.reaching = true
	r.model = f.Model
	r.ik.SetBaseAnimation(r.ctrl.Animation(r.ctrl.Active()))
	r.ik.SetModelTransform(f.Model)
}

// Reaching reports whether the walk has ended and the solver is running.
func (r *Reach) Reaching() bool {
	return r.reaching
}

// Solver exposes the IK controller for inspection.
func (r *Reach) Solver() *ik.Controller {
	return r.ik
}

func horizontal(a, b mathutil.Vec3) float64 {
	d := a.Sub(b)
	d[1] = 0
	return d.Len()
}
