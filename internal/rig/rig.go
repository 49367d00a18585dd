// Package rig turns imported BMD models, or the built-in demo figure, into a
// skeleton and its animation clips.
package rig

import (
	"errors"
	"fmt"

	"mu-rig-motion/internal/animation"
	"mu-rig-motion/internal/bmd"
	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/skeleton"
	"mu-rig-motion/internal/vqs"
)

var (
	ErrFPS       = errors.New("rig: frame rate must be positive")
	ErrHierarchy = errors.New("rig: broken bone hierarchy")
	ErrChain     = errors.New("rig: chain not found")
)

// Rig is a skeleton plus its clips. Source maps each skeleton bone back to
// its index in the imported file.
type Rig struct {
	Name       string
	Skeleton   *skeleton.Skeleton
	Animations []*animation.Animation
	Source     []int
}

// Animation returns the index of the clip called name.
func (r *Rig) Animation(name string) (int, bool) {
	for i, a := range r.Animations {
		if a.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Chain names an end effector and the joints above it, root side first.
type Chain struct {
	EndEffector string
	Joints      []string
}

// RightArmChain matches DefaultRightArmConstraints in package ik.
var RightArmChain = Chain{
	EndEffector: "r_fingertip",
	Joints:      []string{"spine", "chest", "r_upperarm", "r_forearm", "r_hand"},
}

// Resolve finds the end effector of c and checks that the bones between it
// and the root are exactly c.Joints. A chain without joints only needs the
// end effector to exist.
func (r *Rig) Resolve(c Chain) (int, error) {
	ee, ok := r.Skeleton.BoneByName(c.EndEffector)
	if !ok {
		return -1, fmt.Errorf("%w: no bone %q", ErrChain, c.EndEffector)
	}
	if len(c.Joints) == 0 {
		return ee, nil
	}
	var names []string
	for b := r.Skeleton.Parent(ee); b >= 0 && r.Skeleton.Parent(b) >= 0; b = r.Skeleton.Parent(b) {
		names = append([]string{r.Skeleton.Bone(b).Name}, names...)
	}
	if len(names) != len(c.Joints) {
		return -1, fmt.Errorf("%w: %q has %d joints, want %d", ErrChain, c.EndEffector, len(names), len(c.Joints))
	}
	for i := range names {
		if names[i] != c.Joints[i] {
			return -1, fmt.Errorf("%w: joint %d is %q, want %q", ErrChain, i, names[i], c.Joints[i])
		}
	}
	return ee, nil
}

// FromBMD converts a parsed model. Bones are reordered so every parent comes
// before its children, dummy bones become identity roots, and the Z-up to
// Y-up flip is folded into every root. Each action with keys becomes a clip
// sampled at fps; bones without keys in an action hold their bind pose.
func FromBMD(m *bmd.Model, fps float64) (*Rig, error) {
	if !(fps > 0) {
		return nil, fmt.Errorf("%w (got %v)", ErrFPS, fps)
	}
	n := len(m.Bones)
	if n == 0 {
		return nil, fmt.Errorf("rig: %q: %w", m.Name, skeleton.ErrEmpty)
	}

	parents := make([]int, n)
	for i, b := range m.Bones {
		parents[i] = b.Parent
		if b.IsDummy {
			parents[i] = -1
		}
	}
	order, err := topoOrder(parents)
	if err != nil {
		return nil, fmt.Errorf("rig: %q: %w", m.Name, err)
	}
	newIndex := make([]int, n)
	for ni, oi := range order {
		newIndex[oi] = ni
	}

	bones := make([]skeleton.Bone, n)
	for ni, oi := range order {
		b := m.Bones[oi]
		parent := -1
		if parents[oi] >= 0 {
			parent = newIndex[parents[oi]]
		}
		bind := vqs.Identity()
		if t, ok := keyTransform(b, 0, 0); ok {
			bind = t
		}
		if parent < 0 {
			bind = flip(bind)
		}
		bones[ni] = skeleton.Bone{Parent: parent, Name: b.Name, Bind: bind}
	}
	skeleton.ComputeInverseBind(bones)
	sk, err := skeleton.New(bones)
	if err != nil {
		return nil, fmt.Errorf("rig: %q: %w", m.Name, err)
	}

	r := &Rig{Name: m.Name, Skeleton: sk, Source: order}
	for a, act := range m.Actions {
		if act.Keys == 0 {
			continue
		}
		tracks := make([]animation.Track, n)
		for ni, oi := range order {
			b := m.Bones[oi]
			if b.IsDummy || a >= len(b.Keys) || len(b.Keys[a].Positions) == 0 {
				tracks[ni] = animation.Track{Keys: []animation.KeyFrame{{Time: 0, Transform: bones[ni].Bind}}}
				continue
			}
			keys := make([]animation.KeyFrame, act.Keys)
			for k := range keys {
				t, _ := keyTransform(b, a, k)
				if bones[ni].Parent < 0 {
					t = flip(t)
				}
				keys[k] = animation.KeyFrame{Time: float64(k) / fps, Transform: t}
			}
			tracks[ni] = animation.Track{Keys: keys}
		}
		anim, err := animation.New(fmt.Sprintf("action%02d", a), float64(act.Keys-1)/fps, 0, tracks)
		if err != nil {
			return nil, fmt.Errorf("rig: %q: %w", m.Name, err)
		}
		r.Animations = append(r.Animations, anim)
	}
	return r, nil
}

func keyTransform(b bmd.Bone, action, key int) (vqs.VQS, bool) {
	if b.IsDummy || action >= len(b.Keys) {
		return vqs.VQS{}, false
	}
	k := b.Keys[action]
	if key >= len(k.Positions) || key >= len(k.Rotations) {
		return vqs.VQS{}, false
	}
	p, r := k.Positions[key], k.Rotations[key]
	q := mathutil.EulerToQuat(float64(r[0]), float64(r[1]), float64(r[2]))
	return vqs.New(mathutil.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}, q, 1), true
}

func flip(t vqs.VQS) vqs.VQS {
	return vqs.FromRotation(mathutil.ModelFlipQuat).Concatenate(t)
}

// topoOrder lists bones so each parent precedes its children, keeping the
// file order wherever it is already valid.
func topoOrder(parents []int) ([]int, error) {
	const (
		unseen = iota
		visiting
		done
	)
	n := len(parents)
	state := make([]int, n)
	order := make([]int, 0, n)

	var visit func(i int) error
	visit = func(i int) error {
		switch state[i] {
		case done:
			return nil
		case visiting:
			return fmt.Errorf("%w: cycle through bone %d", ErrHierarchy, i)
		}
		state[i] = visiting
		if p := parents[i]; p >= 0 {
			if p >= n {
				return fmt.Errorf("%w: bone %d parent %d out of range", ErrHierarchy, i, p)
			}
			if err := visit(p); err != nil {
				return err
			}
		}
		state[i] = done
		order = append(order, i)
		return nil
	}
	for i := range parents {
		if err := visit(i); err != nil {
			return nil, err
		}
	}
	return order, nil
}
