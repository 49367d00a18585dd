// Package skeleton holds the indexed bone hierarchy and evaluates poses into
// caller-supplied world matrix buffers.
package skeleton

import (
	"errors"
	"fmt"

	"mu-rig-motion/internal/animation"
	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/vqs"
)

var (
	ErrEmpty       = errors.New("skeleton: no bones")
	ErrParentOrder = errors.New("skeleton: parent must precede child")
	ErrBufferSize  = errors.New("skeleton: matrix buffer length does not match bone count")
)

// Bone is one joint of the hierarchy. Parent is -1 for roots. Children is
// filled by Initialize.
type Bone struct {
	Index       int
	Parent      int
	Name        string
	Bind        vqs.VQS // local bind pose relative to parent
	InverseBind vqs.VQS // inverse of the bone's model-space bind pose
	Children    []int
}

// Skeleton owns the bones in topological order: every parent index is
// smaller than its child's, so one forward pass visits parents first.
type Skeleton struct {
	bones []Bone
}

// New validates the hierarchy and builds child lists. Bone.Index is
// overwritten with the slice position.
func New(bones []Bone) (*Skeleton, error) {
	if len(bones) == 0 {
		return nil, ErrEmpty
	}
	owned := make([]Bone, len(bones))
	copy(owned, bones)
	for i := range owned {
		b := &owned[i]
		b.Index = i
		b.Children = nil
		if b.Parent < -1 || b.Parent >= i {
			return nil, fmt.Errorf("skeleton: bone %d (%q) parent %d: %w", i, b.Name, b.Parent, ErrParentOrder)
		}
		if err := b.Bind.Validate(); err != nil {
			return nil, fmt.Errorf("skeleton: bone %d (%q) bind pose: %w", i, b.Name, err)
		}
	}
	s := &Skeleton{bones: owned}
	s.Initialize()
	return s, nil
}

// Initialize fills every bone's child list in one linear pass.
func (s *Skeleton) Initialize() {
	for i := range s.bones {
		s.bones[i].Children = s.bones[i].Children[:0]
	}
	for i, b := range s.bones {
		if b.Parent >= 0 {
			s.bones[b.Parent].Children = append(s.bones[b.Parent].Children, i)
		}
	}
}

// Len returns the bone count.
func (s *Skeleton) Len() int {
	return len(s.bones)
}

// Bone returns bone i by value.
func (s *Skeleton) Bone(i int) Bone {
	return s.bones[i]
}

// Parent returns the parent index of bone i.
func (s *Skeleton) Parent(i int) int {
	return s.bones[i].Parent
}

// Parents returns all parent indices, indexed by bone.
func (s *Skeleton) Parents() []int {
	p := make([]int, len(s.bones))
	for i, b := range s.bones {
		p[i] = b.Parent
	}
	return p
}

// BoneByName returns the index of the first bone with the given name.
func (s *Skeleton) BoneByName(name string) (int, bool) {
	for i, b := range s.bones {
		if b.Name == name {
			return i, true
		}
	}
	return -1, false
}

// NewMatrixBuffer allocates an identity-filled world matrix buffer.
func (s *Skeleton) NewMatrixBuffer() []mathutil.Mat4 {
	out := make([]mathutil.Mat4, len(s.bones))
	for i := range out {
		out[i] = mathutil.Mat4Identity()
	}
	return out
}

func (s *Skeleton) checkBuffer(out []mathutil.Mat4) error {
	if len(out) != len(s.bones) {
		return fmt.Errorf("%w: got %d, want %d", ErrBufferSize, len(out), len(s.bones))
	}
	return nil
}

// Walk composes per-bone local transforms into world matrices in index order:
// out[i] = out[parent] × local(i), or local(i) for roots.
func (s *Skeleton) Walk(out []mathutil.Mat4, local func(bone int) vqs.VQS) error {
	if err := s.checkBuffer(out); err != nil {
		return err
	}
	for i, b := range s.bones {
		m := local(i).ToMatrix()
		if b.Parent >= 0 {
			m = mathutil.Mat4Mul(out[b.Parent], m)
		}
		out[i] = m
	}
	return nil
}

// ProcessAnimationGraph evaluates anim at time for every bone.
func (s *Skeleton) ProcessAnimationGraph(time float64, anim *animation.Animation, cursors []animation.TrackData, out []mathutil.Mat4) error {
	if len(cursors) < len(s.bones) {
		return fmt.Errorf("skeleton: process animation %q: %d cursors for %d bones", anim.Name, len(cursors), len(s.bones))
	}
	return s.Walk(out, func(i int) vqs.VQS {
		return anim.CalculateTransform(time, i, &cursors[i])
	})
}

// ProcessBlendAnimationGraph cross-fades anim toward next by factor. It
// reports true when every bone's incoming cursor has reached next's final key.
func (s *Skeleton) ProcessBlendAnimationGraph(time float64, anim, next *animation.Animation, cursors, nextCursors []animation.TrackData, factor float64, out []mathutil.Mat4) (bool, error) {
	if len(cursors) < len(s.bones) || len(nextCursors) < len(s.bones) {
		return false, fmt.Errorf("skeleton: process blend %q -> %q: cursor buffers shorter than %d bones", anim.Name, next.Name, len(s.bones))
	}
	complete := true
	err := s.Walk(out, func(i int) vqs.VQS {
		t, done := anim.CalculateBlendTransform(time, next, i, &cursors[i], &nextCursors[i], factor)
		complete = complete && done
		return t
	})
	if err != nil {
		return false, err
	}
	return complete, nil
}

// ProcessBindPose composes the bind pose.
func (s *Skeleton) ProcessBindPose(out []mathutil.Mat4) error {
	return s.Walk(out, func(i int) vqs.VQS {
		return s.bones[i].Bind
	})
}

// ProcessBaseAnimationGraph composes the first keyframe of every track.
func (s *Skeleton) ProcessBaseAnimationGraph(anim *animation.Animation, out []mathutil.Mat4) error {
	return s.Walk(out, anim.BaseTransform)
}

// SkinningMatrices writes world[i] × inverseBind[i], the matrices a skinning
// shader consumes.
func (s *Skeleton) SkinningMatrices(world, out []mathutil.Mat4) error {
	if err := s.checkBuffer(world); err != nil {
		return err
	}
	if err := s.checkBuffer(out); err != nil {
		return err
	}
	for i, b := range s.bones {
		out[i] = mathutil.Mat4Mul(world[i], b.InverseBind.ToMatrix())
	}
	return nil
}

// WorldPositions extracts each bone's world-space origin.
func WorldPositions(world []mathutil.Mat4) []mathutil.Vec3 {
	out := make([]mathutil.Vec3, len(world))
	for i, m := range world {
		out[i] = m.Translation()
	}
	return out
}

// ComputeInverseBind fills InverseBind from the composed bind pose, for
// importers that only provide local bind transforms.
func ComputeInverseBind(bones []Bone) {
	model := make([]vqs.VQS, len(bones))
	for i := range bones {
		m := bones[i].Bind
		if p := bones[i].Parent; p >= 0 && p < i {
			m = model[p].Concatenate(m)
		}
		model[i] = m
		bones[i].InverseBind = m.Inverse()
	}
}
