package controller

import (
	"errors"
	"fmt"
	"math"
)

var ErrTunables = errors.New("controller: invalid tunables")

// Tunables are the knobs an external control panel reads and writes.
// Paces of zero leave the corresponding clip's authored pace untouched.
type Tunables struct {
	IdleVelocity float64 `json:"idle_velocity" yaml:"idle_velocity"`
	RunFraction  float64 `json:"run_fraction" yaml:"run_fraction"`
	BlendRate    float64 `json:"blend_rate" yaml:"blend_rate"`
	BlendFloor   float64 `json:"blend_floor" yaml:"blend_floor"`
	IdlePace     float64 `json:"idle_pace" yaml:"idle_pace"`
	WalkPace     float64 `json:"walk_pace" yaml:"walk_pace"`
	RunPace      float64 `json:"run_pace" yaml:"run_pace"`
}

func DefaultTunables() Tunables {
	return Tunables{
		IdleVelocity: 20,
		RunFraction:  2.0 / 3.0,
		BlendRate:    2,
		BlendFloor:   0.25,
	}
}

// Validate rejects negative or non-finite values and a run fraction outside (0,1].
func (t Tunables) Validate() error {
	fields := []struct {
		name string
		v    float64
	}{
		{"idle_velocity", t.IdleVelocity},
		{"run_fraction", t.RunFraction},
		{"blend_rate", t.BlendRate},
		{"blend_floor", t.BlendFloor},
		{"idle_pace", t.IdlePace},
		{"walk_pace", t.WalkPace},
		{"run_pace", t.RunPace},
	}
	for _, f := range fields {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) || f.v < 0 {
			return fmt.Errorf("%w: %s = %v", ErrTunables, f.name, f.v)
		}
	}
	if t.RunFraction == 0 || t.RunFraction > 1 {
		return fmt.Errorf("%w: run_fraction = %v", ErrTunables, t.RunFraction)
	}
	if t.BlendRate == 0 {
		return fmt.Errorf("%w: blend_rate must be positive", ErrTunables)
	}
	return nil
}

func (t Tunables) pace(g Gait) float64 {
	switch g {
	case GaitIdle:
		return t.IdlePace
	case GaitWalk:
		return t.WalkPace
	case GaitRun:
		return t.RunPace
	}
	return 0
}
