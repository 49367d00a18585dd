// Package animation evaluates keyframed bone tracks with per-track cursors
// and cross-fades between two clips.
package animation

import (
	"errors"
	"fmt"
	"math"

	"github.com/tiendc/go-deepcopy"

	"mu-rig-motion/internal/vqs"
)

var (
	ErrNoTracks   = errors.New("animation: no tracks")
	ErrEmptyTrack = errors.New("animation: track has no keyframes")
	ErrKeyOrder   = errors.New("animation: keyframe times not strictly increasing")
	ErrDuration   = errors.New("animation: duration must be finite and non-negative")
	ErrPace       = errors.New("animation: pace must be finite and non-negative")
)

// Animation is a clip: one track per bone, indexed by bone index.
// Pace is the locomotion speed the clip was authored for; playback speed is
// path velocity divided by Pace.
type Animation struct {
	Name     string
	Duration float64
	Pace     float64
	Tracks   []Track
}

// New validates imported clip data.
func New(name string, duration, pace float64, tracks []Track) (*Animation, error) {
	if len(tracks) == 0 {
		return nil, fmt.Errorf("animation: new %q: %w", name, ErrNoTracks)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration < 0 {
		return nil, fmt.Errorf("animation: new %q: %w (got %v)", name, ErrDuration, duration)
	}
	if math.IsNaN(pace) || math.IsInf(pace, 0) || pace < 0 {
		return nil, fmt.Errorf("animation: new %q: %w (got %v)", name, ErrPace, pace)
	}
	for ti, tr := range tracks {
		if len(tr.Keys) == 0 {
			return nil, fmt.Errorf("animation: new %q: track %d: %w", name, ti, ErrEmptyTrack)
		}
		for k, key := range tr.Keys {
			if err := key.Transform.Validate(); err != nil {
				return nil, fmt.Errorf("animation: new %q: track %d key %d: %w", name, ti, k, err)
			}
			if k > 0 && !(key.Time > tr.Keys[k-1].Time) {
				return nil, fmt.Errorf("animation: new %q: track %d key %d (t=%v after %v): %w",
					name, ti, k, key.Time, tr.Keys[k-1].Time, ErrKeyOrder)
			}
		}
	}
	return &Animation{Name: name, Duration: duration, Pace: pace, Tracks: tracks}, nil
}

// TrackCount returns the number of bone tracks.
func (a *Animation) TrackCount() int {
	return len(a.Tracks)
}

// CalculateTransform evaluates track at time, moving cursor toward the key
// interval containing time. Forward playback costs amortized O(1); a jump
// backwards walks the cursor back. Past the last key the output clamps to it.
func (a *Animation) CalculateTransform(time float64, track int, cursor *TrackData) vqs.VQS {
	if track < 0 || track >= len(a.Tracks) || len(a.Tracks[track].Keys) == 0 {
		return vqs.Identity()
	}
	keys := a.Tracks[track].Keys
	k := seek(keys, time, cursor)

	if k == len(keys)-1 {
		return keys[k].Transform
	}
	return interpolate(keys[k], keys[k+1], time)
}

// CalculateBlendTransform evaluates track in both a and next (each with its
// own cursor) and cross-fades by factor. Once the incoming cursor reaches
// next's final key the blend is complete and that key is returned unblended.
func (a *Animation) CalculateBlendTransform(time float64, next *Animation, track int, cursor, nextCursor *TrackData, factor float64) (vqs.VQS, bool) {
	in := next.CalculateTransform(time, track, nextCursor)
	if track >= 0 && track < len(next.Tracks) && nextCursor.LastKey == len(next.Tracks[track].Keys)-1 {
		return in, true
	}
	out := a.CalculateTransform(time, track, cursor)
	return out.InterpolateTo(in, factor), false
}

// BaseTransform returns the first keyframe of track: the clip's static pose.
func (a *Animation) BaseTransform(track int) vqs.VQS {
	if track < 0 || track >= len(a.Tracks) || len(a.Tracks[track].Keys) == 0 {
		return vqs.Identity()
	}
	return a.Tracks[track].Keys[0].Transform
}

// Sample evaluates every track at time with fresh cursors.
func (a *Animation) Sample(time float64) []vqs.VQS {
	out := make([]vqs.VQS, len(a.Tracks))
	for i := range a.Tracks {
		var td TrackData
		out[i] = a.CalculateTransform(time, i, &td)
	}
	return out
}

// Clone returns a deep copy that shares no key storage with a.
func (a *Animation) Clone() (*Animation, error) {
	var c Animation
	if err := deepcopy.Copy(&c, a); err != nil {
		return nil, fmt.Errorf("animation: clone %q: %w", a.Name, err)
	}
	return &c, nil
}

// Retime returns a copy with a different pace, leaving a untouched.
func (a *Animation) Retime(pace float64) (*Animation, error) {
	if math.IsNaN(pace) || math.IsInf(pace, 0) || pace < 0 {
		return nil, fmt.Errorf("animation: retime %q: %w (got %v)", a.Name, ErrPace, pace)
	}
	c, err := a.Clone()
	if err != nil {
		return nil, err
	}
	c.Pace = pace
	return c, nil
}

// seek moves the cursor so keys[LastKey].Time <= time < keys[LastKey+1].Time,
// or onto the first/last key when time falls outside the track.
func seek(keys []KeyFrame, time float64, cursor *TrackData) int {
	k := cursor.LastKey
	if k < 0 {
		k = 0
	}
	if k > len(keys)-1 {
		k = len(keys) - 1
	}
	for k < len(keys)-1 && keys[k+1].Time <= time {
		k++
	}
	for k > 0 && keys[k].Time > time {
		k--
	}
	cursor.LastKey = k
	return k
}

func interpolate(k0, k1 KeyFrame, time float64) vqs.VQS {
	dt := k1.Time - k0.Time
	if dt <= 0 {
		return k0.Transform
	}
	t := (time - k0.Time) / dt
	if t < 0 {
		t = 0
	} else if t > 1 {
		t = 1
	}
	return k0.Transform.InterpolateTo(k1.Transform, t)
}
