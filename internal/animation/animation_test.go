package animation

import (
	"errors"
	"testing"

	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/vqs"
)

func key(t float64, x, y, z float64) KeyFrame {
	return KeyFrame{Time: t, Transform: vqs.FromTranslation(mathutil.Vec3{x, y, z})}
}

func mustNew(t *testing.T, name string, dur float64, tracks ...Track) *Animation {
	t.Helper()
	a, err := New(name, dur, 1, tracks)
	if err != nil {
		t.Fatalf("New(%q): %v", name, err)
	}
	return a
}

func TestCalculateTransformClampsPastEnd(t *testing.T) {
	a := mustNew(t, "clamp", 1, Track{Keys: []KeyFrame{key(0, 0, 0, 0), key(1, 0, 10, 0)}})

	var td TrackData
	got := a.CalculateTransform(1.5, 0, &td)
	if got != a.Tracks[0].Keys[1].Transform {
		t.Fatalf("t=1.5 gave %v, want last key exactly", got)
	}
	if td.LastKey != 1 {
		t.Fatalf("cursor = %d, want 1", td.LastKey)
	}
}

func TestCalculateTransformInterpolates(t *testing.T) {
	a := mustNew(t, "lerp", 2, Track{Keys: []KeyFrame{key(0, 0, 0, 0), key(1, 0, 10, 0), key(2, 4, 10, 0)}})

	tests := []struct {
		time float64
		want mathutil.Vec3
	}{
		{-1, mathutil.Vec3{0, 0, 0}},
		{0, mathutil.Vec3{0, 0, 0}},
		{0.25, mathutil.Vec3{0, 2.5, 0}},
		{1, mathutil.Vec3{0, 10, 0}},
		{1.5, mathutil.Vec3{2, 10, 0}},
		{2, mathutil.Vec3{4, 10, 0}},
	}
	var td TrackData
	for _, tt := range tests {
		got := a.CalculateTransform(tt.time, 0, &td)
		if got.V.Dist(tt.want) > 1e-12 {
			t.Errorf("t=%v: V = %v, want %v", tt.time, got.V, tt.want)
		}
	}
}

func TestCursorSelfCorrectsAfterReset(t *testing.T) {
	keys := make([]KeyFrame, 0, 11)
	for i := 0; i <= 10; i++ {
		keys = append(keys, key(float64(i)*0.1, float64(i*i), 0, 0))
	}
	a := mustNew(t, "scrub", 1, Track{Keys: keys})

	var played TrackData
	for tm := 0.0; tm <= 1.0; tm += 0.05 {
		a.CalculateTransform(tm, 0, &played)
	}
	if played.LastKey == 0 {
		t.Fatal("cursor did not advance")
	}

	got := a.CalculateTransform(0, 0, &played)
	var fresh TrackData
	want := a.CalculateTransform(0, 0, &fresh)
	if got != want {
		t.Fatalf("after reset: %v, fresh cursor: %v", got, want)
	}
	if played.LastKey != 0 {
		t.Fatalf("cursor = %d after rewind", played.LastKey)
	}
}

func TestOutOfRangeTrackIsIdentity(t *testing.T) {
	a := mustNew(t, "one", 1, Track{Keys: []KeyFrame{key(0, 1, 1, 1)}})
	var td TrackData
	if got := a.CalculateTransform(0.5, 3, &td); got != vqs.Identity() {
		t.Fatalf("got %v", got)
	}
	if got := a.BaseTransform(-1); got != vqs.Identity() {
		t.Fatalf("base got %v", got)
	}
}

func TestCalculateBlendTransform(t *testing.T) {
	from := mustNew(t, "from", 1, Track{Keys: []KeyFrame{key(0, 0, 0, 0), key(1, 0, 0, 0)}})
	to := mustNew(t, "to", 1, Track{Keys: []KeyFrame{key(0, 10, 0, 0), key(0.5, 20, 0, 0), key(1, 30, 0, 0)}})

	cur, next := NewTrackData(1), NewTrackData(1)

	got, done := from.CalculateBlendTransform(0.25, to, 0, &cur[0], &next[0], 0.5)
	if done {
		t.Fatal("blend complete before incoming reached its last key")
	}
	if want := (mathutil.Vec3{7.5, 0, 0}); got.V.Dist(want) > 1e-12 {
		t.Fatalf("blend V = %v, want %v", got.V, want)
	}

	got, done = from.CalculateBlendTransform(0.99, to, 0, &cur[0], &next[0], 0.5)
	if done {
		t.Fatal("blend complete at t=0.99")
	}

	got, done = from.CalculateBlendTransform(1.0, to, 0, &cur[0], &next[0], 0.1)
	if !done {
		t.Fatal("blend not complete at incoming final key")
	}
	if got != to.Tracks[0].Keys[2].Transform {
		t.Fatalf("completed blend returned %v, want incoming final key exactly", got)
	}
}

func TestBlendCursorsAreIndependent(t *testing.T) {
	a := mustNew(t, "a", 1, Track{Keys: []KeyFrame{key(0, 0, 0, 0), key(0.5, 1, 0, 0), key(1, 2, 0, 0)}})
	b := mustNew(t, "b", 1, Track{Keys: []KeyFrame{key(0, 0, 0, 0), key(1, 2, 0, 0)}})

	cur, next := NewTrackData(1), NewTrackData(1)
	a.CalculateBlendTransform(0.75, b, 0, &cur[0], &next[0], 0.5)
	if cur[0].LastKey != 1 || next[0].LastKey != 0 {
		t.Fatalf("cursors = %d/%d, want 1/0", cur[0].LastKey, next[0].LastKey)
	}

	ResetTrackData(cur)
	if cur[0].LastKey != 0 {
		t.Fatal("ResetTrackData left cursor set")
	}
}

func TestNewValidation(t *testing.T) {
	good := Track{Keys: []KeyFrame{key(0, 0, 0, 0), key(1, 0, 0, 0)}}
	tests := []struct {
		name     string
		duration float64
		pace     float64
		tracks   []Track
		want     error
	}{
		{"no tracks", 1, 1, nil, ErrNoTracks},
		{"empty track", 1, 1, []Track{good, {}}, ErrEmptyTrack},
		{"equal times", 1, 1, []Track{{Keys: []KeyFrame{key(0, 0, 0, 0), key(0, 1, 0, 0)}}}, ErrKeyOrder},
		{"decreasing times", 1, 1, []Track{{Keys: []KeyFrame{key(1, 0, 0, 0), key(0.5, 1, 0, 0)}}}, ErrKeyOrder},
		{"negative duration", -1, 1, []Track{good}, ErrDuration},
		{"negative pace", 1, -2, []Track{good}, ErrPace},
		{"bad scale", 1, 1, []Track{{Keys: []KeyFrame{{Time: 0, Transform: vqs.VQS{Q: mathutil.QuatIdentity()}}}}}, vqs.ErrScale},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.name, tt.duration, tt.pace, tt.tracks)
			if !errors.Is(err, tt.want) {
				t.Fatalf("got %v, want %v", err, tt.want)
			}
		})
	}

	if _, err := New("zero duration", 0, 0, []Track{good}); err != nil {
		t.Fatalf("zero duration rejected: %v", err)
	}
}

func TestCloneAndRetime(t *testing.T) {
	a := mustNew(t, "walk", 1, Track{Keys: []KeyFrame{key(0, 0, 0, 0), key(1, 0, 1, 0)}})

	r, err := a.Retime(140)
	if err != nil {
		t.Fatal(err)
	}
	if r.Pace != 140 || a.Pace != 1 {
		t.Fatalf("paces = %v/%v", r.Pace, a.Pace)
	}

	r.Tracks[0].Keys[1].Transform.V[1] = 99
	if a.Tracks[0].Keys[1].Transform.V[1] != 1 {
		t.Fatal("clone shares key storage with source")
	}

	if _, err := a.Retime(-1); !errors.Is(err, ErrPace) {
		t.Fatalf("Retime(-1) = %v", err)
	}
}

func TestSample(t *testing.T) {
	a := mustNew(t, "two", 1,
		Track{Keys: []KeyFrame{key(0, 0, 0, 0), key(1, 2, 0, 0)}},
		Track{Keys: []KeyFrame{key(0, 0, 4, 0)}},
	)
	pose := a.Sample(0.5)
	if len(pose) != 2 || pose[0].V != (mathutil.Vec3{1, 0, 0}) || pose[1].V != (mathutil.Vec3{0, 4, 0}) {
		t.Fatalf("Sample = %v", pose)
	}
}
