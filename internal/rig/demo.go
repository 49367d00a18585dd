package rig

import (
	"math"

	"mu-rig-motion/internal/animation"
	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/skeleton"
	"mu-rig-motion/internal/vqs"
)

// Paces of the demo clips in world units per second.
const (
	WalkPace = 250.0
	RunPace  = 600.0
)

const demoKeys = 9

type demoBone struct {
	name   string
	parent int
	offset mathutil.Vec3
	axis   mathutil.Vec3
	angle  float64 // degrees
}

// Y-up, facing +Z; the figure's right side is -X.
var demoBones = []demoBone{
	{"pelvis", -1, mathutil.Vec3{0, 95, 0}, mathutil.UnitX, 0},
	{"spine", 0, mathutil.Vec3{0, 10, 0}, mathutil.UnitX, 10},
	{"chest", 1, mathutil.Vec3{0, 25, 0}, mathutil.UnitZ, 10},
	{"head", 2, mathutil.Vec3{0, 25, 0}, mathutil.UnitX, 0},
	{"r_upperarm", 2, mathutil.Vec3{-18, 20, 0}, mathutil.UnitZ, 100},
	{"r_forearm", 4, mathutil.Vec3{-28, 0, 0}, mathutil.UnitY, 20},
	{"r_hand", 5, mathutil.Vec3{-25, 0, 0}, mathutil.UnitX, 10},
	{"r_fingertip", 6, mathutil.Vec3{-8, 0, 0}, mathutil.UnitX, 0},
	{"l_upperarm", 2, mathutil.Vec3{18, 20, 0}, mathutil.UnitZ, -100},
	{"l_forearm", 8, mathutil.Vec3{28, 0, 0}, mathutil.UnitY, -20},
	{"l_hand", 9, mathutil.Vec3{25, 0, 0}, mathutil.UnitX, 0},
	{"r_thigh", 0, mathutil.Vec3{-10, -5, 0}, mathutil.UnitX, 0},
	{"r_shin", 11, mathutil.Vec3{0, -45, 0}, mathutil.UnitX, 0},
	{"r_foot", 12, mathutil.Vec3{0, -42, 0}, mathutil.UnitX, 0},
	{"l_thigh", 0, mathutil.Vec3{10, -5, 0}, mathutil.UnitX, 0},
	{"l_shin", 14, mathutil.Vec3{0, -45, 0}, mathutil.UnitX, 0},
	{"l_foot", 15, mathutil.Vec3{0, -42, 0}, mathutil.UnitX, 0},
}

// gaitParams drive the procedural cycles. Angles are degrees of swing about
// the parent's X axis; bob is the pelvis rise in world units.
type gaitParams struct {
	name     string
	duration float64
	pace     float64
	leg      float64
	knee     float64
	arm      float64
	elbow    float64
	bob      float64
	breathe  float64
}

var demoGaits = []gaitParams{
	{name: "idle", duration: 2, breathe: 2},
	{name: "walk", duration: 1, pace: WalkPace, leg: 25, knee: 30, arm: 15, elbow: 10, bob: 2},
	{name: "run", duration: 0.6, pace: RunPace, leg: 45, knee: 70, arm: 35, elbow: 40, bob: 5},
}

// Demo builds a small humanoid with looping idle, walk and run clips.
func Demo() *Rig {
	bones := make([]skeleton.Bone, len(demoBones))
	for i, d := range demoBones {
		bones[i] = skeleton.Bone{Parent: d.parent, Name: d.name, Bind: demoBind(d)}
	}
	skeleton.ComputeInverseBind(bones)
	sk, err := skeleton.New(bones)
	if err != nil {
		panic("rig: demo skeleton: " + err.Error())
	}

	r := &Rig{Name: "demo", Skeleton: sk, Source: make([]int, len(bones))}
	for i := range r.Source {
		r.Source[i] = i
	}
	for _, g := range demoGaits {
		a, err := animation.New(g.name, g.duration, g.pace, demoTracks(g))
		if err != nil {
			panic("rig: demo clip " + g.name + ": " + err.Error())
		}
		r.Animations = append(r.Animations, a)
	}
	return r
}

func demoBind(d demoBone) vqs.VQS {
	return vqs.New(d.offset, mathutil.QuatFromAxisAngle(d.axis, mathutil.Deg2Rad(d.angle)), 1)
}

// demoTracks samples one cycle. The last key repeats the first so playback
// loops without a pop.
func demoTracks(g gaitParams) []animation.Track {
	tracks := make([]animation.Track, len(demoBones))
	for i := range tracks {
		tracks[i].Keys = make([]animation.KeyFrame, demoKeys)
	}
	for k := 0; k < demoKeys; k++ {
		phase := 2 * math.Pi * float64(k) / float64(demoKeys-1)
		if k == demoKeys-1 {
			phase = 0
		}
		s := math.Sin(phase)
		time := g.duration * float64(k) / float64(demoKeys-1)

		for i, d := range demoBones {
			t := demoBind(d)
			swing := 0.0
			switch d.name {
			case "pelvis":
				t.V[1] += g.bob * math.Abs(s)
			case "chest":
				swing = g.breathe * s
			case "r_thigh":
				swing = g.leg * s
			case "l_thigh":
				swing = -g.leg * s
			case "r_shin":
				swing = g.knee * math.Max(0, -s)
			case "l_shin":
				swing = g.knee * math.Max(0, s)
			case "r_upperarm":
				swing = -g.arm * s
			case "l_upperarm":
				swing = g.arm * s
			case "r_forearm", "l_forearm":
				swing = -g.elbow * (1 + s) / 2
			}
			if swing != 0 {
				t.Q = mathutil.QuatFromAxisAngle(mathutil.UnitX, mathutil.Deg2Rad(swing)).Mul(t.Q).Normalize()
			}
			tracks[i].Keys[k] = animation.KeyFrame{Time: time, Transform: t}
		}
	}
	return tracks
}
