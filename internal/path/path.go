// Package path implements an arc-length parameterised spline built from
// Catmull-Rom style Bezier pieces, with a velocity profile that maps elapsed
// time to a position along the curve.
package path

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"mu-rig-motion/internal/mathutil"
	"mu-rig-motion/internal/vqs"
)

var (
	ErrTooFewPoints = errors.New("path: too few control points")
	ErrOption       = errors.New("path: invalid option")
)

const (
	maxBisect = 64
	uEpsilon  = 1e-9

	// GetU accepts a distance error up to distTolerance times the path length.
	distTolerance = 1e-7
)

// bezier is the cubic Bezier basis in power form.
var bezier = [4][4]float64{
	{-1, 3, -3, 1},
	{3, -6, 3, 0},
	{-3, 3, 0, 0},
	{1, 0, 0, 0},
}

// Sample is one forward-difference table entry: local parameter u and the
// arc length from the start of the segment.
type Sample struct {
	U    float64
	Dist float64
}

type segment struct {
	ctrl   [4]mathutil.Vec3 // start, tangent a, tangent b, end
	table  []Sample
	start  float64 // arc length before this segment
	length float64
}

// Path is a piecewise cubic through its control points.
type Path struct {
	points   []mathutil.Vec3
	opts     options
	segments []segment
	total    float64
	profile  []ProfilePoint
	area     float64 // integral of the normalized profile over [0,1]

	time float64
	yaw  float64
}

// New builds a path and its distance tables.
func New(points []mathutil.Vec3, opts ...Option) (*Path, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	need := 2
	if o.loop {
		need = 3
	}
	if len(points) < need {
		return nil, fmt.Errorf("path: new: %w (got %d, need %d)", ErrTooFewPoints, len(points), need)
	}
	if err := o.validate(); err != nil {
		return nil, err
	}
	for i, p := range points {
		if !p.IsFinite() {
			return nil, fmt.Errorf("path: new: point %d %v is not finite", i, p)
		}
	}

	p := &Path{
		points: append([]mathutil.Vec3(nil), points...),
		opts:   o,
	}
	p.buildSegments()
	p.GenerateForwardDiffTable(o.adaptive)
	p.buildProfile()
	p.updateYaw()
	return p, nil
}

func (o options) validate() error {
	switch {
	case !(o.k > 0):
		return fmt.Errorf("%w: tension %v", ErrOption, o.k)
	case !(o.step > 0 && o.step <= 0.5):
		return fmt.Errorf("%w: step %v", ErrOption, o.step)
	case !(o.duration > 0):
		return fmt.Errorf("%w: duration %v", ErrOption, o.duration)
	case !(o.cruise >= 0):
		return fmt.Errorf("%w: cruise velocity %v", ErrOption, o.cruise)
	case !(o.t1 > 0 && o.t1 <= o.t2 && o.t2 < 1):
		return fmt.Errorf("%w: profile %v..%v", ErrOption, o.t1, o.t2)
	case o.lookCount < 0 || o.lookTime < 0:
		return fmt.Errorf("%w: look ahead %d/%v", ErrOption, o.lookCount, o.lookTime)
	case o.adaptive && !(o.lengthErr > 0 && o.minWidth > 0):
		return fmt.Errorf("%w: adaptive %v/%v", ErrOption, o.lengthErr, o.minWidth)
	}
	return nil
}

// buildSegments derives the Bezier control points for every piece. Open
// paths get mirrored phantom points so the end pieces have neighbours.
func (p *Path) buildSegments() {
	pts := p.points
	n := len(pts)

	var ext func(i int) mathutil.Vec3
	count := n - 1
	if p.opts.loop {
		count = n
		ext = func(i int) mathutil.Vec3 { return pts[((i%n)+n)%n] }
	} else {
		first := pts[0].Scale(2).Sub(pts[1])
		last := pts[n-1].Scale(2).Sub(pts[n-2])
		ext = func(i int) mathutil.Vec3 {
			switch {
			case i < 0:
				return first
			case i >= n:
				return last
			}
			return pts[i]
		}
	}

	k := p.opts.k
	p.segments = make([]segment, count)
	for i := range p.segments {
		prev, cur, next, after := ext(i-1), ext(i), ext(i+1), ext(i+2)
		a := cur.Add(next.Sub(prev).Scale(1 / k))
		b := next.Sub(after.Sub(cur).Scale(1 / k))
		p.segments[i].ctrl = [4]mathutil.Vec3{cur, a, b, next}
	}
}

// SegmentCount returns the number of cubic pieces.
func (p *Path) SegmentCount() int {
	return len(p.segments)
}

// Loop reports whether the path is closed.
func (p *Path) Loop() bool {
	return p.opts.loop
}

// GetSegmentPosition evaluates segment seg at local parameter u in [0,1]:
// [u³ u² u 1] · B · [P0 a b P1]ᵀ.
func (p *Path) GetSegmentPosition(u float64, seg int) mathutil.Vec3 {
	seg = clampInt(seg, 0, len(p.segments)-1)
	c := &p.segments[seg].ctrl
	pw := [4]float64{u * u * u, u * u, u, 1}

	var out mathutil.Vec3
	for j := 0; j < 4; j++ {
		w := pw[0]*bezier[0][j] + pw[1]*bezier[1][j] + pw[2]*bezier[2][j] + pw[3]*bezier[3][j]
		out = out.Add(c[j].Scale(w))
	}
	return out
}

// locate maps a global u in [0,1] onto (segment, local u). Segments share
// the parameter range equally. NaN maps to the start.
func (p *Path) locate(u float64) (int, float64) {
	if math.IsNaN(u) {
		return 0, 0
	}
	u = mathutil.Clamp(u, 0, 1)
	n := len(p.segments)
	f := u * float64(n)
	seg := int(math.Floor(f))
	if seg >= n {
		return n - 1, 1
	}
	return seg, f - float64(seg)
}

// PositionAtU evaluates the path at global parameter u.
func (p *Path) PositionAtU(u float64) mathutil.Vec3 {
	seg, lu := p.locate(u)
	return p.GetSegmentPosition(lu, seg)
}

// GenerateForwardDiffTable rebuilds every segment's u→distance table by
// fixed-step sampling, optionally refined by AdaptiveExpand.
func (p *Path) GenerateForwardDiffTable(adaptive bool) {
	steps := int(math.Round(1 / p.opts.step))
	if steps < 1 {
		steps = 1
	}
	p.total = 0
	for s := range p.segments {
		us := make([]float64, steps+1)
		for j := range us {
			us[j] = float64(j) / float64(steps)
		}
		if adaptive {
			us = p.AdaptiveExpand(s, us)
		}
		p.segments[s].table = p.accumulate(s, us)
		p.segments[s].start = p.total
		p.segments[s].length = p.segments[s].table[len(p.segments[s].table)-1].Dist
		p.total += p.segments[s].length
	}
	p.opts.adaptive = adaptive
}

// AdaptiveExpand refines the sorted sample parameters us of segment seg.
// Each interval is split at its midpoint until the chord error
// |P(a)P(m)| + |P(m)P(b)| - |P(a)P(b)| drops below the length error or the
// interval becomes narrower than the minimum width.
func (p *Path) AdaptiveExpand(seg int, us []float64) []float64 {
	type interval struct{ a, b float64 }

	queue := make([]interval, 0, len(us))
	for j := 1; j < len(us); j++ {
		queue = append(queue, interval{us[j-1], us[j]})
	}
	out := append([]float64(nil), us...)

	for len(queue) > 0 {
		iv := queue[0]
		queue = queue[1:]

		m := (iv.a + iv.b) / 2
		pa := p.GetSegmentPosition(iv.a, seg)
		pm := p.GetSegmentPosition(m, seg)
		pb := p.GetSegmentPosition(iv.b, seg)
		chordErr := pa.Dist(pm) + pm.Dist(pb) - pa.Dist(pb)

		if chordErr < p.opts.lengthErr || iv.b-iv.a < p.opts.minWidth {
			continue
		}
		out = append(out, m)
		queue = append(queue, interval{iv.a, m}, interval{m, iv.b})
	}
	sort.Float64s(out)
	return out
}

func (p *Path) accumulate(seg int, us []float64) []Sample {
	table := make([]Sample, len(us))
	prev := p.GetSegmentPosition(us[0], seg)
	dist := 0.0
	for j, u := range us {
		cur := p.GetSegmentPosition(u, seg)
		dist += cur.Dist(prev)
		table[j] = Sample{U: u, Dist: dist}
		prev = cur
	}
	return table
}

// Table returns a copy of segment seg's distance table.
func (p *Path) Table(seg int) []Sample {
	return append([]Sample(nil), p.segments[seg].table...)
}

// SegmentLength returns the arc length of segment seg.
func (p *Path) SegmentLength(seg int) float64 {
	return p.segments[seg].length
}

// TotalLength returns the arc length of the whole path.
func (p *Path) TotalLength() float64 {
	return p.total
}

// GetDistance returns the arc length from the path start to global u. Inside
// a segment the table entry at or above the local u is found by binary
// search and interpolated linearly against its predecessor.
func (p *Path) GetDistance(u float64) float64 {
	seg, lu := p.locate(u)
	s := &p.segments[seg]
	t := s.table

	i := sort.Search(len(t), func(i int) bool { return t[i].U >= lu })
	switch {
	case i == len(t):
		return s.start + t[len(t)-1].Dist
	case t[i].U == lu || i == 0:
		return s.start + t[i].Dist
	}
	a, b := t[i-1], t[i]
	f := (lu - a.U) / (b.U - a.U)
	return s.start + a.Dist + (b.Dist-a.Dist)*f
}

// GetU inverts GetDistance by bisection over [0,1]. The search stops when
// the distance error is within tolerance, the bracket collapses, or the
// iteration cap is hit; the best midpoint is returned in every case.
func (p *Path) GetU(distance float64) float64 {
	u, _ := p.bisect(distance)
	return u
}

func (p *Path) bisect(distance float64) (float64, int) {
	if distance <= 0 || p.total <= 0 {
		return 0, 0
	}
	if distance >= p.total {
		return 1, 0
	}
	tol := distTolerance * p.total
	lo, hi := 0.0, 1.0
	mid := 0.5
	for it := 1; it <= maxBisect; it++ {
		mid = (lo + hi) / 2
		d := p.GetDistance(mid)
		if math.Abs(d-distance) <= tol {
			return mid, it
		}
		if d < distance {
			lo = mid
		} else {
			hi = mid
		}
		if hi-lo < uEpsilon {
			return (lo + hi) / 2, it
		}
	}
	return mid, maxBisect
}

// Polyline samples n points evenly in arc length, for debug drawing.
func (p *Path) Polyline(n int) []mathutil.Vec3 {
	if n < 2 {
		n = 2
	}
	out := make([]mathutil.Vec3, n)
	for i := range out {
		d := p.total * float64(i) / float64(n-1)
		out[i] = p.PositionAtU(p.GetU(d))
	}
	return out
}

// Points returns a copy of the control points.
func (p *Path) Points() []mathutil.Vec3 {
	return append([]mathutil.Vec3(nil), p.points...)
}

// Time returns the elapsed path time in seconds.
func (p *Path) Time() float64 {
	return p.time
}

// Duration returns the traversal time in seconds.
func (p *Path) Duration() float64 {
	return p.opts.duration
}

// CruiseVelocity returns the profile's peak velocity.
func (p *Path) CruiseVelocity() float64 {
	return p.opts.cruise
}

// Update advances path time. Time wraps to zero past the duration unless the
// path was built WithHold, in which case it stops at the end.
func (p *Path) Update(dt float64) {
	p.time = p.wrapTime(p.time + dt)
	p.updateYaw()
}

// Reset rewinds to the start.
func (p *Path) Reset() {
	p.time = 0
	p.updateYaw()
}

// Finished reports whether a held path has reached its end.
func (p *Path) Finished() bool {
	return p.opts.hold && p.time >= p.opts.duration
}

func (p *Path) wrapTime(t float64) float64 {
	d := p.opts.duration
	if p.opts.hold {
		return mathutil.Clamp(t, 0, d)
	}
	t = math.Mod(t, d)
	if t < 0 {
		t += d
	}
	return t
}

func (p *Path) normalizedTime(t float64) float64 {
	return mathutil.Clamp(t/p.opts.duration, 0, 1)
}

// CurrentVelocity returns the profile velocity at the current time.
func (p *Path) CurrentVelocity() float64 {
	return p.opts.cruise * p.GetVelocity(p.normalizedTime(p.time))
}

// PositionAt evaluates time → eased distance → u → position.
func (p *Path) PositionAt(time float64) mathutil.Vec3 {
	nd := p.GetSinDistanceFromTime(p.normalizedTime(time))
	return p.PositionAtU(p.GetU(nd * p.total))
}

// CurrentPosition is PositionAt the current path time.
func (p *Path) CurrentPosition() mathutil.Vec3 {
	return p.PositionAt(p.time)
}

// GetLookPosition averages positions sampled slightly ahead in time to give
// a stable look-at target.
func (p *Path) GetLookPosition() mathutil.Vec3 {
	n := p.opts.lookCount
	if n == 0 {
		return p.CurrentPosition()
	}
	dt := p.opts.lookTime / float64(n)
	var sum mathutil.Vec3
	for i := 1; i <= n; i++ {
		sum = sum.Add(p.PositionAt(p.time + dt*float64(i)))
	}
	return sum.Scale(1 / float64(n))
}

func (p *Path) updateYaw() {
	dir := p.GetLookPosition().Sub(p.CurrentPosition())
	dir[1] = 0
	if dir.Len() < 1e-6 {
		return
	}
	p.yaw = math.Atan2(dir[0], dir[2])
}

// Yaw returns the heading about +Y in radians; zero faces +Z.
func (p *Path) Yaw() float64 {
	return p.yaw
}

// CurrentOrientation faces the look position, holding the last heading when
// the look target coincides with the current position.
func (p *Path) CurrentOrientation() mathutil.Quat {
	return mathutil.QuatFromAxisAngle(mathutil.UnitY, p.yaw)
}

// Transform is the model placement at the current time.
func (p *Path) Transform() vqs.VQS {
	return vqs.VQS{V: p.CurrentPosition(), Q: p.CurrentOrientation(), S: 1}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
