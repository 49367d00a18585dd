package path

import (
	"math"
	"sort"

	"mu-rig-motion/internal/mathutil"
)

// ProfilePoint is one vertex of the piecewise-linear velocity schedule:
// velocity V (as a fraction of cruise) at normalized time T.
type ProfilePoint struct {
	T float64
	V float64
}

// buildProfile sets up accelerate / cruise / decelerate:
// (0,0) → (t1,1) → (t2,1) → (1,0).
func (p *Path) buildProfile() {
	p.profile = []ProfilePoint{
		{T: 0, V: 0},
		{T: p.opts.t1, V: 1},
		{T: p.opts.t2, V: 1},
		{T: 1, V: 0},
	}
	p.area = p.integrate(1)
}

// Profile returns a copy of the velocity schedule.
func (p *Path) Profile() []ProfilePoint {
	return append([]ProfilePoint(nil), p.profile...)
}

// profileSegment returns the index i with profile[i].T <= t < profile[i+1].T.
func (p *Path) profileSegment(t float64) int {
	i := sort.Search(len(p.profile), func(i int) bool { return p.profile[i].T > t }) - 1
	return clampInt(i, 0, len(p.profile)-2)
}

// GetVelocity evaluates the normalized velocity at normalized time t.
func (p *Path) GetVelocity(t float64) float64 {
	t = mathutil.Clamp(t, 0, 1)
	i := p.profileSegment(t)
	a, b := p.profile[i], p.profile[i+1]
	if b.T-a.T <= 0 {
		return b.V
	}
	return a.V + (b.V-a.V)*(t-a.T)/(b.T-a.T)
}

// integrate returns ∫₀ᵗ v(s) ds. Each linear piece uses the antiderivative
// F(s) = ((v1-v0)/(t1-t0))·(s²/2 - s·t0) + v0·s, evaluated as F(t)-F(t0) and
// added to the area of all earlier pieces.
func (p *Path) integrate(t float64) float64 {
	t = mathutil.Clamp(t, 0, 1)
	sum := 0.0
	for i := 0; i+1 < len(p.profile); i++ {
		a, b := p.profile[i], p.profile[i+1]
		if t <= a.T {
			break
		}
		end := math.Min(t, b.T)
		if b.T-a.T <= 0 {
			continue
		}
		slope := (b.V - a.V) / (b.T - a.T)
		f := func(s float64) float64 { return slope*(s*s/2-s*a.T) + a.V*s }
		sum += f(end) - f(a.T)
	}
	return sum
}

// GetDistanceFromTime returns the fraction of the path covered by normalized
// time t under the piecewise-linear profile.
func (p *Path) GetDistanceFromTime(t float64) float64 {
	if p.area <= 0 {
		return mathutil.Clamp(t, 0, 1)
	}
	return p.integrate(t) / p.area
}

// GetSinDistanceFromTime is the smooth ease-in/ease-out alternative used for
// position queries: (1 - cos πt) / 2.
func (p *Path) GetSinDistanceFromTime(t float64) float64 {
	t = mathutil.Clamp(t, 0, 1)
	return (1 - math.Cos(math.Pi*t)) / 2
}
