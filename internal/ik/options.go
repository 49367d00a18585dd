package ik

import "mu-rig-motion/internal/mathutil"

const (
	DefaultThreshold     = 3.0
	DefaultStep          = 1.0
	DefaultMaxIterations = 1
)

type options struct {
	threshold   float64
	gain        float64
	iterations  int
	defaultAxis mathutil.Vec3
}

func defaultOptions() options {
	return options{
		threshold:   DefaultThreshold,
		gain:        DefaultStep,
		iterations:  DefaultMaxIterations,
		defaultAxis: mathutil.UnitZ,
	}
}

// Option configures a Controller.
type Option func(*options)

// WithThreshold sets the end effector distance below which a chain counts as
// satisfied and is left alone.
func WithThreshold(d float64) Option {
	return func(o *options) { o.threshold = d }
}

// WithStep sets the Jacobian gain applied on top of dt.
func WithStep(gain float64) Option {
	return func(o *options) { o.gain = gain }
}

// WithMaxIterations sets the CCD sweeps per Process call.
func WithMaxIterations(n int) Option {
	return func(o *options) { o.iterations = n }
}

// WithDefaultAxis sets the rotation axis used for joints whose base rotation
// is the identity.
func WithDefaultAxis(axis mathutil.Vec3) Option {
	return func(o *options) { o.defaultAxis = axis }
}
