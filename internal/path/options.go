package path

// Defaults match the walk-cycle demo scene.
const (
	DefaultCruiseVelocity = 670.0
	DefaultDuration       = 30.0
	DefaultLookAheadTime  = 0.2
	DefaultLookAheadCount = 5
	DefaultTension        = 8.0
	DefaultStep           = 0.01
	DefaultLengthError    = 0.05
	DefaultMinWidth       = 1e-4
	DefaultEaseIn         = 0.25
	DefaultEaseOut        = 0.75
)

type options struct {
	loop      bool
	hold      bool
	cruise    float64
	duration  float64
	lookCount int
	lookTime  float64
	k         float64
	step      float64
	adaptive  bool
	lengthErr float64
	minWidth  float64
	t1, t2    float64
}

func defaultOptions() options {
	return options{
		cruise:    DefaultCruiseVelocity,
		duration:  DefaultDuration,
		lookCount: DefaultLookAheadCount,
		lookTime:  DefaultLookAheadTime,
		k:         DefaultTension,
		step:      DefaultStep,
		lengthErr: DefaultLengthError,
		minWidth:  DefaultMinWidth,
		t1:        DefaultEaseIn,
		t2:        DefaultEaseOut,
	}
}

// Option configures a Path.
type Option func(*options)

// WithLoop closes the path: the last point connects back to the first and
// spline neighbours wrap around instead of being mirrored.
func WithLoop() Option {
	return func(o *options) { o.loop = true }
}

// WithHold stops at the end of the path instead of wrapping time to zero.
func WithHold() Option {
	return func(o *options) { o.hold = true }
}

// WithCruiseVelocity sets the peak velocity of the profile in world units/s.
func WithCruiseVelocity(v float64) Option {
	return func(o *options) { o.cruise = v }
}

// WithDuration sets the time in seconds to traverse the whole path.
func WithDuration(seconds float64) Option {
	return func(o *options) { o.duration = seconds }
}

// WithLookAhead sets how many samples are averaged for the look target and
// the total time they span.
func WithLookAhead(count int, span float64) Option {
	return func(o *options) {
		o.lookCount = count
		o.lookTime = span
	}
}

// WithTension sets the tangent divisor k; larger values give tighter corners.
func WithTension(k float64) Option {
	return func(o *options) { o.k = k }
}

// WithStep sets the forward-difference sampling step in local u.
func WithStep(step float64) Option {
	return func(o *options) { o.step = step }
}

// WithAdaptive enables adaptive refinement of the distance tables.
func WithAdaptive(lengthErr, minWidth float64) Option {
	return func(o *options) {
		o.adaptive = true
		o.lengthErr = lengthErr
		o.minWidth = minWidth
	}
}

// WithProfile sets the normalized times where the velocity profile reaches
// cruise speed and starts decelerating.
func WithProfile(easeIn, easeOut float64) Option {
	return func(o *options) {
		o.t1 = easeIn
		o.t2 = easeOut
	}
}
