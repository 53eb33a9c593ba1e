package tilt

// A Filter smooths one scalar sample stream (one per output axis).
//
// Push is order-dependent: feeding the same samples in a different order
// produces a different result. Get is idempotent and returns the value of
// the most recent Push or Reset.
type Filter interface {
	// Push feeds the next raw sample and returns the new smoothed value.
	Push(value float64) float64
	// Reset forces the smoothed value with no transient.
	Reset(value float64)
	// Get returns the latest smoothed value.
	Get() float64
}

// FilterFactory builds one axis filter with the given smoothing factor and
// initial value. The engine rebuilds its filters through the factory when the
// authoritative sensor tier changes.
type FilterFactory func(factor, initial float64) Filter

// ExponentialSmoothingFilter is a single-pole IIR low-pass filter
// (exponentially-weighted moving average).
type ExponentialSmoothingFilter struct {
	last   float64
	factor float64
}

// NewExponentialSmoothingFilter returns a filter seeded at initial.
//
// factor is in (0,1], calculated as dt / (t + dt) where t is the desired time
// constant and dt the sampling period. The closer to 0, the greater the
// inertia.
func NewExponentialSmoothingFilter(factor, initial float64) *ExponentialSmoothingFilter {
	f := &ExponentialSmoothingFilter{factor: clampFactor(factor)}
	f.Reset(initial)
	return f
}

func (f *ExponentialSmoothingFilter) Push(value float64) float64 {
	f.last = f.last + f.factor*(value-f.last)
	return f.last
}

func (f *ExponentialSmoothingFilter) Reset(value float64) {
	f.last = value
}

func (f *ExponentialSmoothingFilter) Get() float64 {
	return f.last
}

// MovingAverageFilter keeps a fixed-size ring of samples and reports their
// mean. Each slot is itself updated with the exponential rule before being
// summed, so the ring smooths twice: factor 1 degenerates to a plain moving
// average, smaller factors add inertia on top of the window.
type MovingAverageFilter struct {
	samples []float64
	sum     float64
	next    int
	factor  float64
}

const defaultAverageWindow = 10

// NewMovingAverageFilter returns a window-sized ring filter seeded at initial.
// window <= 0 selects the default window.
func NewMovingAverageFilter(window int, factor, initial float64) *MovingAverageFilter {
	if window <= 0 {
		window = defaultAverageWindow
	}
	f := &MovingAverageFilter{
		samples: make([]float64, window),
		factor:  clampFactor(factor),
	}
	f.Reset(initial)
	return f
}

func (f *MovingAverageFilter) Push(value float64) float64 {
	oldest := f.samples[f.next]
	filtered := oldest + f.factor*(value-oldest)
	f.sum += filtered - oldest
	f.samples[f.next] = filtered
	f.next = (f.next + 1) % len(f.samples)
	return f.Get()
}

func (f *MovingAverageFilter) Reset(value float64) {
	for i := range f.samples {
		f.samples[i] = value
	}
	f.sum = value * float64(len(f.samples))
	f.next = 0
}

func (f *MovingAverageFilter) Get() float64 {
	return f.sum / float64(len(f.samples))
}

func clampFactor(factor float64) float64 {
	if factor <= 0 || factor > 1 {
		return 1
	}
	return factor
}
