package tilt

import (
	"fmt"
	"sync"
	"time"
)

// Smoothing factors per sensor tier. Rotation-vector sources are already
// fused and need little inertia; raw accelerometer or gravity readings are
// noisy and get a heavy filter.
const (
	SmoothingFactorLowAccuracy  = 0.05
	SmoothingFactorHighAccuracy = 0.8
)

const defaultSamplingPeriod = 20 * time.Millisecond

// A Listener receives every smoothed solution, in degrees.
//
// Listeners are invoked synchronously from the sample path, in registration
// order, with no engine lock held. A slow listener delays the next solution.
type Listener func(yaw, pitch, roll float64)

// A Host delivers raw sensor samples to the engine. The engine subscribes to
// every kind it may need and calls Unsubscribe as arbitration settles on a
// tier. Hosts feed samples back through Engine.OnRawSample.
type Host interface {
	Subscribe(kind SampleKind, period time.Duration) error
	Unsubscribe(kind SampleKind) error
}

// Options configures a new Engine. The zero value selects screen rotation 0,
// absolute mode, exponential smoothing and the standard factors.
type Options struct {
	ScreenRotation ScreenRotation
	Mode           Mode

	// NewFilter builds the per-axis smoothing filters. Nil selects
	// NewExponentialSmoothingFilter.
	NewFilter FilterFactory

	// LowFactor and HighFactor override the tier smoothing factors.
	// Zero selects the corresponding default.
	LowFactor  float64
	HighFactor float64

	// SamplingPeriod is the requested sensor period. Zero selects 20ms.
	SamplingPeriod time.Duration
}

type listenerEntry struct {
	id int
	fn Listener
}

// Engine turns raw multi-source sensor samples into smoothed yaw/pitch/roll.
//
// All methods are safe for concurrent use. Host calls (Subscribe and
// Unsubscribe) and listener invocations happen with no lock held.
type Engine struct {
	host       Host
	newFilter  FilterFactory
	lowFactor  float64
	highFactor float64
	period     time.Duration

	mu         sync.Mutex
	tracking   bool
	arb        arbiter
	sol        solver
	filters    [3]Filter
	subscribed map[SampleKind]bool
	listeners  []listenerEntry
	nextID     int
}

// New validates opts and returns an idle engine attached to host.
func New(host Host, opts Options) (*Engine, error) {
	if host == nil {
		return nil, fmt.Errorf("tilt: host must not be nil")
	}
	if !opts.ScreenRotation.valid() {
		return nil, fmt.Errorf("tilt: invalid screen rotation %d", int(opts.ScreenRotation))
	}
	if !opts.Mode.valid() {
		return nil, fmt.Errorf("tilt: invalid mode %d", int(opts.Mode))
	}
	low := opts.LowFactor
	if low == 0 {
		low = SmoothingFactorLowAccuracy
	}
	high := opts.HighFactor
	if high == 0 {
		high = SmoothingFactorHighAccuracy
	}
	if low <= 0 || low > 1 {
		return nil, fmt.Errorf("tilt: low smoothing factor %v out of range (0,1]", low)
	}
	if high <= 0 || high > 1 {
		return nil, fmt.Errorf("tilt: high smoothing factor %v out of range (0,1]", high)
	}
	factory := opts.NewFilter
	if factory == nil {
		factory = func(factor, initial float64) Filter {
			return NewExponentialSmoothingFilter(factor, initial)
		}
	}
	period := opts.SamplingPeriod
	if period <= 0 {
		period = defaultSamplingPeriod
	}
	e := &Engine{
		host:       host,
		newFilter:  factory,
		lowFactor:  low,
		highFactor: high,
		period:     period,
		subscribed: make(map[SampleKind]bool),
	}
	e.sol.rotation = opts.ScreenRotation
	e.sol.mode = opts.Mode
	return e, nil
}

// StartTracking subscribes to every sensor kind and begins solving. The
// session starts on the heavy low-accuracy filter until arbitration promotes
// a rotation-vector source.
func (e *Engine) StartTracking() error {
	e.mu.Lock()
	if e.tracking {
		e.mu.Unlock()
		return fmt.Errorf("tilt: already tracking")
	}
	e.arb.reset()
	e.sol.clearOrigin()
	for i := range e.filters {
		e.filters[i] = e.newFilter(e.lowFactor, 0)
	}
	e.tracking = true
	for _, kind := range SampleKinds {
		e.subscribed[kind] = true
	}
	e.mu.Unlock()

	var done []SampleKind
	for _, kind := range SampleKinds {
		if err := e.host.Subscribe(kind, e.period); err != nil {
			for _, k := range done {
				e.host.Unsubscribe(k)
			}
			e.mu.Lock()
			e.tracking = false
			for k := range e.subscribed {
				delete(e.subscribed, k)
			}
			e.mu.Unlock()
			return fmt.Errorf("tilt: subscribe %s: %w", kind, err)
		}
		done = append(done, kind)
	}
	return nil
}

// StopTracking cancels all sensor subscriptions and discards session state.
// Stopping an idle engine is a no-op.
func (e *Engine) StopTracking() error {
	e.mu.Lock()
	if !e.tracking {
		e.mu.Unlock()
		return nil
	}
	e.tracking = false
	var kinds []SampleKind
	for _, kind := range SampleKinds {
		if e.subscribed[kind] {
			kinds = append(kinds, kind)
			delete(e.subscribed, kind)
		}
	}
	e.arb.reset()
	e.sol.clearOrigin()
	for _, f := range e.filters {
		if f != nil {
			f.Reset(0)
		}
	}
	e.mu.Unlock()

	var firstErr error
	for _, kind := range kinds {
		if err := e.host.Unsubscribe(kind); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("tilt: unsubscribe %s: %w", kind, err)
		}
	}
	return firstErr
}

// SetMode switches between absolute and relative reporting and discards any
// captured origin. The next successful solve in relative mode captures a
// fresh origin.
func (e *Engine) SetMode(mode Mode) error {
	if !mode.valid() {
		return fmt.Errorf("tilt: invalid mode %d", int(mode))
	}
	e.mu.Lock()
	e.sol.setMode(mode)
	e.mu.Unlock()
	return nil
}

// Mode returns the current reporting mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sol.mode
}

// ResetOrigin discards the captured origin; the next successful solve
// captures a new one. With immediate set the smoothing filters are also
// zeroed, so the output snaps to the new frame instead of converging.
func (e *Engine) ResetOrigin(immediate bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.tracking {
		return fmt.Errorf("tilt: not tracking")
	}
	e.sol.clearOrigin()
	if immediate {
		for _, f := range e.filters {
			f.Reset(0)
		}
	}
	return nil
}

// AddListener registers fn and returns a handle for RemoveListener.
// The same function may be registered more than once.
func (e *Engine) AddListener(fn Listener) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	id := e.nextID
	e.nextID++
	e.listeners = append(e.listeners, listenerEntry{id: id, fn: fn})
	return id
}

// RemoveListener drops the registration with the given handle. Unknown
// handles are ignored.
func (e *Engine) RemoveListener(id int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, l := range e.listeners {
		if l.id == id {
			e.listeners = append(e.listeners[:i], e.listeners[i+1:]...)
			return
		}
	}
}

// Tier returns the sensor combination currently driving solutions.
func (e *Engine) Tier() Tier {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.arb.tier()
}

// Tracking reports whether a tracking session is active.
func (e *Engine) Tracking() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracking
}

// OnRawSample feeds one raw sensor reading into the engine. Hosts call this
// from their delivery goroutines; samples arriving while the engine is idle
// are dropped.
func (e *Engine) OnRawSample(kind SampleKind, values []float64) {
	e.mu.Lock()
	if !e.tracking {
		e.mu.Unlock()
		return
	}

	accepted, first := e.arb.ingest(kind, values)

	var drops []SampleKind
	if accepted && first {
		switch kind {
		case KindRotationVector:
			// Promotion to the fused source: restart the frame and
			// retune the filters without disturbing their output.
			e.sol.clearOrigin()
			for i, f := range e.filters {
				e.filters[i] = e.newFilter(e.highFactor, f.Get())
			}
			drops = e.dropSubscriptionsLocked(KindGravity, KindAccelerometer, KindMagneticField)
		case KindGravity:
			drops = e.dropSubscriptionsLocked(KindAccelerometer)
		}
	}

	var (
		yaw, pitch, roll float64
		solved           bool
	)
	if accepted && e.arb.canSolve() {
		var y, p, r float64
		var ok bool
		if e.arb.haveRotVec {
			y, p, r, ok = e.sol.solveQuaternion(e.arb.latestQuat)
		} else {
			y, p, r, ok = e.sol.solveVectors(e.arb.latestUp, e.arb.latestMag)
		}
		if ok {
			yaw = e.filters[0].Push(y)
			pitch = e.filters[1].Push(p)
			roll = e.filters[2].Push(r)
			solved = true
		}
	}

	var fns []Listener
	if solved {
		fns = make([]Listener, len(e.listeners))
		for i, l := range e.listeners {
			fns[i] = l.fn
		}
	}
	e.mu.Unlock()

	for _, kind := range drops {
		e.host.Unsubscribe(kind)
	}
	for _, fn := range fns {
		fn(yaw, pitch, roll)
	}
}

func (e *Engine) dropSubscriptionsLocked(kinds ...SampleKind) []SampleKind {
	var drops []SampleKind
	for _, kind := range kinds {
		if e.subscribed[kind] {
			delete(e.subscribed, kind)
			drops = append(drops, kind)
		}
	}
	return drops
}
