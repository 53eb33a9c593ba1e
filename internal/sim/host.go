package sim

import (
	"fmt"
	"sync"
	"time"

	"tiltd/internal/tilt"
)

// A Sink consumes the raw samples the host produces. *tilt.Engine satisfies
// it.
type Sink interface {
	OnRawSample(kind tilt.SampleKind, values []float64)
}

// Host replays a scenario script as a simulated sensor device. Each
// subscription runs its own ticker goroutine; all subscriptions share one
// clock, started when the host is created.
type Host struct {
	scenario *Scenario
	loop     bool
	started  time.Time

	// emits is the advertised sensor set. Subscriptions outside it succeed
	// but deliver nothing, like a device without that sensor.
	emits map[tilt.SampleKind]bool

	mu    sync.Mutex
	sink  Sink
	stops map[tilt.SampleKind]chan struct{}
}

// NewHost builds a host for script. loop restarts the timeline when it runs
// out; otherwise the final pose is held.
func NewHost(script ScenarioScript, loop bool) (*Host, error) {
	scenario, err := NewScenario(script)
	if err != nil {
		return nil, err
	}
	emits := make(map[tilt.SampleKind]bool)
	if len(script.Emit) == 0 {
		for _, kind := range tilt.SampleKinds {
			emits[kind] = true
		}
	} else {
		for _, name := range script.Emit {
			kind, err := kindFromName(name)
			if err != nil {
				return nil, err
			}
			emits[kind] = true
		}
	}
	return &Host{
		scenario: scenario,
		loop:     loop,
		started:  time.Now(),
		emits:    emits,
		stops:    make(map[tilt.SampleKind]chan struct{}),
	}, nil
}

// Attach sets the sample consumer. Must be called before Subscribe.
func (h *Host) Attach(sink Sink) {
	h.mu.Lock()
	h.sink = sink
	h.mu.Unlock()
}

func (h *Host) Subscribe(kind tilt.SampleKind, period time.Duration) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.sink == nil {
		return fmt.Errorf("sim: no sink attached")
	}
	if !h.emits[kind] {
		return nil
	}
	if _, ok := h.stops[kind]; ok {
		return nil
	}
	stop := make(chan struct{})
	h.stops[kind] = stop
	go h.run(kind, period, h.sink, stop)
	return nil
}

func (h *Host) Unsubscribe(kind tilt.SampleKind) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if stop, ok := h.stops[kind]; ok {
		close(stop)
		delete(h.stops, kind)
	}
	return nil
}

// Close stops every delivery goroutine.
func (h *Host) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for kind, stop := range h.stops {
		close(stop)
		delete(h.stops, kind)
	}
}

func (h *Host) run(kind tilt.SampleKind, period time.Duration, sink Sink, stop chan struct{}) {
	if period <= 0 {
		period = 20 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			pose := h.scenario.PoseAt(now.Sub(h.started), h.loop)
			sink.OnRawSample(kind, h.sample(kind, pose))
		}
	}
}

func (h *Host) sample(kind tilt.SampleKind, pose Pose) []float64 {
	switch kind {
	case tilt.KindRotationVector:
		return rotationVectorForPose(pose)
	case tilt.KindGravity, tilt.KindAccelerometer:
		return gravityForPose(pose)
	case tilt.KindMagneticField:
		return magneticForPose(pose)
	}
	return nil
}

func kindFromName(name string) (tilt.SampleKind, error) {
	switch name {
	case "rotation_vector":
		return tilt.KindRotationVector, nil
	case "gravity":
		return tilt.KindGravity, nil
	case "accelerometer":
		return tilt.KindAccelerometer, nil
	case "magnetic_field":
		return tilt.KindMagneticField, nil
	}
	return 0, fmt.Errorf("unknown sensor kind %q in emit", name)
}
