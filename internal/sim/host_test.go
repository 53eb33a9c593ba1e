package sim

import (
	"sync"
	"testing"
	"time"

	"tiltd/internal/tilt"
)

type captureSink struct {
	mu      sync.Mutex
	samples map[tilt.SampleKind]int
}

func (c *captureSink) OnRawSample(kind tilt.SampleKind, values []float64) {
	c.mu.Lock()
	if c.samples == nil {
		c.samples = make(map[tilt.SampleKind]int)
	}
	c.samples[kind]++
	c.mu.Unlock()
}

func (c *captureSink) count(kind tilt.SampleKind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.samples[kind]
}

func steadyScript(emit ...string) ScenarioScript {
	return ScenarioScript{
		Emit: emit,
		Keyframes: []PoseKeyframe{
			{T: 0, YawDeg: 10},
			{T: time.Second, YawDeg: 10},
		},
	}
}

func TestHostDeliversSubscribedKinds(t *testing.T) {
	host, err := NewHost(steadyScript("rotation_vector"), true)
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	defer host.Close()

	var sink captureSink
	host.Attach(&sink)

	if err := host.Subscribe(tilt.KindRotationVector, time.Millisecond); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	// Not advertised: succeeds but stays silent.
	if err := host.Subscribe(tilt.KindGravity, time.Millisecond); err != nil {
		t.Fatalf("Subscribe gravity: %v", err)
	}

	deadline := time.Now().Add(time.Second)
	for sink.count(tilt.KindRotationVector) < 3 {
		if time.Now().After(deadline) {
			t.Fatal("no rotation vector samples delivered")
		}
		time.Sleep(time.Millisecond)
	}
	if sink.count(tilt.KindGravity) != 0 {
		t.Fatal("gravity delivered despite not being advertised")
	}

	if err := host.Unsubscribe(tilt.KindRotationVector); err != nil {
		t.Fatalf("Unsubscribe: %v", err)
	}
	n := sink.count(tilt.KindRotationVector)
	time.Sleep(20 * time.Millisecond)
	if got := sink.count(tilt.KindRotationVector); got > n+1 {
		t.Fatalf("samples kept flowing after Unsubscribe: %d -> %d", n, got)
	}
}

func TestHostRequiresSink(t *testing.T) {
	host, err := NewHost(steadyScript(), false)
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	if err := host.Subscribe(tilt.KindRotationVector, time.Millisecond); err == nil {
		t.Fatal("Subscribe without a sink accepted")
	}
}

func TestHostEmptyEmitAdvertisesAll(t *testing.T) {
	host, err := NewHost(steadyScript(), false)
	if err != nil {
		t.Fatalf("NewHost: %v", err)
	}
	defer host.Close()
	for _, kind := range tilt.SampleKinds {
		if !host.emits[kind] {
			t.Fatalf("%v not advertised by default", kind)
		}
	}
}
