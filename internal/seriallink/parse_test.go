package seriallink

import (
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"tiltd/internal/tilt"
)

func TestParseLine(t *testing.T) {
	cases := []struct {
		line   string
		kind   tilt.SampleKind
		values []float64
	}{
		{"RV,0.1,0.2,0.3,0.9", tilt.KindRotationVector, []float64{0.1, 0.2, 0.3, 0.9}},
		{"RV,0.1,0.2,0.3", tilt.KindRotationVector, []float64{0.1, 0.2, 0.3}},
		{"GRV,0,0,9.81", tilt.KindGravity, []float64{0, 0, 9.81}},
		{"ACC, 0.5, -0.25, 9.7", tilt.KindAccelerometer, []float64{0.5, -0.25, 9.7}},
		{"MAG,12,-30,5\r", tilt.KindMagneticField, []float64{12, -30, 5}},
	}
	for _, tc := range cases {
		kind, values, err := parseLine(tc.line)
		if err != nil {
			t.Fatalf("parseLine(%q) error: %v", tc.line, err)
		}
		if kind != tc.kind {
			t.Fatalf("parseLine(%q) kind=%v want %v", tc.line, kind, tc.kind)
		}
		if len(values) != len(tc.values) {
			t.Fatalf("parseLine(%q) values=%v want %v", tc.line, values, tc.values)
		}
		for i := range values {
			if values[i] != tc.values[i] {
				t.Fatalf("parseLine(%q) values=%v want %v", tc.line, values, tc.values)
			}
		}
	}
}

func TestParseLineRejectsGarbage(t *testing.T) {
	lines := []string{
		"",
		"RV",
		"RV,1,2",
		"GRV,1,2,3,4",
		"ACC,a,b,c",
		"BARO,1000",
		"RV,1,2,3,4,5",
	}
	for _, line := range lines {
		if _, _, err := parseLine(line); err == nil {
			t.Errorf("parseLine(%q) accepted", line)
		}
	}
}

type sampleSink struct {
	mu      sync.Mutex
	samples []tilt.SampleKind
}

func (s *sampleSink) OnRawSample(kind tilt.SampleKind, values []float64) {
	s.mu.Lock()
	s.samples = append(s.samples, kind)
	s.mu.Unlock()
}

func (s *sampleSink) kinds() []tilt.SampleKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tilt.SampleKind(nil), s.samples...)
}

func TestHostGatesOnSubscriptions(t *testing.T) {
	pr, pw := io.Pipe()
	restore := openPort
	openPort = func(port string, baud int) (io.ReadCloser, error) {
		return pr, nil
	}
	defer func() { openPort = restore }()

	h, err := Open("/dev/ttyTEST", 115200)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	var sink sampleSink
	h.Attach(&sink)
	if err := h.Subscribe(tilt.KindRotationVector, 20*time.Millisecond); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := h.Subscribe(tilt.KindMagneticField, 20*time.Millisecond); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	go io.WriteString(pw, "RV,0,0,0,1\nGRV,0,0,9.81\nnoise\nMAG,0,30,0\n")

	deadline := time.Now().Add(time.Second)
	for len(sink.kinds()) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("samples=%v, want RV and MAG", sink.kinds())
		}
		time.Sleep(time.Millisecond)
	}
	got := sink.kinds()
	if got[0] != tilt.KindRotationVector || got[1] != tilt.KindMagneticField {
		t.Fatalf("samples=%v, want [rotation-vector magnetic-field]", got)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := h.Subscribe(tilt.KindGravity, 0); err == nil {
		t.Fatal("Subscribe after Close accepted")
	}
}

func TestHostReopensAfterStreamEnds(t *testing.T) {
	restoreDelay := reopenDelay
	reopenDelay = time.Millisecond
	defer func() { reopenDelay = restoreDelay }()

	pr, pw := io.Pipe()
	var mu sync.Mutex
	opens := 0
	restore := openPort
	openPort = func(port string, baud int) (io.ReadCloser, error) {
		mu.Lock()
		defer mu.Unlock()
		opens++
		if opens == 1 {
			// First port dies immediately.
			return io.NopCloser(strings.NewReader("")), nil
		}
		return pr, nil
	}
	defer func() { openPort = restore }()

	h, err := Open("/dev/ttyTEST", 115200)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()

	var sink sampleSink
	h.Attach(&sink)
	if err := h.Subscribe(tilt.KindRotationVector, 20*time.Millisecond); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	go io.WriteString(pw, "RV,0,0,0,1\n")

	deadline := time.Now().Add(time.Second)
	for len(sink.kinds()) < 1 {
		if time.Now().After(deadline) {
			mu.Lock()
			n := opens
			mu.Unlock()
			t.Fatalf("no sample after reopen, opens=%d", n)
		}
		time.Sleep(time.Millisecond)
	}
	if got := sink.kinds(); got[0] != tilt.KindRotationVector {
		t.Fatalf("samples=%v, want [rotation-vector]", got)
	}
}

func TestOpenRequiresPort(t *testing.T) {
	restore := openPort
	openPort = func(port string, baud int) (io.ReadCloser, error) {
		return nil, io.ErrClosedPipe
	}
	defer func() { openPort = restore }()

	if _, err := Open("/dev/ttyMISSING", 115200); err == nil {
		t.Fatal("Open succeeded on a failing port")
	}
}
