package mpu9250

import (
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"tiltd/internal/i2c"
	"tiltd/internal/tilt"
)

// A Sink consumes the raw samples the host produces. *tilt.Engine satisfies
// it.
type Sink interface {
	OnRawSample(kind tilt.SampleKind, values []float64)
}

// Host polls an MPU-9250 and feeds accelerometer and magnetometer samples to
// the sink. The part has no fused rotation vector and no isolated gravity
// output, so subscriptions to those kinds succeed but stay silent and the
// engine settles on the accelerometer+magnetic tier.
type Host struct {
	bus    *i2c.Bus
	device *Device

	mu    sync.Mutex
	sink  Sink
	stops map[tilt.SampleKind]chan struct{}
}

// Open opens the bus and probes the sensor.
func Open(busPath string, addr uint16) (*Host, error) {
	bus, err := i2c.Open(busPath)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: open bus %s: %w", busPath, err)
	}
	device, err := New(bus.Dev(addr), bus.Dev(addrMagDefault))
	if err != nil {
		bus.Close()
		return nil, err
	}
	return &Host{
		bus:    bus,
		device: device,
		stops:  make(map[tilt.SampleKind]chan struct{}),
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
		return fmt.Errorf("mpu9250: no sink attached")
	}
	if kind != tilt.KindAccelerometer && kind != tilt.KindMagneticField {
		return nil
	}
	if _, ok := h.stops[kind]; ok {
		return nil
	}
	stop := make(chan struct{})
	h.stops[kind] = stop
	go h.poll(kind, period, h.sink, stop)
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

// Close stops polling and releases the bus.
func (h *Host) Close() error {
	h.mu.Lock()
	for kind, stop := range h.stops {
		close(stop)
		delete(h.stops, kind)
	}
	h.mu.Unlock()
	return h.bus.Close()
}

func (h *Host) poll(kind tilt.SampleKind, period time.Duration, sink Sink, stop chan struct{}) {
	if period <= 0 {
		period = 20 * time.Millisecond
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			values, err := h.read(kind)
			if err != nil {
				log.WithError(err).Warnf("mpu9250: %s read failed", kind)
				continue
			}
			sink.OnRawSample(kind, values)
		}
	}
}

func (h *Host) read(kind tilt.SampleKind) ([]float64, error) {
	if kind == tilt.KindAccelerometer {
		s, err := h.device.ReadAccel()
		if err != nil {
			return nil, err
		}
		return []float64{s.Ax, s.Ay, s.Az}, nil
	}
	s, err := h.device.ReadMag()
	if err != nil {
		return nil, err
	}
	return []float64{s.Mx, s.My, s.Mz}, nil
}
