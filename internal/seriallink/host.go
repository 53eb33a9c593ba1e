package seriallink

import (
	"bufio"
	"fmt"
	"io"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.bug.st/serial"

	"tiltd/internal/tilt"
)

// A Sink consumes the raw samples the host produces. *tilt.Engine satisfies
// it.
type Sink interface {
	OnRawSample(kind tilt.SampleKind, values []float64)
}

// openPort is swapped out by tests.
var openPort = func(port string, baud int) (io.ReadCloser, error) {
	return serial.Open(port, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

// reopenDelay is the wait between reconnect attempts after the stream ends.
var reopenDelay = 500 * time.Millisecond

// Host reads a tethered sensor pod over a serial line. The pod streams every
// sensor it has; subscriptions gate which kinds reach the sink. If the line
// drops the host keeps reopening it until Close.
type Host struct {
	name string
	baud int

	mu         sync.Mutex
	sink       Sink
	port       io.ReadCloser
	subscribed map[tilt.SampleKind]bool
	closed     bool

	stop chan struct{}
	done chan struct{}
}

// Open opens the serial port and starts the reader goroutine.
func Open(port string, baud int) (*Host, error) {
	p, err := openPort(port, baud)
	if err != nil {
		return nil, fmt.Errorf("seriallink: open %s: %w", port, err)
	}
	h := &Host{
		name:       port,
		baud:       baud,
		port:       p,
		subscribed: make(map[tilt.SampleKind]bool),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
	go h.readLoop()
	return h, nil
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
		return fmt.Errorf("seriallink: no sink attached")
	}
	if h.closed {
		return fmt.Errorf("seriallink: host closed")
	}
	// The pod streams at its own rate; period is advisory here.
	h.subscribed[kind] = true
	return nil
}

func (h *Host) Unsubscribe(kind tilt.SampleKind) error {
	h.mu.Lock()
	delete(h.subscribed, kind)
	h.mu.Unlock()
	return nil
}

// Close stops the reader and closes the port.
func (h *Host) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	port := h.port
	h.mu.Unlock()
	close(h.stop)
	err := port.Close()
	<-h.done
	return err
}

func (h *Host) readLoop() {
	defer close(h.done)
	for {
		h.mu.Lock()
		port := h.port
		h.mu.Unlock()

		h.scan(port)

		h.mu.Lock()
		closed := h.closed
		h.mu.Unlock()
		if closed {
			return
		}
		log.Warnf("seriallink: %s stream ended, reopening", h.name)
		if !h.reopen() {
			return
		}
	}
}

// scan consumes one port until its stream ends.
func (h *Host) scan(port io.ReadCloser) {
	scanner := bufio.NewScanner(port)
	for scanner.Scan() {
		kind, values, err := parseLine(scanner.Text())
		if err != nil {
			log.WithError(err).Debug("seriallink: skipping line")
			continue
		}

		h.mu.Lock()
		sink := h.sink
		wanted := h.subscribed[kind]
		h.mu.Unlock()
		if wanted && sink != nil {
			sink.OnRawSample(kind, values)
		}
	}
	if err := scanner.Err(); err != nil {
		h.mu.Lock()
		closed := h.closed
		h.mu.Unlock()
		if !closed {
			log.WithError(err).Error("seriallink: serial read failed")
		}
	}
}

// reopen retries the port until it comes back or the host closes.
func (h *Host) reopen() bool {
	for {
		select {
		case <-h.stop:
			return false
		case <-time.After(reopenDelay):
		}
		p, err := openPort(h.name, h.baud)
		if err != nil {
			log.WithError(err).Warnf("seriallink: reopen %s failed", h.name)
			continue
		}
		h.mu.Lock()
		if h.closed {
			h.mu.Unlock()
			_ = p.Close()
			return false
		}
		h.port = p
		h.mu.Unlock()
		return true
	}
}
