package web

import (
	"sync"
	"time"
)

// TiltBroadcaster fans smoothed solutions out to stream subscribers (SSE and
// WebSocket handlers). It keeps the most recent value so new subscribers get
// an immediate sample. Slow subscribers drop samples rather than stall the
// solve path.
type TiltBroadcaster struct {
	mu       sync.RWMutex
	subs     map[int]chan OrientationSnapshot
	nextID   int
	last     OrientationSnapshot
	haveLast bool
}

func NewTiltBroadcaster() *TiltBroadcaster {
	return &TiltBroadcaster{
		subs: make(map[int]chan OrientationSnapshot),
	}
}

func (b *TiltBroadcaster) Subscribe(buffer int) (int, <-chan OrientationSnapshot) {
	if b == nil {
		return 0, nil
	}
	if buffer <= 0 {
		buffer = 2
	}
	ch := make(chan OrientationSnapshot, buffer)
	b.mu.Lock()
	id := b.nextID
	b.nextID++
	b.subs[id] = ch
	last := b.last
	have := b.haveLast
	b.mu.Unlock()
	if have {
		select {
		case ch <- last:
		default:
		}
	}
	return id, ch
}

func (b *TiltBroadcaster) Unsubscribe(id int) {
	if b == nil {
		return
	}
	b.mu.Lock()
	ch, ok := b.subs[id]
	if ok {
		delete(b.subs, id)
		close(ch)
	}
	b.mu.Unlock()
}

func (b *TiltBroadcaster) Publish(o OrientationSnapshot) {
	if b == nil {
		return
	}
	if o.LastUpdateUTC == "" {
		o.LastUpdateUTC = time.Now().UTC().Format(time.RFC3339Nano)
	}
	b.mu.RLock()
	subs := make([]chan OrientationSnapshot, 0, len(b.subs))
	for _, ch := range b.subs {
		subs = append(subs, ch)
	}
	b.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- o:
		default:
		}
	}
	b.mu.Lock()
	b.last = o
	b.haveLast = true
	b.mu.Unlock()
}
