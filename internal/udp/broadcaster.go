package udp

import (
	"encoding/json"
	"fmt"
	"net"
	"time"
)

// Broadcaster sends solved orientations as JSON datagrams to a fixed
// destination, typically a cockpit display or test harness on the same LAN.
// Sends are fire-and-forget; a dead receiver does not block the solve path.
type Broadcaster struct {
	dest string
	conn udpConn
}

type udpConn interface {
	Write(p []byte) (int, error)
	Close() error
}

type resolveFunc func(network, address string) (*net.UDPAddr, error)

type dialFunc func(network string, laddr, raddr *net.UDPAddr) (udpConn, error)

func NewBroadcaster(dest string) (*Broadcaster, error) {
	return newBroadcaster(dest, net.ResolveUDPAddr,
		func(network string, laddr, raddr *net.UDPAddr) (udpConn, error) {
			// DialUDP selects a suitable local address automatically.
			return net.DialUDP(network, laddr, raddr)
		})
}

func newBroadcaster(dest string, resolve resolveFunc, dial dialFunc) (*Broadcaster, error) {
	addr, err := resolve("udp", dest)
	if err != nil {
		return nil, fmt.Errorf("resolve dest: %w", err)
	}

	conn, err := dial("udp", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("dial udp: %w", err)
	}

	return &Broadcaster{
		dest: dest,
		conn: conn,
	}, nil
}

// Datagram is the wire payload, one per solution.
type Datagram struct {
	TimeUTC  string  `json:"time_utc"`
	YawDeg   float64 `json:"yaw_deg"`
	PitchDeg float64 `json:"pitch_deg"`
	RollDeg  float64 `json:"roll_deg"`
}

// SendTilt marshals and sends one solution.
func (b *Broadcaster) SendTilt(yaw, pitch, roll float64) error {
	payload, err := json.Marshal(Datagram{
		TimeUTC:  time.Now().UTC().Format(time.RFC3339Nano),
		YawDeg:   yaw,
		PitchDeg: pitch,
		RollDeg:  roll,
	})
	if err != nil {
		return err
	}
	return b.Send(payload)
}

func (b *Broadcaster) Send(payload []byte) error {
	if len(payload) == 0 {
		return nil
	}
	_, err := b.conn.Write(payload)
	return err
}

func (b *Broadcaster) Close() error {
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
