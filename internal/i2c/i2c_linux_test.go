//go:build linux

package i2c

import (
	"os"
	"strings"
	"testing"
)

func openNullBus(t *testing.T) *Bus {
	t.Helper()
	f, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		t.Fatalf("OpenFile /dev/null: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return &Bus{f: f, path: "/dev/null"}
}

func TestDevTx_RejectsOutOfRangeAddr(t *testing.T) {
	b := openNullBus(t)

	for _, addr := range []uint16{0, 0x80, 0x3ff} {
		d := &Dev{bus: b, addr: addr}
		err := d.Write([]byte{0x00})
		if err == nil || !strings.Contains(err.Error(), "invalid i2c addr") {
			t.Fatalf("addr 0x%x: err=%v want invalid i2c addr", addr, err)
		}
	}
}

func TestDevTx_EmptyIsNoop(t *testing.T) {
	b := openNullBus(t)
	d := b.Dev(0x68)

	n, err := d.tx(nil, nil)
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if n != 0 {
		t.Fatalf("n=%d want 0", n)
	}
}
