//go:build linux && (arm || arm64)

package levelled

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/warthog618/go-gpiocdev"
)

// openLine requests the given BCM GPIO as a digital output using the Linux
// GPIO character device (libgpiod). The line starts low.
func openLine(pin int) (lineDriver, error) {
	if pin <= 0 {
		return nil, fmt.Errorf("levelled: invalid gpio pin %d", pin)
	}

	// On Pi, line names are commonly "GPIO18", etc.
	lineName := fmt.Sprintf("GPIO%d", pin)

	chipCandidates := []string{"/dev/gpiochip0", "/dev/gpiochip4"}
	entries, _ := os.ReadDir("/dev")
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, "gpiochip") {
			chipCandidates = append(chipCandidates, filepath.Join("/dev", name))
		}
	}

	for _, chipPath := range chipCandidates {
		chip, err := gpiocdev.NewChip(chipPath)
		if err != nil {
			continue
		}
		offset, err := chip.FindLine(lineName)
		if err != nil {
			_ = chip.Close()
			continue
		}
		line, err := chip.RequestLine(offset, gpiocdev.AsOutput(0), gpiocdev.WithConsumer("tiltd-level"))
		if err != nil {
			_ = chip.Close()
			continue
		}
		return &gpiodLine{chip: chip, line: line}, nil
	}

	return nil, fmt.Errorf("levelled: gpio line %q not found (or busy)", lineName)
}

var openLineFn = openLine

type gpiodLine struct {
	chip *gpiocdev.Chip
	line *gpiocdev.Line
}

func (g *gpiodLine) SetValue(v int) error {
	if g == nil || g.line == nil {
		return fmt.Errorf("levelled: gpio line not initialized")
	}
	return g.line.SetValue(v)
}

func (g *gpiodLine) Close() error {
	if g == nil || g.line == nil {
		return nil
	}
	// Graceful shutdown: LED off.
	_ = g.line.SetValue(0)
	err1 := g.line.Close()
	g.line = nil
	if g.chip != nil {
		_ = g.chip.Close()
		g.chip = nil
	}
	return err1
}
