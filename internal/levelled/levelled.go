// Package levelled drives a single status LED that lights when the device
// sits level. It consumes solved orientations and maps them to a digital
// output line.
package levelled

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// lineDriver is the minimal interface levelled needs from a GPIO backend.
//
// Close should be best-effort and leave the line low.
type lineDriver interface {
	SetValue(v int) error
	Close() error
}

// Indicator turns the LED on while both tilt axes stay within thresholdDeg
// of zero. Yaw is ignored.
type Indicator struct {
	mu        sync.Mutex
	driver    lineDriver
	threshold float64
	lit       bool
}

// Open requests the given BCM GPIO pin as an output and returns an
// indicator with the LED off.
func Open(pin int, thresholdDeg float64) (*Indicator, error) {
	driver, err := openLineFn(pin)
	if err != nil {
		return nil, err
	}
	return newIndicator(driver, thresholdDeg), nil
}

func newIndicator(driver lineDriver, thresholdDeg float64) *Indicator {
	return &Indicator{driver: driver, threshold: thresholdDeg}
}

// Update feeds one solved orientation. The line is only written when the
// level state actually changes.
func (ind *Indicator) Update(pitchDeg, rollDeg float64) {
	level := abs(pitchDeg) <= ind.threshold && abs(rollDeg) <= ind.threshold

	ind.mu.Lock()
	defer ind.mu.Unlock()
	if level == ind.lit {
		return
	}
	v := 0
	if level {
		v = 1
	}
	if err := ind.driver.SetValue(v); err != nil {
		log.WithError(err).Warn("levelled: gpio write failed")
		return
	}
	ind.lit = level
}

func (ind *Indicator) Close() error {
	ind.mu.Lock()
	defer ind.mu.Unlock()
	return ind.driver.Close()
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
