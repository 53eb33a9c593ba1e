//go:build !linux || (!arm && !arm64)

package levelled

import "fmt"

// Stub implementation for non-Linux and/or non-ARM platforms.
func openLine(pin int) (lineDriver, error) {
	return nil, fmt.Errorf("levelled: gpio unsupported on this platform")
}

var openLineFn = openLine
