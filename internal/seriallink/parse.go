package seriallink

import (
	"fmt"
	"strconv"
	"strings"

	"tiltd/internal/tilt"
)

// Line protocol spoken by tethered sensor pods, one reading per line:
//
//	RV,<x>,<y>,<z>[,<w>]
//	GRV,<x>,<y>,<z>
//	ACC,<x>,<y>,<z>
//	MAG,<x>,<y>,<z>
//
// Values are decimal floats. Unknown tags and malformed lines are skipped so
// a glitched UART byte cannot stall the stream.

// parseLine decodes one protocol line into a sample.
func parseLine(line string) (tilt.SampleKind, []float64, error) {
	line = strings.TrimSpace(line)
	fields := strings.Split(line, ",")
	if len(fields) < 2 {
		return 0, nil, fmt.Errorf("seriallink: short line %q", line)
	}

	var kind tilt.SampleKind
	var minVals, maxVals int
	switch fields[0] {
	case "RV":
		kind, minVals, maxVals = tilt.KindRotationVector, 3, 4
	case "GRV":
		kind, minVals, maxVals = tilt.KindGravity, 3, 3
	case "ACC":
		kind, minVals, maxVals = tilt.KindAccelerometer, 3, 3
	case "MAG":
		kind, minVals, maxVals = tilt.KindMagneticField, 3, 3
	default:
		return 0, nil, fmt.Errorf("seriallink: unknown tag %q", fields[0])
	}

	n := len(fields) - 1
	if n < minVals || n > maxVals {
		return 0, nil, fmt.Errorf("seriallink: %s wants %d..%d values, got %d", fields[0], minVals, maxVals, n)
	}

	values := make([]float64, n)
	for i, f := range fields[1:] {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return 0, nil, fmt.Errorf("seriallink: bad value %q: %w", f, err)
		}
		values[i] = v
	}
	return kind, values, nil
}
