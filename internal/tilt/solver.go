package tilt

import "fmt"

// Mode selects the reference frame for reported angles.
type Mode int

const (
	// ModeAbsolute reports world-referenced angles.
	ModeAbsolute Mode = iota
	// ModeRelative reports angles against an origin captured on the first
	// successful solve after the mode is entered or the origin is reset.
	ModeRelative
)

// ParseMode maps "absolute"/"relative" to a Mode.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "absolute":
		return ModeAbsolute, nil
	case "relative":
		return ModeRelative, nil
	}
	return ModeAbsolute, fmt.Errorf("tilt: mode must be \"absolute\" or \"relative\", got %q", s)
}

func (m Mode) String() string {
	if m == ModeRelative {
		return "relative"
	}
	return "absolute"
}

func (m Mode) valid() bool {
	return m == ModeAbsolute || m == ModeRelative
}

// solver converts remapped rotations into yaw/pitch/roll degrees, absolute or
// origin-relative. At most one origin representation is live at a time,
// matching whichever solve path is currently authoritative; the caller clears
// both when the path changes.
//
// Not safe for concurrent use; the engine serializes access.
type solver struct {
	rotation ScreenRotation
	mode     Mode

	originMatrix     [9]float64
	haveMatrixOrigin bool
	invOriginQuat    [4]float64
	haveQuatOrigin   bool
}

func (s *solver) setMode(mode Mode) {
	s.mode = mode
	s.clearOrigin()
}

func (s *solver) clearOrigin() {
	s.haveMatrixOrigin = false
	s.haveQuatOrigin = false
}

// solveQuaternion solves a raw [w, x, y, z] device quaternion.
// In relative mode the first successful solve captures the origin and
// reports zero on all axes.
func (s *solver) solveQuaternion(q [4]float64) (yaw, pitch, roll float64, ok bool) {
	q = remapQuaternion(q, s.rotation)

	rotation := q
	if s.mode == ModeRelative {
		if !s.haveQuatOrigin {
			s.invOriginQuat = invertQuaternion(q)
			s.haveQuatOrigin = true
		}
		rotation = multQuaternions(s.invOriginQuat, q)
	}

	y, p, r := eulerFromQuaternion(rotation)
	return y * degreesPerRadian, p * degreesPerRadian, r * degreesPerRadian, true
}

// solveVectors solves a gravity (or accelerometer) vector plus a geomagnetic
// vector. Degenerate geometry fails the cycle without touching solver state.
func (s *solver) solveVectors(gravity, geomagnetic [3]float64) (yaw, pitch, roll float64, ok bool) {
	m, ok := rotationMatrixFromVectors(gravity, geomagnetic)
	if !ok {
		return 0, 0, 0, false
	}
	m = remapMatrix(m, s.rotation)

	var y, p, r float64
	if s.mode == ModeRelative {
		if !s.haveMatrixOrigin {
			s.originMatrix = m
			s.haveMatrixOrigin = true
		}
		y, p, r = angleChange(m, s.originMatrix)
	} else {
		y, p, r = orientationFromMatrix(m)
	}
	return y * degreesPerRadian, p * degreesPerRadian, r * degreesPerRadian, true
}
