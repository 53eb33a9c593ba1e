package tilt

import "fmt"

// SampleKind identifies one of the four logical raw sensor sources.
type SampleKind int

const (
	KindRotationVector SampleKind = iota
	KindGravity
	KindAccelerometer
	KindMagneticField
)

// SampleKinds lists every kind in subscription order.
var SampleKinds = []SampleKind{
	KindRotationVector,
	KindGravity,
	KindAccelerometer,
	KindMagneticField,
}

func (k SampleKind) String() string {
	switch k {
	case KindRotationVector:
		return "rotation-vector"
	case KindGravity:
		return "gravity"
	case KindAccelerometer:
		return "accelerometer"
	case KindMagneticField:
		return "magnetic-field"
	}
	return fmt.Sprintf("sample-kind(%d)", int(k))
}

// Tier is the currently authoritative sensor combination, best first.
type Tier int

const (
	TierNone Tier = iota
	TierRotationVector
	TierGravityMagnetic
	TierAccelMagnetic
)

func (t Tier) String() string {
	switch t {
	case TierRotationVector:
		return "rotation-vector"
	case TierGravityMagnetic:
		return "gravity+magnetic"
	case TierAccelMagnetic:
		return "accelerometer+magnetic"
	}
	return "none"
}

// arbiter caches the most recent sample per source and decides which sources
// are authoritative. Availability flags only ever rise within one tracking
// session; reset starts the next session from scratch.
//
// Preference, highest first: rotation vector, then gravity+magnetic, then
// accelerometer+magnetic. Once a better source has been observed, samples
// from the sources it supersedes are ignored for the rest of the session.
//
// Not safe for concurrent use; the engine serializes access.
type arbiter struct {
	latestQuat [4]float64
	latestUp   [3]float64 // gravity, or accelerometer when no gravity source exists
	latestMag  [3]float64

	haveRotVec bool
	haveGrav   bool
	haveAccel  bool
	haveMag    bool
}

func (a *arbiter) reset() {
	*a = arbiter{}
}

// ingest caches a raw sample. accepted reports whether the sample may affect
// solver state; first reports whether this is the first accepted sample of
// its kind this session.
func (a *arbiter) ingest(kind SampleKind, values []float64) (accepted, first bool) {
	switch kind {
	case KindRotationVector:
		q, ok := quaternionFromRotationVector(values)
		if !ok {
			return false, false
		}
		a.latestQuat = q
		first = !a.haveRotVec
		a.haveRotVec = true
		return true, first

	case KindGravity:
		if a.haveRotVec || len(values) < 3 {
			return false, false
		}
		copy(a.latestUp[:], values)
		first = !a.haveGrav
		a.haveGrav = true
		return true, first

	case KindAccelerometer:
		// Gravity is a strictly better estimate of Up.
		if a.haveRotVec || a.haveGrav || len(values) < 3 {
			return false, false
		}
		copy(a.latestUp[:], values)
		first = !a.haveAccel
		a.haveAccel = true
		return true, first

	case KindMagneticField:
		if a.haveRotVec || len(values) < 3 {
			return false, false
		}
		copy(a.latestMag[:], values)
		first = !a.haveMag
		a.haveMag = true
		return true, first
	}
	return false, false
}

// canSolve reports whether the minimum sample set for the active tier has
// been observed.
func (a *arbiter) canSolve() bool {
	return a.haveRotVec || ((a.haveGrav || a.haveAccel) && a.haveMag)
}

func (a *arbiter) tier() Tier {
	switch {
	case a.haveRotVec:
		return TierRotationVector
	case a.haveGrav && a.haveMag:
		return TierGravityMagnetic
	case a.haveAccel && a.haveMag:
		return TierAccelMagnetic
	}
	return TierNone
}
