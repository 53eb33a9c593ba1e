package tilt

import "fmt"

// ScreenRotation is the host display rotation, fixed for the lifetime of an
// engine. A display that rotates requires a new engine.
type ScreenRotation int

const (
	Rotation0 ScreenRotation = iota
	Rotation90
	Rotation180
	Rotation270
)

// ParseScreenRotation maps a rotation in degrees (0/90/180/270) to a
// ScreenRotation.
func ParseScreenRotation(degrees int) (ScreenRotation, error) {
	switch degrees {
	case 0:
		return Rotation0, nil
	case 90:
		return Rotation90, nil
	case 180:
		return Rotation180, nil
	case 270:
		return Rotation270, nil
	}
	return Rotation0, fmt.Errorf("tilt: screen rotation must be 0, 90, 180 or 270, got %d", degrees)
}

func (r ScreenRotation) Degrees() int {
	switch r {
	case Rotation90:
		return 90
	case Rotation180:
		return 180
	case Rotation270:
		return 270
	}
	return 0
}

func (r ScreenRotation) valid() bool {
	return r >= Rotation0 && r <= Rotation270
}

func (r ScreenRotation) String() string {
	return fmt.Sprintf("%d°", r.Degrees())
}

// remapQuaternion rotates a [w, x, y, z] device quaternion into the natural
// screen orientation. Only x and y are affected; the four cases below are a
// conjugation by the screen rotation about Z, so pure yaw is reported
// unchanged on every rotation while the tilt axes follow the screen.
//
// The sign/axis table is load-bearing: it decides which physical tilt maps to
// which reported axis on rotated displays.
func remapQuaternion(q [4]float64, rotation ScreenRotation) [4]float64 {
	x, y := q[1], q[2]
	switch rotation {
	case Rotation90:
		q[1] = -y
		q[2] = x
	case Rotation180:
		q[1] = -x
		q[2] = -y
	case Rotation270:
		q[1] = y
		q[2] = -x
	}
	return q
}

// remapMatrix applies the same frame conjugation as remapQuaternion to a
// rotation matrix: four fixed permutation/negation cases, one per rotation.
// For every unit quaternion q,
//
//	matrixFromQuaternion(remapQuaternion(q, r)) == remapMatrix(matrixFromQuaternion(q), r)
//
// which keeps the matrix and quaternion solve paths in agreement.
func remapMatrix(m [9]float64, rotation ScreenRotation) [9]float64 {
	switch rotation {
	case Rotation90:
		return [9]float64{
			m[4], -m[3], -m[5],
			-m[1], m[0], m[2],
			-m[7], m[6], m[8],
		}
	case Rotation180:
		return [9]float64{
			m[0], m[1], -m[2],
			m[3], m[4], -m[5],
			-m[6], -m[7], m[8],
		}
	case Rotation270:
		return [9]float64{
			m[4], -m[3], m[5],
			-m[1], m[0], -m[2],
			m[7], -m[6], m[8],
		}
	}
	return m
}
