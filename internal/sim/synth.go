package sim

import "math"

// Sensor synthesis for a stationary device held at a scripted pose.
//
// The device rotation is composed as Rz(-yaw) * Ry(roll) * Rx(-pitch), the
// inverse of the Euler extraction the solver applies, so a scripted pose
// round-trips through the full pipeline to the same angles.

const (
	gravityMagnitude = 9.81 // m/s^2
	fieldMagnitude   = 30.0 // uT, horizontal component
	radiansPerDegree = math.Pi / 180
)

// quaternionForPose returns the [w, x, y, z] quaternion for pose.
func quaternionForPose(p Pose) [4]float64 {
	qz := axisQuat(-p.YawDeg*radiansPerDegree, 0, 0, 1)
	qx := axisQuat(-p.PitchDeg*radiansPerDegree, 1, 0, 0)
	qy := axisQuat(p.RollDeg*radiansPerDegree, 0, 1, 0)
	return mulQuat(mulQuat(qz, qy), qx)
}

// rotationVectorForPose returns the raw [x, y, z, w] sample layout.
func rotationVectorForPose(p Pose) []float64 {
	q := quaternionForPose(p)
	return []float64{q[1], q[2], q[3], q[0]}
}

// gravityForPose returns the gravity vector in device coordinates.
func gravityForPose(p Pose) []float64 {
	m := matrixForPose(p)
	return []float64{gravityMagnitude * m[6], gravityMagnitude * m[7], gravityMagnitude * m[8]}
}

// magneticForPose returns the geomagnetic vector in device coordinates.
func magneticForPose(p Pose) []float64 {
	m := matrixForPose(p)
	return []float64{fieldMagnitude * m[3], fieldMagnitude * m[4], fieldMagnitude * m[5]}
}

func matrixForPose(p Pose) [9]float64 {
	q := quaternionForPose(p)
	w, x, y, z := q[0], q[1], q[2], q[3]
	return [9]float64{
		1 - 2*y*y - 2*z*z, 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*x*x - 2*z*z, 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*x*x - 2*y*y,
	}
}

func axisQuat(angle, x, y, z float64) [4]float64 {
	s, c := math.Sincos(angle / 2)
	return [4]float64{c, s * x, s * y, s * z}
}

func mulQuat(a, b [4]float64) [4]float64 {
	return [4]float64{
		a[0]*b[0] - a[1]*b[1] - a[2]*b[2] - a[3]*b[3],
		a[1]*b[0] + a[0]*b[1] + a[2]*b[3] - a[3]*b[2],
		a[0]*b[2] - a[1]*b[3] + a[2]*b[0] + a[3]*b[1],
		a[0]*b[3] + a[1]*b[2] - a[2]*b[1] + a[3]*b[0],
	}
}
