package tilt

import "math"

// Rotation primitives shared by the matrix and quaternion solve paths.
//
// Conventions follow the Android sensor stack, which is what the supported
// sensor hosts report in: quaternions are [w, x, y, z] unit quaternions
// describing the device frame relative to the world ENU frame, matrices are
// row-major 3x3 with rows = world axes expressed in device coordinates.
// Euler output is yaw (about -Z), pitch (about -X), roll (about Y), radians,
// counter-clockwise positive.

const degreesPerRadian = 180 / math.Pi

// Free-fall guard for the gravity vector, (0.01 g)^2 in (m/s^2)^2.
const freeFallGravitySquared = 0.01 * 9.80665 * 0.01 * 9.80665

// quaternionFromRotationVector converts a raw rotation-vector sample
// [x, y, z] or [x, y, z, w] into a [w, x, y, z] quaternion. Three-element
// samples recover w from the unit-norm constraint.
func quaternionFromRotationVector(v []float64) ([4]float64, bool) {
	if len(v) < 3 {
		return [4]float64{}, false
	}
	var w float64
	if len(v) >= 4 {
		w = v[3]
	} else {
		t := 1 - v[0]*v[0] - v[1]*v[1] - v[2]*v[2]
		if t > 0 {
			w = math.Sqrt(t)
		}
	}
	return [4]float64{w, v[0], v[1], v[2]}, true
}

// multQuaternions returns a*b in Hamilton convention, [w, x, y, z].
func multQuaternions(a, b [4]float64) [4]float64 {
	return [4]float64{
		a[0]*b[0] - a[1]*b[1] - a[2]*b[2] - a[3]*b[3],
		a[1]*b[0] + a[0]*b[1] + a[2]*b[3] - a[3]*b[2],
		a[0]*b[2] - a[1]*b[3] + a[2]*b[0] + a[3]*b[1],
		a[0]*b[3] + a[1]*b[2] - a[2]*b[1] + a[3]*b[0],
	}
}

// invertQuaternion returns the inverse of a unit quaternion (its conjugate).
func invertQuaternion(q [4]float64) [4]float64 {
	return [4]float64{q[0], -q[1], -q[2], -q[3]}
}

// rotationMatrixFromVectors builds the device rotation matrix from a gravity
// (or accelerometer) vector and a geomagnetic vector, both in device
// coordinates. It fails on degenerate geometry: free fall, or gravity and
// magnetic field close to parallel.
func rotationMatrixFromVectors(gravity, geomagnetic [3]float64) ([9]float64, bool) {
	ax, ay, az := gravity[0], gravity[1], gravity[2]
	normsqA := ax*ax + ay*ay + az*az
	if normsqA < freeFallGravitySquared {
		return [9]float64{}, false
	}

	ex, ey, ez := geomagnetic[0], geomagnetic[1], geomagnetic[2]
	hx := ey*az - ez*ay
	hy := ez*ax - ex*az
	hz := ex*ay - ey*ax
	normH := math.Sqrt(hx*hx + hy*hy + hz*hz)
	if normH < 0.1 {
		// Device close to free fall, or in a field aligned with gravity.
		return [9]float64{}, false
	}

	invH := 1 / normH
	hx, hy, hz = hx*invH, hy*invH, hz*invH
	invA := 1 / math.Sqrt(normsqA)
	ax, ay, az = ax*invA, ay*invA, az*invA

	mx := ay*hz - az*hy
	my := az*hx - ax*hz
	mz := ax*hy - ay*hx

	return [9]float64{
		hx, hy, hz,
		mx, my, mz,
		ax, ay, az,
	}, true
}

// matrixFromQuaternion expands a unit quaternion into the equivalent rotation
// matrix.
func matrixFromQuaternion(q [4]float64) [9]float64 {
	w, x, y, z := q[0], q[1], q[2], q[3]
	return [9]float64{
		1 - 2*y*y - 2*z*z, 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*x*x - 2*z*z, 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*x*x - 2*y*y,
	}
}

// orientationFromMatrix extracts yaw/pitch/roll in radians.
func orientationFromMatrix(m [9]float64) (yaw, pitch, roll float64) {
	yaw = math.Atan2(m[1], m[4])
	pitch = math.Asin(clampUnit(-m[7]))
	roll = math.Atan2(-m[6], m[8])
	return yaw, pitch, roll
}

// angleChange extracts the yaw/pitch/roll, in radians, of the rotation that
// takes origin to live. Only the five elements of origin^T * live that the
// Euler extraction needs are computed.
func angleChange(live, origin [9]float64) (yaw, pitch, roll float64) {
	rd1 := origin[0]*live[1] + origin[3]*live[4] + origin[6]*live[7]
	rd4 := origin[1]*live[1] + origin[4]*live[4] + origin[7]*live[7]
	rd6 := origin[2]*live[0] + origin[5]*live[3] + origin[8]*live[6]
	rd7 := origin[2]*live[1] + origin[5]*live[4] + origin[8]*live[7]
	rd8 := origin[2]*live[2] + origin[5]*live[5] + origin[8]*live[8]

	yaw = math.Atan2(rd1, rd4)
	pitch = math.Asin(clampUnit(-rd7))
	roll = math.Atan2(-rd6, rd8)
	return yaw, pitch, roll
}

// eulerFromQuaternion extracts yaw/pitch/roll in radians, with signs adjusted
// to match orientationFromMatrix for the shared axis convention.
func eulerFromQuaternion(q [4]float64) (yaw, pitch, roll float64) {
	w, x, y, z := q[0], q[1], q[2], q[3]

	rotX := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	rotY := math.Asin(clampUnit(2 * (w*y - z*x)))
	rotZ := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))

	return -rotZ, -rotX, rotY
}

func clampUnit(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
