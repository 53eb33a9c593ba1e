package tilt

import "testing"

func TestParseMode(t *testing.T) {
	m, err := ParseMode("absolute")
	if err != nil || m != ModeAbsolute {
		t.Fatalf("ParseMode(absolute)=%v, %v", m, err)
	}
	m, err = ParseMode("relative")
	if err != nil || m != ModeRelative {
		t.Fatalf("ParseMode(relative)=%v, %v", m, err)
	}
	if _, err := ParseMode("Absolute"); err == nil {
		t.Fatal("ParseMode(Absolute) accepted")
	}
}

func TestSolverAbsoluteQuaternion(t *testing.T) {
	s := &solver{rotation: Rotation0, mode: ModeAbsolute}
	y, p, r, ok := s.solveQuaternion(quatForYaw(72))
	if !ok {
		t.Fatal("solve failed")
	}
	anglesNear(t, y, p, r, 72, 0, 0, 1e-9)
}

// Both solve paths must report the same angles for the same physical pose,
// including on rotated displays.
func TestSolverPathsAgreeAcrossRotations(t *testing.T) {
	quats := [][4]float64{
		quatForYaw(30),
		quatForPitch(-25),
		quatForRoll(60),
	}
	for _, q := range quats {
		for _, rot := range allRotations {
			qs := &solver{rotation: rot, mode: ModeAbsolute}
			y1, p1, r1, ok := qs.solveQuaternion(q)
			if !ok {
				t.Fatalf("rot=%v: quaternion solve failed", rot)
			}

			ms := &solver{rotation: rot, mode: ModeAbsolute}
			gravity, geomagnetic := vectorsForMatrix(matrixFromQuaternion(q))
			y2, p2, r2, ok := ms.solveVectors(gravity, geomagnetic)
			if !ok {
				t.Fatalf("rot=%v: vector solve failed", rot)
			}
			anglesNear(t, y1, p1, r1, y2, p2, r2, 1e-9)
		}
	}
}

func TestSolverRelativeQuaternion(t *testing.T) {
	s := &solver{rotation: Rotation0, mode: ModeRelative}

	// First solve captures the origin and reports zero.
	y, p, r, ok := s.solveQuaternion(quatForPitch(10))
	if !ok {
		t.Fatal("origin solve failed")
	}
	anglesNear(t, y, p, r, 0, 0, 0, 1e-9)

	y, p, r, ok = s.solveQuaternion(quatForPitch(25))
	if !ok {
		t.Fatal("second solve failed")
	}
	anglesNear(t, y, p, r, 0, 15, 0, 1e-9)

	// Clearing the origin recaptures on the next solve.
	s.clearOrigin()
	y, p, r, _ = s.solveQuaternion(quatForPitch(25))
	anglesNear(t, y, p, r, 0, 0, 0, 1e-9)
}

func TestSolverRelativeVectors(t *testing.T) {
	s := &solver{rotation: Rotation0, mode: ModeRelative}
	originGrav, originMag := vectorsForMatrix(matrixFromQuaternion(quatForYaw(10)))
	liveGrav, liveMag := vectorsForMatrix(matrixFromQuaternion(quatForYaw(35)))

	y, p, r, ok := s.solveVectors(originGrav, originMag)
	if !ok {
		t.Fatal("origin solve failed")
	}
	anglesNear(t, y, p, r, 0, 0, 0, 1e-9)

	y, p, r, ok = s.solveVectors(liveGrav, liveMag)
	if !ok {
		t.Fatal("second solve failed")
	}
	anglesNear(t, y, p, r, 25, 0, 0, 1e-9)
}

func TestSolverDegenerateVectorsDoNotCaptureOrigin(t *testing.T) {
	s := &solver{rotation: Rotation0, mode: ModeRelative}

	if _, _, _, ok := s.solveVectors([3]float64{0, 0, 9.81}, [3]float64{0, 0, 45}); ok {
		t.Fatal("degenerate geometry solved")
	}
	if s.haveMatrixOrigin {
		t.Fatal("degenerate cycle captured an origin")
	}

	// The first good pose becomes the origin.
	grav, mag := vectorsForMatrix(matrixFromQuaternion(quatForRoll(30)))
	y, p, r, ok := s.solveVectors(grav, mag)
	if !ok {
		t.Fatal("good solve failed")
	}
	anglesNear(t, y, p, r, 0, 0, 0, 1e-9)
}

func TestSolverSetModeClearsOrigin(t *testing.T) {
	s := &solver{rotation: Rotation0, mode: ModeRelative}
	s.solveQuaternion(quatForYaw(40))
	if !s.haveQuatOrigin {
		t.Fatal("origin not captured")
	}

	s.setMode(ModeAbsolute)
	if s.haveQuatOrigin || s.haveMatrixOrigin {
		t.Fatal("setMode kept the origin")
	}
	y, p, r, _ := s.solveQuaternion(quatForYaw(40))
	anglesNear(t, y, p, r, 40, 0, 0, 1e-9)

	// Back to relative: a fresh origin is captured, not the old one.
	s.setMode(ModeRelative)
	y, p, r, _ = s.solveQuaternion(quatForYaw(-5))
	anglesNear(t, y, p, r, 0, 0, 0, 1e-9)
}
