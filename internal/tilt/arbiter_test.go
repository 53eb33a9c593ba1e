package tilt

import "testing"

func TestArbiterAccelMagTier(t *testing.T) {
	var a arbiter
	if a.tier() != TierNone || a.canSolve() {
		t.Fatal("fresh arbiter not empty")
	}

	accepted, first := a.ingest(KindAccelerometer, []float64{0, 0, 9.81})
	if !accepted || !first {
		t.Fatalf("accel: accepted=%v first=%v", accepted, first)
	}
	if a.canSolve() {
		t.Fatal("solvable without a magnetic sample")
	}

	accepted, first = a.ingest(KindMagneticField, []float64{0, 30, 0})
	if !accepted || !first {
		t.Fatalf("mag: accepted=%v first=%v", accepted, first)
	}
	if !a.canSolve() || a.tier() != TierAccelMagnetic {
		t.Fatalf("tier=%v canSolve=%v", a.tier(), a.canSolve())
	}

	// Repeats are accepted but no longer first.
	accepted, first = a.ingest(KindAccelerometer, []float64{0, 1, 9.7})
	if !accepted || first {
		t.Fatalf("repeat accel: accepted=%v first=%v", accepted, first)
	}
}

func TestArbiterGravitySupersedesAccel(t *testing.T) {
	var a arbiter
	a.ingest(KindAccelerometer, []float64{0, 0, 9.81})
	a.ingest(KindMagneticField, []float64{0, 30, 0})

	accepted, first := a.ingest(KindGravity, []float64{0, 1, 9.7})
	if !accepted || !first {
		t.Fatalf("gravity: accepted=%v first=%v", accepted, first)
	}
	if a.tier() != TierGravityMagnetic {
		t.Fatalf("tier=%v want gravity+magnetic", a.tier())
	}
	if a.latestUp != [3]float64{0, 1, 9.7} {
		t.Fatalf("latestUp=%v want gravity sample", a.latestUp)
	}

	// Accelerometer samples are ignored for the rest of the session.
	if accepted, _ := a.ingest(KindAccelerometer, []float64{5, 5, 5}); accepted {
		t.Fatal("accel accepted after gravity")
	}
	if a.latestUp != [3]float64{0, 1, 9.7} {
		t.Fatalf("latestUp=%v overwritten by ignored accel", a.latestUp)
	}
}

func TestArbiterRotationVectorSupersedesAll(t *testing.T) {
	var a arbiter
	a.ingest(KindGravity, []float64{0, 0, 9.81})
	a.ingest(KindMagneticField, []float64{0, 30, 0})

	accepted, first := a.ingest(KindRotationVector, []float64{0, 0, 0, 1})
	if !accepted || !first {
		t.Fatalf("rotation vector: accepted=%v first=%v", accepted, first)
	}
	if a.tier() != TierRotationVector {
		t.Fatalf("tier=%v want rotation-vector", a.tier())
	}

	for _, kind := range []SampleKind{KindGravity, KindAccelerometer, KindMagneticField} {
		if accepted, _ := a.ingest(kind, []float64{1, 2, 3}); accepted {
			t.Errorf("%v accepted after rotation vector", kind)
		}
	}

	// Later rotation vectors keep flowing.
	accepted, first = a.ingest(KindRotationVector, []float64{0.1, 0, 0})
	if !accepted || first {
		t.Fatalf("repeat rotation vector: accepted=%v first=%v", accepted, first)
	}
}

func TestArbiterRejectsMalformedSamples(t *testing.T) {
	var a arbiter
	if accepted, _ := a.ingest(KindRotationVector, []float64{1, 2}); accepted {
		t.Error("short rotation vector accepted")
	}
	if accepted, _ := a.ingest(KindGravity, []float64{1}); accepted {
		t.Error("short gravity accepted")
	}
	if a.tier() != TierNone {
		t.Fatalf("tier=%v after malformed samples", a.tier())
	}
}

func TestArbiterReset(t *testing.T) {
	var a arbiter
	a.ingest(KindRotationVector, []float64{0, 0, 0, 1})
	a.reset()

	if a.tier() != TierNone || a.canSolve() {
		t.Fatal("reset did not clear state")
	}
	// A fresh session accepts lower tiers again.
	if accepted, first := a.ingest(KindAccelerometer, []float64{0, 0, 9.81}); !accepted || !first {
		t.Fatalf("accel after reset: accepted=%v first=%v", accepted, first)
	}
}

func TestTierAndKindStrings(t *testing.T) {
	if TierNone.String() != "none" || TierRotationVector.String() != "rotation-vector" ||
		TierGravityMagnetic.String() != "gravity+magnetic" || TierAccelMagnetic.String() != "accelerometer+magnetic" {
		t.Fatal("tier strings changed")
	}
	if KindMagneticField.String() != "magnetic-field" {
		t.Fatalf("kind string=%q", KindMagneticField.String())
	}
}
