package sim

import (
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"
)

// ScenarioScript is a deterministic, script-driven pose timeline.
//
// Time is expressed as Go duration strings (e.g. "0s", "250ms", "10s").
// If Duration is zero, it is derived from the latest keyframe time.
//
// YAML schema (v1):
//
//	version: 1
//	duration: 30s
//	emit: [rotation_vector]
//	keyframes:
//	  - t: 0s
//	    yaw_deg: 0
//	    pitch_deg: 0
//	    roll_deg: 0
//	  - t: 10s
//	    yaw_deg: 90
//	    pitch_deg: 15
//	    roll_deg: -5
//
// emit lists the sensor kinds the simulated device advertises:
// rotation_vector, gravity, accelerometer, magnetic_field. An empty list
// advertises everything.
//
// Keyframes must be sorted by non-decreasing t.
//
// Keep this struct stable: scripts are test fixtures.
type ScenarioScript struct {
	Version   int            `yaml:"version"`
	Duration  time.Duration  `yaml:"duration"`
	Emit      []string       `yaml:"emit"`
	Keyframes []PoseKeyframe `yaml:"keyframes"`
}

// PoseKeyframe is a time-stamped device attitude, in degrees.
type PoseKeyframe struct {
	T        time.Duration `yaml:"t"`
	YawDeg   float64       `yaml:"yaw_deg"`
	PitchDeg float64       `yaml:"pitch_deg"`
	RollDeg  float64       `yaml:"roll_deg"`
}

// Pose is the interpolated attitude at an instant, in degrees.
type Pose struct {
	YawDeg   float64
	PitchDeg float64
	RollDeg  float64
}

// Scenario is the validated, runtime representation.
//
// Use PoseAt to compute the deterministic pose at a given elapsed time.
type Scenario struct {
	script ScenarioScript
	// Derived duration (script.Duration or max keyframe time).
	duration time.Duration
}

// LoadScenarioScript reads and unmarshals a YAML scenario script from path.
func LoadScenarioScript(path string) (ScenarioScript, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return ScenarioScript{}, err
	}
	return ParseScenarioScriptYAML(b)
}

// ParseScenarioScriptYAML parses a YAML scenario script.
func ParseScenarioScriptYAML(b []byte) (ScenarioScript, error) {
	var s ScenarioScript
	if err := yaml.Unmarshal(b, &s); err != nil {
		return ScenarioScript{}, err
	}
	return s, nil
}

// NewScenario validates script and returns a runtime Scenario.
func NewScenario(script ScenarioScript) (*Scenario, error) {
	if script.Version == 0 {
		script.Version = 1
	}
	if script.Version != 1 {
		return nil, fmt.Errorf("unsupported scenario version %d", script.Version)
	}
	if len(script.Keyframes) == 0 {
		return nil, fmt.Errorf("keyframes is required")
	}
	for i := range script.Keyframes {
		if script.Keyframes[i].T < 0 {
			return nil, fmt.Errorf("keyframes[%d].t must be >= 0", i)
		}
		if i > 0 && script.Keyframes[i].T < script.Keyframes[i-1].T {
			return nil, fmt.Errorf("keyframes must be sorted by t (index %d)", i)
		}
	}
	for _, name := range script.Emit {
		if _, err := kindFromName(name); err != nil {
			return nil, err
		}
	}

	dur := script.Duration
	if dur <= 0 {
		for _, kf := range script.Keyframes {
			if kf.T > dur {
				dur = kf.T
			}
		}
	}
	if dur <= 0 {
		return nil, fmt.Errorf("duration is required (or deriveable from keyframes)")
	}

	return &Scenario{script: script, duration: dur}, nil
}

// Duration returns the effective scenario duration.
func (s *Scenario) Duration() time.Duration {
	if s == nil {
		return 0
	}
	return s.duration
}

// PoseAt computes the pose at elapsed.
//
// If loop is true, elapsed wraps around Duration(). Otherwise elapsed is
// clamped to [0, Duration()] and the scenario holds its final pose.
func (s *Scenario) PoseAt(elapsed time.Duration, loop bool) Pose {
	if s == nil {
		return Pose{}
	}
	if elapsed < 0 {
		elapsed = 0
	}
	if s.duration > 0 {
		if loop {
			elapsed = elapsed % s.duration
		} else if elapsed > s.duration {
			elapsed = s.duration
		}
	}

	kf0, kf1, alpha := selectSegment(s.script.Keyframes, elapsed)
	return Pose{
		YawDeg:   lerpAngleDeg(kf0.YawDeg, kf1.YawDeg, alpha),
		PitchDeg: lerp(kf0.PitchDeg, kf1.PitchDeg, alpha),
		RollDeg:  lerp(kf0.RollDeg, kf1.RollDeg, alpha),
	}
}

func selectSegment(kfs []PoseKeyframe, t time.Duration) (PoseKeyframe, PoseKeyframe, float64) {
	if len(kfs) == 1 {
		return kfs[0], kfs[0], 0
	}
	idx := sort.Search(len(kfs), func(i int) bool { return kfs[i].T > t })
	if idx <= 0 {
		return kfs[0], kfs[0], 0
	}
	if idx >= len(kfs) {
		last := kfs[len(kfs)-1]
		return last, last, 0
	}
	k0 := kfs[idx-1]
	k1 := kfs[idx]
	dt := k1.T - k0.T
	if dt <= 0 {
		return k1, k1, 0
	}
	alpha := float64(t-k0.T) / float64(dt)
	if alpha < 0 {
		alpha = 0
	}
	if alpha > 1 {
		alpha = 1
	}
	return k0, k1, alpha
}

func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func lerpAngleDeg(a0, a1, t float64) float64 {
	// Shortest-path interpolation across wraparound.
	norm := func(x float64) float64 {
		for x < 0 {
			x += 360
		}
		for x >= 360 {
			x -= 360
		}
		return x
	}
	a0 = norm(a0)
	a1 = norm(a1)
	delta := a1 - a0
	if delta > 180 {
		delta -= 360
	} else if delta < -180 {
		delta += 360
	}
	return norm(a0 + delta*t)
}
