package web

import (
	"sync/atomic"
	"time"
)

type Status struct {
	startUnixNano int64
	samplesSolved uint64
	tracking      atomic.Bool
	tier          atomic.Value // string
	mode          atomic.Value // string
	rotation      atomic.Value // string
	source        atomic.Value // string
	orientation   atomic.Value // OrientationSnapshot
}

func NewStatus() *Status {
	s := &Status{}
	atomic.StoreInt64(&s.startUnixNano, time.Now().UTC().UnixNano())
	s.tier.Store("none")
	s.mode.Store("")
	s.rotation.Store("")
	s.source.Store("")
	s.orientation.Store(OrientationSnapshot{})
	return s
}

// OrientationSnapshot is a small, UI-friendly view of the solved attitude.
//
// Angles are in degrees. Valid is false until the first solution of a
// tracking session.
type OrientationSnapshot struct {
	Valid         bool    `json:"valid"`
	YawDeg        float64 `json:"yaw_deg"`
	PitchDeg      float64 `json:"pitch_deg"`
	RollDeg       float64 `json:"roll_deg"`
	LastUpdateUTC string  `json:"last_update_utc,omitempty"`
}

func (s *Status) SetOrientation(nowUTC time.Time, o OrientationSnapshot) {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	o.LastUpdateUTC = nowUTC.UTC().Format(time.RFC3339Nano)
	s.orientation.Store(o)
	if o.Valid {
		atomic.AddUint64(&s.samplesSolved, 1)
	}
}

func (s *Status) SetStatic(source, rotation string) {
	if source != "" {
		s.source.Store(source)
	}
	if rotation != "" {
		s.rotation.Store(rotation)
	}
}

func (s *Status) SetTracking(v bool)  { s.tracking.Store(v) }
func (s *Status) SetTier(tier string) { s.tier.Store(tier) }
func (s *Status) SetMode(mode string) { s.mode.Store(mode) }

type StatusSnapshot struct {
	Service        string              `json:"service"`
	NowUTC         string              `json:"now_utc"`
	UptimeSec      int64               `json:"uptime_sec"`
	Tracking       bool                `json:"tracking"`
	Tier           string              `json:"tier"`
	Mode           string              `json:"mode"`
	ScreenRotation string              `json:"screen_rotation"`
	Source         string              `json:"source"`
	SolutionsTotal uint64              `json:"solutions_total"`
	Orientation    OrientationSnapshot `json:"orientation"`
	System         *SystemSnapshot     `json:"system,omitempty"`
}

func (s *Status) Snapshot(nowUTC time.Time) StatusSnapshot {
	if nowUTC.IsZero() {
		nowUTC = time.Now().UTC()
	}
	start := time.Unix(0, atomic.LoadInt64(&s.startUnixNano)).UTC()

	return StatusSnapshot{
		Service:        "tiltd",
		NowUTC:         nowUTC.UTC().Format(time.RFC3339Nano),
		UptimeSec:      int64(nowUTC.Sub(start).Seconds()),
		Tracking:       s.tracking.Load(),
		Tier:           s.tier.Load().(string),
		Mode:           s.mode.Load().(string),
		ScreenRotation: s.rotation.Load().(string),
		Source:         s.source.Load().(string),
		SolutionsTotal: atomic.LoadUint64(&s.samplesSolved),
		Orientation:    s.orientation.Load().(OrientationSnapshot),
		System:         snapshotSystem(nowUTC),
	}
}
