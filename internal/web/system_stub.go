//go:build !linux

package web

import "time"

func snapshotSystem(_ time.Time) *SystemSnapshot { return nil }
