// Package rooming computes per-user rooming-eligibility windows.
package rooming

import (
	"time"

	"confmate/backend/internal/models"
)

// Status is the state of a user's rooming window at a point in time.
type Status int

const (
	// Unavailable means the user has no rooming window at all, e.g.
	// payment not accepted or no registration for the event.
	Unavailable Status = iota
	BeforeWindow
	InWindow
	AfterWindow
)

// Bounds for the per-user bonus granted by staff.
const (
	MinBonusMinutes = 0
	MaxBonusMinutes = 600
)

func (s Status) String() string {
	switch s {
	case Unavailable:
		return "unavailable"
	case BeforeWindow:
		return "before_window"
	case InWindow:
		return "in_window"
	case AfterWindow:
		return "after_window"
	}
	return "unknown"
}

// ClampBonus forces a bonus into the configured range.
func ClampBonus(minutes int) int {
	if minutes < MinBonusMinutes {
		return MinBonusMinutes
	}
	if minutes > MaxBonusMinutes {
		return MaxBonusMinutes
	}
	return minutes
}

// PersonalStart is the event's global rooming start shifted earlier by the
// user's bonus. More bonus means an earlier start.
func PersonalStart(globalStart time.Time, bonusMinutes int) time.Time {
	return globalStart.Add(-time.Duration(ClampBonus(bonusMinutes)) * time.Minute)
}

// Eligibility resolves the user's window state for the event at now.
// A nil registration means the user never registered for the event.
func Eligibility(reg *models.Registration, event *models.Event, now time.Time) Status {
	if reg == nil || !reg.PaymentAccepted {
		return Unavailable
	}
	if now.Before(PersonalStart(event.RoomingStart, reg.BonusMinutes)) {
		return BeforeWindow
	}
	if now.After(event.RoomingEnd) {
		return AfterWindow
	}
	return InWindow
}
