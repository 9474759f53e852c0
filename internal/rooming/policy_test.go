package rooming_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"confmate/backend/internal/models"
	"confmate/backend/internal/rooming"
)

func TestClampBonus(t *testing.T) {
	assert.Equal(t, 0, rooming.ClampBonus(-5))
	assert.Equal(t, 0, rooming.ClampBonus(0))
	assert.Equal(t, 300, rooming.ClampBonus(300))
	assert.Equal(t, 600, rooming.ClampBonus(600))
	assert.Equal(t, 600, rooming.ClampBonus(601))
}

func TestPersonalStart(t *testing.T) {
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, start, rooming.PersonalStart(start, 0))
	assert.Equal(t, start.Add(-90*time.Minute), rooming.PersonalStart(start, 90))
	// Bonus beyond the cap gives at most ten hours of head start.
	assert.Equal(t, start.Add(-600*time.Minute), rooming.PersonalStart(start, 10000))
}

func TestEligibility(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	event := &models.Event{
		RoomingStart: now.Add(time.Hour),
		RoomingEnd:   now.Add(48 * time.Hour),
	}

	t.Run("no registration", func(t *testing.T) {
		assert.Equal(t, rooming.Unavailable, rooming.Eligibility(nil, event, now))
	})

	t.Run("payment pending", func(t *testing.T) {
		reg := &models.Registration{PaymentAccepted: false}
		assert.Equal(t, rooming.Unavailable, rooming.Eligibility(reg, event, now))
	})

	t.Run("before window", func(t *testing.T) {
		reg := &models.Registration{PaymentAccepted: true}
		assert.Equal(t, rooming.BeforeWindow, rooming.Eligibility(reg, event, now))
	})

	t.Run("bonus opens window early", func(t *testing.T) {
		reg := &models.Registration{PaymentAccepted: true, BonusMinutes: 120}
		assert.Equal(t, rooming.InWindow, rooming.Eligibility(reg, event, now))
	})

	t.Run("in window", func(t *testing.T) {
		reg := &models.Registration{PaymentAccepted: true}
		assert.Equal(t, rooming.InWindow, rooming.Eligibility(reg, event, now.Add(2*time.Hour)))
	})

	t.Run("exactly at personal start", func(t *testing.T) {
		reg := &models.Registration{PaymentAccepted: true}
		assert.Equal(t, rooming.InWindow, rooming.Eligibility(reg, event, event.RoomingStart))
	})

	t.Run("after window", func(t *testing.T) {
		reg := &models.Registration{PaymentAccepted: true}
		assert.Equal(t, rooming.AfterWindow, rooming.Eligibility(reg, event, now.Add(72*time.Hour)))
	})
}

func TestStatusString(t *testing.T) {
	assert.Equal(t, "unavailable", rooming.Unavailable.String())
	assert.Equal(t, "before_window", rooming.BeforeWindow.String())
	assert.Equal(t, "in_window", rooming.InWindow.String())
	assert.Equal(t, "after_window", rooming.AfterWindow.String())
}
