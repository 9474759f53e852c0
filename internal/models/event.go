package models

import (
	"time"

	"gorm.io/gorm"
)

// Event represents a single edition of the conference. Rooms and
// registrations always reference an event explicitly; there is no
// process-wide "active event".
type Event struct {
	gorm.Model
	Name         string    `gorm:"size:255;not null"`
	RoomingStart time.Time `gorm:"not null"`
	RoomingEnd   time.Time `gorm:"not null"`
}

// Registration links a user to an event and carries the data the rooming
// window policy is computed from.
type Registration struct {
	gorm.Model
	EventID         uint `gorm:"not null;uniqueIndex:idx_registration_event_user"`
	UserID          uint `gorm:"not null;uniqueIndex:idx_registration_event_user"`
	PaymentAccepted bool `gorm:"not null;default:false"`
	// BonusMinutes shifts the user's personal rooming start earlier.
	BonusMinutes int `gorm:"not null;default:0"`

	Event Event `gorm:"foreignKey:EventID"`
	User  User  `gorm:"foreignKey:UserID"`
}
