package models

import "gorm.io/gorm"

// User roles.
const (
	RoleUser  = "user"
	RoleStaff = "staff"
)

// User represents a registered account.
type User struct {
	gorm.Model
	FirstName    string `gorm:"size:255;not null"`
	LastName     string `gorm:"size:255;not null"`
	Email        string `gorm:"size:255;unique;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Role         string `gorm:"size:50;not null;default:'user';index"`
}

// IsStaff reports whether the user holds the staff role. Staff bypass
// window, visibility, capacity and ownership checks.
func (u *User) IsStaff() bool {
	return u.Role == RoleStaff
}
