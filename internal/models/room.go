package models

import (
	"crypto/rand"
	"math/big"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"confmate/backend/internal/apperr"
)

// LockTimeout is how long a self-service lock protects a room.
const LockTimeout = 3 * time.Hour

const (
	lockPasswordLength   = 4
	lockPasswordAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// RoomLock is a time-boxed exclusive claim on a room. A lock is active
// only while now < ExpirationDate; an expired lock behaves as absent
// without any cleanup step.
type RoomLock struct {
	gorm.Model
	RoomID         uint      `gorm:"not null;index"`
	UserID         uint      `gorm:"not null"`
	Password       string    `gorm:"size:4;not null"`
	ExpirationDate time.Time `gorm:"not null"`

	User User `gorm:"foreignKey:UserID"`
}

// IsExpired reports whether the lock no longer protects the room.
func (l *RoomLock) IsExpired(now time.Time) bool {
	return !now.Before(l.ExpirationDate)
}

// OpensWith reports whether the supplied password matches. Case-sensitive.
func (l *RoomLock) OpensWith(password string) bool {
	return l.Password == password
}

// OwnedBy reports whether the lock belongs to the given user.
func (l *RoomLock) OwnedBy(userID uint) bool {
	return l.UserID == userID
}

// Room is a shared lodging room offered for one event.
type Room struct {
	gorm.Model
	EventID     uint   `gorm:"not null;index"`
	Name        string `gorm:"size:300;not null"`
	Description string
	// Hidden rooms are excluded from default listings but stay joinable
	// by staff and by their current members.
	Hidden              bool `gorm:"not null;default:false"`
	BedsSingle          int  `gorm:"not null;default:0"`
	BedsDouble          int  `gorm:"not null;default:0"`
	AvailableBedsSingle int  `gorm:"not null;default:0"`
	AvailableBedsDouble int  `gorm:"not null;default:0"`

	Event   Event        `gorm:"foreignKey:EventID"`
	Lock    *RoomLock    `gorm:"foreignKey:RoomID"`
	Members []RoomMember `gorm:"foreignKey:RoomID"`
}

// Capacity is the number of people the room is offered to, counting a
// double bed as two places.
func (r *Room) Capacity() int {
	return r.AvailableBedsSingle + 2*r.AvailableBedsDouble
}

// IsLocked reports whether an active lock protects the room.
func (r *Room) IsLocked(now time.Time) bool {
	return r.Lock != nil && !r.Lock.IsExpired(now)
}

// HasMember reports whether the user is currently in the room. Members
// must be preloaded.
func (r *Room) HasMember(userID uint) bool {
	for _, m := range r.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

// RoomMember links one user to one room. The primary key (event, user)
// guarantees a user holds at most one membership per event.
type RoomMember struct {
	EventID  uint      `gorm:"primaryKey;autoIncrement:false"`
	UserID   uint      `gorm:"primaryKey;autoIncrement:false"`
	RoomID   uint      `gorm:"not null;index"`
	JoinedAt time.Time `gorm:"not null"`

	User User `gorm:"foreignKey:UserID"`
	Room Room `gorm:"foreignKey:RoomID"`
}

// ValidateBeds enforces the bed arithmetic for room create/update.
// A double bed may be offered as a single, consuming double stock.
func ValidateBeds(single, double, availSingle, availDouble, memberCount int) error {
	if single < 0 || double < 0 || availSingle < 0 || availDouble < 0 {
		return apperr.Validationf("bed counts cannot be negative")
	}
	if availSingle > single+double {
		return apperr.Validationf("available single beds cannot exceed real single beds plus double beds")
	}
	doubleAsSingle := availSingle - single
	if doubleAsSingle < 0 {
		doubleAsSingle = 0
	}
	if availDouble > double-doubleAsSingle {
		return apperr.Validationf("available double beds cannot exceed real double beds minus double-as-single beds")
	}
	if availSingle+2*availDouble < memberCount {
		return apperr.Validationf("available beds must cover already joined members")
	}
	return nil
}

func randomLockPassword() string {
	buf := make([]byte, lockPasswordLength)
	for i := range buf {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(lockPasswordAlphabet))))
		if err != nil {
			panic(err)
		}
		buf[i] = lockPasswordAlphabet[n.Int64()]
	}
	return string(buf)
}

// forUpdate locks the selected rows for the duration of the transaction.
// The room row is the serialization point for all rooming operations.
// SQLite (used by the test suite) has a single writer and no row locks.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func lockRoomRow(tx *gorm.DB, roomID uint) (*Room, error) {
	var room Room
	if err := forUpdate(tx).Preload("Lock").First(&room, roomID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperr.NotFoundf("room not found")
		}
		return nil, err
	}
	return &room, nil
}

func memberCount(tx *gorm.DB, roomID uint) (int, error) {
	var count int64
	err := tx.Model(&RoomMember{}).Where("room_id = ?", roomID).Count(&count).Error
	return int(count), err
}

func isMember(tx *gorm.DB, roomID, userID uint) (bool, error) {
	var count int64
	err := tx.Model(&RoomMember{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Count(&count).Error
	return count > 0, err
}

// JoinRoom moves target into the room, leaving any previous room in the
// same event. Must run inside a transaction.
//
// Staff senders bypass the visibility, password and capacity checks; the
// capacity bypass is an intentional override for administrative
// corrections, not a bug.
func JoinRoom(tx *gorm.DB, roomID uint, sender, target *User, password string, now time.Time) (*Room, error) {
	room, err := lockRoomRow(tx, roomID)
	if err != nil {
		return nil, err
	}

	alreadyHere, err := isMember(tx, room.ID, target.ID)
	if err != nil {
		return nil, err
	}

	if room.Hidden && !sender.IsStaff() && !alreadyHere {
		return nil, apperr.Forbiddenf("cannot join %s, room is unavailable", room.Name)
	}

	if room.IsLocked(now) && !sender.IsStaff() && !room.Lock.OpensWith(password) {
		return nil, apperr.Forbiddenf("cannot join %s, room is locked", room.Name)
	}

	if !alreadyHere && !sender.IsStaff() {
		count, err := memberCount(tx, room.ID)
		if err != nil {
			return nil, err
		}
		if count >= room.Capacity() {
			return nil, apperr.Forbiddenf("cannot join %s, room is full", room.Name)
		}
	}

	if err := dropMembership(tx, room, target.ID); err != nil {
		return nil, err
	}

	member := RoomMember{
		EventID:  room.EventID,
		UserID:   target.ID,
		RoomID:   room.ID,
		JoinedAt: now,
	}
	if err := tx.Create(&member).Error; err != nil {
		return nil, err
	}

	return reloadRoom(tx, room.ID)
}

// dropMembership removes the user's current membership in room's event,
// if any, deleting the prior room's lock when the user owns it.
func dropMembership(tx *gorm.DB, room *Room, userID uint) error {
	var prior RoomMember
	err := tx.Where("event_id = ? AND user_id = ?", room.EventID, userID).First(&prior).Error
	if err == gorm.ErrRecordNotFound {
		return nil
	}
	if err != nil {
		return err
	}

	priorRoom := room
	if prior.RoomID != room.ID {
		priorRoom, err = lockRoomRow(tx, prior.RoomID)
		if err != nil {
			return err
		}
	}

	if err := tx.Delete(&RoomMember{}, "event_id = ? AND user_id = ?", room.EventID, userID).Error; err != nil {
		return err
	}

	if priorRoom.Lock != nil && priorRoom.Lock.OwnedBy(userID) {
		if err := tx.Delete(priorRoom.Lock).Error; err != nil {
			return err
		}
		priorRoom.Lock = nil
	}
	return nil
}

// LeaveRoom removes target from the room. Removing someone else requires
// staff. Succeeds as a no-op when target is not a member. When target
// owns the room's lock, the lock goes with them.
func LeaveRoom(tx *gorm.DB, roomID uint, sender, target *User) (*Room, error) {
	if sender.ID != target.ID && !sender.IsStaff() {
		return nil, apperr.PermissionDeniedf("cannot remove other users from a room")
	}

	room, err := lockRoomRow(tx, roomID)
	if err != nil {
		return nil, err
	}

	present, err := isMember(tx, room.ID, target.ID)
	if err != nil {
		return nil, err
	}
	if present {
		if err := tx.Delete(&RoomMember{}, "room_id = ? AND user_id = ?", room.ID, target.ID).Error; err != nil {
			return nil, err
		}
		if room.Lock != nil && room.Lock.OwnedBy(target.ID) {
			if err := tx.Delete(room.Lock).Error; err != nil {
				return nil, err
			}
			room.Lock = nil
		}
	}

	return reloadRoom(tx, room.ID)
}

// SetRoomLock claims the room for owner, replacing any previous lock with
// a fresh random password. Self-service requires membership and uses the
// fixed timeout; staff may preset a lock for anyone with an explicit
// expiration.
func SetRoomLock(tx *gorm.DB, roomID uint, sender, owner *User, expiration *time.Time, now time.Time) (*Room, error) {
	room, err := lockRoomRow(tx, roomID)
	if err != nil {
		return nil, err
	}

	if !sender.IsStaff() {
		present, err := isMember(tx, room.ID, owner.ID)
		if err != nil {
			return nil, err
		}
		if !present {
			return nil, apperr.PermissionDeniedf("cannot lock %s, user must first join the room", room.Name)
		}
		if room.Hidden {
			return nil, apperr.Forbiddenf("cannot lock %s, room is unavailable", room.Name)
		}
		if room.IsLocked(now) {
			return nil, apperr.Forbiddenf("cannot lock %s, room has already been locked", room.Name)
		}
		expiration = nil
	}

	expiresAt := now.Add(LockTimeout)
	if expiration != nil {
		expiresAt = *expiration
	}

	if room.Lock != nil {
		if err := tx.Delete(room.Lock).Error; err != nil {
			return nil, err
		}
	}

	lock := RoomLock{
		RoomID:         room.ID,
		UserID:         owner.ID,
		Password:       randomLockPassword(),
		ExpirationDate: expiresAt,
	}
	if err := tx.Create(&lock).Error; err != nil {
		return nil, err
	}

	return reloadRoom(tx, room.ID)
}

// UnlockRoom clears the room's active lock. Only the owner or staff may
// unlock; succeeds as a no-op when the room is not locked.
func UnlockRoom(tx *gorm.DB, roomID uint, sender *User, now time.Time) (*Room, error) {
	room, err := lockRoomRow(tx, roomID)
	if err != nil {
		return nil, err
	}

	if room.IsLocked(now) {
		if !room.Lock.OwnedBy(sender.ID) && !sender.IsStaff() {
			return nil, apperr.PermissionDeniedf("cannot unlock %s, no permission to do this", room.Name)
		}
		if err := tx.Delete(room.Lock).Error; err != nil {
			return nil, err
		}
		room.Lock = nil
	}

	return reloadRoom(tx, room.ID)
}

// UpdateRoom applies a mutation to the room and persists it. Runs under
// the room-row lock and re-counts members there, so a join committing
// between the caller's read and this write cannot leave the room over
// capacity. Must run inside a transaction.
func UpdateRoom(tx *gorm.DB, roomID uint, apply func(room *Room)) (*Room, error) {
	room, err := lockRoomRow(tx, roomID)
	if err != nil {
		return nil, err
	}

	apply(room)

	count, err := memberCount(tx, room.ID)
	if err != nil {
		return nil, err
	}
	if err := ValidateBeds(room.BedsSingle, room.BedsDouble,
		room.AvailableBedsSingle, room.AvailableBedsDouble, count); err != nil {
		return nil, err
	}

	if err := tx.Omit(clause.Associations).Save(room).Error; err != nil {
		return nil, err
	}

	return reloadRoom(tx, room.ID)
}

// DeleteRoom removes the room together with its memberships and lock.
// Staff-only; the handler enforces the role.
func DeleteRoom(tx *gorm.DB, roomID uint) error {
	room, err := lockRoomRow(tx, roomID)
	if err != nil {
		return err
	}
	if err := tx.Delete(&RoomMember{}, "room_id = ?", room.ID).Error; err != nil {
		return err
	}
	if room.Lock != nil {
		if err := tx.Delete(room.Lock).Error; err != nil {
			return err
		}
	}
	return tx.Delete(room).Error
}

// reloadRoom returns the room with lock and members freshly loaded.
func reloadRoom(tx *gorm.DB, roomID uint) (*Room, error) {
	var room Room
	err := tx.Preload("Lock.User").Preload("Members.User").First(&room, roomID).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}
