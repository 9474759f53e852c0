package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"confmate/backend/internal/database"
	"confmate/backend/internal/hub"
	"confmate/backend/internal/models"
)

// LockRoomInput identifies the lock owner. The expiration is honored only
// for staff callers; self-service locks always get the fixed timeout.
type LockRoomInput struct {
	User       uint       `json:"user" binding:"required"`
	Expiration *time.Time `json:"expiration"`
}

// LockRoom godoc
// @Summary      Lock a room
// @Description  Claims the room for the given user with a fresh random password. The password is returned once, in this response.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int           true "Room ID"
// @Param        input body LockRoomInput true "Lock Info"
// @Success      201  {object}  RoomResponse
// @Failure      400  {object}  ErrorResponse "Malformed or missing user"
// @Failure      403  {object}  ErrorResponse "Policy violation"
// @Failure      404  {object}  ErrorResponse "Room not found"
// @Router       /rooms/{id}/lock [post]
func LockRoom(c *gin.Context) {
	sender, ok := currentUser(c)
	if !ok {
		return
	}

	var input LockRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, owner, ok := roomAndTarget(c, input.User)
	if !ok {
		return
	}

	now := time.Now()
	if err := checkRoomingWindow(sender, owner, room.EventID, now); err != nil {
		respondError(c, err)
		return
	}

	var updated *models.Room
	err := database.Transaction(database.DB, func(tx *gorm.DB) error {
		var txErr error
		updated, txErr = models.SetRoomLock(tx, room.ID, sender, owner, input.Expiration, now)
		return txErr
	})
	if err != nil {
		respondError(c, err)
		return
	}

	invalidateRooms(room.EventID)
	hub.GlobalHub.Broadcast(room.EventID, hub.Change{
		Type:    hub.ChangeLocked,
		Payload: gin.H{"room": room.ID, "user": owner.ID},
	})
	c.JSON(http.StatusCreated, newRoomResponseWithLockPassword(*updated, sender, now))
}

// UnlockRoom godoc
// @Summary      Unlock a room
// @Description  Clears the room's lock. Only the lock owner or staff may unlock; succeeds as a no-op when the room is not locked.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Success      200  {object}  RoomResponse
// @Failure      403  {object}  ErrorResponse "Policy violation"
// @Failure      404  {object}  ErrorResponse "Room not found"
// @Router       /rooms/{id}/lock [delete]
func UnlockRoom(c *gin.Context) {
	sender, ok := currentUser(c)
	if !ok {
		return
	}
	roomID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var room models.Room
	if err := database.DB.First(&room, roomID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	now := time.Now()
	if err := checkRoomingWindow(sender, sender, room.EventID, now); err != nil {
		respondError(c, err)
		return
	}

	var updated *models.Room
	err := database.Transaction(database.DB, func(tx *gorm.DB) error {
		var txErr error
		updated, txErr = models.UnlockRoom(tx, room.ID, sender, now)
		return txErr
	})
	if err != nil {
		respondError(c, err)
		return
	}

	invalidateRooms(room.EventID)
	hub.GlobalHub.Broadcast(room.EventID, hub.Change{
		Type:    hub.ChangeUnlocked,
		Payload: gin.H{"room": room.ID},
	})
	c.JSON(http.StatusOK, newRoomResponse(*updated, sender, now))
}
