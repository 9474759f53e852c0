package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"confmate/backend/internal/apperr"
	"confmate/backend/internal/database"
	"confmate/backend/internal/hub"
	"confmate/backend/internal/models"
	"confmate/backend/internal/rooming"
)

// region --- DTOs ---

// JoinRoomInput identifies who joins and optionally unlocks a locked room.
type JoinRoomInput struct {
	User     uint   `json:"user" binding:"required"`
	Password string `json:"password"`
}

// LeaveRoomInput identifies who leaves.
type LeaveRoomInput struct {
	User uint `json:"user" binding:"required"`
}

// endregion

// checkRoomingWindow enforces the target user's personal rooming window.
// Staff senders bypass it entirely.
func checkRoomingWindow(sender, target *models.User, eventID uint, now time.Time) error {
	if sender.IsStaff() {
		return nil
	}

	var event models.Event
	if err := database.DB.First(&event, eventID).Error; err != nil {
		return err
	}

	var reg models.Registration
	regPtr := &reg
	err := database.DB.Where("event_id = ? AND user_id = ?", eventID, target.ID).First(&reg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		regPtr = nil
	} else if err != nil {
		return err
	}

	switch rooming.Eligibility(regPtr, &event, now) {
	case rooming.BeforeWindow:
		return apperr.Forbiddenf("rooming for user has not started yet")
	case rooming.AfterWindow:
		return apperr.Forbiddenf("rooming has already ended")
	case rooming.Unavailable:
		return apperr.Forbiddenf("rooming is unavailable for user")
	}
	return nil
}

// roomAndTarget resolves the room from the path and the target user from
// the body. A missing room is 404; a missing user is 400, since the id
// came from the request body.
func roomAndTarget(c *gin.Context, userID uint) (*models.Room, *models.User, bool) {
	roomID, ok := pathID(c, "id")
	if !ok {
		return nil, nil, false
	}

	var room models.Room
	if err := database.DB.First(&room, roomID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return nil, nil, false
	}

	var target models.User
	if err := database.DB.First(&target, userID).Error; err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Specified user does not exist"})
		return nil, nil, false
	}

	return &room, &target, true
}

// JoinRoom godoc
// @Summary      Join a room
// @Description  Puts the given user into the room, leaving any previous room of the same event. A locked room needs the lock password.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int           true "Room ID"
// @Param        input body JoinRoomInput true "Join Info"
// @Success      201  {object}  RoomResponse
// @Failure      400  {object}  ErrorResponse "Malformed or missing user"
// @Failure      403  {object}  ErrorResponse "Policy violation"
// @Failure      404  {object}  ErrorResponse "Room not found"
// @Router       /rooms/{id}/member [post]
func JoinRoom(c *gin.Context) {
	sender, ok := currentUser(c)
	if !ok {
		return
	}

	var input JoinRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, target, ok := roomAndTarget(c, input.User)
	if !ok {
		return
	}

	now := time.Now()
	if err := checkRoomingWindow(sender, target, room.EventID, now); err != nil {
		respondError(c, err)
		return
	}

	var updated *models.Room
	err := database.Transaction(database.DB, func(tx *gorm.DB) error {
		var txErr error
		updated, txErr = models.JoinRoom(tx, room.ID, sender, target, input.Password, now)
		return txErr
	})
	if err != nil {
		respondError(c, err)
		return
	}

	invalidateRooms(room.EventID)
	hub.GlobalHub.Broadcast(room.EventID, hub.Change{
		Type:    hub.ChangeJoined,
		Payload: gin.H{"room": room.ID, "user": target.ID},
	})
	c.JSON(http.StatusCreated, newRoomResponse(*updated, sender, now))
}

// LeaveRoom godoc
// @Summary      Leave a room
// @Description  Removes the given user from the room. Non-staff may only remove themselves; leaving is never blocked by the rooming window.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int            true "Room ID"
// @Param        input body LeaveRoomInput true "Leave Info"
// @Success      200  {object}  RoomResponse
// @Failure      400  {object}  ErrorResponse "Malformed or missing user"
// @Failure      403  {object}  ErrorResponse "Permission denied"
// @Failure      404  {object}  ErrorResponse "Room not found"
// @Router       /rooms/{id}/member [delete]
func LeaveRoom(c *gin.Context) {
	sender, ok := currentUser(c)
	if !ok {
		return
	}

	var input LeaveRoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, target, ok := roomAndTarget(c, input.User)
	if !ok {
		return
	}

	var updated *models.Room
	err := database.Transaction(database.DB, func(tx *gorm.DB) error {
		var txErr error
		updated, txErr = models.LeaveRoom(tx, room.ID, sender, target)
		return txErr
	})
	if err != nil {
		respondError(c, err)
		return
	}

	invalidateRooms(room.EventID)
	hub.GlobalHub.Broadcast(room.EventID, hub.Change{
		Type:    hub.ChangeLeft,
		Payload: gin.H{"room": room.ID, "user": target.ID},
	})
	c.JSON(http.StatusOK, newRoomResponse(*updated, sender, time.Now()))
}
