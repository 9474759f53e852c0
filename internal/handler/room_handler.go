package handler

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"confmate/backend/internal/cache"
	"confmate/backend/internal/database"
	"confmate/backend/internal/hub"
	"confmate/backend/internal/models"
)

// region --- DTOs ---

// RoomInput defines the structure for room creation.
type RoomInput struct {
	Name                string `json:"name" binding:"required"`
	Description         string `json:"description"`
	Hidden              bool   `json:"hidden"`
	BedsSingle          int    `json:"beds_single"`
	BedsDouble          int    `json:"beds_double"`
	AvailableBedsSingle int    `json:"available_beds_single"`
	AvailableBedsDouble int    `json:"available_beds_double"`
}

// RoomUpdateInput allows partial updates; nil fields are left unchanged.
type RoomUpdateInput struct {
	Name                *string `json:"name"`
	Description         *string `json:"description"`
	Hidden              *bool   `json:"hidden"`
	BedsSingle          *int    `json:"beds_single"`
	BedsDouble          *int    `json:"beds_double"`
	AvailableBedsSingle *int    `json:"available_beds_single"`
	AvailableBedsDouble *int    `json:"available_beds_double"`
}

type RoomLockView struct {
	User           PublicUserResponse `json:"user"`
	Password       *string            `json:"password,omitempty"`
	ExpirationDate time.Time          `json:"expiration_date"`
}

type RoomMemberView struct {
	User     PublicUserResponse `json:"user"`
	JoinedAt time.Time          `json:"joined_at"`
}

type RoomResponse struct {
	ID                  uint             `json:"id"`
	EventID             uint             `json:"event_id"`
	Name                string           `json:"name"`
	Description         string           `json:"description"`
	Hidden              bool             `json:"hidden"`
	BedsSingle          int              `json:"beds_single"`
	BedsDouble          int              `json:"beds_double"`
	AvailableBedsSingle int              `json:"available_beds_single"`
	AvailableBedsDouble int              `json:"available_beds_double"`
	Capacity            int              `json:"capacity"`
	FreePlaces          int              `json:"free_places"`
	Lock                *RoomLockView    `json:"lock,omitempty"`
	Members             []RoomMemberView `json:"members"`
}

// newRoomResponse renders a room for a viewer. An expired lock is not
// shown at all; the lock password only goes to its owner or staff.
func newRoomResponse(room models.Room, viewer *models.User, now time.Time) RoomResponse {
	return buildRoomResponse(room, viewer, now, false)
}

// newRoomResponseWithLockPassword always carries the lock password. Used
// only for the lock-create response, which is the owner's one chance to
// read the generated password.
func newRoomResponseWithLockPassword(room models.Room, viewer *models.User, now time.Time) RoomResponse {
	return buildRoomResponse(room, viewer, now, true)
}

func buildRoomResponse(room models.Room, viewer *models.User, now time.Time, showPassword bool) RoomResponse {
	members := make([]RoomMemberView, 0, len(room.Members))
	for _, member := range room.Members {
		members = append(members, RoomMemberView{
			User:     newPublicUserResponse(member.User),
			JoinedAt: member.JoinedAt,
		})
	}

	resp := RoomResponse{
		ID:                  room.ID,
		EventID:             room.EventID,
		Name:                room.Name,
		Description:         room.Description,
		Hidden:              room.Hidden,
		BedsSingle:          room.BedsSingle,
		BedsDouble:          room.BedsDouble,
		AvailableBedsSingle: room.AvailableBedsSingle,
		AvailableBedsDouble: room.AvailableBedsDouble,
		Capacity:            room.Capacity(),
		FreePlaces:          room.Capacity() - len(room.Members),
		Members:             members,
	}

	if room.IsLocked(now) {
		lockView := RoomLockView{
			User:           newPublicUserResponse(room.Lock.User),
			ExpirationDate: room.Lock.ExpirationDate,
		}
		if showPassword || viewer.IsStaff() || room.Lock.OwnedBy(viewer.ID) {
			password := room.Lock.Password
			lockView.Password = &password
		}
		resp.Lock = &lockView
	}

	return resp
}

// endregion

func loadEventRooms(eventID uint) ([]models.Room, error) {
	var rooms []models.Room
	ctx := context.Background()
	hit, err := cache.GetRoomList(ctx, eventID, &rooms)
	if err == nil && hit {
		return rooms, nil
	}

	err = database.DB.
		Preload("Lock.User").Preload("Members.User").
		Where("event_id = ?", eventID).
		Order("name").
		Find(&rooms).Error
	if err != nil {
		return nil, err
	}

	// Best effort; a failed cache write only costs the next reader a query.
	_ = cache.SetRoomList(ctx, eventID, rooms)
	return rooms, nil
}

func invalidateRooms(eventID uint) {
	_ = cache.InvalidateRoomList(context.Background(), eventID)
}

// ListRooms godoc
// @Summary      List rooms for an event
// @Description  Gets the rooms of an event. Hidden rooms appear only for staff and their own members.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Event ID"
// @Success      200  {array}   RoomResponse
// @Failure      404  {object}  ErrorResponse "Event not found"
// @Router       /events/{id}/rooms [get]
func ListRooms(c *gin.Context) {
	viewer, ok := currentUser(c)
	if !ok {
		return
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var event models.Event
	if err := database.DB.First(&event, eventID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	rooms, err := loadEventRooms(event.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list rooms"})
		return
	}

	now := time.Now()
	responses := make([]RoomResponse, 0, len(rooms))
	for _, room := range rooms {
		if room.Hidden && !viewer.IsStaff() && !room.HasMember(viewer.ID) {
			continue
		}
		responses = append(responses, newRoomResponse(room, viewer, now))
	}

	c.JSON(http.StatusOK, responses)
}

// visibleRoom loads a room the viewer is allowed to see. Hidden rooms are
// absent for everyone but staff and their own members.
func visibleRoom(c *gin.Context, viewer *models.User) (*models.Room, bool) {
	id, ok := pathID(c, "id")
	if !ok {
		return nil, false
	}

	var room models.Room
	err := database.DB.Preload("Lock.User").Preload("Members.User").First(&room, id).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return nil, false
	}
	if room.Hidden && !viewer.IsStaff() && !room.HasMember(viewer.ID) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return nil, false
	}
	return &room, true
}

// GetRoom godoc
// @Summary      Get a room
// @Description  Gets full details for a single room.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Success      200  {object}  RoomResponse
// @Failure      404  {object}  ErrorResponse "Room not found"
// @Router       /rooms/{id} [get]
func GetRoom(c *gin.Context) {
	viewer, ok := currentUser(c)
	if !ok {
		return
	}
	room, ok := visibleRoom(c, viewer)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newRoomResponse(*room, viewer, time.Now()))
}

// CreateRoom godoc
// @Summary      Create a room
// @Description  Creates a room for the event. The bed arithmetic must hold.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int       true "Event ID"
// @Param        input body RoomInput true "Room Info"
// @Success      201  {object}  RoomResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Staff access required"
// @Failure      404  {object}  ErrorResponse "Event not found"
// @Router       /events/{id}/rooms [post]
func CreateRoom(c *gin.Context) {
	viewer, ok := currentUser(c)
	if !ok {
		return
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var event models.Event
	if err := database.DB.First(&event, eventID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	var input RoomInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := models.ValidateBeds(input.BedsSingle, input.BedsDouble,
		input.AvailableBedsSingle, input.AvailableBedsDouble, 0); err != nil {
		respondError(c, err)
		return
	}

	room := models.Room{
		EventID:             event.ID,
		Name:                input.Name,
		Description:         input.Description,
		Hidden:              input.Hidden,
		BedsSingle:          input.BedsSingle,
		BedsDouble:          input.BedsDouble,
		AvailableBedsSingle: input.AvailableBedsSingle,
		AvailableBedsDouble: input.AvailableBedsDouble,
	}
	if err := database.DB.Create(&room).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create room"})
		return
	}

	invalidateRooms(event.ID)
	c.JSON(http.StatusCreated, newRoomResponse(room, viewer, time.Now()))
}

// UpdateRoom godoc
// @Summary      Update a room
// @Description  Partially updates a room. Available beds may not drop below the current member count.
// @Tags         rooms
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path int             true "Room ID"
// @Param        input body RoomUpdateInput true "Fields to update"
// @Success      200  {object}  RoomResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Staff access required"
// @Failure      404  {object}  ErrorResponse "Room not found"
// @Router       /rooms/{id} [put]
func UpdateRoom(c *gin.Context) {
	viewer, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var input RoomUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The bed validation has to see the member count as of the write, so
	// the whole read-validate-save runs under the room-row lock.
	var room *models.Room
	err := database.Transaction(database.DB, func(tx *gorm.DB) error {
		var txErr error
		room, txErr = models.UpdateRoom(tx, id, func(room *models.Room) {
			if input.Name != nil {
				room.Name = *input.Name
			}
			if input.Description != nil {
				room.Description = *input.Description
			}
			if input.Hidden != nil {
				room.Hidden = *input.Hidden
			}
			if input.BedsSingle != nil {
				room.BedsSingle = *input.BedsSingle
			}
			if input.BedsDouble != nil {
				room.BedsDouble = *input.BedsDouble
			}
			if input.AvailableBedsSingle != nil {
				room.AvailableBedsSingle = *input.AvailableBedsSingle
			}
			if input.AvailableBedsDouble != nil {
				room.AvailableBedsDouble = *input.AvailableBedsDouble
			}
		})
		return txErr
	})
	if err != nil {
		respondError(c, err)
		return
	}

	invalidateRooms(room.EventID)
	hub.GlobalHub.Broadcast(room.EventID, hub.Change{Type: hub.ChangeUpdated, Payload: gin.H{"room": room.ID}})
	c.JSON(http.StatusOK, newRoomResponse(*room, viewer, time.Now()))
}

// DeleteRoom godoc
// @Summary      Delete a room
// @Description  Deletes a room together with its memberships and lock.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Success      200  {object}  map[string]string "{"message": "Room deleted"}"
// @Failure      403  {object}  ErrorResponse "Staff access required"
// @Failure      404  {object}  ErrorResponse "Room not found"
// @Router       /rooms/{id} [delete]
func DeleteRoom(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var room models.Room
	if err := database.DB.First(&room, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	err := database.Transaction(database.DB, func(tx *gorm.DB) error {
		return models.DeleteRoom(tx, room.ID)
	})
	if err != nil {
		respondError(c, err)
		return
	}

	invalidateRooms(room.EventID)
	hub.GlobalHub.Broadcast(room.EventID, hub.Change{Type: hub.ChangeUpdated, Payload: gin.H{"room": room.ID}})
	c.JSON(http.StatusOK, gin.H{"message": "Room deleted"})
}

func setRoomHidden(c *gin.Context, hidden bool) {
	viewer, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var room models.Room
	if err := database.DB.Preload("Lock.User").Preload("Members.User").First(&room, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Room not found"})
		return
	}

	room.Hidden = hidden
	if err := database.DB.Model(&room).Update("hidden", hidden).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update room"})
		return
	}

	invalidateRooms(room.EventID)
	hub.GlobalHub.Broadcast(room.EventID, hub.Change{Type: hub.ChangeUpdated, Payload: gin.H{"room": room.ID}})
	c.JSON(http.StatusOK, newRoomResponse(room, viewer, time.Now()))
}

// HideRoom godoc
// @Summary      Hide a room
// @Description  Removes the room from default listings.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Success      200  {object}  RoomResponse
// @Failure      403  {object}  ErrorResponse "Staff access required"
// @Failure      404  {object}  ErrorResponse "Room not found"
// @Router       /rooms/{id}/hidden [post]
func HideRoom(c *gin.Context) {
	setRoomHidden(c, true)
}

// UnhideRoom godoc
// @Summary      Unhide a room
// @Description  Returns the room to default listings.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Success      200  {object}  RoomResponse
// @Failure      403  {object}  ErrorResponse "Staff access required"
// @Failure      404  {object}  ErrorResponse "Room not found"
// @Router       /rooms/{id}/hidden [delete]
func UnhideRoom(c *gin.Context) {
	setRoomHidden(c, false)
}

// MyRoom godoc
// @Summary      Get own room
// @Description  Returns the caller's current room for the event, or 204 when not in any.
// @Tags         rooms
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Event ID"
// @Success      200  {object}  RoomResponse
// @Success      204  "Not in any room"
// @Router       /events/{id}/rooms/mine [get]
func MyRoom(c *gin.Context) {
	viewer, ok := currentUser(c)
	if !ok {
		return
	}
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var member models.RoomMember
	err := database.DB.Where("event_id = ? AND user_id = ?", eventID, viewer.ID).First(&member).Error
	if err != nil {
		c.Status(http.StatusNoContent)
		return
	}

	var room models.Room
	if err := database.DB.Preload("Lock.User").Preload("Members.User").First(&room, member.RoomID).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load room"})
		return
	}

	c.JSON(http.StatusOK, newRoomResponse(room, viewer, time.Now()))
}

// StreamRooms godoc
// @Summary      Watch the rooms board
// @Description  Streams join/leave/lock changes for the event as server-sent events.
// @Tags         rooms
// @Produce      text/event-stream
// @Security     BearerAuth
// @Param        id path int true "Event ID"
// @Success      200 "SSE stream"
// @Failure      404  {object}  ErrorResponse "Event not found"
// @Router       /events/{id}/rooms/stream [get]
func StreamRooms(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var event models.Event
	if err := database.DB.First(&event, eventID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	client := make(hub.Client, 8)
	hub.GlobalHub.Subscribe(event.ID, client)
	defer hub.GlobalHub.Unsubscribe(event.ID, client)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, open := <-client:
			if !open {
				return false
			}
			c.SSEvent("message", string(msg))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
