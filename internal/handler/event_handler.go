package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"confmate/backend/internal/database"
	"confmate/backend/internal/models"
)

// region --- DTOs ---

type EventInput struct {
	Name         string    `json:"name" binding:"required"`
	RoomingStart time.Time `json:"rooming_start" binding:"required"`
	RoomingEnd   time.Time `json:"rooming_end" binding:"required"`
}

type EventResponse struct {
	ID           uint      `json:"id"`
	Name         string    `json:"name"`
	RoomingStart time.Time `json:"rooming_start"`
	RoomingEnd   time.Time `json:"rooming_end"`
}

func newEventResponse(event models.Event) EventResponse {
	return EventResponse{
		ID:           event.ID,
		Name:         event.Name,
		RoomingStart: event.RoomingStart,
		RoomingEnd:   event.RoomingEnd,
	}
}

// endregion

// CreateEvent godoc
// @Summary      Create an event
// @Description  Creates a new conference event with its rooming window.
// @Tags         events
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        input body EventInput true "Event Info"
// @Success      201  {object}  EventResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Staff access required"
// @Router       /events [post]
func CreateEvent(c *gin.Context) {
	var input EventInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if !input.RoomingEnd.After(input.RoomingStart) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Rooming end must be after rooming start"})
		return
	}

	event := models.Event{
		Name:         input.Name,
		RoomingStart: input.RoomingStart,
		RoomingEnd:   input.RoomingEnd,
	}
	if err := database.DB.Create(&event).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create event"})
		return
	}

	c.JSON(http.StatusCreated, newEventResponse(event))
}

// ListEvents godoc
// @Summary      List events
// @Description  Gets a paginated list of events.
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        page  query int false "Page number" default(1)
// @Param        limit query int false "Items per page" default(10)
// @Success      200  {object}  Page[EventResponse]
// @Router       /events [get]
func ListEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	paginated, err := Paginate[models.Event](database.DB.Order("rooming_start DESC"), page, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list events"})
		return
	}

	responses := make([]EventResponse, 0, len(paginated.Data))
	for _, event := range paginated.Data {
		responses = append(responses, newEventResponse(event))
	}
	c.JSON(http.StatusOK, Page[EventResponse]{Data: responses, Meta: paginated.Meta})
}

// GetEvent godoc
// @Summary      Get an event
// @Description  Gets a single event by ID.
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Event ID"
// @Success      200  {object}  EventResponse
// @Failure      404  {object}  ErrorResponse "Event not found"
// @Router       /events/{id} [get]
func GetEvent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var event models.Event
	if err := database.DB.First(&event, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	c.JSON(http.StatusOK, newEventResponse(event))
}
