package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"confmate/backend/internal/database"
	"confmate/backend/internal/models"
	"confmate/backend/internal/rooming"
)

// region --- DTOs ---

// RegistrationUpdateInput is the staff-only partial update of a
// registration. Payment acceptance opens the user's rooming window; the
// bonus shifts its start earlier.
type RegistrationUpdateInput struct {
	PaymentAccepted *bool `json:"payment_accepted"`
	BonusMinutes    *int  `json:"bonus_minutes"`
}

type RegistrationResponse struct {
	EventID         uint               `json:"event_id"`
	User            PublicUserResponse `json:"user"`
	PaymentAccepted bool               `json:"payment_accepted"`
	BonusMinutes    int                `json:"bonus_minutes"`
	RoomingStatus   string             `json:"rooming_status"`
	PersonalStart   *time.Time         `json:"personal_rooming_start,omitempty"`
}

func newRegistrationResponse(reg models.Registration, event models.Event, now time.Time) RegistrationResponse {
	resp := RegistrationResponse{
		EventID:         reg.EventID,
		User:            newPublicUserResponse(reg.User),
		PaymentAccepted: reg.PaymentAccepted,
		BonusMinutes:    reg.BonusMinutes,
		RoomingStatus:   rooming.Eligibility(&reg, &event, now).String(),
	}
	if reg.PaymentAccepted {
		start := rooming.PersonalStart(event.RoomingStart, reg.BonusMinutes)
		resp.PersonalStart = &start
	}
	return resp
}

// endregion

// CreateRegistration godoc
// @Summary      Register for an event
// @Description  Registers the authenticated user for the event. Rooming
// @Description  stays unavailable until staff accept the payment.
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Event ID"
// @Success      201  {object}  RegistrationResponse
// @Failure      404  {object}  ErrorResponse "Event not found"
// @Failure      409  {object}  ErrorResponse "Already registered"
// @Router       /events/{id}/registrations [post]
func CreateRegistration(c *gin.Context) {
	user, ok := currentUser(c)
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

	var existing models.Registration
	if err := database.DB.Where("event_id = ? AND user_id = ?", event.ID, user.ID).First(&existing).Error; err == nil {
		c.JSON(http.StatusConflict, gin.H{"error": "Already registered for this event"})
		return
	}

	reg := models.Registration{EventID: event.ID, UserID: user.ID}
	if err := database.DB.Create(&reg).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create registration"})
		return
	}
	reg.User = *user

	c.JSON(http.StatusCreated, newRegistrationResponse(reg, event, time.Now()))
}

// GetMyRegistration godoc
// @Summary      Get own registration
// @Description  Returns the caller's registration and rooming status for the event.
// @Tags         registrations
// @Produce      json
// @Security     BearerAuth
// @Param        id path int true "Event ID"
// @Success      200  {object}  RegistrationResponse
// @Failure      404  {object}  ErrorResponse "Not registered"
// @Router       /events/{id}/registrations/me [get]
func GetMyRegistration(c *gin.Context) {
	user, ok := currentUser(c)
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

	var reg models.Registration
	err := database.DB.Preload("User").
		Where("event_id = ? AND user_id = ?", event.ID, user.ID).First(&reg).Error
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Not registered for this event"})
		return
	}

	c.JSON(http.StatusOK, newRegistrationResponse(reg, event, time.Now()))
}

// UpdateRegistration godoc
// @Summary      Update a registration
// @Description  Accepts payment or grants bonus minutes for a user's registration.
// @Tags         registrations
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id     path int true "Event ID"
// @Param        userID path int true "User ID"
// @Param        input  body RegistrationUpdateInput true "Fields to update"
// @Success      200  {object}  RegistrationResponse
// @Failure      400  {object}  ErrorResponse
// @Failure      403  {object}  ErrorResponse "Staff access required"
// @Failure      404  {object}  ErrorResponse "Registration not found"
// @Router       /events/{id}/registrations/{userID} [put]
func UpdateRegistration(c *gin.Context) {
	eventID, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userID")
	if !ok {
		return
	}

	var input RegistrationUpdateInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.BonusMinutes != nil &&
		(*input.BonusMinutes < rooming.MinBonusMinutes || *input.BonusMinutes > rooming.MaxBonusMinutes) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Bonus minutes out of range"})
		return
	}

	var event models.Event
	if err := database.DB.First(&event, eventID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Event not found"})
		return
	}

	var reg models.Registration
	err := database.DB.Preload("User").
		Where("event_id = ? AND user_id = ?", event.ID, userID).First(&reg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Registration not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	if input.PaymentAccepted != nil {
		reg.PaymentAccepted = *input.PaymentAccepted
	}
	if input.BonusMinutes != nil {
		reg.BonusMinutes = *input.BonusMinutes
	}
	if err := database.DB.Save(&reg).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update registration"})
		return
	}

	c.JSON(http.StatusOK, newRegistrationResponse(reg, event, time.Now()))
}
