package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"confmate/backend/internal/apperr"
	"confmate/backend/internal/database"
	"confmate/backend/internal/models"
)

// ErrorResponse represents a generic error response.
type ErrorResponse struct {
	Error string `json:"error" example:"An error message"`
}

// respondError maps an application error onto the wire. Policy and
// permission violations are both 403: the caller is authenticated but not
// allowed.
func respondError(c *gin.Context, err error) {
	if appErr, ok := apperr.As(err); ok {
		status := http.StatusInternalServerError
		switch appErr.Kind {
		case apperr.KindValidation:
			status = http.StatusBadRequest
		case apperr.KindForbidden, apperr.KindPermissionDenied:
			status = http.StatusForbidden
		case apperr.KindNotFound:
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": appErr.Message})
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Record not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
}

// currentUser loads the authenticated user set by the auth middleware.
func currentUser(c *gin.Context) (*models.User, bool) {
	userID, exists := c.Get("userID")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return nil, false
	}
	var user models.User
	if err := database.DB.First(&user, userID.(uint)).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authenticated user not found"})
		return nil, false
	}
	return &user, true
}

// pathID parses a numeric path parameter.
func pathID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + name})
		return 0, false
	}
	return uint(id), true
}
