package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"confmate/backend/internal/database"
	"confmate/backend/internal/models"
)

// StaffMiddleware creates a gin middleware to check for the staff role.
// It must be used AFTER the standard AuthMiddleware.
func StaffMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, exists := c.Get("userID")
		if !exists {
			// This should not happen if AuthMiddleware is used before it
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
			return
		}

		var user models.User
		if err := database.DB.First(&user, userID.(uint)).Error; err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Authenticated user not found"})
			return
		}

		if !user.IsStaff() {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Staff access required"})
			return
		}

		c.Next()
	}
}
