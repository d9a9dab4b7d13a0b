package handlers

import (
	"kaamsetu_backend/internal/models"

	"github.com/gin-gonic/gin"
)

// currentUserID reads the authenticated user set by the auth middleware.
func currentUserID(c *gin.Context) string {
	return c.GetString("userID")
}

func currentRole(c *gin.Context) models.UserRole {
	roleVal, exists := c.Get("role")
	if !exists {
		return ""
	}
	switch role := roleVal.(type) {
	case models.UserRole:
		return role
	case string:
		return models.UserRole(role)
	default:
		return ""
	}
}
