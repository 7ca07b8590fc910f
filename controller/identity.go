package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// extractUserID reads the device identity the auth middleware validated.
func extractUserID(c *gin.Context) (string, error) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "identity missing from context"})
		return "", errors.New("identity missing from context")
	}
	return userID, nil
}
