package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/achilles-kt/solace-app/logic"
)

// UserController handles HTTP requests
type UserController struct {
	userLogic *logic.UserLogic
}

func NewUserController(logic *logic.UserLogic) *UserController {
	return &UserController{userLogic: logic}
}

// LoginAnonymously handles POST /auth/anonymous
func (c *UserController) LoginAnonymously(ctx *gin.Context) {
	user, token, expireAt, err := c.userLogic.LoginAnonymously()
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"user":      user,
		"token":     token,
		"expire_at": expireAt,
	})
}

// GetUser handles GET /user
func (c *UserController) GetUser(ctx *gin.Context) {
	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	// A valid token may outlive the in-memory account, e.g. after a
	// restart. Re-initialize before reading; it is idempotent.
	if _, err := c.userLogic.Resume(userID); err != nil {
		ctx.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}

	user, err := c.userLogic.GetUser(userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, user)
}

// Logout handles POST /auth/logout
func (c *UserController) Logout(ctx *gin.Context) {
	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	c.userLogic.Logout(userID)
	ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
}
