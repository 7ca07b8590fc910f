package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/achilles-kt/solace-app/logic"
	"github.com/achilles-kt/solace-app/metering"
)

// ConversationController handles HTTP requests
type ConversationController struct {
	convoLogic *logic.ConversationLogic
}

func NewConversationController(logic *logic.ConversationLogic) *ConversationController {
	return &ConversationController{convoLogic: logic}
}

// OpenConversation handles POST /conversations
func (c *ConversationController) OpenConversation(ctx *gin.Context) {
	type Request struct {
		PersonaID uint64 `json:"persona_id" binding:"required"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	convo, session, err := c.convoLogic.OpenConversation(userID, req.PersonaID)
	if err != nil {
		switch {
		case errors.Is(err, logic.ErrPersonaUnavailable):
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, metering.ErrSessionConflict):
			ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"conversation": convo,
		"session_id":   session.ID(),
	})
}

// CloseConversation handles DELETE /conversations/personas/:persona_id
func (c *ConversationController) CloseConversation(ctx *gin.Context) {
	personaID, err := strconv.ParseUint(ctx.Param("persona_id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid persona ID"})
		return
	}

	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	c.convoLogic.CloseConversation(userID, personaID)
	ctx.JSON(http.StatusOK, gin.H{"status": "terminated"})
}

// GetConversations handles GET /conversations
func (c *ConversationController) GetConversations(ctx *gin.Context) {
	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	convos, err := c.convoLogic.GetConversations(userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, convos)
}
