package controller

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/achilles-kt/solace-app/ledger"
	"github.com/achilles-kt/solace-app/logic"
	"github.com/achilles-kt/solace-app/metering"
)

// MessageController handles HTTP requests
type MessageController struct {
	messageLogic *logic.MessageLogic
}

func NewMessageController(logic *logic.MessageLogic) *MessageController {
	return &MessageController{messageLogic: logic}
}

// AddMessage handles POST /conversations/:id/messages
func (c *MessageController) AddMessage(ctx *gin.Context) {
	type Request struct {
		Ask string `json:"ask" binding:"required"`
	}
	var req Request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	convoID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	// Stream response to client using Server-Sent Events
	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")

	msg, err := c.messageLogic.SendMessage(ctx.Request.Context(), userID, convoID, req.Ask, func(content string) {
		ctx.SSEvent("message", content)
		ctx.Writer.Flush()
	})
	if err != nil {
		switch {
		case errors.Is(err, metering.ErrInsufficientCoins):
			ctx.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
		case errors.Is(err, logic.ErrNoActiveSession), errors.Is(err, metering.ErrSessionTerminated):
			ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.Is(err, logic.ErrNotConversationOwner):
			ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, ledger.ErrUnknownAccount):
			// The identity lost its account mid-session; sign in again
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	ctx.SSEvent("done", msg)
	ctx.Writer.Flush()
}

// GetMessages handles GET /conversations/:id/messages
func (c *MessageController) GetMessages(ctx *gin.Context) {
	convoID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation ID"})
		return
	}

	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	messages, err := c.messageLogic.GetConversationMessages(userID, convoID)
	if err != nil {
		if errors.Is(err, logic.ErrNotConversationOwner) {
			ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, messages)
}

// UnlockMessage handles POST /messages/:id/unlock
func (c *MessageController) UnlockMessage(ctx *gin.Context) {
	messageID, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid message ID"})
		return
	}

	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	msg, err := c.messageLogic.UnlockMessage(userID, messageID)
	if err != nil {
		switch {
		case errors.Is(err, metering.ErrInsufficientCoins):
			ctx.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
		case errors.Is(err, logic.ErrNotConversationOwner):
			ctx.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		case errors.Is(err, logic.ErrMessageNotLocked):
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, ledger.ErrUnknownAccount):
			ctx.JSON(http.StatusUnauthorized, gin.H{"error": err.Error()})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	ctx.JSON(http.StatusOK, msg)
}
