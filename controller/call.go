package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/achilles-kt/solace-app/logic"
	"github.com/achilles-kt/solace-app/metering"
)

// CallController handles HTTP requests
type CallController struct {
	callLogic *logic.CallLogic
}

func NewCallController(logic *logic.CallLogic) *CallController {
	return &CallController{callLogic: logic}
}

// StartCall handles POST /calls
func (c *CallController) StartCall(ctx *gin.Context) {
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

	session, err := c.callLogic.StartCall(userID, req.PersonaID)
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
		"session_id": session.ID(),
		"state":      session.State(),
	})
}

// ConnectCall handles POST /calls/:id/connect
func (c *CallController) ConnectCall(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	if err := c.callLogic.ConnectCall(userID, sessionID); err != nil {
		switch {
		case errors.Is(err, logic.ErrSessionNotFound):
			ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		case errors.Is(err, metering.ErrSessionTerminated):
			ctx.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"state": metering.StateActive})
}

// CallEvents handles GET /calls/:id/events, streaming session events as SSE
func (c *CallController) CallEvents(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	events, err := c.callLogic.Events(userID, sessionID)
	if err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	ctx.Header("Content-Type", "text/event-stream")
	ctx.Header("Cache-Control", "no-cache")
	ctx.Header("Connection", "keep-alive")

	for {
		select {
		case <-ctx.Request.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			ctx.SSEvent(event.Kind, event)
			ctx.Writer.Flush()
		}
	}
}

// Hangup handles DELETE /calls/:id
func (c *CallController) Hangup(ctx *gin.Context) {
	sessionID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session ID"})
		return
	}

	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	if err := c.callLogic.Hangup(userID, sessionID); err != nil {
		ctx.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"state": metering.StateTerminated})
}
