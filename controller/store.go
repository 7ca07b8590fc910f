package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/achilles-kt/solace-app/logic"
)

// StoreController handles HTTP requests for top-up flows
type StoreController struct {
	rewardLogic *logic.RewardLogic
}

func NewStoreController(logic *logic.RewardLogic) *StoreController {
	return &StoreController{rewardLogic: logic}
}

// GetPacks handles GET /store/packs
func (c *StoreController) GetPacks(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, c.rewardLogic.Packs())
}

// Purchase handles POST /store/purchase
func (c *StoreController) Purchase(ctx *gin.Context) {
	type Request struct {
		PackID string `json:"pack_id" binding:"required"`
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

	balance, err := c.rewardLogic.Purchase(userID, req.PackID)
	if err != nil {
		if errors.Is(err, logic.ErrUnknownPack) {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"balance": balance})
}

// AdReward handles POST /store/ad-reward
func (c *StoreController) AdReward(ctx *gin.Context) {
	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	balance, err := c.rewardLogic.AdReward(userID)
	if err != nil {
		if errors.Is(err, logic.ErrRewardLimit) {
			ctx.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"balance": balance})
}

// ReferralReward handles POST /store/referral
func (c *StoreController) ReferralReward(ctx *gin.Context) {
	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	balance, err := c.rewardLogic.ReferralReward(userID)
	if err != nil {
		if errors.Is(err, logic.ErrRewardLimit) {
			ctx.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error()})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"balance": balance})
}

// DealReward handles POST /store/deal
func (c *StoreController) DealReward(ctx *gin.Context) {
	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	balance, err := c.rewardLogic.DealReward(userID)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"balance": balance})
}

// GetHistory handles GET /store/history
func (c *StoreController) GetHistory(ctx *gin.Context) {
	userID, err := extractUserID(ctx)
	if err != nil {
		return
	}

	txs, err := c.rewardLogic.History(userID, 100)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	ctx.JSON(http.StatusOK, txs)
}
