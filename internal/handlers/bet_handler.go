package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chronos-exchange/internal/auth"
	"chronos-exchange/internal/models"
	"chronos-exchange/internal/services"
)

type BetHandler struct {
	bets *services.BetService
}

func NewBetHandler(bets *services.BetService) *BetHandler {
	return &BetHandler{bets: bets}
}

// PlaceBet places a bet for the authenticated user
func (h *BetHandler) PlaceBet(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var req models.PlaceBetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	receipt, err := h.bets.PlaceBet(userID, req.EventID, req.Amount, *req.Prediction)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    receipt,
	})
}

// GetUserBets returns the authenticated user's bets
func (h *BetHandler) GetUserBets(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	bets, err := h.bets.GetUserBets(userID, limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch bets"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    bets,
		"count":   len(bets),
	})
}
