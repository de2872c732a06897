package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"chronos-exchange/internal/models"
	"chronos-exchange/internal/services"
)

type MarketHandler struct {
	markets   *services.MarketService
	lifecycle *services.LifecycleService
}

func NewMarketHandler(markets *services.MarketService, lifecycle *services.LifecycleService) *MarketHandler {
	return &MarketHandler{
		markets:   markets,
		lifecycle: lifecycle,
	}
}

// marketView is a market plus its current volume-derived odds
type marketView struct {
	models.Market
	YesProbability decimal.Decimal `json:"yes_probability"`
	MultiplierYes  decimal.Decimal `json:"multiplier_yes"`
	MultiplierNo   decimal.Decimal `json:"multiplier_no"`
}

func toMarketView(market models.Market) marketView {
	return marketView{
		Market:         market,
		YesProbability: market.YesProbability().Round(4),
		MultiplierYes:  market.MultiplierFor(true),
		MultiplierNo:   market.MultiplierFor(false),
	}
}

// GetMarkets returns active markets (soonest-ending first) with live odds.
// A status query parameter widens the view to closed or resolved markets.
func (h *MarketHandler) GetMarkets(c *gin.Context) {
	status := c.DefaultQuery("status", models.MarketStatusActive)

	markets, err := h.markets.ListByStatus(status)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch markets"})
		return
	}

	views := make([]marketView, len(markets))
	for i, market := range markets {
		views[i] = toMarketView(market)
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    views,
		"count":   len(views),
	})
}

// GetMarket returns a specific market with live odds
func (h *MarketHandler) GetMarket(c *gin.Context) {
	eventID := c.Param("event_id")

	market, err := h.markets.Get(eventID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "Market not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toMarketView(*market),
	})
}

// CloseMarket explicitly closes a market to new bets (admin only)
func (h *MarketHandler) CloseMarket(c *gin.Context) {
	eventID := c.Param("event_id")

	if err := h.lifecycle.CloseMarket(eventID); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Market closed",
	})
}

// ResolveMarket records a market's outcome and settles all open bets (admin only)
func (h *MarketHandler) ResolveMarket(c *gin.Context) {
	eventID := c.Param("event_id")

	var req struct {
		Outcome string `json:"outcome" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.lifecycle.ResolveMarket(eventID, req.Outcome); err != nil {
		c.JSON(statusForError(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Market resolved",
	})
}
