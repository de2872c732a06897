package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chronos-exchange/internal/auth"
	"chronos-exchange/internal/services"
)

type PortfolioHandler struct {
	portfolio *services.PortfolioService
}

func NewPortfolioHandler(portfolio *services.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolio: portfolio}
}

// GetPortfolio returns the authenticated user's portfolio: bets partitioned
// into active/pending/completed plus investment and P&L aggregates
func (h *PortfolioHandler) GetPortfolio(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	portfolio, err := h.portfolio.PortfolioOf(userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch portfolio"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    portfolio,
	})
}
