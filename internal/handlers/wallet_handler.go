package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"chronos-exchange/internal/auth"
	"chronos-exchange/internal/services"
)

type WalletHandler struct {
	ledger *services.LedgerService
}

func NewWalletHandler(ledger *services.LedgerService) *WalletHandler {
	return &WalletHandler{ledger: ledger}
}

// GetBalance returns the authenticated user's balance snapshot
func (h *WalletHandler) GetBalance(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	snapshot, err := h.ledger.Snapshot(userID)
	if err != nil {
		c.JSON(statusForError(err), gin.H{"error": "Failed to fetch balance"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    snapshot,
	})
}

// GetTransactions returns the authenticated user's ledger journal
func (h *WalletHandler) GetTransactions(c *gin.Context) {
	userID, ok := auth.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	transactions, err := h.ledger.GetTransactions(userID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch transactions"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    transactions,
		"count":   len(transactions),
	})
}
