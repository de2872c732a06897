package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bet statuses. A bet is created OPEN and moves to WON or LOST exactly once,
// when its market resolves. Bets are never deleted.
const (
	BetStatusOpen = "OPEN"
	BetStatusWon  = "WON"
	BetStatusLost = "LOST"
)

// Bet is a stake of TRUTH on one side of a market. The multiplier is locked
// at placement and never changes, regardless of how the live odds move.
type Bet struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	EventID    string          `gorm:"size:100;not null;index" json:"event_id"`
	UserID     uint            `gorm:"not null;index" json:"user_id"`
	Amount     int64           `gorm:"not null;check:amount > 0" json:"amount"`
	Prediction bool            `gorm:"not null" json:"prediction"`
	Multiplier decimal.Decimal `gorm:"type:decimal(12,4);not null" json:"multiplier"`
	Status     string          `gorm:"size:10;not null;default:OPEN;index" json:"status"`
	Payout     int64           `gorm:"not null;default:0" json:"payout"`
	PlacedAt   time.Time       `gorm:"not null" json:"placed_at"`
	SettledAt  *time.Time      `json:"settled_at,omitempty"`
}

// TableName specifies the table name for Bet model
func (Bet) TableName() string {
	return "bets"
}

// PotentialPayout is the amount credited if this bet wins, rounded down to
// whole TRUTH units.
func (b *Bet) PotentialPayout() int64 {
	return decimal.NewFromInt(b.Amount).Mul(b.Multiplier).Floor().IntPart()
}

// PlaceBetRequest is the request body for placing a bet
type PlaceBetRequest struct {
	EventID    string `json:"event_id" binding:"required"`
	Amount     int64  `json:"amount" binding:"required"`
	Prediction *bool  `json:"prediction" binding:"required"`
}

// BetReceipt is returned to the caller after a successful placement
type BetReceipt struct {
	BetID      uuid.UUID       `json:"bet_id"`
	EventID    string          `json:"event_id"`
	Amount     int64           `json:"amount"`
	Prediction bool            `json:"prediction"`
	Multiplier decimal.Decimal `json:"multiplier"`
	PlacedAt   time.Time       `json:"placed_at"`
}

// Portfolio is a per-user derived view over that user's bets.
// Active: open bets on markets still taking bets. Pending: open bets on
// closed markets awaiting resolution. Completed: settled bets.
type Portfolio struct {
	UserID          uint            `json:"user_id"`
	Active          []Bet           `json:"active"`
	Pending         []Bet           `json:"pending"`
	Completed       []Bet           `json:"completed"`
	Investment      int64           `json:"investment"`
	PotentialReturn decimal.Decimal `json:"potential_return"`
	RealizedPnL     decimal.Decimal `json:"realized_pnl"`
}
