package models

import (
	"time"
)

// Transaction types recorded in the ledger journal.
const (
	TransactionTypeDeposit   = "deposit"
	TransactionTypeBetPlaced = "bet_placed"
	TransactionTypeBetWon    = "bet_won"
)

// Transaction represents a virtual currency transaction
type Transaction struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	User        User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Type        string    `gorm:"size:50;not null;index" json:"type"`
	Currency    Currency  `gorm:"size:10;not null" json:"currency"`
	Amount      int64     `gorm:"not null" json:"amount"`
	Description string    `gorm:"type:text" json:"description"`
	CreatedAt   time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for Transaction model
func (Transaction) TableName() string {
	return "transactions"
}
