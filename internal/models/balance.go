package models

import (
	"time"
)

// Currency identifies one of the two independent accounts held per user.
type Currency string

const (
	CurrencyTruth Currency = "TRUTH"
	CurrencyTime  Currency = "TIME"
)

// Balance holds a user's virtual currency accounts. Amounts are whole units
// and never go negative; mutation happens only through the ledger service.
type Balance struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Truth     int64     `gorm:"not null;default:0;check:truth >= 0" json:"truth"`
	Time      int64     `gorm:"not null;default:0;check:time >= 0" json:"time"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for Balance model
func (Balance) TableName() string {
	return "balances"
}

// BalanceSnapshot is an immutable copy of a user's balances at a point in time.
type BalanceSnapshot struct {
	UserID uint  `json:"user_id"`
	Truth  int64 `json:"truth"`
	Time   int64 `json:"time"`
}

// Amount returns the snapshot amount for the given currency.
func (s BalanceSnapshot) Amount(currency Currency) int64 {
	if currency == CurrencyTime {
		return s.Time
	}
	return s.Truth
}
