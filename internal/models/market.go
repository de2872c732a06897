package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Market statuses. Transitions are monotonic: active -> closed -> resolved.
const (
	MarketStatusActive   = "active"
	MarketStatusClosed   = "closed"
	MarketStatusResolved = "resolved"
)

// Binary market outcomes.
const (
	OutcomeYes = "YES"
	OutcomeNo  = "NO"
)

// Multiplier bounds. The floor keeps heavily one-sided markets from paying
// out at ~1.0x, the ceiling keeps an empty side from paying out unbounded.
var (
	MinMultiplier     = decimal.RequireFromString("1.01")
	MaxMultiplier     = decimal.NewFromInt(100)
	DefaultMultiplier = decimal.NewFromInt(2)
)

// Market represents a binary prediction market fed from the external catalog.
// YesVolume/NoVolume accumulate staked TRUTH and drive the live odds.
type Market struct {
	ID          uint       `gorm:"primaryKey" json:"-"`
	EventID     string     `gorm:"size:100;uniqueIndex;not null" json:"event_id"`
	Description string     `gorm:"type:text" json:"description"`
	EndTime     time.Time  `gorm:"not null;index" json:"end_time"`
	Status      string     `gorm:"size:50;default:active;index" json:"status"`
	Outcome     *string    `gorm:"size:10" json:"outcome,omitempty"`
	YesVolume   int64      `gorm:"not null;default:0" json:"yes_volume"`
	NoVolume    int64      `gorm:"not null;default:0" json:"no_volume"`
	CreatedAt   time.Time  `json:"created_at"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// TableName specifies the table name for Market model
func (Market) TableName() string {
	return "markets"
}

// AcceptsBets reports whether the market can take a new bet right now.
// The deadline counts even if the status row has not been swept to closed yet.
func (m *Market) AcceptsBets(now time.Time) bool {
	return m.Status == MarketStatusActive && now.Before(m.EndTime)
}

// YesProbability is the volume-implied probability of the YES side.
// With no volume on either side the market sits at 50%.
func (m *Market) YesProbability() decimal.Decimal {
	total := m.YesVolume + m.NoVolume
	if total == 0 {
		return decimal.RequireFromString("0.5")
	}
	return decimal.NewFromInt(m.YesVolume).Div(decimal.NewFromInt(total))
}

// MultiplierFor returns the current payout multiplier for a prediction,
// clamped to [MinMultiplier, MaxMultiplier].
func (m *Market) MultiplierFor(prediction bool) decimal.Decimal {
	total := m.YesVolume + m.NoVolume
	if total == 0 {
		return DefaultMultiplier
	}

	side := m.NoVolume
	if prediction {
		side = m.YesVolume
	}
	if side == 0 {
		return MaxMultiplier
	}

	multiplier := decimal.NewFromInt(total).DivRound(decimal.NewFromInt(side), 4)
	if multiplier.LessThan(MinMultiplier) {
		return MinMultiplier
	}
	if multiplier.GreaterThan(MaxMultiplier) {
		return MaxMultiplier
	}
	return multiplier
}
