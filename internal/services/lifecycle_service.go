package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"

	"chronos-exchange/internal/models"
)

// LifecycleService governs market state transitions. Transitions are
// monotonic: active -> closed -> resolved, never backwards. Resolution and
// settlement commit in one transaction, so a settlement failure rolls the
// market back to closed and the resolution can be retried as a whole.
type LifecycleService struct {
	db        *gorm.DB
	markets   *MarketService
	portfolio *PortfolioService
}

// NewLifecycleService creates a new LifecycleService
func NewLifecycleService(db *gorm.DB, markets *MarketService, portfolio *PortfolioService) *LifecycleService {
	return &LifecycleService{
		db:        db,
		markets:   markets,
		portfolio: portfolio,
	}
}

// CloseMarket explicitly transitions a market to closed. Closing an already
// closed market is a no-op; a resolved market rejects the transition.
func (s *LifecycleService) CloseMarket(eventID string) error {
	defer s.markets.LockMarket(eventID)()

	market, err := s.markets.Get(eventID)
	if err != nil {
		return err
	}

	switch market.Status {
	case models.MarketStatusResolved:
		return ErrAlreadyResolved
	case models.MarketStatusClosed:
		return nil
	}

	return s.db.Model(&models.Market{}).
		Where("event_id = ? AND status = ?", eventID, models.MarketStatusActive).
		Update("status", models.MarketStatusClosed).Error
}

// CloseExpired sweeps active markets whose end time has passed to closed and
// returns how many were closed. Bets on them were already rejected by the
// deadline check, this just materializes the state.
func (s *LifecycleService) CloseExpired(now time.Time) (int64, error) {
	result := s.db.Model(&models.Market{}).
		Where("status = ? AND end_time <= ?", models.MarketStatusActive, now).
		Update("status", models.MarketStatusClosed)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// ResolveMarket records the binary outcome of a closed market and settles
// every open bet on it. A second resolution attempt is rejected with
// ErrAlreadyResolved rather than silently ignored.
func (s *LifecycleService) ResolveMarket(eventID string, outcome string) error {
	if outcome != models.OutcomeYes && outcome != models.OutcomeNo {
		return ErrInvalidOutcome
	}

	defer s.markets.LockMarket(eventID)()

	market, err := s.markets.Get(eventID)
	if err != nil {
		return err
	}

	now := time.Now()
	switch market.Status {
	case models.MarketStatusResolved:
		return ErrAlreadyResolved
	case models.MarketStatusActive:
		// A passed deadline implies closed even if the sweep has not run.
		if now.Before(market.EndTime) {
			return ErrMarketNotClosed
		}
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Market{}).
			Where("event_id = ? AND status <> ?", eventID, models.MarketStatusResolved).
			Updates(map[string]interface{}{
				"status":      models.MarketStatusResolved,
				"outcome":     outcome,
				"resolved_at": now,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrAlreadyResolved
		}

		return s.portfolio.SettleMarketTx(tx, eventID, outcome)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyResolved) {
			return ErrAlreadyResolved
		}
		return fmt.Errorf("%w: %v", ErrSettlementFailure, err)
	}

	log.Printf("Market %s resolved %s", eventID, outcome)
	return nil
}
