package services

import (
	"errors"
	"sync"

	"gorm.io/gorm"

	"chronos-exchange/internal/models"
)

// MarketService is the market catalog: read access to markets and their
// volume-derived odds, plus the stake accounting the bet engine feeds.
// Stakes on the same market serialize behind a per-market mutex; different
// markets proceed in parallel.
type MarketService struct {
	db    *gorm.DB
	locks sync.Map // eventID -> *sync.Mutex
}

// NewMarketService creates a new MarketService
func NewMarketService(db *gorm.DB) *MarketService {
	return &MarketService{db: db}
}

// LockMarket enters the market's exclusive section and returns the unlock
// func. The bet engine holds this across multiplier read + stake recording
// so the odds a bettor locks are the odds that existed before their stake.
func (s *MarketService) LockMarket(eventID string) func() {
	actual, _ := s.locks.LoadOrStore(eventID, &sync.Mutex{})
	mu := actual.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// List returns active markets ordered by end time, soonest-ending first.
// The secondary event_id ordering keeps ties deterministic.
func (s *MarketService) List() ([]models.Market, error) {
	return s.ListByStatus(models.MarketStatusActive)
}

// ListByStatus returns markets in the given status, ordered by end time.
func (s *MarketService) ListByStatus(status string) ([]models.Market, error) {
	var markets []models.Market
	if err := s.db.Where("status = ?", status).
		Order("end_time ASC, event_id ASC").
		Find(&markets).Error; err != nil {
		return nil, err
	}
	return markets, nil
}

// Get retrieves a market by its event ID
func (s *MarketService) Get(eventID string) (*models.Market, error) {
	var market models.Market
	if err := s.db.Where("event_id = ?", eventID).First(&market).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMarketNotFound
		}
		return nil, err
	}
	return &market, nil
}

// RecordStake adds a stake to one side of a market's volume.
func (s *MarketService) RecordStake(eventID string, prediction bool, amount int64) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	defer s.LockMarket(eventID)()
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.RecordStakeTx(tx, eventID, prediction, amount)
	})
}

// RecordStakeTx adds a stake inside an existing transaction. The caller must
// hold the market lock so concurrent stakes keep the volumes consistent.
func (s *MarketService) RecordStakeTx(tx *gorm.DB, eventID string, prediction bool, amount int64) error {
	column := "no_volume"
	if prediction {
		column = "yes_volume"
	}

	result := tx.Model(&models.Market{}).
		Where("event_id = ?", eventID).
		UpdateColumn(column, gorm.Expr(column+" + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMarketNotFound
	}
	return nil
}
