package services

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"chronos-exchange/internal/models"
)

// BetService validates and executes bets. A placement debits the ledger,
// records the stake on the market and creates the bet row in a single
// transaction; a failed debit leaves market volume and bets untouched.
type BetService struct {
	db           *gorm.DB
	ledger       *LedgerService
	markets      *MarketService
	maxBetAmount int64
}

// NewBetService creates a new BetService
func NewBetService(db *gorm.DB, ledger *LedgerService, markets *MarketService, maxBetAmount int64) *BetService {
	return &BetService{
		db:           db,
		ledger:       ledger,
		markets:      markets,
		maxBetAmount: maxBetAmount,
	}
}

// PlaceBet executes a bet for the user and returns a receipt carrying the
// multiplier locked at placement. The multiplier is read before the stake
// is recorded, so a bettor's own stake never moves their own odds.
func (s *BetService) PlaceBet(userID uint, eventID string, amount int64, prediction bool) (*models.BetReceipt, error) {
	unlockMarket := s.markets.LockMarket(eventID)
	defer unlockMarket()

	market, err := s.markets.Get(eventID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !market.AcceptsBets(now) {
		return nil, ErrMarketClosed
	}
	if amount <= 0 || (s.maxBetAmount > 0 && amount > s.maxBetAmount) {
		return nil, ErrInvalidAmount
	}

	multiplier := market.MultiplierFor(prediction)

	bet := models.Bet{
		ID:         uuid.New(),
		EventID:    eventID,
		UserID:     userID,
		Amount:     amount,
		Prediction: prediction,
		Multiplier: multiplier,
		Status:     models.BetStatusOpen,
		PlacedAt:   now,
	}

	unlockUser := s.ledger.LockUser(userID)
	defer unlockUser()

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.ledger.DebitTx(tx, userID, models.CurrencyTruth, amount,
			models.TransactionTypeBetPlaced,
			fmt.Sprintf("bet on %s (%s)", eventID, sideLabel(prediction))); err != nil {
			return err
		}
		if err := s.markets.RecordStakeTx(tx, eventID, prediction, amount); err != nil {
			return err
		}
		return tx.Create(&bet).Error
	})
	if err != nil {
		return nil, err
	}

	return &models.BetReceipt{
		BetID:      bet.ID,
		EventID:    bet.EventID,
		Amount:     bet.Amount,
		Prediction: bet.Prediction,
		Multiplier: bet.Multiplier,
		PlacedAt:   bet.PlacedAt,
	}, nil
}

// GetUserBets returns the user's bets, newest first.
func (s *BetService) GetUserBets(userID uint, limit, offset int) ([]models.Bet, error) {
	var bets []models.Bet
	if err := s.db.Where("user_id = ?", userID).
		Order("placed_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&bets).Error; err != nil {
		return nil, err
	}
	return bets, nil
}

func sideLabel(prediction bool) string {
	if prediction {
		return models.OutcomeYes
	}
	return models.OutcomeNo
}
