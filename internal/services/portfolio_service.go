package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"chronos-exchange/internal/models"
)

// PortfolioService aggregates a user's bets into a portfolio view and
// settles all open bets on a market once its outcome is known.
type PortfolioService struct {
	db     *gorm.DB
	ledger *LedgerService
}

// NewPortfolioService creates a new PortfolioService
func NewPortfolioService(db *gorm.DB, ledger *LedgerService) *PortfolioService {
	return &PortfolioService{db: db, ledger: ledger}
}

// SettleMarketTx settles every open bet on the market inside the caller's
// transaction: winners are credited amount × locked multiplier, losers are
// marked lost with no credit. Any error aborts the whole batch, so a retried
// resolution starts from a clean slate. The status = OPEN guard on each
// update makes a retry safe against double payouts.
func (s *PortfolioService) SettleMarketTx(tx *gorm.DB, eventID string, outcome string) error {
	var bets []models.Bet
	if err := tx.Where("event_id = ? AND status = ?", eventID, models.BetStatusOpen).
		Find(&bets).Error; err != nil {
		return fmt.Errorf("failed to load open bets: %w", err)
	}

	now := time.Now()
	for i := range bets {
		bet := &bets[i]

		won := bet.Prediction == (outcome == models.OutcomeYes)
		status := models.BetStatusLost
		var payout int64
		if won {
			status = models.BetStatusWon
			payout = bet.PotentialPayout()
			if err := s.ledger.CreditTx(tx, bet.UserID, models.CurrencyTruth, payout,
				models.TransactionTypeBetWon,
				fmt.Sprintf("won bet %s on %s", bet.ID, eventID)); err != nil {
				return fmt.Errorf("failed to credit user %d for bet %s: %w", bet.UserID, bet.ID, err)
			}
		}

		result := tx.Model(&models.Bet{}).
			Where("id = ? AND status = ?", bet.ID, models.BetStatusOpen).
			Updates(map[string]interface{}{
				"status":     status,
				"payout":     payout,
				"settled_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to settle bet %s: %w", bet.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("bet %s was no longer open during settlement", bet.ID)
		}
	}

	return nil
}

// PortfolioOf partitions the user's bets into active, pending and completed
// buckets and computes the investment, potential return and realized P&L.
func (s *PortfolioService) PortfolioOf(userID uint) (*models.Portfolio, error) {
	var bets []models.Bet
	if err := s.db.Where("user_id = ?", userID).
		Order("placed_at DESC").
		Find(&bets).Error; err != nil {
		return nil, err
	}

	markets, err := s.marketsFor(bets)
	if err != nil {
		return nil, err
	}

	portfolio := &models.Portfolio{
		UserID:          userID,
		Active:          []models.Bet{},
		Pending:         []models.Bet{},
		Completed:       []models.Bet{},
		PotentialReturn: decimal.Zero,
		RealizedPnL:     decimal.Zero,
	}

	now := time.Now()
	for _, bet := range bets {
		switch bet.Status {
		case models.BetStatusOpen:
			portfolio.Investment += bet.Amount
			portfolio.PotentialReturn = portfolio.PotentialReturn.
				Add(decimal.NewFromInt(bet.Amount).Mul(bet.Multiplier))

			market, ok := markets[bet.EventID]
			if ok && market.AcceptsBets(now) {
				portfolio.Active = append(portfolio.Active, bet)
			} else {
				// Market closed (or past its deadline), awaiting resolution.
				portfolio.Pending = append(portfolio.Pending, bet)
			}
		case models.BetStatusWon:
			portfolio.RealizedPnL = portfolio.RealizedPnL.
				Add(decimal.NewFromInt(bet.Payout - bet.Amount))
			portfolio.Completed = append(portfolio.Completed, bet)
		case models.BetStatusLost:
			portfolio.RealizedPnL = portfolio.RealizedPnL.
				Sub(decimal.NewFromInt(bet.Amount))
			portfolio.Completed = append(portfolio.Completed, bet)
		}
	}

	return portfolio, nil
}

func (s *PortfolioService) marketsFor(bets []models.Bet) (map[string]models.Market, error) {
	eventIDs := make([]string, 0, len(bets))
	seen := make(map[string]bool, len(bets))
	for _, bet := range bets {
		if !seen[bet.EventID] {
			seen[bet.EventID] = true
			eventIDs = append(eventIDs, bet.EventID)
		}
	}
	if len(eventIDs) == 0 {
		return map[string]models.Market{}, nil
	}

	var markets []models.Market
	if err := s.db.Where("event_id IN ?", eventIDs).Find(&markets).Error; err != nil {
		return nil, err
	}

	byEventID := make(map[string]models.Market, len(markets))
	for _, market := range markets {
		byEventID[market.EventID] = market
	}
	return byEventID, nil
}
