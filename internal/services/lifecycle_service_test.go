package services

import (
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"chronos-exchange/internal/models"
)

func newLifecycleService(db *gorm.DB) (*LifecycleService, *BetService, *LedgerService) {
	ledger := NewLedgerService(db)
	markets := NewMarketService(db)
	portfolio := NewPortfolioService(db, ledger)
	lifecycle := NewLifecycleService(db, markets, portfolio)
	bets := NewBetService(db, ledger, markets, 1_000_000)
	return lifecycle, bets, ledger
}

func TestCloseMarketTransitions(t *testing.T) {
	db := setupTestDB(t)
	lifecycle, _, _ := newLifecycleService(db)
	createMarket(t, db, "evt-1", time.Now().Add(time.Hour), models.MarketStatusActive)

	if err := lifecycle.CloseMarket("evt-1"); err != nil {
		t.Fatalf("CloseMarket failed: %v", err)
	}

	var market models.Market
	db.Where("event_id = ?", "evt-1").First(&market)
	if market.Status != models.MarketStatusClosed {
		t.Fatalf("expected closed, got %s", market.Status)
	}

	// Closing a closed market is a no-op
	if err := lifecycle.CloseMarket("evt-1"); err != nil {
		t.Errorf("closing a closed market should be a no-op, got %v", err)
	}

	// A resolved market rejects the transition
	db.Model(&models.Market{}).Where("event_id = ?", "evt-1").
		Update("status", models.MarketStatusResolved)
	if err := lifecycle.CloseMarket("evt-1"); !errors.Is(err, ErrAlreadyResolved) {
		t.Errorf("expected ErrAlreadyResolved, got %v", err)
	}

	if err := lifecycle.CloseMarket("evt-missing"); !errors.Is(err, ErrMarketNotFound) {
		t.Errorf("expected ErrMarketNotFound, got %v", err)
	}
}

func TestCloseExpired(t *testing.T) {
	db := setupTestDB(t)
	lifecycle, _, _ := newLifecycleService(db)
	now := time.Now()
	createMarket(t, db, "evt-past", now.Add(-time.Minute), models.MarketStatusActive)
	createMarket(t, db, "evt-future", now.Add(time.Hour), models.MarketStatusActive)

	closed, err := lifecycle.CloseExpired(now)
	if err != nil {
		t.Fatalf("CloseExpired failed: %v", err)
	}
	if closed != 1 {
		t.Fatalf("expected 1 market closed, got %d", closed)
	}

	var market models.Market
	db.Where("event_id = ?", "evt-future").First(&market)
	if market.Status != models.MarketStatusActive {
		t.Errorf("future market should stay active, got %s", market.Status)
	}
}

func TestResolveRequiresClosedMarket(t *testing.T) {
	db := setupTestDB(t)
	lifecycle, _, _ := newLifecycleService(db)
	createMarket(t, db, "evt-open", time.Now().Add(time.Hour), models.MarketStatusActive)

	if err := lifecycle.ResolveMarket("evt-open", models.OutcomeYes); !errors.Is(err, ErrMarketNotClosed) {
		t.Fatalf("expected ErrMarketNotClosed, got %v", err)
	}
	if err := lifecycle.ResolveMarket("evt-open", "MAYBE"); !errors.Is(err, ErrInvalidOutcome) {
		t.Fatalf("expected ErrInvalidOutcome, got %v", err)
	}
	if err := lifecycle.ResolveMarket("evt-missing", models.OutcomeYes); !errors.Is(err, ErrMarketNotFound) {
		t.Fatalf("expected ErrMarketNotFound, got %v", err)
	}

	// A passed deadline counts as closed even before the sweep runs
	createMarket(t, db, "evt-overdue", time.Now().Add(-time.Minute), models.MarketStatusActive)
	if err := lifecycle.ResolveMarket("evt-overdue", models.OutcomeNo); err != nil {
		t.Fatalf("resolving an overdue market should succeed, got %v", err)
	}
}

func TestResolveSettlesWinners(t *testing.T) {
	db := setupTestDB(t)
	lifecycle, bets, ledger := newLifecycleService(db)
	userID := createUserWithBalance(t, db, "winner", 1000, 500)

	seedMarketWithVolumes(t, db, "evt-m", 2, 3) // YES multiplier 2.5
	receipt, err := bets.PlaceBet(userID, "evt-m", 100, true)
	if err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}

	if err := lifecycle.CloseMarket("evt-m"); err != nil {
		t.Fatalf("CloseMarket failed: %v", err)
	}
	if err := lifecycle.ResolveMarket("evt-m", models.OutcomeYes); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}

	var bet models.Bet
	db.First(&bet, "id = ?", receipt.BetID)
	if bet.Status != models.BetStatusWon {
		t.Errorf("expected bet WON, got %s", bet.Status)
	}
	if bet.Payout != 250 {
		t.Errorf("expected payout 250, got %d", bet.Payout)
	}

	snapshot, _ := ledger.Snapshot(userID)
	if snapshot.Truth != 1150 {
		t.Errorf("expected truth 900+250=1150, got %d", snapshot.Truth)
	}
	if snapshot.Time != 500 {
		t.Errorf("expected time untouched, got %d", snapshot.Time)
	}

	// Re-resolution is rejected and produces no additional credits
	err = lifecycle.ResolveMarket("evt-m", models.OutcomeYes)
	if !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	snapshot, _ = ledger.Snapshot(userID)
	if snapshot.Truth != 1150 {
		t.Errorf("re-resolution changed balance: %d", snapshot.Truth)
	}
}

func TestResolveSettlesLosers(t *testing.T) {
	db := setupTestDB(t)
	lifecycle, bets, ledger := newLifecycleService(db)
	userID := createUserWithBalance(t, db, "loser", 1000, 500)

	seedMarketWithVolumes(t, db, "evt-m", 2, 3)
	receipt, err := bets.PlaceBet(userID, "evt-m", 100, true)
	if err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}

	if err := lifecycle.CloseMarket("evt-m"); err != nil {
		t.Fatalf("CloseMarket failed: %v", err)
	}
	if err := lifecycle.ResolveMarket("evt-m", models.OutcomeNo); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}

	var bet models.Bet
	db.First(&bet, "id = ?", receipt.BetID)
	if bet.Status != models.BetStatusLost {
		t.Errorf("expected bet LOST, got %s", bet.Status)
	}
	if bet.Payout != 0 {
		t.Errorf("expected no payout, got %d", bet.Payout)
	}

	snapshot, _ := ledger.Snapshot(userID)
	if snapshot.Truth != 900 {
		t.Errorf("expected truth to stay at 900, got %d", snapshot.Truth)
	}
}

func TestResolveRollsBackOnSettlementFailure(t *testing.T) {
	db := setupTestDB(t)
	lifecycle, bets, ledger := newLifecycleService(db)
	solventUser := createUserWithBalance(t, db, "solvent", 1000, 0)
	orphanUser := createUserWithBalance(t, db, "orphan", 1000, 0)

	seedMarketWithVolumes(t, db, "evt-rollback", 100, 100) // YES multiplier 2.0
	if _, err := bets.PlaceBet(solventUser, "evt-rollback", 100, true); err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}
	if _, err := bets.PlaceBet(orphanUser, "evt-rollback", 500, true); err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}
	if err := lifecycle.CloseMarket("evt-rollback"); err != nil {
		t.Fatalf("CloseMarket failed: %v", err)
	}

	// A bettor without a balance row makes the payout credit fail mid-batch
	if err := db.Where("user_id = ?", orphanUser).Delete(&models.Balance{}).Error; err != nil {
		t.Fatalf("failed to remove balance row: %v", err)
	}

	err := lifecycle.ResolveMarket("evt-rollback", models.OutcomeYes)
	if !errors.Is(err, ErrSettlementFailure) {
		t.Fatalf("expected ErrSettlementFailure, got %v", err)
	}

	// The whole resolution rolled back: the market is closed and resolvable
	// again, every bet is still open, and no payout was applied
	var market models.Market
	db.Where("event_id = ?", "evt-rollback").First(&market)
	if market.Status != models.MarketStatusClosed {
		t.Fatalf("expected market back to closed, got %s", market.Status)
	}
	if market.Outcome != nil {
		t.Errorf("expected no recorded outcome, got %s", *market.Outcome)
	}

	var openCount int64
	db.Model(&models.Bet{}).Where("event_id = ? AND status = ?", "evt-rollback", models.BetStatusOpen).Count(&openCount)
	if openCount != 2 {
		t.Fatalf("expected both bets still open, got %d", openCount)
	}

	snapshot, _ := ledger.Snapshot(solventUser)
	if snapshot.Truth != 900 {
		t.Errorf("expected no credit before settlement completes, got %d", snapshot.Truth)
	}

	// Once the balance row is restored the retry settles cleanly
	if err := db.Create(&models.Balance{UserID: orphanUser}).Error; err != nil {
		t.Fatalf("failed to restore balance row: %v", err)
	}
	if err := lifecycle.ResolveMarket("evt-rollback", models.OutcomeYes); err != nil {
		t.Fatalf("retried ResolveMarket failed: %v", err)
	}

	snapshot, _ = ledger.Snapshot(solventUser)
	if snapshot.Truth != 1100 {
		t.Errorf("expected truth 900+200=1100 after retry, got %d", snapshot.Truth)
	}
	orphanSnapshot, _ := ledger.Snapshot(orphanUser)
	if orphanSnapshot.Truth != 750 {
		t.Errorf("expected truth 750 from floor(500x1.5), got %d", orphanSnapshot.Truth)
	}
	db.Model(&models.Bet{}).Where("event_id = ? AND status = ?", "evt-rollback", models.BetStatusOpen).Count(&openCount)
	if openCount != 0 {
		t.Errorf("expected no open bets after retry, got %d", openCount)
	}
}

func TestResolveSettlesMixedBets(t *testing.T) {
	db := setupTestDB(t)
	lifecycle, bets, ledger := newLifecycleService(db)
	yesUser := createUserWithBalance(t, db, "yes-user", 1000, 0)
	noUser := createUserWithBalance(t, db, "no-user", 1000, 0)

	seedMarketWithVolumes(t, db, "evt-mixed", 100, 100)
	yesReceipt, err := bets.PlaceBet(yesUser, "evt-mixed", 200, true)
	if err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}
	if _, err := bets.PlaceBet(noUser, "evt-mixed", 200, false); err != nil {
		t.Fatalf("PlaceBet failed: %v", err)
	}

	if err := lifecycle.CloseMarket("evt-mixed"); err != nil {
		t.Fatalf("CloseMarket failed: %v", err)
	}
	if err := lifecycle.ResolveMarket("evt-mixed", models.OutcomeYes); err != nil {
		t.Fatalf("ResolveMarket failed: %v", err)
	}

	var winning models.Bet
	db.First(&winning, "id = ?", yesReceipt.BetID)
	expectedPayout := winning.PotentialPayout()

	yesSnapshot, _ := ledger.Snapshot(yesUser)
	if yesSnapshot.Truth != 800+expectedPayout {
		t.Errorf("expected winner truth %d, got %d", 800+expectedPayout, yesSnapshot.Truth)
	}

	noSnapshot, _ := ledger.Snapshot(noUser)
	if noSnapshot.Truth != 800 {
		t.Errorf("expected loser truth 800, got %d", noSnapshot.Truth)
	}

	var openCount int64
	db.Model(&models.Bet{}).Where("event_id = ? AND status = ?", "evt-mixed", models.BetStatusOpen).Count(&openCount)
	if openCount != 0 {
		t.Errorf("expected no open bets after settlement, got %d", openCount)
	}
}
