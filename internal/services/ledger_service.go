package services

import (
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"

	"chronos-exchange/internal/models"
)

// LedgerService is the only writer of user balances. Each user has an
// exclusive section so concurrent check-then-debit sequences serialize,
// and every mutation leaves a journal row in the transactions table.
type LedgerService struct {
	db    *gorm.DB
	locks sync.Map // userID -> *sync.Mutex
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{db: db}
}

// LockUser enters the user's exclusive section and returns the unlock func.
// Callers that mutate balances inside their own transaction (bet placement,
// settlement) hold this across the whole check-then-debit sequence.
func (s *LedgerService) LockUser(userID uint) func() {
	mu := s.userLock(userID)
	mu.Lock()
	return mu.Unlock
}

func (s *LedgerService) userLock(userID uint) *sync.Mutex {
	actual, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	return actual.(*sync.Mutex)
}

// OpenAccount creates the balance row for a new user with initial deposits.
func (s *LedgerService) OpenAccount(tx *gorm.DB, userID uint, initialTruth, initialTime int64) error {
	balance := models.Balance{
		UserID: userID,
		Truth:  initialTruth,
		Time:   initialTime,
	}
	if err := tx.Create(&balance).Error; err != nil {
		return fmt.Errorf("failed to create balance: %w", err)
	}

	journal := []models.Transaction{
		{UserID: userID, Type: models.TransactionTypeDeposit, Currency: models.CurrencyTruth, Amount: initialTruth, Description: "initial deposit"},
		{UserID: userID, Type: models.TransactionTypeDeposit, Currency: models.CurrencyTime, Amount: initialTime, Description: "initial deposit"},
	}
	return tx.Create(&journal).Error
}

// Credit increases a user's balance. Fails only on a non-positive amount.
func (s *LedgerService) Credit(userID uint, currency models.Currency, amount int64, txType, description string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	defer s.LockUser(userID)()
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.CreditTx(tx, userID, currency, amount, txType, description)
	})
}

// CreditTx applies a credit inside an existing transaction. Settlement uses
// this so a mid-batch failure rolls every payout back together.
func (s *LedgerService) CreditTx(tx *gorm.DB, userID uint, currency models.Currency, amount int64, txType, description string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	column := balanceColumn(currency)
	result := tx.Model(&models.Balance{}).
		Where("user_id = ?", userID).
		UpdateColumn(column, gorm.Expr(column+" + ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}

	return s.journal(tx, userID, currency, amount, txType, description)
}

// Debit decreases a user's balance only if the balance covers the amount.
// There is no partial debit: on insufficient funds nothing changes.
func (s *LedgerService) Debit(userID uint, currency models.Currency, amount int64, txType, description string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	defer s.LockUser(userID)()
	return s.db.Transaction(func(tx *gorm.DB) error {
		return s.DebitTx(tx, userID, currency, amount, txType, description)
	})
}

// DebitTx applies a compare-and-debit inside an existing transaction. The
// guarded UPDATE keeps the non-negative invariant even across processes.
func (s *LedgerService) DebitTx(tx *gorm.DB, userID uint, currency models.Currency, amount int64, txType, description string) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}

	column := balanceColumn(currency)
	result := tx.Model(&models.Balance{}).
		Where("user_id = ? AND "+column+" >= ?", userID, amount).
		UpdateColumn(column, gorm.Expr(column+" - ?", amount))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var balance models.Balance
		if err := tx.Where("user_id = ?", userID).First(&balance).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return ErrInsufficientFunds
	}

	return s.journal(tx, userID, currency, -amount, txType, description)
}

// Snapshot returns an immutable copy of the user's current balances,
// reflecting every debit and credit completed before the call.
func (s *LedgerService) Snapshot(userID uint) (models.BalanceSnapshot, error) {
	var balance models.Balance
	if err := s.db.Where("user_id = ?", userID).First(&balance).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.BalanceSnapshot{}, ErrUserNotFound
		}
		return models.BalanceSnapshot{}, err
	}

	return models.BalanceSnapshot{
		UserID: balance.UserID,
		Truth:  balance.Truth,
		Time:   balance.Time,
	}, nil
}

// GetTransactions returns the user's journal entries, newest first.
func (s *LedgerService) GetTransactions(userID uint, limit int) ([]models.Transaction, error) {
	var transactions []models.Transaction
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&transactions).Error; err != nil {
		return nil, err
	}
	return transactions, nil
}

func (s *LedgerService) journal(tx *gorm.DB, userID uint, currency models.Currency, amount int64, txType, description string) error {
	entry := models.Transaction{
		UserID:      userID,
		Type:        txType,
		Currency:    currency,
		Amount:      amount,
		Description: description,
	}
	return tx.Create(&entry).Error
}

func balanceColumn(currency models.Currency) string {
	if currency == models.CurrencyTime {
		return "time"
	}
	return "truth"
}
