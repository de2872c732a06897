package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"chronos-exchange/internal/models"
	"chronos-exchange/internal/utils"
)

// AuthService handles authentication business logic
type AuthService struct {
	db           *gorm.DB
	ledger       *LedgerService
	users        *UserService
	initialTruth int64
	initialTime  int64
}

// NewAuthService creates a new AuthService
func NewAuthService(db *gorm.DB, ledger *LedgerService, users *UserService, initialTruth, initialTime int64) *AuthService {
	return &AuthService{
		db:           db,
		ledger:       ledger,
		users:        users,
		initialTruth: initialTruth,
		initialTime:  initialTime,
	}
}

// ProcessWalletLogin finds or creates a user by wallet address. New users
// get a generated nickname and their starting TRUTH/TIME balances.
func (s *AuthService) ProcessWalletLogin(walletAddress string) (*models.User, error) {
	existing, err := s.users.GetUserByWallet(walletAddress)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return nil, err
	}

	nickname, err := utils.GenerateNickname()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nickname: %w", err)
	}

	user := models.User{
		WalletAddress: walletAddress,
		Nickname:      nickname,
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		return s.ledger.OpenAccount(tx, user.ID, s.initialTruth, s.initialTime)
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}
