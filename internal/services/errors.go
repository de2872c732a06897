package services

import "errors"

var (
	ErrInvalidAmount     = errors.New("amount must be positive and within the configured maximum")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrMarketNotFound    = errors.New("market not found")
	ErrMarketClosed      = errors.New("market is not accepting bets")
	ErrMarketNotClosed   = errors.New("market must be closed before resolution")
	ErrAlreadyResolved   = errors.New("market already resolved")
	ErrInvalidOutcome    = errors.New("outcome must be YES or NO")
	ErrSettlementFailure = errors.New("settlement failed, resolution rolled back")
	ErrUserNotFound      = errors.New("user not found")
)
