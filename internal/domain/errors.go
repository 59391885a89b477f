package domain

import "errors"

// Typed failure kinds. Command handlers match these with errors.Is and
// convert them into negative replies; they never cross the engine boundary.
var (
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrMarketNotFound    = errors.New("market not found")
	ErrOrderNotFound     = errors.New("order not found")
	ErrInvalidMarketPair = errors.New("invalid market pair")
)
