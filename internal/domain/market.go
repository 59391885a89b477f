package domain

import (
	"fmt"
	"strings"
)

// SplitTicker parses a "base-quote" market ticker (e.g. "BTC-USD").
func SplitTicker(market string) (base, quote string, err error) {
	parts := strings.Split(market, "-")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("ticker %q: %w", market, ErrInvalidMarketPair)
	}
	return parts[0], parts[1], nil
}

// Ticker joins a base/quote pair into the canonical market name.
func Ticker(base, quote string) string {
	return base + "-" + quote
}
