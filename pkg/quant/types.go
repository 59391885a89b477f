package quant

import (
	"fmt"

	"exchange_go/pkg/safe"

	"github.com/shopspring/decimal"
)

// PriceMicros represents price multiplied by 1,000,000 (10^6).
// E.g., 45000.25 USD = 45,000,250,000 PriceMicros.
type PriceMicros int64

// QtySats represents quantity multiplied by 100,000,000 (10^8).
// E.g., 0.5 BTC = 50,000,000 QtySats.
type QtySats int64

// AmountMicros represents a quote-asset amount in the PriceMicros scale.
// Notionals (price x qty) land here.
type AmountMicros int64

// TimeStamp represents Unix Microseconds.
type TimeStamp int64

const (
	PriceScale = 1_000_000
	QtyScale   = 100_000_000
)

// PriceFromDecimal converts a wire-boundary decimal into PriceMicros.
// Internal logic never touches decimals; conversion happens once, here.
func PriceFromDecimal(d decimal.Decimal) (PriceMicros, error) {
	micros := d.Mul(decimal.NewFromInt(PriceScale))
	if !micros.IsInteger() {
		return 0, fmt.Errorf("price %s has sub-micro precision", d)
	}
	if micros.Sign() < 0 {
		return 0, fmt.Errorf("price %s is negative", d)
	}
	if !micros.BigInt().IsInt64() {
		return 0, fmt.Errorf("price %s overflows micros", d)
	}
	return PriceMicros(micros.IntPart()), nil
}

// QtyFromDecimal converts a wire-boundary decimal into QtySats.
func QtyFromDecimal(d decimal.Decimal) (QtySats, error) {
	sats := d.Mul(decimal.NewFromInt(QtyScale))
	if !sats.IsInteger() {
		return 0, fmt.Errorf("quantity %s has sub-sat precision", d)
	}
	if sats.Sign() < 0 {
		return 0, fmt.Errorf("quantity %s is negative", d)
	}
	if !sats.BigInt().IsInt64() {
		return 0, fmt.Errorf("quantity %s overflows sats", d)
	}
	return QtySats(sats.IntPart()), nil
}

// ParsePrice parses a decimal string (as sent by the gateway) into PriceMicros.
func ParsePrice(s string) (PriceMicros, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", s, err)
	}
	return PriceFromDecimal(d)
}

// ParseQty parses a decimal string into QtySats.
func ParseQty(s string) (QtySats, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid quantity %q: %w", s, err)
	}
	return QtyFromDecimal(d)
}

// Decimal renders the price back into its human decimal form.
func (p PriceMicros) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -6)
}

// Decimal renders the quantity back into its human decimal form.
func (q QtySats) Decimal() decimal.Decimal {
	return decimal.New(int64(q), -8)
}

// Decimal renders the amount back into its human decimal form.
func (a AmountMicros) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -6)
}

func (p PriceMicros) String() string { return p.Decimal().String() }
func (q QtySats) String() string     { return q.Decimal().String() }
func (a AmountMicros) String() string {
	return a.Decimal().String()
}

// Notional computes price x qty as a quote amount, truncating to micros.
// Panics on overflow (safe-math policy: corrupt money math must not continue).
func Notional(price PriceMicros, qty QtySats) AmountMicros {
	return AmountMicros(safe.MulDiv(int64(price), int64(qty), QtyScale))
}
