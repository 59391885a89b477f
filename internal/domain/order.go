package domain

import "exchange_go/pkg/quant"

// Side of an order.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

// Order is a resting or incoming limit order.
// Invariant: 0 <= FilledSats <= QtySats.
type Order struct {
	ID          string            `json:"orderId"`
	UserID      string            `json:"userId"`
	Side        Side              `json:"side"`
	PriceMicros quant.PriceMicros `json:"price"`
	QtySats     quant.QtySats     `json:"quantity"`
	FilledSats  quant.QtySats     `json:"filled"`
	// Seq is the per-book arrival counter used for price-time tie-breaks.
	Seq uint64 `json:"seq"`
}

// RemainingSats returns the unfilled quantity.
func (o *Order) RemainingSats() quant.QtySats {
	return o.QtySats - o.FilledSats
}

// IsFilled checks if the order has been fully consumed.
func (o *Order) IsFilled() bool {
	return o.FilledSats == o.QtySats
}

// Fill is one matched step between a taker and a single maker. Immutable.
type Fill struct {
	PriceMicros  quant.PriceMicros `json:"price"`
	QtySats      quant.QtySats     `json:"qty"`
	TradeID      uint64            `json:"tradeId"`
	OtherUserID  string            `json:"otherUserId"`
	MakerOrderID string            `json:"makerOrderId"`
	// MakerPriceMicros is the maker's resting limit price. It can differ
	// from the trade price when a sell prints at the taker's limit; the
	// ledger needs it to size the maker's lock release.
	MakerPriceMicros quant.PriceMicros `json:"makerPrice"`
}
