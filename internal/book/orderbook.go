package book

import (
	"fmt"
	"sort"

	"exchange_go/internal/domain"
	"exchange_go/pkg/quant"
)

// Book is one market's limit order book. It is a pure logic object with no
// locking: the engine's single command loop is the serialization point.
type Book struct {
	baseAsset  string
	quoteAsset string

	// bids sorted by price descending, asks ascending; ties by arrival seq.
	bids []*domain.Order
	asks []*domain.Order

	lastTradeID        uint64
	currentPriceMicros quant.PriceMicros

	// arrivalSeq stamps orders for price-time tie-breaks.
	arrivalSeq uint64

	depth *depthCache
}

// MatchResult is what AddOrder returns to the engine.
type MatchResult struct {
	ExecutedSats quant.QtySats
	Fills        []domain.Fill
}

// New creates an empty book for the base-quote market.
func New(baseAsset, quoteAsset string) *Book {
	return &Book{
		baseAsset:  baseAsset,
		quoteAsset: quoteAsset,
		depth:      newDepthCache(),
	}
}

// Ticker returns the canonical market name.
func (b *Book) Ticker() string {
	return domain.Ticker(b.baseAsset, b.quoteAsset)
}

// BaseAsset returns the traded commodity symbol.
func (b *Book) BaseAsset() string { return b.baseAsset }

// QuoteAsset returns the pricing symbol.
func (b *Book) QuoteAsset() string { return b.quoteAsset }

// LastTradeID returns the book's monotonic trade counter.
func (b *Book) LastTradeID() uint64 { return b.lastTradeID }

// CurrentPrice returns the last executed trade price.
func (b *Book) CurrentPrice() quant.PriceMicros { return b.currentPriceMicros }

// AddOrder matches the incoming order against resting liquidity and rests
// any remainder. The order is mutated in place (FilledSats, Seq).
func (b *Book) AddOrder(order *domain.Order) MatchResult {
	order.Seq = b.nextArrival()
	if order.Side == domain.SideBuy {
		return b.matchBuy(order)
	}
	return b.matchSell(order)
}

// matchBuy walks asks from the cheapest. The scan early-terminates once an
// ask costs more than the order's limit; trades print at the maker's price.
func (b *Book) matchBuy(order *domain.Order) MatchResult {
	var executed quant.QtySats
	var fills []domain.Fill

	for _, ask := range b.asks {
		if executed >= order.QtySats {
			break
		}
		if ask.PriceMicros > order.PriceMicros {
			break // sorted ascending, nothing further can cross
		}
		fillQty := min(order.QtySats-executed, ask.RemainingSats())
		if fillQty <= 0 {
			continue
		}

		b.lastTradeID++
		fills = append(fills, domain.Fill{
			PriceMicros:      ask.PriceMicros,
			QtySats:          fillQty,
			TradeID:          b.lastTradeID,
			OtherUserID:      ask.UserID,
			MakerOrderID:     ask.ID,
			MakerPriceMicros: ask.PriceMicros,
		})
		executed += fillQty
		ask.FilledSats += fillQty
		b.currentPriceMicros = ask.PriceMicros
		b.depth.reduce(domain.SideSell, ask.PriceMicros, fillQty)
	}
	b.asks = compactFilled(b.asks)

	order.FilledSats = executed
	if executed < order.QtySats {
		b.rest(order)
	}
	return MatchResult{ExecutedSats: executed, Fills: fills}
}

// matchSell mirrors matchBuy against bids; trades print at the incoming
// order's own limit price, which is what the original venue did.
func (b *Book) matchSell(order *domain.Order) MatchResult {
	var executed quant.QtySats
	var fills []domain.Fill

	for _, bid := range b.bids {
		if executed >= order.QtySats {
			break
		}
		if bid.PriceMicros < order.PriceMicros {
			break
		}
		fillQty := min(order.QtySats-executed, bid.RemainingSats())
		if fillQty <= 0 {
			continue
		}

		b.lastTradeID++
		fills = append(fills, domain.Fill{
			PriceMicros:      order.PriceMicros,
			QtySats:          fillQty,
			TradeID:          b.lastTradeID,
			OtherUserID:      bid.UserID,
			MakerOrderID:     bid.ID,
			MakerPriceMicros: bid.PriceMicros,
		})
		executed += fillQty
		bid.FilledSats += fillQty
		b.currentPriceMicros = order.PriceMicros
		b.depth.reduce(domain.SideBuy, bid.PriceMicros, fillQty)
	}
	b.bids = compactFilled(b.bids)

	order.FilledSats = executed
	if executed < order.QtySats {
		b.rest(order)
	}
	return MatchResult{ExecutedSats: executed, Fills: fills}
}

// rest inserts the unfilled remainder at its price-time position.
func (b *Book) rest(order *domain.Order) {
	if order.Side == domain.SideBuy {
		idx := sort.Search(len(b.bids), func(i int) bool {
			return b.bids[i].PriceMicros < order.PriceMicros
		})
		b.bids = insertAt(b.bids, idx, order)
	} else {
		idx := sort.Search(len(b.asks), func(i int) bool {
			return b.asks[i].PriceMicros > order.PriceMicros
		})
		b.asks = insertAt(b.asks, idx, order)
	}
	b.depth.add(order.Side, order.PriceMicros, order.RemainingSats())
}

// CancelOrder removes a resting order and returns a copy of it so the
// caller can size the ledger unlock. No fill, no trade id.
func (b *Book) CancelOrder(orderID string) (domain.Order, error) {
	for i, o := range b.bids {
		if o.ID == orderID {
			b.bids = removeAt(b.bids, i)
			b.depth.reduce(domain.SideBuy, o.PriceMicros, o.RemainingSats())
			return *o, nil
		}
	}
	for i, o := range b.asks {
		if o.ID == orderID {
			b.asks = removeAt(b.asks, i)
			b.depth.reduce(domain.SideSell, o.PriceMicros, o.RemainingSats())
			return *o, nil
		}
	}
	return domain.Order{}, fmt.Errorf("order %s: %w", orderID, domain.ErrOrderNotFound)
}

// OpenOrders returns copies of a user's live orders on both sides.
func (b *Book) OpenOrders(userID string) []domain.Order {
	var out []domain.Order
	for _, o := range b.bids {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	for _, o := range b.asks {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out
}

// Depth reads the aggregate levels from the incremental cache.
func (b *Book) Depth() ([]Level, []Level) {
	return b.depth.levels(domain.SideBuy), b.depth.levels(domain.SideSell)
}

func (b *Book) nextArrival() uint64 {
	b.arrivalSeq++
	return b.arrivalSeq
}

// compactFilled drops fully consumed makers after a matching scan. Removal
// happens outside the scan so iteration never skips entries.
func compactFilled(side []*domain.Order) []*domain.Order {
	out := side[:0]
	for _, o := range side {
		if !o.IsFilled() {
			out = append(out, o)
		}
	}
	// Zero the tail so evicted orders do not leak through the backing array.
	for i := len(out); i < len(side); i++ {
		side[i] = nil
	}
	return out
}

func insertAt(side []*domain.Order, idx int, o *domain.Order) []*domain.Order {
	side = append(side, nil)
	copy(side[idx+1:], side[idx:])
	side[idx] = o
	return side
}

func removeAt(side []*domain.Order, idx int) []*domain.Order {
	copy(side[idx:], side[idx+1:])
	side[len(side)-1] = nil
	return side[:len(side)-1]
}

func min(a, b quant.QtySats) quant.QtySats {
	if a < b {
		return a
	}
	return b
}
