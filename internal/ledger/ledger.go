package ledger

import (
	"fmt"
	"log/slog"

	"exchange_go/internal/domain"
	"exchange_go/pkg/quant"
	"exchange_go/pkg/safe"
)

// Ledger holds every user's per-asset balances. Like the order book it is
// mutex-free: the engine's command loop is the only writer.
type Ledger struct {
	// balances[userID][asset]
	balances map[string]map[string]*domain.Balance
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{balances: make(map[string]map[string]*domain.Balance)}
}

// GetOrCreate lazily materializes zero balances for any asset the user has
// not touched yet. It never fails.
func (l *Ledger) GetOrCreate(userID string, assets ...string) map[string]*domain.Balance {
	user, ok := l.balances[userID]
	if !ok {
		user = make(map[string]*domain.Balance)
		l.balances[userID] = user
	}
	for _, asset := range assets {
		if _, ok := user[asset]; !ok {
			user[asset] = &domain.Balance{}
		}
	}
	return user
}

// LockFunds reserves what the order needs before it may touch the book.
// BUY locks price x quantity of the quote asset; SELL locks the base
// quantity. Fails closed with ErrInsufficientFunds.
func (l *Ledger) LockFunds(userID string, side domain.Side, baseAsset, quoteAsset string, price quant.PriceMicros, qty quant.QtySats) error {
	user := l.GetOrCreate(userID, baseAsset, quoteAsset)

	asset, required := lockFor(side, baseAsset, quoteAsset, price, qty)
	bal := user[asset]
	if bal.AvailableAtoms < required {
		return fmt.Errorf("user %s needs %d %s atoms, has %d: %w",
			userID, required, asset, bal.AvailableAtoms, domain.ErrInsufficientFunds)
	}
	bal.Lock(required)
	return nil
}

// lockFor sizes an order's reservation.
func lockFor(side domain.Side, baseAsset, quoteAsset string, price quant.PriceMicros, qty quant.QtySats) (asset string, atoms int64) {
	if side == domain.SideBuy {
		return quoteAsset, int64(quant.Notional(price, qty))
	}
	return baseAsset, int64(qty)
}

// SettleFills redistributes funds for every fill of a taker order, then
// unwinds whatever slack remains in the taker's lock.
//
// Each maker's funds were locked when their order first rested; each fill
// spends out of those locks. A BUY taker's fills print at maker prices, so
// after the fills the taker's lock still holds the limit-price notional of
// both the unfilled remainder and the price improvement; the improvement is
// refunded here and the remainder stays locked backing the resting order.
// A SELL taker's fills print at the taker's own limit, so the overshoot sits
// on the maker side and is refunded to each maker instead.
func (l *Ledger) SettleFills(order *domain.Order, fills []domain.Fill, baseAsset, quoteAsset string) {
	taker := l.GetOrCreate(order.UserID, baseAsset, quoteAsset)

	if order.Side == domain.SideBuy {
		var spent int64
		var bought int64
		for _, fill := range fills {
			notional := int64(quant.Notional(fill.PriceMicros, fill.QtySats))
			maker := l.GetOrCreate(fill.OtherUserID, baseAsset, quoteAsset)

			// Taker pays quote out of its lock, maker delivers base out of theirs.
			taker[quoteAsset].SpendLocked(notional)
			maker[quoteAsset].Credit(notional)
			maker[baseAsset].SpendLocked(int64(fill.QtySats))
			spent = safe.Add(spent, notional)
			bought = safe.Add(bought, int64(fill.QtySats))
		}
		taker[baseAsset].Credit(bought)

		// Refund the gap between limit-price and actual cost of the
		// executed quantity. The unfilled remainder's lock stays put.
		executedNotional := int64(quant.Notional(order.PriceMicros, order.FilledSats))
		if refund := safe.Sub(executedNotional, spent); refund > 0 {
			taker[quoteAsset].Unlock(refund)
		}
		return
	}

	var received int64
	for _, fill := range fills {
		notional := int64(quant.Notional(fill.PriceMicros, fill.QtySats))
		maker := l.GetOrCreate(fill.OtherUserID, baseAsset, quoteAsset)

		// Taker delivers base out of its lock, maker pays quote out of theirs.
		taker[baseAsset].SpendLocked(int64(fill.QtySats))
		maker[baseAsset].Credit(int64(fill.QtySats))
		maker[quoteAsset].SpendLocked(notional)
		received = safe.Add(received, notional)

		// The maker's bid locked bid-price x qty but the trade printed at
		// the taker's limit; hand the maker back the difference so their
		// remaining lock is exactly bid-price x unfilled.
		makerLocked := int64(quant.Notional(fill.MakerPriceMicros, fill.QtySats))
		if over := safe.Sub(makerLocked, notional); over > 0 {
			maker[quoteAsset].Unlock(over)
		}
	}
	taker[quoteAsset].Credit(received)
}

// CancelUnlock releases the reservation backing a cancelled order's
// unfilled remainder.
func (l *Ledger) CancelUnlock(userID string, side domain.Side, baseAsset, quoteAsset string, cancelPrice quant.PriceMicros, unfilled quant.QtySats) {
	user := l.GetOrCreate(userID, baseAsset, quoteAsset)
	asset, atoms := lockFor(side, baseAsset, quoteAsset, cancelPrice, unfilled)
	user[asset].Unlock(atoms)
}

// OnRamp credits external funds into a user's available balance. This is
// the only operation that increases an asset's system-wide total.
// Repeated txnIds are NOT deduplicated; a second ramp with the same id
// credits again.
func (l *Ledger) OnRamp(userID, asset string, atoms int64, txnID string) {
	user := l.GetOrCreate(userID, asset)
	user[asset].Credit(atoms)
	slog.Info("on-ramp credited",
		slog.String("user", userID),
		slog.String("asset", asset),
		slog.Int64("atoms", atoms),
		slog.String("txn", txnID))
}

// TotalAtoms sums available+locked across all users for one asset.
// Trades and cancels must never change it.
func (l *Ledger) TotalAtoms(asset string) int64 {
	var total int64
	for _, user := range l.balances {
		if bal, ok := user[asset]; ok {
			total = safe.Add(total, bal.TotalAtoms())
		}
	}
	return total
}
