package book

import (
	"exchange_go/internal/domain"
	"exchange_go/pkg/quant"
)

// Snapshot is the serializable state of one book. The depth cache is
// deliberately absent: Restore re-derives it from the order lists.
type Snapshot struct {
	BaseAsset          string            `json:"baseAsset"`
	QuoteAsset         string            `json:"quoteAsset"`
	Bids               []domain.Order    `json:"bids"`
	Asks               []domain.Order    `json:"asks"`
	LastTradeID        uint64            `json:"lastTradeId"`
	CurrentPriceMicros quant.PriceMicros `json:"currentPrice"`
}

// Snapshot captures the book's full resting state.
func (b *Book) Snapshot() Snapshot {
	snap := Snapshot{
		BaseAsset:          b.baseAsset,
		QuoteAsset:         b.quoteAsset,
		Bids:               make([]domain.Order, 0, len(b.bids)),
		Asks:               make([]domain.Order, 0, len(b.asks)),
		LastTradeID:        b.lastTradeID,
		CurrentPriceMicros: b.currentPriceMicros,
	}
	for _, o := range b.bids {
		snap.Bids = append(snap.Bids, *o)
	}
	for _, o := range b.asks {
		snap.Asks = append(snap.Asks, *o)
	}
	return snap
}

// Restore rebuilds a book from a snapshot. The persisted order lists are
// the single source of truth: the depth cache and the arrival counter are
// recomputed, never trusted from disk.
func Restore(snap Snapshot) *Book {
	b := New(snap.BaseAsset, snap.QuoteAsset)
	b.lastTradeID = snap.LastTradeID
	b.currentPriceMicros = snap.CurrentPriceMicros

	for i := range snap.Bids {
		o := snap.Bids[i]
		b.bids = append(b.bids, &o)
		b.depth.add(domain.SideBuy, o.PriceMicros, o.RemainingSats())
		if o.Seq > b.arrivalSeq {
			b.arrivalSeq = o.Seq
		}
	}
	for i := range snap.Asks {
		o := snap.Asks[i]
		b.asks = append(b.asks, &o)
		b.depth.add(domain.SideSell, o.PriceMicros, o.RemainingSats())
		if o.Seq > b.arrivalSeq {
			b.arrivalSeq = o.Seq
		}
	}
	return b
}
