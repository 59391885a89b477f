package book

import (
	"sort"

	"exchange_go/internal/domain"
	"exchange_go/pkg/quant"
)

// Level is one aggregated price level.
type Level struct {
	PriceMicros quant.PriceMicros
	QtySats     quant.QtySats
}

// depthCache keeps per-side price -> remaining quantity aggregates in step
// with the live order lists. Every add, fill and removal flows through it,
// so reads cost O(distinct price levels) instead of a full book scan.
type depthCache struct {
	bids map[quant.PriceMicros]quant.QtySats
	asks map[quant.PriceMicros]quant.QtySats
}

func newDepthCache() *depthCache {
	return &depthCache{
		bids: make(map[quant.PriceMicros]quant.QtySats),
		asks: make(map[quant.PriceMicros]quant.QtySats),
	}
}

func (d *depthCache) sideMap(side domain.Side) map[quant.PriceMicros]quant.QtySats {
	if side == domain.SideBuy {
		return d.bids
	}
	return d.asks
}

// add raises a level by qty, creating it when absent.
func (d *depthCache) add(side domain.Side, price quant.PriceMicros, qty quant.QtySats) {
	if qty <= 0 {
		return
	}
	d.sideMap(side)[price] += qty
}

// reduce lowers a level by qty and evicts it at zero.
// A level going negative means the cache and the book diverged; halt.
func (d *depthCache) reduce(side domain.Side, price quant.PriceMicros, qty quant.QtySats) {
	if qty <= 0 {
		return
	}
	m := d.sideMap(side)
	rest := m[price] - qty
	switch {
	case rest > 0:
		m[price] = rest
	case rest == 0:
		delete(m, price)
	default:
		panic("DEPTH_CACHE_UNDERFLOW")
	}
}

// levels returns the side's aggregate levels, bids descending, asks ascending.
func (d *depthCache) levels(side domain.Side) []Level {
	m := d.sideMap(side)
	out := make([]Level, 0, len(m))
	for price, qty := range m {
		out = append(out, Level{PriceMicros: price, QtySats: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if side == domain.SideBuy {
			return out[i].PriceMicros > out[j].PriceMicros
		}
		return out[i].PriceMicros < out[j].PriceMicros
	})
	return out
}
