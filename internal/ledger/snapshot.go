package ledger

import (
	"sort"

	"exchange_go/internal/domain"
)

// UserBalances is the serializable balance table row for one user.
type UserBalances struct {
	UserID string                    `json:"userId"`
	Assets map[string]domain.Balance `json:"assets"`
}

// Snapshot captures the full balance table, sorted by user id so snapshots
// of identical state are byte-identical.
func (l *Ledger) Snapshot() []UserBalances {
	out := make([]UserBalances, 0, len(l.balances))
	for userID, assets := range l.balances {
		row := UserBalances{UserID: userID, Assets: make(map[string]domain.Balance, len(assets))}
		for asset, bal := range assets {
			row.Assets[asset] = *bal
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out
}

// Restore rebuilds a ledger from a snapshot's balance table.
func Restore(rows []UserBalances) *Ledger {
	l := New()
	for _, row := range rows {
		user := l.GetOrCreate(row.UserID)
		for asset, bal := range row.Assets {
			b := bal
			b.VerifyInvariant()
			user[asset] = &b
		}
	}
	return l
}
