package domain

import (
	"fmt"

	"exchange_go/pkg/safe"
)

// Balance holds one user's funds in a single asset, split between the
// spendable portion and the portion reserved against open orders.
// Amounts are integer atoms: quote assets in micros, base assets in sats.
// All monetary values are strictly int64.
type Balance struct {
	AvailableAtoms int64 `json:"available"`
	LockedAtoms    int64 `json:"locked"`
}

// Credit adds funds to the available portion.
func (b *Balance) Credit(atoms int64) {
	b.AvailableAtoms = safe.Add(b.AvailableAtoms, atoms)
	b.VerifyInvariant()
}

// Lock moves funds from available to locked.
// The caller must have checked sufficiency; going negative panics.
func (b *Balance) Lock(atoms int64) {
	b.AvailableAtoms = safe.Sub(b.AvailableAtoms, atoms)
	b.LockedAtoms = safe.Add(b.LockedAtoms, atoms)
	b.VerifyInvariant()
}

// Unlock moves funds from locked back to available.
func (b *Balance) Unlock(atoms int64) {
	b.LockedAtoms = safe.Sub(b.LockedAtoms, atoms)
	b.AvailableAtoms = safe.Add(b.AvailableAtoms, atoms)
	b.VerifyInvariant()
}

// SpendLocked consumes funds out of the locked portion, e.g. when a
// reserved amount is paid to a counterparty on a fill.
func (b *Balance) SpendLocked(atoms int64) {
	b.LockedAtoms = safe.Sub(b.LockedAtoms, atoms)
	b.VerifyInvariant()
}

// TotalAtoms returns available + locked.
func (b *Balance) TotalAtoms() int64 {
	return safe.Add(b.AvailableAtoms, b.LockedAtoms)
}

// VerifyInvariant panics if the balance entered an impossible state.
// Money corruption must halt the engine, not limp on.
func (b *Balance) VerifyInvariant() {
	if b.AvailableAtoms < 0 {
		panic(fmt.Sprintf("BALANCE_NEGATIVE_AVAILABLE: %d", b.AvailableAtoms))
	}
	if b.LockedAtoms < 0 {
		panic(fmt.Sprintf("BALANCE_NEGATIVE_LOCKED: %d", b.LockedAtoms))
	}
}
