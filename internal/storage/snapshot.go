package storage

import (
	"fmt"

	"exchange_go/internal/book"
	"exchange_go/internal/ledger"
)

// SchemaVersion is bumped whenever the snapshot layout changes shape.
// Loading a snapshot written by a newer engine fails instead of silently
// misparsing.
const SchemaVersion = 1

// Snapshot is the point-in-time capture of the whole engine: every order
// book plus the full balance table.
type Snapshot struct {
	Version    int                   `json:"version"`
	Seq        uint64                `json:"seq"` // snapshot counter, not a trade id
	TsUnix     int64                 `json:"ts"`
	Orderbooks []book.Snapshot       `json:"orderbooks"`
	Balances   []ledger.UserBalances `json:"balances"`
}

// validate rejects snapshots this engine cannot interpret.
func (s *Snapshot) validate() error {
	if s.Version != SchemaVersion {
		return fmt.Errorf("snapshot schema version %d, engine supports %d", s.Version, SchemaVersion)
	}
	return nil
}

// Store persists and recovers engine snapshots.
type Store interface {
	// Save writes one snapshot durably.
	Save(snap *Snapshot) error
	// LoadLatest returns the most recent snapshot, or (nil, nil) when
	// none exists yet.
	LoadLatest() (*Snapshot, error)
	// Cleanup drops all but the newest keepCount snapshots.
	Cleanup(keepCount int) error
	// Close releases underlying resources.
	Close() error
}
