// Package app wires configuration, storage and the engine into a runnable
// process.
package app

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"exchange_go/internal/engine"
	"exchange_go/internal/infra"
	"exchange_go/internal/storage"
)

// Bootstrap orchestrates the application startup sequence.
type Bootstrap struct {
	Config *infra.Config
	Store  storage.Store

	unlock func()
}

// NewBootstrap creates a new Bootstrap instance.
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize loads config, sets up logging, claims the workspace and opens
// the snapshot store.
func (b *Bootstrap) Initialize() error {
	slog.Info("🚀 Bootstrapping Exchange Go...")

	// 1. Load Config (Dynamic Path Resolution)
	cfg, err := infra.LoadConfig(infra.ResolveConfigPath())
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Workspace layout: _workspace/data holds snapshots.
	workDir := infra.GetWorkspaceDir()
	dataDir := filepath.Join(workDir, "data")
	if err := infra.EnsureDir(dataDir); err != nil {
		return fmt.Errorf("failed to create data dir: %w", err)
	}

	// 3.1 Singleton Instance Lock
	// Two engines writing the same snapshot dir would corrupt recovery.
	unlock, err := infra.CreateLockFile(workDir)
	if err != nil {
		return err
	}
	b.unlock = unlock

	// 4. Snapshot store
	switch cfg.Snapshot.Store {
	case "sqlite":
		store, err := storage.NewSQLiteStore(filepath.Join(dataDir, "snapshots.db"))
		if err != nil {
			return err
		}
		b.Store = store
		slog.Info("✅ Snapshot store ready (sqlite, WAL-mode)", "path", dataDir)
	default:
		b.Store = storage.NewFileStore(filepath.Join(dataDir, "snapshots"))
		slog.Info("✅ Snapshot store ready (file)", "path", dataDir)
	}

	return nil
}

// EngineOptions translates config into engine options. The replier is the
// caller's choice of transport.
func (b *Bootstrap) EngineOptions() engine.Options {
	return engine.Options{
		DefaultMarket:    b.Config.Engine.DefaultMarket,
		InboxSize:        b.Config.Engine.InboxSize,
		Store:            b.Store,
		SnapshotInterval: time.Duration(b.Config.Snapshot.IntervalSec) * time.Second,
		SnapshotKeep:     b.Config.Snapshot.Keep,
	}
}

// Shutdown releases the instance lock and closes the snapshot store.
func (b *Bootstrap) Shutdown() {
	if b.Store != nil {
		if err := b.Store.Close(); err != nil {
			slog.Warn("snapshot store close failed", slog.Any("error", err))
		}
	}
	if b.unlock != nil {
		b.unlock()
	}
	slog.Info("👋 Shutdown complete")
}
