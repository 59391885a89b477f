package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"exchange_go/internal/app"
	"exchange_go/internal/engine"
	"exchange_go/internal/transport/redisbus"

	_ "net/http/pprof" // For pprof profiling
)

func main() {
	// 1. Pprof Server (for performance profiling)
	go func() {
		// Localhost only for security
		slog.Info("🕵️ Pprof server started on localhost:6060")
		if err := http.ListenAndServe("localhost:6060", nil); err != nil {
			slog.Error("Pprof server failed", slog.Any("error", err))
		}
	}()

	// 2. System Bootstrapping
	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	// 3. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 4. Redis Gateway (commands in, correlated replies out)
	cfg := bootstrap.Config
	bus := redisbus.New(cfg.Transport.RedisAddr, cfg.Transport.Queue)
	defer bus.Close()

	// 5. Initialize Engine (The Hotpath Loop)
	opts := bootstrap.EngineOptions()
	opts.Replier = bus
	eng, err := engine.New(opts)
	if err != nil {
		slog.Error("❌ Engine init failed", slog.Any("error", err))
		os.Exit(1)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Run(ctx)
	}()
	slog.InfoContext(ctx, "✅ Engine (Hotpath) started",
		slog.String("market", cfg.Engine.DefaultMarket))

	go func() {
		if err := bus.Run(ctx, eng.Inbox()); err != nil && ctx.Err() == nil {
			slog.Error("gateway stopped", slog.Any("error", err))
			stop()
		}
	}()
	slog.InfoContext(ctx, "✅ Redis gateway listening",
		slog.String("addr", cfg.Transport.RedisAddr))

	slog.InfoContext(ctx, "✨ Exchange fully operational. Press Ctrl+C to exit.")

	// Wait for shutdown signal, then for the engine's final snapshot.
	<-ctx.Done()
	slog.Info("👋 Shutting down gracefully...")
	<-done
}
