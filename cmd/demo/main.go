// Scripted matching walkthrough over the in-process bus. Runs without
// Redis or a config file; useful for eyeballing the matching flow.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"exchange_go/internal/engine"
	"exchange_go/internal/event"
	"exchange_go/internal/transport/localbus"
)

const market = "BTC-USD"

type demo struct {
	bus *localbus.Bus
	eng *engine.Engine
}

func (d *demo) send(cmdType string, data any) event.Message {
	raw, err := json.Marshal(data)
	if err != nil {
		slog.Error("marshal command failed", slog.Any("error", err))
		os.Exit(1)
	}
	return <-d.bus.Send(d.eng.Inbox(), event.Envelope{Type: cmdType, Data: raw})
}

func (d *demo) addOrder(side, price, qty, userID string) {
	fmt.Printf("\n📝 Adding %s order:\n", side)
	fmt.Printf("   Price: $%s, Qty: %s, User: %s\n", price, qty, userID)

	msg := d.send(event.TypeCreateOrder, event.CreateOrderData{
		Market: market, Price: price, Quantity: qty, Side: side, UserID: userID,
	})
	if msg.Type != event.TypeOrderPlaced {
		fmt.Printf("   ❌ Rejected (%s)\n", msg.Type)
		return
	}

	placed := msg.Payload.(event.OrderPlacedPayload)
	fmt.Printf("   Executed Qty: %s/%s\n", placed.ExecutedQty, qty)
	for i, fill := range placed.Fills {
		fmt.Printf("     Fill %d: %s @ $%s (Trade ID: %d)\n", i+1, fill.Qty, fill.Price, fill.TradeID)
	}
}

func (d *demo) printDepth() {
	msg := d.send(event.TypeGetDepth, event.GetDepthData{Market: market})
	depth := msg.Payload.(event.DepthPayload)

	fmt.Println("\n📊 Order Book Depth:")
	fmt.Printf("   Bids: %d levels\n", len(depth.Bids))
	for _, lvl := range depth.Bids {
		fmt.Printf("     %s @ $%s\n", lvl[1], lvl[0])
	}
	fmt.Printf("   Asks: %d levels\n", len(depth.Asks))
	for _, lvl := range depth.Asks {
		fmt.Printf("     %s @ $%s\n", lvl[1], lvl[0])
	}
}

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	fmt.Println("🚀 Starting Exchange Engine Walkthrough")

	bus := localbus.New()
	eng, err := engine.New(engine.Options{
		DefaultMarket: market,
		Replier:       bus,
		Seed: []engine.SeedBalance{
			// Buyers hold USD micros, sellers hold BTC sats.
			{UserID: "user1", Asset: "USD", Atoms: 100_000_000_000}, // 100,000 USD
			{UserID: "user2", Asset: "USD", Atoms: 100_000_000_000},
			{UserID: "user3", Asset: "USD", Atoms: 100_000_000_000},
			{UserID: "user6", Asset: "USD", Atoms: 100_000_000_000},
			{UserID: "user4", Asset: "BTC", Atoms: 100_000_000}, // 1 BTC
			{UserID: "user5", Asset: "BTC", Atoms: 100_000_000},
		},
	})
	if err != nil {
		slog.Error("engine init failed", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Run(ctx)
	}()

	d := &demo{bus: bus, eng: eng}

	fmt.Println("\n--- Step 1: Add BUY Orders ---")
	d.addOrder("BUY", "45000", "0.5", "user1")
	d.addOrder("BUY", "44900", "0.3", "user2")
	d.addOrder("BUY", "44800", "0.2", "user3")
	d.printDepth()

	fmt.Println("\n--- Step 2: Add SELL Orders (with matches) ---")
	d.addOrder("SELL", "44900", "0.4", "user4")
	d.printDepth()

	d.addOrder("SELL", "44700", "0.5", "user5")
	d.printDepth()

	fmt.Println("\n--- Step 3: Add More BUY Orders ---")
	d.addOrder("BUY", "44600", "0.1", "user6")
	d.printDepth()

	cancel()
	<-done
	fmt.Println("\n✅ Walkthrough complete")
}
