package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"exchange_go/internal/event"
	"exchange_go/internal/storage"
	"exchange_go/internal/transport/localbus"
)

const testMarket = "BTC-USD"

type testRig struct {
	engine *Engine
	bus    *localbus.Bus
	cancel context.CancelFunc
}

func startEngine(t *testing.T, store storage.Store) *testRig {
	t.Helper()

	bus := localbus.New()
	e, err := New(Options{
		DefaultMarket: testMarket,
		Replier:       bus,
		Store:         store,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		e.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("engine did not stop")
		}
	})

	return &testRig{engine: e, bus: bus, cancel: cancel}
}

// send pushes one command through the bus and waits for its reply.
func (r *testRig) send(t *testing.T, cmdType string, data any) event.Message {
	t.Helper()

	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal %s data: %v", cmdType, err)
	}
	ch := r.bus.Send(r.engine.Inbox(), event.Envelope{Type: cmdType, Data: raw})
	select {
	case msg := <-ch:
		return msg
	case <-time.After(2 * time.Second):
		t.Fatalf("no reply for %s", cmdType)
		return event.Message{}
	}
}

func (r *testRig) onRamp(t *testing.T, userID, amount string) {
	t.Helper()
	msg := r.send(t, event.TypeOnRamp, event.OnRampData{
		Amount: amount, UserID: userID, TxnID: "txn-" + userID,
	})
	if msg.Type != event.TypeOnRampAck {
		t.Fatalf("on-ramp reply type = %s, want %s", msg.Type, event.TypeOnRampAck)
	}
}

func (r *testRig) placeOrder(t *testing.T, userID, side, price, qty string) event.OrderPlacedPayload {
	t.Helper()
	msg := r.send(t, event.TypeCreateOrder, event.CreateOrderData{
		Market: testMarket, Price: price, Quantity: qty, Side: side, UserID: userID,
	})
	if msg.Type != event.TypeOrderPlaced {
		t.Fatalf("create reply type = %s (payload %+v), want %s", msg.Type, msg.Payload, event.TypeOrderPlaced)
	}
	return msg.Payload.(event.OrderPlacedPayload)
}

// seedBase hands a user base-asset inventory directly. On-ramps only move
// the quote currency, so sellers in tests are funded through the ledger.
func (r *testRig) seedBase(userID string, sats int64) {
	user := r.engine.ledger.GetOrCreate(userID, "BTC")
	user["BTC"].Credit(sats)
}

func TestCreateOrderRestsAndShowsInDepth(t *testing.T) {
	rig := startEngine(t, nil)
	rig.onRamp(t, "user1", "100000")

	placed := rig.placeOrder(t, "user1", "BUY", "45000", "0.5")
	if placed.OrderID == "" {
		t.Fatal("placed order has no id")
	}
	if placed.ExecutedQty != "0" {
		t.Fatalf("executedQty = %s, want 0", placed.ExecutedQty)
	}
	if len(placed.Fills) != 0 {
		t.Fatalf("fills = %d, want 0", len(placed.Fills))
	}

	msg := rig.send(t, event.TypeGetDepth, event.GetDepthData{Market: testMarket})
	depth := msg.Payload.(event.DepthPayload)
	if len(depth.Bids) != 1 || len(depth.Asks) != 0 {
		t.Fatalf("depth = %d bids / %d asks, want 1/0", len(depth.Bids), len(depth.Asks))
	}
	if depth.Bids[0] != (event.PriceLevel{"45000", "0.5"}) {
		t.Fatalf("bid level = %v, want [45000 0.5]", depth.Bids[0])
	}
}

func TestSellFillsAtItsOwnLimitPrice(t *testing.T) {
	rig := startEngine(t, nil)
	rig.onRamp(t, "user1", "100000")
	rig.placeOrder(t, "user1", "BUY", "45000", "0.5")

	rig.seedBase("user2", 40_000_000) // 0.4 BTC
	placed := rig.placeOrder(t, "user2", "SELL", "44900", "0.4")

	if placed.ExecutedQty != "0.4" {
		t.Fatalf("executedQty = %s, want 0.4", placed.ExecutedQty)
	}
	if len(placed.Fills) != 1 {
		t.Fatalf("fills = %d, want 1", len(placed.Fills))
	}
	if placed.Fills[0].Price != "44900" || placed.Fills[0].Qty != "0.4" {
		t.Fatalf("fill = %+v, want 44900 x 0.4", placed.Fills[0])
	}

	// Trade printed at the seller's limit, so the resting bid's lock gives
	// back (45000-44900) x 0.4 = 40 USD and keeps 45000 x 0.1 = 4500 locked.
	buyerUSD := rig.engine.ledger.GetOrCreate("user1", "USD")["USD"]
	wantAvailable := int64(100_000_000_000) - int64(22_500_000_000) + int64(40_000_000)
	if buyerUSD.AvailableAtoms != wantAvailable {
		t.Fatalf("buyer USD available = %d, want %d", buyerUSD.AvailableAtoms, wantAvailable)
	}
	if buyerUSD.LockedAtoms != 4_500_000_000 {
		t.Fatalf("buyer USD locked = %d, want 4500000000", buyerUSD.LockedAtoms)
	}
	buyerBTC := rig.engine.ledger.GetOrCreate("user1", "BTC")["BTC"]
	if buyerBTC.AvailableAtoms != 40_000_000 {
		t.Fatalf("buyer BTC = %d, want 40000000", buyerBTC.AvailableAtoms)
	}

	sellerUSD := rig.engine.ledger.GetOrCreate("user2", "USD")["USD"]
	if sellerUSD.AvailableAtoms != 17_960_000_000 {
		t.Fatalf("seller USD = %d, want 17960000000", sellerUSD.AvailableAtoms)
	}

	// Base and quote totals are conserved across the trade.
	if got := rig.engine.ledger.TotalAtoms("USD"); got != 100_000_000_000 {
		t.Fatalf("total USD = %d, want 100000000000", got)
	}
	if got := rig.engine.ledger.TotalAtoms("BTC"); got != 40_000_000 {
		t.Fatalf("total BTC = %d, want 40000000", got)
	}
}

func TestCancelReleasesRemainderLock(t *testing.T) {
	rig := startEngine(t, nil)
	rig.onRamp(t, "user1", "30000")
	placed := rig.placeOrder(t, "user1", "BUY", "45000", "0.5")

	rig.seedBase("user2", 20_000_000)
	rig.placeOrder(t, "user2", "SELL", "45000", "0.2")

	msg := rig.send(t, event.TypeCancelOrder, event.CancelOrderData{
		OrderID: placed.OrderID, Market: testMarket,
	})
	if msg.Type != event.TypeOrderCancelled {
		t.Fatalf("cancel reply type = %s, want %s", msg.Type, event.TypeOrderCancelled)
	}
	cancelled := msg.Payload.(event.OrderCancelledPayload)
	if cancelled.OrderID != placed.OrderID {
		t.Fatalf("cancelled id = %s, want %s", cancelled.OrderID, placed.OrderID)
	}
	if cancelled.ExecutedQty != "0.2" || cancelled.RemainingQty != "0.3" {
		t.Fatalf("cancelled = executed %s remaining %s, want 0.2 / 0.3",
			cancelled.ExecutedQty, cancelled.RemainingQty)
	}

	// 30000 ramped, 9000 spent on the 0.2 fill at 45000, remainder unlocked.
	usd := rig.engine.ledger.GetOrCreate("user1", "USD")["USD"]
	if usd.LockedAtoms != 0 {
		t.Fatalf("USD locked = %d, want 0", usd.LockedAtoms)
	}
	if usd.AvailableAtoms != 21_000_000_000 {
		t.Fatalf("USD available = %d, want 21000000000", usd.AvailableAtoms)
	}
	btc := rig.engine.ledger.GetOrCreate("user1", "BTC")["BTC"]
	if btc.AvailableAtoms != 20_000_000 {
		t.Fatalf("BTC available = %d, want 20000000", btc.AvailableAtoms)
	}

	// The book no longer knows the order.
	msg = rig.send(t, event.TypeGetDepth, event.GetDepthData{Market: testMarket})
	depth := msg.Payload.(event.DepthPayload)
	if len(depth.Bids) != 0 {
		t.Fatalf("depth bids after cancel = %d, want 0", len(depth.Bids))
	}
}

func TestCancelUnknownOrderRejected(t *testing.T) {
	rig := startEngine(t, nil)

	msg := rig.send(t, event.TypeCancelOrder, event.CancelOrderData{
		OrderID: "nope", Market: testMarket,
	})
	if msg.Type != event.TypeOrderCancelled {
		t.Fatalf("reply type = %s, want %s", msg.Type, event.TypeOrderCancelled)
	}
	if got := msg.Payload.(event.OrderCancelledPayload).OrderID; got != "" {
		t.Fatalf("rejection orderId = %q, want empty", got)
	}
}

func TestInsufficientFundsRejectsBeforeBook(t *testing.T) {
	rig := startEngine(t, nil)

	msg := rig.send(t, event.TypeCreateOrder, event.CreateOrderData{
		Market: testMarket, Price: "45000", Quantity: "0.5", Side: "BUY", UserID: "broke",
	})
	if msg.Type != event.TypeOrderCancelled {
		t.Fatalf("reply type = %s, want %s", msg.Type, event.TypeOrderCancelled)
	}
	if got := msg.Payload.(event.OrderCancelledPayload).OrderID; got != "" {
		t.Fatalf("rejection orderId = %q, want empty", got)
	}

	msg = rig.send(t, event.TypeGetDepth, event.GetDepthData{Market: testMarket})
	depth := msg.Payload.(event.DepthPayload)
	if len(depth.Bids) != 0 {
		t.Fatal("rejected order leaked into the book")
	}
}

func TestCreateOrderValidation(t *testing.T) {
	rig := startEngine(t, nil)
	rig.onRamp(t, "user1", "100000")

	cases := []struct {
		name string
		data event.CreateOrderData
	}{
		{"unknown market", event.CreateOrderData{Market: "ETH-USD", Price: "1", Quantity: "1", Side: "BUY", UserID: "user1"}},
		{"malformed ticker", event.CreateOrderData{Market: "BTCUSD", Price: "1", Quantity: "1", Side: "BUY", UserID: "user1"}},
		{"bad side", event.CreateOrderData{Market: testMarket, Price: "1", Quantity: "1", Side: "HODL", UserID: "user1"}},
		{"bad price", event.CreateOrderData{Market: testMarket, Price: "abc", Quantity: "1", Side: "BUY", UserID: "user1"}},
		{"zero quantity", event.CreateOrderData{Market: testMarket, Price: "45000", Quantity: "0", Side: "BUY", UserID: "user1"}},
		{"negative price", event.CreateOrderData{Market: testMarket, Price: "-1", Quantity: "1", Side: "BUY", UserID: "user1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg := rig.send(t, event.TypeCreateOrder, tc.data)
			if msg.Type != event.TypeOrderCancelled {
				t.Fatalf("reply type = %s, want %s", msg.Type, event.TypeOrderCancelled)
			}
		})
	}
}

func TestOnRampRepeatedTxnCreditsAgain(t *testing.T) {
	rig := startEngine(t, nil)

	data := event.OnRampData{Amount: "10000", UserID: "user1", TxnID: "txn-1"}
	for i := 0; i < 2; i++ {
		msg := rig.send(t, event.TypeOnRamp, data)
		if msg.Type != event.TypeOnRampAck {
			t.Fatalf("reply type = %s, want %s", msg.Type, event.TypeOnRampAck)
		}
	}

	usd := rig.engine.ledger.GetOrCreate("user1", "USD")["USD"]
	if usd.AvailableAtoms != 20_000_000_000 {
		t.Fatalf("USD after repeated ramp = %d, want 20000000000", usd.AvailableAtoms)
	}
}

func TestGetDepthUnknownMarketRepliesEmpty(t *testing.T) {
	rig := startEngine(t, nil)

	msg := rig.send(t, event.TypeGetDepth, event.GetDepthData{Market: "DOGE-USD"})
	if msg.Type != event.TypeDepth {
		t.Fatalf("reply type = %s, want %s", msg.Type, event.TypeDepth)
	}
	depth := msg.Payload.(event.DepthPayload)
	if len(depth.Bids) != 0 || len(depth.Asks) != 0 {
		t.Fatalf("depth for unknown market = %d/%d levels, want empty", len(depth.Bids), len(depth.Asks))
	}
}

func TestGetOpenOrdersFiltersByUser(t *testing.T) {
	rig := startEngine(t, nil)
	rig.onRamp(t, "user1", "100000")
	rig.onRamp(t, "user2", "100000")

	rig.placeOrder(t, "user1", "BUY", "45000", "0.5")
	rig.placeOrder(t, "user1", "BUY", "44900", "0.3")
	rig.placeOrder(t, "user2", "BUY", "44800", "0.2")

	msg := rig.send(t, event.TypeGetOpenOrders, event.GetOpenOrdersData{UserID: "user1", Market: testMarket})
	if msg.Type != event.TypeOpenOrders {
		t.Fatalf("reply type = %s, want %s", msg.Type, event.TypeOpenOrders)
	}
	orders := msg.Payload.(event.OpenOrdersPayload)
	if len(orders) != 2 {
		t.Fatalf("user1 open orders = %d, want 2", len(orders))
	}
	for _, o := range orders {
		if o.UserID != "user1" || o.Side != "BUY" || o.ExecutedQty != "0" {
			t.Fatalf("unexpected open order %+v", o)
		}
	}

	msg = rig.send(t, event.TypeGetOpenOrders, event.GetOpenOrdersData{UserID: "user3", Market: testMarket})
	if got := len(msg.Payload.(event.OpenOrdersPayload)); got != 0 {
		t.Fatalf("user3 open orders = %d, want 0", got)
	}
}

func TestShutdownSnapshotRestoresState(t *testing.T) {
	dir := t.TempDir()
	store := storage.NewFileStore(dir)

	rig := startEngine(t, store)
	rig.onRamp(t, "user1", "100000")
	placed := rig.placeOrder(t, "user1", "BUY", "45000", "0.5")

	// Run writes a final snapshot on its way out.
	rig.cancel()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, err := store.LoadLatest()
		if err == nil && snap != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("shutdown snapshot never appeared")
		}
		time.Sleep(10 * time.Millisecond)
	}

	rig2 := startEngine(t, store)

	msg := rig2.send(t, event.TypeGetDepth, event.GetDepthData{Market: testMarket})
	depth := msg.Payload.(event.DepthPayload)
	if len(depth.Bids) != 1 || depth.Bids[0] != (event.PriceLevel{"45000", "0.5"}) {
		t.Fatalf("restored depth = %+v, want single 45000 x 0.5 bid", depth)
	}

	// The restored order is cancellable and its lock is still honored.
	msg = rig2.send(t, event.TypeCancelOrder, event.CancelOrderData{
		OrderID: placed.OrderID, Market: testMarket,
	})
	cancelled := msg.Payload.(event.OrderCancelledPayload)
	if cancelled.OrderID != placed.OrderID || cancelled.RemainingQty != "0.5" {
		t.Fatalf("restored cancel = %+v", cancelled)
	}
	usd := rig2.engine.ledger.GetOrCreate("user1", "USD")["USD"]
	if usd.AvailableAtoms != 100_000_000_000 || usd.LockedAtoms != 0 {
		t.Fatalf("restored USD = %d available / %d locked, want 100000000000 / 0",
			usd.AvailableAtoms, usd.LockedAtoms)
	}
}

func TestCorruptSnapshotStartsFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot_1_1.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt snapshot: %v", err)
	}

	rig := startEngine(t, storage.NewFileStore(dir))

	msg := rig.send(t, event.TypeGetDepth, event.GetDepthData{Market: testMarket})
	depth := msg.Payload.(event.DepthPayload)
	if len(depth.Bids) != 0 || len(depth.Asks) != 0 {
		t.Fatal("fresh engine has leftover depth")
	}
}
