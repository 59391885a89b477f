package engine

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"exchange_go/internal/book"
	"exchange_go/internal/domain"
	"exchange_go/internal/event"
	"exchange_go/internal/ledger"
	"exchange_go/internal/storage"
	"exchange_go/internal/transport"
	"exchange_go/pkg/quant"

	"github.com/google/uuid"
)

// BaseCurrency is the asset on-ramps credit.
const BaseCurrency = "USD"

// Engine owns every order book and the balance ledger. It processes one
// command at a time to completion; that single loop is the whole
// concurrency story, there are no locks around book or ledger state.
type Engine struct {
	inbox   chan event.Envelope
	books   map[string]*book.Book
	ledger  *ledger.Ledger
	replier transport.Replier

	store        storage.Store
	snapInterval time.Duration
	snapKeep     int
	snapSeq      uint64
}

// Options configures a new Engine.
type Options struct {
	// DefaultMarket is created when no snapshot exists, e.g. "BTC-USD".
	DefaultMarket string
	InboxSize     int
	Replier       transport.Replier
	// Store may be nil; the engine then runs without durability.
	Store            storage.Store
	SnapshotInterval time.Duration
	SnapshotKeep     int
	// Seed pre-funds accounts on a fresh start. Ignored when a snapshot
	// is restored: the snapshot already contains those balances.
	Seed []SeedBalance
}

// SeedBalance is a demo/test convenience: funds credited before the engine
// accepts its first command.
type SeedBalance struct {
	UserID string
	Asset  string
	Atoms  int64
}

// New builds an engine, rehydrating from the latest snapshot when one can
// be read. A failed read falls back to a fresh engine with the default
// market: losing a snapshot costs the window since the last write, never
// the process.
func New(opts Options) (*Engine, error) {
	if opts.InboxSize <= 0 {
		opts.InboxSize = 1024
	}
	if opts.SnapshotKeep <= 0 {
		opts.SnapshotKeep = 3
	}
	e := &Engine{
		inbox:        make(chan event.Envelope, opts.InboxSize),
		books:        make(map[string]*book.Book),
		ledger:       ledger.New(),
		replier:      opts.Replier,
		store:        opts.Store,
		snapInterval: opts.SnapshotInterval,
		snapKeep:     opts.SnapshotKeep,
	}

	if e.store != nil {
		snap, err := e.store.LoadLatest()
		if err != nil {
			slog.Warn("snapshot load failed, starting empty", slog.Any("error", err))
		} else if snap != nil {
			for _, bs := range snap.Orderbooks {
				b := book.Restore(bs)
				e.books[b.Ticker()] = b
			}
			e.ledger = ledger.Restore(snap.Balances)
			e.snapSeq = snap.Seq
			slog.Info("engine rehydrated",
				slog.Uint64("snapshot_seq", snap.Seq),
				slog.Int("markets", len(e.books)))
			return e, nil
		}
	}

	base, quote, err := domain.SplitTicker(opts.DefaultMarket)
	if err != nil {
		return nil, fmt.Errorf("default market: %w", err)
	}
	b := book.New(base, quote)
	e.books[b.Ticker()] = b
	for _, s := range opts.Seed {
		e.ledger.OnRamp(s.UserID, s.Asset, s.Atoms, "seed")
	}
	slog.Info("engine starting fresh", slog.String("market", b.Ticker()))
	return e, nil
}

// Inbox returns the command channel. Transports send envelopes here.
func (e *Engine) Inbox() chan<- event.Envelope {
	return e.inbox
}

// Run is the single-threaded hotpath. It MUST be run in exactly one
// goroutine; snapshots fire from the same loop so they can never observe
// a half-mutated book.
func (e *Engine) Run(ctx context.Context) {
	slog.Info("engine started (single-thread hotpath)")

	var tick <-chan time.Time
	if e.store != nil && e.snapInterval > 0 {
		ticker := time.NewTicker(e.snapInterval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("engine stopping")
			e.writeSnapshot()
			return
		case env := <-e.inbox:
			e.process(env)
		case <-tick:
			e.writeSnapshot()
		}
	}
}

// process dispatches one command. Every handler is self-contained: it
// replies before the loop moves on, and no failure escapes it.
func (e *Engine) process(env event.Envelope) {
	switch env.Type {
	case event.TypeCreateOrder:
		e.handleCreateOrder(env)
	case event.TypeCancelOrder:
		e.handleCancelOrder(env)
	case event.TypeOnRamp:
		e.handleOnRamp(env)
	case event.TypeGetDepth:
		e.handleGetDepth(env)
	case event.TypeGetOpenOrders:
		e.handleGetOpenOrders(env)
	default:
		slog.Warn("unknown command type", slog.String("type", env.Type))
	}
}

func (e *Engine) reply(env event.Envelope, msg event.Message) {
	if e.replier != nil {
		e.replier.Reply(env.CorrelationID, msg)
	}
}

// rejectOrder is the conservative "tell the client it failed" response for
// CREATE_ORDER. It is not a rollback: if funds were locked before the
// failure they stay locked (a documented correctness risk, carried over
// from the source system).
func (e *Engine) rejectOrder(env event.Envelope, reason error) {
	slog.Warn("order rejected", slog.Any("reason", reason))
	e.reply(env, event.Message{
		Type: event.TypeOrderCancelled,
		Payload: event.OrderCancelledPayload{
			OrderID:      "",
			ExecutedQty:  quant.QtySats(0).String(),
			RemainingQty: quant.QtySats(0).String(),
		},
	})
}

func (e *Engine) handleCreateOrder(env event.Envelope) {
	// Panics during matching/settlement (ledger invariants, overflow
	// guards) are converted into a rejection at this boundary.
	defer func() {
		if r := recover(); r != nil {
			slog.Error("create order panicked", slog.Any("panic", r))
			e.rejectOrder(env, fmt.Errorf("internal failure: %v", r))
		}
	}()

	var data event.CreateOrderData
	if err := env.Decode(&data); err != nil {
		e.rejectOrder(env, err)
		return
	}

	b, base, quote, err := e.resolveMarket(data.Market)
	if err != nil {
		e.rejectOrder(env, err)
		return
	}

	side := domain.Side(data.Side)
	if !side.Valid() {
		e.rejectOrder(env, fmt.Errorf("unknown side %q", data.Side))
		return
	}
	price, err := quant.ParsePrice(data.Price)
	if err != nil {
		e.rejectOrder(env, err)
		return
	}
	qty, err := quant.ParseQty(data.Quantity)
	if err != nil {
		e.rejectOrder(env, err)
		return
	}
	if price <= 0 || qty <= 0 {
		e.rejectOrder(env, fmt.Errorf("non-positive price or quantity"))
		return
	}

	// Lock first, fail closed: an under-funded order never touches the book.
	if err := e.ledger.LockFunds(data.UserID, side, base, quote, price, qty); err != nil {
		e.rejectOrder(env, err)
		return
	}

	order := &domain.Order{
		ID:          uuid.NewString(),
		UserID:      data.UserID,
		Side:        side,
		PriceMicros: price,
		QtySats:     qty,
	}
	res := b.AddOrder(order)
	e.ledger.SettleFills(order, res.Fills, base, quote)

	fills := make([]event.OrderFill, 0, len(res.Fills))
	for _, f := range res.Fills {
		fills = append(fills, event.OrderFill{
			Price:   f.PriceMicros.String(),
			Qty:     f.QtySats.String(),
			TradeID: f.TradeID,
		})
	}
	e.reply(env, event.Message{
		Type: event.TypeOrderPlaced,
		Payload: event.OrderPlacedPayload{
			OrderID:     order.ID,
			ExecutedQty: res.ExecutedSats.String(),
			Fills:       fills,
		},
	})
}

func (e *Engine) handleCancelOrder(env event.Envelope) {
	var data event.CancelOrderData
	if err := env.Decode(&data); err != nil {
		e.rejectOrder(env, err)
		return
	}

	b, base, quote, err := e.resolveMarket(data.Market)
	if err != nil {
		e.rejectOrder(env, err)
		return
	}

	cancelled, err := b.CancelOrder(data.OrderID)
	if err != nil {
		e.rejectOrder(env, err)
		return
	}

	// Release exactly what still backed the unfilled remainder, at the
	// order's original price.
	e.ledger.CancelUnlock(cancelled.UserID, cancelled.Side, base, quote,
		cancelled.PriceMicros, cancelled.RemainingSats())

	e.reply(env, event.Message{
		Type: event.TypeOrderCancelled,
		Payload: event.OrderCancelledPayload{
			OrderID:      cancelled.ID,
			ExecutedQty:  cancelled.FilledSats.String(),
			RemainingQty: cancelled.RemainingSats().String(),
		},
	})
}

func (e *Engine) handleOnRamp(env event.Envelope) {
	var data event.OnRampData
	if err := env.Decode(&data); err != nil {
		slog.Warn("on-ramp rejected", slog.Any("reason", err))
		return
	}

	amount, err := quant.ParsePrice(data.Amount)
	if err != nil || amount <= 0 {
		slog.Warn("on-ramp rejected", slog.String("amount", data.Amount), slog.Any("error", err))
		return
	}

	e.ledger.OnRamp(data.UserID, BaseCurrency, int64(amount), data.TxnID)
	e.reply(env, event.Message{
		Type:    event.TypeOnRampAck,
		Payload: event.OnRampAckPayload{UserID: data.UserID, TxnID: data.TxnID},
	})
}

func (e *Engine) handleGetDepth(env event.Envelope) {
	var data event.GetDepthData
	if err := env.Decode(&data); err != nil {
		e.reply(env, event.Message{Type: event.TypeDepth, Payload: event.DepthPayload{Market: data.Market}})
		return
	}

	b, _, _, err := e.resolveMarket(data.Market)
	if err != nil {
		slog.Warn("depth for unknown market", slog.String("market", data.Market))
		e.reply(env, event.Message{Type: event.TypeDepth, Payload: event.DepthPayload{Market: data.Market}})
		return
	}

	bids, asks := b.Depth()
	payload := event.DepthPayload{
		Market: data.Market,
		Bids:   make([]event.PriceLevel, 0, len(bids)),
		Asks:   make([]event.PriceLevel, 0, len(asks)),
	}
	for _, lvl := range bids {
		payload.Bids = append(payload.Bids, event.PriceLevel{lvl.PriceMicros.String(), lvl.QtySats.String()})
	}
	for _, lvl := range asks {
		payload.Asks = append(payload.Asks, event.PriceLevel{lvl.PriceMicros.String(), lvl.QtySats.String()})
	}
	e.reply(env, event.Message{Type: event.TypeDepth, Payload: payload})
}

func (e *Engine) handleGetOpenOrders(env event.Envelope) {
	var data event.GetOpenOrdersData
	if err := env.Decode(&data); err != nil {
		e.reply(env, event.Message{Type: event.TypeOpenOrders, Payload: event.OpenOrdersPayload{}})
		return
	}

	b, _, _, err := e.resolveMarket(data.Market)
	if err != nil {
		e.reply(env, event.Message{Type: event.TypeOpenOrders, Payload: event.OpenOrdersPayload{}})
		return
	}

	payload := make(event.OpenOrdersPayload, 0)
	for _, o := range b.OpenOrders(data.UserID) {
		payload = append(payload, event.OpenOrder{
			OrderID:     o.ID,
			Market:      data.Market,
			Price:       o.PriceMicros.String(),
			Quantity:    o.QtySats.String(),
			Side:        string(o.Side),
			UserID:      o.UserID,
			ExecutedQty: o.FilledSats.String(),
		})
	}
	e.reply(env, event.Message{Type: event.TypeOpenOrders, Payload: payload})
}

// resolveMarket validates the ticker and finds its book.
func (e *Engine) resolveMarket(market string) (*book.Book, string, string, error) {
	base, quote, err := domain.SplitTicker(market)
	if err != nil {
		return nil, "", "", err
	}
	b, ok := e.books[market]
	if !ok {
		return nil, "", "", fmt.Errorf("market %s: %w", market, domain.ErrMarketNotFound)
	}
	return b, base, quote, nil
}

// writeSnapshot dumps the whole engine synchronously. A failed write is
// logged and skipped: the accepted data-loss window is one interval.
func (e *Engine) writeSnapshot() {
	if e.store == nil {
		return
	}

	e.snapSeq++
	snap := &storage.Snapshot{
		Version:    storage.SchemaVersion,
		Seq:        e.snapSeq,
		TsUnix:     time.Now().Unix(),
		Orderbooks: make([]book.Snapshot, 0, len(e.books)),
		Balances:   e.ledger.Snapshot(),
	}

	tickers := make([]string, 0, len(e.books))
	for ticker := range e.books {
		tickers = append(tickers, ticker)
	}
	sort.Strings(tickers)
	for _, ticker := range tickers {
		snap.Orderbooks = append(snap.Orderbooks, e.books[ticker].Snapshot())
	}

	if err := e.store.Save(snap); err != nil {
		slog.Warn("snapshot write failed, skipping", slog.Any("error", err))
		e.snapSeq-- // reuse the seq next interval
		return
	}
	if err := e.store.Cleanup(e.snapKeep); err != nil {
		slog.Warn("snapshot cleanup failed", slog.Any("error", err))
	}
}
