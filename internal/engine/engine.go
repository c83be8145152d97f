package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Engine matches incoming orders against per-ticker books and settles every
// fill through the ledger. Matching for one ticker is serialized behind that
// ticker's market lock; different tickers match in parallel. The ledger is
// the source of truth, the books a cache rebuilt through Restore.
type Engine struct {
	log      *zap.Logger
	ledger   Ledger
	notifier Notifier

	mu      sync.Mutex
	markets map[string]*market
}

type market struct {
	mu    sync.Mutex
	book  *book
	stops []*Order
}

func New(ledger Ledger, notifier Notifier, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		log:      log,
		ledger:   ledger,
		notifier: notifier,
		markets:  make(map[string]*market),
	}
}

func (e *Engine) market(ticker string) *market {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.markets[ticker]
	if !ok {
		m = &market{book: newBook(ticker)}
		e.markets[ticker] = m
	}
	return m
}

// Restore rebuilds the in-memory books and stop queues from the ledger's
// non-terminal orders, oldest first so time priority survives a restart.
func (e *Engine) Restore(ctx context.Context) error {
	orders, err := e.ledger.OpenOrders(ctx)
	if err != nil {
		return fmt.Errorf("restore order books: %w", err)
	}
	sort.Slice(orders, func(i, j int) bool {
		return orders[i].CreatedAt.Before(orders[j].CreatedAt)
	})
	for _, o := range orders {
		m := e.market(o.Ticker)
		m.mu.Lock()
		switch {
		case o.Status == PendingTrigger:
			m.stops = append(m.stops, o)
		case o.Type == Limit && o.Remaining.IsPositive():
			m.book.insert(o)
		}
		m.mu.Unlock()
	}
	e.log.Info("order books restored", zap.Int("orders", len(orders)))
	return nil
}

// detach snapshots an order for return to a caller. The live order may keep
// resting on the book and mutate under the market lock; callers read their
// own copy.
func detach(o *Order) *Order {
	cp := *o
	return &cp
}

// PlaceOrder runs one synchronous matching pass and returns the order in its
// final state: OPEN or PARTIAL resting, FILLED, or CANCELLED. Stop orders are
// queued as PENDING_TRIGGER and never touch the book until triggered. The
// returned order is a snapshot; the passed order belongs to the engine after
// this call and must not be read again.
func (e *Engine) PlaceOrder(ctx context.Context, o *Order) (*Order, error) {
	m := e.market(o.Ticker)
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := e.ledger.SaveOrder(ctx, o); err != nil {
		return nil, fmt.Errorf("save order: %w", err)
	}
	if o.Status == PendingTrigger {
		m.stops = append(m.stops, o)
		e.log.Info("stop order pending trigger",
			zap.String("order", o.Id.String()),
			zap.String("ticker", o.Ticker),
			zap.String("trigger_price", o.TriggerPrice.String()))
		return detach(o), nil
	}

	last, err := e.run(ctx, m, o)
	if err != nil {
		return nil, err
	}
	e.fireStops(ctx, m, last)
	return detach(o), nil
}

// run executes the matching loop and the time-in-force finalization for one
// incoming order. Caller holds the market lock. Returns the last executed
// price (zero when nothing traded). An error is returned only when it
// prevented any fill; committed fills are never unwound by a later failure.
func (e *Engine) run(ctx context.Context, m *market, o *Order) (decimal.Decimal, error) {
	last := decimal.Zero

	// FOK is all-or-nothing: verify the whole quantity is coverable before
	// the first fill, otherwise kill with zero trades.
	if o.TimeInForce == FOK && !m.book.canFill(o, o.Remaining) {
		e.cancelOrder(ctx, o)
		return last, nil
	}

	filledAny := false
	for o.Remaining.IsPositive() {
		best := m.book.bestOpposite(o)
		if best == nil {
			break
		}
		qty := decimal.Min(o.Remaining, best.Remaining)
		price := best.LimitPrice // maker price rule

		trade, err := e.ledger.Settle(ctx, o, best, price, qty)
		if err != nil {
			makerFailed := (errors.Is(err, ErrInsufficientFunds) && o.Side == Sell) ||
				(errors.Is(err, ErrInsufficientShares) && o.Side == Buy)
			if makerFailed {
				// The resting side no longer has the cash or shares it
				// would need. Pull it and keep sweeping.
				e.log.Warn("maker failed settlement re-check",
					zap.String("maker", best.Id.String()), zap.Error(err))
				m.book.remove(best.Id)
				e.cancelOrder(ctx, best)
				continue
			}
			if errors.Is(err, ErrInsufficientFunds) || errors.Is(err, ErrInsufficientShares) {
				// Taker cannot pay or deliver at the best price; every
				// further candidate is worse.
				e.log.Warn("taker failed settlement re-check",
					zap.String("taker", o.Id.String()), zap.Error(err))
				break
			}
			if filledAny {
				e.log.Error("settlement aborted mid-sweep",
					zap.String("taker", o.Id.String()), zap.Error(err))
				break
			}
			return last, fmt.Errorf("settle: %w", err)
		}

		o.fill(qty, trade.ExecutedAt)
		best.fill(qty, trade.ExecutedAt)
		filledAny = true
		last = price
		if best.Status == Filled {
			m.book.remove(best.Id)
		}
		e.log.Info("trade executed",
			zap.String("ticker", o.Ticker),
			zap.String("taker", o.Id.String()),
			zap.String("maker", best.Id.String()),
			zap.String("price", price.String()),
			zap.String("quantity", qty.String()))
		e.publish(ctx, fillEvent(o, qty, price, trade.ExecutedAt))
		e.publish(ctx, fillEvent(best, qty, price, trade.ExecutedAt))
	}

	e.finalize(ctx, m, o)
	return last, nil
}

// finalize applies the time-in-force rules to whatever is left of the taker
// after the sweep.
func (e *Engine) finalize(ctx context.Context, m *market, o *Order) {
	if o.IsTerminal() || !o.Remaining.IsPositive() {
		return
	}
	switch {
	case o.Type == Market:
		// No price to rest at; the remainder cancels no matter the TIF.
		e.cancelOrder(ctx, o)
	case o.TimeInForce == IOC, o.TimeInForce == FOK:
		e.cancelOrder(ctx, o)
	default:
		m.book.insert(o)
	}
}

// cancelOrder marks the order CANCELLED, persists it and emits the event.
// A persistence failure here is logged, not propagated: the fills already
// committed stand and the caller still sees the final in-memory state.
func (e *Engine) cancelOrder(ctx context.Context, o *Order) {
	o.cancel()
	if err := e.ledger.UpdateOrder(ctx, o); err != nil {
		e.log.Error("persist cancelled order",
			zap.String("order", o.Id.String()), zap.Error(err))
	}
	e.publish(ctx, cancelEvent(o, time.Now().UTC()))
}

// CancelOrder cancels a resting or pending-trigger order owned by the
// requester. Cancellation is advisory: when the order already reached a
// terminal state the current state is returned, never an error.
func (e *Engine) CancelOrder(ctx context.Context, orderId, requesterId uuid.UUID) (*Order, error) {
	stored, err := e.ledger.GetOrder(ctx, orderId)
	if err != nil {
		return nil, err
	}
	if stored.OwnerId != requesterId {
		return nil, ErrOrderNotFound
	}

	m := e.market(stored.Ticker)
	m.mu.Lock()
	defer m.mu.Unlock()

	if o, ok := m.book.get(orderId); ok {
		m.book.remove(orderId)
		e.cancelOrder(ctx, o)
		return detach(o), nil
	}
	for i, s := range m.stops {
		if s.Id == orderId {
			m.stops = append(m.stops[:i], m.stops[i+1:]...)
			e.cancelOrder(ctx, s)
			return detach(s), nil
		}
	}

	// Not live anymore: it filled or was cancelled a moment earlier. Hand
	// back the committed state.
	return e.ledger.GetOrder(ctx, orderId)
}

// GetOrderBook returns the resting orders of one ticker, both sides sorted
// by price-time priority.
func (e *Engine) GetOrderBook(ticker string) (buys, sells []Order) {
	m := e.market(ticker)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.sideOrders(Buy), m.book.sideOrders(Sell)
}

// GetDepth returns the book aggregated per price level.
func (e *Engine) GetDepth(ticker string) (bids, asks [][2]decimal.Decimal) {
	m := e.market(ticker)
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.book.depth(Buy), m.book.depth(Sell)
}

// OnPriceTick feeds one market-data tick into the stop-order monitor.
func (e *Engine) OnPriceTick(ctx context.Context, ticker string, price decimal.Decimal) {
	m := e.market(ticker)
	m.mu.Lock()
	defer m.mu.Unlock()
	e.fireStops(ctx, m, price)
}

func (e *Engine) publish(ctx context.Context, ev Event) {
	if e.notifier == nil {
		return
	}
	if err := e.notifier.Publish(ctx, ev); err != nil {
		e.log.Warn("publish event",
			zap.String("type", string(ev.Type)),
			zap.String("order", ev.OrderId.String()),
			zap.Error(err))
	}
}
