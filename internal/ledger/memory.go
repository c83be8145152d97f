package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tommyle1310/TomTrade-sub000/internal/engine"
)

type positionKey struct {
	userId uuid.UUID
	ticker string
}

// Memory is an in-process ledger with the same settlement semantics as the
// Postgres one: every Settle call either commits cash move, position update,
// trade record and both order updates together, or leaves no trace.
type Memory struct {
	mu        sync.Mutex
	balances  map[uuid.UUID]decimal.Decimal
	positions map[positionKey]Position
	orders    map[uuid.UUID]engine.Order
	trades    []engine.Trade
}

func NewMemory() *Memory {
	return &Memory{
		balances:  make(map[uuid.UUID]decimal.Decimal),
		positions: make(map[positionKey]Position),
		orders:    make(map[uuid.UUID]engine.Order),
	}
}

// SetBalance seeds a user's cash. Test and local-run helper.
func (m *Memory) SetBalance(userId uuid.UUID, amount decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[userId] = amount
}

// SetPosition seeds a user's holding. Test and local-run helper.
func (m *Memory) SetPosition(userId uuid.UUID, ticker string, qty, avgPrice decimal.Decimal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[positionKey{userId, ticker}] = Position{
		UserId:       userId,
		Ticker:       ticker,
		Quantity:     qty,
		AveragePrice: avgPrice,
	}
}

func (m *Memory) Settle(ctx context.Context, taker, maker *engine.Order, price, qty decimal.Decimal) (*engine.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buyOrder, sellOrder := taker, maker
	if taker.Side == engine.Sell {
		buyOrder, sellOrder = maker, taker
	}
	total := price.Mul(qty)

	// Defensive re-checks before anything moves. Both parties need a
	// balance entry; crediting a non-account would leak cash out of the
	// ledger.
	if m.balances[buyOrder.OwnerId].LessThan(total) {
		return nil, engine.ErrInsufficientFunds
	}
	if _, ok := m.balances[sellOrder.OwnerId]; !ok {
		return nil, fmt.Errorf("seller %s: %w", sellOrder.OwnerId, ErrAccountNotFound)
	}
	sellKey := positionKey{sellOrder.OwnerId, sellOrder.Ticker}
	sellPos, ok := m.positions[sellKey]
	if !ok || sellPos.Quantity.LessThan(qty) {
		return nil, engine.ErrInsufficientShares
	}

	m.balances[buyOrder.OwnerId] = m.balances[buyOrder.OwnerId].Sub(total)
	m.balances[sellOrder.OwnerId] = m.balances[sellOrder.OwnerId].Add(total)

	sellPos.Quantity = sellPos.Quantity.Sub(qty)
	if sellPos.Quantity.IsZero() {
		delete(m.positions, sellKey)
	} else {
		m.positions[sellKey] = sellPos
	}

	buyKey := positionKey{buyOrder.OwnerId, buyOrder.Ticker}
	buyPos, ok := m.positions[buyKey]
	if !ok {
		buyPos = Position{UserId: buyOrder.OwnerId, Ticker: buyOrder.Ticker}
	}
	buyPos.AveragePrice = weightedAverage(buyPos.Quantity, buyPos.AveragePrice, qty, price)
	buyPos.Quantity = buyPos.Quantity.Add(qty)
	m.positions[buyKey] = buyPos

	now := time.Now().UTC()
	trade := engine.Trade{
		Id:          uuid.New(),
		BuyOrderId:  buyOrder.Id,
		SellOrderId: sellOrder.Id,
		BuyerId:     buyOrder.OwnerId,
		SellerId:    sellOrder.OwnerId,
		Ticker:      taker.Ticker,
		Price:       price,
		Quantity:    qty,
		ExecutedAt:  now,
	}
	m.trades = append(m.trades, trade)

	m.applyFill(taker, qty, now)
	m.applyFill(maker, qty, now)

	return &trade, nil
}

// applyFill persists an order's post-fill state without touching the copy the
// engine holds.
func (m *Memory) applyFill(o *engine.Order, qty decimal.Decimal, at time.Time) {
	stored := *o
	stored.Remaining = o.Remaining.Sub(qty)
	stored.MatchedAt = &at
	if stored.Remaining.IsZero() {
		stored.Status = engine.Filled
	} else {
		stored.Status = engine.Partial
	}
	m.orders[stored.Id] = stored
}

func (m *Memory) SaveOrder(ctx context.Context, o *engine.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[o.Id] = *o
	return nil
}

func (m *Memory) UpdateOrder(ctx context.Context, o *engine.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.orders[o.Id]; !ok {
		return engine.ErrOrderNotFound
	}
	m.orders[o.Id] = *o
	return nil
}

func (m *Memory) GetOrder(ctx context.Context, id uuid.UUID) (*engine.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, engine.ErrOrderNotFound
	}
	return &o, nil
}

func (m *Memory) OpenOrders(ctx context.Context) ([]*engine.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*engine.Order
	for _, o := range m.orders {
		if !o.IsTerminal() {
			cp := o
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) GetBalance(ctx context.Context, userId uuid.UUID) (Balance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	amount, ok := m.balances[userId]
	if !ok {
		return Balance{}, ErrAccountNotFound
	}
	return Balance{UserId: userId, Amount: amount}, nil
}

func (m *Memory) GetPositions(ctx context.Context, userId uuid.UUID) ([]Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Position
	for _, p := range m.positions {
		if p.UserId == userId {
			out = append(out, p)
		}
	}
	return out, nil
}

// Trades returns every settled trade in execution order.
func (m *Memory) Trades() []engine.Trade {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]engine.Trade, len(m.trades))
	copy(out, m.trades)
	return out
}
