package engine

import (
	rbt "github.com/emirpasic/gods/trees/redblacktree"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// book holds the resting orders of one ticker: two red-black trees of price
// levels, each level a FIFO queue of orders at that price. Tree order puts
// the best level first (highest bid, lowest ask), so price-time priority is
// iteration order.
type book struct {
	ticker string
	bids   *rbt.Tree
	asks   *rbt.Tree
	byId   map[uuid.UUID]*Order
}

type priceLevel struct {
	price  decimal.Decimal
	orders []*Order
}

func newBook(ticker string) *book {
	return &book{
		ticker: ticker,
		bids:   rbt.NewWith(bidComparator),
		asks:   rbt.NewWith(askComparator),
		byId:   make(map[uuid.UUID]*Order),
	}
}

func bidComparator(a, b interface{}) int {
	aAsserted := a.(decimal.Decimal)
	bAsserted := b.(decimal.Decimal)
	switch {
	case aAsserted.GreaterThan(bAsserted):
		return -1
	case aAsserted.LessThan(bAsserted):
		return 1
	default:
		return 0
	}
}

func askComparator(a, b interface{}) int {
	aAsserted := a.(decimal.Decimal)
	bAsserted := b.(decimal.Decimal)
	switch {
	case aAsserted.GreaterThan(bAsserted):
		return 1
	case aAsserted.LessThan(bAsserted):
		return -1
	default:
		return 0
	}
}

func (b *book) treeFor(side Side) *rbt.Tree {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

// insert adds a resting order behind every order already queued at its price.
// Only LIMIT orders rest; callers guarantee remaining > 0.
func (b *book) insert(o *Order) {
	tree := b.treeFor(o.Side)
	if node, ok := tree.Get(o.LimitPrice); ok {
		level := node.(*priceLevel)
		level.orders = append(level.orders, o)
	} else {
		tree.Put(o.LimitPrice, &priceLevel{price: o.LimitPrice, orders: []*Order{o}})
	}
	b.byId[o.Id] = o
}

func (b *book) get(id uuid.UUID) (*Order, bool) {
	o, ok := b.byId[id]
	return o, ok
}

func (b *book) remove(id uuid.UUID) bool {
	o, ok := b.byId[id]
	if !ok {
		return false
	}
	delete(b.byId, id)
	tree := b.treeFor(o.Side)
	node, ok := tree.Get(o.LimitPrice)
	if !ok {
		return false
	}
	level := node.(*priceLevel)
	level.orders = lo.Filter(level.orders, func(r *Order, _ int) bool {
		return r.Id != id
	})
	if len(level.orders) == 0 {
		tree.Remove(o.LimitPrice)
	}
	return true
}

// bestOpposite returns the highest-priority resting order on the opposite
// side that the taker's price allows, or nil when none is eligible. Levels
// beyond the first are never better, so one look suffices.
func (b *book) bestOpposite(taker *Order) *Order {
	it := b.treeFor(taker.Side.Opposite()).Iterator()
	if !it.Next() {
		return nil
	}
	level := it.Value().(*priceLevel)
	if !taker.priceAllows(level.price) {
		return nil
	}
	return level.orders[0]
}

// canFill reports whether eligible opposite liquidity covers the full
// quantity. Used for the FOK all-or-nothing check before any fill runs.
func (b *book) canFill(taker *Order, qty decimal.Decimal) bool {
	available := decimal.Zero
	it := b.treeFor(taker.Side.Opposite()).Iterator()
	for it.Next() {
		level := it.Value().(*priceLevel)
		if !taker.priceAllows(level.price) {
			break
		}
		for _, o := range level.orders {
			available = available.Add(o.Remaining)
			if available.GreaterThanOrEqual(qty) {
				return true
			}
		}
	}
	return false
}

// sideOrders returns copies of one side's resting orders in price-time
// priority order.
func (b *book) sideOrders(side Side) []Order {
	var out []Order
	it := b.treeFor(side).Iterator()
	for it.Next() {
		for _, o := range it.Value().(*priceLevel).orders {
			out = append(out, *o)
		}
	}
	return out
}

// depth aggregates one side per price level, best level first.
func (b *book) depth(side Side) [][2]decimal.Decimal {
	out := make([][2]decimal.Decimal, 0)
	it := b.treeFor(side).Iterator()
	for it.Next() {
		level := it.Value().(*priceLevel)
		total := lo.Reduce(level.orders, func(acc decimal.Decimal, o *Order, _ int) decimal.Decimal {
			return acc.Add(o.Remaining)
		}, decimal.Zero)
		out = append(out, [2]decimal.Decimal{level.price, total})
	}
	return out
}
