package engine_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tommyle1310/TomTrade-sub000/internal/engine"
)

func stopOrder(t *testing.T, owner uuid.UUID, side engine.Side, typ engine.OrderType, ticker string, trigger, limit, qty int64) *engine.Order {
	t.Helper()
	p := engine.OrderParams{
		OwnerId:      owner,
		Ticker:       ticker,
		Side:         side,
		Type:         typ,
		TriggerPrice: d(trigger),
		Quantity:     d(qty),
	}
	if typ == engine.StopLimit {
		p.LimitPrice = d(limit)
	}
	return newOrder(t, p)
}

func TestBuyStopStaysPendingBelowTrigger(t *testing.T) {
	eng, mem, rec := newTestEngine()
	ctx := context.Background()
	owner := uuid.New()
	mem.SetBalance(owner, d(10000))

	stop, err := eng.PlaceOrder(ctx, stopOrder(t, owner, engine.Buy, engine.StopMarket, "AAPL", 200, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, engine.PendingTrigger, stop.Status)

	eng.OnPriceTick(ctx, "AAPL", d(199))

	stored, err := mem.GetOrder(ctx, stop.Id)
	require.NoError(t, err)
	assert.Equal(t, engine.PendingTrigger, stored.Status)
	assert.Empty(t, rec.byType(engine.EventPriceAlertTriggered))
}

func TestBuyStopTriggersAtOrAboveTrigger(t *testing.T) {
	eng, mem, rec := newTestEngine()
	ctx := context.Background()
	owner := uuid.New()
	mem.SetBalance(owner, d(10000))

	stop, err := eng.PlaceOrder(ctx, stopOrder(t, owner, engine.Buy, engine.StopMarket, "AAPL", 200, 0, 10))
	require.NoError(t, err)

	eng.OnPriceTick(ctx, "AAPL", d(200))

	stored, err := mem.GetOrder(ctx, stop.Id)
	require.NoError(t, err)
	assert.Equal(t, engine.Cancelled, stored.Status, "converted stop retires")

	alerts := rec.byType(engine.EventPriceAlertTriggered)
	require.Len(t, alerts, 1)
	assert.Equal(t, stop.Id, alerts[0].OrderId)
	assert.Equal(t, "200", alerts[0].ExecutedPrice.String())
}

func TestSellStopTriggersAtOrBelowTrigger(t *testing.T) {
	eng, mem, rec := newTestEngine()
	ctx := context.Background()
	owner := uuid.New()
	mem.SetBalance(owner, d(0))
	mem.SetPosition(owner, "AAPL", d(10), d(250))

	stop, err := eng.PlaceOrder(ctx, stopOrder(t, owner, engine.Sell, engine.StopMarket, "AAPL", 180, 0, 10))
	require.NoError(t, err)

	eng.OnPriceTick(ctx, "AAPL", d(181))
	assert.Empty(t, rec.byType(engine.EventPriceAlertTriggered))

	eng.OnPriceTick(ctx, "AAPL", d(180))
	require.Len(t, rec.byType(engine.EventPriceAlertTriggered), 1)

	stored, err := mem.GetOrder(ctx, stop.Id)
	require.NoError(t, err)
	assert.Equal(t, engine.Cancelled, stored.Status)
}

func TestStopLimitConvertsToLimitAndMatches(t *testing.T) {
	eng, mem, _ := newTestEngine()
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	mem.SetBalance(buyer, d(10000))
	mem.SetBalance(seller, d(0))
	mem.SetPosition(seller, "AAPL", d(10), d(90))

	_, err := eng.PlaceOrder(ctx, limitOrder(t, seller, engine.Sell, "AAPL", 100, 10, engine.GTC))
	require.NoError(t, err)
	_, err = eng.PlaceOrder(ctx, stopOrder(t, buyer, engine.Buy, engine.StopLimit, "AAPL", 100, 105, 10))
	require.NoError(t, err)

	eng.OnPriceTick(ctx, "AAPL", d(100))

	trades := mem.Trades()
	require.Len(t, trades, 1)
	assert.Equal(t, "100", trades[0].Price.String(), "converted limit pays the maker price")
	assert.Equal(t, buyer, trades[0].BuyerId)

	pos, ok := position(t, mem, buyer, "AAPL")
	require.True(t, ok)
	assert.Equal(t, "10", pos.Quantity.String())
}

func TestStopMarketConversionCancelsOnEmptyBook(t *testing.T) {
	eng, mem, rec := newTestEngine()
	ctx := context.Background()
	owner := uuid.New()
	mem.SetBalance(owner, d(10000))

	_, err := eng.PlaceOrder(ctx, stopOrder(t, owner, engine.Buy, engine.StopMarket, "AAPL", 200, 0, 10))
	require.NoError(t, err)

	eng.OnPriceTick(ctx, "AAPL", d(205))

	// Converted market order found no liquidity and cancelled.
	assert.Len(t, rec.byType(engine.EventOrderCancelled), 1)
	assert.Empty(t, mem.Trades())

	_, sells := eng.GetOrderBook("AAPL")
	assert.Empty(t, sells)
}

func TestStopsTriggerInPlacementOrder(t *testing.T) {
	eng, mem, rec := newTestEngine()
	ctx := context.Background()
	first, second := uuid.New(), uuid.New()
	mem.SetBalance(first, d(0))
	mem.SetBalance(second, d(0))
	mem.SetPosition(first, "AAPL", d(5), d(250))
	mem.SetPosition(second, "AAPL", d(5), d(250))

	s1, err := eng.PlaceOrder(ctx, stopOrder(t, first, engine.Sell, engine.StopMarket, "AAPL", 180, 0, 5))
	require.NoError(t, err)
	s2, err := eng.PlaceOrder(ctx, stopOrder(t, second, engine.Sell, engine.StopMarket, "AAPL", 185, 0, 5))
	require.NoError(t, err)

	eng.OnPriceTick(ctx, "AAPL", d(170))

	alerts := rec.byType(engine.EventPriceAlertTriggered)
	require.Len(t, alerts, 2)
	assert.Equal(t, s1.Id, alerts[0].OrderId)
	assert.Equal(t, s2.Id, alerts[1].OrderId)
}

func TestSettledTradeReevaluatesStops(t *testing.T) {
	eng, mem, _ := newTestEngine()
	ctx := context.Background()
	taker, stopOwner, seller := uuid.New(), uuid.New(), uuid.New()
	mem.SetBalance(taker, d(10000))
	mem.SetBalance(stopOwner, d(10000))
	mem.SetBalance(seller, d(0))
	mem.SetPosition(seller, "AAPL", d(10), d(80))

	// A buy stop waits at 100 while liquidity rests at exactly 100.
	_, err := eng.PlaceOrder(ctx, limitOrder(t, seller, engine.Sell, "AAPL", 100, 10, engine.GTC))
	require.NoError(t, err)
	_, err = eng.PlaceOrder(ctx, stopOrder(t, stopOwner, engine.Buy, engine.StopMarket, "AAPL", 100, 0, 5))
	require.NoError(t, err)

	// The taker's fill at 100 is itself the tick that fires the stop.
	_, err = eng.PlaceOrder(ctx, limitOrder(t, taker, engine.Buy, "AAPL", 100, 5, engine.GTC))
	require.NoError(t, err)

	trades := mem.Trades()
	require.Len(t, trades, 2)
	assert.Equal(t, stopOwner, trades[1].BuyerId)

	pos, ok := position(t, mem, stopOwner, "AAPL")
	require.True(t, ok)
	assert.Equal(t, "5", pos.Quantity.String())
}

func TestCancelPendingStopOrder(t *testing.T) {
	eng, mem, _ := newTestEngine()
	ctx := context.Background()
	owner := uuid.New()
	mem.SetBalance(owner, d(10000))

	stop, err := eng.PlaceOrder(ctx, stopOrder(t, owner, engine.Buy, engine.StopMarket, "AAPL", 200, 0, 10))
	require.NoError(t, err)

	cancelled, err := eng.CancelOrder(ctx, stop.Id, owner)
	require.NoError(t, err)
	assert.Equal(t, engine.Cancelled, cancelled.Status)

	// A later tick through the trigger does nothing.
	eng.OnPriceTick(ctx, "AAPL", d(205))
	assert.Empty(t, mem.Trades())
}
