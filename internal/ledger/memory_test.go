package ledger_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tommyle1310/TomTrade-sub000/internal/engine"
	"github.com/tommyle1310/TomTrade-sub000/internal/ledger"
)

func d(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func pairedOrders(t *testing.T, buyer, seller uuid.UUID, price, qty int64) (taker, maker *engine.Order) {
	t.Helper()
	buy, err := engine.NewOrder(engine.OrderParams{
		OwnerId:    buyer,
		Ticker:     "AAPL",
		Side:       engine.Buy,
		Type:       engine.Limit,
		LimitPrice: d(price),
		Quantity:   d(qty),
	})
	require.NoError(t, err)
	sell, err := engine.NewOrder(engine.OrderParams{
		OwnerId:    seller,
		Ticker:     "AAPL",
		Side:       engine.Sell,
		Type:       engine.Limit,
		LimitPrice: d(price),
		Quantity:   d(qty),
	})
	require.NoError(t, err)
	return buy, sell
}

func TestSettleMovesCashAndShares(t *testing.T) {
	mem := ledger.NewMemory()
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	mem.SetBalance(buyer, d(5000))
	mem.SetBalance(seller, d(100))
	mem.SetPosition(seller, "AAPL", d(10), d(150))

	buy, sell := pairedOrders(t, buyer, seller, 190, 10)
	require.NoError(t, mem.SaveOrder(ctx, buy))
	require.NoError(t, mem.SaveOrder(ctx, sell))

	trade, err := mem.Settle(ctx, buy, sell, d(190), d(10))
	require.NoError(t, err)
	assert.Equal(t, buyer, trade.BuyerId)
	assert.Equal(t, seller, trade.SellerId)
	assert.Equal(t, "1900", trade.Price.Mul(trade.Quantity).String())

	buyerBal, err := mem.GetBalance(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, "3100", buyerBal.Amount.String())
	sellerBal, err := mem.GetBalance(ctx, seller)
	require.NoError(t, err)
	assert.Equal(t, "2000", sellerBal.Amount.String())

	sellerPositions, err := mem.GetPositions(ctx, seller)
	require.NoError(t, err)
	assert.Empty(t, sellerPositions, "emptied position is deleted")
}

func TestSettleWeightedAverageCost(t *testing.T) {
	mem := ledger.NewMemory()
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	mem.SetBalance(buyer, d(10000))
	mem.SetBalance(seller, d(0))
	mem.SetPosition(buyer, "AAPL", d(10), d(100))
	mem.SetPosition(seller, "AAPL", d(10), d(100))

	buy, sell := pairedOrders(t, buyer, seller, 200, 10)
	require.NoError(t, mem.SaveOrder(ctx, buy))
	require.NoError(t, mem.SaveOrder(ctx, sell))

	_, err := mem.Settle(ctx, buy, sell, d(200), d(10))
	require.NoError(t, err)

	positions, err := mem.GetPositions(ctx, buyer)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	// (10*100 + 10*200) / 20
	assert.Equal(t, "150", positions[0].AveragePrice.String())
	assert.Equal(t, "20", positions[0].Quantity.String())
}

func TestSettleRejectsInsufficientFunds(t *testing.T) {
	mem := ledger.NewMemory()
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	mem.SetBalance(buyer, d(100))
	mem.SetBalance(seller, d(0))
	mem.SetPosition(seller, "AAPL", d(10), d(150))

	buy, sell := pairedOrders(t, buyer, seller, 190, 10)
	require.NoError(t, mem.SaveOrder(ctx, buy))
	require.NoError(t, mem.SaveOrder(ctx, sell))

	_, err := mem.Settle(ctx, buy, sell, d(190), d(10))
	assert.ErrorIs(t, err, engine.ErrInsufficientFunds)

	// Nothing moved.
	buyerBal, err := mem.GetBalance(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, "100", buyerBal.Amount.String())
	assert.Empty(t, mem.Trades())
	stored, err := mem.GetOrder(ctx, buy.Id)
	require.NoError(t, err)
	assert.Equal(t, engine.Open, stored.Status)
}

func TestSettleRejectsInsufficientShares(t *testing.T) {
	mem := ledger.NewMemory()
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	mem.SetBalance(buyer, d(5000))
	mem.SetBalance(seller, d(0))
	mem.SetPosition(seller, "AAPL", d(4), d(150))

	buy, sell := pairedOrders(t, buyer, seller, 190, 10)
	require.NoError(t, mem.SaveOrder(ctx, buy))
	require.NoError(t, mem.SaveOrder(ctx, sell))

	_, err := mem.Settle(ctx, buy, sell, d(190), d(10))
	assert.ErrorIs(t, err, engine.ErrInsufficientShares)

	positions, err := mem.GetPositions(ctx, seller)
	require.NoError(t, err)
	require.Len(t, positions, 1)
	assert.Equal(t, "4", positions[0].Quantity.String())
	assert.Empty(t, mem.Trades())
}

func TestSettleRejectsSellerWithoutBalanceEntry(t *testing.T) {
	mem := ledger.NewMemory()
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	mem.SetBalance(buyer, d(5000))
	// The seller holds shares but was never given a balance entry: the
	// credit would have nowhere to land, so settlement must refuse.
	mem.SetPosition(seller, "AAPL", d(10), d(150))

	buy, sell := pairedOrders(t, buyer, seller, 190, 10)
	require.NoError(t, mem.SaveOrder(ctx, buy))
	require.NoError(t, mem.SaveOrder(ctx, sell))

	_, err := mem.Settle(ctx, buy, sell, d(190), d(10))
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)

	// The buyer's debit did not happen without the matching credit.
	buyerBal, err := mem.GetBalance(ctx, buyer)
	require.NoError(t, err)
	assert.Equal(t, "5000", buyerBal.Amount.String())
	assert.Empty(t, mem.Trades())
}

func TestSettlePersistsOrderStateWithoutMutatingInputs(t *testing.T) {
	mem := ledger.NewMemory()
	ctx := context.Background()
	buyer, seller := uuid.New(), uuid.New()
	mem.SetBalance(buyer, d(5000))
	mem.SetBalance(seller, d(0))
	mem.SetPosition(seller, "AAPL", d(10), d(150))

	buy, sell := pairedOrders(t, buyer, seller, 100, 10)
	require.NoError(t, mem.SaveOrder(ctx, buy))
	require.NoError(t, mem.SaveOrder(ctx, sell))

	_, err := mem.Settle(ctx, buy, sell, d(100), d(4))
	require.NoError(t, err)

	// The engine owns the in-memory copies; Settle leaves them alone.
	assert.Equal(t, "10", buy.Remaining.String())
	assert.Equal(t, engine.Open, buy.Status)

	storedBuy, err := mem.GetOrder(ctx, buy.Id)
	require.NoError(t, err)
	assert.Equal(t, "6", storedBuy.Remaining.String())
	assert.Equal(t, engine.Partial, storedBuy.Status)
	require.NotNil(t, storedBuy.MatchedAt)

	storedSell, err := mem.GetOrder(ctx, sell.Id)
	require.NoError(t, err)
	assert.Equal(t, engine.Partial, storedSell.Status)
}

func TestOpenOrdersExcludesTerminal(t *testing.T) {
	mem := ledger.NewMemory()
	ctx := context.Background()
	owner := uuid.New()

	open, cancelled := pairedOrders(t, owner, owner, 100, 10)
	cancelled.Status = engine.Cancelled
	require.NoError(t, mem.SaveOrder(ctx, open))
	require.NoError(t, mem.SaveOrder(ctx, cancelled))

	orders, err := mem.OpenOrders(ctx)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, open.Id, orders[0].Id)
}
