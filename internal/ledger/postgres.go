package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/tommyle1310/TomTrade-sub000/internal/engine"
)

// Postgres settles trades against the relational ledger. Every Settle call is
// one serializable transaction; participant balance and position rows are
// locked in sorted user-id order so two concurrent settlements touching the
// same pair of users cannot deadlock.
type Postgres struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func NewPostgres(pool *pgxpool.Pool, log *zap.Logger) *Postgres {
	if log == nil {
		log = zap.NewNop()
	}
	return &Postgres{pool: pool, log: log}
}

func (p *Postgres) Settle(ctx context.Context, taker, maker *engine.Order, price, qty decimal.Decimal) (*engine.Trade, error) {
	buyOrder, sellOrder := taker, maker
	if taker.Side == engine.Sell {
		buyOrder, sellOrder = maker, taker
	}
	total := price.Mul(qty)

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// Lock both participants' balance rows in one ordered pass.
	participants := []uuid.UUID{buyOrder.OwnerId, sellOrder.OwnerId}
	rows, err := tx.Query(ctx, `
		SELECT user_id, amount
		FROM balances
		WHERE user_id = ANY($1)
		ORDER BY user_id
		FOR UPDATE
	`, participants)
	if err != nil {
		return nil, err
	}
	balances := make(map[uuid.UUID]decimal.Decimal)
	for rows.Next() {
		var userId uuid.UUID
		var amount decimal.Decimal
		if err := rows.Scan(&userId, &amount); err != nil {
			rows.Close()
			return nil, err
		}
		balances[userId] = amount
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	buyerBalance, ok := balances[buyOrder.OwnerId]
	if !ok || buyerBalance.LessThan(total) {
		return nil, engine.ErrInsufficientFunds
	}
	// Without a seller row the credit below would hit zero rows and the
	// debited cash would vanish from the ledger.
	if _, ok := balances[sellOrder.OwnerId]; !ok {
		return nil, fmt.Errorf("seller %s: %w", sellOrder.OwnerId, ErrAccountNotFound)
	}

	if _, err := tx.Exec(ctx,
		"UPDATE balances SET amount = amount - $1 WHERE user_id = $2",
		total, buyOrder.OwnerId); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE balances SET amount = amount + $1 WHERE user_id = $2",
		total, sellOrder.OwnerId); err != nil {
		return nil, err
	}

	// Position rows, same lock order.
	rows, err = tx.Query(ctx, `
		SELECT user_id, quantity
		FROM positions
		WHERE ticker = $1 AND user_id = ANY($2)
		ORDER BY user_id
		FOR UPDATE
	`, taker.Ticker, participants)
	if err != nil {
		return nil, err
	}
	held := make(map[uuid.UUID]decimal.Decimal)
	for rows.Next() {
		var userId uuid.UUID
		var quantity decimal.Decimal
		if err := rows.Scan(&userId, &quantity); err != nil {
			rows.Close()
			return nil, err
		}
		held[userId] = quantity
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sellerHeld, ok := held[sellOrder.OwnerId]
	if !ok || sellerHeld.LessThan(qty) {
		return nil, engine.ErrInsufficientShares
	}

	if _, err := tx.Exec(ctx, `
		UPDATE positions SET quantity = quantity - $1
		WHERE user_id = $2 AND ticker = $3
	`, qty, sellOrder.OwnerId, taker.Ticker); err != nil {
		return nil, err
	}
	if _, err := tx.Exec(ctx, `
		DELETE FROM positions
		WHERE user_id = $1 AND ticker = $2 AND quantity = 0
	`, sellOrder.OwnerId, taker.Ticker); err != nil {
		return nil, err
	}

	// Buyer side at weighted-average cost. The conflict branch reads the
	// pre-update row values, which is exactly what the formula needs.
	if _, err := tx.Exec(ctx, `
		INSERT INTO positions (user_id, ticker, quantity, average_price)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id, ticker) DO UPDATE SET
			average_price = (positions.quantity * positions.average_price + EXCLUDED.quantity * EXCLUDED.average_price)
				/ (positions.quantity + EXCLUDED.quantity),
			quantity = positions.quantity + EXCLUDED.quantity
	`, buyOrder.OwnerId, taker.Ticker, qty, price); err != nil {
		return nil, err
	}

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
	if _, err := tx.Exec(ctx, `
		INSERT INTO trades (id, buy_order_id, sell_order_id, buyer_id, seller_id, ticker, price, quantity, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, trade.Id, trade.BuyOrderId, trade.SellOrderId, trade.BuyerId, trade.SellerId,
		trade.Ticker, trade.Price, trade.Quantity, trade.ExecutedAt); err != nil {
		return nil, err
	}

	// Both orders' post-fill state commits with the money moves.
	for _, o := range []*engine.Order{taker, maker} {
		remaining := o.Remaining.Sub(qty)
		status := engine.Partial
		if remaining.IsZero() {
			status = engine.Filled
		}
		if _, err := tx.Exec(ctx, `
			UPDATE orders SET remaining_quantity = $1, status = $2, matched_at = $3
			WHERE id = $4
		`, remaining, status, now, o.Id); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	p.log.Debug("settled trade",
		zap.String("trade", trade.Id.String()),
		zap.String("ticker", trade.Ticker),
		zap.String("price", trade.Price.String()),
		zap.String("quantity", trade.Quantity.String()))
	return &trade, nil
}

func (p *Postgres) SaveOrder(ctx context.Context, o *engine.Order) error {
	_, err := p.pool.Exec(ctx, `
		INSERT INTO orders (id, owner_id, ticker, side, type, limit_price, trigger_price,
			quantity, remaining_quantity, time_in_force, status, created_at, matched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, o.Id, o.OwnerId, o.Ticker, o.Side, o.Type, o.LimitPrice, o.TriggerPrice,
		o.Quantity, o.Remaining, o.TimeInForce, o.Status, o.CreatedAt, o.MatchedAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (p *Postgres) UpdateOrder(ctx context.Context, o *engine.Order) error {
	_, err := p.pool.Exec(ctx, `
		UPDATE orders SET remaining_quantity = $1, status = $2, matched_at = $3
		WHERE id = $4
	`, o.Remaining, o.Status, o.MatchedAt, o.Id)
	return err
}

func (p *Postgres) GetOrder(ctx context.Context, id uuid.UUID) (*engine.Order, error) {
	var o engine.Order
	err := p.pool.QueryRow(ctx, `
		SELECT id, owner_id, ticker, side, type, limit_price, trigger_price,
			quantity, remaining_quantity, time_in_force, status, created_at, matched_at
		FROM orders
		WHERE id = $1
	`, id).Scan(&o.Id, &o.OwnerId, &o.Ticker, &o.Side, &o.Type, &o.LimitPrice, &o.TriggerPrice,
		&o.Quantity, &o.Remaining, &o.TimeInForce, &o.Status, &o.CreatedAt, &o.MatchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, engine.ErrOrderNotFound
		}
		return nil, err
	}
	return &o, nil
}

func (p *Postgres) OpenOrders(ctx context.Context) ([]*engine.Order, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, owner_id, ticker, side, type, limit_price, trigger_price,
			quantity, remaining_quantity, time_in_force, status, created_at, matched_at
		FROM orders
		WHERE status IN ('OPEN', 'PARTIAL', 'PENDING_TRIGGER')
		ORDER BY created_at
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*engine.Order
	for rows.Next() {
		var o engine.Order
		if err := rows.Scan(&o.Id, &o.OwnerId, &o.Ticker, &o.Side, &o.Type, &o.LimitPrice, &o.TriggerPrice,
			&o.Quantity, &o.Remaining, &o.TimeInForce, &o.Status, &o.CreatedAt, &o.MatchedAt); err != nil {
			return nil, err
		}
		out = append(out, &o)
	}
	return out, rows.Err()
}

func (p *Postgres) GetBalance(ctx context.Context, userId uuid.UUID) (Balance, error) {
	b := Balance{UserId: userId}
	err := p.pool.QueryRow(ctx,
		"SELECT amount FROM balances WHERE user_id = $1", userId).Scan(&b.Amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Balance{}, ErrAccountNotFound
		}
		return Balance{}, err
	}
	return b, nil
}

func (p *Postgres) GetPositions(ctx context.Context, userId uuid.UUID) ([]Position, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT user_id, ticker, quantity, average_price
		FROM positions
		WHERE user_id = $1
		ORDER BY ticker
	`, userId)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Position
	for rows.Next() {
		var pos Position
		if err := rows.Scan(&pos.UserId, &pos.Ticker, &pos.Quantity, &pos.AveragePrice); err != nil {
			return nil, err
		}
		out = append(out, pos)
	}
	return out, rows.Err()
}
