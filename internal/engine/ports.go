package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInvalidOrder       = errors.New("invalid order")
	ErrOrderNotFound      = errors.New("order not found")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
)

// Trade is the immutable record of one execution. One canonical row carries
// both sides, so share conservation holds per row by construction.
type Trade struct {
	Id          uuid.UUID       `json:"id"`
	BuyOrderId  uuid.UUID       `json:"buy_order_id"`
	SellOrderId uuid.UUID       `json:"sell_order_id"`
	BuyerId     uuid.UUID       `json:"buyer_id"`
	SellerId    uuid.UUID       `json:"seller_id"`
	Ticker      string          `json:"ticker"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	ExecutedAt  time.Time       `json:"executed_at"`
}

// Ledger is the durable transactional store the engine settles against.
//
// Settle commits one execution atomically: it moves cash between the buyer
// and seller, applies the weighted-average-cost position update, writes the
// trade record and persists both orders with their post-fill remaining
// quantity and status. It must re-verify funds and shares defensively and
// return ErrInsufficientFunds / ErrInsufficientShares without side effects
// when the check fails. Both participants must already hold a balance row;
// settlement aborts rather than debit cash it cannot credit back. Settle
// never mutates the passed orders; the engine applies the in-memory
// decrement only after Settle returns success.
type Ledger interface {
	Settle(ctx context.Context, taker, maker *Order, price, qty decimal.Decimal) (*Trade, error)
	SaveOrder(ctx context.Context, o *Order) error
	UpdateOrder(ctx context.Context, o *Order) error
	GetOrder(ctx context.Context, id uuid.UUID) (*Order, error)
	OpenOrders(ctx context.Context) ([]*Order, error)
}
