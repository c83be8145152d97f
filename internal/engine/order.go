package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Side string

const (
	Buy  Side = "BUY"
	Sell Side = "SELL"
)

func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

type OrderType string

const (
	Limit      OrderType = "LIMIT"
	Market     OrderType = "MARKET"
	StopLimit  OrderType = "STOP_LIMIT"
	StopMarket OrderType = "STOP_MARKET"
)

type TimeInForce string

const (
	GTC TimeInForce = "GTC"
	IOC TimeInForce = "IOC"
	FOK TimeInForce = "FOK"
)

type OrderStatus string

const (
	Open           OrderStatus = "OPEN"
	Partial        OrderStatus = "PARTIAL"
	Filled         OrderStatus = "FILLED"
	Cancelled      OrderStatus = "CANCELLED"
	PendingTrigger OrderStatus = "PENDING_TRIGGER"
)

// Order is a standing instruction to trade. Only the engine mutates it after
// creation; FILLED and CANCELLED are terminal.
type Order struct {
	Id           uuid.UUID       `json:"id"`
	OwnerId      uuid.UUID       `json:"owner_id"`
	Ticker       string          `json:"ticker"`
	Side         Side            `json:"side"`
	Type         OrderType       `json:"type"`
	LimitPrice   decimal.Decimal `json:"limit_price"`
	TriggerPrice decimal.Decimal `json:"trigger_price"`
	Quantity     decimal.Decimal `json:"quantity"`
	Remaining    decimal.Decimal `json:"remaining_quantity"`
	TimeInForce  TimeInForce     `json:"time_in_force"`
	Status       OrderStatus     `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	MatchedAt    *time.Time      `json:"matched_at"`
}

type OrderParams struct {
	OwnerId      uuid.UUID
	Ticker       string
	Side         Side
	Type         OrderType
	LimitPrice   decimal.Decimal
	TriggerPrice decimal.Decimal
	Quantity     decimal.Decimal
	TimeInForce  TimeInForce
}

// NewOrder validates params and builds an order in its initial status:
// PENDING_TRIGGER for stop types (invisible to the book until triggered),
// OPEN otherwise.
func NewOrder(p OrderParams) (*Order, error) {
	if p.Ticker == "" {
		return nil, fmt.Errorf("%w: ticker is required", ErrInvalidOrder)
	}
	if p.Side != Buy && p.Side != Sell {
		return nil, fmt.Errorf("%w: unknown side %q", ErrInvalidOrder, p.Side)
	}
	if !p.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: quantity must be positive", ErrInvalidOrder)
	}
	switch p.TimeInForce {
	case GTC, IOC, FOK:
	case "":
		p.TimeInForce = GTC
	default:
		return nil, fmt.Errorf("%w: unknown time in force %q", ErrInvalidOrder, p.TimeInForce)
	}

	status := Open
	switch p.Type {
	case Limit:
		if !p.LimitPrice.IsPositive() {
			return nil, fmt.Errorf("%w: limit order requires a positive limit price", ErrInvalidOrder)
		}
	case Market:
		if !p.LimitPrice.IsZero() {
			return nil, fmt.Errorf("%w: market order must not carry a limit price", ErrInvalidOrder)
		}
	case StopLimit:
		if !p.LimitPrice.IsPositive() {
			return nil, fmt.Errorf("%w: stop limit order requires a positive limit price", ErrInvalidOrder)
		}
		if !p.TriggerPrice.IsPositive() {
			return nil, fmt.Errorf("%w: stop order requires a positive trigger price", ErrInvalidOrder)
		}
		status = PendingTrigger
	case StopMarket:
		if !p.TriggerPrice.IsPositive() {
			return nil, fmt.Errorf("%w: stop order requires a positive trigger price", ErrInvalidOrder)
		}
		status = PendingTrigger
	default:
		return nil, fmt.Errorf("%w: unknown order type %q", ErrInvalidOrder, p.Type)
	}

	return &Order{
		Id:           uuid.New(),
		OwnerId:      p.OwnerId,
		Ticker:       p.Ticker,
		Side:         p.Side,
		Type:         p.Type,
		LimitPrice:   p.LimitPrice,
		TriggerPrice: p.TriggerPrice,
		Quantity:     p.Quantity,
		Remaining:    p.Quantity,
		TimeInForce:  p.TimeInForce,
		Status:       status,
		CreatedAt:    time.Now().UTC(),
	}, nil
}

func (o *Order) IsTerminal() bool {
	return o.Status == Filled || o.Status == Cancelled
}

// fill decrements the remaining quantity and moves status to PARTIAL or
// FILLED. Callers must already hold the market lock.
func (o *Order) fill(qty decimal.Decimal, at time.Time) {
	o.Remaining = o.Remaining.Sub(qty)
	o.MatchedAt = &at
	if o.Remaining.IsZero() {
		o.Status = Filled
	} else {
		o.Status = Partial
	}
}

func (o *Order) cancel() {
	o.Status = Cancelled
}

// priceAllows reports whether this taker may trade at the given maker price.
// Market takers accept any price.
func (o *Order) priceAllows(makerPrice decimal.Decimal) bool {
	if o.Type == Market {
		return true
	}
	if o.Side == Buy {
		return makerPrice.LessThanOrEqual(o.LimitPrice)
	}
	return makerPrice.GreaterThanOrEqual(o.LimitPrice)
}
