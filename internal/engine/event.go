package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventType string

const (
	EventOrderFilled          EventType = "ORDER_FILLED"
	EventOrderPartiallyFilled EventType = "ORDER_PARTIALLY_FILLED"
	EventOrderCancelled       EventType = "ORDER_CANCELLED"
	EventPriceAlertTriggered  EventType = "PRICE_ALERT_TRIGGERED"
)

// Event is the closed set of notifications the engine emits. Every variant
// carries the same fixed field set; quantity and price are zero for
// cancellations that never traded.
type Event struct {
	Type             EventType       `json:"type"`
	OrderId          uuid.UUID       `json:"order_id"`
	Ticker           string          `json:"ticker"`
	Side             Side            `json:"side"`
	ExecutedQuantity decimal.Decimal `json:"executed_quantity"`
	ExecutedPrice    decimal.Decimal `json:"executed_price"`
	At               time.Time       `json:"at"`
}

// Notifier is the one-way event sink the engine publishes to. Publishing is
// best effort: a failing sink never rolls back a settled trade.
type Notifier interface {
	Publish(ctx context.Context, ev Event) error
}

func fillEvent(o *Order, qty, price decimal.Decimal, at time.Time) Event {
	typ := EventOrderPartiallyFilled
	if o.Status == Filled {
		typ = EventOrderFilled
	}
	return Event{
		Type:             typ,
		OrderId:          o.Id,
		Ticker:           o.Ticker,
		Side:             o.Side,
		ExecutedQuantity: qty,
		ExecutedPrice:    price,
		At:               at,
	}
}

func cancelEvent(o *Order, at time.Time) Event {
	return Event{
		Type:    EventOrderCancelled,
		OrderId: o.Id,
		Ticker:  o.Ticker,
		Side:    o.Side,
		At:      at,
	}
}
