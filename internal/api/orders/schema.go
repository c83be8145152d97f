package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tommyle1310/TomTrade-sub000/internal/engine"
)

type PlaceOrderSchema struct {
	OwnerId      uuid.UUID          `json:"owner_id" validate:"required"`
	Ticker       string             `json:"ticker" validate:"required"`
	Side         engine.Side        `json:"side" validate:"required,oneof=BUY SELL"`
	Type         engine.OrderType   `json:"type" validate:"required,oneof=LIMIT MARKET STOP_LIMIT STOP_MARKET"`
	LimitPrice   decimal.Decimal    `json:"limit_price"`
	TriggerPrice decimal.Decimal    `json:"trigger_price"`
	Quantity     decimal.Decimal    `json:"quantity" validate:"required"`
	TimeInForce  engine.TimeInForce `json:"time_in_force" validate:"omitempty,oneof=GTC IOC FOK"`
}

type CancelOrderSchema struct {
	RequesterId uuid.UUID `json:"requester_id" validate:"required"`
}

type PriceTickSchema struct {
	Ticker string          `json:"ticker" validate:"required"`
	Price  decimal.Decimal `json:"price" validate:"required"`
}

type OrderBookShowSchema struct {
	Ticker     string         `json:"ticker"`
	BuyOrders  []engine.Order `json:"buy_orders"`
	SellOrders []engine.Order `json:"sell_orders"`
}

type DepthShowSchema struct {
	Ticker string               `json:"ticker"`
	Bids   [][2]decimal.Decimal `json:"bids"`
	Asks   [][2]decimal.Decimal `json:"asks"`
}
