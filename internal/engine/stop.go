package engine

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// triggered reports whether a pending stop order fires at the given price:
// a BUY stop at tick >= trigger, a SELL stop at tick <= trigger.
func triggered(s *Order, price decimal.Decimal) bool {
	if s.Side == Buy {
		return price.GreaterThanOrEqual(s.TriggerPrice)
	}
	return price.LessThanOrEqual(s.TriggerPrice)
}

// fireStops converts every pending stop whose trigger condition the price
// meets, in FIFO order of original placement, and feeds each converted order
// straight into the matching loop. Trades produced by a conversion move the
// evaluation price, so one tick can cascade. Caller holds the market lock;
// the queue strictly shrinks, so the cascade terminates.
func (e *Engine) fireStops(ctx context.Context, m *market, price decimal.Decimal) {
	for price.IsPositive() {
		s := e.popTriggered(m, price)
		if s == nil {
			return
		}

		// The stop itself is done: it becomes CANCELLED and a fresh live
		// order takes over its owner, ticker, side and quantity.
		s.cancel()
		if err := e.ledger.UpdateOrder(ctx, s); err != nil {
			e.log.Error("persist converted stop order",
				zap.String("order", s.Id.String()), zap.Error(err))
		}
		e.publish(ctx, Event{
			Type:          EventPriceAlertTriggered,
			OrderId:       s.Id,
			Ticker:        s.Ticker,
			Side:          s.Side,
			ExecutedPrice: price,
			At:            time.Now().UTC(),
		})

		conv, err := e.convertStop(s)
		if err != nil {
			e.log.Error("convert stop order",
				zap.String("order", s.Id.String()), zap.Error(err))
			continue
		}
		if err := e.ledger.SaveOrder(ctx, conv); err != nil {
			e.log.Error("save converted order",
				zap.String("order", conv.Id.String()), zap.Error(err))
			continue
		}
		e.log.Info("stop order triggered",
			zap.String("stop", s.Id.String()),
			zap.String("converted", conv.Id.String()),
			zap.String("ticker", s.Ticker),
			zap.String("tick_price", price.String()))

		last, err := e.run(ctx, m, conv)
		if err != nil {
			e.log.Error("match converted order",
				zap.String("order", conv.Id.String()), zap.Error(err))
			continue
		}
		if last.IsPositive() {
			price = last
		}
	}
}

func (e *Engine) popTriggered(m *market, price decimal.Decimal) *Order {
	for i, s := range m.stops {
		if triggered(s, price) {
			m.stops = append(m.stops[:i], m.stops[i+1:]...)
			return s
		}
	}
	return nil
}

// convertStop builds the live order a triggered stop turns into: STOP_LIMIT
// becomes LIMIT at its stored limit price, STOP_MARKET becomes MARKET.
func (e *Engine) convertStop(s *Order) (*Order, error) {
	p := OrderParams{
		OwnerId:     s.OwnerId,
		Ticker:      s.Ticker,
		Side:        s.Side,
		Quantity:    s.Quantity,
		TimeInForce: s.TimeInForce,
	}
	if s.Type == StopLimit {
		p.Type = Limit
		p.LimitPrice = s.LimitPrice
	} else {
		p.Type = Market
	}
	return NewOrder(p)
}
