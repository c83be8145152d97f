package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/tommyle1310/TomTrade-sub000/internal/engine"
)

// Log writes events to the process logger. Default sink when no broker is
// configured.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{log: log}
}

func (l *Log) Publish(ctx context.Context, ev engine.Event) error {
	l.log.Info("engine event",
		zap.String("type", string(ev.Type)),
		zap.String("order", ev.OrderId.String()),
		zap.String("ticker", ev.Ticker),
		zap.String("side", string(ev.Side)),
		zap.String("executed_quantity", ev.ExecutedQuantity.String()),
		zap.String("executed_price", ev.ExecutedPrice.String()))
	return nil
}
