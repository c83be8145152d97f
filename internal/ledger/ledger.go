// Package ledger implements the durable stores the matching engine settles
// against: a Postgres-backed ledger for production and an in-memory ledger
// with the same contract for tests and local runs.
package ledger

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrAccountNotFound = errors.New("account not found")

// Balance is one user's cash. It moves only inside a settlement transaction.
type Balance struct {
	UserId uuid.UUID       `json:"user_id"`
	Amount decimal.Decimal `json:"amount"`
}

// Position is one user's holding in one ticker, carried at weighted-average
// cost. Quantity never goes negative; a position emptied by sells is removed.
type Position struct {
	UserId       uuid.UUID       `json:"user_id"`
	Ticker       string          `json:"ticker"`
	Quantity     decimal.Decimal `json:"quantity"`
	AveragePrice decimal.Decimal `json:"average_price"`
}

// AccountReader is the read-only surface the API exposes for balances and
// positions.
type AccountReader interface {
	GetBalance(ctx context.Context, userId uuid.UUID) (Balance, error)
	GetPositions(ctx context.Context, userId uuid.UUID) ([]Position, error)
}

// weightedAverage returns the new average price after buying qty at price on
// top of an existing holding.
func weightedAverage(oldQty, oldAvg, qty, price decimal.Decimal) decimal.Decimal {
	newQty := oldQty.Add(qty)
	if newQty.IsZero() {
		return decimal.Zero
	}
	return oldQty.Mul(oldAvg).Add(qty.Mul(price)).Div(newQty)
}
