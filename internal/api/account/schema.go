package account

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tommyle1310/TomTrade-sub000/internal/ledger"
)

type BalanceShowSchema struct {
	UserId uuid.UUID       `json:"user_id" validate:"required"`
	Amount decimal.Decimal `json:"amount" validate:"required"`
}

type PositionsShowSchema struct {
	UserId    uuid.UUID         `json:"user_id" validate:"required"`
	Positions []ledger.Position `json:"positions" validate:"required"`
}
