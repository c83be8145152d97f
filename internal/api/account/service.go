package account

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/tommyle1310/TomTrade-sub000/internal/ledger"
)

// Balances and positions are read-only here: cash and shares move only
// inside settlement transactions.

func GetBalanceHandler(ctx context.Context, accounts ledger.AccountReader) fiber.Handler {
	return func(c fiber.Ctx) error {
		userId, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.ErrBadRequest
		}

		balance, err := accounts.GetBalance(ctx, userId)
		if err != nil {
			if errors.Is(err, ledger.ErrAccountNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Account not found",
				})
			}
			return err
		}
		return c.JSON(BalanceShowSchema{
			UserId: balance.UserId,
			Amount: balance.Amount,
		})
	}
}

func GetPositionsHandler(ctx context.Context, accounts ledger.AccountReader) fiber.Handler {
	return func(c fiber.Ctx) error {
		userId, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.ErrBadRequest
		}

		positions, err := accounts.GetPositions(ctx, userId)
		if err != nil {
			return err
		}
		if positions == nil {
			positions = []ledger.Position{}
		}
		return c.JSON(PositionsShowSchema{
			UserId:    userId,
			Positions: positions,
		})
	}
}
