package account

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/tommyle1310/TomTrade-sub000/internal/ledger"
)

func InitializeRoutes(app *fiber.App, accounts ledger.AccountReader) {
	app.Get("/v1/accounts/:id/balance", GetBalanceHandler(context.Background(), accounts))
	app.Get("/v1/accounts/:id/positions", GetPositionsHandler(context.Background(), accounts))
}
