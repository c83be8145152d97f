package api

import (
	"github.com/gofiber/fiber/v3"

	"github.com/tommyle1310/TomTrade-sub000/internal/api/account"
	"github.com/tommyle1310/TomTrade-sub000/internal/api/orders"
	"github.com/tommyle1310/TomTrade-sub000/internal/engine"
	"github.com/tommyle1310/TomTrade-sub000/internal/ledger"
)

func InitializeRoutes(app *fiber.App, eng *engine.Engine, accounts ledger.AccountReader) {
	orders.InitializeRoutes(app, eng)
	account.InitializeRoutes(app, accounts)
}
