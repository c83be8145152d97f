package orders

import (
	"context"

	"github.com/gofiber/fiber/v3"

	"github.com/tommyle1310/TomTrade-sub000/internal/engine"
)

func InitializeRoutes(app *fiber.App, eng *engine.Engine) {
	app.Post("/v1/orders", PlaceOrderHandler(context.Background(), eng))
	app.Post("/v1/orders/:id/cancel", CancelOrderHandler(context.Background(), eng))
	app.Get("/v1/order_book", GetOrderBookHandler(eng))
	app.Get("/v1/order_book/depth", GetDepthHandler(eng))
	app.Post("/v1/ticks", PriceTickHandler(context.Background(), eng))
}
