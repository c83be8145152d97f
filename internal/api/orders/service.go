package orders

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/tommyle1310/TomTrade-sub000/internal/engine"
	"github.com/tommyle1310/TomTrade-sub000/internal/helper"
)

func PlaceOrderHandler(ctx context.Context, eng *engine.Engine) fiber.Handler {
	return func(c fiber.Ctx) error {
		// Parse place order schema
		var body = PlaceOrderSchema{}
		if err := c.Bind().Body(&body); err != nil {
			return fiber.ErrBadRequest
		}
		if err := helper.ValidateInput(&body); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		order, err := engine.NewOrder(engine.OrderParams{
			OwnerId:      body.OwnerId,
			Ticker:       body.Ticker,
			Side:         body.Side,
			Type:         body.Type,
			LimitPrice:   body.LimitPrice,
			TriggerPrice: body.TriggerPrice,
			Quantity:     body.Quantity,
			TimeInForce:  body.TimeInForce,
		})
		if err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		placed, err := eng.PlaceOrder(ctx, order)
		if err != nil {
			return err
		}
		return c.JSON(placed)
	}
}

func CancelOrderHandler(ctx context.Context, eng *engine.Engine) fiber.Handler {
	return func(c fiber.Ctx) error {
		orderId, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.ErrBadRequest
		}

		var body = CancelOrderSchema{}
		if err := c.Bind().Body(&body); err != nil {
			return fiber.ErrBadRequest
		}
		if err := helper.ValidateInput(&body); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		order, err := eng.CancelOrder(ctx, orderId, body.RequesterId)
		if err != nil {
			if errors.Is(err, engine.ErrOrderNotFound) {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "Order not found",
				})
			}
			return err
		}
		return c.JSON(order)
	}
}

func GetOrderBookHandler(eng *engine.Engine) fiber.Handler {
	return func(c fiber.Ctx) error {
		ticker := c.Query("ticker")
		if ticker == "" {
			return fiber.ErrBadRequest
		}

		buys, sells := eng.GetOrderBook(ticker)
		return c.JSON(OrderBookShowSchema{
			Ticker:     ticker,
			BuyOrders:  buys,
			SellOrders: sells,
		})
	}
}

func GetDepthHandler(eng *engine.Engine) fiber.Handler {
	return func(c fiber.Ctx) error {
		ticker := c.Query("ticker")
		if ticker == "" {
			return fiber.ErrBadRequest
		}

		bids, asks := eng.GetDepth(ticker)
		return c.JSON(DepthShowSchema{Ticker: ticker, Bids: bids, Asks: asks})
	}
}

func PriceTickHandler(ctx context.Context, eng *engine.Engine) fiber.Handler {
	return func(c fiber.Ctx) error {
		var body = PriceTickSchema{}
		if err := c.Bind().Body(&body); err != nil {
			return fiber.ErrBadRequest
		}
		if err := helper.ValidateInput(&body); err != nil {
			return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		eng.OnPriceTick(ctx, body.Ticker, body.Price)
		return c.SendStatus(fiber.StatusNoContent)
	}
}
