package main

import (
	"context"
	"log"
	"os"
	"strings"

	"github.com/gofiber/fiber/v3"
	"go.uber.org/zap"

	"github.com/tommyle1310/TomTrade-sub000/internal/api"
	"github.com/tommyle1310/TomTrade-sub000/internal/db"
	"github.com/tommyle1310/TomTrade-sub000/internal/engine"
	"github.com/tommyle1310/TomTrade-sub000/internal/ledger"
	"github.com/tommyle1310/TomTrade-sub000/internal/notify"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// Initialize a new Fiber app
	app := fiber.New()

	// DB connection
	pool := db.NewConnection()
	defer pool.Close()

	store := ledger.NewPostgres(pool, logger)

	// Events go to Kafka when brokers are configured, otherwise to the log.
	var notifier engine.Notifier
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		topic := os.Getenv("KAFKA_TOPIC")
		if topic == "" {
			topic = "engine-events"
		}
		kafkaNotifier := notify.NewKafka(strings.Split(brokers, ","), topic)
		defer kafkaNotifier.Close()
		notifier = kafkaNotifier
	} else {
		notifier = notify.NewLog(logger)
	}

	eng := engine.New(store, notifier, logger)
	if err := eng.Restore(context.Background()); err != nil {
		logger.Fatal("restore order books", zap.Error(err))
	}

	// Initialize the API routes
	api.InitializeRoutes(app, eng, store)

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8000"
	}
	log.Fatal(app.Listen(addr))
}
