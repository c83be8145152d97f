package db

import (
	"context"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// NewConnection builds the ledger's connection pool from DATABASE_URL and
// verifies the database is reachable before the engine starts settling
// against it.
func NewConnection() *pgxpool.Pool {
	err := godotenv.Load()
	if err != nil {
		log.Printf("Warning: Could not load .env file, using system environment variables")
	}

	config, err := pgxpool.ParseConfig(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("Failed to parse db config: %v", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		log.Fatalf("Failed to create db pool: %v", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		log.Fatalf("Database unreachable: %v", err)
	}

	return pool
}
