package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/stockflow/stockflow-golang/internal/database"
	"github.com/stockflow/stockflow-golang/internal/events"
	"github.com/stockflow/stockflow-golang/internal/handlers"
	"github.com/stockflow/stockflow-golang/internal/routes"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	// 1. --- Database Connection ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// 2. --- Migrations ---
	migrationsDir := os.Getenv("MIGRATIONS_DIR")
	if migrationsDir == "" {
		migrationsDir = "migrations"
	}
	if err := database.Migrate(context.Background(), db, migrationsDir); err != nil {
		log.Fatalf("Failed to apply migrations: %v", err)
	}

	// 3. --- Event Publisher (Optional) ---
	// Downstream fulfillment listens on RabbitMQ; without a broker the
	// store still runs, it just confirms orders silently.
	var publisher *events.Publisher
	if amqpURL := os.Getenv("AMQP_URL"); amqpURL != "" {
		publisher, err = events.Dial(amqpURL)
		if err != nil {
			log.Fatalf("Failed to connect to RabbitMQ: %v", err)
		}
		defer publisher.Close()
		log.Println("Connected to RabbitMQ, order-confirmed events enabled")
	} else {
		log.Println("AMQP_URL not set, order-confirmed events disabled")
	}

	// --- Application Setup ---
	// We inject the dependencies into the Handlers struct.
	app := &handlers.Handlers{
		DB:     db,
		Events: publisher,
	}

	// --- Router Setup ---
	router := routes.SetupRouter(app)

	// --- Start Server ---
	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	log.Printf("Starting StockFlow request store on %s...", addr)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
