package main

import (
	"errors"
	"log"
	"os"

	migrate "github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	sourceURL := os.Getenv("MIGRATIONS_DIR")
	if sourceURL == "" {
		sourceURL = "file://db/migrations"
	}

	direction := "up"
	if len(os.Args) > 1 {
		direction = os.Args[1]
	}

	m, err := migrate.New(sourceURL, dbURL)
	if err != nil {
		log.Fatalf("Failed to initialise migrate: %v", err)
	}
	defer func() {
		if _, err := m.Close(); err != nil {
			log.Printf("Failed to close migrate: %v", err)
		}
	}()

	switch direction {
	case "up":
		err = m.Up()
	case "down":
		err = m.Steps(-1)
	default:
		log.Fatalf("Unknown direction %q, want up or down", direction)
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		log.Fatalf("Migration %s failed: %v", direction, err)
	}
	log.Printf("Migration %s completed", direction)
}
