package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	seedCoupons(db)
	seedOrders(db)

	log.Println("Seeding completed successfully!")
}

func seedCoupons(db *sql.DB) {
	coupons := []struct {
		Code    string
		Percent int32
		UserID  string
	}{
		{"GIFT4K2M9P", 10, "0d3aa0bc-6f5d-4c62-9f51-1db6f2a0c101"},
		{"GIFTQ7W3E8", 10, "4be0a6e4-92cf-4d1e-8e4a-7f3d9b2c5d02"},
		{"GIFTZX81LM", 15, "9c17d8f2-3ab4-4e6b-b1c9-52e8a4d7e303"},
	}

	fmt.Println("Seeding Coupons...")
	for _, c := range coupons {
		_, err := db.Exec(`
			INSERT INTO coupons (code, discount_percentage, user_id, is_active, expires_at)
			VALUES ($1, $2, $3, true, $4)
			ON CONFLICT (code, user_id) DO NOTHING;
		`, c.Code, c.Percent, c.UserID, time.Now().Add(30*24*time.Hour))
		if err != nil {
			log.Printf("Failed to seed coupon %s: %v", c.Code, err)
		}
	}
}

func seedOrders(db *sql.DB) {
	orders := []struct {
		UserID     string
		Items      string
		Total      int64
		Provider   string
		PaymentRef string
	}{
		{
			"0d3aa0bc-6f5d-4c62-9f51-1db6f2a0c101",
			`[{"productId":"prod-001","name":"Trail Running Shoes","qty":1,"unitPrice":12999}]`,
			12999,
			"stripe",
			"cs_test_seed_0001",
		},
		{
			"4be0a6e4-92cf-4d1e-8e4a-7f3d9b2c5d02",
			`[{"productId":"prod-002","name":"Insulated Water Bottle","qty":2,"unitPrice":2450}]`,
			4900,
			"esewa",
			"seed-txn-0002",
		},
	}

	fmt.Println("Seeding Orders...")
	for _, o := range orders {
		_, err := db.Exec(`
			INSERT INTO orders (user_id, items, total_amount, provider, payment_ref, raw_payload)
			VALUES ($1, $2, $3, $4, $5, '{}')
			ON CONFLICT ON CONSTRAINT orders_provider_payment_ref_key DO NOTHING;
		`, o.UserID, o.Items, o.Total, o.Provider, o.PaymentRef)
		if err != nil {
			log.Printf("Failed to seed order %s: %v", o.PaymentRef, err)
		}
	}
}
