package main

import (
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// Seeds the coupon catalog with the codes a demo restaurant starts with.
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

	log.Println("Seeding completed successfully!")
}

func seedCoupons(db *sql.DB) {
	coupons := []struct {
		Code        string
		Kind        string
		Value       int64
		MinOrder    int64
		Description string
	}{
		{"WELCOME10", "percentage", 1000, 0, "10% off for first time guests"},
		{"NEW20", "percentage", 2000, 30000, "20% off on orders above Rs 300"},
		{"FLAT50", "flat", 5000, 20000, "Rs 50 off on orders above Rs 200"},
		{"SAVE100", "flat", 10000, 50000, "Rs 100 off on orders above Rs 500"},
		{"TEA5", "flat", 500, 0, "Rs 5 off any order"},
	}

	log.Println("Seeding Coupons...")
	for _, c := range coupons {
		_, err := db.Exec(`
			INSERT INTO coupons (code, kind, value, min_order_amount, description, active)
			VALUES ($1, $2, $3, $4, $5, TRUE)
			ON CONFLICT (code) DO UPDATE SET
				kind = EXCLUDED.kind,
				value = EXCLUDED.value,
				min_order_amount = EXCLUDED.min_order_amount,
				description = EXCLUDED.description,
				active = TRUE,
				updated_at = now();
		`, c.Code, c.Kind, c.Value, c.MinOrder, c.Description)
		if err != nil {
			log.Printf("Failed to seed coupon %s: %v", c.Code, err)
		}
	}
}
