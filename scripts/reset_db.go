package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"jobflow-backend/internal/cache"
	"jobflow-backend/internal/models"
)

// Clears file tracking so orders can be worked again from scratch. Orders and
// employees are kept; NAS folders are not touched.
func main() {
	fmt.Println("========================================")
	fmt.Println("   Reset Job Tracking for Testing")
	fmt.Println("========================================")
	fmt.Println()
	fmt.Println("⚠️  WARNING: This will DELETE ALL TRACKING DATA!")
	fmt.Println()
	fmt.Println("This will:")
	fmt.Println("  - Delete all job events")
	fmt.Println("  - Clear the progress of every order")
	fmt.Println("  - Forget the shared NAS session")
	fmt.Println("  - Drop cached NAS folder listings")
	fmt.Println()
	fmt.Print("Type 'yes' to confirm: ")

	var confirm string
	fmt.Scanln(&confirm)

	if confirm != "yes" {
		fmt.Println("Reset cancelled.")
		return
	}

	// Load environment variables
	godotenv.Load()

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_NAME", "jobflow_db"),
		getEnv("DB_SSLMODE", "disable"),
	)

	pool, err := pgxpool.New(context.Background(), connStr)
	if err != nil {
		log.Fatalf("Unable to connect to database: %v\n", err)
	}
	defer pool.Close()

	fmt.Println()
	fmt.Println("🔄 Resetting job tracking...")

	ctx := context.Background()
	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("Failed to begin transaction: %v\n", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "TRUNCATE TABLE job_events RESTART IDENTITY"); err != nil {
		log.Fatalf("Failed to truncate job_events: %v\n", err)
	}
	fmt.Println("  ✓ Cleared job_events")

	tag, err := tx.Exec(ctx, `
		UPDATE orders
		SET progress = '{}'::jsonb, status = $1, production = 0, version = version + 1, updated_at = NOW()`,
		models.OrderStatusPending,
	)
	if err != nil {
		log.Fatalf("Failed to reset orders: %v\n", err)
	}
	fmt.Printf("  ✓ Reset %d order(s)\n", tag.RowsAffected())

	if _, err := tx.Exec(ctx, `DELETE FROM system_settings WHERE setting_key = $1`, models.SettingNASSession); err != nil {
		log.Fatalf("Failed to clear NAS session: %v\n", err)
	}
	fmt.Println("  ✓ Cleared NAS session")

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("Failed to commit transaction: %v\n", err)
	}

	// Cached listings would still hide files claimed before the reset
	redisAddr := fmt.Sprintf("%s:%s", getEnv("REDIS_HOST", "localhost"), getEnv("REDIS_PORT", "6379"))
	if err := cache.Init(redisAddr, os.Getenv("REDIS_PASSWORD"), 0); err != nil {
		fmt.Printf("  ⊘ Redis unavailable at %s, no cached listings to clear\n", redisAddr)
	} else {
		cache.InvalidateAllListings(ctx)
		if client := cache.GetClient(); client != nil {
			client.Del(ctx, cache.NASSessionKey)
		}
		cache.Close()
		fmt.Println("  ✓ Cleared cached listings and NAS session")
	}

	fmt.Println()
	fmt.Println("✅ Job tracking reset successful!")
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
