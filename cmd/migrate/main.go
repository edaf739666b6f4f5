package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// migration is one named, ordered schema step. Versions already recorded
// in schema_migrations are skipped.
type migration struct {
	version string
	stmt    string
}

var migrations = []migration{
	{
		version: "001_payment_events",
		stmt: `
		CREATE TABLE IF NOT EXISTS payment_events (
			id            BIGSERIAL PRIMARY KEY,
			provider      TEXT NOT NULL,
			direction     TEXT NOT NULL CHECK (direction IN ('OUT', 'IN')),
			order_ref     TEXT NOT NULL DEFAULT '',
			payment_id    TEXT NOT NULL DEFAULT '',
			raw_status    TEXT NOT NULL DEFAULT '',
			verified      BOOLEAN NOT NULL DEFAULT FALSE,
			payload       JSONB,
			process_error TEXT,
			reconciled_at TIMESTAMPTZ,
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE INDEX IF NOT EXISTS idx_payment_events_dedup
			ON payment_events (provider, payment_id, raw_status)
			WHERE direction = 'IN' AND reconciled_at IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_payment_events_order
			ON payment_events (order_ref);
		`,
	},
	{
		version: "002_orders",
		stmt: `
		CREATE TABLE IF NOT EXISTS orders (
			id             TEXT PRIMARY KEY,
			amount_minor   BIGINT NOT NULL,
			currency       TEXT NOT NULL DEFAULT 'RUB',
			customer_email TEXT NOT NULL DEFAULT '',
			customer_phone TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'PENDING',
			payment_meta   JSONB,
			created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		`,
	},
}

func main() {
	_ = godotenv.Load()

	dbURL := os.Getenv("DB_URL")
	if dbURL == "" {
		log.Fatal("DB_URL not set in environment")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("failed to connect db: %v", err)
	}
	defer db.Close()

	if err := run(db); err != nil {
		log.Fatal(err)
	}
	log.Println("migrations applied")
}

func run(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to ensure schema_migrations table: %w", err)
	}

	for _, m := range migrations {
		var exists bool
		if err := db.QueryRow(
			`SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.version,
		).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check migration %s: %w", m.version, err)
		}
		if exists {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return err
		}
		if _, err := tx.Exec(m.stmt); err != nil {
			tx.Rollback()
			return fmt.Errorf("migration %s failed: %w", m.version, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1)`, m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration %s: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return err
		}
		log.Printf("applied %s", m.version)
	}

	return nil
}
