// internal/repository/migrations.go
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Migrate creates the gateway's own tables. The commerce backend owns every
// other entity; only attempt auditing lives here.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	schema := `
        CREATE TABLE IF NOT EXISTS payment_attempts (
            id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
            payment_id   TEXT NOT NULL UNIQUE,
            order_id     TEXT,
            invoice_id   TEXT,
            provider     TEXT,
            final_status TEXT NOT NULL,
            result_code  INTEGER,
            source       TEXT,
            armed_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
            resolved_at  TIMESTAMPTZ
        );
        CREATE INDEX IF NOT EXISTS idx_payment_attempts_armed_at
            ON payment_attempts (armed_at DESC);`

	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate payment_attempts: %w", err)
	}
	return nil
}
