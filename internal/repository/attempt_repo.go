// internal/repository/attempt_repo.go
package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clivon254/TEO-KICKS-sub002/internal/domain"
)

// AttemptRepository stores payment attempt outcomes for the analytics pages.
type AttemptRepository interface {
	RecordArmed(ctx context.Context, attempt domain.Attempt) error
	RecordResolved(ctx context.Context, paymentID string, status domain.TrackingStatus, code *int, source string) error
	ListRecent(ctx context.Context, limit int) ([]domain.AttemptRecord, error)
}

type attemptRepo struct {
	db *pgxpool.Pool
}

func NewAttemptRepository(db *pgxpool.Pool) AttemptRepository {
	return &attemptRepo{db: db}
}

func (r *attemptRepo) RecordArmed(ctx context.Context, attempt domain.Attempt) error {
	query := `
        INSERT INTO payment_attempts (
            payment_id, order_id, invoice_id, provider, final_status, armed_at
        ) VALUES ($1, $2, $3, $4, $5, now())
        ON CONFLICT (payment_id) DO NOTHING`

	_, err := r.db.Exec(ctx, query,
		attempt.PaymentID,
		nullable(attempt.OrderID),
		nullable(attempt.InvoiceID),
		nullable(string(attempt.Provider)),
		string(domain.TrackingPending),
	)
	if err != nil {
		return fmt.Errorf("record armed attempt: %w", err)
	}
	return nil
}

func (r *attemptRepo) RecordResolved(ctx context.Context, paymentID string, status domain.TrackingStatus, code *int, source string) error {
	query := `
        UPDATE payment_attempts
        SET final_status = $2, result_code = $3, source = $4, resolved_at = now()
        WHERE payment_id = $1`

	tag, err := r.db.Exec(ctx, query, paymentID, string(status), code, nullable(source))
	if err != nil {
		return fmt.Errorf("record resolved attempt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAttemptNotFound
	}
	return nil
}

func (r *attemptRepo) ListRecent(ctx context.Context, limit int) ([]domain.AttemptRecord, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
        SELECT id, payment_id, order_id, invoice_id, provider,
               final_status, result_code, source, armed_at, resolved_at
        FROM payment_attempts
        ORDER BY armed_at DESC
        LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var records []domain.AttemptRecord
	for rows.Next() {
		var rec domain.AttemptRecord
		var orderID, invoiceID, provider, source *string
		if err := rows.Scan(
			&rec.ID,
			&rec.PaymentID,
			&orderID,
			&invoiceID,
			&provider,
			&rec.FinalStatus,
			&rec.ResultCode,
			&source,
			&rec.ArmedAt,
			&rec.ResolvedAt,
		); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		rec.OrderID = deref(orderID)
		rec.InvoiceID = deref(invoiceID)
		rec.Provider = domain.PaymentProvider(deref(provider))
		rec.Source = deref(source)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	return records, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
