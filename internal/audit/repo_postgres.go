package audit

import (
	"context"
	"database/sql"
)

// PostgresRepo appends events to audit_events. It never updates or deletes.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	const q = `
INSERT INTO audit_events (
  id, type, batch_id, lead_id, call_id, phone_number, message, metadata, created_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
)
`
	_, err := r.db.ExecContext(ctx, q,
		e.ID,
		string(e.Type),
		nullable(e.BatchID),
		nullable(e.LeadID),
		nullable(e.CallID),
		nullable(e.PhoneNumber),
		nullable(e.Message),
		nullable(e.Metadata),
		e.CreatedAt,
	)
	return err
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
