package dnc

import (
	"context"
	"database/sql"
	"time"

	"outreach-dialer/pkg/utils"
)

// NOTE: This list assumes a `dnc_numbers (phone_number PK, reason, created_at)` table and an
// append-only `dnc_changes (phone_number, action, reason, created_at)` history table.
// Every membership change and its history row commit together.

type PostgresList struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresList(db *sql.DB) *PostgresList {
	return &PostgresList{db: db, clock: time.Now}
}

func (l *PostgresList) IsBlocked(ctx context.Context, phoneNumber string) (bool, error) {
	n, err := Normalize(phoneNumber)
	if err != nil {
		return false, err
	}
	var blocked bool
	err = l.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM dnc_numbers WHERE phone_number = $1)`, n,
	).Scan(&blocked)
	return blocked, err
}

func (l *PostgresList) Add(ctx context.Context, phoneNumber, reason string) error {
	n, err := Normalize(phoneNumber)
	if err != nil {
		return err
	}
	now := l.clock().UTC()
	return utils.WithTx(ctx, l.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO dnc_numbers (phone_number, reason, created_at)
VALUES ($1, $2, $3)
ON CONFLICT (phone_number) DO UPDATE SET reason = EXCLUDED.reason
`, n, reason, now); err != nil {
			return err
		}
		return recordChange(ctx, tx, n, "add", reason, now)
	})
}

func (l *PostgresList) Remove(ctx context.Context, phoneNumber string) error {
	n, err := Normalize(phoneNumber)
	if err != nil {
		return err
	}
	now := l.clock().UTC()
	return utils.WithTx(ctx, l.db, nil, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `DELETE FROM dnc_numbers WHERE phone_number = $1`, n)
		if err != nil {
			return err
		}
		if rows, err := res.RowsAffected(); err == nil && rows == 0 {
			return nil
		}
		return recordChange(ctx, tx, n, "remove", "", now)
	})
}

func recordChange(ctx context.Context, tx *sql.Tx, number, action, reason string, at time.Time) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO dnc_changes (phone_number, action, reason, created_at) VALUES ($1, $2, $3, $4)`,
		number, action, reason, at,
	)
	return err
}
