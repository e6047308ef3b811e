package calls

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// NOTE: This store assumes a `calls` table exists with the columns in callColumns.
// Schema and migrations are owned outside this module.
//
// Patches are applied in a single UPDATE statement so each row changes atomically.
// The terminal-state rule from Apply is expressed in SQL: once status is terminal,
// only metadata columns may still change.

const callColumns = `id, lead_id, script_id, batch_id, provider, phone_number, provider_call_id, status,
       duration_seconds, recording_url, transcript, summary, cost, ended_reason, answered_by,
       created_at, updated_at`

const terminalStatuses = `('completed','failed','busy','no-answer')`

type PostgresStore struct {
	db    *sql.DB
	clock func() time.Time
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, clock: time.Now}
}

func (s *PostgresStore) Create(ctx context.Context, c Call) (string, error) {
	if c.LeadID == "" {
		return "", ErrInvalidArgument
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Status == "" {
		c.Status = StatusQueued
	}
	now := s.clock().UTC()

	const q = `
INSERT INTO calls (
  id, lead_id, script_id, batch_id, provider, phone_number, provider_call_id, status, created_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9,$10
)
`
	_, err := s.db.ExecContext(ctx, q,
		c.ID,
		c.LeadID,
		nullable(c.ScriptID),
		nullable(c.BatchID),
		c.Provider,
		c.PhoneNumber,
		nullable(c.ProviderCallID),
		string(c.Status),
		now,
		now,
	)
	if err != nil {
		return "", err
	}
	return c.ID, nil
}

func (s *PostgresStore) UpdateByID(ctx context.Context, id string, p Patch) error {
	if id == "" {
		return ErrInvalidArgument
	}
	return s.update(ctx, "id", id, p)
}

func (s *PostgresStore) UpdateByProviderCallID(ctx context.Context, providerCallID string, p Patch) error {
	if providerCallID == "" {
		return ErrInvalidArgument
	}
	return s.update(ctx, "provider_call_id", providerCallID, p)
}

func (s *PostgresStore) update(ctx context.Context, keyColumn, key string, p Patch) error {
	if p.IsEmpty() {
		return nil
	}
	q := `
UPDATE calls SET
  provider_call_id = CASE WHEN status IN ` + terminalStatuses + ` THEN provider_call_id ELSE COALESCE($2, provider_call_id) END,
  status           = CASE WHEN status IN ` + terminalStatuses + ` THEN status ELSE COALESCE($3, status) END,
  ended_reason     = CASE WHEN status IN ` + terminalStatuses + ` THEN ended_reason ELSE COALESCE($4, ended_reason) END,
  answered_by      = CASE WHEN status IN ` + terminalStatuses + ` THEN answered_by ELSE COALESCE($5, answered_by) END,
  duration_seconds = COALESCE($6, duration_seconds),
  recording_url    = COALESCE($7, recording_url),
  transcript       = COALESCE($8, transcript),
  summary          = COALESCE($9, summary),
  cost             = COALESCE($10, cost),
  updated_at       = $11
WHERE ` + keyColumn + ` = $1
`
	var status any
	if p.Status != nil && p.Status.IsKnown() {
		status = string(*p.Status)
	}
	var duration any
	if p.DurationSeconds != nil {
		duration = *p.DurationSeconds
	}
	var cost any
	if p.Cost != nil {
		cost = *p.Cost
	}

	res, err := s.db.ExecContext(ctx, q,
		key,
		nullablePtr(p.ProviderCallID),
		status,
		nullablePtr(p.EndedReason),
		nullablePtr(p.AnsweredBy),
		duration,
		nullablePtr(p.RecordingURL),
		nullablePtr(p.Transcript),
		nullablePtr(p.Summary),
		cost,
		s.clock().UTC(),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Call, error) {
	return s.getBy(ctx, "id", id)
}

func (s *PostgresStore) GetByProviderCallID(ctx context.Context, providerCallID string) (Call, error) {
	return s.getBy(ctx, "provider_call_id", providerCallID)
}

func (s *PostgresStore) getBy(ctx context.Context, keyColumn, key string) (Call, error) {
	if key == "" {
		return Call{}, ErrInvalidArgument
	}
	q := `SELECT ` + callColumns + ` FROM calls WHERE ` + keyColumn + ` = $1 LIMIT 1`

	var (
		c                                                          Call
		scriptID, batchID, providerCallID                          sql.NullString
		recordingURL, transcript, summary, endedReason, answeredBy sql.NullString
		duration                                                   sql.NullInt64
		cost                                                       sql.NullFloat64
		status                                                     string
	)
	err := s.db.QueryRowContext(ctx, q, key).Scan(
		&c.ID,
		&c.LeadID,
		&scriptID,
		&batchID,
		&c.Provider,
		&c.PhoneNumber,
		&providerCallID,
		&status,
		&duration,
		&recordingURL,
		&transcript,
		&summary,
		&cost,
		&endedReason,
		&answeredBy,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Call{}, ErrNotFound
		}
		return Call{}, err
	}

	c.ScriptID = scriptID.String
	c.BatchID = batchID.String
	c.ProviderCallID = providerCallID.String
	c.Status = ParseStatus(status)
	c.RecordingURL = recordingURL.String
	c.Transcript = transcript.String
	c.Summary = summary.String
	c.EndedReason = endedReason.String
	c.AnsweredBy = answeredBy.String
	if duration.Valid {
		d := int(duration.Int64)
		c.DurationSeconds = &d
	}
	if cost.Valid {
		v := cost.Float64
		c.Cost = &v
	}
	return c, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullablePtr(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}
