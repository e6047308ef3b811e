package calls

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s := NewPostgresStore(db)
	s.clock = func() time.Time { return time.Unix(1700000000, 0) }
	return s, mock
}

func TestPostgresStore_Create(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO calls")).
		WithArgs("c1", "lead-1", "script-1", nil, "twilio", "+15551234567", nil, "queued", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := s.Create(context.Background(), Call{ID: "c1", LeadID: "lead-1", ScriptID: "script-1", Provider: "twilio", PhoneNumber: "+15551234567"})
	require.NoError(t, err)
	require.Equal(t, "c1", id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateByProviderCallID_DropsUnknownStatus(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE calls SET")).
		WithArgs("CA123", nil, nil, nil, "machine_start", nil, nil, nil, nil, nil, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := s.UpdateByProviderCallID(context.Background(), "CA123", Patch{Status: StatusPtr(StatusUnknown), AnsweredBy: StringPtr("machine_start")})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE calls SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := s.UpdateByID(context.Background(), "missing", Patch{Status: StatusPtr(StatusCompleted)})
	require.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)
}

func TestPostgresStore_EmptyPatchIsNoop(t *testing.T) {
	s, mock := newMockStore(t)
	require.NoError(t, s.UpdateByID(context.Background(), "c1", Patch{}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetByProviderCallID(t *testing.T) {
	s, mock := newMockStore(t)
	now := time.Unix(1700000000, 0).UTC()

	rows := sqlmock.NewRows([]string{
		"id", "lead_id", "script_id", "batch_id", "provider", "phone_number", "provider_call_id", "status",
		"duration_seconds", "recording_url", "transcript", "summary", "cost", "ended_reason", "answered_by",
		"created_at", "updated_at",
	}).AddRow("c1", "lead-1", nil, "b1", "vapi", "+15551234567", "v-1", "completed",
		int64(42), "https://rec", nil, "booked a demo", 0.12, nil, nil, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM calls WHERE provider_call_id = $1")).
		WithArgs("v-1").
		WillReturnRows(rows)

	c, err := s.GetByProviderCallID(context.Background(), "v-1")
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, c.Status)
	require.NotNil(t, c.DurationSeconds)
	require.Equal(t, 42, *c.DurationSeconds)
	require.Equal(t, "b1", c.BatchID)
	require.Equal(t, "", c.ScriptID)
	require.NotNil(t, c.Cost)
}
