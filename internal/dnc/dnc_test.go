package dnc

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	cases := map[string]string{
		"+1 (555) 123-4567": "+15551234567",
		"555.123.4567":      "+15551234567",
		"+442071838750":     "+442071838750",
	}
	for in, want := range cases {
		got, err := Normalize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	for _, bad := range []string{"", "12", "+1555abc4567", "1+5551234567", "+0123456789"} {
		_, err := Normalize(bad)
		assert.ErrorIs(t, err, ErrInvalidNumber, bad)
	}
}

func TestMemoryList(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryList("+15551234567")

	blocked, err := l.IsBlocked(ctx, "(555) 123-4567")
	require.NoError(t, err)
	assert.True(t, blocked)

	blocked, err = l.IsBlocked(ctx, "+15557654321")
	require.NoError(t, err)
	assert.False(t, blocked)

	require.NoError(t, l.Add(ctx, "+15557654321", "requested"))
	blocked, _ = l.IsBlocked(ctx, "+15557654321")
	assert.True(t, blocked)

	require.NoError(t, l.Remove(ctx, "+15551234567"))
	blocked, _ = l.IsBlocked(ctx, "+15551234567")
	assert.False(t, blocked)

	_, err = l.IsBlocked(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidNumber)
}

func TestRedisList(t *testing.T) {
	ctx := context.Background()
	rdb, mock := redismock.NewClientMock()
	l := NewRedisList(rdb, "")

	mock.ExpectSIsMember(DefaultRedisKey, "+15551234567").SetVal(true)
	blocked, err := l.IsBlocked(ctx, "555-123-4567")
	require.NoError(t, err)
	assert.True(t, blocked)

	mock.ExpectSIsMember(DefaultRedisKey, "+15557654321").SetErr(errors.New("connection refused"))
	_, err = l.IsBlocked(ctx, "+15557654321")
	assert.Error(t, err)

	mock.ExpectSAdd(DefaultRedisKey, "+15557654321").SetVal(1)
	mock.ExpectHSet(DefaultRedisKey+":reasons", "+15557654321", "opt-out").SetVal(1)
	require.NoError(t, l.Add(ctx, "+15557654321", "opt-out"))

	mock.ExpectSRem(DefaultRedisKey, "+15557654321").SetVal(1)
	mock.ExpectHDel(DefaultRedisKey+":reasons", "+15557654321").SetVal(1)
	require.NoError(t, l.Remove(ctx, "+15557654321"))

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresList_AddRollsBackOnHistoryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPostgresList(db)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dnc_numbers")).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dnc_changes")).WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	assert.Error(t, l.Add(context.Background(), "+15557654321", "litigator"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresList(t *testing.T) {
	ctx := context.Background()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	l := NewPostgresList(db)
	l.clock = func() time.Time { return time.Unix(1700000000, 0) }

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS (SELECT 1 FROM dnc_numbers WHERE phone_number = $1)")).
		WithArgs("+15551234567").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	blocked, err := l.IsBlocked(ctx, "+1 555 123 4567")
	require.NoError(t, err)
	assert.True(t, blocked)

	at := time.Unix(1700000000, 0).UTC()
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dnc_numbers")).
		WithArgs("+15557654321", "litigator", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dnc_changes")).
		WithArgs("+15557654321", "add", "litigator", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, l.Add(ctx, "+15557654321", "litigator"))

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM dnc_numbers")).
		WithArgs("+15557654321").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO dnc_changes")).
		WithArgs("+15557654321", "remove", "", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	require.NoError(t, l.Remove(ctx, "+15557654321"))

	// Removing an absent number writes no history.
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM dnc_numbers")).
		WithArgs("+15557654321").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()
	require.NoError(t, l.Remove(ctx, "+15557654321"))

	require.NoError(t, mock.ExpectationsWereMet())
}
