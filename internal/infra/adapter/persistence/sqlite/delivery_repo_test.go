package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"birthday-courier/internal/domain/entity"
	"birthday-courier/internal/infra/db"
)

func newMockRepo(t *testing.T) (*DeliveryRepo, sqlmock.Sqlmock, func()) {
	t.Helper()
	database, mock, err := sqlmock.New()
	require.NoError(t, err)
	repo := &DeliveryRepo{db: database}
	return repo, mock, func() { _ = database.Close() }
}

func TestRecord_InsertOrIgnore(t *testing.T) {
	t.Run("inserts new record", func(t *testing.T) {
		repo, mock, closeFn := newMockRepo(t)
		defer closeFn()

		record := &entity.DeliveryRecord{
			RecipientID: "r-001",
			Year:        2026,
			MessageText: "Happy birthday!",
			SentAt:      time.Date(2026, 5, 15, 9, 0, 0, 0, time.UTC),
			Status:      entity.DeliveryStatusSent,
		}
		mock.ExpectExec("INSERT OR IGNORE INTO delivery_records").
			WithArgs(record.RecipientID, record.Year, record.MessageID,
				record.MessageText, record.SentAt, record.Status).
			WillReturnResult(sqlmock.NewResult(1, 1))

		err := repo.Record(context.Background(), record)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ignored insert surfaces as ErrAlreadyRecorded", func(t *testing.T) {
		repo, mock, closeFn := newMockRepo(t)
		defer closeFn()

		record := &entity.DeliveryRecord{
			RecipientID: "r-001",
			Year:        2026,
			MessageText: "Happy birthday!",
			SentAt:      time.Now(),
			Status:      entity.DeliveryStatusSent,
		}
		mock.ExpectExec("INSERT OR IGNORE INTO delivery_records").
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.Record(context.Background(), record)
		assert.ErrorIs(t, err, entity.ErrAlreadyRecorded)
	})
}

// TestRecord_UniquenessUnderConcurrentWriters runs against a real sqlite
// database so the unique index itself, not a mock, arbitrates the race:
// exactly one of N concurrent Record calls for the same (recipient, year)
// may win, and every loser must surface entity.ErrAlreadyRecorded.
func TestRecord_UniquenessUnderConcurrentWriters(t *testing.T) {
	database, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "courier.db"))
	require.NoError(t, err)
	defer func() { _ = database.Close() }()
	// Single connection, matching how db.Open configures sqlite.
	database.SetMaxOpenConns(1)

	require.NoError(t, db.MigrateUp(database, db.DriverSQLite))
	repo := NewDeliveryRepo(database)

	const writers = 20
	results := make(chan error, writers)
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			messageID := "msg-1"
			results <- repo.Record(context.Background(), &entity.DeliveryRecord{
				RecipientID: "r-001",
				Year:        2026,
				MessageID:   &messageID,
				MessageText: "Happy birthday!",
				SentAt:      time.Date(2026, 5, 15, 9, 0, 0, 0, time.UTC),
				Status:      entity.DeliveryStatusSent,
			})
		}()
	}
	wg.Wait()
	close(results)

	won, conflicts := 0, 0
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, entity.ErrAlreadyRecorded):
			conflicts++
		default:
			t.Fatalf("unexpected Record error: %v", err)
		}
	}
	assert.Equal(t, 1, won)
	assert.Equal(t, writers-1, conflicts)

	var count int
	err = database.QueryRow(
		`SELECT COUNT(*) FROM delivery_records WHERE recipient_id = ? AND year = ?`,
		"r-001", 2026,
	).Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	sent, err := repo.WasSent(context.Background(), "r-001", 2026)
	require.NoError(t, err)
	assert.True(t, sent)
}

func TestWasSent_SQLite(t *testing.T) {
	t.Run("no record", func(t *testing.T) {
		repo, mock, closeFn := newMockRepo(t)
		defer closeFn()

		mock.ExpectQuery("SELECT 1 FROM delivery_records").
			WithArgs("r-001", 2026).
			WillReturnError(sql.ErrNoRows)

		sent, err := repo.WasSent(context.Background(), "r-001", 2026)
		require.NoError(t, err)
		assert.False(t, sent)
	})

	t.Run("record exists", func(t *testing.T) {
		repo, mock, closeFn := newMockRepo(t)
		defer closeFn()

		mock.ExpectQuery("SELECT 1 FROM delivery_records").
			WithArgs("r-001", 2026).
			WillReturnRows(sqlmock.NewRows([]string{"1"}).AddRow(true))

		sent, err := repo.WasSent(context.Background(), "r-001", 2026)
		require.NoError(t, err)
		assert.True(t, sent)
	})
}

func TestHistory_SQLite(t *testing.T) {
	repo, mock, closeFn := newMockRepo(t)
	defer closeFn()

	rows := sqlmock.NewRows([]string{"id", "recipient_id", "year", "message_id", "message_text", "sent_at", "status"}).
		AddRow(int64(1), "r-001", 2025, nil, "", time.Date(2025, 5, 15, 9, 0, 0, 0, time.UTC), "failed")

	mock.ExpectQuery("SELECT id, recipient_id, year, message_id, message_text, sent_at, status").
		WithArgs("r-001").
		WillReturnRows(rows)

	records, err := repo.History(context.Background(), "r-001")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].MessageID)
	assert.Equal(t, entity.DeliveryStatusFailed, records[0].Status)
}
