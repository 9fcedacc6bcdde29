// Package postgres provides PostgreSQL implementations of repository interfaces.
// The delivery repository relies on the store's unique index for the
// one-record-per-recipient-per-year invariant.
package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"birthday-courier/internal/domain/entity"
	"birthday-courier/internal/repository"
)

// DeliveryRepo implements the DeliveryRepository interface using PostgreSQL.
type DeliveryRepo struct{ db *sql.DB }

// NewDeliveryRepo creates a new PostgreSQL-backed delivery repository.
func NewDeliveryRepo(db *sql.DB) repository.DeliveryRepository {
	return &DeliveryRepo{db: db}
}

// WasSent reports whether a delivery record exists for the recipient and year.
func (repo *DeliveryRepo) WasSent(ctx context.Context, recipientID string, year int) (bool, error) {
	const query = `SELECT 1 FROM delivery_records WHERE recipient_id = $1 AND year = $2 LIMIT 1`

	var exists bool
	err := repo.db.QueryRowContext(ctx, query, recipientID, year).Scan(&exists)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("WasSent: QueryRowContext: %w", err)
	}
	return true, nil
}

// Record inserts a delivery record. ON CONFLICT DO NOTHING makes the insert
// atomic against concurrent writers: when the unique index rejects the row,
// zero rows are affected and entity.ErrAlreadyRecorded is returned.
func (repo *DeliveryRepo) Record(ctx context.Context, record *entity.DeliveryRecord) error {
	if err := record.Validate(); err != nil {
		return fmt.Errorf("Record: %w", err)
	}

	const query = `
INSERT INTO delivery_records
(recipient_id, year, message_id, message_text, sent_at, status)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (recipient_id, year) DO NOTHING
`
	res, err := repo.db.ExecContext(ctx, query,
		record.RecipientID, record.Year, record.MessageID,
		record.MessageText, record.SentAt, record.Status,
	)
	if err != nil {
		return fmt.Errorf("Record: ExecContext: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Record: RowsAffected: %w", err)
	}
	if n == 0 {
		return entity.ErrAlreadyRecorded
	}
	return nil
}

// History retrieves all delivery records for a recipient, newest first.
func (repo *DeliveryRepo) History(ctx context.Context, recipientID string) ([]*entity.DeliveryRecord, error) {
	const query = `
SELECT id, recipient_id, year, message_id, message_text, sent_at, status
FROM delivery_records
WHERE recipient_id = $1
ORDER BY sent_at DESC
`
	rows, err := repo.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, fmt.Errorf("History: QueryContext: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]*entity.DeliveryRecord, 0, 8)
	for rows.Next() {
		var record entity.DeliveryRecord
		err := rows.Scan(&record.ID, &record.RecipientID, &record.Year,
			&record.MessageID, &record.MessageText, &record.SentAt, &record.Status)
		if err != nil {
			return nil, fmt.Errorf("History: Scan: %w", err)
		}
		records = append(records, &record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("History: rows.Err: %w", err)
	}

	return records, nil
}
