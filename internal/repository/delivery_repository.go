package repository

import (
	"context"

	"birthday-courier/internal/domain/entity"
)

// DeliveryRepository is the durable duplicate guard: the single source of
// truth preventing more than one greeting per recipient per calendar year.
// All reads and writes go to durable storage so the guarantee survives
// process restarts.
type DeliveryRepository interface {
	// WasSent reports whether a delivery record already exists for the
	// recipient in the given calendar year, regardless of its status.
	WasSent(ctx context.Context, recipientID string, year int) (bool, error)

	// Record persists a delivery record. The store's uniqueness constraint
	// on (recipient_id, year) makes the insert atomic under concurrent
	// writers; a conflicting insert returns entity.ErrAlreadyRecorded.
	// Any other error means the store is unavailable and must propagate.
	Record(ctx context.Context, record *entity.DeliveryRecord) error

	// History returns all past delivery records for a recipient, newest
	// first, for auditing.
	History(ctx context.Context, recipientID string) ([]*entity.DeliveryRecord, error)
}
