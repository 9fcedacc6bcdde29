package entity

import "time"

// DeliveryStatus is the terminal disposition of a year's greeting attempt.
type DeliveryStatus string

const (
	// DeliveryStatusSent means the message was accepted by the transport.
	DeliveryStatusSent DeliveryStatus = "sent"

	// DeliveryStatusFailed means generation or delivery failed terminally
	// after retries were exhausted.
	DeliveryStatusFailed DeliveryStatus = "failed"

	// DeliveryStatusPending means the attempt was handed to the transport
	// but its final outcome is not yet known.
	DeliveryStatusPending DeliveryStatus = "pending"
)

// IsValid reports whether the status is one of the known values.
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusSent, DeliveryStatusFailed, DeliveryStatusPending:
		return true
	}
	return false
}

// DeliveryRecord is the durable disposition of one recipient's greeting for
// one calendar year. The store enforces at most one record per
// (RecipientID, Year); records are append-only and never updated.
type DeliveryRecord struct {
	ID          int64
	RecipientID string
	Year        int
	MessageID   *string // transport message id, nil when delivery never succeeded
	MessageText string
	SentAt      time.Time
	Status      DeliveryStatus
}

// Validate checks the DeliveryRecord invariants before it is persisted.
func (r *DeliveryRecord) Validate() error {
	if r.RecipientID == "" {
		return &ValidationError{Field: "RecipientID", Message: "must not be empty"}
	}
	if r.Year < 1 {
		return &ValidationError{Field: "Year", Message: "must be a positive calendar year"}
	}
	if !r.Status.IsValid() {
		return &ValidationError{Field: "Status", Message: "must be sent, failed, or pending"}
	}
	return nil
}
