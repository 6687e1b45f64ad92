package entity

import "time"

type PaymentEvent struct {
	ID uint64

	PaymentID string
	OrderID   string

	EventType string

	OldStatus *PaymentStatus
	NewStatus PaymentStatus

	OuterID     *string
	PayloadJSON *string

	CreatedAt time.Time
}
