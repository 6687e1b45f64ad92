package entity

import "time"

// Order is the customer order the payment flow runs against. Total is in
// major currency units; the gateway layer converts to minor units.
type Order struct {
	ID      string
	Number  string
	StoreID string

	Currency string
	Total    float64

	InPayments []*PaymentIn

	CreatedAt time.Time
	UpdatedAt time.Time
}
