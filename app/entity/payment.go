package entity

import "time"

type PaymentStatus int32

const (
	PaymentStatusNew        PaymentStatus = 0
	PaymentStatusPending    PaymentStatus = 1
	PaymentStatusAuthorized PaymentStatus = 2
	PaymentStatusPaid       PaymentStatus = 3
	PaymentStatusCancelled  PaymentStatus = 4
	PaymentStatusRefunded   PaymentStatus = 5
	PaymentStatusVoided     PaymentStatus = 6
)

func (s PaymentStatus) String() string {
	switch s {
	case PaymentStatusPending:
		return "pending"
	case PaymentStatusAuthorized:
		return "authorized"
	case PaymentStatusPaid:
		return "paid"
	case PaymentStatusCancelled:
		return "cancelled"
	case PaymentStatusRefunded:
		return "refunded"
	case PaymentStatusVoided:
		return "voided"
	default:
		return "new"
	}
}

// PaymentIn is an incoming payment attempt on an order. OuterID holds the
// gateway transaction id once the gateway has called back.
type PaymentIn struct {
	ID      string
	OrderID string

	GatewayCode string
	Status      PaymentStatus
	Sum         float64
	Currency    string

	OuterID    string
	IsApproved bool

	AuthorizedAt *time.Time
	CapturedAt   *time.Time
	CancelledAt  *time.Time
	ModifiedAt   *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

func (p *PaymentIn) IsCancelled() bool {
	return p.Status == PaymentStatusCancelled || p.Status == PaymentStatusVoided
}
