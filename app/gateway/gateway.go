package gateway

import (
	"context"
	"errors"
	"net/url"

	"github.com/commercegate/ms-go-dibs/app/entity"
)

var (
	ErrStoreURLRequired    = errors.New("store must have a url or secure url configured")
	ErrPaymentNotFound     = errors.New("no matching in-payment on order")
	ErrInvalidPaymentState = errors.New("payment state forbids callback processing")
)

// Param is a named request parameter. Requests to the gateway are built as
// ordered lists, not maps: parameter order is part of the signing contract.
type Param struct {
	Name  string
	Value string
}

// ProcessResult is the outcome of a checkout initiation.
type ProcessResult struct {
	Success   bool
	HTMLForm  string
	NewStatus entity.PaymentStatus
}

// VerifyResult is the outcome of a callback signature check.
type VerifyResult struct {
	OuterID string
	Valid   bool
}

// CallbackResult is the outcome of processing a gateway callback against an
// order. Success reflects signature verification; the caller persists the
// order only when it is set.
type CallbackResult struct {
	Success   bool
	OuterID   string
	NewStatus entity.PaymentStatus
}

// OperationResult is the shared envelope for capture, refund and void.
// Remote failures are captured in ErrorMessage; they never surface as
// errors, and the payment is left unmodified when Success is false.
type OperationResult struct {
	Success      bool
	NewStatus    entity.PaymentStatus
	ErrorMessage string
}

type Gateway interface {
	Code() string
	InitiatePayment(order *entity.Order, store *entity.Store, payment *entity.PaymentIn) (*ProcessResult, error)
	VerifyCallback(params url.Values) *VerifyResult
	HandleCallback(order *entity.Order, params url.Values) (*CallbackResult, error)
	Capture(ctx context.Context, payment *entity.PaymentIn, order *entity.Order) *OperationResult
	Refund(ctx context.Context, payment *entity.PaymentIn, order *entity.Order) *OperationResult
	Void(ctx context.Context, payment *entity.PaymentIn, order *entity.Order) *OperationResult
}
