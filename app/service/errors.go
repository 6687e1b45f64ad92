package service

import "errors"

var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrPaymentNotFound     = errors.New("payment not found")
	ErrStoreNotFound       = errors.New("store not found")
	ErrStoreURLRequired    = errors.New("store url is not configured")
	ErrInvalidPaymentState = errors.New("payment state forbids this operation")
	ErrCallbackRejected    = errors.New("callback rejected")
	ErrCheckoutFailed      = errors.New("checkout initiation failed")
)
