package types

import (
	"errors"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
)

type CheckoutRequest struct {
	OrderID string
}

func NewCheckoutRequestFromContext(ctx echo.Context) (*CheckoutRequest, error) {
	return &CheckoutRequest{
		OrderID: strings.TrimSpace(ctx.Param("orderId")),
	}, nil
}

func (r *CheckoutRequest) Validate() error {
	if r.OrderID == "" {
		return errors.New("order id is required")
	}
	return nil
}

// CallbackRequest carries the raw gateway notification. The gateway posts
// form-encoded parameters but has been seen to duplicate some of them on
// the query string, so both sources are merged.
type CallbackRequest struct {
	Params url.Values
}

func NewCallbackRequestFromContext(ctx echo.Context) (*CallbackRequest, error) {
	req := ctx.Request()
	if err := req.ParseForm(); err != nil {
		return nil, err
	}

	params := url.Values{}
	for name, values := range req.Form {
		for _, v := range values {
			params.Add(name, strings.TrimSpace(v))
		}
	}

	return &CallbackRequest{Params: params}, nil
}

func (r *CallbackRequest) Validate() error {
	if strings.TrimSpace(r.Params.Get("transact")) == "" {
		return errors.New("transact is required")
	}
	if strings.TrimSpace(r.Params.Get("amount")) == "" {
		return errors.New("amount is required")
	}
	if strings.TrimSpace(r.Params.Get("authkey")) == "" {
		return errors.New("authkey is required")
	}
	return nil
}

type PaymentOperationRequest struct {
	PaymentID string
}

func NewPaymentOperationRequestFromContext(ctx echo.Context) (*PaymentOperationRequest, error) {
	return &PaymentOperationRequest{
		PaymentID: strings.TrimSpace(ctx.Param("id")),
	}, nil
}

func (r *PaymentOperationRequest) Validate() error {
	if r.PaymentID == "" {
		return errors.New("payment id is required")
	}
	return nil
}

type GetOrderRequest struct {
	OrderID string
}

func NewGetOrderRequestFromContext(ctx echo.Context) (*GetOrderRequest, error) {
	return &GetOrderRequest{
		OrderID: strings.TrimSpace(ctx.Param("orderId")),
	}, nil
}

func (r *GetOrderRequest) Validate() error {
	if r.OrderID == "" {
		return errors.New("order id is required")
	}
	return nil
}
