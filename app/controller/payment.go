package controller

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/commercegate/ms-go-dibs/app/factory"
	"github.com/commercegate/ms-go-dibs/app/mapper"
	"github.com/commercegate/ms-go-dibs/app/service"
	"github.com/commercegate/ms-go-dibs/app/types"
)

type PaymentController struct {
	paymentService *service.PaymentService
	logger         logrus.FieldLogger
}

func NewPaymentController(paymentService *service.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
		logger:         factory.NewModuleLogger("dibs-controller"),
	}
}

func (c *PaymentController) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, &types.HealthResponse{Status: "ok"})
}

// Checkout renders the self-submitting form that redirects the shopper to
// the hosted payment window.
func (c *PaymentController) Checkout(ctx echo.Context) error {
	req, err := types.NewCheckoutRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	form, err := c.paymentService.InitiateCheckout(ctx.Request().Context(), req.OrderID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound):
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		case errors.Is(err, service.ErrStoreNotFound):
			return c.writeError(ctx, http.StatusNotFound, "store not found")
		case errors.Is(err, service.ErrStoreURLRequired), errors.Is(err, service.ErrCheckoutFailed):
			return c.writeError(ctx, http.StatusBadRequest, err.Error())
		default:
			c.logger.WithError(err).Error("Initiate checkout failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.HTML(http.StatusOK, form)
}

// Callback receives the server-to-server authorization notification. The
// gateway treats anything but a 200 as a delivery failure and retries, so
// permanent rejections (unknown order, bad signature) answer 404 to stop
// the retry loop per the integration contract.
func (c *PaymentController) Callback(ctx echo.Context) error {
	req, err := types.NewCallbackRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request body")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	if err := c.paymentService.HandleCallback(ctx.Request().Context(), req.Params); err != nil {
		switch {
		case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrPaymentNotFound), errors.Is(err, service.ErrCallbackRejected):
			c.logger.WithError(err).Warn("Gateway callback rejected")
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, service.ErrInvalidPaymentState):
			return c.writeError(ctx, http.StatusConflict, err.Error())
		default:
			c.logger.WithError(err).Error("Handle gateway callback failed")
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.MessageResponse{Message: "Callback processed"})
}

func (c *PaymentController) CapturePayment(ctx echo.Context) error {
	return c.runOperation(ctx, "Capture payment failed", c.paymentService.CapturePayment)
}

func (c *PaymentController) RefundPayment(ctx echo.Context) error {
	return c.runOperation(ctx, "Refund payment failed", c.paymentService.RefundPayment)
}

func (c *PaymentController) VoidPayment(ctx echo.Context) error {
	return c.runOperation(ctx, "Void payment failed", c.paymentService.VoidPayment)
}

func (c *PaymentController) GetOrder(ctx echo.Context) error {
	req, err := types.NewGetOrderRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	order, err := c.paymentService.GetOrder(ctx.Request().Context(), req.OrderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		}
		c.logger.WithError(err).Error("Get order failed")
		return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
	}

	return ctx.JSON(http.StatusOK, mapper.OrderToResponse(order))
}

func (c *PaymentController) runOperation(ctx echo.Context, failureLog string, op service.OperationFunc) error {
	req, err := types.NewPaymentOperationRequestFromContext(ctx)
	if err != nil {
		return c.writeError(ctx, http.StatusBadRequest, "invalid request")
	}
	if err := req.Validate(); err != nil {
		return c.writeError(ctx, http.StatusBadRequest, err.Error())
	}

	payment, result, err := op(ctx.Request().Context(), req.PaymentID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrPaymentNotFound):
			return c.writeError(ctx, http.StatusNotFound, "payment not found")
		case errors.Is(err, service.ErrOrderNotFound):
			return c.writeError(ctx, http.StatusNotFound, "order not found")
		default:
			c.logger.WithError(err).Error(failureLog)
			return c.writeError(ctx, http.StatusInternalServerError, "internal server error")
		}
	}

	return ctx.JSON(http.StatusOK, &types.OperationResponse{
		Success: result.Success,
		Error:   result.ErrorMessage,
		Payment: mapper.PaymentToResponse(payment),
	})
}

func (c *PaymentController) writeError(ctx echo.Context, statusCode int, message string) error {
	return ctx.JSON(statusCode, &types.ErrorResponse{Error: message})
}
