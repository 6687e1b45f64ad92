package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/commercegate/ms-go-dibs/app/entity"
	"github.com/commercegate/ms-go-dibs/app/gateway"
	"github.com/commercegate/ms-go-dibs/config"
)

const defaultBatchSize = int32(100)

type orderRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Order, error)
	Save(ctx context.Context, order *entity.Order) error
}

type paymentRepository interface {
	FindByID(ctx context.Context, id string) (*entity.PaymentIn, error)
	Create(ctx context.Context, payment *entity.PaymentIn) error
	Save(ctx context.Context, payment *entity.PaymentIn) error
	ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.PaymentIn, error)
}

type storeRepository interface {
	FindByID(ctx context.Context, id string) (*entity.Store, error)
}

type paymentEventRepository interface {
	Create(ctx context.Context, event *entity.PaymentEvent) error
}

// PaymentService drives the checkout flow against the gateway adapter and
// owns all persistence around it. The adapter mutates orders and payments
// in memory; this service decides what gets saved and when.
type PaymentService struct {
	orderRepo   orderRepository
	paymentRepo paymentRepository
	storeRepo   storeRepository
	eventRepo   paymentEventRepository
	gw          gateway.Gateway
	paymentsCfg config.PaymentsConfig
}

func NewPaymentService(
	orderRepo orderRepository,
	paymentRepo paymentRepository,
	storeRepo storeRepository,
	eventRepo paymentEventRepository,
	gw gateway.Gateway,
	paymentsCfg config.PaymentsConfig,
) *PaymentService {
	return &PaymentService{
		orderRepo:   orderRepo,
		paymentRepo: paymentRepo,
		storeRepo:   storeRepo,
		eventRepo:   eventRepo,
		gw:          gw,
		paymentsCfg: paymentsCfg,
	}
}

// InitiateCheckout produces the self-submitting gateway form for an order.
// The order's open gateway payment is reused when one exists; otherwise a
// fresh attempt is created.
func (s *PaymentService) InitiateCheckout(ctx context.Context, orderID string) (string, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return "", err
	}
	if order == nil {
		return "", ErrOrderNotFound
	}

	store, err := s.storeRepo.FindByID(ctx, order.StoreID)
	if err != nil {
		return "", err
	}
	if store == nil {
		return "", ErrStoreNotFound
	}

	now := time.Now().UTC()
	payment := s.openPayment(order)
	created := false
	if payment == nil {
		payment = &entity.PaymentIn{
			ID:          uuid.NewString(),
			OrderID:     order.ID,
			GatewayCode: s.gw.Code(),
			Status:      entity.PaymentStatusNew,
			Sum:         order.Total,
			Currency:    order.Currency,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		order.InPayments = append(order.InPayments, payment)
		created = true
	}

	result, err := s.gw.InitiatePayment(order, store, payment)
	if err != nil {
		if errors.Is(err, gateway.ErrStoreURLRequired) {
			return "", ErrStoreURLRequired
		}
		return "", err
	}
	if !result.Success {
		return "", ErrCheckoutFailed
	}

	payment.UpdatedAt = now
	if created {
		if err := s.paymentRepo.Create(ctx, payment); err != nil {
			return "", err
		}
	} else {
		if err := s.paymentRepo.Save(ctx, payment); err != nil {
			return "", err
		}
	}

	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		PaymentID: payment.ID,
		OrderID:   order.ID,
		EventType: "checkout_initiated",
		NewStatus: payment.Status,
		CreatedAt: now,
	})

	return result.HTMLForm, nil
}

// HandleCallback processes a gateway callback. The internal order id rides
// in a distinguished form field; the order is saved only when the callback
// verifies, so a rejected callback leaves no durable trace on the order.
func (s *PaymentService) HandleCallback(ctx context.Context, params url.Values) error {
	orderID := strings.TrimSpace(params.Get(gateway.OrderInternalIDField))
	if orderID == "" {
		return ErrOrderNotFound
	}

	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return err
	}
	if order == nil {
		return ErrOrderNotFound
	}

	result, err := s.gw.HandleCallback(order, params)
	if err != nil {
		switch {
		case errors.Is(err, gateway.ErrPaymentNotFound):
			return ErrPaymentNotFound
		case errors.Is(err, gateway.ErrInvalidPaymentState):
			return ErrInvalidPaymentState
		default:
			return err
		}
	}
	if !result.Success {
		return ErrCallbackRejected
	}

	now := time.Now().UTC()
	order.UpdatedAt = now
	for _, payment := range order.InPayments {
		payment.UpdatedAt = now
	}
	if err := s.orderRepo.Save(ctx, order); err != nil {
		return err
	}

	oldStatus := entity.PaymentStatusPending
	outerID := result.OuterID
	payloadJSON := params.Encode()
	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		OrderID:     order.ID,
		EventType:   "payment_authorized",
		OldStatus:   &oldStatus,
		NewStatus:   result.NewStatus,
		OuterID:     &outerID,
		PayloadJSON: &payloadJSON,
		CreatedAt:   now,
	})

	return nil
}

// OperationFunc is the shape shared by the capture, refund and void entry
// points.
type OperationFunc func(ctx context.Context, paymentID string) (*entity.PaymentIn, *gateway.OperationResult, error)

// CapturePayment settles an authorized payment through the gateway. The
// result envelope carries remote failures; only repository-level problems
// surface as errors.
func (s *PaymentService) CapturePayment(ctx context.Context, paymentID string) (*entity.PaymentIn, *gateway.OperationResult, error) {
	return s.runOperation(ctx, paymentID, "payment_captured", s.gw.Capture)
}

// RefundPayment returns funds on a captured payment.
func (s *PaymentService) RefundPayment(ctx context.Context, paymentID string) (*entity.PaymentIn, *gateway.OperationResult, error) {
	return s.runOperation(ctx, paymentID, "payment_refunded", s.gw.Refund)
}

// VoidPayment cancels an uncaptured authorization.
func (s *PaymentService) VoidPayment(ctx context.Context, paymentID string) (*entity.PaymentIn, *gateway.OperationResult, error) {
	return s.runOperation(ctx, paymentID, "payment_voided", s.gw.Void)
}

// GetOrder loads an order with its payments for the admin API.
func (s *PaymentService) GetOrder(ctx context.Context, orderID string) (*entity.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

type operationFunc func(ctx context.Context, payment *entity.PaymentIn, order *entity.Order) *gateway.OperationResult

func (s *PaymentService) runOperation(ctx context.Context, paymentID, eventType string, op operationFunc) (*entity.PaymentIn, *gateway.OperationResult, error) {
	payment, err := s.paymentRepo.FindByID(ctx, paymentID)
	if err != nil {
		return nil, nil, err
	}
	if payment == nil {
		return nil, nil, ErrPaymentNotFound
	}

	order, err := s.orderRepo.FindByID(ctx, payment.OrderID)
	if err != nil {
		return nil, nil, err
	}
	if order == nil {
		return nil, nil, ErrOrderNotFound
	}

	oldStatus := payment.Status
	result := op(ctx, payment, order)
	if !result.Success {
		return payment, result, nil
	}

	now := time.Now().UTC()
	payment.UpdatedAt = now
	if err := s.paymentRepo.Save(ctx, payment); err != nil {
		return nil, nil, err
	}

	outerID := payment.OuterID
	_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
		PaymentID: payment.ID,
		OrderID:   order.ID,
		EventType: eventType,
		OldStatus: &oldStatus,
		NewStatus: payment.Status,
		OuterID:   &outerID,
		CreatedAt: now,
	})

	return payment, result, nil
}

func (s *PaymentService) openPayment(order *entity.Order) *entity.PaymentIn {
	for _, p := range order.InPayments {
		if p.GatewayCode != s.gw.Code() {
			continue
		}
		if p.Status == entity.PaymentStatusNew || p.Status == entity.PaymentStatusPending {
			return p
		}
	}
	return nil
}

func (s *PaymentService) batchSize() int32 {
	if s.paymentsCfg.JobBatchSize > 0 {
		return s.paymentsCfg.JobBatchSize
	}
	return defaultBatchSize
}
