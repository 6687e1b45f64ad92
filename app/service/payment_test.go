package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/commercegate/ms-go-dibs/app/entity"
	"github.com/commercegate/ms-go-dibs/app/gateway"
	"github.com/commercegate/ms-go-dibs/config"
)

const (
	testKey1     = "key-one"
	testKey2     = "key-two"
	testTransact = "789789789"
)

type memStore struct {
	orders   map[string]*entity.Order
	payments map[string]*entity.PaymentIn
	stores   map[string]*entity.Store
	events   []*entity.PaymentEvent

	paymentSaves int
}

func newMemStore() *memStore {
	return &memStore{
		orders:   map[string]*entity.Order{},
		payments: map[string]*entity.PaymentIn{},
		stores:   map[string]*entity.Store{},
	}
}

func copyPayment(p *entity.PaymentIn) *entity.PaymentIn {
	c := *p
	return &c
}

type fakeOrderRepo struct{ s *memStore }

func (r *fakeOrderRepo) FindByID(_ context.Context, id string) (*entity.Order, error) {
	order, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	c := *order
	c.InPayments = nil
	for _, p := range r.s.payments {
		if p.OrderID == id {
			c.InPayments = append(c.InPayments, copyPayment(p))
		}
	}
	return &c, nil
}

func (r *fakeOrderRepo) Save(_ context.Context, order *entity.Order) error {
	if _, ok := r.s.orders[order.ID]; !ok {
		return errors.New("order not found")
	}
	c := *order
	c.InPayments = nil
	r.s.orders[order.ID] = &c
	for _, p := range order.InPayments {
		r.s.payments[p.ID] = copyPayment(p)
	}
	return nil
}

type fakePaymentRepo struct{ s *memStore }

func (r *fakePaymentRepo) FindByID(_ context.Context, id string) (*entity.PaymentIn, error) {
	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	return copyPayment(p), nil
}

func (r *fakePaymentRepo) Create(_ context.Context, payment *entity.PaymentIn) error {
	if _, ok := r.s.payments[payment.ID]; ok {
		return errors.New("payment already exists")
	}
	r.s.payments[payment.ID] = copyPayment(payment)
	return nil
}

func (r *fakePaymentRepo) Save(_ context.Context, payment *entity.PaymentIn) error {
	if _, ok := r.s.payments[payment.ID]; !ok {
		return errors.New("payment not found")
	}
	r.s.payments[payment.ID] = copyPayment(payment)
	r.s.paymentSaves++
	return nil
}

func (r *fakePaymentRepo) ListExpiredPending(_ context.Context, cutoff time.Time, limit int32) ([]*entity.PaymentIn, error) {
	items := make([]*entity.PaymentIn, 0)
	for _, p := range r.s.payments {
		if p.Status == entity.PaymentStatusPending && !p.CreatedAt.After(cutoff) {
			items = append(items, copyPayment(p))
		}
	}
	if limit > 0 && int(limit) < len(items) {
		items = items[:limit]
	}
	return items, nil
}

type fakeStoreRepo struct{ s *memStore }

func (r *fakeStoreRepo) FindByID(_ context.Context, id string) (*entity.Store, error) {
	store, ok := r.s.stores[id]
	if !ok {
		return nil, nil
	}
	c := *store
	return &c, nil
}

type fakeEventRepo struct{ s *memStore }

func (r *fakeEventRepo) Create(_ context.Context, event *entity.PaymentEvent) error {
	c := *event
	r.s.events = append(r.s.events, &c)
	return nil
}

func gatewayConfig() gateway.Config {
	return gateway.Config{
		MerchantID:    "12345678",
		MD5Key1:       testKey1,
		MD5Key2:       testKey2,
		APILogin:      "apiuser",
		APIPassword:   "apipass",
		AcceptURL:     "http://localhost/store/cart/externalpaymentcallback",
		CallbackURL:   "http://localhost/api/dibs/callback",
		FormDecorator: "responsive",
		Mode:          "test",
	}
}

func newTestService(store *memStore, cfg gateway.Config) *PaymentService {
	return NewPaymentService(
		&fakeOrderRepo{s: store},
		&fakePaymentRepo{s: store},
		&fakeStoreRepo{s: store},
		&fakeEventRepo{s: store},
		gateway.NewDibs(cfg),
		config.PaymentsConfig{PendingTimeout: time.Hour, JobBatchSize: 100},
	)
}

func seedOrder(store *memStore) *entity.Order {
	now := time.Now().UTC()
	order := &entity.Order{
		ID:        "order-1",
		Number:    "dibs_test_01",
		StoreID:   "store-1",
		Currency:  "208",
		Total:     20.00,
		CreatedAt: now,
		UpdatedAt: now,
	}
	store.orders[order.ID] = order
	store.stores["store-1"] = &entity.Store{
		ID:              "store-1",
		URL:             "http://localhost/store",
		DefaultLanguage: "da-DK",
	}
	return order
}

func seedPayment(store *memStore, status entity.PaymentStatus, createdAt time.Time) *entity.PaymentIn {
	payment := &entity.PaymentIn{
		ID:          "pay-1",
		OrderID:     "order-1",
		GatewayCode: gateway.Code,
		Status:      status,
		Sum:         20.00,
		Currency:    "208",
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
	if status == entity.PaymentStatusAuthorized || status == entity.PaymentStatusPaid {
		payment.OuterID = testTransact
	}
	if status == entity.PaymentStatusPaid {
		payment.IsApproved = true
	}
	store.payments[payment.ID] = payment
	return payment
}

func nestedMD5(payload string) string {
	inner := md5.Sum([]byte(testKey1 + payload))
	outer := md5.Sum([]byte(testKey2 + hex.EncodeToString(inner[:])))
	return hex.EncodeToString(outer[:])
}

func signedCallbackParams(orderID, amount string) url.Values {
	params := url.Values{}
	params.Set(gateway.OrderInternalIDField, orderID)
	params.Set("transact", testTransact)
	params.Set("amount", amount)
	params.Set("currency", "208")
	params.Set("authkey", nestedMD5(fmt.Sprintf("transact=%s&amount=%s&currency=208", testTransact, amount)))
	return params
}

func TestInitiateCheckout(t *testing.T) {
	store := newMemStore()
	seedOrder(store)
	svc := newTestService(store, gatewayConfig())

	form, err := svc.InitiateCheckout(context.Background(), "order-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(form, "name='amount' value='2000'") {
		t.Fatalf("form missing amount field: %s", form)
	}

	if len(store.payments) != 1 {
		t.Fatalf("expected one persisted payment, got %d", len(store.payments))
	}
	for _, p := range store.payments {
		if p.Status != entity.PaymentStatusPending {
			t.Fatalf("persisted payment status = %s, want pending", p.Status)
		}
		if p.GatewayCode != gateway.Code {
			t.Fatalf("persisted payment gateway code = %s", p.GatewayCode)
		}
	}

	if len(store.events) != 1 || store.events[0].EventType != "checkout_initiated" {
		t.Fatalf("expected checkout_initiated event, got %+v", store.events)
	}

	// A second initiation reuses the open payment.
	if _, err := svc.InitiateCheckout(context.Background(), "order-1"); err != nil {
		t.Fatalf("unexpected error on re-initiation: %v", err)
	}
	if len(store.payments) != 1 {
		t.Fatalf("re-initiation must not create another payment, got %d", len(store.payments))
	}
}

func TestInitiateCheckoutOrderNotFound(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, gatewayConfig())

	if _, err := svc.InitiateCheckout(context.Background(), "missing"); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}
}

func TestInitiateCheckoutStoreURLMissing(t *testing.T) {
	store := newMemStore()
	seedOrder(store)
	store.stores["store-1"] = &entity.Store{ID: "store-1"}
	svc := newTestService(store, gatewayConfig())

	if _, err := svc.InitiateCheckout(context.Background(), "order-1"); !errors.Is(err, ErrStoreURLRequired) {
		t.Fatalf("expected ErrStoreURLRequired, got %v", err)
	}
	if len(store.payments) != 0 {
		t.Fatal("failed initiation must not persist a payment")
	}
}

func TestHandleCallbackAuthorizes(t *testing.T) {
	store := newMemStore()
	seedOrder(store)
	seedPayment(store, entity.PaymentStatusPending, time.Now().UTC())
	svc := newTestService(store, gatewayConfig())

	if err := svc.HandleCallback(context.Background(), signedCallbackParams("order-1", "2000")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	saved := store.payments["pay-1"]
	if saved.Status != entity.PaymentStatusAuthorized {
		t.Fatalf("persisted status = %s, want authorized", saved.Status)
	}
	if saved.OuterID != testTransact {
		t.Fatalf("persisted outer id = %s, want %s", saved.OuterID, testTransact)
	}
	if saved.AuthorizedAt == nil {
		t.Fatal("authorized timestamp must be persisted")
	}

	var authorizedEvents int
	for _, ev := range store.events {
		if ev.EventType == "payment_authorized" {
			authorizedEvents++
		}
	}
	if authorizedEvents != 1 {
		t.Fatalf("expected one payment_authorized event, got %d", authorizedEvents)
	}

	// Gateway retries the callback: still fine, nothing changes.
	stamp := *saved.AuthorizedAt
	if err := svc.HandleCallback(context.Background(), signedCallbackParams("order-1", "2000")); err != nil {
		t.Fatalf("unexpected error on replay: %v", err)
	}
	replayed := store.payments["pay-1"]
	if replayed.OuterID != testTransact || !replayed.AuthorizedAt.Equal(stamp) {
		t.Fatal("replay must not change outer id or timestamp")
	}
}

func TestHandleCallbackRejectsBadSignature(t *testing.T) {
	store := newMemStore()
	seedOrder(store)
	seedPayment(store, entity.PaymentStatusPending, time.Now().UTC())
	svc := newTestService(store, gatewayConfig())

	params := signedCallbackParams("order-1", "2000")
	params.Set("authkey", "deadbeef")

	if err := svc.HandleCallback(context.Background(), params); !errors.Is(err, ErrCallbackRejected) {
		t.Fatalf("expected ErrCallbackRejected, got %v", err)
	}
	if store.payments["pay-1"].Status != entity.PaymentStatusPending {
		t.Fatal("rejected callback must not persist a transition")
	}
}

func TestHandleCallbackNoMatchingPayment(t *testing.T) {
	store := newMemStore()
	seedOrder(store)
	seedPayment(store, entity.PaymentStatusPending, time.Now().UTC())
	svc := newTestService(store, gatewayConfig())

	// Amount that matches no payment on the order.
	if err := svc.HandleCallback(context.Background(), signedCallbackParams("order-1", "999")); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestHandleCallbackUnknownOrder(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, gatewayConfig())

	if err := svc.HandleCallback(context.Background(), signedCallbackParams("missing", "2000")); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	if err := svc.HandleCallback(context.Background(), url.Values{}); !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound for missing order field, got %v", err)
	}
}

func TestHandleCallbackInvalidState(t *testing.T) {
	store := newMemStore()
	seedOrder(store)
	seedPayment(store, entity.PaymentStatusPaid, time.Now().UTC())
	svc := newTestService(store, gatewayConfig())

	if err := svc.HandleCallback(context.Background(), signedCallbackParams("order-1", "2000")); !errors.Is(err, ErrInvalidPaymentState) {
		t.Fatalf("expected ErrInvalidPaymentState, got %v", err)
	}
}

func TestCapturePayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "status=ACCEPTED&result=0")
	}))
	defer srv.Close()

	store := newMemStore()
	seedOrder(store)
	seedPayment(store, entity.PaymentStatusAuthorized, time.Now().UTC())
	cfg := gatewayConfig()
	cfg.CaptureURL = srv.URL
	svc := newTestService(store, cfg)

	payment, result, err := svc.CapturePayment(context.Background(), "pay-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.ErrorMessage)
	}
	if payment.Status != entity.PaymentStatusPaid {
		t.Fatalf("returned payment status = %s, want paid", payment.Status)
	}

	saved := store.payments["pay-1"]
	if saved.Status != entity.PaymentStatusPaid || !saved.IsApproved || saved.CapturedAt == nil {
		t.Fatalf("capture not persisted: %+v", saved)
	}
	if len(store.events) != 1 || store.events[0].EventType != "payment_captured" {
		t.Fatalf("expected payment_captured event, got %+v", store.events)
	}
}

func TestCapturePaymentAlreadyPaidIsNoOp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("capture must not call the gateway for a settled payment")
	}))
	defer srv.Close()

	store := newMemStore()
	seedOrder(store)
	seedPayment(store, entity.PaymentStatusPaid, time.Now().UTC())
	cfg := gatewayConfig()
	cfg.CaptureURL = srv.URL
	svc := newTestService(store, cfg)

	_, result, err := svc.CapturePayment(context.Background(), "pay-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || result.ErrorMessage != "" {
		t.Fatalf("expected benign no-op, got %+v", result)
	}
	if store.paymentSaves != 0 {
		t.Fatal("no-op must not persist anything")
	}
}

func TestCapturePaymentNotFound(t *testing.T) {
	store := newMemStore()
	svc := newTestService(store, gatewayConfig())

	if _, _, err := svc.CapturePayment(context.Background(), "missing"); !errors.Is(err, ErrPaymentNotFound) {
		t.Fatalf("expected ErrPaymentNotFound, got %v", err)
	}
}

func TestVoidPaymentApprovedDirectsToRefund(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("void must not call the cancel endpoint for an approved payment")
	}))
	defer srv.Close()

	store := newMemStore()
	seedOrder(store)
	seedPayment(store, entity.PaymentStatusPaid, time.Now().UTC())
	cfg := gatewayConfig()
	cfg.CancelURL = srv.URL
	svc := newTestService(store, cfg)

	_, result, err := svc.VoidPayment(context.Background(), "pay-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Success || !strings.Contains(result.ErrorMessage, "use refund") {
		t.Fatalf("expected refund redirect error, got %+v", result)
	}
	if store.payments["pay-1"].Status != entity.PaymentStatusPaid {
		t.Fatal("void on approved payment must not change persisted state")
	}
}

func TestRefundPayment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, "status=ACCEPTED&result=0")
	}))
	defer srv.Close()

	store := newMemStore()
	seedOrder(store)
	seedPayment(store, entity.PaymentStatusPaid, time.Now().UTC())
	cfg := gatewayConfig()
	cfg.RefundURL = srv.URL
	svc := newTestService(store, cfg)

	_, result, err := svc.RefundPayment(context.Background(), "pay-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.ErrorMessage)
	}

	saved := store.payments["pay-1"]
	if saved.Status != entity.PaymentStatusRefunded || saved.IsApproved {
		t.Fatalf("refund not persisted: %+v", saved)
	}
}

func TestRunExpirePendingBatch(t *testing.T) {
	store := newMemStore()
	seedOrder(store)
	stale := seedPayment(store, entity.PaymentStatusPending, time.Now().UTC().Add(-2*time.Hour))

	fresh := &entity.PaymentIn{
		ID:          "pay-2",
		OrderID:     "order-1",
		GatewayCode: gateway.Code,
		Status:      entity.PaymentStatusPending,
		Sum:         20.00,
		Currency:    "208",
		CreatedAt:   time.Now().UTC(),
	}
	store.payments[fresh.ID] = fresh

	svc := newTestService(store, gatewayConfig())
	if err := svc.RunExpirePendingBatch(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := store.payments[stale.ID]; got.Status != entity.PaymentStatusCancelled || got.CancelledAt == nil {
		t.Fatalf("stale payment not expired: %+v", got)
	}
	if store.payments["pay-2"].Status != entity.PaymentStatusPending {
		t.Fatal("fresh payment must stay pending")
	}

	var expiredEvents int
	for _, ev := range store.events {
		if ev.EventType == "payment_expired" {
			expiredEvents++
		}
	}
	if expiredEvents != 1 {
		t.Fatalf("expected one payment_expired event, got %d", expiredEvents)
	}
}
