package gateway

import (
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/commercegate/ms-go-dibs/app/entity"
)

// Code is the gateway code stored on in-payments handled by this adapter.
const Code = "DIBS"

// OrderInternalIDField is the checkout form field carrying our internal
// order id back through the gateway callback.
const OrderInternalIDField = "s_orderinternalid"

const (
	md5KeyField      = "md5key"
	acceptURLField   = "accepturl"
	callbackURLField = "callbackurl"
	cancelURLField   = "cancelurl"
	merchantField    = "merchant"
	amountField      = "amount"
	orderIDField     = "orderid"
	transactField    = "transact"
	currencyField    = "currency"
	testField        = "test"
	langField        = "lang"
	decoratorField   = "decorator"
	authKeyField     = "authkey"
	textReplyField   = "textreply"
)

// Signing payload layouts. Field order is fixed per operation and load
// bearing: the gateway computes its hash over the same concatenation.
const (
	initiatePayloadFormat  = "merchant=%s&orderid=%s&currency=%s&amount=%s"
	responsePayloadFormat  = "transact=%s&amount=%s&currency=%s"
	operationPayloadFormat = "merchant=%s&orderid=%s&transact=%s&amount=%s"
	voidPayloadFormat      = "merchant=%s&orderid=%s&transact=%s"
)

const (
	defaultRedirectURL = "https://payment.architrade.com/paymentweb/start.action"
	defaultCaptureURL  = "https://payment.architrade.com/cgi-bin/capture.cgi"
	defaultRefundURL   = "https://payment.architrade.com/cgi-adm/refund.cgi"
	defaultCancelURL   = "https://payment.architrade.com/cgi-adm/cancel.cgi"
)

// Config is the immutable DIBS merchant configuration, loaded once per
// adapter. MD5Key1/MD5Key2 are the two shared secrets of the legacy signing
// scheme; APILogin/APIPassword authenticate the administrative endpoints.
type Config struct {
	MerchantID  string
	MD5Key1     string
	MD5Key2     string
	APILogin    string
	APIPassword string

	RedirectURL   string
	AcceptURL     string
	CallbackURL   string
	FormDecorator string
	Mode          string

	CaptureURL string
	RefundURL  string
	CancelURL  string

	HTTPTimeout time.Duration
}

// Dibs implements the hosted-form (FlexWin) integration. All methods are
// safe for concurrent use; the adapter holds no mutable state of its own
// and only mutates the order/payment it is handed.
type Dibs struct {
	cfg    Config
	client *http.Client
}

func NewDibs(cfg Config) *Dibs {
	if cfg.RedirectURL == "" {
		cfg.RedirectURL = defaultRedirectURL
	}
	if cfg.CaptureURL == "" {
		cfg.CaptureURL = defaultCaptureURL
	}
	if cfg.RefundURL == "" {
		cfg.RefundURL = defaultRefundURL
	}
	if cfg.CancelURL == "" {
		cfg.CancelURL = defaultCancelURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &Dibs{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

func (g *Dibs) Code() string {
	return Code
}

// Sign computes the two-key nested digest over a payload:
// md5hex(key2 + md5hex(key1 + payload)). The gateway mandates MD5; the
// construction must stay bit-for-bit compatible.
func (g *Dibs) Sign(payload string) string {
	return md5hex(g.cfg.MD5Key2 + md5hex(g.cfg.MD5Key1+payload))
}

// InitiatePayment builds the self-submitting checkout form and moves the
// payment to pending. When any of order, store or payment is absent the
// result is unsuccessful and nothing is mutated.
func (g *Dibs) InitiatePayment(order *entity.Order, store *entity.Store, payment *entity.PaymentIn) (*ProcessResult, error) {
	if order == nil || store == nil || payment == nil {
		return &ProcessResult{}, nil
	}
	if store.SecureURL == "" && store.URL == "" {
		return nil, ErrStoreURLRequired
	}

	amount := MoneyToString(order.Total)
	payload := fmt.Sprintf(initiatePayloadFormat, g.cfg.MerchantID, order.Number, order.Currency, amount)

	params := []Param{
		{acceptURLField, g.cfg.AcceptURL},
		{callbackURLField, g.cfg.CallbackURL},
		{cancelURLField, g.cfg.AcceptURL},
		{merchantField, g.cfg.MerchantID},
		{orderIDField, order.Number},
		{OrderInternalIDField, order.ID},
		{amountField, amount},
		{currencyField, order.Currency},
		{langField, languageCode(store.DefaultLanguage)},
		{md5KeyField, g.Sign(payload)},
		{decoratorField, g.cfg.FormDecorator},
	}
	if g.cfg.Mode == "test" {
		params = append(params, Param{testField, "1"})
	}

	payment.Status = entity.PaymentStatusPending

	return &ProcessResult{
		Success:   true,
		HTMLForm:  buildCheckoutForm(g.cfg.RedirectURL, params),
		NewStatus: entity.PaymentStatusPending,
	}, nil
}

// VerifyCallback recomputes the response hash and compares it against the
// authkey field. The currency is translated to its ISO 4217 numeric code
// when an alphabetic lookup succeeds, otherwise used as received.
func (g *Dibs) VerifyCallback(params url.Values) *VerifyResult {
	currency := params.Get(currencyField)
	if numeric, ok := NumericCurrencyCode(currency); ok {
		currency = numeric
	}

	transact := params.Get(transactField)
	payload := fmt.Sprintf(responsePayloadFormat, transact, params.Get(amountField), currency)
	expected := g.Sign(payload)

	return &VerifyResult{
		OuterID: transact,
		Valid:   subtle.ConstantTimeCompare([]byte(expected), []byte(params.Get(authKeyField))) == 1,
	}
}

// HandleCallback pairs the callback with the order's in-payment by gateway
// code and minor-unit amount, verifies the signature and applies the state
// transition. Persisting the mutated order is the caller's responsibility
// and must only happen when the result reports success.
func (g *Dibs) HandleCallback(order *entity.Order, params url.Values) (*CallbackResult, error) {
	amount := params.Get(amountField)

	var payment *entity.PaymentIn
	for _, p := range order.InPayments {
		if p.GatewayCode == Code && MoneyToString(p.Sum) == amount {
			payment = p
			break
		}
	}
	if payment == nil {
		return nil, ErrPaymentNotFound
	}

	verified := g.VerifyCallback(params)

	switch payment.Status {
	case entity.PaymentStatusPending:
		now := time.Now().UTC()
		payment.Status = entity.PaymentStatusAuthorized
		payment.AuthorizedAt = &now
		payment.OuterID = verified.OuterID
		return &CallbackResult{
			Success:   verified.Valid,
			OuterID:   payment.OuterID,
			NewStatus: entity.PaymentStatusAuthorized,
		}, nil
	case entity.PaymentStatusAuthorized:
		// Idempotent retry from the gateway: re-verify, change nothing.
		return &CallbackResult{
			Success:   verified.Valid,
			OuterID:   payment.OuterID,
			NewStatus: entity.PaymentStatusAuthorized,
		}, nil
	default:
		return nil, fmt.Errorf("%w: status is %s", ErrInvalidPaymentState, payment.Status)
	}
}

// Capture settles an authorized payment. Payments already approved, or in
// a status other than authorized/cancelled, are skipped without a remote
// call and without the success flag.
func (g *Dibs) Capture(ctx context.Context, payment *entity.PaymentIn, order *entity.Order) *OperationResult {
	result := &OperationResult{}

	if payment.IsApproved || (payment.Status != entity.PaymentStatusAuthorized && payment.Status != entity.PaymentStatusCancelled) {
		return result
	}

	params := []Param{
		{merchantField, g.cfg.MerchantID},
		{amountField, MoneyToString(payment.Sum)},
		{transactField, payment.OuterID},
		{orderIDField, order.Number},
	}
	payload := fmt.Sprintf(operationPayloadFormat,
		paramValue(params, merchantField),
		paramValue(params, orderIDField),
		paramValue(params, transactField),
		paramValue(params, amountField),
	)
	params = append(params, Param{md5KeyField, g.Sign(payload)})

	if err := g.postOperation(ctx, g.cfg.CaptureURL, params); err != nil {
		result.ErrorMessage = err.Error()
		return result
	}

	now := time.Now().UTC()
	payment.Status = entity.PaymentStatusPaid
	payment.CapturedAt = &now
	payment.IsApproved = true
	result.Success = true
	result.NewStatus = entity.PaymentStatusPaid
	return result
}

// Refund returns funds on a captured payment. The signing merchant id is
// read from configuration here, not from the parameter list; the gateway's
// expected hash format depends on this exact construction.
func (g *Dibs) Refund(ctx context.Context, payment *entity.PaymentIn, order *entity.Order) *OperationResult {
	result := &OperationResult{}

	if !payment.IsApproved || payment.Status != entity.PaymentStatusPaid {
		return result
	}

	params := []Param{
		{merchantField, g.cfg.MerchantID},
		{transactField, payment.OuterID},
		{amountField, MoneyToString(payment.Sum)},
		{currencyField, payment.Currency},
		{orderIDField, order.Number},
		{textReplyField, "yes"},
	}
	payload := fmt.Sprintf(operationPayloadFormat,
		g.cfg.MerchantID,
		paramValue(params, orderIDField),
		paramValue(params, transactField),
		paramValue(params, amountField),
	)
	params = append(params, Param{md5KeyField, g.Sign(payload)})

	if err := g.postOperation(ctx, g.cfg.RefundURL, params); err != nil {
		result.ErrorMessage = err.Error()
		return result
	}

	now := time.Now().UTC()
	payment.Status = entity.PaymentStatusRefunded
	payment.ModifiedAt = &now
	payment.IsApproved = false
	result.Success = true
	result.NewStatus = entity.PaymentStatusRefunded
	return result
}

// Void cancels an authorization that has not been captured. Approved
// payments must be refunded instead; already-cancelled payments report an
// error without another remote call.
func (g *Dibs) Void(ctx context.Context, payment *entity.PaymentIn, order *entity.Order) *OperationResult {
	result := &OperationResult{}

	switch {
	case !payment.IsApproved && payment.Status == entity.PaymentStatusAuthorized:
		params := []Param{
			{merchantField, g.cfg.MerchantID},
			{transactField, payment.OuterID},
			{orderIDField, order.Number},
		}
		payload := fmt.Sprintf(voidPayloadFormat,
			paramValue(params, merchantField),
			paramValue(params, orderIDField),
			paramValue(params, transactField),
		)
		params = append(params, Param{md5KeyField, g.Sign(payload)})

		if err := g.postOperation(ctx, g.cfg.CancelURL, params); err != nil {
			result.ErrorMessage = err.Error()
			return result
		}

		now := time.Now().UTC()
		payment.Status = entity.PaymentStatusCancelled
		payment.CancelledAt = &now
		result.Success = true
		result.NewStatus = entity.PaymentStatusCancelled
	case payment.IsApproved:
		result.ErrorMessage = "payment already approved, use refund"
		result.NewStatus = entity.PaymentStatusPaid
	case payment.IsCancelled():
		result.ErrorMessage = "payment already canceled"
		result.NewStatus = entity.PaymentStatusVoided
	}

	return result
}

// postOperation posts a form-urlencoded request with basic auth and expects
// a query-string body carrying status=ACCEPTED and result=0.
func (g *Dibs) postOperation(ctx context.Context, endpoint string, params []Param) error {
	form := url.Values{}
	for _, p := range params {
		form.Set(p.Name, p.Value)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.SetBasicAuth(g.cfg.APILogin, g.cfg.APIPassword)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	reply := strings.TrimSpace(string(body))
	if resp.StatusCode >= 400 {
		return fmt.Errorf("dibs request failed: status=%d body=%s", resp.StatusCode, reply)
	}

	values, err := url.ParseQuery(reply)
	if err != nil {
		return fmt.Errorf("dibs response malformed: %s", reply)
	}
	if values.Get("status") != "ACCEPTED" || values.Get("result") != "0" {
		return fmt.Errorf("dibs request rejected: %s", reply)
	}
	return nil
}

func buildCheckoutForm(actionURL string, params []Param) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<form name='dibs' action='%s' method='POST' charset='UTF-8'>", html.EscapeString(actionURL))
	b.WriteString("<p>You'll be redirected to DIBS payment in a moment. If not, click the 'Proceed' button...</p>")
	for _, p := range params {
		fmt.Fprintf(&b, "<INPUT TYPE='hidden' name='%s' value='%s'>", html.EscapeString(p.Name), html.EscapeString(p.Value))
	}
	b.WriteString("<button type='submit'>Proceed</button>")
	b.WriteString("</form>")
	b.WriteString("<script language='javascript'>document.dibs.submit();</script>")
	return b.String()
}

func paramValue(params []Param, name string) string {
	for _, p := range params {
		if p.Name == name {
			return p.Value
		}
	}
	return ""
}

func languageCode(locale string) string {
	if len(locale) < 2 {
		return "en"
	}
	return strings.ToLower(locale[:2])
}

func md5hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
