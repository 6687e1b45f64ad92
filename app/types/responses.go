package types

type HealthResponse struct {
	Status string `json:"status"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type OperationResponse struct {
	Success bool             `json:"success"`
	Error   string           `json:"error,omitempty"`
	Payment *PaymentResponse `json:"payment,omitempty"`
}

type PaymentResponse struct {
	ID           string `json:"id"`
	OrderID      string `json:"order_id"`
	GatewayCode  string `json:"gateway_code"`
	Status       string `json:"status"`
	Sum          string `json:"sum"`
	Currency     string `json:"currency"`
	OuterID      string `json:"outer_id,omitempty"`
	IsApproved   bool   `json:"is_approved"`
	AuthorizedAt string `json:"authorized_at,omitempty"`
	CapturedAt   string `json:"captured_at,omitempty"`
	CancelledAt  string `json:"cancelled_at,omitempty"`
	CreatedAt    string `json:"created_at"`
	UpdatedAt    string `json:"updated_at"`
}

type OrderResponse struct {
	ID         string             `json:"id"`
	Number     string             `json:"number"`
	StoreID    string             `json:"store_id"`
	Currency   string             `json:"currency"`
	Total      float64            `json:"total"`
	InPayments []*PaymentResponse `json:"in_payments"`
	CreatedAt  string             `json:"created_at"`
	UpdatedAt  string             `json:"updated_at"`
}
