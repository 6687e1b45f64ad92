package mapper

import (
	"time"

	"github.com/commercegate/ms-go-dibs/app/entity"
	"github.com/commercegate/ms-go-dibs/app/gateway"
	"github.com/commercegate/ms-go-dibs/app/types"
)

func PaymentToResponse(item *entity.PaymentIn) *types.PaymentResponse {
	if item == nil {
		return nil
	}

	return &types.PaymentResponse{
		ID:           item.ID,
		OrderID:      item.OrderID,
		GatewayCode:  item.GatewayCode,
		Status:       item.Status.String(),
		Sum:          gateway.MoneyToString(item.Sum),
		Currency:     item.Currency,
		OuterID:      item.OuterID,
		IsApproved:   item.IsApproved,
		AuthorizedAt: formatTimePtr(item.AuthorizedAt),
		CapturedAt:   formatTimePtr(item.CapturedAt),
		CancelledAt:  formatTimePtr(item.CancelledAt),
		CreatedAt:    item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:    item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func PaymentsToResponse(items []*entity.PaymentIn) []*types.PaymentResponse {
	result := make([]*types.PaymentResponse, 0, len(items))
	for _, item := range items {
		result = append(result, PaymentToResponse(item))
	}
	return result
}

func OrderToResponse(item *entity.Order) *types.OrderResponse {
	if item == nil {
		return nil
	}

	return &types.OrderResponse{
		ID:         item.ID,
		Number:     item.Number,
		StoreID:    item.StoreID,
		Currency:   item.Currency,
		Total:      item.Total,
		InPayments: PaymentsToResponse(item.InPayments),
		CreatedAt:  item.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:  item.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func formatTimePtr(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
