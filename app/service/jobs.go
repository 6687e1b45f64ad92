package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/commercegate/ms-go-dibs/app/entity"
)

// RunExpirePendingBatch cancels pending payments whose customer never came
// back from the hosted form. Nothing was authorized at the gateway, so the
// expiry is purely local.
func (s *PaymentService) RunExpirePendingBatch(ctx context.Context) error {
	timeout := s.paymentsCfg.PendingTimeout
	if timeout <= 0 {
		timeout = time.Hour
	}

	now := time.Now().UTC()
	cutoff := now.Add(-timeout)

	payments, err := s.paymentRepo.ListExpiredPending(ctx, cutoff, s.batchSize())
	if err != nil {
		return err
	}

	expired := 0
	for _, payment := range payments {
		oldStatus := payment.Status
		stamp := now
		payment.Status = entity.PaymentStatusCancelled
		payment.CancelledAt = &stamp
		payment.UpdatedAt = now

		if err := s.paymentRepo.Save(ctx, payment); err != nil {
			logrus.WithError(err).WithField("payment_id", payment.ID).Error("Expire pending payment failed")
			continue
		}

		_ = s.eventRepo.Create(ctx, &entity.PaymentEvent{
			PaymentID: payment.ID,
			OrderID:   payment.OrderID,
			EventType: "payment_expired",
			OldStatus: &oldStatus,
			NewStatus: payment.Status,
			CreatedAt: now,
		})
		expired++
	}

	if expired > 0 {
		logrus.WithField("count", expired).Info("Expired stale pending payments")
	}
	return nil
}
