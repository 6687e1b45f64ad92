package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/commercegate/ms-go-dibs/app/entity"
)

var (
	ErrPaymentNotFound      = errors.New("payment not found")
	ErrPaymentAlreadyExists = errors.New("payment already exists")
)

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `
	id, order_id, gateway_code, status, sum, currency, outer_id, is_approved,
	authorized_at, captured_at, cancelled_at, modified_at, created_at, updated_at
`

func (r *PaymentRepository) Create(ctx context.Context, payment *entity.PaymentIn) error {
	query := `
		INSERT INTO order_in_payments (
			id, order_id, gateway_code, status, sum, currency, outer_id, is_approved,
			authorized_at, captured_at, cancelled_at, modified_at, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.OrderID,
		payment.GatewayCode,
		int32(payment.Status),
		payment.Sum,
		payment.Currency,
		payment.OuterID,
		payment.IsApproved,
		nullableTimeValue(payment.AuthorizedAt),
		nullableTimeValue(payment.CapturedAt),
		nullableTimeValue(payment.CancelledAt),
		nullableTimeValue(payment.ModifiedAt),
		payment.CreatedAt,
		payment.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrPaymentAlreadyExists
		}
		return err
	}
	return nil
}

func (r *PaymentRepository) Save(ctx context.Context, payment *entity.PaymentIn) error {
	query := `
		UPDATE order_in_payments SET
			status = ?,
			sum = ?,
			currency = ?,
			outer_id = ?,
			is_approved = ?,
			authorized_at = ?,
			captured_at = ?,
			cancelled_at = ?,
			modified_at = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		int32(payment.Status),
		payment.Sum,
		payment.Currency,
		payment.OuterID,
		payment.IsApproved,
		nullableTimeValue(payment.AuthorizedAt),
		nullableTimeValue(payment.CapturedAt),
		nullableTimeValue(payment.CancelledAt),
		nullableTimeValue(payment.ModifiedAt),
		payment.UpdatedAt,
		payment.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*entity.PaymentIn, error) {
	query := `SELECT ` + paymentColumns + ` FROM order_in_payments WHERE id = ?`

	payment := &entity.PaymentIn{}
	if err := scanPayment(r.db.QueryRowContext(ctx, query, id), payment); err == sql.ErrNoRows {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *PaymentRepository) ListByOrderID(ctx context.Context, orderID string) ([]*entity.PaymentIn, error) {
	query := `SELECT ` + paymentColumns + ` FROM order_in_payments WHERE order_id = ? ORDER BY created_at`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.PaymentIn, 0)
	for rows.Next() {
		payment := &entity.PaymentIn{}
		if err := scanPayment(rows, payment); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

// ListExpiredPending returns pending payments created before the cutoff,
// oldest first, for the expiry job.
func (r *PaymentRepository) ListExpiredPending(ctx context.Context, cutoff time.Time, limit int32) ([]*entity.PaymentIn, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM order_in_payments
		WHERE status = ? AND created_at <= ?
		ORDER BY created_at
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, query, int32(entity.PaymentStatusPending), cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]*entity.PaymentIn, 0)
	for rows.Next() {
		payment := &entity.PaymentIn{}
		if err := scanPayment(rows, payment); err != nil {
			return nil, err
		}
		payments = append(payments, payment)
	}
	return payments, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPayment(row rowScanner, payment *entity.PaymentIn) error {
	var (
		status       int32
		authorizedAt sql.NullTime
		capturedAt   sql.NullTime
		cancelledAt  sql.NullTime
		modifiedAt   sql.NullTime
	)

	err := row.Scan(
		&payment.ID,
		&payment.OrderID,
		&payment.GatewayCode,
		&status,
		&payment.Sum,
		&payment.Currency,
		&payment.OuterID,
		&payment.IsApproved,
		&authorizedAt,
		&capturedAt,
		&cancelledAt,
		&modifiedAt,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
	if err != nil {
		return err
	}

	payment.Status = entity.PaymentStatus(status)
	payment.AuthorizedAt = timePtrFromNull(authorizedAt)
	payment.CapturedAt = timePtrFromNull(capturedAt)
	payment.CancelledAt = timePtrFromNull(cancelledAt)
	payment.ModifiedAt = timePtrFromNull(modifiedAt)
	return nil
}
