package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/commercegate/ms-go-dibs/app/entity"
)

var (
	ErrOrderNotFound      = errors.New("order not found")
	ErrOrderAlreadyExists = errors.New("order already exists")
)

type OrderRepository struct {
	db DBTX

	payments *PaymentRepository
}

func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db, payments: NewPaymentRepository(db)}
}

// FindByID loads the order together with its in-payments. Returns nil, nil
// when the order does not exist.
func (r *OrderRepository) FindByID(ctx context.Context, id string) (*entity.Order, error) {
	query := `
		SELECT id, number, store_id, currency, total, created_at, updated_at
		FROM orders
		WHERE id = ?
	`

	order := &entity.Order{}
	row := r.db.QueryRowContext(ctx, query, id)
	err := row.Scan(&order.ID, &order.Number, &order.StoreID, &order.Currency, &order.Total, &order.CreatedAt, &order.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	payments, err := r.payments.ListByOrderID(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.InPayments = payments
	return order, nil
}

func (r *OrderRepository) Create(ctx context.Context, order *entity.Order) error {
	query := `
		INSERT INTO orders (id, number, store_id, currency, total, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		order.ID,
		order.Number,
		order.StoreID,
		order.Currency,
		order.Total,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if err != nil {
		if isDuplicateEntryError(err) {
			return ErrOrderAlreadyExists
		}
		return err
	}

	for _, payment := range order.InPayments {
		if err := r.payments.Create(ctx, payment); err != nil {
			return err
		}
	}
	return nil
}

// Save persists the order row and every in-payment attached to it.
func (r *OrderRepository) Save(ctx context.Context, order *entity.Order) error {
	query := `
		UPDATE orders SET
			number = ?,
			store_id = ?,
			currency = ?,
			total = ?,
			updated_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query,
		order.Number,
		order.StoreID,
		order.Currency,
		order.Total,
		order.UpdatedAt,
		order.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrOrderNotFound
	}

	for _, payment := range order.InPayments {
		if err := r.payments.Save(ctx, payment); err != nil {
			return err
		}
	}
	return nil
}
