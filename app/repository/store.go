package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/commercegate/ms-go-dibs/app/entity"
)

var ErrStoreNotFound = errors.New("store not found")

type StoreRepository struct {
	db DBTX
}

func NewStoreRepository(db DBTX) *StoreRepository {
	return &StoreRepository{db: db}
}

func (r *StoreRepository) FindByID(ctx context.Context, id string) (*entity.Store, error) {
	query := `
		SELECT id, name, url, secure_url, default_language
		FROM stores
		WHERE id = ?
	`

	store := &entity.Store{}
	row := r.db.QueryRowContext(ctx, query, id)
	err := row.Scan(&store.ID, &store.Name, &store.URL, &store.SecureURL, &store.DefaultLanguage)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}
