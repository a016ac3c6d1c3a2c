package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/andresuchdata/stockcount/internal/domain"
	"github.com/andresuchdata/stockcount/internal/repository"
	"github.com/jmoiron/sqlx"
)

type staffRepository struct {
	db *DB
}

func NewStaffRepository(db *DB) *staffRepository {
	return &staffRepository{db: db}
}

func (r *staffRepository) GetStaff(ctx context.Context, id string) (*domain.Staff, error) {
	var s domain.Staff
	err := sqlx.GetContext(ctx, r.db, &s, `SELECT id, name, role, phone, email FROM staff WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get staff %s: %w", id, err)
	}
	return &s, nil
}

func (r *staffRepository) ListStaff(ctx context.Context) ([]domain.Staff, error) {
	var staff []domain.Staff
	if err := sqlx.SelectContext(ctx, r.db, &staff, `SELECT id, name, role, phone, email FROM staff ORDER BY id`); err != nil {
		return nil, fmt.Errorf("failed to list staff: %w", err)
	}
	return staff, nil
}
