package repository

import (
	"context"
	"database/sql"
	"errors"

	appErrors "github.com/unclebandit/restaurant-crm-backend/internal/errors"
	"github.com/unclebandit/restaurant-crm-backend/internal/model"
)

type VisitRecordRepositoryInterface interface {
	FindAllVisitRecords(ctx context.Context) ([]model.VisitRecord, error)
	FindVisitRecordsByCustomer(ctx context.Context, customerID int) ([]model.VisitRecord, error)
	RegisterVisitRecord(ctx context.Context, v *model.VisitRecord) error
	UpdateVisitRecord(ctx context.Context, v *model.VisitRecord) error
	UpdateOwnedVisitRecord(ctx context.Context, v *model.VisitRecord) error
	DeleteVisitRecordsByCustomer(ctx context.Context, customerID int) (int64, error)
}

const visitRecordColumns = `id, customer_id, visit_date, total_spent, notes, created_at, updated_at`

func (s *Store) FindAllVisitRecords(ctx context.Context) ([]model.VisitRecord, error) {
	return s.queryVisitRecords(ctx, "find all visit records", `SELECT `+visitRecordColumns+` FROM visit_records ORDER BY id`)
}

func (s *Store) FindVisitRecordsByCustomer(ctx context.Context, customerID int) ([]model.VisitRecord, error) {
	return s.queryVisitRecords(ctx, "find visit records by customer",
		`SELECT `+visitRecordColumns+` FROM visit_records WHERE customer_id = $1 ORDER BY id`, customerID)
}

func (s *Store) queryVisitRecords(ctx context.Context, op, query string, args ...any) ([]model.VisitRecord, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, appErrors.NewStoreError(op, err)
	}
	defer rows.Close()

	visits := []model.VisitRecord{}
	for rows.Next() {
		var v model.VisitRecord
		if err := rows.Scan(&v.ID, &v.CustomerID, &v.VisitDate, &v.TotalSpent, &v.Notes, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, appErrors.NewStoreError(op, err)
		}
		visits = append(visits, v)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.NewStoreError(op, err)
	}
	return visits, nil
}

func (s *Store) RegisterVisitRecord(ctx context.Context, v *model.VisitRecord) error {
	query := `
        INSERT INTO visit_records (customer_id, visit_date, total_spent, notes)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at
    `
	err := s.DB.QueryRowContext(ctx, query, v.CustomerID, v.VisitDate, v.TotalSpent, v.Notes).
		Scan(&v.ID, &v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		return s.mapWriteError("register visit record", v.CustomerID, err)
	}
	return nil
}

func (s *Store) UpdateVisitRecord(ctx context.Context, v *model.VisitRecord) error {
	query := `
        UPDATE visit_records
        SET customer_id=$1, visit_date=$2, total_spent=$3, notes=$4, updated_at=NOW()
        WHERE id=$5
        RETURNING created_at, updated_at
    `
	err := s.DB.QueryRowContext(ctx, query, v.CustomerID, v.VisitDate, v.TotalSpent, v.Notes, v.ID).
		Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewVisitRecordNotFound(v.ID)
		}
		return s.mapWriteError("update visit record", v.CustomerID, err)
	}
	return nil
}

// UpdateOwnedVisitRecord rewrites v only while it still belongs to v.CustomerID.
func (s *Store) UpdateOwnedVisitRecord(ctx context.Context, v *model.VisitRecord) error {
	query := `
        UPDATE visit_records
        SET visit_date=$1, total_spent=$2, notes=$3, updated_at=NOW()
        WHERE id=$4 AND customer_id=$5
        RETURNING created_at, updated_at
    `
	err := s.DB.QueryRowContext(ctx, query, v.VisitDate, v.TotalSpent, v.Notes, v.ID, v.CustomerID).
		Scan(&v.CreatedAt, &v.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewVisitRecordNotFound(v.ID)
		}
		return s.mapWriteError("update owned visit record", v.CustomerID, err)
	}
	return nil
}

func (s *Store) DeleteVisitRecordsByCustomer(ctx context.Context, customerID int) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM visit_records WHERE customer_id = $1`, customerID)
	if err != nil {
		return 0, appErrors.NewStoreError("delete visit records", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, appErrors.NewStoreError("delete visit records", err)
	}
	return n, nil
}
