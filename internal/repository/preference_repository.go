package repository

import (
	"context"
	"database/sql"
	"errors"

	appErrors "github.com/unclebandit/restaurant-crm-backend/internal/errors"
	"github.com/unclebandit/restaurant-crm-backend/internal/model"
)

type PreferenceRepositoryInterface interface {
	FindAllPreferences(ctx context.Context) ([]model.Preference, error)
	FindPreferencesByCustomer(ctx context.Context, customerID int) ([]model.Preference, error)
	RegisterPreference(ctx context.Context, p *model.Preference) error
	UpdatePreference(ctx context.Context, p *model.Preference) error
	UpdateOwnedPreference(ctx context.Context, p *model.Preference) error
	DeletePreferencesByCustomer(ctx context.Context, customerID int) (int64, error)
}

const preferenceColumns = `id, customer_id, preference, created_at, updated_at`

func (s *Store) FindAllPreferences(ctx context.Context) ([]model.Preference, error) {
	return s.queryPreferences(ctx, "find all preferences", `SELECT `+preferenceColumns+` FROM preferences ORDER BY id`)
}

func (s *Store) FindPreferencesByCustomer(ctx context.Context, customerID int) ([]model.Preference, error) {
	return s.queryPreferences(ctx, "find preferences by customer",
		`SELECT `+preferenceColumns+` FROM preferences WHERE customer_id = $1 ORDER BY id`, customerID)
}

func (s *Store) queryPreferences(ctx context.Context, op, query string, args ...any) ([]model.Preference, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, appErrors.NewStoreError(op, err)
	}
	defer rows.Close()

	prefs := []model.Preference{}
	for rows.Next() {
		var p model.Preference
		if err := rows.Scan(&p.ID, &p.CustomerID, &p.Preference, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, appErrors.NewStoreError(op, err)
		}
		prefs = append(prefs, p)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.NewStoreError(op, err)
	}
	return prefs, nil
}

// RegisterPreference inserts p as given; p.CustomerID must already be set.
func (s *Store) RegisterPreference(ctx context.Context, p *model.Preference) error {
	query := `
        INSERT INTO preferences (customer_id, preference)
        VALUES ($1, $2)
        RETURNING id, created_at, updated_at
    `
	err := s.DB.QueryRowContext(ctx, query, p.CustomerID, p.Preference).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return s.mapWriteError("register preference", p.CustomerID, err)
	}
	return nil
}

func (s *Store) UpdatePreference(ctx context.Context, p *model.Preference) error {
	query := `
        UPDATE preferences
        SET customer_id=$1, preference=$2, updated_at=NOW()
        WHERE id=$3
        RETURNING created_at, updated_at
    `
	err := s.DB.QueryRowContext(ctx, query, p.CustomerID, p.Preference, p.ID).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewPreferenceNotFound(p.ID)
		}
		return s.mapWriteError("update preference", p.CustomerID, err)
	}
	return nil
}

// UpdateOwnedPreference rewrites p only while it still belongs to p.CustomerID.
// A row owned by another customer is reported as not found.
func (s *Store) UpdateOwnedPreference(ctx context.Context, p *model.Preference) error {
	query := `
        UPDATE preferences
        SET preference=$1, updated_at=NOW()
        WHERE id=$2 AND customer_id=$3
        RETURNING created_at, updated_at
    `
	err := s.DB.QueryRowContext(ctx, query, p.Preference, p.ID, p.CustomerID).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewPreferenceNotFound(p.ID)
		}
		return s.mapWriteError("update owned preference", p.CustomerID, err)
	}
	return nil
}

// DeletePreferencesByCustomer returns the number of rows removed.
func (s *Store) DeletePreferencesByCustomer(ctx context.Context, customerID int) (int64, error) {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM preferences WHERE customer_id = $1`, customerID)
	if err != nil {
		return 0, appErrors.NewStoreError("delete preferences", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, appErrors.NewStoreError("delete preferences", err)
	}
	return n, nil
}
