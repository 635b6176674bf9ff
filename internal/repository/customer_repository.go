package repository

import (
	"context"
	"database/sql"
	"errors"

	appErrors "github.com/unclebandit/restaurant-crm-backend/internal/errors"
	"github.com/unclebandit/restaurant-crm-backend/internal/model"
)

type CustomerRepositoryInterface interface {
	FindAllCustomers(ctx context.Context) ([]model.Customer, error)
	FindCustomerByID(ctx context.Context, id int) (*model.Customer, error)
	FindCustomerDetailsByConditions(ctx context.Context, search model.CustomerSearch) ([]model.CustomerDetail, error)
	RegisterCustomer(ctx context.Context, c *model.Customer) error
	UpdateCustomer(ctx context.Context, c *model.Customer) error
	ExistsCustomer(ctx context.Context, id int) (bool, error)
	DeleteCustomerByID(ctx context.Context, id int) error
}

const customerColumns = `id, name, furigana, gender, phone_number, email, birthday, address, created_at, updated_at`

func scanCustomer(row rowScanner) (model.Customer, error) {
	var c model.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Furigana, &c.Gender, &c.PhoneNumber, &c.Email,
		&c.Birthday, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *Store) FindAllCustomers(ctx context.Context) ([]model.Customer, error) {
	return s.queryCustomers(ctx, "find all customers", `SELECT `+customerColumns+` FROM customers ORDER BY id`)
}

func (s *Store) queryCustomers(ctx context.Context, op, query string, args ...any) ([]model.Customer, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, appErrors.NewStoreError(op, err)
	}
	defer rows.Close()

	customers := []model.Customer{}
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, appErrors.NewStoreError(op, err)
		}
		customers = append(customers, c)
	}
	if err := rows.Err(); err != nil {
		return nil, appErrors.NewStoreError(op, err)
	}
	return customers, nil
}

// FindCustomerByID returns a NotFoundError when no customer has the id.
func (s *Store) FindCustomerByID(ctx context.Context, id int) (*model.Customer, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	c, err := scanCustomer(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCustomerNotFound(id)
		}
		return nil, appErrors.NewStoreError("find customer", err)
	}
	return &c, nil
}

// RegisterCustomer inserts c and fills in its assigned ID and timestamps.
func (s *Store) RegisterCustomer(ctx context.Context, c *model.Customer) error {
	query := `
        INSERT INTO customers (name, furigana, gender, phone_number, email, birthday, address)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
        RETURNING id, created_at, updated_at
    `
	err := s.DB.QueryRowContext(ctx, query,
		c.Name, c.Furigana, c.Gender, c.PhoneNumber, c.Email, c.Birthday, c.Address,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return s.mapWriteError("register customer", c.ID, err)
	}
	return nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	query := `
        UPDATE customers
        SET name=$1, furigana=$2, gender=$3, phone_number=$4, email=$5, birthday=$6, address=$7, updated_at=NOW()
        WHERE id=$8
        RETURNING created_at, updated_at
    `
	err := s.DB.QueryRowContext(ctx, query,
		c.Name, c.Furigana, c.Gender, c.PhoneNumber, c.Email, c.Birthday, c.Address, c.ID,
	).Scan(&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.NewCustomerNotFound(c.ID)
		}
		return s.mapWriteError("update customer", c.ID, err)
	}
	return nil
}

func (s *Store) ExistsCustomer(ctx context.Context, id int) (bool, error) {
	var exists bool
	err := s.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM customers WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, appErrors.NewStoreError("exists customer", err)
	}
	return exists, nil
}

// DeleteCustomerByID removes the customer row only; children must be deleted first.
func (s *Store) DeleteCustomerByID(ctx context.Context, id int) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return appErrors.NewStoreError("delete customer", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return appErrors.NewStoreError("delete customer", err)
	}
	if n == 0 {
		return appErrors.NewCustomerNotFound(id)
	}
	return nil
}
