package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/unclebandit/restaurant-crm-backend/internal/db"
	appErrors "github.com/unclebandit/restaurant-crm-backend/internal/errors"
	"github.com/unclebandit/restaurant-crm-backend/internal/logger"
)

// PostgreSQL error codes
const (
	foreignKeyViolationCode = "23503"
	checkViolationCode      = "23514"
)

// StoreInterface is everything the service needs from persistence.
type StoreInterface interface {
	CustomerRepositoryInterface
	PreferenceRepositoryInterface
	VisitRecordRepositoryInterface

	// WithinTx runs fn against a Store bound to one transaction. fn's error rolls everything back.
	WithinTx(ctx context.Context, fn func(tx StoreInterface) error) error
}

// Store is the PostgreSQL implementation of StoreInterface.
type Store struct {
	DB     db.DBTX
	conn   *sql.DB
	logger *zap.Logger
}

func NewStore(conn *sql.DB, log *zap.Logger) *Store {
	return &Store{
		DB:     conn,
		conn:   conn,
		logger: logger.OrNop(log).With(zap.String("component", "store")),
	}
}

func (s *Store) WithinTx(ctx context.Context, fn func(tx StoreInterface) error) error {
	if s.conn == nil {
		// already transaction-bound
		return fn(s)
	}
	return db.RunInTransaction(ctx, s.conn, s.logger, func(ctx context.Context, tx *sql.Tx) error {
		return fn(&Store{DB: tx, logger: s.logger})
	})
}

// mapWriteError turns constraint violations on rows owned by customerID into domain errors.
func (s *Store) mapWriteError(op string, customerID int, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case foreignKeyViolationCode:
			return appErrors.NewCustomerNotFound(customerID)
		case checkViolationCode:
			return appErrors.NewValidationError(pqErr.Column, pqErr.Message)
		}
	}
	s.logger.Debug("write failed", zap.String("op", op), zap.Error(err))
	return appErrors.NewStoreError(op, err)
}

type rowScanner interface {
	Scan(dest ...any) error
}

var _ StoreInterface = (*Store)(nil)
