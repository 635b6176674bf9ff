// internal/service/customer_service.go
package service

import (
	"context"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"go.uber.org/zap"

	"github.com/unclebandit/restaurant-crm-backend/internal/assembler"
	appErrors "github.com/unclebandit/restaurant-crm-backend/internal/errors"
	"github.com/unclebandit/restaurant-crm-backend/internal/logger"
	"github.com/unclebandit/restaurant-crm-backend/internal/model"
	"github.com/unclebandit/restaurant-crm-backend/internal/queue"
	"github.com/unclebandit/restaurant-crm-backend/internal/repository"
)

// CustomerServiceInterface is what the HTTP layer depends on.
type CustomerServiceInterface interface {
	ListAll(ctx context.Context) ([]model.CustomerDetail, error)
	GetByID(ctx context.Context, id int) (model.CustomerDetail, error)
	Search(ctx context.Context, search model.CustomerSearch) ([]model.CustomerDetail, error)
	Register(ctx context.Context, detail model.CustomerDetail) (model.CustomerDetail, error)
	Update(ctx context.Context, update model.CustomerUpdate) error
	GetPreferencesByCustomer(ctx context.Context, customerID int) (mo.Option[model.Preference], error)
	GetVisitRecordsByCustomer(ctx context.Context, customerID int) ([]model.VisitRecord, error)
	RegisterPreference(ctx context.Context, p *model.Preference) error
	RegisterVisitRecord(ctx context.Context, v *model.VisitRecord) error
	UpdatePreference(ctx context.Context, p *model.Preference) error
	UpdateVisitRecord(ctx context.Context, v *model.VisitRecord) error
	DeleteCustomerCascade(ctx context.Context, id int) error
}

type CustomerService struct {
	Store  repository.StoreInterface
	Events queue.Queue // optional
	Topic  string
	Logger *zap.Logger
}

func NewCustomerService(store repository.StoreInterface, events queue.Queue, log *zap.Logger) *CustomerService {
	return &CustomerService{
		Store:  store,
		Events: events,
		Topic:  queue.CustomerEventsTopic,
		Logger: logger.OrNop(log).With(zap.String("component", "customer_service")),
	}
}

var _ CustomerServiceInterface = (*CustomerService)(nil)

func (s *CustomerService) log() *zap.Logger {
	return logger.OrNop(s.Logger)
}

// ListAll returns every customer with its children. No customers yields an empty slice.
func (s *CustomerService) ListAll(ctx context.Context) ([]model.CustomerDetail, error) {
	customers, err := s.Store.FindAllCustomers(ctx)
	if err != nil {
		return nil, err
	}
	prefs, err := s.Store.FindAllPreferences(ctx)
	if err != nil {
		return nil, err
	}
	visits, err := s.Store.FindAllVisitRecords(ctx)
	if err != nil {
		return nil, err
	}
	return assembler.ComposeMany(customers, prefs, visits), nil
}

// GetByID loads every preference and visit record and keeps the ones owned by id.
func (s *CustomerService) GetByID(ctx context.Context, id int) (model.CustomerDetail, error) {
	customer, err := s.Store.FindCustomerByID(ctx, id)
	if err != nil {
		return model.CustomerDetail{}, err
	}
	prefs, err := s.Store.FindAllPreferences(ctx)
	if err != nil {
		return model.CustomerDetail{}, err
	}
	visits, err := s.Store.FindAllVisitRecords(ctx)
	if err != nil {
		return model.CustomerDetail{}, err
	}
	return assembler.ComposeOne(*customer, prefs, visits), nil
}

func (s *CustomerService) Search(ctx context.Context, search model.CustomerSearch) ([]model.CustomerDetail, error) {
	return s.Store.FindCustomerDetailsByConditions(ctx, search)
}

// Register persists the customer and then its children, stamped with the new
// customer ID, in one transaction. The returned detail carries the persisted
// records in input order.
func (s *CustomerService) Register(ctx context.Context, detail model.CustomerDetail) (model.CustomerDetail, error) {
	customer := detail.Customer
	prefs := make([]model.Preference, len(detail.Preferences))
	copy(prefs, detail.Preferences)
	visits := make([]model.VisitRecord, len(detail.VisitRecords))
	copy(visits, detail.VisitRecords)

	err := s.Store.WithinTx(ctx, func(tx repository.StoreInterface) error {
		if err := tx.RegisterCustomer(ctx, &customer); err != nil {
			return err
		}
		for i := range prefs {
			prefs[i].CustomerID = customer.ID
			if err := tx.RegisterPreference(ctx, &prefs[i]); err != nil {
				return err
			}
		}
		for i := range visits {
			visits[i].CustomerID = customer.ID
			if err := tx.RegisterVisitRecord(ctx, &visits[i]); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		s.log().Warn("register customer failed", zap.Error(err))
		return model.CustomerDetail{}, err
	}

	s.log().Info("customer registered",
		zap.Int("customer_id", customer.ID),
		zap.Int("preferences", len(prefs)),
		zap.Int("visit_records", len(visits)))
	s.publish(queue.CustomerRegistered, customer.ID)

	return model.CustomerDetail{Customer: customer, Preferences: prefs, VisitRecords: visits}, nil
}

// Update rewrites the customer row. For each child kind, None leaves the
// stored records alone and Some(empty) deletes them all. Some(records)
// updates each listed record the customer already owns; it does not replace
// the stored set, so unlisted records stay. A listed record owned by another
// customer fails with its NotFound and nothing is written.
func (s *CustomerService) Update(ctx context.Context, update model.CustomerUpdate) error {
	customer := update.Customer

	err := s.Store.WithinTx(ctx, func(tx repository.StoreInterface) error {
		if err := tx.UpdateCustomer(ctx, &customer); err != nil {
			return err
		}

		if prefs, ok := update.Preferences.Get(); ok {
			if len(prefs) == 0 {
				if _, err := tx.DeletePreferencesByCustomer(ctx, customer.ID); err != nil {
					return err
				}
			}
			for _, p := range prefs {
				p.CustomerID = customer.ID
				if err := tx.UpdateOwnedPreference(ctx, &p); err != nil {
					return err
				}
			}
		}

		if visits, ok := update.VisitRecords.Get(); ok {
			if len(visits) == 0 {
				if _, err := tx.DeleteVisitRecordsByCustomer(ctx, customer.ID); err != nil {
					return err
				}
			}
			for _, v := range visits {
				v.CustomerID = customer.ID
				if err := tx.UpdateOwnedVisitRecord(ctx, &v); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		s.log().Warn("update customer failed", zap.Int("customer_id", customer.ID), zap.Error(err))
		return err
	}

	s.log().Info("customer updated", zap.Int("customer_id", customer.ID))
	s.publish(queue.CustomerUpdated, customer.ID)
	return nil
}

// GetPreferencesByCustomer returns only the first preference owned by the
// customer, in store order, even when the customer has several.
func (s *CustomerService) GetPreferencesByCustomer(ctx context.Context, customerID int) (mo.Option[model.Preference], error) {
	prefs, err := s.Store.FindAllPreferences(ctx)
	if err != nil {
		return mo.None[model.Preference](), err
	}
	first, ok := lo.Find(prefs, func(p model.Preference) bool {
		return p.CustomerID == customerID
	})
	return mo.TupleToOption(first, ok), nil
}

func (s *CustomerService) GetVisitRecordsByCustomer(ctx context.Context, customerID int) ([]model.VisitRecord, error) {
	visits, err := s.Store.FindAllVisitRecords(ctx)
	if err != nil {
		return nil, err
	}
	return lo.Filter(visits, func(v model.VisitRecord, _ int) bool {
		return v.CustomerID == customerID
	}), nil
}

func (s *CustomerService) RegisterPreference(ctx context.Context, p *model.Preference) error {
	return s.Store.RegisterPreference(ctx, p)
}

func (s *CustomerService) RegisterVisitRecord(ctx context.Context, v *model.VisitRecord) error {
	return s.Store.RegisterVisitRecord(ctx, v)
}

func (s *CustomerService) UpdatePreference(ctx context.Context, p *model.Preference) error {
	return s.Store.UpdatePreference(ctx, p)
}

func (s *CustomerService) UpdateVisitRecord(ctx context.Context, v *model.VisitRecord) error {
	return s.Store.UpdateVisitRecord(ctx, v)
}

// DeleteCustomerCascade removes visit records, then preferences, then the
// customer. A missing customer fails with NotFound before anything is deleted.
func (s *CustomerService) DeleteCustomerCascade(ctx context.Context, id int) error {
	var visitsDeleted, prefsDeleted int64

	err := s.Store.WithinTx(ctx, func(tx repository.StoreInterface) error {
		exists, err := tx.ExistsCustomer(ctx, id)
		if err != nil {
			return err
		}
		if !exists {
			return appErrors.NewCustomerNotFound(id)
		}
		if visitsDeleted, err = tx.DeleteVisitRecordsByCustomer(ctx, id); err != nil {
			return err
		}
		if prefsDeleted, err = tx.DeletePreferencesByCustomer(ctx, id); err != nil {
			return err
		}
		return tx.DeleteCustomerByID(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log().Info("customer deleted",
		zap.Int("customer_id", id),
		zap.Int64("visit_records_deleted", visitsDeleted),
		zap.Int64("preferences_deleted", prefsDeleted))
	s.publish(queue.CustomerDeleted, id)
	return nil
}

// publish is best effort: the write has already committed.
func (s *CustomerService) publish(eventType string, customerID int) {
	if s.Events == nil {
		return
	}
	topic := s.Topic
	if topic == "" {
		topic = queue.CustomerEventsTopic
	}
	ev := queue.NewCustomerEvent(eventType, customerID)
	if err := s.Events.Publish(topic, ev); err != nil {
		s.log().Warn("failed to publish customer event",
			zap.String("event_type", eventType),
			zap.Int("customer_id", customerID),
			zap.Error(err))
	}
}
