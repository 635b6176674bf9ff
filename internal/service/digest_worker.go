package service

import (
	"context"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/unclebandit/restaurant-crm-backend/internal/logger"
	"github.com/unclebandit/restaurant-crm-backend/internal/model"
	"github.com/unclebandit/restaurant-crm-backend/internal/queue"
)

// DigestRepository defines the methods the worker needs
type DigestRepository interface {
	FindPreferencesByCustomer(ctx context.Context, customerID int) ([]model.Preference, error)
	FindVisitRecordsByCustomer(ctx context.Context, customerID int) ([]model.VisitRecord, error)
}

// CustomerDigest summarises one customer's history.
type CustomerDigest struct {
	CustomerID      int
	PreferenceCount int
	VisitCount      int
	TotalSpent      float64
	LastVisit       *model.Date
}

// DigestWorker consumes customer events and logs a digest for every
// registered or updated customer.
type DigestWorker struct {
	Repo    DigestRepository
	Logger  *zap.Logger
	Timeout time.Duration
}

func NewDigestWorker(repo DigestRepository, log *zap.Logger) *DigestWorker {
	return &DigestWorker{
		Repo:    repo,
		Logger:  logger.OrNop(log).With(zap.String("component", "digest_worker")),
		Timeout: 10 * time.Second,
	}
}

// Start subscribes the worker to topic.
func (w *DigestWorker) Start(q queue.Queue, topic string) error {
	return q.Subscribe(topic, w.Handle)
}

// Handle is the queue callback. Malformed payloads are dropped; store
// failures are returned so the queue retries.
func (w *DigestWorker) Handle(payload any) error {
	log := logger.OrNop(w.Logger)

	ev, err := queue.DecodeCustomerEvent(payload)
	if err != nil {
		log.Warn("invalid customer event, dropping", zap.Error(err))
		return nil
	}
	log = log.With(
		zap.String("event_id", ev.ID.String()),
		zap.String("event_type", ev.Type),
		zap.Int("customer_id", ev.CustomerID))

	switch ev.Type {
	case queue.CustomerRegistered, queue.CustomerUpdated:
	case queue.CustomerDeleted:
		log.Info("customer removed")
		return nil
	default:
		log.Warn("unknown customer event type, ignoring")
		return nil
	}

	ctx := context.Background()
	if w.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.Timeout)
		defer cancel()
	}

	digest, err := w.Digest(ctx, ev.CustomerID)
	if err != nil {
		log.Error("failed to build customer digest", zap.Error(err))
		return err
	}

	fields := []zap.Field{
		zap.Int("preferences", digest.PreferenceCount),
		zap.Int("visits", digest.VisitCount),
		zap.Float64("total_spent", digest.TotalSpent),
	}
	if digest.LastVisit != nil {
		fields = append(fields, zap.String("last_visit", digest.LastVisit.String()))
	}
	log.Info("customer digest", fields...)
	return nil
}

func (w *DigestWorker) Digest(ctx context.Context, customerID int) (CustomerDigest, error) {
	prefs, err := w.Repo.FindPreferencesByCustomer(ctx, customerID)
	if err != nil {
		return CustomerDigest{}, err
	}
	visits, err := w.Repo.FindVisitRecordsByCustomer(ctx, customerID)
	if err != nil {
		return CustomerDigest{}, err
	}

	digest := CustomerDigest{
		CustomerID:      customerID,
		PreferenceCount: len(prefs),
		VisitCount:      len(visits),
		TotalSpent:      lo.SumBy(visits, func(v model.VisitRecord) float64 { return v.TotalSpent }),
	}

	dated := lo.FilterMap(visits, func(v model.VisitRecord, _ int) (model.Date, bool) {
		if v.VisitDate == nil {
			return model.Date{}, false
		}
		return *v.VisitDate, true
	})
	if len(dated) > 0 {
		last := lo.MaxBy(dated, func(a, b model.Date) bool { return a.After(b.Time) })
		digest.LastVisit = &last
	}
	return digest, nil
}
