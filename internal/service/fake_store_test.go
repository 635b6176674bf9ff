package service_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/unclebandit/restaurant-crm-backend/internal/assembler"
	appErrors "github.com/unclebandit/restaurant-crm-backend/internal/errors"
	"github.com/unclebandit/restaurant-crm-backend/internal/model"
	"github.com/unclebandit/restaurant-crm-backend/internal/repository"
)

// fakeStore keeps rows in slices and restores a snapshot when a transaction fails.
type fakeStore struct {
	customers []model.Customer
	prefs     []model.Preference
	visits    []model.VisitRecord

	nextCustomerID int
	nextPrefID     int
	nextVisitID    int

	// failOn makes the named method return the error.
	failOn map[string]error
	// calls records mutating calls in order.
	calls []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		nextCustomerID: 7,
		nextPrefID:     100,
		nextVisitID:    200,
		failOn:         map[string]error{},
	}
}

var _ repository.StoreInterface = (*fakeStore)(nil)

func (f *fakeStore) fail(method string) error {
	if err, ok := f.failOn[method]; ok {
		return err
	}
	return nil
}

func (f *fakeStore) record(call string) {
	f.calls = append(f.calls, call)
}

func (f *fakeStore) WithinTx(ctx context.Context, fn func(tx repository.StoreInterface) error) error {
	customers := append([]model.Customer(nil), f.customers...)
	prefs := append([]model.Preference(nil), f.prefs...)
	visits := append([]model.VisitRecord(nil), f.visits...)
	ids := [3]int{f.nextCustomerID, f.nextPrefID, f.nextVisitID}

	if err := fn(f); err != nil {
		f.customers, f.prefs, f.visits = customers, prefs, visits
		f.nextCustomerID, f.nextPrefID, f.nextVisitID = ids[0], ids[1], ids[2]
		return err
	}
	return nil
}

func (f *fakeStore) customerIndex(id int) int {
	for i, c := range f.customers {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (f *fakeStore) FindAllCustomers(ctx context.Context) ([]model.Customer, error) {
	if err := f.fail("FindAllCustomers"); err != nil {
		return nil, err
	}
	return append([]model.Customer{}, f.customers...), nil
}

func (f *fakeStore) FindCustomerByID(ctx context.Context, id int) (*model.Customer, error) {
	i := f.customerIndex(id)
	if i < 0 {
		return nil, appErrors.NewCustomerNotFound(id)
	}
	c := f.customers[i]
	return &c, nil
}

func (f *fakeStore) FindCustomerDetailsByConditions(ctx context.Context, search model.CustomerSearch) ([]model.CustomerDetail, error) {
	var matched []model.Customer
	for _, c := range f.customers {
		if name, ok := search.Name.Get(); ok && !strings.Contains(c.Name, name) {
			continue
		}
		matched = append(matched, c)
	}
	return assembler.ComposeMany(matched, f.prefs, f.visits), nil
}

func (f *fakeStore) RegisterCustomer(ctx context.Context, c *model.Customer) error {
	if err := f.fail("RegisterCustomer"); err != nil {
		return err
	}
	c.ID = f.nextCustomerID
	f.nextCustomerID++
	f.customers = append(f.customers, *c)
	f.record("RegisterCustomer")
	return nil
}

func (f *fakeStore) UpdateCustomer(ctx context.Context, c *model.Customer) error {
	i := f.customerIndex(c.ID)
	if i < 0 {
		return appErrors.NewCustomerNotFound(c.ID)
	}
	f.customers[i] = *c
	f.record("UpdateCustomer")
	return nil
}

func (f *fakeStore) ExistsCustomer(ctx context.Context, id int) (bool, error) {
	return f.customerIndex(id) >= 0, nil
}

func (f *fakeStore) DeleteCustomerByID(ctx context.Context, id int) error {
	i := f.customerIndex(id)
	if i < 0 {
		return appErrors.NewCustomerNotFound(id)
	}
	for _, p := range f.prefs {
		if p.CustomerID == id {
			return appErrors.NewStoreError("delete customer", errors.New("preferences still reference customer"))
		}
	}
	for _, v := range f.visits {
		if v.CustomerID == id {
			return appErrors.NewStoreError("delete customer", errors.New("visit records still reference customer"))
		}
	}
	f.customers = append(f.customers[:i], f.customers[i+1:]...)
	f.record("DeleteCustomerByID")
	return nil
}

func (f *fakeStore) FindAllPreferences(ctx context.Context) ([]model.Preference, error) {
	if err := f.fail("FindAllPreferences"); err != nil {
		return nil, err
	}
	return append([]model.Preference{}, f.prefs...), nil
}

func (f *fakeStore) FindPreferencesByCustomer(ctx context.Context, customerID int) ([]model.Preference, error) {
	out := []model.Preference{}
	for _, p := range f.prefs {
		if p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) RegisterPreference(ctx context.Context, p *model.Preference) error {
	if err := f.fail("RegisterPreference"); err != nil {
		return err
	}
	if f.customerIndex(p.CustomerID) < 0 {
		return appErrors.NewCustomerNotFound(p.CustomerID)
	}
	p.ID = f.nextPrefID
	f.nextPrefID++
	f.prefs = append(f.prefs, *p)
	f.record("RegisterPreference")
	return nil
}

func (f *fakeStore) UpdatePreference(ctx context.Context, p *model.Preference) error {
	for i := range f.prefs {
		if f.prefs[i].ID == p.ID {
			f.prefs[i] = *p
			f.record("UpdatePreference")
			return nil
		}
	}
	return appErrors.NewPreferenceNotFound(p.ID)
}

func (f *fakeStore) UpdateOwnedPreference(ctx context.Context, p *model.Preference) error {
	for i := range f.prefs {
		if f.prefs[i].ID == p.ID && f.prefs[i].CustomerID == p.CustomerID {
			f.prefs[i] = *p
			f.record("UpdateOwnedPreference")
			return nil
		}
	}
	return appErrors.NewPreferenceNotFound(p.ID)
}

func (f *fakeStore) DeletePreferencesByCustomer(ctx context.Context, customerID int) (int64, error) {
	kept := f.prefs[:0:0]
	for _, p := range f.prefs {
		if p.CustomerID != customerID {
			kept = append(kept, p)
		}
	}
	n := int64(len(f.prefs) - len(kept))
	f.prefs = kept
	f.record("DeletePreferencesByCustomer")
	return n, nil
}

func (f *fakeStore) FindAllVisitRecords(ctx context.Context) ([]model.VisitRecord, error) {
	if err := f.fail("FindAllVisitRecords"); err != nil {
		return nil, err
	}
	return append([]model.VisitRecord{}, f.visits...), nil
}

func (f *fakeStore) FindVisitRecordsByCustomer(ctx context.Context, customerID int) ([]model.VisitRecord, error) {
	if err := f.fail("FindVisitRecordsByCustomer"); err != nil {
		return nil, err
	}
	out := []model.VisitRecord{}
	for _, v := range f.visits {
		if v.CustomerID == customerID {
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeStore) RegisterVisitRecord(ctx context.Context, v *model.VisitRecord) error {
	if err := f.fail("RegisterVisitRecord"); err != nil {
		return err
	}
	if f.customerIndex(v.CustomerID) < 0 {
		return appErrors.NewCustomerNotFound(v.CustomerID)
	}
	v.ID = f.nextVisitID
	f.nextVisitID++
	f.visits = append(f.visits, *v)
	f.record("RegisterVisitRecord")
	return nil
}

func (f *fakeStore) UpdateVisitRecord(ctx context.Context, v *model.VisitRecord) error {
	for i := range f.visits {
		if f.visits[i].ID == v.ID {
			f.visits[i] = *v
			f.record("UpdateVisitRecord")
			return nil
		}
	}
	return appErrors.NewVisitRecordNotFound(v.ID)
}

func (f *fakeStore) UpdateOwnedVisitRecord(ctx context.Context, v *model.VisitRecord) error {
	for i := range f.visits {
		if f.visits[i].ID == v.ID && f.visits[i].CustomerID == v.CustomerID {
			f.visits[i] = *v
			f.record("UpdateOwnedVisitRecord")
			return nil
		}
	}
	return appErrors.NewVisitRecordNotFound(v.ID)
}

func (f *fakeStore) DeleteVisitRecordsByCustomer(ctx context.Context, customerID int) (int64, error) {
	kept := f.visits[:0:0]
	for _, v := range f.visits {
		if v.CustomerID != customerID {
			kept = append(kept, v)
		}
	}
	n := int64(len(f.visits) - len(kept))
	f.visits = kept
	f.record("DeleteVisitRecordsByCustomer")
	return n, nil
}

// recordingQueue captures published events.
type recordingQueue struct {
	mu     sync.Mutex
	events []any
	err    error
}

func (q *recordingQueue) Publish(topic string, payload any) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return q.err
	}
	q.events = append(q.events, payload)
	return nil
}

func (q *recordingQueue) Subscribe(topic string, handler func(payload any) error) error {
	return nil
}
