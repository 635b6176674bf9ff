// internal/controller/customer_controller.go
package controller

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/samber/mo"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/restaurant-crm-backend/internal/errors"
	"github.com/unclebandit/restaurant-crm-backend/internal/logger"
	"github.com/unclebandit/restaurant-crm-backend/internal/model"
	"github.com/unclebandit/restaurant-crm-backend/internal/service"
)

type CustomerController struct {
	Service service.CustomerServiceInterface
	Logger  *zap.Logger

	// Export, when set, is served at GET /customers/export.xlsx.
	Export http.Handler
}

func NewCustomerController(svc service.CustomerServiceInterface, log *zap.Logger) *CustomerController {
	return &CustomerController{
		Service: svc,
		Logger:  logger.OrNop(log).With(zap.String("component", "customer_controller")),
	}
}

// Routes mounts the customer API on r.
func (c *CustomerController) Routes(r chi.Router) {
	r.Get("/customerList", c.ListCustomers)

	r.Route("/customers", func(r chi.Router) {
		r.Get("/", c.SearchCustomers)
		r.Post("/", c.RegisterCustomer)
		if c.Export != nil {
			r.Method(http.MethodGet, "/export.xlsx", c.Export)
		}

		r.Route("/{customerId}", func(r chi.Router) {
			r.Get("/", c.GetCustomer)
			r.Put("/", c.UpdateCustomer)
			r.Delete("/", c.DeleteCustomer)

			r.Get("/preferences", c.GetPreferences)
			r.Post("/preferences", c.RegisterPreference)
			r.Get("/visitRecords", c.GetVisitRecords)
			r.Post("/visitRecords", c.RegisterVisitRecord)
		})
	})

	r.Put("/preferences/{preferenceId}", c.UpdatePreference)
	r.Put("/visitRecords/{visitRecordId}", c.UpdateVisitRecord)
}

func (c *CustomerController) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeError(w, r, logger.OrNop(c.Logger), err)
}

func (c *CustomerController) ListCustomers(w http.ResponseWriter, r *http.Request) {
	details, err := c.Service.ListAll(r.Context())
	if err != nil {
		c.fail(w, r, err)
		return
	}
	if len(details) == 0 {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

// SearchCustomers treats a missing or empty query parameter as no constraint.
func (c *CustomerController) SearchCustomers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	search := model.CustomerSearch{
		Name:        mo.EmptyableToOption(q.Get("name")),
		Furigana:    mo.EmptyableToOption(q.Get("furigana")),
		Gender:      mo.EmptyableToOption(q.Get("gender")),
		PhoneNumber: mo.EmptyableToOption(q.Get("phoneNumber")),
		Email:       mo.EmptyableToOption(q.Get("email")),
		Address:     mo.EmptyableToOption(q.Get("address")),
	}

	details, err := c.Service.Search(r.Context(), search)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

func (c *CustomerController) GetCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "customerId")
	if err != nil {
		c.fail(w, r, err)
		return
	}

	detail, err := c.Service.GetByID(r.Context(), id)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, detail)
}

func (c *CustomerController) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var detail model.CustomerDetail
	if err := decodeBody(r, &detail); err != nil {
		c.fail(w, r, err)
		return
	}
	if err := model.Validate(detail); err != nil {
		c.fail(w, r, err)
		return
	}

	created, err := c.Service.Register(r.Context(), detail)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

// UpdateCustomer uses the path id. A null or missing child list leaves those
// records alone; an empty list clears them.
func (c *CustomerController) UpdateCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "customerId")
	if err != nil {
		c.fail(w, r, err)
		return
	}

	var detail model.CustomerDetail
	if err := decodeBody(r, &detail); err != nil {
		c.fail(w, r, err)
		return
	}
	detail.Customer.ID = id
	if err := model.Validate(detail); err != nil {
		c.fail(w, r, err)
		return
	}

	if err := c.Service.Update(r.Context(), model.NewCustomerUpdate(detail)); err != nil {
		c.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("customer %d updated", id),
	})
}

func (c *CustomerController) DeleteCustomer(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "customerId")
	if err != nil {
		c.fail(w, r, err)
		return
	}

	if err := c.Service.DeleteCustomerCascade(r.Context(), id); err != nil {
		c.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *CustomerController) GetPreferences(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "customerId")
	if err != nil {
		c.fail(w, r, err)
		return
	}

	pref, err := c.Service.GetPreferencesByCustomer(r.Context(), id)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	found, ok := pref.Get()
	if !ok {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no preference for customer with ID %d", id))
		return
	}
	respondJSON(w, http.StatusOK, found)
}

func (c *CustomerController) RegisterPreference(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "customerId")
	if err != nil {
		c.fail(w, r, err)
		return
	}

	var pref model.Preference
	if err := decodeBody(r, &pref); err != nil {
		c.fail(w, r, err)
		return
	}
	pref.CustomerID = id
	if err := model.Validate(pref); err != nil {
		c.fail(w, r, err)
		return
	}

	if err := c.Service.RegisterPreference(r.Context(), &pref); err != nil {
		c.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, pref)
}

func (c *CustomerController) UpdatePreference(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "preferenceId")
	if err != nil {
		c.fail(w, r, err)
		return
	}

	var pref model.Preference
	if err := decodeBody(r, &pref); err != nil {
		c.fail(w, r, err)
		return
	}
	pref.ID = id
	if pref.CustomerID <= 0 {
		c.fail(w, r, appErrors.NewValidationError("customerId", "must be set"))
		return
	}
	if err := model.Validate(pref); err != nil {
		c.fail(w, r, err)
		return
	}

	if err := c.Service.UpdatePreference(r.Context(), &pref); err != nil {
		c.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, pref)
}

func (c *CustomerController) GetVisitRecords(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "customerId")
	if err != nil {
		c.fail(w, r, err)
		return
	}

	visits, err := c.Service.GetVisitRecordsByCustomer(r.Context(), id)
	if err != nil {
		c.fail(w, r, err)
		return
	}
	if len(visits) == 0 {
		respondError(w, http.StatusNotFound, fmt.Sprintf("no visit records for customer with ID %d", id))
		return
	}
	respondJSON(w, http.StatusOK, visits)
}

func (c *CustomerController) RegisterVisitRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "customerId")
	if err != nil {
		c.fail(w, r, err)
		return
	}

	var visit model.VisitRecord
	if err := decodeBody(r, &visit); err != nil {
		c.fail(w, r, err)
		return
	}
	visit.CustomerID = id
	if err := model.Validate(visit); err != nil {
		c.fail(w, r, err)
		return
	}

	if err := c.Service.RegisterVisitRecord(r.Context(), &visit); err != nil {
		c.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, visit)
}

func (c *CustomerController) UpdateVisitRecord(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "visitRecordId")
	if err != nil {
		c.fail(w, r, err)
		return
	}

	var visit model.VisitRecord
	if err := decodeBody(r, &visit); err != nil {
		c.fail(w, r, err)
		return
	}
	visit.ID = id
	if visit.CustomerID <= 0 {
		c.fail(w, r, appErrors.NewValidationError("customerId", "must be set"))
		return
	}
	if err := model.Validate(visit); err != nil {
		c.fail(w, r, err)
		return
	}

	if err := c.Service.UpdateVisitRecord(r.Context(), &visit); err != nil {
		c.fail(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, visit)
}
