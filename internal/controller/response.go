package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	appErrors "github.com/unclebandit/restaurant-crm-backend/internal/errors"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respondJSON(w, status, map[string]string{"error": msg})
}

// writeError maps the appErrors taxonomy onto HTTP statuses. Store failures
// are logged and reported without driver detail.
func writeError(w http.ResponseWriter, r *http.Request, log *zap.Logger, err error) {
	switch {
	case appErrors.IsNotFound(err):
		respondError(w, http.StatusNotFound, err.Error())
	case appErrors.IsValidation(err):
		respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Error("request failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// pathID reads a positive integer URL parameter.
func pathID(r *http.Request, name string) (int, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.Atoi(raw)
	if err != nil || id <= 0 {
		return 0, appErrors.NewValidationError(name, fmt.Sprintf("invalid id %q", raw))
	}
	return id, nil
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return appErrors.NewValidationError("", "invalid request body: "+err.Error())
	}
	return nil
}
