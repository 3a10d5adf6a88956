package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dmitrijs2005/fruitful/internal/common"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	maxBodyBytes = 1 << 20
	defaultLimit = 100
)

type errorResponse struct {
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{Detail: detail})
}

// statusFor maps engine errors to HTTP statuses. Business rule violations
// are 400, the referenced-fruit check included.
func statusFor(err error) int {
	var missing *common.FruitsNotFoundError
	switch {
	case errors.Is(err, common.ErrorValidation):
		return http.StatusUnprocessableEntity
	case errors.As(err, &missing),
		errors.Is(err, common.ErrFruitOwnerMismatch),
		errors.Is(err, common.ErrBucketCapacityExceeded),
		errors.Is(err, common.ErrBucketNotEmpty),
		errors.Is(err, common.ErrorAlreadyExists):
		return http.StatusBadRequest
	case errors.Is(err, common.ErrorNotFound):
		return http.StatusNotFound
	case errors.Is(err, common.ErrorUnauthorized),
		errors.Is(err, common.ErrRefreshTokenExpired):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.logger.Error(r.Context(), "request failed",
			"error", err,
			"request_id", middleware.GetReqID(r.Context()),
		)
		writeDetail(w, status, "Internal server error")
		return
	}
	writeDetail(w, status, err.Error())
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", common.ErrorValidation, err)
	}
	return nil
}

// pathID returns the URL parameter name, which must be a UUID.
func pathID(r *http.Request, name string) (string, error) {
	v := chi.URLParam(r, name)
	if _, err := uuid.Parse(v); err != nil {
		return "", fmt.Errorf("%w: %s is not a valid UUID", common.ErrorValidation, name)
	}
	return v, nil
}

// page reads skip and limit, defaulting to 0 and 100.
func page(r *http.Request) (skip, limit int, err error) {
	limit = defaultLimit
	q := r.URL.Query()
	if v := q.Get("skip"); v != "" {
		if skip, err = strconv.Atoi(v); err != nil || skip < 0 {
			return 0, 0, fmt.Errorf("%w: skip must be a non-negative integer", common.ErrorValidation)
		}
	}
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, fmt.Errorf("%w: limit must be a non-negative integer", common.ErrorValidation)
		}
	}
	return skip, limit, nil
}
