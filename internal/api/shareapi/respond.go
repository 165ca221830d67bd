package shareapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/BearBump/ShareBox/internal/metrics"
	"github.com/BearBump/ShareBox/internal/models"
	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"
)

type envelope struct {
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func writeJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(envelope{Message: message, Data: data})
}

// statusOf maps the error taxonomy onto HTTP codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrCapacityExceeded), errors.Is(err, models.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		metrics.OperationErrorsTotal.WithLabelValues(operation(r)).Inc()
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err.Error())
		writeJSON(w, status, "internal error", nil)
		return
	}
	writeJSON(w, status, err.Error(), nil)
}

// operation names the matched route, e.g. "PATCH /api/commodity/{id}".
func operation(r *http.Request) string {
	pattern := r.URL.Path
	if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
		pattern = rc.RoutePattern()
	}
	return r.Method + " " + pattern
}

func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Wrapf(models.ErrValidation, "invalid body: %s", err.Error())
	}
	return nil
}

func pathID(r *http.Request, name string) (uint64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, errors.Wrapf(models.ErrValidation, "invalid %s %q", name, raw)
	}
	return id, nil
}

func queryString(r *http.Request, name string) *string {
	q := r.URL.Query()
	if !q.Has(name) {
		return nil
	}
	v := q.Get(name)
	return &v
}

func queryUint(r *http.Request, name string) (*uint64, error) {
	raw := queryString(r, name)
	if raw == nil {
		return nil, nil
	}
	v, err := strconv.ParseUint(*raw, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(models.ErrValidation, "invalid %s %q", name, *raw)
	}
	return &v, nil
}

func queryFloat(r *http.Request, name string) (*float64, error) {
	raw := queryString(r, name)
	if raw == nil {
		return nil, nil
	}
	v, err := strconv.ParseFloat(*raw, 64)
	if err != nil {
		return nil, errors.Wrapf(models.ErrValidation, "invalid %s %q", name, *raw)
	}
	return &v, nil
}
