package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/crucial707/spend-ledger/internal/models"
	"github.com/crucial707/spend-ledger/internal/tenant"
)

// DefaultPageSize applies when a listing request has no page_size.
const DefaultPageSize = 10

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields under their JSON names.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the body into dst and runs struct validation. On failure it writes the
// error response and returns false.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			JSONError(w, http.StatusRequestEntityTooLarge, "request body too large", nil)
			return false
		}
		JSONError(w, http.StatusBadRequest, "invalid JSON", err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			JSONError(w, http.StatusBadRequest, "invalid input", err.Error())
			return false
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = describe(fe)
		}
		JSONValidationError(w, "validation failed", fields)
		return false
	}
	return true
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required"
	case "email":
		return "must be a valid email address"
	case "min", "gte":
		return "must be at least " + fe.Param()
	case "max", "lte":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of " + fe.Param()
	}
	return "failed " + fe.Tag()
}

// scope returns the caller resolved by the auth middleware.
func scope(r *http.Request) tenant.Scope {
	s, _ := tenant.FromContext(r.Context())
	return s
}

// pathID parses a positive integer URL parameter. On failure it writes a 400.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		JSONError(w, http.StatusBadRequest, "invalid "+name, nil)
		return 0, false
	}
	return id, true
}

// queryInt returns the integer query parameter key, or def when it is absent.
func queryInt(r *http.Request, key string, def int) (int, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer", key)
	}
	return n, nil
}

// pageParams reads page and page_size. Bounds are checked by the stores.
func pageParams(r *http.Request) (page, pageSize int, err error) {
	if page, err = queryInt(r, "page", 1); err != nil {
		return 0, 0, err
	}
	if pageSize, err = queryInt(r, "page_size", DefaultPageSize); err != nil {
		return 0, 0, err
	}
	return page, pageSize, nil
}

// dateRange reads start_date and end_date. With required set both must be present.
func dateRange(r *http.Request, required bool) (models.DateRange, error) {
	var rng models.DateRange
	q := r.URL.Query()
	for _, p := range []struct {
		key string
		dst **models.Date
	}{{"start_date", &rng.From}, {"end_date", &rng.To}} {
		v := q.Get(p.key)
		if v == "" {
			if required {
				return rng, fmt.Errorf("%s is required", p.key)
			}
			continue
		}
		d, err := models.ParseDate(v)
		if err != nil {
			return rng, fmt.Errorf("%s: %w", p.key, err)
		}
		*p.dst = &d
	}
	return rng, rng.Validate()
}
