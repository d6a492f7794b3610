package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crucial707/spend-ledger/internal/apperr"
)

func uniqueViolation(constraint string) error {
	return &pq.Error{Code: pgerrcode.UniqueViolation, Constraint: constraint}
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"validation", apperr.Validation("amount must be greater than 0"), http.StatusBadRequest, "amount must be greater than 0"},
		{"not found", fmt.Errorf("wrapped: %w", apperr.NotFound("expense", 4)), http.StatusNotFound, "expense 4 not found"},
		{"limit", &apperr.LimitExceededError{CategoryID: 1, CategoryName: "Travel", Limit: decimal.NewFromInt(1000), Spent: decimal.NewFromInt(600), Requested: decimal.NewFromInt(500)}, http.StatusUnprocessableEntity, "category expense limit exceeded"},
		{"conflict", apperr.FromPostgres("insert", uniqueViolation("categories_company_active_name_key")), http.StatusConflict, "an active category with this name already exists"},
		{"numeric overflow", apperr.FromPostgres("insert expense", &pq.Error{Code: pgerrcode.NumericValueOutOfRange}), http.StatusBadRequest, "numeric value out of range"},
		{"internal", errors.New("pq: password authentication failed for user spend"), http.StatusInternalServerError, ErrMessageInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WriteError(rr, httptest.NewRequest("GET", "/", nil), tc.err)

			assert.Equal(t, tc.status, rr.Code)
			var out ErrorResponse
			require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
			assert.Equal(t, tc.status, out.Status)
			assert.Equal(t, tc.message, out.Message)
			assert.NotContains(t, rr.Body.String(), "password authentication")
		})
	}
}

func TestWriteError_LimitDetail(t *testing.T) {
	rr := httptest.NewRecorder()
	WriteError(rr, httptest.NewRequest("POST", "/expenses", nil), &apperr.LimitExceededError{
		CategoryID: 2, CategoryName: "Travel", Limit: decimal.NewFromInt(1000), Spent: decimal.NewFromInt(600), Requested: decimal.NewFromInt(500),
	})

	var out struct {
		Detail struct {
			CategoryName string `json:"category_name"`
			Limit        string `json:"limit"`
		} `json:"detail"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&out))
	assert.Equal(t, "Travel", out.Detail.CategoryName)
	assert.Equal(t, "1000", out.Detail.Limit)
}
