package respond

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kinshukkush/smartsplit/internal/engine"
	"github.com/kinshukkush/smartsplit/internal/ledger"
)

func TestStatusOf(t *testing.T) {
	tests := map[string]struct {
		err  error
		want int
	}{
		"Validation": {err: fmt.Errorf("apply addExpense: %w", ledger.Invalid("title", "title is required")), want: http.StatusBadRequest},
		"NotFound":   {err: fmt.Errorf("apply deleteExpense: %w", ledger.NotFound("expense", "x")), want: http.StatusNotFound},
		"Closed":     {err: engine.ErrClosed, want: http.StatusServiceUnavailable},
		"Canceled":   {err: context.Canceled, want: http.StatusServiceUnavailable},
		"Other":      {err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusOf(tt.err))
		})
	}
}

func TestError_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, httptest.NewRequest(http.MethodGet, "/", nil), errors.New("dsn password=hunter2"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "hunter2")
}

func TestDecode(t *testing.T) {
	var v struct{ Name string }

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"Name":`))
	err := Decode(req, &v)

	assert.True(t, ledger.IsValidation(err))
}
