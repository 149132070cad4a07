package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/feral-file/ff-drug-registry/internal/domain"
)

func TestFromDomain(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		code    ErrorCode
		details string
	}{
		{"validation", domain.ErrBatchRequired, http.StatusUnprocessableEntity, ErrCodeValidationFailed, "batch required"},
		{"conflict", domain.ErrDrugAlreadyRegistered, http.StatusConflict, ErrCodeConflict, "id already registered"},
		{"not found", domain.ErrDrugNotFound, http.StatusNotFound, ErrCodeNotFound, "drug not found"},
		{"wrapped validation", fmt.Errorf("register: %w", domain.ErrNameRequired), http.StatusUnprocessableEntity, ErrCodeValidationFailed, "name required"},
		{"backend failure", fmt.Errorf("failed to get drug: %w", fmt.Errorf("dial tcp: refused")), http.StatusInternalServerError, ErrCodeInternalError, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, apiErr := FromDomain(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Equal(t, tt.details, apiErr.Details)
		})
	}
}

func TestAPIError_Error(t *testing.T) {
	err := NewConflictError("Conflict", "id already registered")
	assert.JSONEq(t, `{"code":"conflict","message":"Conflict","details":"id already registered"}`, err.Error())
}

func TestAPIError_Status(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, NewBadRequestError("bad").Status())
	assert.Equal(t, http.StatusTooManyRequests, NewTooManyRequestsError("slow down").Status())
	assert.Equal(t, http.StatusUnauthorized, NewUnauthorizedError("no").Status())
	assert.Equal(t, http.StatusInternalServerError, (&APIError{Code: "teapot"}).Status())
}
