package common_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"accounts_api/internal/common"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"not found", common.ErrNotFound, http.StatusNotFound},
		{"invalid credentials", common.ErrInvalidCredentials, http.StatusUnauthorized},
		{"not approved", common.ErrNotApproved, http.StatusForbidden},
		{"forbidden", common.ErrForbidden, http.StatusForbidden},
		{"already bootstrapped", common.ErrAlreadyBootstrapped, http.StatusForbidden},
		{"bad request", common.ErrBadRequest, http.StatusBadRequest},
		{"validation", common.ErrValidation, http.StatusBadRequest},
		{"conflict", common.ErrConflict, http.StatusConflict},
		{"wrapped validation", fmt.Errorf("username already taken: %w", common.ErrValidation), http.StatusBadRequest},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, common.HTTPStatusFromError(tc.err))
		})
	}
}
