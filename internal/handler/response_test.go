package handler

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hedgehog-panel/hedgehog/internal/domain"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{name: "invalid username", err: domain.ErrInvalidUsername, wantStatus: http.StatusBadRequest},
		{name: "owner not found", err: domain.ErrOwnerNotFound, wantStatus: http.StatusBadRequest},
		{name: "invalid server id", err: domain.ErrInvalidServerID, wantStatus: http.StatusBadRequest},
		{name: "protected account", err: domain.ErrProtectedAccount, wantStatus: http.StatusBadRequest},
		{name: "unauthorized", err: domain.ErrUnauthorized, wantStatus: http.StatusUnauthorized},
		{name: "forbidden", err: domain.ErrForbidden, wantStatus: http.StatusForbidden},
		{name: "user not found", err: domain.ErrUserNotFound, wantStatus: http.StatusNotFound},
		{name: "server not found", err: domain.ErrServerNotFound, wantStatus: http.StatusNotFound},
		{name: "conflict", err: domain.ErrUserAlreadyExists, wantStatus: http.StatusConflict},
		{name: "rate limited", err: domain.ErrRateLimited, wantStatus: http.StatusTooManyRequests},
		{name: "store failure", err: fmt.Errorf("%w: %v", domain.ErrStoreFailure, errors.New("disk I/O error")), wantStatus: http.StatusInternalServerError},
		{name: "unknown", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, message := mapError(tt.err)
			require.Equal(t, tt.wantStatus, status)
			require.NotEmpty(t, message)
			if status == http.StatusInternalServerError {
				require.NotContains(t, message, "disk")
			}
		})
	}
}
