// Package service provides business logic services for the Hedgehog panel.
package service

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/hedgehog-panel/hedgehog/internal/domain"
)

// ErrInvalidCredentials is returned for every failed login, whatever the cause.
var ErrInvalidCredentials = domain.ErrUnauthorized

// IDAllocator issues identifiers for new rows.
type IDAllocator interface {
	Allocate() uuid.UUID
}

// storeError wraps an unexpected repository error as a store failure.
func storeError(err error) error {
	return fmt.Errorf("%w: %v", domain.ErrStoreFailure, err)
}
