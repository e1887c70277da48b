package cache

import (
	"context"
	"errors"

	"storefront-service/models"
)

// EntitlementCache stores recent entitlement lookups per grantee.
type EntitlementCache interface {
	Get(ctx context.Context, granteeID string) (*models.EntitlementCheck, error)
	Set(ctx context.Context, granteeID string, check *models.EntitlementCheck) error
	Delete(ctx context.Context, granteeID string) error
}

var ErrCacheMiss = errors.New("cache miss")
