package providers

import (
	"context"
	"errors"
	"fmt"

	"storefront-service/models"
)

// LicensingProvider defines the calls the storefront makes against the
// licensing/billing service.
type LicensingProvider interface {
	// Configured reports whether the provider holds API credentials.
	Configured() bool

	// CreateGroup creates a billing group owned by owner.
	CreateGroup(ctx context.Context, owner, name string) (models.Group, error)

	// AddGrantees applies grantee operations to a group.
	AddGrantees(ctx context.Context, groupID string, ops []models.GranteeOperation) error

	// CreateCart creates an empty cart and returns it with its id.
	CreateCart(ctx context.Context, cart models.Cart) (models.Cart, error)

	// AddCartItem attaches a line item to a cart.
	AddCartItem(ctx context.Context, item models.CartItem) error

	// CreateCheckoutLink finalizes a cart into a payment page URL.
	CreateCheckoutLink(ctx context.Context, cartID string, req models.CheckoutLinkRequest) (models.CheckoutLink, error)

	// CheckEntitlements returns the entitlements held by a grantee.
	CheckEntitlements(ctx context.Context, granteeID string) (models.EntitlementCheck, error)

	// FindGrantee looks up a grantee by id. It returns nil when none matches.
	FindGrantee(ctx context.Context, granteeID string) (*models.Grantee, error)

	ListPlans(ctx context.Context) ([]models.Plan, error)
	ListProducts(ctx context.Context) ([]models.Product, error)
}

// ErrMalformedResponse is returned when a 2xx response lacks the fields the
// caller needs.
var ErrMalformedResponse = errors.New("malformed response")

// APIError is a non-2xx response from the licensing service.
type APIError struct {
	StatusCode int              `json:"-"`
	Title      string           `json:"title,omitempty"`
	Detail     string           `json:"detail,omitempty"`
	Errors     []map[string]any `json:"errors,omitempty"`
	// Raw holds the body text when it was not a JSON error payload.
	Raw string `json:"raw,omitempty"`
}

func (e *APIError) Error() string {
	msg := e.Title
	if e.Detail != "" {
		msg = e.Detail
	}
	if msg == "" {
		msg = e.Raw
	}
	return fmt.Sprintf("licensing API error (status %d): %s", e.StatusCode, msg)
}

// IsNotFound reports whether err is a 404 from the licensing service.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == 404
}
