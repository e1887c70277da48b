package services

import (
	"context"
	"fmt"

	"storefront-service/models"
	"storefront-service/providers"
)

// SagaState is the progress of a checkout saga. States only move forward.
type SagaState int

const (
	StateStart SagaState = iota
	StateGroupCreated
	StateGranteeAttached
	StateCartCreated
	StateItemAdded
	StateLinkGenerated
)

var sagaStateNames = map[SagaState]string{
	StateStart:           "start",
	StateGroupCreated:    "group_created",
	StateGranteeAttached: "grantee_attached",
	StateCartCreated:     "cart_created",
	StateItemAdded:       "item_added",
	StateLinkGenerated:   "link_generated",
}

func (s SagaState) String() string {
	if name, ok := sagaStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// CheckoutSaga carries the identifiers a checkout accumulates. Each saga
// touches only resources it created itself.
type CheckoutSaga struct {
	ID          string
	Request     models.CheckoutRequest
	SuccessURL  string
	CancelURL   string
	State       SagaState
	GroupID     string
	CartID      string
	CheckoutURL string
	// Warnings collects soft step failures.
	Warnings []string
}

// Result converts a finished saga into its public result.
func (s *CheckoutSaga) Result() *models.CheckoutResult {
	return &models.CheckoutResult{
		SagaID:      s.ID,
		CheckoutURL: s.CheckoutURL,
		GroupID:     s.GroupID,
		CartID:      s.CartID,
		Warnings:    s.Warnings,
	}
}

// Step names, used in logs, metrics and error payloads.
const (
	StepCreateGroup    = "create_group"
	StepAttachGrantee  = "attach_grantee"
	StepCreateCart     = "create_cart"
	StepAddCartItem    = "add_cart_item"
	StepCreateCheckout = "create_checkout"
)

type sagaStep struct {
	Name string
	// Target is the state reached when the step succeeds.
	Target SagaState
	// Fatal steps abort the saga on an upstream error; the others are logged
	// and skipped.
	Fatal    bool
	Fallback string
	// SurfaceDetail builds the message from detail, title, then raw text, and
	// returns the parsed payload to the caller.
	SurfaceDetail bool
	Run           func(ctx context.Context, p providers.LicensingProvider, saga *CheckoutSaga) error
}

// checkoutSteps is the saga, in execution order.
var checkoutSteps = []sagaStep{
	{
		Name:          StepCreateGroup,
		Target:        StateGroupCreated,
		Fatal:         true,
		Fallback:      "Failed to create group",
		SurfaceDetail: true,
		Run: func(ctx context.Context, p providers.LicensingProvider, saga *CheckoutSaga) error {
			group, err := p.CreateGroup(ctx, saga.Request.Owner, models.GroupName(saga.Request.GranteeID))
			if err != nil {
				return err
			}
			saga.GroupID = group.ID
			return nil
		},
	},
	{
		Name:     StepAttachGrantee,
		Target:   StateGranteeAttached,
		Fatal:    false,
		Fallback: "Failed to add grantee to group",
		Run: func(ctx context.Context, p providers.LicensingProvider, saga *CheckoutSaga) error {
			return p.AddGrantees(ctx, saga.GroupID, []models.GranteeOperation{{
				Type:      models.GranteeOpAdd,
				GranteeID: saga.Request.GranteeID,
				Name:      saga.Request.GranteeID,
			}})
		},
	},
	{
		Name:     StepCreateCart,
		Target:   StateCartCreated,
		Fatal:    true,
		Fallback: "Failed to create cart",
		Run: func(ctx context.Context, p providers.LicensingProvider, saga *CheckoutSaga) error {
			cart, err := p.CreateCart(ctx, models.NewMonthlyCart(saga.Request.Owner))
			if err != nil {
				return err
			}
			saga.CartID = cart.ID
			return nil
		},
	},
	{
		Name:     StepAddCartItem,
		Target:   StateItemAdded,
		Fatal:    true,
		Fallback: "Failed to add item to cart",
		Run: func(ctx context.Context, p providers.LicensingProvider, saga *CheckoutSaga) error {
			return p.AddCartItem(ctx, models.NewCartItem(saga.Request.PlanID, saga.CartID, saga.GroupID))
		},
	},
	{
		Name:     StepCreateCheckout,
		Target:   StateLinkGenerated,
		Fatal:    true,
		Fallback: "Failed to create checkout link",
		Run: func(ctx context.Context, p providers.LicensingProvider, saga *CheckoutSaga) error {
			link, err := p.CreateCheckoutLink(ctx, saga.CartID, models.CheckoutLinkRequest{
				SuccessURL: saga.SuccessURL,
				CancelURL:  saga.CancelURL,
			})
			if err != nil {
				return err
			}
			saga.CheckoutURL = link.URL
			return nil
		},
	},
}

// message picks the caller-facing text for an upstream error.
func (st sagaStep) message(apiErr *providers.APIError) string {
	if st.SurfaceDetail {
		for _, m := range []string{apiErr.Detail, apiErr.Title, apiErr.Raw} {
			if m != "" {
				return m
			}
		}
		return st.Fallback
	}
	if apiErr.Title != "" {
		return apiErr.Title
	}
	return st.Fallback
}
