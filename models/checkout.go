package models

// Billing interval and currency used for every cart the storefront builds.
const (
	IntervalMonth   = "month"
	IntervalCount   = 1
	CurrencyUSD     = "USD"
	GranteeOpAdd    = "add"
	GroupNameSuffix = "'s Subscription"
)

// CheckoutRequest is the payload for POST /api/checkout.
type CheckoutRequest struct {
	PlanID    string `json:"planId" validate:"required"`
	GranteeID string `json:"granteeId" validate:"required"`
	Owner     string `json:"owner" validate:"required"`
}

// CheckoutResponse is returned to the UI on success.
type CheckoutResponse struct {
	CheckoutURL string `json:"checkoutUrl"`
}

// Group is a billing group owned by the requesting identity.
type Group struct {
	ID    string `json:"id"`
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// GroupName derives the label of the group created for a grantee.
func GroupName(granteeID string) string {
	return granteeID + GroupNameSuffix
}

// GranteeOperation is one entry of the grantee batch sent to a group.
type GranteeOperation struct {
	Type      string `json:"type"`
	GranteeID string `json:"granteeId"`
	Name      string `json:"name"`
}

// Cart is an in-progress purchase scoped to an owner.
type Cart struct {
	ID            string `json:"id,omitempty"`
	Owner         string `json:"owner"`
	Interval      string `json:"interval"`
	IntervalCount int    `json:"intervalCount"`
	Currency      string `json:"currency"`
}

// NewMonthlyCart returns the fixed monthly USD cart for owner.
func NewMonthlyCart(owner string) Cart {
	return Cart{
		Owner:         owner,
		Interval:      IntervalMonth,
		IntervalCount: IntervalCount,
		Currency:      CurrencyUSD,
	}
}

// CartItem is a line item. Grantee always holds a group id, never a raw
// identity string.
type CartItem struct {
	PlanID        string `json:"planId"`
	CartID        string `json:"cartId"`
	Grantee       string `json:"grantee"`
	Interval      string `json:"interval"`
	IntervalCount int    `json:"intervalCount"`
}

// NewCartItem builds the monthly line item linking planID to groupID.
func NewCartItem(planID, cartID, groupID string) CartItem {
	return CartItem{
		PlanID:        planID,
		CartID:        cartID,
		Grantee:       groupID,
		Interval:      IntervalMonth,
		IntervalCount: IntervalCount,
	}
}

// CheckoutLinkRequest carries the redirect destinations for the payment page.
type CheckoutLinkRequest struct {
	SuccessURL string `json:"successUrl"`
	CancelURL  string `json:"cancelUrl"`
}

// CheckoutLink is the payment page the caller is redirected to.
type CheckoutLink struct {
	URL string `json:"url"`
}

// CheckoutResult is the terminal output of a checkout saga.
type CheckoutResult struct {
	SagaID      string   `json:"sagaId"`
	CheckoutURL string   `json:"checkoutUrl"`
	GroupID     string   `json:"groupId"`
	CartID      string   `json:"cartId"`
	Warnings    []string `json:"warnings,omitempty"`
}
