package models

import (
	"math"
	"time"
)

// LicenseStatus is derived from a grantee's entitlements.
type LicenseStatus string

const (
	LicenseActive  LicenseStatus = "active"
	LicenseExpired LicenseStatus = "expired"
	LicenseNone    LicenseStatus = "none"
	LicenseError   LicenseStatus = "error"
)

// Entitlement is a named capability or meter granted to a grantee.
type Entitlement struct {
	Type       string     `json:"type"` // "entitlement" or "meter"
	Value      string     `json:"value"`
	ExpiryDate *time.Time `json:"expiryDate"`
}

// Active reports whether e is perpetual or expires after now.
func (e Entitlement) Active(now time.Time) bool {
	return e.ExpiryDate == nil || e.ExpiryDate.After(now)
}

// EntitlementCheck is the data payload of GET /entitlements/check.
type EntitlementCheck struct {
	Entitlements []Entitlement `json:"entitlements"`
	Signature    string        `json:"signature"`
}

// LicenseInfo is returned by GET /api/entitlements/check.
type LicenseInfo struct {
	Status       LicenseStatus `json:"status"`
	GranteeID    string        `json:"granteeId"`
	Entitlements []Entitlement `json:"entitlements"`
	Signature    string        `json:"signature,omitempty"`
	HasFeature   *bool         `json:"hasFeature,omitempty"`
	Error        string        `json:"error,omitempty"`
	Mock         bool          `json:"_mock,omitempty"`
}

// Grantee is a licensed identity known to the licensing service.
type Grantee struct {
	ID           string  `json:"id"`
	Organisation string  `json:"organisation"`
	Name         *string `json:"name"`
	GranteeID    string  `json:"granteeId"`
	CreatedAt    string  `json:"createdAt"`
	UpdatedAt    string  `json:"updatedAt"`
}

// Reasons reported by GET /api/user/status.
const (
	ReasonGranteeNotFound   = "grantee_not_found"
	ReasonEntitlementsCheck = "entitlements_check_failed"
	ReasonActive            = "active_subscription"
	ReasonNoEntitlements    = "no_entitlements"
	ReasonError             = "error"
)

// UserStatus is returned by GET /api/user/status.
type UserStatus struct {
	HasSubscription  bool   `json:"hasSubscription"`
	GranteeID        string `json:"granteeId"`
	EntitlementCount *int   `json:"entitlementCount,omitempty"`
	Reason           string `json:"reason"`
	Error            string `json:"error,omitempty"`
}

// DetermineLicenseStatus derives the license status from entitlements.
func DetermineLicenseStatus(entitlements []Entitlement, now time.Time) LicenseStatus {
	if len(entitlements) == 0 {
		return LicenseNone
	}
	for _, e := range entitlements {
		if e.Active(now) {
			return LicenseActive
		}
	}
	return LicenseExpired
}

// HasEntitlement reports whether an unexpired entitlement named name exists.
func HasEntitlement(entitlements []Entitlement, name string, now time.Time) bool {
	for _, e := range entitlements {
		if e.Value == name && e.Active(now) {
			return true
		}
	}
	return false
}

// DaysUntilExpiry returns the whole days until expiry rounded up, or nil
// for a perpetual entitlement.
func DaysUntilExpiry(expiry *time.Time, now time.Time) *int {
	if expiry == nil {
		return nil
	}
	days := int(math.Ceil(expiry.Sub(now).Hours() / 24))
	return &days
}
