package services_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"storefront-service/models"
	"storefront-service/providers"
	"storefront-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestEntitlementService(p *mockProvider, c *memCache) services.EntitlementService {
	logger, _ := zap.NewDevelopment()
	if c == nil {
		return services.NewEntitlementService(p, nil, nil, logger)
	}
	return services.NewEntitlementService(p, c, nil, logger)
}

func future(d time.Duration) *time.Time {
	t := time.Now().Add(d)
	return &t
}

func TestCheckEntitlements_MissingGrantee(t *testing.T) {
	p := newMockProvider()
	svc := newTestEntitlementService(p, nil)

	_, svcErr := svc.CheckEntitlements(context.Background(), "", "")

	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadRequest, svcErr.StatusCode)
	assert.Equal(t, services.MissingGranteeMessage, svcErr.Message)
	assert.Empty(t, p.Calls())
}

func TestCheckEntitlements_MockWithoutCredentials(t *testing.T) {
	p := newMockProvider()
	p.configured = false
	svc := newTestEntitlementService(p, nil)

	info, svcErr := svc.CheckEntitlements(context.Background(), "user-1", "pro")

	require.Nil(t, svcErr)
	assert.True(t, info.Mock)
	assert.Equal(t, models.LicenseActive, info.Status)
	assert.Equal(t, "mock-signature", info.Signature)
	require.Len(t, info.Entitlements, 2)
	require.NotNil(t, info.HasFeature)
	assert.True(t, *info.HasFeature)
	assert.Empty(t, p.Calls())
}

func TestCheckEntitlements_Active(t *testing.T) {
	p := newMockProvider()
	p.check = models.EntitlementCheck{
		Entitlements: []models.Entitlement{
			{Type: "entitlement", Value: "basic"},
			{Type: "entitlement", Value: "pro", ExpiryDate: future(-time.Hour)},
		},
		Signature: "sig",
	}
	svc := newTestEntitlementService(p, nil)

	info, svcErr := svc.CheckEntitlements(context.Background(), "user-1", "pro")

	require.Nil(t, svcErr)
	assert.Equal(t, models.LicenseActive, info.Status)
	assert.Equal(t, "sig", info.Signature)
	assert.False(t, info.Mock)
	require.NotNil(t, info.HasFeature)
	assert.False(t, *info.HasFeature, "expired entitlement must not grant the feature")
}

func TestCheckEntitlements_AllExpired(t *testing.T) {
	p := newMockProvider()
	p.check = models.EntitlementCheck{Entitlements: []models.Entitlement{
		{Type: "entitlement", Value: "pro", ExpiryDate: future(-24 * time.Hour)},
	}}
	svc := newTestEntitlementService(p, nil)

	info, svcErr := svc.CheckEntitlements(context.Background(), "user-1", "")

	require.Nil(t, svcErr)
	assert.Equal(t, models.LicenseExpired, info.Status)
	assert.Nil(t, info.HasFeature)
}

func TestCheckEntitlements_NotFoundIsNone(t *testing.T) {
	p := newMockProvider()
	p.checkErr = fmt.Errorf("salable CheckEntitlements: %w", &providers.APIError{StatusCode: http.StatusNotFound})
	svc := newTestEntitlementService(p, nil)

	info, svcErr := svc.CheckEntitlements(context.Background(), "user-1", "")

	require.Nil(t, svcErr)
	assert.Equal(t, models.LicenseNone, info.Status)
	assert.Empty(t, info.Entitlements)
}

func TestCheckEntitlements_UpstreamError(t *testing.T) {
	p := newMockProvider()
	p.checkErr = &providers.APIError{StatusCode: http.StatusInternalServerError, Title: "Server Error"}
	svc := newTestEntitlementService(p, nil)

	_, svcErr := svc.CheckEntitlements(context.Background(), "user-1", "")

	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
	assert.Equal(t, "Server Error", svcErr.Message)
}

func TestCheckEntitlements_UsesCache(t *testing.T) {
	p := newMockProvider()
	p.check = models.EntitlementCheck{Entitlements: []models.Entitlement{{Type: "entitlement", Value: "pro"}}}
	c := newMemCache()
	svc := newTestEntitlementService(p, c)

	_, svcErr := svc.CheckEntitlements(context.Background(), "user-1", "")
	require.Nil(t, svcErr)
	_, svcErr = svc.CheckEntitlements(context.Background(), "user-1", "pro")
	require.Nil(t, svcErr)

	assert.Equal(t, []string{"CheckEntitlements"}, p.Calls())
}

func TestUserStatus(t *testing.T) {
	grantee := &models.Grantee{ID: "g1", GranteeID: "user-1"}

	tests := []struct {
		name       string
		setup      func(p *mockProvider)
		hasSub     bool
		reason     string
		count      *int
		errorIsSet bool
	}{
		{
			name: "active",
			setup: func(p *mockProvider) {
				p.grantee = grantee
				p.check = models.EntitlementCheck{Entitlements: []models.Entitlement{{Value: "pro"}, {Value: "basic"}}}
			},
			hasSub: true,
			reason: models.ReasonActive,
			count:  intPtr(2),
		},
		{
			name: "no entitlements",
			setup: func(p *mockProvider) {
				p.grantee = grantee
				p.check = models.EntitlementCheck{Entitlements: []models.Entitlement{}}
			},
			reason: models.ReasonNoEntitlements,
			count:  intPtr(0),
		},
		{
			name:   "grantee missing",
			setup:  func(p *mockProvider) {},
			reason: models.ReasonGranteeNotFound,
		},
		{
			name:   "grantee lookup rejected",
			setup:  func(p *mockProvider) { p.granteeErr = &providers.APIError{StatusCode: 403} },
			reason: models.ReasonGranteeNotFound,
		},
		{
			name: "entitlements rejected",
			setup: func(p *mockProvider) {
				p.grantee = grantee
				p.checkErr = &providers.APIError{StatusCode: 500}
			},
			reason: models.ReasonEntitlementsCheck,
		},
		{
			name:       "network error",
			setup:      func(p *mockProvider) { p.granteeErr = errors.New("dial tcp: refused") },
			reason:     models.ReasonError,
			errorIsSet: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newMockProvider()
			tt.setup(p)
			svc := newTestEntitlementService(p, nil)

			status, svcErr := svc.UserStatus(context.Background(), "user-1")

			require.Nil(t, svcErr)
			assert.Equal(t, tt.hasSub, status.HasSubscription)
			assert.Equal(t, tt.reason, status.Reason)
			assert.Equal(t, tt.count, status.EntitlementCount)
			assert.Equal(t, tt.errorIsSet, status.Error != "")
		})
	}
}

func TestUserStatus_RequiresCredentials(t *testing.T) {
	p := newMockProvider()
	p.configured = false
	svc := newTestEntitlementService(p, nil)

	_, svcErr := svc.UserStatus(context.Background(), "user-1")

	require.NotNil(t, svcErr)
	assert.Equal(t, services.KindConfiguration, svcErr.Kind)
	assert.Empty(t, p.Calls())
}

func intPtr(v int) *int { return &v }
