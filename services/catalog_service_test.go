package services_test

import (
	"context"
	"net/http"
	"testing"

	"storefront-service/models"
	"storefront-service/providers"
	"storefront-service/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestListPlans(t *testing.T) {
	p := newMockProvider()
	p.plans = []models.Plan{{ID: "plan_pro", Name: "Pro"}}
	svc := services.NewCatalogService(p, zap.NewNop())

	plans, svcErr := svc.ListPlans(context.Background())

	require.Nil(t, svcErr)
	assert.Equal(t, p.plans, plans)
}

func TestListProducts_EmptyIsNotNil(t *testing.T) {
	p := newMockProvider()
	svc := services.NewCatalogService(p, zap.NewNop())

	products, svcErr := svc.ListProducts(context.Background())

	require.Nil(t, svcErr)
	assert.NotNil(t, products)
	assert.Empty(t, products)
}

func TestCatalog_Errors(t *testing.T) {
	unconfigured := newMockProvider()
	unconfigured.configured = false
	_, svcErr := services.NewCatalogService(unconfigured, zap.NewNop()).ListPlans(context.Background())
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)

	failing := newMockProvider()
	failing.listErr = &providers.APIError{StatusCode: http.StatusUnauthorized, Title: "Unauthorized"}
	_, svcErr = services.NewCatalogService(failing, zap.NewNop()).ListProducts(context.Background())
	require.NotNil(t, svcErr)
	assert.Equal(t, http.StatusBadGateway, svcErr.StatusCode)
	assert.Equal(t, "Unauthorized", svcErr.Message)
}
