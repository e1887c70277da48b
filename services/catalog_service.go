package services

import (
	"context"
	"net/http"

	"storefront-service/models"
	"storefront-service/providers"

	"go.uber.org/zap"
)

// CatalogService lists what the pricing page can sell.
type CatalogService interface {
	ListPlans(ctx context.Context) ([]models.Plan, *ServiceError)
	ListProducts(ctx context.Context) ([]models.Product, *ServiceError)
}

type catalogServiceImpl struct {
	provider providers.LicensingProvider
	logger   *zap.Logger
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(provider providers.LicensingProvider, logger *zap.Logger) CatalogService {
	return &catalogServiceImpl{provider: provider, logger: logger}
}

func (s *catalogServiceImpl) ListPlans(ctx context.Context) ([]models.Plan, *ServiceError) {
	if !s.provider.Configured() {
		return nil, configurationError()
	}
	plans, err := s.provider.ListPlans(ctx)
	if err != nil {
		s.logger.Error("ListPlans failed", zap.Error(err))
		return nil, catalogError(err, "Failed to load plans")
	}
	if plans == nil {
		plans = []models.Plan{}
	}
	return plans, nil
}

func (s *catalogServiceImpl) ListProducts(ctx context.Context) ([]models.Product, *ServiceError) {
	if !s.provider.Configured() {
		return nil, configurationError()
	}
	products, err := s.provider.ListProducts(ctx)
	if err != nil {
		s.logger.Error("ListProducts failed", zap.Error(err))
		return nil, catalogError(err, "Failed to load products")
	}
	if products == nil {
		products = []models.Product{}
	}
	return products, nil
}

func catalogError(err error, fallback string) *ServiceError {
	kind := upstreamKind(err)
	status := http.StatusInternalServerError
	switch kind {
	case KindUpstreamFatal:
		status = http.StatusBadGateway
	case KindUpstreamTimeout:
		status = http.StatusGatewayTimeout
	}
	return &ServiceError{
		Kind:       kind,
		StatusCode: status,
		Message:    upstreamMessage(err, fallback),
		Err:        err,
	}
}
