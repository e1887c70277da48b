package services

import (
	"context"
	"errors"
	"net/http"
	"time"

	"storefront-service/cache"
	applog "storefront-service/common/logger"
	"storefront-service/models"
	"storefront-service/observability"
	"storefront-service/providers"

	"go.uber.org/zap"
)

// MissingGranteeMessage is returned when the granteeId parameter is absent.
const MissingGranteeMessage = "Missing required parameter: granteeId"

// EntitlementService answers license questions for a grantee.
type EntitlementService interface {
	CheckEntitlements(ctx context.Context, granteeID, feature string) (*models.LicenseInfo, *ServiceError)
	UserStatus(ctx context.Context, granteeID string) (*models.UserStatus, *ServiceError)
}

type entitlementServiceImpl struct {
	provider providers.LicensingProvider
	cache    cache.EntitlementCache
	metrics  *observability.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewEntitlementService creates a new EntitlementService. entitlementCache
// and metrics may be nil.
func NewEntitlementService(
	provider providers.LicensingProvider,
	entitlementCache cache.EntitlementCache,
	metrics *observability.Metrics,
	logger *zap.Logger,
) EntitlementService {
	return &entitlementServiceImpl{
		provider: provider,
		cache:    entitlementCache,
		metrics:  metrics,
		logger:   logger,
		now:      time.Now,
	}
}

// CheckEntitlements returns the license info of a grantee. Without API
// credentials it serves mock data so the UI stays usable in local dev.
func (s *entitlementServiceImpl) CheckEntitlements(ctx context.Context, granteeID, feature string) (*models.LicenseInfo, *ServiceError) {
	if granteeID == "" {
		return nil, missingGranteeError()
	}

	now := s.now()
	if !s.provider.Configured() {
		s.logger.Warn("SALABLE_API_KEY not configured, returning mock data")
		return withFeature(mockLicenseInfo(granteeID, now), feature, now), nil
	}

	check, err := s.lookup(ctx, granteeID)
	if err != nil {
		if providers.IsNotFound(err) {
			return withFeature(&models.LicenseInfo{
				Status:       models.LicenseNone,
				GranteeID:    granteeID,
				Entitlements: []models.Entitlement{},
			}, feature, now), nil
		}
		applog.FromContext(ctx, s.logger).Error("Entitlement check failed", zap.String("grantee_id", granteeID), zap.Error(err))
		return nil, &ServiceError{
			Kind:       upstreamKind(err),
			StatusCode: http.StatusInternalServerError,
			Message:    upstreamMessage(err, "Failed to check entitlements"),
			Err:        err,
		}
	}

	return withFeature(&models.LicenseInfo{
		Status:       models.DetermineLicenseStatus(check.Entitlements, now),
		GranteeID:    granteeID,
		Entitlements: check.Entitlements,
		Signature:    check.Signature,
	}, feature, now), nil
}

// UserStatus reports whether a grantee holds an active subscription. Upstream
// failures are folded into the reason rather than returned as errors.
func (s *entitlementServiceImpl) UserStatus(ctx context.Context, granteeID string) (*models.UserStatus, *ServiceError) {
	if granteeID == "" {
		return nil, missingGranteeError()
	}
	if !s.provider.Configured() {
		return nil, configurationError()
	}

	log := applog.FromContext(ctx, s.logger).With(zap.String("grantee_id", granteeID))

	grantee, err := s.provider.FindGrantee(ctx, granteeID)
	if err != nil {
		if isAPIError(err) {
			return &models.UserStatus{GranteeID: granteeID, Reason: models.ReasonGranteeNotFound}, nil
		}
		log.Error("User status check failed", zap.Error(err))
		return &models.UserStatus{GranteeID: granteeID, Reason: models.ReasonError, Error: err.Error()}, nil
	}
	if grantee == nil {
		return &models.UserStatus{GranteeID: granteeID, Reason: models.ReasonGranteeNotFound}, nil
	}

	check, err := s.lookup(ctx, granteeID)
	if err != nil {
		if isAPIError(err) {
			return &models.UserStatus{GranteeID: granteeID, Reason: models.ReasonEntitlementsCheck}, nil
		}
		log.Error("User status check failed", zap.Error(err))
		return &models.UserStatus{GranteeID: granteeID, Reason: models.ReasonError, Error: err.Error()}, nil
	}

	count := len(check.Entitlements)
	status := &models.UserStatus{
		HasSubscription:  count > 0,
		GranteeID:        granteeID,
		EntitlementCount: &count,
		Reason:           models.ReasonNoEntitlements,
	}
	if count > 0 {
		status.Reason = models.ReasonActive
	}
	return status, nil
}

// lookup reads entitlements through the cache. Cache failures fall back to
// the licensing service.
func (s *entitlementServiceImpl) lookup(ctx context.Context, granteeID string) (*models.EntitlementCheck, error) {
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, granteeID)
		if err == nil {
			s.metrics.ObserveCache(true)
			return cached, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn("Entitlement cache read failed", zap.Error(err))
		}
		s.metrics.ObserveCache(false)
	}

	check, err := s.provider.CheckEntitlements(ctx, granteeID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, granteeID, &check); err != nil {
			s.logger.Warn("Entitlement cache write failed", zap.Error(err))
		}
	}
	return &check, nil
}

func mockLicenseInfo(granteeID string, now time.Time) *models.LicenseInfo {
	proExpiry := now.Add(30 * 24 * time.Hour)
	return &models.LicenseInfo{
		Status:    models.LicenseActive,
		GranteeID: granteeID,
		Entitlements: []models.Entitlement{
			{Type: "entitlement", Value: "basic"},
			{Type: "entitlement", Value: "pro", ExpiryDate: &proExpiry},
		},
		Signature: "mock-signature",
		Mock:      true,
	}
}

func withFeature(info *models.LicenseInfo, feature string, now time.Time) *models.LicenseInfo {
	if feature != "" {
		has := models.HasEntitlement(info.Entitlements, feature, now)
		info.HasFeature = &has
	}
	return info
}

func missingGranteeError() *ServiceError {
	return &ServiceError{
		Kind:       KindValidation,
		StatusCode: http.StatusBadRequest,
		Message:    MissingGranteeMessage,
		Missing:    []string{"granteeId"},
	}
}

func isAPIError(err error) bool {
	var apiErr *providers.APIError
	return errors.As(err, &apiErr)
}

func upstreamKind(err error) ErrorKind {
	switch {
	case isAPIError(err):
		return KindUpstreamFatal
	case isTimeout(err):
		return KindUpstreamTimeout
	default:
		return KindUnexpected
	}
}

// upstreamMessage prefers the upstream title, then the error text.
func upstreamMessage(err error, fallback string) string {
	var apiErr *providers.APIError
	if errors.As(err, &apiErr) {
		if apiErr.Title != "" {
			return apiErr.Title
		}
		return fallback
	}
	return err.Error()
}
