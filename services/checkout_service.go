package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strings"
	"time"

	"storefront-service/cache"
	applog "storefront-service/common/logger"
	"storefront-service/models"
	"storefront-service/observability"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/providers"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MissingFieldsMessage is returned when a checkout request is incomplete.
const MissingFieldsMessage = "Missing required fields: planId, granteeId, owner"

// EventCheckoutLinkCreated is the SNS event type published after checkout.
const EventCheckoutLinkCreated = "checkout_link_created"

// CheckoutOptions tunes the checkout saga.
type CheckoutOptions struct {
	// CallTimeout bounds each remote call of the saga.
	CallTimeout time.Duration
	SuccessPath string
	CancelPath  string
	SNSTopicARN string
}

// DefaultCheckoutOptions returns the options used when none are configured.
func DefaultCheckoutOptions() CheckoutOptions {
	return CheckoutOptions{
		CallTimeout: 10 * time.Second,
		SuccessPath: "/success",
		CancelPath:  "/pricing",
	}
}

// CheckoutService drives the checkout saga.
type CheckoutService interface {
	// CreateCheckout validates req and runs the saga from the start. origin
	// is the scheme and host the payment page redirects back to.
	CreateCheckout(ctx context.Context, req *models.CheckoutRequest, origin string) (*models.CheckoutResult, *ServiceError)

	// Resume runs the remaining steps of saga from its current state.
	Resume(ctx context.Context, saga *CheckoutSaga) *ServiceError
}

type checkoutServiceImpl struct {
	provider  providers.LicensingProvider
	cache     cache.EntitlementCache
	snsClient aws_pkg.SNSPublisher
	opts      CheckoutOptions
	metrics   *observability.Metrics
	validate  *validator.Validate
	logger    *zap.Logger
}

// NewCheckoutService creates a new CheckoutService. entitlementCache,
// snsClient and metrics may be nil.
func NewCheckoutService(
	provider providers.LicensingProvider,
	entitlementCache cache.EntitlementCache,
	snsClient aws_pkg.SNSPublisher,
	opts CheckoutOptions,
	metrics *observability.Metrics,
	logger *zap.Logger,
) CheckoutService {
	defaults := DefaultCheckoutOptions()
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = defaults.CallTimeout
	}
	if opts.SuccessPath == "" {
		opts.SuccessPath = defaults.SuccessPath
	}
	if opts.CancelPath == "" {
		opts.CancelPath = defaults.CancelPath
	}

	return &checkoutServiceImpl{
		provider:  provider,
		cache:     entitlementCache,
		snsClient: snsClient,
		opts:      opts,
		metrics:   metrics,
		validate:  newRequestValidator(),
		logger:    logger,
	}
}

// CreateCheckout runs the full saga for req.
func (s *checkoutServiceImpl) CreateCheckout(ctx context.Context, req *models.CheckoutRequest, origin string) (*models.CheckoutResult, *ServiceError) {
	if !s.provider.Configured() {
		s.logger.Error("Checkout rejected: licensing API key missing")
		return nil, configurationError()
	}

	if missing := s.missingFields(req); len(missing) > 0 {
		return nil, &ServiceError{
			Kind:       KindValidation,
			StatusCode: http.StatusBadRequest,
			Message:    MissingFieldsMessage,
			Missing:    missing,
		}
	}

	saga := &CheckoutSaga{
		ID:         uuid.NewString(),
		Request:    *req,
		SuccessURL: SuccessURL(origin, s.opts.SuccessPath, req.GranteeID),
		CancelURL:  CancelURL(origin, s.opts.CancelPath),
		State:      StateStart,
	}

	start := time.Now()
	if svcErr := s.Resume(ctx, saga); svcErr != nil {
		s.metrics.ObserveCheckout(string(svcErr.Kind), time.Since(start))
		return nil, svcErr
	}
	s.metrics.ObserveCheckout(observability.OutcomeSuccess, time.Since(start))

	s.invalidateEntitlements(ctx, req.GranteeID)
	s.publishEvent(ctx, EventCheckoutLinkCreated, models.CheckoutLinkCreatedEvent{
		EventType: EventCheckoutLinkCreated,
		SagaID:    saga.ID,
		Owner:     req.Owner,
		GranteeID: req.GranteeID,
		PlanID:    req.PlanID,
		GroupID:   saga.GroupID,
		CartID:    saga.CartID,
		Timestamp: time.Now(),
	})

	return saga.Result(), nil
}

// Resume walks the step table once, skipping steps whose target state the
// saga has already reached.
func (s *checkoutServiceImpl) Resume(ctx context.Context, saga *CheckoutSaga) *ServiceError {
	log := applog.FromContext(ctx, s.logger).With(
		zap.String("saga_id", saga.ID),
		zap.String("owner", saga.Request.Owner),
		zap.String("grantee_id", saga.Request.GranteeID),
	)

	for _, step := range checkoutSteps {
		if step.Target <= saga.State {
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
		start := time.Now()
		err := step.Run(callCtx, s.provider, saga)
		cancel()
		elapsed := time.Since(start)

		if err == nil {
			saga.State = step.Target
			s.metrics.ObserveStep(step.Name, observability.OutcomeSuccess, elapsed)
			log.Info("Checkout step completed",
				zap.String("step", step.Name),
				zap.Stringer("state", saga.State),
				zap.String("group_id", saga.GroupID),
				zap.String("cart_id", saga.CartID),
			)
			continue
		}

		svcErr := classifyStepError(step, err)
		if svcErr.Kind == KindUpstreamSoft {
			saga.Warnings = append(saga.Warnings, fmt.Sprintf("%s: %s", step.Name, svcErr.Message))
			s.metrics.ObserveStep(step.Name, observability.OutcomeSoftFailure, elapsed)
			log.Warn("Checkout step failed, proceeding with checkout",
				zap.String("step", step.Name),
				zap.Int("upstream_status", svcErr.StatusCode),
				zap.String("group_id", saga.GroupID),
				zap.Error(err),
			)
			continue
		}

		outcome := observability.OutcomeFailure
		if svcErr.Kind == KindUpstreamTimeout {
			outcome = observability.OutcomeTimeout
		}
		s.metrics.ObserveStep(step.Name, outcome, elapsed)
		// Resources created so far are left in place; the ids are logged
		// for out-of-band cleanup.
		log.Error("Checkout aborted",
			zap.String("step", step.Name),
			zap.String("kind", string(svcErr.Kind)),
			zap.Int("status", svcErr.StatusCode),
			zap.Stringer("state", saga.State),
			zap.String("group_id", saga.GroupID),
			zap.String("cart_id", saga.CartID),
			zap.Error(err),
		)
		return svcErr
	}

	return nil
}

// classifyStepError maps a step failure onto the error taxonomy.
func classifyStepError(step sagaStep, err error) *ServiceError {
	var apiErr *providers.APIError
	if errors.As(err, &apiErr) {
		svcErr := &ServiceError{
			Kind:       KindUpstreamFatal,
			StatusCode: apiErr.StatusCode,
			Message:    step.message(apiErr),
			Step:       step.Name,
			Err:        err,
		}
		if !step.Fatal {
			svcErr.Kind = KindUpstreamSoft
		}
		if step.SurfaceDetail {
			svcErr.Details = apiErr
		}
		return svcErr
	}

	if isTimeout(err) {
		return &ServiceError{
			Kind:       KindUpstreamTimeout,
			StatusCode: http.StatusGatewayTimeout,
			Message:    fmt.Sprintf("Licensing service timed out during %s", step.Name),
			Step:       step.Name,
			Err:        err,
		}
	}

	return &ServiceError{
		Kind:       KindUnexpected,
		StatusCode: http.StatusInternalServerError,
		Message:    err.Error(),
		Step:       step.Name,
		Err:        err,
	}
}

// missingFields returns the JSON names of empty required fields, in
// declaration order.
func (s *checkoutServiceImpl) missingFields(req *models.CheckoutRequest) []string {
	if req == nil {
		return []string{"planId", "granteeId", "owner"}
	}
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	missing := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		missing = append(missing, fe.Field())
	}
	return missing
}

func newRequestValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// SuccessURL is the page the payment provider returns to after payment.
func SuccessURL(origin, path, granteeID string) string {
	return strings.TrimSuffix(origin, "/") + path + "?granteeId=" + url.QueryEscape(granteeID)
}

// CancelURL is the page the payment provider returns to on cancel.
func CancelURL(origin, path string) string {
	return strings.TrimSuffix(origin, "/") + path
}

// invalidateEntitlements drops the cached lookup so the next check sees the
// new subscription (non-fatal on error).
func (s *checkoutServiceImpl) invalidateEntitlements(ctx context.Context, granteeID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, granteeID); err != nil {
		s.logger.Warn("Failed to invalidate cached entitlements", zap.String("grantee_id", granteeID), zap.Error(err))
	}
}

// publishEvent marshals an event and publishes it to SNS (non-fatal on error).
func (s *checkoutServiceImpl) publishEvent(ctx context.Context, eventType string, event interface{}) {
	if s.snsClient == nil || s.opts.SNSTopicARN == "" {
		s.logger.Debug("SNS not configured, skipping event publish")
		return
	}
	b, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("Failed to marshal SNS event", zap.Error(err))
		return
	}
	if err := s.snsClient.Publish(ctx, s.opts.SNSTopicARN, eventType, b); err != nil {
		s.logger.Error("Failed to publish SNS event", zap.String("event_type", eventType), zap.Error(err))
		return
	}
	s.logger.Info("Published SNS event", zap.String("event_type", eventType), zap.String("topic", s.opts.SNSTopicARN))
}
