package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"storefront-service/models"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
)

// CheckoutController handles HTTP requests for the checkout flow.
type CheckoutController struct {
	checkoutService services.CheckoutService
	publicBaseURL   string
}

// NewCheckoutController creates a new CheckoutController. publicBaseURL, when
// set, overrides the origin derived from the request.
func NewCheckoutController(svc services.CheckoutService, publicBaseURL string) *CheckoutController {
	return &CheckoutController{
		checkoutService: svc,
		publicBaseURL:   strings.TrimSuffix(publicBaseURL, "/"),
	}
}

// CreateCheckout handles POST /api/checkout
func (cc *CheckoutController) CreateCheckout(ctx *gin.Context) {
	var req models.CheckoutRequest
	reqPtr := &req
	bindErr := ctx.ShouldBindJSON(&req)
	if bindErr != nil {
		// Let the service decide: missing credentials outrank a bad body.
		reqPtr = nil
	}

	result, svcErr := cc.checkoutService.CreateCheckout(ctx.Request.Context(), reqPtr, cc.origin(ctx))
	if svcErr != nil {
		if bindErr != nil && !errors.Is(bindErr, io.EOF) && svcErr.Kind == services.KindValidation {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": bindErr.Error()})
			return
		}
		writeServiceError(ctx, svcErr)
		return
	}

	ctx.JSON(http.StatusOK, models.CheckoutResponse{CheckoutURL: result.CheckoutURL})
}

// origin is the scheme and host the payment page sends the user back to.
func (cc *CheckoutController) origin(ctx *gin.Context) string {
	if cc.publicBaseURL != "" {
		return cc.publicBaseURL
	}
	if o := ctx.GetHeader("Origin"); o != "" && o != "null" {
		return strings.TrimSuffix(o, "/")
	}
	scheme := "http"
	if ctx.Request.TLS != nil {
		scheme = "https"
	}
	if proto := ctx.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = strings.TrimSpace(strings.Split(proto, ",")[0])
	}
	return scheme + "://" + ctx.Request.Host
}

// writeServiceError renders a ServiceError as a JSON body with at least an
// "error" field.
func writeServiceError(ctx *gin.Context, svcErr *services.ServiceError) {
	body := gin.H{"error": svcErr.Message}
	if svcErr.Details != nil {
		body["details"] = svcErr.Details
	}
	if len(svcErr.Missing) > 0 {
		body["missing"] = svcErr.Missing
	}
	ctx.JSON(svcErr.StatusCode, body)
}
