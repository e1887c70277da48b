package routes

import (
	"net/http"
	"time"

	"storefront-service/controllers"
	apperrors "storefront-service/common/errors"

	"github.com/gin-gonic/gin"
)

// ServiceName is reported by the health check.
const ServiceName = "storefront-service"

// Controllers groups the handlers served under /api.
type Controllers struct {
	Checkout    *controllers.CheckoutController
	Entitlement *controllers.EntitlementController
	Catalog     *controllers.CatalogController
}

// RegisterRoutes sets up the API, health and metrics routes. checkoutLimit
// guards the checkout endpoints; metricsHandler may be nil.
func RegisterRoutes(r *gin.Engine, c Controllers, checkoutLimit gin.HandlerFunc, metricsHandler http.Handler) {
	r.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"service":   ServiceName,
		})
	})

	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	api := r.Group("/api")

	checkout := api.Group("")
	if checkoutLimit != nil {
		checkout.Use(checkoutLimit)
	}
	checkout.POST("/checkout", c.Checkout.CreateCheckout)
	checkout.POST("/checkout.json", c.Checkout.CreateCheckout)

	api.GET("/entitlements/check", c.Entitlement.CheckEntitlements)
	api.GET("/user/status", c.Entitlement.UserStatus)

	api.GET("/plans", c.Catalog.ListPlans)
	api.GET("/products", c.Catalog.ListProducts)

	r.NoRoute(func(ctx *gin.Context) {
		_ = ctx.Error(apperrors.ErrNotFound)
	})
}
