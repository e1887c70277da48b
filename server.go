package main

import (
	"context"
	"net/http"
	"time"

	"storefront-service/common/errors"
	applog "storefront-service/common/logger"
	"storefront-service/common/middleware"
	"storefront-service/controllers"
	"storefront-service/observability"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/routes"
	"storefront-service/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// serverDeps is everything the router needs beyond configuration.
type serverDeps struct {
	Checkout      services.CheckoutService
	Entitlements  services.EntitlementService
	Catalog       services.CatalogService
	Metrics       *observability.Metrics
	CloudWatch    *aws_pkg.MetricsClient
	CheckoutLimit gin.HandlerFunc
	Logger        *zap.Logger
}

func newRouter(cfg *Config, deps serverDeps) *gin.Engine {
	r := gin.New()

	r.Use(errors.Recovery(deps.Logger))
	r.Use(applog.RequestID())
	r.Use(applog.RequestLogger(deps.Logger))
	r.Use(cors.New(corsConfig(cfg.AllowedOrigins)))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.MetricsMiddleware(deps.CloudWatch, routes.ServiceName))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(errors.ErrorMiddleware(deps.Logger))

	var metricsHandler http.Handler
	if deps.Metrics != nil {
		metricsHandler = deps.Metrics.Handler()
	}

	routes.RegisterRoutes(r, routes.Controllers{
		Checkout:    controllers.NewCheckoutController(deps.Checkout, cfg.PublicBaseURL),
		Entitlement: controllers.NewEntitlementController(deps.Entitlements),
		Catalog:     controllers.NewCatalogController(deps.Catalog),
	}, deps.CheckoutLimit, metricsHandler)

	return r
}

// corsConfig allows the listed origins. "*" allows any origin. Non-http
// schemes such as tauri:// are matched through AllowOriginFunc.
func corsConfig(origins []string) cors.Config {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}

	return cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return allowed["*"] || allowed[origin]
		},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", applog.RequestIDHeader},
		ExposeHeaders:    []string{applog.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// serve runs srv until ctx is cancelled, then drains for up to drain.
func serve(ctx context.Context, srv *http.Server, drain time.Duration, log *zap.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down storefront service...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), drain)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
