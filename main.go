package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"storefront-service/cache"
	applog "storefront-service/common/logger"
	"storefront-service/common/middleware"
	"storefront-service/observability"
	aws_pkg "storefront-service/pkg/aws"
	"storefront-service/providers"
	"storefront-service/routes"
	servicepkg "storefront-service/services"

	sdkaws "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// AWS is only needed for CloudWatch and checkout events
	var awsCfg sdkaws.Config
	awsReady := false
	if cfg.CloudWatchEnabled || cfg.CheckoutSNSTopicARN != "" {
		if c, err := aws_pkg.LoadAWSConfig(ctx); err != nil {
			log.Printf("AWS config unavailable, CloudWatch and SNS disabled: %v", err)
		} else {
			awsCfg, awsReady = c, true
		}
	}

	var cwWriter io.Writer
	var cwMetrics *aws_pkg.MetricsClient
	if cfg.CloudWatchEnabled && awsReady {
		if w, err := aws_pkg.NewLogWriter(ctx, awsCfg, cfg.CloudWatchLogGroup, routes.ServiceName); err != nil {
			log.Printf("CloudWatch logs disabled: %v", err)
		} else {
			cwWriter = w
		}
		cwMetrics = aws_pkg.NewMetricsClient(awsCfg, cfg.CloudWatchNamespace)
	}

	logger := applog.InitializeWithWriter(cfg.AppEnv, cwWriter)
	defer logger.Sync() //nolint:errcheck

	if cfg.AppEnv == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	if cfg.SalableAPIKey == "" {
		logger.Warn("SALABLE_API_KEY not configured, licensing endpoints will report a configuration error")
	}

	// Optional entitlement cache
	var entitlementCache cache.EntitlementCache
	if cfg.RedisURL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("Redis unavailable, entitlement cache disabled", zap.Error(err))
		} else {
			defer client.Close() //nolint:errcheck
			entitlementCache = cache.NewRedisCache(client, cfg.EntitlementCacheTTL)
		}
	}

	var snsClient aws_pkg.SNSPublisher
	if cfg.CheckoutSNSTopicARN != "" && awsReady {
		snsClient = aws_pkg.NewSNSClient(awsCfg)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	// Provider and DI chain
	provider := providers.NewSalableProvider(cfg.SalableAPIURL, cfg.SalableAPIKey, nil)
	checkoutService := servicepkg.NewCheckoutService(
		provider,
		entitlementCache,
		snsClient,
		servicepkg.CheckoutOptions{
			CallTimeout: cfg.BillingCallTimeout,
			SuccessPath: cfg.CheckoutSuccessPath,
			CancelPath:  cfg.CheckoutCancelPath,
			SNSTopicARN: cfg.CheckoutSNSTopicARN,
		},
		metrics,
		logger,
	)

	r := newRouter(cfg, serverDeps{
		Checkout:      checkoutService,
		Entitlements:  servicepkg.NewEntitlementService(provider, entitlementCache, metrics, logger),
		Catalog:       servicepkg.NewCatalogService(provider, logger),
		Metrics:       metrics,
		CloudWatch:    cwMetrics,
		CheckoutLimit: middleware.CheckoutRateLimit(ctx),
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Storefront service started", zap.String("port", cfg.Port), zap.String("env", cfg.AppEnv))
	if err := serve(ctx, srv, 5*time.Second, logger); err != nil {
		logger.Error("Server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("Server exited cleanly")
}
