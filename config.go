package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	aws_pkg "storefront-service/pkg/aws"

	"github.com/joho/godotenv"
)

// SalableAPIKeySecret names the Secrets Manager entry holding the API key.
const SalableAPIKeySecret = "storefront/SALABLE_API_KEY"

// Config holds all configuration for the storefront service.
type Config struct {
	Port   string
	AppEnv string

	SalableAPIURL string
	// SalableAPIKey may be empty; licensing endpoints then report a
	// configuration error per request.
	SalableAPIKey string

	PublicBaseURL       string
	CheckoutSuccessPath string
	CheckoutCancelPath  string

	BillingCallTimeout time.Duration
	RequestTimeout     time.Duration

	RedisURL            string
	EntitlementCacheTTL time.Duration

	CheckoutSNSTopicARN string
	AllowedOrigins      []string
	UseSecrets          bool
	CloudWatchEnabled   bool
	CloudWatchLogGroup  string
	CloudWatchNamespace string
}

// LoadConfig reads configuration from an optional .env file and environment
// variables, with an optional Secrets Manager override of the API key.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := configFromEnv()
	if err != nil {
		return nil, err
	}

	if cfg.UseSecrets {
		awsCfg, err := aws_pkg.LoadAWSConfig(context.Background())
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		applySecrets(context.Background(), cfg, aws_pkg.NewSecretsClient(awsCfg))
	}
	return cfg, nil
}

func configFromEnv() (*Config, error) {
	cfg := &Config{
		Port:                getEnv("PORT", "8095"),
		AppEnv:              getEnv("APP_ENV", "development"),
		SalableAPIURL:       strings.TrimSuffix(getEnv("SALABLE_API_URL", "https://beta.salable.app/api"), "/"),
		SalableAPIKey:       os.Getenv("SALABLE_API_KEY"),
		PublicBaseURL:       strings.TrimSuffix(os.Getenv("PUBLIC_BASE_URL"), "/"),
		CheckoutSuccessPath: getEnv("CHECKOUT_SUCCESS_PATH", "/success"),
		CheckoutCancelPath:  getEnv("CHECKOUT_CANCEL_PATH", "/pricing"),
		RedisURL:            os.Getenv("REDIS_URL"),
		CheckoutSNSTopicARN: os.Getenv("CHECKOUT_SNS_TOPIC_ARN"),
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:4321,tauri://localhost")),
		UseSecrets:          os.Getenv("AWS_USE_SECRETS") == "true",
		CloudWatchEnabled:   os.Getenv("CLOUDWATCH_ENABLED") == "true",
		CloudWatchLogGroup:  getEnv("CLOUDWATCH_LOG_GROUP", aws_pkg.DefaultLogGroup),
		CloudWatchNamespace: getEnv("CLOUDWATCH_NAMESPACE", aws_pkg.DefaultNamespace),
	}

	var err error
	if cfg.BillingCallTimeout, err = getDuration("BILLING_CALL_TIMEOUT", 10*time.Second); err != nil {
		return nil, err
	}
	if cfg.RequestTimeout, err = getDuration("REQUEST_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.EntitlementCacheTTL, err = getDuration("ENTITLEMENT_CACHE_TTL", 60*time.Second); err != nil {
		return nil, err
	}

	if err := validateBaseURL("SALABLE_API_URL", cfg.SalableAPIURL); err != nil {
		return nil, err
	}
	if cfg.PublicBaseURL != "" {
		if err := validateBaseURL("PUBLIC_BASE_URL", cfg.PublicBaseURL); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// applySecrets overrides the API key from Secrets Manager. The secret is
// either the bare key or a JSON object with a SALABLE_API_KEY field. A
// missing secret keeps the environment value.
func applySecrets(ctx context.Context, cfg *Config, sm aws_pkg.SecretGetter) {
	raw, err := sm.GetSecret(ctx, SalableAPIKeySecret)
	if err != nil {
		return
	}
	if v := aws_pkg.SecretField(raw, "SALABLE_API_KEY"); v != "" {
		cfg.SalableAPIKey = v
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, raw, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: must be positive", key, raw)
	}
	return d, nil
}

func validateBaseURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid %s %q", key, raw)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(part), "/")); p != "" {
			out = append(out, p)
		}
	}
	return out
}
