package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-service/models"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// DefaultSalableURL is the base URL of the Salable beta API.
const DefaultSalableURL = "https://beta.salable.app/api"

// SalableProvider implements LicensingProvider using the Salable API.
type SalableProvider struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	// readBreaker guards the read-only lookups. Checkout writes bypass it.
	readBreaker *gobreaker.CircuitBreaker[struct{}]
}

// NewSalableProvider creates a new SalableProvider. A nil httpClient gets a
// client with an OpenTelemetry-instrumented transport.
func NewSalableProvider(baseURL, apiKey string, httpClient *http.Client) *SalableProvider {
	if baseURL == "" {
		baseURL = DefaultSalableURL
	}
	if httpClient == nil {
		httpClient = &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
	}
	return &SalableProvider{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		apiKey:      apiKey,
		httpClient:  httpClient,
		readBreaker: gobreaker.NewCircuitBreaker[struct{}](readBreakerSettings()),
	}
}

func readBreakerSettings() gobreaker.Settings {
	return gobreaker.Settings{
		Name:    "salable-read",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// 4xx answers mean the service is up.
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode < 500
			}
			return err == nil
		},
	}
}

// ---- Salable API envelopes ----

type envelope[T any] struct {
	Data T `json:"data"`
}

type createGroupRequest struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// ---- LicensingProvider implementation ----

// Configured reports whether an API key is set.
func (s *SalableProvider) Configured() bool { return s.apiKey != "" }

// CreateGroup creates a billing group owned by owner.
func (s *SalableProvider) CreateGroup(ctx context.Context, owner, name string) (models.Group, error) {
	var resp envelope[models.Group]
	if err := s.doRequest(ctx, http.MethodPost, "/groups", nil, createGroupRequest{Owner: owner, Name: name}, &resp); err != nil {
		return models.Group{}, fmt.Errorf("salable CreateGroup: %w", err)
	}
	if resp.Data.ID == "" {
		return models.Group{}, fmt.Errorf("salable CreateGroup: %w: missing data.id", ErrMalformedResponse)
	}
	return resp.Data, nil
}

// AddGrantees applies grantee operations to a group. The response body is
// not inspected.
func (s *SalableProvider) AddGrantees(ctx context.Context, groupID string, ops []models.GranteeOperation) error {
	path := fmt.Sprintf("/groups/%s/grantees", url.PathEscape(groupID))
	if err := s.doRequest(ctx, http.MethodPost, path, nil, ops, nil); err != nil {
		return fmt.Errorf("salable AddGrantees: %w", err)
	}
	return nil
}

// CreateCart creates a cart and returns it with its id.
func (s *SalableProvider) CreateCart(ctx context.Context, cart models.Cart) (models.Cart, error) {
	var resp envelope[models.Cart]
	if err := s.doRequest(ctx, http.MethodPost, "/carts", nil, cart, &resp); err != nil {
		return models.Cart{}, fmt.Errorf("salable CreateCart: %w", err)
	}
	if resp.Data.ID == "" {
		return models.Cart{}, fmt.Errorf("salable CreateCart: %w: missing data.id", ErrMalformedResponse)
	}
	return resp.Data, nil
}

// AddCartItem attaches a line item to a cart.
func (s *SalableProvider) AddCartItem(ctx context.Context, item models.CartItem) error {
	if err := s.doRequest(ctx, http.MethodPost, "/cart-items", nil, item, nil); err != nil {
		return fmt.Errorf("salable AddCartItem: %w", err)
	}
	return nil
}

// CreateCheckoutLink finalizes a cart into a payment page URL.
func (s *SalableProvider) CreateCheckoutLink(ctx context.Context, cartID string, req models.CheckoutLinkRequest) (models.CheckoutLink, error) {
	path := fmt.Sprintf("/carts/%s/checkout", url.PathEscape(cartID))

	var resp envelope[models.CheckoutLink]
	if err := s.doRequest(ctx, http.MethodPost, path, nil, req, &resp); err != nil {
		return models.CheckoutLink{}, fmt.Errorf("salable CreateCheckoutLink: %w", err)
	}
	if resp.Data.URL == "" {
		return models.CheckoutLink{}, fmt.Errorf("salable CreateCheckoutLink: %w: missing data.url", ErrMalformedResponse)
	}
	return resp.Data, nil
}

// CheckEntitlements returns the entitlements held by a grantee.
func (s *SalableProvider) CheckEntitlements(ctx context.Context, granteeID string) (models.EntitlementCheck, error) {
	var resp envelope[models.EntitlementCheck]
	query := url.Values{"granteeId": {granteeID}}
	if err := s.doRead(ctx, "/entitlements/check", query, &resp); err != nil {
		return models.EntitlementCheck{}, fmt.Errorf("salable CheckEntitlements: %w", err)
	}
	if resp.Data.Entitlements == nil {
		resp.Data.Entitlements = []models.Entitlement{}
	}
	return resp.Data, nil
}

// FindGrantee looks up a grantee by its external id.
func (s *SalableProvider) FindGrantee(ctx context.Context, granteeID string) (*models.Grantee, error) {
	var resp envelope[[]models.Grantee]
	query := url.Values{"granteeId": {granteeID}}
	if err := s.doRead(ctx, "/grantees", query, &resp); err != nil {
		return nil, fmt.Errorf("salable FindGrantee: %w", err)
	}
	for i := range resp.Data {
		if resp.Data[i].GranteeID == granteeID {
			return &resp.Data[i], nil
		}
	}
	return nil, nil
}

// ListPlans returns the plans in the catalog.
func (s *SalableProvider) ListPlans(ctx context.Context) ([]models.Plan, error) {
	var resp envelope[[]models.Plan]
	if err := s.doRead(ctx, "/plans", nil, &resp); err != nil {
		return nil, fmt.Errorf("salable ListPlans: %w", err)
	}
	return resp.Data, nil
}

// ListProducts returns the products in the catalog.
func (s *SalableProvider) ListProducts(ctx context.Context) ([]models.Product, error) {
	var resp envelope[[]models.Product]
	if err := s.doRead(ctx, "/products", nil, &resp); err != nil {
		return nil, fmt.Errorf("salable ListProducts: %w", err)
	}
	return resp.Data, nil
}

// ---- HTTP helpers ----

func (s *SalableProvider) doRead(ctx context.Context, path string, query url.Values, out interface{}) error {
	_, err := s.readBreaker.Execute(func() (struct{}, error) {
		return struct{}{}, s.doRequest(ctx, http.MethodGet, path, query, nil, out)
	})
	return err
}

func (s *SalableProvider) doRequest(ctx context.Context, method, path string, query url.Values, body interface{}, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(b)
	}

	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http do: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseAPIError(resp.StatusCode, respBytes)
	}

	if out != nil {
		if err := json.Unmarshal(respBytes, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// parseAPIError reads a {title, detail} error payload, keeping the raw text
// when the body is not a JSON object.
func parseAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil {
		apiErr.Title, apiErr.Detail, apiErr.Errors = "", "", nil
		apiErr.Raw = strings.TrimSpace(string(body))
	}
	return apiErr
}
