package services_test

import (
	"context"
	"sync"

	"storefront-service/cache"
	"storefront-service/models"
)

// ---- mock provider ----

type mockProvider struct {
	mu         sync.Mutex
	configured bool
	calls      []string

	groupID  string
	groupErr error
	addErr   error
	cartID   string
	cartErr  error
	itemErr  error
	linkURL  string
	linkErr  error

	// blockOn names a call that waits for its context to expire
	blockOn string

	gotOwner     string
	gotGroupName string
	gotGroupID   string
	gotOps       []models.GranteeOperation
	gotCart      models.Cart
	gotItem      models.CartItem
	gotLinkCart  string
	gotLinkReq   models.CheckoutLinkRequest

	check      models.EntitlementCheck
	checkErr   error
	grantee    *models.Grantee
	granteeErr error
	plans      []models.Plan
	products   []models.Product
	listErr    error
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		configured: true,
		groupID:    "group_1",
		cartID:     "cart_1",
		linkURL:    "https://pay.example.com/session/abc",
	}
}

func (m *mockProvider) record(ctx context.Context, name string) error {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	block := m.blockOn == name
	m.mu.Unlock()
	if block {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (m *mockProvider) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *mockProvider) Configured() bool { return m.configured }

func (m *mockProvider) CreateGroup(ctx context.Context, owner, name string) (models.Group, error) {
	if err := m.record(ctx, "CreateGroup"); err != nil {
		return models.Group{}, err
	}
	m.gotOwner, m.gotGroupName = owner, name
	if m.groupErr != nil {
		return models.Group{}, m.groupErr
	}
	return models.Group{ID: m.groupID, Owner: owner, Name: name}, nil
}

func (m *mockProvider) AddGrantees(ctx context.Context, groupID string, ops []models.GranteeOperation) error {
	if err := m.record(ctx, "AddGrantees"); err != nil {
		return err
	}
	m.gotGroupID, m.gotOps = groupID, ops
	return m.addErr
}

func (m *mockProvider) CreateCart(ctx context.Context, cart models.Cart) (models.Cart, error) {
	if err := m.record(ctx, "CreateCart"); err != nil {
		return models.Cart{}, err
	}
	m.gotCart = cart
	if m.cartErr != nil {
		return models.Cart{}, m.cartErr
	}
	cart.ID = m.cartID
	return cart, nil
}

func (m *mockProvider) AddCartItem(ctx context.Context, item models.CartItem) error {
	if err := m.record(ctx, "AddCartItem"); err != nil {
		return err
	}
	m.gotItem = item
	return m.itemErr
}

func (m *mockProvider) CreateCheckoutLink(ctx context.Context, cartID string, req models.CheckoutLinkRequest) (models.CheckoutLink, error) {
	if err := m.record(ctx, "CreateCheckoutLink"); err != nil {
		return models.CheckoutLink{}, err
	}
	m.gotLinkCart, m.gotLinkReq = cartID, req
	if m.linkErr != nil {
		return models.CheckoutLink{}, m.linkErr
	}
	return models.CheckoutLink{URL: m.linkURL}, nil
}

func (m *mockProvider) CheckEntitlements(ctx context.Context, _ string) (models.EntitlementCheck, error) {
	if err := m.record(ctx, "CheckEntitlements"); err != nil {
		return models.EntitlementCheck{}, err
	}
	return m.check, m.checkErr
}

func (m *mockProvider) FindGrantee(ctx context.Context, _ string) (*models.Grantee, error) {
	if err := m.record(ctx, "FindGrantee"); err != nil {
		return nil, err
	}
	return m.grantee, m.granteeErr
}

func (m *mockProvider) ListPlans(ctx context.Context) ([]models.Plan, error) {
	if err := m.record(ctx, "ListPlans"); err != nil {
		return nil, err
	}
	return m.plans, m.listErr
}

func (m *mockProvider) ListProducts(ctx context.Context) ([]models.Product, error) {
	if err := m.record(ctx, "ListProducts"); err != nil {
		return nil, err
	}
	return m.products, m.listErr
}

// ---- mock SNS publisher ----

type mockSNS struct {
	publishErr error
	topics     []string
	eventTypes []string
	messages   [][]byte
}

func (m *mockSNS) Publish(_ context.Context, topicArn, eventType string, message []byte) error {
	m.topics = append(m.topics, topicArn)
	m.eventTypes = append(m.eventTypes, eventType)
	m.messages = append(m.messages, message)
	return m.publishErr
}

// ---- in-memory entitlement cache ----

type memCache struct {
	mu      sync.Mutex
	entries map[string]*models.EntitlementCheck
	deleted []string
}

func newMemCache() *memCache {
	return &memCache{entries: map[string]*models.EntitlementCheck{}}
}

func (c *memCache) Get(_ context.Context, granteeID string) (*models.EntitlementCheck, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[granteeID]; ok {
		return e, nil
	}
	return nil, cache.ErrCacheMiss
}

func (c *memCache) Set(_ context.Context, granteeID string, check *models.EntitlementCheck) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[granteeID] = check
	return nil
}

func (c *memCache) Delete(_ context.Context, granteeID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, granteeID)
	c.deleted = append(c.deleted, granteeID)
	return nil
}
