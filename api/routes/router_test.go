package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/droppoint-backend/internal/eligibility"
	"github.com/angelmondragon/droppoint-backend/internal/notifications"
	"github.com/angelmondragon/droppoint-backend/internal/orders"
	pkgAuth "github.com/angelmondragon/droppoint-backend/pkg/auth"
	"github.com/angelmondragon/droppoint-backend/pkg/config"
	"github.com/angelmondragon/droppoint-backend/pkg/db/models"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
	"github.com/angelmondragon/droppoint-backend/pkg/types"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

// memoryCache satisfies Cache without a redis server.
type memoryCache struct {
	mu      sync.Mutex
	values  map[string]string
	windows map[string]int64
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string]string{}, windows: map[string]int64{}}
}

func (c *memoryCache) Ping(context.Context) error { return nil }

func (c *memoryCache) Get(_ context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.values[key]
	if !ok {
		return "", goredis.Nil
	}
	return v, nil
}

func (c *memoryCache) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.values[key]; ok {
		return false, nil
	}
	c.values[key] = value.(string)
	return true, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	str, _ := value.(string)
	c.values[key] = str
	return nil
}

func (c *memoryCache) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (c *memoryCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		delete(c.values, k)
	}
	return nil
}

func (c *memoryCache) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.windows[scope]++
	count := c.windows[scope]
	return count <= limit, count, nil
}

type stubEligibilityService struct{}

func (stubEligibilityService) Evaluate(context.Context, eligibility.Request) (eligibility.Result, error) {
	return eligibility.Result{Serviceable: true}, nil
}

func (stubEligibilityService) GetOrigin(context.Context) (*models.OriginCenter, error) {
	return &models.OriginCenter{ID: models.OriginCenterID, Label: "hub", Location: types.GeographyPoint{Lat: 1, Lng: 1}, Active: true}, nil
}

func (stubEligibilityService) SetOrigin(_ context.Context, input eligibility.SetOriginInput) (*models.OriginCenter, error) {
	return &models.OriginCenter{ID: models.OriginCenterID, Label: input.Label, Location: input.Location, Active: input.Active}, nil
}

type stubOrdersService struct {
	mu     sync.Mutex
	placed int
}

func (s *stubOrdersService) PlaceOrder(_ context.Context, input orders.PlaceOrderInput) (*orders.PlaceOrderResult, error) {
	s.mu.Lock()
	s.placed++
	s.mu.Unlock()
	return &orders.PlaceOrderResult{Order: testOrder(input.Actor.UserID)}, nil
}

func (s *stubOrdersService) AdvanceFulfillment(_ context.Context, input orders.AdvanceFulfillmentInput) (*models.Order, error) {
	order := testOrder(uuid.New())
	order.ID = input.OrderID
	order.FulfillmentStatus = input.Status
	return order, nil
}

func (s *stubOrdersService) SetPaymentStatus(_ context.Context, input orders.SetPaymentStatusInput) (*models.Order, error) {
	order := testOrder(uuid.New())
	order.PaymentStatus = input.Status
	return order, nil
}

func (s *stubOrdersService) Get(_ context.Context, viewer orders.Actor, id uuid.UUID) (*models.Order, error) {
	order := testOrder(viewer.UserID)
	order.ID = id
	return order, nil
}

func (s *stubOrdersService) List(context.Context, orders.Actor, orders.ListParams) (*orders.OrderList, error) {
	return &orders.OrderList{}, nil
}

func (s *stubOrdersService) ExpireStaleIntents(context.Context, time.Time, int) (int, error) {
	return 0, nil
}

func (s *stubOrdersService) placedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.placed
}

func testOrder(customerID uuid.UUID) *models.Order {
	return &models.Order{
		ID:                uuid.New(),
		CustomerID:        customerID,
		Currency:          "USD",
		PaymentMethod:     enums.PaymentMethodCash,
		PaymentStatus:     enums.PaymentStatusPending,
		FulfillmentStatus: enums.FulfillmentPending,
	}
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test"},
		JWT: config.JWTConfig{Secret: "router-secret", Issuer: "droppoint-test"},
		RateLimit: config.RateLimitConfig{
			Window:       time.Minute,
			QuoteUser:    2,
			CheckoutUser: 10,
		},
		Stream: config.StreamConfig{HeartbeatInterval: time.Second},
	}
}

func newTestRouter(cfg *config.Config, cache Cache, svc *stubOrdersService) http.Handler {
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Output: io.Discard})
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		cache,
		nil,
		stubEligibilityService{},
		nil,
		svc,
		nil,
		nil,
		notifications.NewHub(1, logg),
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.ActorRole) string {
	t.Helper()
	keys, err := pkgAuth.NewKeys(cfg.JWT)
	if err != nil {
		t.Fatalf("keys: %v", err)
	}
	token, err := keys.Mint(pkgAuth.Principal{UserID: uuid.New(), Role: role}, time.Hour)
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(testConfig(), nil, &stubOrdersService{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestHealthReady(t *testing.T) {
	router := newTestRouter(testConfig(), newMemoryCache(), &stubOrdersService{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}

func TestOrdersRequireToken(t *testing.T) {
	router := newTestRouter(testConfig(), nil, &stubOrdersService{})
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestFulfillmentRequiresOperator(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil, &stubOrdersService{})
	path := "/api/v1/orders/" + uuid.NewString() + "/fulfillment"

	customer := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"status":"confirmed"}`))
	customer.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, customer)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for customer got %d", resp.Code)
	}

	staff := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"status":"confirmed"}`))
	staff.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleStaff))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, staff)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for staff got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAdminOriginRequiresAdmin(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil, &stubOrdersService{})

	staff := httptest.NewRequest(http.MethodGet, "/api/v1/admin/origin", nil)
	staff.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleStaff))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, staff)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodPut, "/api/v1/admin/origin", strings.NewReader(`{"label":"Central","lat":1.3,"lng":103.8}`))
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin got %d: %s", resp.Code, resp.Body.String())
	}
}

const routerCheckoutBody = `{"items":[{"catalogRef":"8f14e45f-ceea-467a-9575-1a1b1c1d1e1f","quantity":1}],"destination":{"addressLine":"1 Main St","postalCode":"100001","lat":1.3,"lng":103.8},"paymentMethod":"cash"}`

func TestCheckoutRequiresIdempotencyKey(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, newMemoryCache(), &stubOrdersService{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(routerCheckoutBody))
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without idempotency key got %d", resp.Code)
	}
}

func TestCheckoutReplaysSameKey(t *testing.T) {
	cfg := testConfig()
	svc := &stubOrdersService{}
	router := newTestRouter(cfg, newMemoryCache(), svc)
	token := buildToken(t, cfg, enums.ActorRoleCustomer)

	var bodies []string
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(routerCheckoutBody))
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Idempotency-Key", "checkout-42")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d: %s", i, resp.Code, resp.Body.String())
		}
		bodies = append(bodies, resp.Body.String())
	}

	if svc.placedCount() != 1 {
		t.Fatalf("expected one checkout, got %d", svc.placedCount())
	}
	if bodies[0] != bodies[1] {
		t.Fatal("replayed response differs from the original")
	}
}

func TestQuoteRateLimited(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, newMemoryCache(), &stubOrdersService{})
	token := buildToken(t, cfg, enums.ActorRoleCustomer)

	var last int
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/eligibility/quote", strings.NewReader(`{"lat":1.3,"lng":103.8}`))
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		last = resp.Code
	}
	if last != http.StatusTooManyRequests {
		t.Fatalf("expected 429 on third quote got %d", last)
	}
}

func TestGeocodeUnconfigured(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(cfg, nil, &stubOrdersService{})
	req := httptest.NewRequest(http.MethodGet, "/api/v1/geo/reverse?lat=1&lng=1", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.ActorRoleCustomer))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502 without a routing provider got %d", resp.Code)
	}
}
