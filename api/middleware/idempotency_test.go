package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
)

// memoryStore ignores TTLs; tests never outlive them.
type memoryStore map[string]string

func (m memoryStore) Get(_ context.Context, key string) (string, error) {
	v, ok := m[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	if _, taken := m[key]; taken {
		return false, nil
	}
	m[key], _ = value.(string)
	return true, nil
}

func (m memoryStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m[key], _ = value.(string)
	return nil
}

func (m memoryStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m, k)
	}
	return nil
}

func (memoryStore) IdempotencyKey(scope, id string) string { return "test:" + scope + ":" + id }

const (
	checkoutPattern = "/api/v1/orders"
	verifyPattern   = "/api/v1/orders/{orderId}/payments/verify"
	fulfillPattern  = "/api/v1/orders/{orderId}/fulfillment"
	originPattern   = "/api/v1/admin/origin"
)

// call runs one request through the middleware with chi's route pattern set.
func call(h http.Handler, method, pattern, key, body string) *httptest.ResponseRecorder {
	path := strings.NewReplacer("{orderId}", "42").Replace(pattern)
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if key != "" {
		req.Header.Set(idempotencyHeader, key)
	}
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func countingHandler(calls *int, status int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
}

func TestMatchRule(t *testing.T) {
	cases := []struct {
		method, pattern string
		matched         bool
		ttl             time.Duration
		required        bool
	}{
		{http.MethodPost, checkoutPattern, true, moneyTTL, true},
		{http.MethodPost, "/api/v1/orders/{orderId}/payments/intent", true, moneyTTL, true},
		{http.MethodPost, verifyPattern, true, moneyTTL, true},
		{http.MethodPost, fulfillPattern, true, staffActionTTL, false},
		{http.MethodPut, originPattern, true, staffActionTTL, false},
		{http.MethodGet, checkoutPattern, false, 0, false},
		{http.MethodPost, "/api/v1/eligibility/quote", false, 0, false},
		{http.MethodPost, "", false, 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.method+" "+tc.pattern, func(t *testing.T) {
			rule, ok := matchRule(tc.method, tc.pattern)
			require.Equal(t, tc.matched, ok)
			assert.Equal(t, tc.ttl, rule.ttl)
			assert.Equal(t, tc.required, rule.required)
		})
	}
}

func TestIdempotencyKeyRequiredForMoneyRoutes(t *testing.T) {
	var calls int
	h := Idempotency(memoryStore{}, nil)(countingHandler(&calls, http.StatusCreated))

	rec := call(h, http.MethodPost, checkoutPattern, "", `{"items":[]}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, calls)
}

func TestIdempotencyKeyOptionalForStaffRoutes(t *testing.T) {
	var calls int
	store := memoryStore{}
	h := Idempotency(store, nil)(countingHandler(&calls, http.StatusOK))

	call(h, http.MethodPost, fulfillPattern, "", `{}`)
	call(h, http.MethodPost, fulfillPattern, "", `{}`)
	assert.Equal(t, 2, calls)
	assert.Empty(t, store)
}

func TestIdempotencyReplaysFirstSuccess(t *testing.T) {
	var calls int
	h := Idempotency(memoryStore{}, nil)(countingHandler(&calls, http.StatusCreated))

	first := call(h, http.MethodPost, checkoutPattern, "abc", `{"items":[1]}`)
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(replayedHeader))

	again := call(h, http.MethodPost, checkoutPattern, "abc", `{"items":[1]}`)
	assert.Equal(t, http.StatusCreated, again.Code)
	assert.Equal(t, "application/json", again.Header().Get("Content-Type"))
	assert.Equal(t, "true", again.Header().Get(replayedHeader))
	assert.JSONEq(t, `{"ok":true}`, again.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotencyReleasesKeyAfterFailure(t *testing.T) {
	var calls int
	store := memoryStore{}
	h := Idempotency(store, nil)(countingHandler(&calls, http.StatusPaymentRequired))

	call(h, http.MethodPost, verifyPattern, "verify-1", `{"signature":"x"}`)
	call(h, http.MethodPost, verifyPattern, "verify-1", `{"signature":"x"}`)
	assert.Equal(t, 2, calls)
	assert.Empty(t, store)
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	var calls int
	h := Idempotency(memoryStore{}, nil)(countingHandler(&calls, http.StatusOK))

	call(h, http.MethodPut, originPattern, "xyz", `{"lat":1}`)
	rec := call(h, http.MethodPut, originPattern, "xyz", `{"lat":2}`)

	require.Equal(t, http.StatusConflict, rec.Code)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, string(pkgerrors.CodeIdempotency), body.Error.Code)
	assert.Equal(t, 1, calls)
}

func TestIdempotencyRejectsInFlightDuplicate(t *testing.T) {
	var (
		calls int
		dup   *httptest.ResponseRecorder
		h     http.Handler
	)
	mw := Idempotency(memoryStore{}, nil)
	h = mw(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		if calls == 1 {
			dup = call(h, http.MethodPost, checkoutPattern, "race", `{"items":[1]}`)
		}
		w.WriteHeader(http.StatusCreated)
	}))

	rec := call(h, http.MethodPost, checkoutPattern, "race", `{"items":[1]}`)
	assert.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, dup)
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, 1, calls)
}
