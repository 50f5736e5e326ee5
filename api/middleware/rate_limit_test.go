package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

type countingLimiter struct {
	counts map[string]int64
	err    error
}

func (c *countingLimiter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	if c.err != nil {
		return false, 0, c.err
	}
	if c.counts == nil {
		c.counts = map[string]int64{}
	}
	c.counts[scope]++
	return c.counts[scope] <= limit, c.counts[scope], nil
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRateLimitBlocksPerUser(t *testing.T) {
	store := &countingLimiter{}
	policy := NewRateLimitPolicy("quote", time.Minute, 2, 0)
	handler := RateLimit(policy, store, nil)(okHandler())

	codes := []int{}
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/eligibility/quote", nil)
		req = req.WithContext(WithUserID(req.Context(), "user-1"))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		codes = append(codes, resp.Code)
	}
	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("unexpected status sequence %v", codes)
	}
	if store.counts["quote:user:user-1"] != 3 {
		t.Fatalf("unexpected counters %+v", store.counts)
	}
}

func TestRateLimitUsesForwardedIP(t *testing.T) {
	store := &countingLimiter{}
	handler := RateLimit(NewRateLimitPolicy("geo", time.Minute, 0, 1), store, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/geo/reverse", nil)
	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if _, ok := store.counts["geo:ip:203.0.113.7"]; !ok {
		t.Fatalf("expected forwarded ip key, got %+v", store.counts)
	}
}

func TestRateLimitDisabledPolicyPassesThrough(t *testing.T) {
	store := &countingLimiter{err: errors.New("should not be called")}
	handler := RateLimit(NewRateLimitPolicy("off", 0, 5, 5), store, nil)(okHandler())

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pass through, got %d", resp.Code)
	}
}

func TestRateLimitStoreFailure(t *testing.T) {
	store := &countingLimiter{err: errors.New("redis down")}
	handler := RateLimit(NewRateLimitPolicy("quote", time.Minute, 1, 0), store, nil)(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req = req.WithContext(WithUserID(req.Context(), "user-1"))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", resp.Code)
	}
}
