package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/droppoint-backend/pkg/auth"
	"github.com/angelmondragon/droppoint-backend/pkg/config"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer"}

func tokenFor(t *testing.T, userID uuid.UUID, role enums.ActorRole) string {
	t.Helper()
	keys, err := auth.NewKeys(testJWT)
	require.NoError(t, err)
	token, err := keys.Mint(auth.Principal{UserID: userID, Role: role}, time.Hour)
	require.NoError(t, err)
	return token
}

func TestAuthCredentials(t *testing.T) {
	valid := tokenFor(t, uuid.New(), enums.ActorRoleCustomer)
	cases := []struct {
		name   string
		method string
		target string
		header string
		want   int
	}{
		{"no credentials", http.MethodGet, "/", "", http.StatusUnauthorized},
		{"garbage bearer", http.MethodGet, "/", "Bearer invalid", http.StatusUnauthorized},
		{"bearer", http.MethodGet, "/", "Bearer " + valid, http.StatusOK},
		{"lowercase scheme", http.MethodGet, "/", "bearer " + valid, http.StatusOK},
		{"query token on stream", http.MethodGet, "/api/v1/orders/stream?access_token=" + valid, "", http.StatusOK},
		{"query token on write", http.MethodPost, "/api/v1/orders?access_token=" + valid, "", http.StatusUnauthorized},
	}
	handler := Auth(testJWT, nil)(okHandler())
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(tc.method, tc.target, nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestAuthSeedsCaller(t *testing.T) {
	userID := uuid.New()
	var (
		gotUser uuid.UUID
		gotRole enums.ActorRole
	)
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error
		gotUser, gotRole, err = CallerFromContext(r.Context())
		assert.NoError(t, err)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+tokenFor(t, userID, enums.ActorRoleStaff))
	handler.ServeHTTP(httptest.NewRecorder(), req)

	assert.Equal(t, userID, gotUser)
	assert.Equal(t, enums.ActorRoleStaff, gotRole)
}

func TestAuthFailsClosedWithoutSecret(t *testing.T) {
	handler := Auth(config.JWTConfig{}, nil)(okHandler())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRequireRole(t *testing.T) {
	handler := RequireRole(nil, enums.ActorRoleStaff, enums.ActorRoleAdmin)(okHandler())
	for role, want := range map[enums.ActorRole]int{
		enums.ActorRoleAdmin:    http.StatusOK,
		enums.ActorRoleStaff:    http.StatusOK,
		enums.ActorRoleCustomer: http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req.WithContext(WithRole(req.Context(), role)))
		assert.Equal(t, want, rec.Code, role)
	}
}

func TestCallerFromContextRejectsSystemRole(t *testing.T) {
	ctx := WithUserID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), uuid.NewString())
	_, _, err := CallerFromContext(WithRole(ctx, enums.ActorRoleSystem))
	assert.Error(t, err, "system role must not come from a token")
}
