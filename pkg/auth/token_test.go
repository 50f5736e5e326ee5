package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/droppoint-backend/pkg/config"
	"github.com/angelmondragon/droppoint-backend/pkg/enums"
)

func newKeys(t *testing.T, issuer string, now time.Time) *Keys {
	t.Helper()
	k, err := NewKeys(config.JWTConfig{Secret: "secret", Issuer: issuer})
	require.NoError(t, err)
	k.now = func() time.Time { return now }
	return k
}

func TestMintThenVerify(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	keys := newKeys(t, "droppoint", now)
	who := Principal{UserID: uuid.New(), Role: enums.ActorRoleStaff}

	token, err := keys.Mint(who, 30*time.Minute)
	require.NoError(t, err)

	claims, err := keys.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, who, claims.Principal)
	assert.Equal(t, "droppoint", claims.Issuer)
	assert.Equal(t, who.UserID.String(), claims.Subject)
	assert.True(t, claims.ExpiresAt.Equal(now.Add(30*time.Minute)))
}

func TestVerifyRejects(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	keys := newKeys(t, "droppoint", now)
	who := Principal{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	good, err := keys.Mint(who, time.Minute)
	require.NoError(t, err)

	foreign, err := newKeys(t, "someone-else", now).Mint(who, time.Minute)
	require.NoError(t, err)

	stale, err := newKeys(t, "droppoint", now.Add(-time.Hour)).Mint(who, 15*time.Minute)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{Principal: who}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	cases := map[string]struct {
		token string
		is    error
	}{
		"tampered signature": {token: good + "x", is: jwt.ErrTokenSignatureInvalid},
		"wrong issuer":       {token: foreign, is: jwt.ErrTokenInvalidIssuer},
		"expired":            {token: stale, is: jwt.ErrTokenExpired},
		"unsigned":           {token: none, is: jwt.ErrTokenSignatureInvalid},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := keys.Verify(tc.token)
			require.ErrorIs(t, err, tc.is)
		})
	}
}

func TestVerifyToleratesSmallSkew(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	token, err := newKeys(t, "droppoint", now).Mint(Principal{UserID: uuid.New(), Role: enums.ActorRoleAdmin}, time.Minute)
	require.NoError(t, err)

	_, err = newKeys(t, "droppoint", now.Add(time.Minute+10*time.Second)).Verify(token)
	require.NoError(t, err)
}

func TestVerifyRunsPrincipalChecks(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	keys := newKeys(t, "droppoint", now)
	forged, err := jwt.NewWithClaims(signingMethod, Claims{
		Principal: Principal{UserID: uuid.New(), Role: "superuser"},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "droppoint",
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
		},
	}).SignedString(keys.secret)
	require.NoError(t, err)

	_, err = keys.Verify(forged)
	require.ErrorContains(t, err, "invalid actor role")
}

func TestMintRejectsBadInput(t *testing.T) {
	keys := newKeys(t, "droppoint", time.Now())
	_, err := keys.Mint(Principal{UserID: uuid.New()}, time.Minute)
	require.Error(t, err)
	_, err = keys.Mint(Principal{UserID: uuid.New(), Role: enums.ActorRoleCustomer}, 0)
	require.Error(t, err)
}

func TestNewKeysReportsMissingConfig(t *testing.T) {
	_, err := NewKeys(config.JWTConfig{})
	require.ErrorContains(t, err, "secret")
	require.ErrorContains(t, err, "issuer")
}
