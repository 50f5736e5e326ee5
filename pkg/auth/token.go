package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/droppoint-backend/pkg/config"
)

const clockSkew = 30 * time.Second

var signingMethod = jwt.SigningMethodHS256

// Keys verifies HS256 access tokens from one issuer. Production tokens come
// from the identity service; Mint exists for tooling and tests.
type Keys struct {
	secret []byte
	issuer string
	parser *jwt.Parser
	now    func() time.Time
}

func NewKeys(cfg config.JWTConfig) (*Keys, error) {
	var err error
	if strings.TrimSpace(cfg.Secret) == "" {
		err = multierr.Append(err, errors.New("jwt secret is required"))
	}
	if strings.TrimSpace(cfg.Issuer) == "" {
		err = multierr.Append(err, errors.New("jwt issuer is required"))
	}
	if err != nil {
		return nil, err
	}
	k := &Keys{secret: []byte(cfg.Secret), issuer: cfg.Issuer, now: time.Now}
	k.parser = jwt.NewParser(
		jwt.WithValidMethods([]string{signingMethod.Alg()}),
		jwt.WithIssuer(cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(func() time.Time { return k.now() }),
	)
	return k, nil
}

func (k *Keys) Verify(raw string) (*Claims, error) {
	claims := &Claims{}
	if _, err := k.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return k.secret, nil
	}); err != nil {
		return nil, err
	}
	return claims, nil
}

func (k *Keys) Mint(p Principal, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", errors.New("jwt ttl must be positive")
	}
	if err := p.check(); err != nil {
		return "", err
	}
	now := k.now()
	signed, err := jwt.NewWithClaims(signingMethod, Claims{
		Principal: p,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    k.issuer,
			Subject:   p.UserID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
		},
	}).SignedString(k.secret)
	if err != nil {
		return "", fmt.Errorf("signing jwt: %w", err)
	}
	return signed, nil
}
