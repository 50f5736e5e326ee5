package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/droppoint-backend/pkg/enums"
)

// Principal is who a token speaks for.
type Principal struct {
	UserID uuid.UUID       `json:"user_id"`
	Role   enums.ActorRole `json:"role"`
}

func (p Principal) check() error {
	if p.UserID == uuid.Nil {
		return errors.New("user_id claim is required")
	}
	if !p.Role.IsValid() {
		return fmt.Errorf("invalid actor role %q", p.Role)
	}
	return nil
}

// Claims is the access token body: the principal plus the registered claims.
type Claims struct {
	Principal
	jwt.RegisteredClaims
}

// Validate runs after the parser's own exp/iss checks.
func (c Claims) Validate() error {
	if err := c.check(); err != nil {
		return err
	}
	if c.Subject != "" && c.Subject != c.UserID.String() {
		return errors.New("sub does not match user_id")
	}
	return nil
}
