package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/angelmondragon/droppoint-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
)

type (
	userIDKey    struct{}
	roleKey      struct{}
	requestIDKey struct{}
)

func stringValue(ctx context.Context, key any) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

func UserIDFromContext(ctx context.Context) string { return stringValue(ctx, userIDKey{}) }

func RoleFromContext(ctx context.Context) string { return stringValue(ctx, roleKey{}) }

// RequestIDFromContext returns the id assigned by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string { return stringValue(ctx, requestIDKey{}) }

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey{}, userID)
}

func WithRole(ctx context.Context, role enums.ActorRole) context.Context {
	return context.WithValue(ctx, roleKey{}, string(role))
}

// CallerFromContext returns the authenticated user and role seeded by Auth.
// The system role is internal and never accepted from a request.
func CallerFromContext(ctx context.Context) (uuid.UUID, enums.ActorRole, error) {
	raw := UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, "", pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid user id")
	}
	switch role := enums.ActorRole(RoleFromContext(ctx)); {
	case role == enums.ActorRoleSystem, !role.IsValid():
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeForbidden, "role not permitted")
	default:
		return userID, role, nil
	}
}
