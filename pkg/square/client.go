package square

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	sq "github.com/square/square-go-sdk"
	sqclient "github.com/square/square-go-sdk/client"
	sqoption "github.com/square/square-go-sdk/option"
	"go.uber.org/multierr"

	"github.com/angelmondragon/droppoint-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/droppoint-backend/pkg/errors"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
)

const (
	sandboxEnv    = "sandbox"
	productionEnv = "production"
)

var (
	errAccessTokenRequired   = errors.New("square access token is required")
	errSigningSecretRequired = errors.New("square signing secret is required")
	errLocationRequired      = errors.New("square location id is required")
	errInvalidSquareEnv      = fmt.Errorf("square environment must be %q or %q", sandboxEnv, productionEnv)
	errLoggerRequired        = errors.New("square logger is required")
)

var baseURLs = map[string]string{
	sandboxEnv:    "https://connect.squareupsandbox.com",
	productionEnv: "https://connect.squareup.com",
}

type orderCreator interface {
	CreateOrder(ctx context.Context, req *sq.CreateOrderRequest) (*sq.CreateOrderResponse, error)
}

type sdkOrders struct {
	client *sqclient.Client
}

func (s sdkOrders) CreateOrder(ctx context.Context, req *sq.CreateOrderRequest) (*sq.CreateOrderResponse, error) {
	return s.client.Orders.Create(ctx, req)
}

// Client opens payable orders on Square for gateway checkouts. Payment
// confirmation never goes through the SDK; callers verify signatures with
// SigningSecret.
type Client struct {
	orders        orderCreator
	signingSecret string
	locationID    string
	currency      string
	logg          *logger.Logger
}

// NewClient reports every missing setting at once.
func NewClient(ctx context.Context, cfg config.SquareConfig, logg *logger.Logger) (*Client, error) {
	env, envErr := normalizeEnv(cfg.Environment())
	token := strings.TrimSpace(cfg.AccessToken)
	secret := strings.TrimSpace(cfg.SigningSecret)
	location := strings.TrimSpace(cfg.LocationID)

	var err error
	if logg == nil {
		err = multierr.Append(err, errLoggerRequired)
	}
	err = multierr.Append(err, envErr)
	if token == "" {
		err = multierr.Append(err, errAccessTokenRequired)
	}
	if secret == "" {
		err = multierr.Append(err, errSigningSecretRequired)
	}
	if location == "" {
		err = multierr.Append(err, errLocationRequired)
	}
	if err != nil {
		return nil, err
	}

	sdk := sqclient.NewClient(
		sqoption.WithBaseURL(baseURLs[env]),
		sqoption.WithToken(token),
		sqoption.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	)
	logg.Info(logg.WithFields(ctx, map[string]any{"square_env": env, "location_id": location}), "square client ready")

	return &Client{
		orders:        sdkOrders{client: sdk},
		signingSecret: secret,
		locationID:    location,
		currency:      strings.ToUpper(strings.TrimSpace(cfg.Currency)),
		logg:          logg,
	}, nil
}

// SigningSecret is the HMAC key for payment confirmation signatures.
func (c *Client) SigningSecret() string {
	if c == nil {
		return ""
	}
	return c.signingSecret
}

// CreateOrderIntent registers the order amount with Square and returns the
// gateway order id the storefront pays against.
func (c *Client) CreateOrderIntent(ctx context.Context, params OrderIntentParams) (string, error) {
	if c == nil || c.orders == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "square client not configured")
	}
	if params.LocationID == "" {
		params.LocationID = c.locationID
	}
	if params.Currency == "" {
		params.Currency = c.currency
	}
	if err := params.validate(); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid order intent")
	}
	if strings.TrimSpace(params.IdempotencyKey) == "" {
		params.IdempotencyKey = newIdempotencyKey("intent")
	}

	ctx = c.withFields(ctx, map[string]any{
		"operation":    "create_order",
		"reference_id": params.ReferenceID,
		"amount_minor": params.AmountMinor,
		"currency":     params.Currency,
	})

	resp, err := c.orders.CreateOrder(ctx, params.toSquareRequest())
	if err != nil {
		mapped := classify(err, "create order")
		c.warn(ctx, "square create order failed", mapped)
		return "", mapped
	}

	gatewayID := ""
	if id := resp.GetOrder().GetID(); id != nil {
		gatewayID = *id
	}
	if gatewayID == "" {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "square create order returned no id")
	}
	if c.logg != nil {
		c.logg.Info(c.logg.WithField(ctx, "gateway_order_id", gatewayID), "square order created")
	}
	return gatewayID, nil
}

func newIdempotencyKey(prefix string) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "dp"
	}
	return prefix + "-" + uuid.NewString()
}

var sensitiveFields = []string{"card", "nonce", "token", "cvv", "cvc", "secret", "email", "phone"}

func redact(key string, value any) any {
	lower := strings.ToLower(key)
	for _, s := range sensitiveFields {
		if strings.Contains(lower, s) {
			return "[REDACTED]"
		}
	}
	return value
}

func (c *Client) withFields(ctx context.Context, fields map[string]any) context.Context {
	if c.logg == nil {
		return ctx
	}
	safe := make(map[string]any, len(fields))
	for k, v := range fields {
		safe[k] = redact(k, v)
	}
	return c.logg.WithFields(ctx, safe)
}

func (c *Client) warn(ctx context.Context, msg string, err error) {
	if c.logg == nil {
		return
	}
	c.logg.Warn(c.logg.WithField(ctx, "error", err.Error()), msg)
}

func normalizeEnv(raw string) (string, error) {
	env := strings.TrimSpace(strings.ToLower(raw))
	if env == "" {
		return sandboxEnv, nil
	}
	if _, ok := baseURLs[env]; !ok {
		return "", errInvalidSquareEnv
	}
	return env, nil
}
