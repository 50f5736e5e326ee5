package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/droppoint-backend/pkg/config"
	"github.com/angelmondragon/droppoint-backend/pkg/logger"
)

// Role selects which resources a process depends on. The outbox publisher
// only writes to the orders topic; the feed worker only reads its subscription.
type Role int

const (
	RolePublisher Role = iota + 1
	RoleSubscriber
)

func (r Role) String() string {
	switch r {
	case RolePublisher:
		return "publisher"
	case RoleSubscriber:
		return "subscriber"
	default:
		return "unknown"
	}
}

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errUnknownRole       = errors.New("pubsub role must be publisher or subscriber")
)

// Client owns the Pub/Sub connection for one process role.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
	role      Role
}

// NewClient connects and verifies that the resources the role needs exist.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, role Role, logg *logger.Logger) (*Client, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errProjectIDRequired
	}
	if role != RolePublisher && role != RoleSubscriber {
		return nil, errUnknownRole
	}

	psClient, err := pubsub.NewClient(ctx, projectID, clientOptions(gcp)...)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{client: psClient, projectID: projectID, cfg: cfg, role: role}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}

	if logg != nil {
		ctx = logg.WithFields(ctx, map[string]any{"role": role.String(), "project": projectID})
		logg.Info(ctx, "pubsub client ready")
	}
	return c, nil
}

// clientOptions prefers inline credentials over a key file and falls back to
// application default credentials when neither is set.
func clientOptions(gcp config.GCPConfig) []option.ClientOption {
	if raw := strings.TrimSpace(gcp.CredentialsJSON); raw != "" {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(raw))}
	}
	if path := strings.TrimSpace(gcp.ApplicationCredentials); path != "" {
		return []option.ClientOption{option.WithCredentialsFile(path)}
	}
	return nil
}

// Ping confirms the role's topic or subscription is still reachable.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	switch c.role {
	case RolePublisher:
		name, err := c.resourceName(kindTopic, c.cfg.OrdersTopic)
		if err != nil {
			return err
		}
		_, err = c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: name})
		return describeLookup(kindTopic, name, err)
	case RoleSubscriber:
		name, err := c.resourceName(kindSubscription, c.cfg.NotificationSubscription)
		if err != nil {
			return err
		}
		_, err = c.client.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{Subscription: name})
		return describeLookup(kindSubscription, name, err)
	default:
		return errUnknownRole
	}
}

func describeLookup(kind resourceKind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("%s %q does not exist", kind.singular(), name)
	default:
		return fmt.Errorf("looking up %s %q: %w", kind.singular(), name, err)
	}
}

// OrdersPublisher returns the publisher for order lifecycle events.
func (c *Client) OrdersPublisher() *pubsub.Publisher {
	return c.Publisher(c.cfgOrEmpty().OrdersTopic)
}

// Publisher accepts a topic ID or a full resource name.
func (c *Client) Publisher(topic string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	name, err := c.resourceName(kindTopic, topic)
	if err != nil {
		return nil
	}
	return c.client.Publisher(name)
}

// NotificationSubscription returns the subscriber feeding the notification worker.
func (c *Client) NotificationSubscription() *pubsub.Subscriber {
	return c.Subscription(c.cfgOrEmpty().NotificationSubscription)
}

// Subscription accepts a subscription ID or a full resource name.
func (c *Client) Subscription(sub string) *pubsub.Subscriber {
	if c == nil || c.client == nil {
		return nil
	}
	name, err := c.resourceName(kindSubscription, sub)
	if err != nil {
		return nil
	}
	return c.client.Subscriber(name)
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

func (c *Client) cfgOrEmpty() config.PubSubConfig {
	if c == nil {
		return config.PubSubConfig{}
	}
	return c.cfg
}

type resourceKind string

const (
	kindTopic        resourceKind = "topics"
	kindSubscription resourceKind = "subscriptions"
)

func (k resourceKind) singular() string {
	return strings.TrimSuffix(string(k), "s")
}

// resourceName expands a short ID to projects/<project>/<kind>/<id>. Names
// that are already fully qualified for the same kind pass through.
func (c *Client) resourceName(kind resourceKind, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", fmt.Errorf("%s name is required", kind.singular())
	}
	if strings.HasPrefix(id, "projects/") {
		if !strings.Contains(id, "/"+string(kind)+"/") {
			return "", fmt.Errorf("%q is not a %s resource", id, kind.singular())
		}
		return id, nil
	}
	if c == nil || c.projectID == "" {
		return "", errProjectIDRequired
	}
	return "projects/" + c.projectID + "/" + string(kind) + "/" + id, nil
}
