package redis

import "strings"

const keyNamespace = "dp"

type keyspace string

const (
	spaceIdempotency keyspace = "idempotency"
	spaceRateLimit   keyspace = "rate_limit"
	spaceLock        keyspace = "lock"
)

// key joins dp:<space>:<parts...>, skipping blank parts.
func (s keyspace) key(parts ...string) string {
	var b strings.Builder
	b.WriteString(keyNamespace)
	b.WriteByte(':')
	b.WriteString(string(s))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		b.WriteByte(':')
		b.WriteString(part)
	}
	return b.String()
}

func (c *Client) IdempotencyKey(scope, id string) string {
	return spaceIdempotency.key(scope, id)
}

func (c *Client) RateLimitKey(scope string) string {
	return spaceRateLimit.key(scope)
}

func (c *Client) LockKey(name string) string {
	return spaceLock.key(name)
}
