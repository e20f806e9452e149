package csrf

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisClient is the subset of redis.Cmdable used by RedisBackend.
// *redis.Client, *redis.ClusterClient and redis.UniversalClient satisfy it.
type RedisClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// IdentifierFunc returns the session identifier of a request.
type IdentifierFunc func(r *http.Request) (string, bool)

// RedisOption configures a RedisBackend.
type RedisOption func(*RedisBackend)

// WithRedisTTL sets the expiration of stored tokens. Zero keeps them forever.
func WithRedisTTL(ttl time.Duration) RedisOption {
	return func(b *RedisBackend) {
		b.ttl = ttl
	}
}

// WithIdentifier replaces the default identifier lookup, which reads
// SessionIDFromContext.
func WithIdentifier(fn IdentifierFunc) RedisOption {
	return func(b *RedisBackend) {
		if fn != nil {
			b.identify = fn
		}
	}
}

// RedisBackend keeps tokens in redis under "<name>_<session id>".
type RedisBackend struct {
	client   RedisClient
	name     string
	ttl      time.Duration
	identify IdentifierFunc
}

var _ Backend = (*RedisBackend)(nil)

// NewRedisBackend returns a redis backend using name as key prefix.
func NewRedisBackend(client RedisClient, name string, opts ...RedisOption) *RedisBackend {
	if name == "" {
		name = "csrf_token"
	}
	b := &RedisBackend{
		client: client,
		name:   name,
		identify: func(r *http.Request) (string, bool) {
			return SessionIDFromContext(r.Context())
		},
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewRedisStorage returns a Store persisting tokens in redis. Requests must
// carry a session identifier, see SessionID. Use NewStorage with
// NewRedisBackend to set a TTL or a custom identifier.
func NewRedisStorage(client RedisClient, name string, opts ...StorageOption) (*Store, error) {
	return NewStorage(NewRedisBackend(client, name), opts...)
}

func (b *RedisBackend) valid() bool { return b.client != nil }

// Key returns the redis key holding the token of r.
func (b *RedisBackend) Key(r *http.Request) (string, error) {
	id, ok := b.identify(r)
	if !ok || id == "" {
		return "", ErrMissingIdentifier
	}
	return b.name + "_" + id, nil
}

// Load implements Backend.
func (b *RedisBackend) Load(r *http.Request) (string, error) {
	key, err := b.Key(r)
	if err != nil {
		return "", err
	}
	tok, err := b.client.Get(r.Context(), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", backendError("redis get", err)
	}
	return tok, nil
}

// Store implements Backend.
func (b *RedisBackend) Store(_ http.ResponseWriter, r *http.Request, token string) error {
	key, err := b.Key(r)
	if err != nil {
		return err
	}
	if err := b.client.Set(r.Context(), key, token, b.ttl).Err(); err != nil {
		return backendError("redis set", err)
	}
	return nil
}
