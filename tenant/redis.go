package tenant

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/xraph/grove/kv"
	"github.com/xraph/grove/kv/drivers/redisdriver"
)

// DefaultKeyPrefix is prepended to the realm ID to form the hash key.
const DefaultKeyPrefix = "usersync:realm:"

// compile-time interface check
var _ Provider = (*RedisProvider)(nil)

// RedisProvider reads realm overrides from one Redis hash per realm, keyed
// "<prefix><realmID>", whose fields are configuration keys.
type RedisProvider struct {
	kv     *kv.Store // nil when built from a bare client
	rdb    goredis.UniversalClient
	prefix string
}

// RedisOption configures a RedisProvider.
type RedisOption func(*RedisProvider)

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(p *RedisProvider) { p.prefix = prefix }
}

// NewRedisProvider creates a provider backed by a Grove KV store using the
// Redis driver.
func NewRedisProvider(store *kv.Store, opts ...RedisOption) *RedisProvider {
	return newRedisProvider(store, redisdriver.UnwrapClient(store), opts)
}

// NewRedisProviderFromClient creates a provider on an existing go-redis
// client.
func NewRedisProviderFromClient(rdb goredis.UniversalClient, opts ...RedisOption) *RedisProvider {
	return newRedisProvider(nil, rdb, opts)
}

func newRedisProvider(store *kv.Store, rdb goredis.UniversalClient, opts []RedisOption) *RedisProvider {
	p := &RedisProvider{kv: store, rdb: rdb, prefix: DefaultKeyPrefix}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *RedisProvider) key(realmID string) string {
	return p.prefix + realmID
}

// Overrides implements Provider. A missing hash yields an empty map.
func (p *RedisProvider) Overrides(ctx context.Context, realmID string) (map[string]string, error) {
	m, err := p.rdb.HGetAll(ctx, p.key(realmID)).Result()
	if err != nil {
		return nil, fmt.Errorf("tenant: get overrides for realm %s: %w", realmID, err)
	}
	return m, nil
}

// Set writes overrides for realmID, replacing any existing hash.
func (p *RedisProvider) Set(ctx context.Context, realmID string, overrides map[string]string) error {
	key := p.key(realmID)
	_, err := p.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(overrides) > 0 {
			pipe.HSet(ctx, key, overrides)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("tenant: set overrides for realm %s: %w", realmID, err)
	}
	return nil
}

// Delete removes the overrides for realmID.
func (p *RedisProvider) Delete(ctx context.Context, realmID string) error {
	if err := p.rdb.Del(ctx, p.key(realmID)).Err(); err != nil {
		return fmt.Errorf("tenant: delete overrides for realm %s: %w", realmID, err)
	}
	return nil
}

// Ping checks Redis connectivity.
func (p *RedisProvider) Ping(ctx context.Context) error {
	if p.kv != nil {
		return p.kv.Ping(ctx)
	}
	return p.rdb.Ping(ctx).Err()
}

// Close closes the KV store. A provider built from a bare client leaves
// the client to its owner.
func (p *RedisProvider) Close() error {
	if p.kv == nil {
		return nil
	}
	return p.kv.Close()
}
