package grants

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/ledgerdesk/ledgerdesk/internal/authz"
)

const (
	cacheVersionKey = "authz:grants:version"
	cachePrefix     = "authz:grants"
	loadTimeout     = 5 * time.Second
)

// DefaultCacheTTL bounds how long a grant change made outside Service can
// take to reach every process.
const DefaultCacheTTL = 30 * time.Second

// CachedStore answers HasGrant from a per-role grant set cached in Redis.
//
// Consistency: writes made through Service bump the shared version key, so
// every process sees them on its next lookup. Writes that bypass Service
// (manual SQL, migrations) become visible once the cached entry expires,
// i.e. after at most the configured TTL. Each lookup reads one cached set,
// which is one snapshot of the role's grants.
type CachedStore struct {
	backing RoleLoader
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
	group   singleflight.Group
}

// NewCachedStore wraps backing with a Redis cache. A nil client disables caching.
func NewCachedStore(backing RoleLoader, client *redis.Client, ttl time.Duration, logger *slog.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedStore{backing: backing, client: client, ttl: ttl, logger: logger}
}

// TTL reports the staleness bound for writes that bypass the version bump.
func (c *CachedStore) TTL() time.Duration {
	return c.ttl
}

// HasGrant implements authz.GrantChecker.
func (c *CachedStore) HasGrant(ctx context.Context, role authz.Role, resource authz.Resource, action authz.Action) (bool, error) {
	set, err := c.RoleGrants(ctx, role)
	if err != nil {
		return false, err
	}
	return containsGrant(set, resource, action), nil
}

// RoleGrants returns the cached grant set for role, loading it on a miss.
// Redis failures degrade to a direct load; backing store failures are returned.
func (c *CachedStore) RoleGrants(ctx context.Context, role authz.Role) ([]authz.Grant, error) {
	if c.client == nil {
		return c.backing.RoleGrants(ctx, role)
	}
	key, err := c.key(ctx, role)
	if err != nil {
		c.logger.Warn("grant cache version", slog.Any("error", err))
		return c.load(ctx, "", role)
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var cached []authz.Grant
		if err := json.Unmarshal(payload, &cached); err == nil {
			return cached, nil
		}
		c.logger.Warn("grant cache decode", slog.String("key", key), slog.Any("error", err))
	case errors.Is(err, redis.Nil):
	default:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		c.logger.Warn("grant cache get", slog.String("key", key), slog.Any("error", err))
		return c.load(ctx, "", role)
	}
	return c.load(ctx, key, role)
}

// load collapses concurrent loads of the same role. The shared load runs
// detached from any single caller so one cancelled request cannot fail the
// others; each caller still stops waiting when its own context ends.
func (c *CachedStore) load(ctx context.Context, key string, role authz.Role) ([]authz.Grant, error) {
	flightKey := key
	if flightKey == "" {
		flightKey = "direct:" + role.String()
	}
	ch := c.group.DoChan(flightKey, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()
		set, err := c.backing.RoleGrants(loadCtx, role)
		if err != nil {
			return nil, err
		}
		if key != "" {
			c.store(loadCtx, key, set)
		}
		return set, nil
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		set, _ := res.Val.([]authz.Grant)
		out := make([]authz.Grant, len(set))
		copy(out, set)
		return out, nil
	}
}

func (c *CachedStore) store(ctx context.Context, key string, set []authz.Grant) {
	raw, err := json.Marshal(set)
	if err != nil {
		c.logger.Warn("grant cache encode", slog.Any("error", err))
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("grant cache set", slog.String("key", key), slog.Any("error", err))
	}
}

func (c *CachedStore) key(ctx context.Context, role authz.Role) (string, error) {
	ver, err := c.version(ctx)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s:%s:%d", cachePrefix, role.String(), ver), nil
}

func (c *CachedStore) version(ctx context.Context) (int64, error) {
	ver, err := c.client.Get(ctx, cacheVersionKey).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.SetNX(ctx, cacheVersionKey, 1, 0).Err(); err != nil {
			return 0, err
		}
		return c.client.Get(ctx, cacheVersionKey).Int64()
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// Bump invalidates every cached grant set.
func (c *CachedStore) Bump(ctx context.Context) error {
	if c.client == nil {
		return nil
	}
	if err := c.client.Incr(ctx, cacheVersionKey).Err(); err != nil {
		return fmt.Errorf("grants: bump cache: %w", err)
	}
	return nil
}

// Warm loads the grant set of every role into the cache.
func (c *CachedStore) Warm(ctx context.Context) error {
	for _, role := range authz.Roles() {
		if role == authz.RoleOwner {
			continue
		}
		if _, err := c.RoleGrants(ctx, role); err != nil {
			return fmt.Errorf("grants: warm %s: %w", role, err)
		}
	}
	return nil
}
