package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

const bumpChannel = "resource.bump"

// ErrStale is returned when a fetched response was superseded by a newer
// issue for the same key before it resolved.
var ErrStale = errors.New("query: stale response discarded")

// Cache is the redis-backed result cache for paginated resource queries.
// Keys are versioned per resource: bumping a resource after a mutation
// shifts every key under it, which is how listings are invalidated without
// enumerating filter combinations. Concurrent fetches for the same key
// collapse into one upstream request, and a response issued before an
// invalidation of its key is discarded rather than stored.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group

	mu   sync.Mutex
	seqs map[string]uint64
}

// NewCache instantiates the cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl, seqs: make(map[string]uint64)}
}

// Version returns the current cache version for a resource, initialising
// when missing.
func (c *Cache) Version(ctx context.Context, resource string) (int64, error) {
	if c == nil || c.client == nil {
		return 0, nil
	}
	key := versionKey(resource)
	ver, err := c.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		if err := c.client.Set(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

// BuildKey composes the versioned cache key for a resource/params tuple.
// Scope separates entries that must not be shared (one user's view of a
// listing); the version is tracked per resource so one mutation still
// invalidates every scope.
func (c *Cache) BuildKey(ctx context.Context, resource, scope string, p Params) (string, error) {
	name := resource
	if scope != "" {
		name = resource + ":" + scope
	}
	base := Key(name, p)
	if c == nil || c.client == nil {
		return base, nil
	}
	ver, err := c.Version(ctx, resource)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s#v%d", base, ver), nil
}

// FetchJSON loads a cached value or populates it using the loader. Within
// the staleness window exactly one upstream request is issued per unique
// key; concurrent callers share the in-flight result.
func (c *Cache) FetchJSON(ctx context.Context, key string, dest any, loader func(context.Context) (any, error)) error {
	if loader == nil {
		return errors.New("query: loader required")
	}
	if c == nil || c.client == nil {
		value, err := loader(ctx)
		if err != nil {
			return err
		}
		return remarshal(value, dest)
	}

	payload, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		return json.Unmarshal(payload, dest)
	}
	if !errors.Is(err, redis.Nil) {
		return err
	}

	issue := c.currentSeq(key)
	ch := c.group.DoChan(key, func() (any, error) {
		value, err := loader(ctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, err
		}
		if c.currentSeq(key) != issue {
			return nil, ErrStale
		}
		if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			return nil, err
		}
		return json.RawMessage(raw), nil
	})

	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return json.Unmarshal(res.Val.(json.RawMessage), dest)
	}
}

// Invalidate supersedes any in-flight fetch for the key and drops the
// stored entry. A response issued before the invalidation is discarded.
func (c *Cache) Invalidate(ctx context.Context, key string) error {
	if c == nil {
		return nil
	}
	c.advanceSeq(key)
	if c.client == nil {
		return nil
	}
	if err := c.client.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return err
	}
	return nil
}

// Bump invalidates every cached listing for the resource by incrementing
// its version, and publishes the change for interested listeners.
func (c *Cache) Bump(ctx context.Context, resource string) error {
	if c == nil || c.client == nil {
		return nil
	}
	ver, err := c.client.Incr(ctx, versionKey(resource)).Result()
	if err != nil {
		return err
	}
	return c.client.Publish(ctx, bumpChannel, resource+":"+strconv.FormatInt(ver, 10)).Err()
}

// advanceSeq marks every in-flight fetch for the key as superseded.
func (c *Cache) advanceSeq(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seqs[key]++
}

func (c *Cache) currentSeq(key string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.seqs[key]
}

func versionKey(resource string) string {
	return "resource:" + resource + ":version"
}

func remarshal(value, dest any) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}
