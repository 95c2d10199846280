// Package cache provides an optional Redis-backed cache for catalog
// reads. Field listings are consulted on every record operation and the
// type list on every dashboard load, while the catalog itself changes
// rarely; caching them takes the hot read path off SQLite entirely.
// Invalidation is a namespace version bump: every structural mutation
// increments one counter, orphaning all previously written keys, which
// then age out through the TTL. With no Redis client every method is a
// no-op and callers fall through to the database.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/datavue/internal/model"
)

// Catalog caches data type and field listings.
type Catalog struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCatalog builds a catalog cache around the given client, which may
// be nil to disable caching.
func NewCatalog(client *redis.Client, ttl time.Duration) *Catalog {
	return &Catalog{client: client, ttl: ttl}
}

const versionKey = "datavue:catalog:ver"

func (c *Catalog) key(ctx context.Context, parts string) string {
	ver, err := c.client.Get(ctx, versionKey).Int64()
	if err != nil {
		ver = 0
	}
	return fmt.Sprintf("datavue:catalog:v%d:%s", ver, parts)
}

// Invalidate orphans every cached catalog entry. Called after any
// structural mutation (type create/delete, field add/remove, enum
// value replacement) and after permission grants and revocations,
// since cached type lists carry a per-user can_edit flag.
func (c *Catalog) Invalidate(ctx context.Context) {
	if c == nil || c.client == nil {
		return
	}
	c.client.Incr(ctx, versionKey)
}

// GetTypes returns the cached type list for a user, if present.
func (c *Catalog) GetTypes(ctx context.Context, userID int64) ([]model.DataType, bool) {
	var types []model.DataType
	if !c.get(ctx, fmt.Sprintf("types:%d", userID), &types) {
		return nil, false
	}
	return types, true
}

// SetTypes caches the type list computed for a user.
func (c *Catalog) SetTypes(ctx context.Context, userID int64, types []model.DataType) {
	c.set(ctx, fmt.Sprintf("types:%d", userID), types)
}

// GetFields returns the cached field list of a type, if present.
func (c *Catalog) GetFields(ctx context.Context, typeID int64) ([]model.DataField, bool) {
	var fields []model.DataField
	if !c.get(ctx, fmt.Sprintf("fields:%d", typeID), &fields) {
		return nil, false
	}
	return fields, true
}

// SetFields caches the field list of a type.
func (c *Catalog) SetFields(ctx context.Context, typeID int64, fields []model.DataField) {
	c.set(ctx, fmt.Sprintf("fields:%d", typeID), fields)
}

func (c *Catalog) get(ctx context.Context, parts string, dest any) bool {
	if c == nil || c.client == nil {
		return false
	}
	raw, err := c.client.Get(ctx, c.key(ctx, parts)).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (c *Catalog) set(ctx context.Context, parts string, v any) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.key(ctx, parts), raw, c.ttl)
}
