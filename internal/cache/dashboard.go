// Package cache keeps serialized dashboard snapshots in Redis so aggregate
// reads do not hit Postgres on every request. Entries expire on a TTL;
// callers fall back to a live computation on a miss. Staleness within the
// TTL is acceptable for these views.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"hiring-pipeline/internal/models"
	"hiring-pipeline/internal/projector"
)

// Dashboard is a typed snapshot cache over a Redis client.
type Dashboard struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDashboard builds the cache. ttl == 0 defaults to one minute.
func NewDashboard(client *redis.Client, ttl time.Duration) *Dashboard {
	if ttl == 0 {
		ttl = time.Minute
	}
	return &Dashboard{client: client, ttl: ttl}
}

func funnelKey() string { return "dashboard:funnel" }

func growthKey(filter *models.Status) string {
	if filter == nil {
		return "dashboard:growth:all"
	}
	return fmt.Sprintf("dashboard:growth:%s", *filter)
}

// GetFunnel returns the cached funnel counts, if present.
func (d *Dashboard) GetFunnel(ctx context.Context) (map[models.Status]int, bool, error) {
	var out map[models.Status]int
	ok, err := d.get(ctx, funnelKey(), &out)
	return out, ok, err
}

// SetFunnel stores funnel counts under the cache TTL.
func (d *Dashboard) SetFunnel(ctx context.Context, counts map[models.Status]int) error {
	return d.set(ctx, funnelKey(), counts)
}

// GetGrowth returns the cached growth summary for the given filter.
func (d *Dashboard) GetGrowth(ctx context.Context, filter *models.Status) (projector.Growth, bool, error) {
	var out projector.Growth
	ok, err := d.get(ctx, growthKey(filter), &out)
	return out, ok, err
}

// SetGrowth stores a growth summary for the given filter.
func (d *Dashboard) SetGrowth(ctx context.Context, filter *models.Status, g projector.Growth) error {
	return d.set(ctx, growthKey(filter), g)
}

func (d *Dashboard) get(ctx context.Context, key string, dest any) (bool, error) {
	raw, err := d.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		// A corrupt snapshot is treated as a miss; the refresher overwrites it.
		return false, nil
	}
	return true, nil
}

func (d *Dashboard) set(ctx context.Context, key string, val any) error {
	raw, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("cache marshal %s: %w", key, err)
	}
	if err := d.client.Set(ctx, key, raw, d.ttl).Err(); err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}
