// Package cache memoises computed dashboards in redis
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"opsdash/internal/engine"
	"opsdash/internal/models"
)

// Cache stores dashboards by key.
type Cache interface {
	Get(ctx context.Context, key string) (*models.Dashboard, bool, error)
	Set(ctx context.Context, key string, d *models.Dashboard) error
}

// Key derives a cache key from the dataset and the parts of a selection that
// can change the result: enabled filters with their value, value sets sorted.
func Key(datasetID string, sel engine.Selection) (string, error) {
	canonical := make(map[string]engine.FilterState, len(sel))
	for id, st := range sel {
		if !st.Enabled {
			continue
		}
		c := engine.FilterState{Enabled: true, Range: st.Range}
		if st.Values != nil {
			c.Values = append([]string{}, st.Values...)
			sort.Strings(c.Values)
		}
		canonical[id] = c
	}

	// encoding/json writes map keys sorted, so the encoding is stable
	raw, err := json.Marshal(canonical)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return fmt.Sprintf("%s:%s", datasetID, hex.EncodeToString(sum[:])), nil
}

// Redis is a Cache backed by a redis client.
type Redis struct {
	client    *redis.Client
	keyPrefix string
	ttl       time.Duration
}

// NewRedis creates a redis-backed cache. Entries expire after ttl.
func NewRedis(client *redis.Client, prefix string, ttl time.Duration) *Redis {
	return &Redis{
		client:    client,
		keyPrefix: prefix + ":dashboard:",
		ttl:       ttl,
	}
}

// Get retrieves a cached dashboard; ok is false on a miss.
func (r *Redis) Get(ctx context.Context, key string) (*models.Dashboard, bool, error) {
	data, err := r.client.Get(ctx, r.keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var d models.Dashboard
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, false, err
	}
	return &d, true, nil
}

// Set stores a dashboard.
func (r *Redis) Set(ctx context.Context, key string, d *models.Dashboard) error {
	data, err := json.Marshal(d)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.keyPrefix+key, data, r.ttl).Err()
}
