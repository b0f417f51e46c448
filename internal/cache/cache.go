// Package cache provides an optional Redis-backed read cache for
// complaints. It is a decorator over the repository reads: every write
// path must invalidate explicitly, the cache never refreshes itself.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/campusvoice/campus-voice/internal/config"
	"github.com/campusvoice/campus-voice/internal/models"
	"github.com/campusvoice/campus-voice/pkg/logger"
)

// ErrMiss is returned when the requested key is not cached.
var ErrMiss = errors.New("cache: key not found")

// Key prefixes for namespacing Redis keys.
const (
	complaintKeyPrefix = "complaint:"
	listKeyPrefix      = "complaints:list:"
)

// ComplaintCache caches single complaints and the full listing.
type ComplaintCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

// New connects to Redis and returns a complaint cache.
func New(cfg *config.RedisConfig, log *logger.Logger) (*ComplaintCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info().Str("addr", cfg.RedisAddr()).Msg("Connected to Redis")

	return &ComplaintCache{
		client: client,
		ttl:    time.Duration(cfg.CacheTTL) * time.Second,
		log:    log,
	}, nil
}

// NewWithClient wraps an existing client (useful for testing with miniredis).
func NewWithClient(client *redis.Client, ttl time.Duration, log *logger.Logger) *ComplaintCache {
	return &ComplaintCache{client: client, ttl: ttl, log: log}
}

// GetComplaint retrieves a cached complaint, ErrMiss when absent.
func (c *ComplaintCache) GetComplaint(ctx context.Context, id string) (*models.Complaint, error) {
	data, err := c.client.Get(ctx, complaintKeyPrefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var complaint models.Complaint
	if err := json.Unmarshal(data, &complaint); err != nil {
		return nil, fmt.Errorf("cache entry for %s is corrupt: %w", id, err)
	}
	return &complaint, nil
}

// SetComplaint caches a complaint under its ID.
func (c *ComplaintCache) SetComplaint(ctx context.Context, complaint *models.Complaint) error {
	data, err := json.Marshal(complaint)
	if err != nil {
		return fmt.Errorf("failed to marshal complaint %s: %w", complaint.ID, err)
	}
	return c.client.Set(ctx, complaintKeyPrefix+complaint.ID, data, c.ttl).Err()
}

// GetList retrieves a cached listing for the given sort order.
func (c *ComplaintCache) GetList(ctx context.Context, sortBy string) ([]models.Complaint, error) {
	data, err := c.client.Get(ctx, listKeyPrefix+sortBy).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("cache get failed: %w", err)
	}

	var complaints []models.Complaint
	if err := json.Unmarshal(data, &complaints); err != nil {
		return nil, fmt.Errorf("cache listing %s is corrupt: %w", sortBy, err)
	}
	return complaints, nil
}

// SetList caches a listing for the given sort order.
func (c *ComplaintCache) SetList(ctx context.Context, sortBy string, complaints []models.Complaint) error {
	data, err := json.Marshal(complaints)
	if err != nil {
		return fmt.Errorf("failed to marshal complaint list: %w", err)
	}
	return c.client.Set(ctx, listKeyPrefix+sortBy, data, c.ttl).Err()
}

// Invalidate drops the cached entries for the given complaints along
// with every cached listing. Called after each successful write.
func (c *ComplaintCache) Invalidate(ctx context.Context, complaintIDs ...string) error {
	keys := make([]string, 0, len(complaintIDs)+2)
	for _, id := range complaintIDs {
		keys = append(keys, complaintKeyPrefix+id)
	}
	keys = append(keys, listKeyPrefix+"date", listKeyPrefix+"points")

	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("cache invalidation failed: %w", err)
	}
	return nil
}

// Close closes the underlying Redis connection.
func (c *ComplaintCache) Close() error {
	return c.client.Close()
}
