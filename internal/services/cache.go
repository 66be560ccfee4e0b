package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"alfredoptarigan/resume-screening/internal/logger"
	"alfredoptarigan/resume-screening/internal/metrics"
	"alfredoptarigan/resume-screening/internal/models"
)

// AnalyticsCache holds computed metrics per screening job. Cache errors never fail a request.
type AnalyticsCache interface {
	Get(ctx context.Context, jobID uuid.UUID) (*models.ScreeningMetrics, bool)
	Set(ctx context.Context, m *models.ScreeningMetrics)
	Invalidate(ctx context.Context, jobID uuid.UUID)
}

type redisAnalyticsCache struct {
	client *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

func NewRedisAnalyticsCache(client *redis.Client, ttl time.Duration, log logger.Logger) AnalyticsCache {
	return &redisAnalyticsCache{client: client, ttl: ttl, log: log}
}

// NewRedisClient connects and pings the analytics cache server.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

func analyticsKey(jobID uuid.UUID) string {
	return "screening:analytics:" + jobID.String()
}

func (c *redisAnalyticsCache) Get(ctx context.Context, jobID uuid.UUID) (*models.ScreeningMetrics, bool) {
	data, err := c.client.Get(ctx, analyticsKey(jobID)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn("⚠️ Analytics cache read failed", map[string]interface{}{"error": err})
		}
		metrics.AnalyticsCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}

	var m models.ScreeningMetrics
	if err := json.Unmarshal(data, &m); err != nil {
		metrics.AnalyticsCacheLookups.WithLabelValues("miss").Inc()
		return nil, false
	}
	metrics.AnalyticsCacheLookups.WithLabelValues("hit").Inc()
	return &m, true
}

func (c *redisAnalyticsCache) Set(ctx context.Context, m *models.ScreeningMetrics) {
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, analyticsKey(m.ScreeningJobID), data, c.ttl).Err(); err != nil {
		c.log.Warn("⚠️ Analytics cache write failed", map[string]interface{}{"error": err})
	}
}

func (c *redisAnalyticsCache) Invalidate(ctx context.Context, jobID uuid.UUID) {
	if err := c.client.Del(ctx, analyticsKey(jobID)).Err(); err != nil {
		c.log.Warn("⚠️ Analytics cache invalidation failed", map[string]interface{}{"error": err})
	}
}

type noopAnalyticsCache struct{}

// NewNoopAnalyticsCache is used when Redis is not configured.
func NewNoopAnalyticsCache() AnalyticsCache {
	return noopAnalyticsCache{}
}

func (noopAnalyticsCache) Get(context.Context, uuid.UUID) (*models.ScreeningMetrics, bool) {
	return nil, false
}

func (noopAnalyticsCache) Set(context.Context, *models.ScreeningMetrics) {}

func (noopAnalyticsCache) Invalidate(context.Context, uuid.UUID) {}
