// Package redis connects the overlay store and the closure worker to Redis.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"youthsessions/internal/platform/config"
)

var (
	poolEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "youthsessions_redis_pool_events_total",
		Help: "Redis connection pool events by kind (hit, miss, timeout, stale)",
	}, []string{"event"})
	poolConns = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "youthsessions_redis_pool_conns",
		Help: "Redis pool connections by state (total, idle)",
	}, []string{"state"})
)

// Client is a go-redis client that reports its pool statistics.
type Client struct {
	*redis.Client
	last redis.PoolStats
}

// New connects to cfg.URL and pings it. An empty URL yields a nil client.
func New(ctx context.Context, cfg config.Redis) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health pings Redis.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}

// RecordPoolStats publishes the pool counters accumulated since the last call.
// It is not safe for concurrent use; RunPoolStats is its only caller.
func (c *Client) RecordPoolStats() {
	s := c.PoolStats()

	poolConns.WithLabelValues("total").Set(float64(s.TotalConns))
	poolConns.WithLabelValues("idle").Set(float64(s.IdleConns))

	addDelta("hit", s.Hits, c.last.Hits)
	addDelta("miss", s.Misses, c.last.Misses)
	addDelta("timeout", s.Timeouts, c.last.Timeouts)
	addDelta("stale", s.StaleConns, c.last.StaleConns)

	c.last = *s
}

// addDelta ignores counters that went backwards, which happens after a pool reset.
func addDelta(event string, now, before uint32) {
	if now > before {
		poolEvents.WithLabelValues(event).Add(float64(now - before))
	}
}

// RunPoolStats records pool statistics every interval until ctx is done.
func (c *Client) RunPoolStats(ctx context.Context, clock clockwork.Clock, interval time.Duration) {
	ticker := clock.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			c.RecordPoolStats()
		}
	}
}
