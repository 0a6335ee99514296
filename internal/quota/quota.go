// Package quota enforces a per-identity daily request ceiling backed by Redis.
//
// Counts live under one key per (identity, calendar day) and expire at local
// midnight, so a day rollover starts every identity from zero without any
// cleanup job. The store is treated as a soft dependency: if Redis is
// unreachable the counter fails open and admits the request.
package quota

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rajibrjb/AiResumeParserApi/internal/errors"
)

const keyPrefix = "quota:daily:"

// Decision is the admission verdict for one request.
type Decision struct {
	Allowed   bool      `json:"allowed"`
	Remaining int64     `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
}

// Stats aggregates today's active counters.
type Stats struct {
	Day        string           `json:"day"`
	Identities map[string]int64 `json:"identities"`
	Total      int64            `json:"total"`
}

// Counter tracks daily request counts per caller identity.
type Counter struct {
	client *redis.Client
	logger *errors.Logger
	loc    *time.Location
	now    func() time.Time
}

// NewClient creates a Redis client for the quota store.
func NewClient(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})
}

// NewCounter creates a Counter on top of an existing Redis client. Day
// boundaries are computed in loc; pass nil for the local time zone.
func NewCounter(client *redis.Client, logger *errors.Logger, loc *time.Location) *Counter {
	if loc == nil {
		loc = time.Local
	}
	return &Counter{
		client: client,
		logger: logger,
		loc:    loc,
		now:    time.Now,
	}
}

// Ping verifies the quota store is reachable.
func (c *Counter) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return errors.NewQuotaError(errors.ErrCodeQuotaStore, "quota store unreachable", err)
	}
	return nil
}

// Close releases the underlying Redis connections.
func (c *Counter) Close() error {
	return c.client.Close()
}

// CheckAndIncrement records one request for identity and decides whether it
// fits under max. The commit is a single atomic INCR, so concurrent callers
// on the same identity can never push the allowed count past max. A plain GET
// runs first as a fast reject for identities that are already over the limit,
// keeping denied traffic from advancing the counter.
//
// Any store error fails open: the request is admitted with remaining = max-1
// and the degradation is logged.
func (c *Counter) CheckAndIncrement(ctx context.Context, identity string, max int64) Decision {
	now := c.now().In(c.loc)
	key := c.dayKey(identity, now)
	reset := nextMidnight(now)

	current, err := c.client.Get(ctx, key).Int64()
	if err != nil && err != redis.Nil {
		return c.failOpen(identity, max, reset, err)
	}
	if err == nil && current >= max {
		return Decision{Allowed: false, Remaining: 0, ResetTime: reset}
	}

	pipe := c.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, reset.Sub(now))
	if _, err := pipe.Exec(ctx); err != nil {
		return c.failOpen(identity, max, reset, err)
	}

	count := incr.Val()
	if count > max {
		return Decision{Allowed: false, Remaining: 0, ResetTime: reset}
	}
	return Decision{Allowed: true, Remaining: max - count, ResetTime: reset}
}

func (c *Counter) failOpen(identity string, max int64, reset time.Time, err error) Decision {
	if c.logger != nil {
		c.logger.LogError(
			errors.NewQuotaError(errors.ErrCodeQuotaStore, "quota store error, failing open", err),
			"quota check degraded",
			"identity", identity,
		)
	}
	return Decision{Allowed: true, Remaining: max - 1, ResetTime: reset}
}

// GetCurrentCount returns today's count for identity, or zero when the key is
// absent or the store errors.
func (c *Counter) GetCurrentCount(ctx context.Context, identity string) int64 {
	now := c.now().In(c.loc)
	count, err := c.client.Get(ctx, c.dayKey(identity, now)).Int64()
	if err != nil {
		return 0
	}
	return count
}

// ResetLimit deletes today's counter for identity. Best effort: store errors
// are logged and swallowed.
func (c *Counter) ResetLimit(ctx context.Context, identity string) {
	now := c.now().In(c.loc)
	if err := c.client.Del(ctx, c.dayKey(identity, now)).Err(); err != nil {
		if c.logger != nil {
			c.logger.Warn("quota reset failed", "identity", identity, "error", err.Error())
		}
	}
}

// GetStats enumerates all counters active for the current day. Best effort:
// on store errors it returns whatever was collected so far.
func (c *Counter) GetStats(ctx context.Context) Stats {
	now := c.now().In(c.loc)
	day := now.Format(time.DateOnly)
	stats := Stats{Day: day, Identities: make(map[string]int64)}

	pattern := keyPrefix + "*:" + day
	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		count, err := c.client.Get(ctx, key).Int64()
		if err != nil {
			continue
		}
		identity := strings.TrimSuffix(strings.TrimPrefix(key, keyPrefix), ":"+day)
		stats.Identities[identity] = count
		stats.Total += count
	}
	if err := iter.Err(); err != nil && c.logger != nil {
		c.logger.Warn("quota stats scan failed", "error", err.Error())
	}
	return stats
}

func (c *Counter) dayKey(identity string, now time.Time) string {
	return fmt.Sprintf("%s%s:%s", keyPrefix, identity, now.Format(time.DateOnly))
}

// nextMidnight returns the start of the next calendar day in now's location.
func nextMidnight(now time.Time) time.Time {
	return time.Date(now.Year(), now.Month(), now.Day()+1, 0, 0, 0, 0, now.Location())
}
