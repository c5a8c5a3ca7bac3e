// Package cache holds the read-view cache contract and the coordinator
// that invalidates it when issues mutate.
package cache

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// Namespace prefixes every cached issue read-view key.
const Namespace = "issues:"

// ListTTL bounds staleness even if an invalidation is missed.
const ListTTL = 5 * time.Minute

// Cache is the best-effort key-value collaborator. Implementations
// must never block the caller's success path on failure.
type Cache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	InvalidateNamespace(ctx context.Context, prefix string) error
}

// Coordinator applies the coarse invalidation policy: any accepted
// issue mutation drops the whole issue read-view namespace rather than
// tracking per-filter combinations. A failed invalidation is logged and
// swallowed; persisted state wins over cache freshness.
type Coordinator struct {
	cache Cache
}

func NewCoordinator(cache Cache) *Coordinator {
	return &Coordinator{cache: cache}
}

func (c *Coordinator) Get(ctx context.Context, key string) (string, bool) {
	value, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Printf("cache get %s failed: %v", key, err)
		return "", false
	}
	return value, ok
}

func (c *Coordinator) Set(ctx context.Context, key string, value string) {
	if err := c.cache.Set(ctx, key, value, ListTTL); err != nil {
		log.Printf("cache set %s failed: %v", key, err)
	}
}

// InvalidateIssueViews drops every cached issue list/analytics view.
func (c *Coordinator) InvalidateIssueViews(ctx context.Context) {
	if err := c.cache.InvalidateNamespace(ctx, Namespace); err != nil {
		log.Printf("cache invalidation failed: %v", err)
	}
}

// ListKey builds the cache key for a scoped, filtered, paginated list
// read. Every parameter that changes the result set participates.
func ListKey(scope string, parts ...string) string {
	return Namespace + "list:" + scope + ":" + strings.Join(parts, ":")
}

// AnalyticsKey builds the cache key for a scoped analytics read.
func AnalyticsKey(scope string) string {
	return fmt.Sprintf("%sanalytics:%s", Namespace, scope)
}
