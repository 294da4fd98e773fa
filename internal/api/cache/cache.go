// Package cache provides a Redis-backed cache for ranked search results,
// with singleflight collapsing of concurrent identical queries. Any mutation
// of the engine invalidates the whole cache; correctness beats hit rate for
// an index this small.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/RKGekk/searchserver/internal/engine"
	"github.com/RKGekk/searchserver/internal/tokenizer"
	"github.com/RKGekk/searchserver/pkg/config"
	pkgredis "github.com/RKGekk/searchserver/pkg/redis"
)

const keyPrefix = "search:"

// Result is the cacheable outcome of one search request. ZeroResult
// reports whether the full result set was empty, before pagination; a
// valid page past the end of a non-empty set is not a zero result.
type Result struct {
	Query      string            `json:"query"`
	Status     string            `json:"status"`
	Page       int               `json:"page"`
	PageCount  int               `json:"page_count"`
	ZeroResult bool              `json:"zero_result"`
	Documents  []engine.Document `json:"documents"`
}

// QueryCache caches search results in Redis.
type QueryCache struct {
	client *pkgredis.Client
	cfg    config.RedisConfig
	group  singleflight.Group
	logger *slog.Logger
	hits   atomic.Int64
	misses atomic.Int64
}

func New(client *pkgredis.Client, cfg config.RedisConfig) *QueryCache {
	return &QueryCache{
		client: client,
		cfg:    cfg,
		logger: slog.Default().With("component", "query-cache"),
	}
}

// GetOrCompute returns the cached result for (query, status, page) or runs
// computeFn, caching its result. The second return value reports a cache
// hit.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	query, status string,
	page int,
	computeFn func() (*Result, error),
) (*Result, bool, error) {
	key := c.buildKey(query, status, page)
	if result, ok := c.get(ctx, key); ok {
		return result, true, nil
	}
	val, err, _ := c.group.Do(key, func() (interface{}, error) {
		if result, ok := c.get(ctx, key); ok {
			return result, nil
		}
		result, err := computeFn()
		if err != nil {
			return nil, err
		}
		c.set(ctx, key, result)
		return result, nil
	})
	if err != nil {
		return nil, false, err
	}
	return val.(*Result), false, nil
}

// Invalidate drops every cached search result. Called after any engine
// mutation.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.client.FlushByPattern(ctx, keyPrefix+"*")
	if err != nil {
		return fmt.Errorf("invalidating query cache: %w", err)
	}
	c.logger.Info("query cache invalidated", "keys_deleted", deleted)
	return nil
}

// Stats returns lifetime hit and miss counts.
func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) get(ctx context.Context, key string) (*Result, bool) {
	data, err := c.client.Get(ctx, key)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.misses.Add(1)
		return nil, false
	}
	var result Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.misses.Add(1)
		return nil, false
	}
	c.hits.Add(1)
	return &result, true
}

func (c *QueryCache) set(ctx context.Context, key string, result *Result) {
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, data, c.cfg.CacheTTL); err != nil {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// buildKey hashes the normalized query plus the filter parameters. The
// query is split with the engine's own tokenizer so two queries share a
// key only when the engine sees the same words: splitting on Unicode
// whitespace instead would fold a query containing a non-breaking space
// into its ASCII-space twin, which the engine treats as a different
// query. Word order within the query is irrelevant to the
// engine, so words are sorted; case is preserved because
// the engine is case-sensitive.
func (c *QueryCache) buildKey(query, status string, page int) string {
	words := tokenizer.SplitIntoWords(query)
	sort.Strings(words)
	raw := fmt.Sprintf("%s|status=%s|page=%d", strings.Join(words, "\x00"), status, page)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}
