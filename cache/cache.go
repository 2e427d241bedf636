// Package cache implements the fingerprint-keyed pattern cache spec.md
// §4.9 describes: a size-bounded, TTL-expiring map from a normalized
// source fingerprint to a CacheEntry. It shards the keyspace across
// independently RWMutex-guarded buckets the way the teacher's
// DualPoolGormDB isolates read/write contention, generalized here from a
// two-pool split to an N-way shard split since every cache operation
// touches exactly one key.
package cache

import (
	"crypto/sha256"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/flanksource/commons/logger"
)

const shardCount = 16

// CacheEntry is one learned translation pattern.
type CacheEntry struct {
	Fingerprint  string
	KqlTemplate  string
	Complexity   string
	HitCount     int64
	SuccessCount int64
	FailureCount int64
	CreatedAt    time.Time
	LastAccess   time.Time
}

func (e *CacheEntry) successRate() float64 {
	total := e.SuccessCount + e.FailureCount
	if total == 0 {
		return 1
	}
	return float64(e.SuccessCount) / float64(total)
}

type shard struct {
	mu      sync.RWMutex
	entries map[string]*CacheEntry
}

// Store is the persistence contract a Cache may use to survive process
// restarts, implemented by a GORM/SQLite-backed store.
type Store interface {
	Load() ([]*CacheEntry, error)
	Upsert(e *CacheEntry) error
}

// Cache is the size-bounded, TTL-expiring, sharded pattern cache.
type Cache struct {
	shards   [shardCount]*shard
	capacity int
	ttl      time.Duration
	store    Store

	hits   int64
	misses int64
}

// New creates an in-memory Cache with entries expiring ttl after creation
// (ttl <= 0 disables expiry). Each of the 16 shards holds at most
// capacity/16 entries (integer division), so a shard can evict while
// others still have room; a capacity below 16 means nothing is evicted.
func New(capacity int, ttl time.Duration) *Cache {
	c := &Cache{capacity: capacity, ttl: ttl}
	for i := range c.shards {
		c.shards[i] = &shard{entries: make(map[string]*CacheEntry)}
	}
	return c
}

// WithStore attaches a persistent Store and preloads its entries into the
// appropriate shards.
func (c *Cache) WithStore(s Store) (*Cache, error) {
	entries, err := s.Load()
	if err != nil {
		return c, err
	}
	for _, e := range entries {
		sh := c.shardFor(e.Fingerprint)
		sh.mu.Lock()
		sh.entries[e.Fingerprint] = e
		sh.mu.Unlock()
	}
	c.store = s
	logger.Debugf("cache: preloaded %d entries from store", len(entries))
	return c, nil
}

// Clear empties every shard and zeros the hit/miss counters, discarding
// all learned patterns along with it.
func (c *Cache) Clear() {
	for _, sh := range c.shards {
		sh.mu.Lock()
		sh.entries = make(map[string]*CacheEntry)
		sh.mu.Unlock()
	}
	atomic.StoreInt64(&c.hits, 0)
	atomic.StoreInt64(&c.misses, 0)
}

func (c *Cache) shardFor(fingerprint string) *shard {
	h := sha256.Sum256([]byte(fingerprint))
	return c.shards[int(h[0])%shardCount]
}

// Fingerprint normalizes a raw query source into a cache key: lowercased
// and whitespace-collapsed, with string literals preserved verbatim
// (quoted text is copied through unchanged) since two queries differing
// only in a literal value are not interchangeable translations.
func Fingerprint(source string) string {
	var b strings.Builder
	var quote byte
	inString := false
	lastWasSpace := true
	for i := 0; i < len(source); i++ {
		ch := source[i]
		if inString {
			b.WriteByte(ch)
			if ch == quote {
				inString = false
			}
			continue
		}
		switch {
		case ch == '\'' || ch == '"':
			inString, quote = true, ch
			b.WriteByte(ch)
			lastWasSpace = false
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			if !lastWasSpace {
				b.WriteByte(' ')
			}
			lastWasSpace = true
		default:
			lastWasSpace = false
			if ch >= 'A' && ch <= 'Z' {
				ch = ch - 'A' + 'a'
			}
			b.WriteByte(ch)
		}
	}
	return strings.TrimSpace(b.String())
}

// Get looks up fingerprint. A hit increments HitCount and the aggregate
// hit counter and refreshes LastAccess; a miss (absent or TTL-expired)
// increments the aggregate miss counter, evicting the expired entry.
func (c *Cache) Get(fingerprint string) (*CacheEntry, bool) {
	sh := c.shardFor(fingerprint)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	e, ok := sh.entries[fingerprint]
	if !ok {
		atomic.AddInt64(&c.misses, 1)
		return nil, false
	}
	if c.ttl > 0 && time.Since(e.CreatedAt) > c.ttl {
		delete(sh.entries, fingerprint)
		atomic.AddInt64(&c.misses, 1)
		logger.Debugf("cache: entry %s expired after %s", fingerprint, c.ttl)
		return nil, false
	}
	e.HitCount++
	e.LastAccess = time.Now()
	atomic.AddInt64(&c.hits, 1)
	return e, true
}

// Put inserts or refreshes the entry for fingerprint. If the owning
// shard's share of capacity is exceeded, Put evicts the least-recently
// accessed entry in that shard, tiebreaking on lowest success rate.
func (c *Cache) Put(fingerprint, kqlTemplate, complexity string) {
	sh := c.shardFor(fingerprint)
	sh.mu.Lock()
	defer sh.mu.Unlock()

	now := time.Now()
	if existing, ok := sh.entries[fingerprint]; ok {
		existing.KqlTemplate = kqlTemplate
		existing.Complexity = complexity
		existing.LastAccess = now
		c.persist(existing)
		return
	}

	entry := &CacheEntry{
		Fingerprint: fingerprint,
		KqlTemplate: kqlTemplate,
		Complexity:  complexity,
		CreatedAt:   now,
		LastAccess:  now,
	}
	perShardCap := c.capacity / shardCount
	if perShardCap > 0 && len(sh.entries) >= perShardCap {
		evictOne(sh)
	}
	sh.entries[fingerprint] = entry
	c.persist(entry)
}

func (c *Cache) persist(e *CacheEntry) {
	if c.store == nil {
		return
	}
	if err := c.store.Upsert(e); err != nil {
		logger.Warnf("cache: failed to persist entry %s: %v", e.Fingerprint, err)
	}
}

// evictOne removes the least-recently-accessed entry in sh, tiebreaking
// on lowest success rate. Caller must hold sh.mu.
func evictOne(sh *shard) {
	var victim string
	var victimEntry *CacheEntry
	for k, e := range sh.entries {
		if victimEntry == nil ||
			e.LastAccess.Before(victimEntry.LastAccess) ||
			(e.LastAccess.Equal(victimEntry.LastAccess) && e.successRate() < victimEntry.successRate()) {
			victim, victimEntry = k, e
		}
	}
	if victim != "" {
		delete(sh.entries, victim)
	}
}

// RecordSuccess increments fingerprint's success counter, if present.
func (c *Cache) RecordSuccess(fingerprint string) {
	sh := c.shardFor(fingerprint)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.entries[fingerprint]; ok {
		e.SuccessCount++
	}
}

// RecordFailure increments fingerprint's failure counter, if present.
func (c *Cache) RecordFailure(fingerprint string) {
	sh := c.shardFor(fingerprint)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if e, ok := sh.entries[fingerprint]; ok {
		e.FailureCount++
	}
}

// Stats is a point-in-time snapshot of cache-wide counters.
type Stats struct {
	Hits    int64
	Misses  int64
	HitRate float64
	Size    int
}

// Stats returns the current hit/miss counters and total entry count.
// Reads are snapshot-consistent per shard, not globally atomic, matching
// spec.md §5's "snapshot reads are allowed to be slightly stale".
func (c *Cache) Stats() Stats {
	hits := atomic.LoadInt64(&c.hits)
	misses := atomic.LoadInt64(&c.misses)
	size := 0
	for _, sh := range c.shards {
		sh.mu.RLock()
		size += len(sh.entries)
		sh.mu.RUnlock()
	}
	var rate float64
	if total := hits + misses; total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{Hits: hits, Misses: misses, HitRate: rate, Size: size}
}

// GetPatterns returns every currently cached entry, in no particular
// order.
func (c *Cache) GetPatterns() []*CacheEntry {
	var out []*CacheEntry
	for _, sh := range c.shards {
		sh.mu.RLock()
		for _, e := range sh.entries {
			out = append(out, e)
		}
		sh.mu.RUnlock()
	}
	return out
}

// GetTopPatterns returns the n most-hit entries, descending by HitCount.
func (c *Cache) GetTopPatterns(n int) []*CacheEntry {
	all := c.GetPatterns()
	sort.Slice(all, func(i, j int) bool { return all[i].HitCount > all[j].HitCount })
	if n < len(all) {
		all = all[:n]
	}
	return all
}
