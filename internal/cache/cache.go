// Package cache provides the in-run verdict cache. Batches of scanned
// receipts routinely contain byte-identical duplicates; judging each
// distinct (content, rule group) pair once keeps verdicts consistent and
// spares engine calls. Nothing is persisted across runs.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/pvolkov/expaudit/internal/model"
)

// VerdictKey derives a cache key from record content and the rule group it
// is judged against. Rule identity is part of the key: two rules with the
// same wording are still distinct evaluation units and must not share a
// verdict. Record identity deliberately stays out of the key so duplicate
// documents share one verdict.
func VerdictKey(content string, rules []model.PolicyRule) string {
	h := sha256.New()
	h.Write([]byte(content))
	for _, r := range rules {
		fmt.Fprintf(h, "\x00%d:%s", r.ID, r.Text)
	}
	return "expaudit:v1:" + hex.EncodeToString(h.Sum(nil))
}

// VerdictCache holds judged verdicts for the duration of one run, with
// per-entry TTL.
type VerdictCache struct {
	cache *gocache.Cache
}

// NewVerdictCache creates a verdict cache
func NewVerdictCache(defaultTTL, cleanupInterval time.Duration) *VerdictCache {
	return &VerdictCache{cache: gocache.New(defaultTTL, cleanupInterval)}
}

// Get returns a copy of the cached verdicts for a key. Returning a copy
// lets the caller rebind record identity without mutating the cached entry.
func (c *VerdictCache) Get(key string) ([]model.Verdict, bool) {
	val, found := c.cache.Get(key)
	if !found {
		return nil, false
	}
	cached := val.([]model.Verdict)
	out := make([]model.Verdict, len(cached))
	copy(out, cached)
	return out, true
}

// Set stores a copy of the verdicts under a key with the given TTL
func (c *VerdictCache) Set(key string, verdicts []model.Verdict, ttl time.Duration) {
	stored := make([]model.Verdict, len(verdicts))
	copy(stored, verdicts)
	c.cache.Set(key, stored, ttl)
}
