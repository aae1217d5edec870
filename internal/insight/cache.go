package insight

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// CachedProvider memoises analyses so repeated submissions of the same
// symptom set do not hit the remote API again.
type CachedProvider struct {
	next  Provider
	cache *gocache.Cache
}

// NewCachedProvider wraps next with an in-memory cache. Entries expire after
// ttl; expired entries are swept every ttl as well.
func NewCachedProvider(next Provider, ttl time.Duration) *CachedProvider {
	return &CachedProvider{
		next:  next,
		cache: gocache.New(ttl, ttl),
	}
}

// Name returns the wrapped provider's name
func (c *CachedProvider) Name() string {
	return c.next.Name()
}

// Analyze returns a copy of the cached analysis when one exists, otherwise it
// asks the wrapped provider and caches a copy of a successful answer. Errors
// are never cached.
func (c *CachedProvider) Analyze(ctx context.Context, req Request) (*Analysis, error) {
	key := CacheKey(req)
	if v, found := c.cache.Get(key); found {
		return v.(*Analysis).Clone(), nil
	}

	analysis, err := c.next.Analyze(ctx, req)
	if err != nil {
		return nil, err
	}
	c.cache.SetDefault(key, analysis.Clone())
	return analysis, nil
}

// CacheKey derives a stable key from the request. Symptom order and gender
// casing do not matter.
func CacheKey(req Request) string {
	symptoms := append([]string(nil), req.Symptoms...)
	sort.Strings(symptoms)

	age := ""
	if req.Age != nil {
		age = strconv.Itoa(*req.Age)
	}

	raw := strings.Join(symptoms, "\x00") + "\x01" + age + "\x01" + strings.ToLower(strings.TrimSpace(req.Gender))
	hash := sha256.Sum256([]byte(raw))
	return "insight:v1:" + hex.EncodeToString(hash[:])
}
