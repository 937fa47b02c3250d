package featureflags

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/yourorg/flowhub/pkg/cache"
)

// Provider resolves the feature flags visible to one user. Implementations
// must honor ctx cancellation: callers bound lookups with a deadline.
type Provider interface {
	FlagsFor(ctx context.Context, userID string) (map[string]bool, error)
}

// Enabled returns true if a flag is enabled via environment variable.
// Flags are read from env as FLAG_<NAME>=true/1/yes (case-insensitive),
// with dashes in the flag name mapped to underscores.
func Enabled(name string) bool {
	key := "FLAG_" + strings.ReplaceAll(strings.ToUpper(name), "-", "_")
	v := os.Getenv(key)
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

// EnvProvider serves the same flags to every user, read from environment
// variables. The instance-wide default when no flag service is wired.
type EnvProvider struct {
	// Known is the set of flag names this instance understands
	Known []string
}

// FlagsFor returns the env-configured state of every known flag
func (p *EnvProvider) FlagsFor(ctx context.Context, _ string) (map[string]bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	flags := make(map[string]bool, len(p.Known))
	for _, name := range p.Known {
		flags[name] = Enabled(name)
	}
	return flags, nil
}

// CachedProvider memoizes per-user flag lookups for a short TTL, sparing
// the backing provider on hot read paths like user listings.
type CachedProvider struct {
	inner Provider
	cache *cache.Cache
	ttl   time.Duration
}

// NewCachedProvider wraps a provider with a TTL cache
func NewCachedProvider(inner Provider, ttl time.Duration) *CachedProvider {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &CachedProvider{inner: inner, cache: cache.New(), ttl: ttl}
}

// FlagsFor returns cached flags when fresh, otherwise asks the inner provider
func (p *CachedProvider) FlagsFor(ctx context.Context, userID string) (map[string]bool, error) {
	key := "flags:" + userID
	if v, ok := p.cache.Get(key); ok {
		if flags, ok := v.(map[string]bool); ok {
			return flags, nil
		}
	}

	flags, err := p.inner.FlagsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.cache.Set(key, flags, p.ttl)
	return flags, nil
}
