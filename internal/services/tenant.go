package services

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/models"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/storage"
	"github.com/mendozaxmenos-create/milo-bookings-sub000/internal/utils"
)

// A bare tenant slug: lowercase letters, digits, hyphens, nothing else.
var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// TenantDirectory resolves tenant slugs to tenant configuration, with a
// short-TTL redis cache in front of the store. The cache is non-authoritative:
// tenant writes go through Invalidate.
type TenantDirectory struct {
	store storage.Store
	cache *redis.Client // nil disables caching
	ttl   time.Duration
}

// NewTenantDirectory creates a directory over the store. cache may be nil.
func NewTenantDirectory(store storage.Store, cache *redis.Client, ttl time.Duration) *TenantDirectory {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &TenantDirectory{store: store, cache: cache, ttl: ttl}
}

// SlugCandidate reports whether the message text, trimmed and lowercased, is
// shaped like a bare tenant slug, and returns the normalized slug.
func (d *TenantDirectory) SlugCandidate(text string) (string, bool) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" || !slugPattern.MatchString(s) {
		return "", false
	}
	return s, true
}

// Resolve returns the tenant for a slug, or storage.ErrNotFound.
func (d *TenantDirectory) Resolve(ctx context.Context, slug string) (*models.Tenant, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))

	if d.cache != nil {
		if raw, err := d.cache.Get(ctx, tenantCacheKey(slug)).Result(); err == nil {
			var t models.Tenant
			if err := json.Unmarshal([]byte(raw), &t); err == nil {
				return &t, nil
			}
		}
	}

	t, err := d.store.GetTenantBySlug(slug)
	if err != nil {
		return nil, err
	}

	if d.cache != nil {
		if buf, err := json.Marshal(t); err == nil {
			if err := d.cache.Set(ctx, tenantCacheKey(slug), buf, d.ttl).Err(); err != nil {
				utils.GetLogger().Warn("tenant cache write failed",
					zap.String("slug", slug), zap.Error(err))
			}
		}
	}
	return t, nil
}

// Invalidate drops a slug from the cache. Call after any tenant write.
func (d *TenantDirectory) Invalidate(ctx context.Context, slug string) {
	if d.cache == nil {
		return
	}
	if err := d.cache.Del(ctx, tenantCacheKey(strings.ToLower(slug))).Err(); err != nil {
		utils.GetLogger().Warn("tenant cache invalidation failed",
			zap.String("slug", slug), zap.Error(err))
	}
}

func tenantCacheKey(slug string) string {
	return "tenant:" + slug
}
