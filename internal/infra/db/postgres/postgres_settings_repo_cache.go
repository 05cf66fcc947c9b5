package postgres

import (
	"context"
	"encoding/json"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"viraliza-billing/internal/domain/model"
	"viraliza-billing/internal/domain/ports/repository"
	"viraliza-billing/internal/infra/metrics"
	red "viraliza-billing/internal/infra/redis"
)

var _ repository.AffiliateSettingsRepository = (*settingsRepoCacheDecorator)(nil)

const settingsCacheKey = "affiliate_settings:global"

// settingsRepoCacheDecorator caches the global settings row in Redis. Every
// commission registration reads settings, so this keeps the hot path off the
// database. Writes invalidate.
type settingsRepoCacheDecorator struct {
	inner repository.AffiliateSettingsRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewSettingsRepoCacheDecorator(inner repository.AffiliateSettingsRepository, cache red.RedisClient, ttl time.Duration) repository.AffiliateSettingsRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &settingsRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl}
}

func (d *settingsRepoCacheDecorator) Get(ctx context.Context, tx repository.Tx) (*model.AffiliateSettings, error) {
	// Inside a transaction, read through: the caller wants transactional
	// consistency, not a possibly stale copy.
	if tx != nil {
		return d.inner.Get(ctx, tx)
	}

	val, err := d.cache.Get(ctx, settingsCacheKey)
	if err == nil {
		var s model.AffiliateSettings
		if json.Unmarshal([]byte(val), &s) == nil {
			metrics.IncCacheRequest("settings", "hit")
			return &s, nil
		}
	} else if err != goredis.Nil {
		// Redis being down must not take the commission pipeline with it.
	}

	metrics.IncCacheRequest("settings", "miss")
	s, err := d.inner.Get(ctx, tx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(s); err == nil {
		_ = d.cache.Set(ctx, settingsCacheKey, b, d.ttl)
	}
	return s, nil
}

func (d *settingsRepoCacheDecorator) Update(ctx context.Context, tx repository.Tx, s *model.AffiliateSettings) error {
	_ = d.cache.Del(ctx, settingsCacheKey)
	return d.inner.Update(ctx, tx, s)
}
