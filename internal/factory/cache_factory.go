package factory

import (
	"fmt"
	"time"

	"github.com/mikey/spam-scorer/internal/adapters/cache"
	"github.com/mikey/spam-scorer/internal/config"
	"github.com/mikey/spam-scorer/internal/core"
	"go.uber.org/zap"
)

// CacheFactory creates the remote verdict cache based on configuration
type CacheFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewCacheFactory creates a new cache factory
func NewCacheFactory(cfg *config.Config, logger *zap.Logger) *CacheFactory {
	return &CacheFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateVerdictCache creates the verdict cache. It returns nil when caching
// is disabled.
func (f *CacheFactory) CreateVerdictCache() (core.VerdictCache, error) {
	cacheCfg, err := f.cfg.GetCache()
	if err != nil {
		return nil, fmt.Errorf("invalid cache configuration: %w", err)
	}
	if !cacheCfg.Enabled {
		return nil, nil
	}
	return cache.NewMemoryCache(f.logger, cacheCfg.CleanupFrequency), nil
}

// GetCacheTTL returns the configured cache TTL
func (f *CacheFactory) GetCacheTTL() (time.Duration, error) {
	return f.cfg.GetDuration("cache.ttl")
}
