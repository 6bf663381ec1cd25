package di

import (
	"context"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/spam-scorer/internal/analyzer"
	"github.com/mikey/spam-scorer/internal/config"
	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/detection"
	"github.com/mikey/spam-scorer/internal/factory"
	"github.com/mikey/spam-scorer/internal/logging"
	"github.com/mikey/spam-scorer/internal/ports"
	"github.com/mikey/spam-scorer/internal/reputation"
	"github.com/mikey/spam-scorer/internal/utils"
)

// Remote holds the optional remote classifier and its verdict cache. Either
// may be nil.
type Remote struct {
	Classifier core.RemoteClassifier
	Cache      core.VerdictCache
}

// Close releases the classifier connection and stops the cache sweep
func (r *Remote) Close(logger *zap.Logger) {
	if closer, ok := r.Classifier.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.Error("Failed to close remote classifier", zap.Error(err))
		}
	}
	if stopper, ok := r.Cache.(interface{ Stop() }); ok {
		stopper.Stop()
	}
}

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideEngine(container); err != nil {
		return nil, err
	}

	return container, nil
}

// provideEngine registers everything downstream of *config.Config and
// *zap.Logger: text processor, remote classifier, analyzer and filter
func provideEngine(container *dig.Container) error {
	// Register text processor
	if err := container.Provide(utils.NewTextProcessor); err != nil {
		return err
	}

	// Register factories
	if err := container.Provide(factory.NewClassifierFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewCacheFactory); err != nil {
		return err
	}
	if err := container.Provide(factory.NewFilterFactory); err != nil {
		return err
	}

	// Register remote classifier and cache
	if err := container.Provide(newRemote); err != nil {
		return err
	}

	// Register reputation resolver
	if err := container.Provide(func(cfg *config.Config, logger *zap.Logger) *reputation.Resolver {
		return reputation.NewResolver(cfg.GetWhitelistedDomains(), logger)
	}); err != nil {
		return err
	}

	// Register analysis service
	if err := container.Provide(newAnalyzer); err != nil {
		return err
	}
	if err := container.Provide(func(s *analyzer.Service) ports.Analyzer {
		return s
	}); err != nil {
		return err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return err
	}

	return nil
}

func newRemote(cf *factory.ClassifierFactory, cacheFactory *factory.CacheFactory, logger *zap.Logger) (*Remote, error) {
	classifier, err := cf.CreateClassifier(context.Background())
	if err != nil {
		return nil, err
	}
	if classifier == nil {
		return &Remote{}, nil
	}

	verdictCache, err := cacheFactory.CreateVerdictCache()
	if err != nil {
		return nil, err
	}
	if verdictCache != nil {
		logger.Info("Remote verdict cache enabled")
	}

	return &Remote{Classifier: classifier, Cache: verdictCache}, nil
}

func newAnalyzer(
	cfg *config.Config,
	logger *zap.Logger,
	resolver *reputation.Resolver,
	remote *Remote,
	cacheFactory *factory.CacheFactory,
) (*analyzer.Service, error) {
	var extra []detection.EnhancedDetector
	if remote.Classifier != nil {
		analysisCfg, err := cfg.GetAnalysis()
		if err != nil {
			return nil, err
		}
		ttl, err := cacheFactory.GetCacheTTL()
		if err != nil {
			return nil, err
		}
		extra = append(extra, detection.NewRemoteDetector(
			remote.Classifier,
			remote.Cache,
			ttl,
			analysisCfg.RemoteTimeout,
			logger,
		))
	}

	return analyzer.NewService(resolver, detection.BaseSuite(), detection.EnhancedSuite(extra...), logger), nil
}
