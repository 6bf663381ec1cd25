package factory

import (
	"context"
	"fmt"

	"github.com/mikey/spam-scorer/internal/adapters/bedrock"
	"github.com/mikey/spam-scorer/internal/adapters/gemini"
	"github.com/mikey/spam-scorer/internal/adapters/openai"
	"github.com/mikey/spam-scorer/internal/config"
	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/utils"
	"go.uber.org/zap"
)

// ClassifierFactory creates remote classifiers
type ClassifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates the configured remote classifier. It returns nil
// without error when the provider is "none".
func (f *ClassifierFactory) CreateClassifier(ctx context.Context) (core.RemoteClassifier, error) {
	remoteCfg, err := f.cfg.GetRemote()
	if err != nil {
		return nil, err
	}

	switch remoteCfg.Provider {
	case config.ProviderNone:
		f.logger.Info("No remote classifier configured, using local detectors only")
		return nil, nil
	case config.ProviderBedrock:
		client, err := bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create bedrock classifier: %w", err)
		}
		return client, nil
	case config.ProviderGemini:
		client, err := gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create gemini classifier: %w", err)
		}
		return client, nil
	case config.ProviderOpenAI:
		client, err := openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
		if err != nil {
			return nil, fmt.Errorf("failed to create openai classifier: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unsupported remote provider: %s", remoteCfg.Provider)
	}
}
