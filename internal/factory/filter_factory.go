package factory

import (
	"fmt"

	"github.com/mikey/spam-scorer/internal/adapters/filter"
	"github.com/mikey/spam-scorer/internal/analyzer"
	"github.com/mikey/spam-scorer/internal/config"
	"github.com/mikey/spam-scorer/internal/ports"
	"go.uber.org/zap"
)

// Filter types accepted by server.filter_type
const (
	FilterPostfix = "postfix"
	FilterHTTP    = "http"
	FilterCLI     = "cli"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg      *config.Config
	logger   *zap.Logger
	analyzer ports.Analyzer
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, analyzer ports.Analyzer) *FilterFactory {
	return &FilterFactory{
		cfg:      cfg,
		logger:   logger,
		analyzer: analyzer,
	}
}

// CreateEmailFilter creates an email filter based on the configuration
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	analysisCfg, err := f.cfg.GetAnalysis()
	if err != nil {
		return nil, fmt.Errorf("invalid analysis configuration: %w", err)
	}
	method, err := analyzer.ParseMethod(analysisCfg.Method)
	if err != nil {
		return nil, fmt.Errorf("invalid analysis.method: %w", err)
	}

	serverCfg, err := f.cfg.GetServer()
	if err != nil {
		return nil, fmt.Errorf("invalid server configuration: %w", err)
	}

	switch serverCfg.FilterType {
	case FilterPostfix:
		return filter.NewPostfixFilter(f.analyzer, f.logger, method, serverCfg), nil
	case FilterHTTP:
		return filter.NewHTTPFilter(f.analyzer, f.logger, method, f.cfg.GetHTTP()), nil
	case FilterCLI:
		format := f.cfg.GetString("cli.format")
		if format == "" {
			format = filter.FormatText
		}
		return filter.NewCliFilter(f.analyzer, f.logger, method, format, f.cfg.GetBool("cli.verbose"))
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", serverCfg.FilterType)
	}
}
