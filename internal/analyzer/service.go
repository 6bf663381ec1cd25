// Package analyzer runs the detector suites and turns their output into an
// AnalysisResult.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/detection"
	"github.com/mikey/spam-scorer/internal/reputation"
	"github.com/mikey/spam-scorer/internal/scoring"
	"go.uber.org/zap"
)

// ErrUnknownMethod is returned for a method other than local or ai
var ErrUnknownMethod = errors.New("unknown analysis method")

// Service is the analysis orchestrator
type Service struct {
	resolver *reputation.Resolver
	base     []detection.Detector
	enhanced []detection.EnhancedDetector
	logger   *zap.Logger
}

// NewService creates a new analysis service
func NewService(
	resolver *reputation.Resolver,
	base []detection.Detector,
	enhanced []detection.EnhancedDetector,
	logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if resolver == nil {
		resolver = reputation.NewResolver(nil, logger)
	}
	return &Service{
		resolver: resolver,
		base:     base,
		enhanced: enhanced,
		logger:   logger,
	}
}

// ParseMethod converts a user supplied method name. An empty name selects ai.
func ParseMethod(name string) (core.Method, error) {
	switch core.Method(strings.ToLower(strings.TrimSpace(name))) {
	case core.MethodLocal:
		return core.MethodLocal, nil
	case core.MethodAI, "":
		return core.MethodAI, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, name)
	}
}

// Analyze classifies one email. Failures of the enhanced pipeline are never
// returned: the result silently degrades to the local pipeline. An error is
// only returned for an unknown method or when ctx is done.
func (s *Service) Analyze(ctx context.Context, input core.AnalysisInput, method core.Method) (*core.AnalysisResult, error) {
	if method != core.MethodLocal && method != core.MethodAI {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("analysis cancelled: %w", err)
	}

	rep := s.resolver.Resolve(input.Sender)
	in := detection.NewInput(input, rep)
	base := s.runBase(in)

	if method == core.MethodLocal {
		return s.finish(s.localResult(in, base)), nil
	}

	assessments, err := s.runEnhanced(ctx, in)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("analysis cancelled: %w", ctxErr)
		}
		s.logger.Warn("Enhanced analysis failed, falling back to local analysis",
			zap.String("sender_domain", rep.Domain),
			zap.Error(err))
		return s.finish(s.localResult(in, base)), nil
	}

	verdict := scoring.AggregateEnhanced(base.Score, assessments)
	score := scoring.CombinedScore(base.Score, verdict.Confidence)

	indicators := make([]core.Indicator, 0, len(base.Indicators)+len(verdict.RiskFactors)+1)
	indicators = append(indicators, base.Indicators...)
	indicators = append(indicators, scoring.VerdictIndicators(verdict)...)

	return s.finish(&core.AnalysisResult{
		SpamScore:       score,
		RiskLevel:       scoring.EnhancedRiskLevel(score),
		Indicators:      indicators,
		SenderAnalysis:  rep.SenderAnalysis(),
		ContentAnalysis: detection.Profile(in),
		AnalysisMethod:  core.MethodAI,
		Confidence:      verdict.Confidence,
		Reasoning:       verdict.Reasoning,
	}), nil
}

func (s *Service) runBase(in detection.Input) scoring.Base {
	findings := make([]detection.Finding, 0, len(s.base))
	for _, d := range s.base {
		findings = append(findings, d.Detect(in))
	}
	return scoring.AggregateBase(findings)
}

// runEnhanced evaluates every enhanced detector. A panic is reported as an
// error so the caller can fall back.
func (s *Service) runEnhanced(ctx context.Context, in detection.Input) (assessments []detection.Assessment, err error) {
	defer func() {
		if r := recover(); r != nil {
			assessments = nil
			err = fmt.Errorf("enhanced detector panicked: %v", r)
		}
	}()

	assessments = make([]detection.Assessment, 0, len(s.enhanced))
	for _, d := range s.enhanced {
		a, assessErr := d.Assess(ctx, in)
		if assessErr != nil {
			return nil, fmt.Errorf("enhanced detector %q failed: %w", d.Name(), assessErr)
		}
		assessments = append(assessments, a)
	}
	return assessments, nil
}

func (s *Service) localResult(in detection.Input, base scoring.Base) *core.AnalysisResult {
	return &core.AnalysisResult{
		SpamScore:       base.Score,
		RiskLevel:       scoring.BaseRiskLevel(base.Score),
		Indicators:      base.Indicators,
		SenderAnalysis:  in.Reputation.SenderAnalysis(),
		ContentAnalysis: detection.Profile(in),
		AnalysisMethod:  core.MethodLocal,
		Confidence:      scoring.LocalConfidence,
	}
}

func (s *Service) finish(result *core.AnalysisResult) *core.AnalysisResult {
	s.logger.Info("Email analyzed",
		zap.String("sender_domain", result.SenderAnalysis.Domain),
		zap.Int("spam_score", result.SpamScore),
		zap.String("risk_level", string(result.RiskLevel)),
		zap.String("method", string(result.AnalysisMethod)),
		zap.Int("confidence", result.Confidence),
		zap.Int("indicator_count", len(result.Indicators)))
	return result
}
