// Package scoring folds detector outputs into bounded scores, risk tiers and
// the enhanced verdict.
//
// The two pipelines deliberately use different risk thresholds: 30/60 for the
// base score and 40/70 for the combined enhanced score. Callers depend on both.
package scoring

import (
	"fmt"
	"slices"
	"strings"

	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/detection"
)

const (
	// MaxScore bounds every spam score and confidence
	MaxScore = 100

	// EnhancedConfidenceCap bounds the enhanced confidence before the final clamp
	EnhancedConfidenceCap = 95

	// LocalConfidence is reported for every local result. It describes the
	// reliability of the method, not the certainty of the verdict.
	LocalConfidence = 75

	// SpamConfidenceThreshold is the enhanced confidence above which an email is spam
	SpamConfidenceThreshold = 50

	maxReasoningFactors = 3
)

// Clamp bounds score to [0, MaxScore]
func Clamp(score int) int {
	return max(0, min(score, MaxScore))
}

// BaseRiskLevel maps a base pipeline score to a risk tier
func BaseRiskLevel(score int) core.RiskLevel {
	switch {
	case score >= 60:
		return core.RiskDangerous
	case score >= 30:
		return core.RiskSuspicious
	default:
		return core.RiskSafe
	}
}

// EnhancedRiskLevel maps a combined enhanced score to a risk tier
func EnhancedRiskLevel(score int) core.RiskLevel {
	switch {
	case score >= 70:
		return core.RiskDangerous
	case score >= 40:
		return core.RiskSuspicious
	default:
		return core.RiskSafe
	}
}

// Base is the aggregate of the base detector suite
type Base struct {
	Score      int
	Indicators []core.Indicator
}

// AggregateBase sums base findings in order and clamps the total
func AggregateBase(findings []detection.Finding) Base {
	total := 0
	indicators := make([]core.Indicator, 0)
	for _, f := range findings {
		total += f.Score
		indicators = append(indicators, f.Indicators...)
	}
	return Base{Score: Clamp(total), Indicators: indicators}
}

// Verdict is the outcome of the enhanced pipeline
type Verdict struct {
	IsSpam      bool
	Confidence  int
	Categories  []string
	RiskFactors []string
	Reasoning   string
}

// AggregateEnhanced starts from the base score and adds every enhanced delta
func AggregateEnhanced(baseScore int, assessments []detection.Assessment) Verdict {
	confidence := baseScore
	categories := make([]string, 0)
	riskFactors := make([]string, 0)
	for _, a := range assessments {
		confidence += a.Score
		categories = append(categories, a.Categories...)
		riskFactors = append(riskFactors, a.RiskFactors...)
	}

	confidence = Clamp(max(0, min(confidence, EnhancedConfidenceCap)))
	isSpam := confidence > SpamConfidenceThreshold
	if !isSpam {
		categories = append(categories, detection.CategoryLegitimate)
	}

	return Verdict{
		IsSpam:      isSpam,
		Confidence:  confidence,
		Categories:  categories,
		RiskFactors: riskFactors,
		Reasoning:   Reasoning(isSpam, confidence, riskFactors, categories),
	}
}

// CombinedScore is the score reported by the enhanced pipeline
func CombinedScore(baseScore, confidence int) int {
	return Clamp(max(baseScore, confidence))
}

// Reasoning renders the deterministic explanation of an enhanced verdict
func Reasoning(isSpam bool, confidence int, riskFactors, categories []string) string {
	if !isSpam {
		return fmt.Sprintf("AI analysis indicates legitimate email with %d%% confidence. "+
			"No significant threat patterns detected. "+
			"Content appears to follow normal communication patterns without suspicious indicators.", confidence)
	}

	primary := riskFactors[:min(len(riskFactors), maxReasoningFactors)]
	return fmt.Sprintf("AI analysis detected %d critical risk factors with %d%% confidence. "+
		"Primary concerns: %s. The email exhibits patterns consistent with %s.",
		len(primary), confidence, strings.Join(primary, ", "), dominantFamily(categories))
}

func dominantFamily(categories []string) string {
	switch {
	case slices.Contains(categories, detection.CategoryPhishing):
		return "phishing attacks"
	case slices.Contains(categories, detection.CategorySocialEngineering):
		return "social engineering"
	default:
		return "spam campaigns"
	}
}

// SummarySeverity grades the verdict indicator by confidence
func SummarySeverity(confidence int) core.Severity {
	switch {
	case confidence > 80:
		return core.SeverityHigh
	case confidence > 60:
		return core.SeverityMedium
	default:
		return core.SeverityLow
	}
}

// VerdictIndicators returns the ai_detection indicators appended after the
// base indicators: one summary when spam, then one per risk factor
func VerdictIndicators(v Verdict) []core.Indicator {
	out := make([]core.Indicator, 0, len(v.RiskFactors)+1)
	if v.IsSpam {
		out = append(out, core.Indicator{
			Type:        core.IndicatorAIDetection,
			Severity:    SummarySeverity(v.Confidence),
			Description: "AI-powered threat detection",
			Details:     v.Reasoning,
		})
	}
	for _, factor := range v.RiskFactors {
		out = append(out, core.Indicator{
			Type:        core.IndicatorAIDetection,
			Severity:    core.SeverityMedium,
			Description: "AI Risk Factor",
			Details:     factor,
		})
	}
	return out
}
