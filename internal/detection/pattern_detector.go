package detection

import (
	"context"
	"strings"

	"github.com/mikey/spam-scorer/internal/lexicon"
)

// Confidence added per pattern family. Families are independent and additive.
const (
	phishingPatternScore       = 15
	socialEngineeringScore     = 12
	advancedThreatPatternScore = 20
)

// PatternDetector matches known phishing, social-engineering and threat templates
type PatternDetector struct{}

// NewPatternDetector creates a new advanced pattern detector
func NewPatternDetector() *PatternDetector {
	return &PatternDetector{}
}

// Name returns the detector name
func (d *PatternDetector) Name() string {
	return "Advanced Patterns"
}

// Assess matches every regex family against "subject content"
func (d *PatternDetector) Assess(_ context.Context, in Input) (Assessment, error) {
	fullText := strings.ToLower(in.Subject) + " " + strings.ToLower(in.Content)

	var a Assessment
	if lexicon.MatchAny(lexicon.PhishingPatterns, fullText) {
		a.add(phishingPatternScore, CategoryPhishing, "Advanced phishing patterns detected")
	}
	if lexicon.MatchAny(lexicon.SocialEngineeringPatterns, fullText) {
		a.add(socialEngineeringScore, CategorySocialEngineering, "Social engineering tactics identified")
	}
	if lexicon.MatchAny(lexicon.AdvancedThreatPatterns, fullText) {
		a.add(advancedThreatPatternScore, CategoryAdvancedThreat, "Sophisticated threat indicators found")
	}
	return a, nil
}
