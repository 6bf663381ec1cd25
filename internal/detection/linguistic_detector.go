package detection

import (
	"context"

	"github.com/mikey/spam-scorer/internal/lexicon"
)

const (
	linguisticGrammarScore     = 5
	translationArtifactScore   = 7
	linguisticGrammarThreshold = 2
)

// LinguisticDetector looks for grammar issues and translation artifacts
type LinguisticDetector struct{}

// NewLinguisticDetector creates a new linguistic detector
func NewLinguisticDetector() *LinguisticDetector {
	return &LinguisticDetector{}
}

// Name returns the detector name
func (d *LinguisticDetector) Name() string {
	return "Linguistic Features"
}

// Assess applies a lower grammar threshold than the base detector and
// skips the terminal punctuation check
func (d *LinguisticDetector) Assess(_ context.Context, in Input) (Assessment, error) {
	var a Assessment
	if grammarIssues(in.Content, false) > linguisticGrammarThreshold {
		a.add(linguisticGrammarScore, "", "Suspicious grammar patterns")
	}
	if lexicon.TranslationArtifactMatch.MatchString(in.Content) {
		a.add(translationArtifactScore, "", "Possible machine translation artifacts")
	}
	return a, nil
}
