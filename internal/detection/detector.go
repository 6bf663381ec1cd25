// Package detection contains the independent heuristics that inspect an email.
//
// Base detectors emit indicators and a score delta. Enhanced detectors emit a
// confidence delta plus the risk factors and categories used to explain the
// enhanced verdict. No detector reads another detector's output.
package detection

import (
	"context"
	"strings"

	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/reputation"
)

// Input is the per-call view every detector reads
type Input struct {
	Content    string
	Subject    string
	Sender     string
	Domain     string
	Reputation reputation.Result
}

// NewInput derives the detector input once per analysis call
func NewInput(in core.AnalysisInput, rep reputation.Result) Input {
	return Input{
		Content:    in.Content,
		Subject:    in.Subject,
		Sender:     in.Sender,
		Domain:     rep.Domain,
		Reputation: rep,
	}
}

// AnalysisInput returns the raw strings the input was built from
func (in Input) AnalysisInput() core.AnalysisInput {
	return core.AnalysisInput{Content: in.Content, Subject: in.Subject, Sender: in.Sender}
}

// Finding is the output of a base detector
type Finding struct {
	Score      int
	Indicators []core.Indicator
}

// Detector is a base-pipeline heuristic
type Detector interface {
	// Detect inspects the input and returns nothing when it does not fire
	Detect(in Input) Finding

	// Name returns the human-readable name of the detector
	Name() string
}

// Assessment is the output of an enhanced detector
type Assessment struct {
	Score       int
	Categories  []string
	RiskFactors []string
}

func (a *Assessment) add(score int, category, factor string) {
	a.Score += score
	if category != "" {
		a.Categories = append(a.Categories, category)
	}
	if factor != "" {
		a.RiskFactors = append(a.RiskFactors, factor)
	}
}

// EnhancedDetector is a heuristic that only runs in the enhanced pipeline.
// An error fails the whole enhanced pass.
type EnhancedDetector interface {
	Assess(ctx context.Context, in Input) (Assessment, error)
	Name() string
}

// Categories reported by the enhanced detectors
const (
	CategoryPhishing          = "phishing"
	CategorySocialEngineering = "social_engineering"
	CategoryAdvancedThreat    = "advanced_threat"
	CategoryFearAppeal        = "fear_appeal"
	CategoryRemoteSpam        = "remote_spam"
	CategoryLegitimate        = "legitimate"
)

// BaseSuite returns the base detectors in evaluation order
func BaseSuite() []Detector {
	return []Detector{
		NewKeywordDetector(),
		NewLinkDetector(),
		NewUrgencyDetector(),
		NewSenderDetector(),
		NewGrammarDetector(),
	}
}

// EnhancedSuite returns the enhanced detectors in evaluation order.
// Extra detectors (such as a remote classifier) are appended last.
func EnhancedSuite(extra ...EnhancedDetector) []EnhancedDetector {
	suite := []EnhancedDetector{
		NewPatternDetector(),
		NewSentimentDetector(),
		NewLinguisticDetector(),
		NewDomainRiskDetector(),
	}
	return append(suite, extra...)
}

// matchedWords returns the words found as lower-case substrings of any text
func matchedWords(words []string, texts ...string) []string {
	lowered := make([]string, len(texts))
	for i, t := range texts {
		lowered[i] = strings.ToLower(t)
	}

	matches := make([]string, 0)
	for _, w := range words {
		for _, t := range lowered {
			if strings.Contains(t, w) {
				matches = append(matches, w)
				break
			}
		}
	}
	return matches
}

// countWords counts how many of words appear in the lower-cased text
func countWords(words []string, text string) int {
	return len(matchedWords(words, text))
}
