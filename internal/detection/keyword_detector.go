package detection

import (
	"fmt"
	"strings"

	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/lexicon"
)

const keywordWeight = 15

// KeywordDetector looks for phishing vocabulary in subject and body
type KeywordDetector struct{}

// NewKeywordDetector creates a new phishing keyword detector
func NewKeywordDetector() *KeywordDetector {
	return &KeywordDetector{}
}

// Name returns the detector name
func (d *KeywordDetector) Name() string {
	return "Phishing Keywords"
}

// Detect scores 15 points per matched keyword
func (d *KeywordDetector) Detect(in Input) Finding {
	matches := phishingMatches(in)
	if len(matches) == 0 {
		return Finding{}
	}

	severity := core.SeverityLow
	switch {
	case len(matches) > 3:
		severity = core.SeverityHigh
	case len(matches) > 1:
		severity = core.SeverityMedium
	}

	return Finding{
		Score: keywordWeight * len(matches),
		Indicators: []core.Indicator{{
			Type:        core.IndicatorPhishing,
			Severity:    severity,
			Description: "Phishing keywords detected",
			Details:     fmt.Sprintf("Found suspicious words: %s", strings.Join(matches, ", ")),
		}},
	}
}

func phishingMatches(in Input) []string {
	return matchedWords(lexicon.PhishingKeywords, in.Content, in.Subject)
}
