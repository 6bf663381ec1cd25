package detection

import (
	"fmt"
	"strings"

	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/lexicon"
)

const (
	grammarScore     = 10
	grammarThreshold = 3
)

// GrammarDetector flags sloppy writing
type GrammarDetector struct{}

// NewGrammarDetector creates a new grammar detector
func NewGrammarDetector() *GrammarDetector {
	return &GrammarDetector{}
}

// Name returns the detector name
func (d *GrammarDetector) Name() string {
	return "Grammar and Spelling"
}

// Detect fires when more than three heuristics trip
func (d *GrammarDetector) Detect(in Input) Finding {
	issues := grammarIssues(in.Content, true)
	if issues <= grammarThreshold {
		return Finding{}
	}

	return Finding{
		Score: grammarScore,
		Indicators: []core.Indicator{{
			Type:        core.IndicatorGrammar,
			Severity:    core.SeverityMedium,
			Description: "Poor grammar and spelling",
			Details:     fmt.Sprintf("Detected %d potential grammar/spelling issues", issues),
		}},
	}
}

// grammarIssues counts the heuristics that trip on content, one point each
func grammarIssues(content string, checkTerminal bool) int {
	checks := []bool{
		lexicon.RepeatedWhitespace.MatchString(content),
		lexicon.RepeatedPunctuation.MatchString(content),
		lexicon.ShoutingRun.MatchString(content),
		lexicon.MisspellingPattern.MatchString(content),
	}
	if checkTerminal {
		checks = append(checks, !lexicon.TerminalPunctuation.MatchString(strings.TrimSpace(content)))
	}

	issues := 0
	for _, hit := range checks {
		if hit {
			issues++
		}
	}
	return issues
}
