package detection

import (
	"fmt"

	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/lexicon"
)

const urgencyWeight = 10

// UrgencyDetector counts time-pressure words
type UrgencyDetector struct{}

// NewUrgencyDetector creates a new urgency detector
func NewUrgencyDetector() *UrgencyDetector {
	return &UrgencyDetector{}
}

// Name returns the detector name
func (d *UrgencyDetector) Name() string {
	return "Urgency Language"
}

// Detect scores 10 points per distinct urgency word
func (d *UrgencyDetector) Detect(in Input) Finding {
	count := urgencyLevel(in)
	if count == 0 {
		return Finding{}
	}

	severity := core.SeverityMedium
	if count > 2 {
		severity = core.SeverityHigh
	}

	return Finding{
		Score: urgencyWeight * count,
		Indicators: []core.Indicator{{
			Type:        core.IndicatorUrgency,
			Severity:    severity,
			Description: "High urgency language detected",
			Details:     fmt.Sprintf("Contains %d urgency indicator(s)", count),
		}},
	}
}

func urgencyLevel(in Input) int {
	return len(matchedWords(lexicon.UrgencyWords, in.Content, in.Subject))
}
