package detection

import (
	"fmt"

	"github.com/mikey/spam-scorer/internal/core"
)

const (
	unverifiedSenderScore = 15
	suspiciousSenderScore = 30
)

// SenderDetector penalises senders whose domain is not verified
type SenderDetector struct{}

// NewSenderDetector creates a new sender reputation detector
func NewSenderDetector() *SenderDetector {
	return &SenderDetector{}
}

// Name returns the detector name
func (d *SenderDetector) Name() string {
	return "Sender Reputation"
}

// Detect fires for every unverified sender
func (d *SenderDetector) Detect(in Input) Finding {
	rep := in.Reputation
	if rep.Verified {
		return Finding{}
	}

	score, severity := unverifiedSenderScore, core.SeverityMedium
	if rep.Reputation == core.ReputationSuspicious {
		score, severity = suspiciousSenderScore, core.SeverityHigh
	}

	return Finding{
		Score: score,
		Indicators: []core.Indicator{{
			Type:        core.IndicatorSender,
			Severity:    severity,
			Description: "Unverified sender",
			Details:     fmt.Sprintf("Sender domain %s has %s reputation", in.Domain, rep.Reputation),
		}},
	}
}
