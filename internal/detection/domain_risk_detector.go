package detection

import (
	"context"
	"fmt"
)

// DomainRiskDetector turns the sender reputation into enhanced confidence
type DomainRiskDetector struct{}

// NewDomainRiskDetector creates a new domain risk detector
func NewDomainRiskDetector() *DomainRiskDetector {
	return &DomainRiskDetector{}
}

// Name returns the detector name
func (d *DomainRiskDetector) Name() string {
	return "Domain Reputation"
}

// Assess adds the resolver's risk score for suspicious domains
func (d *DomainRiskDetector) Assess(_ context.Context, in Input) (Assessment, error) {
	var a Assessment
	if in.Reputation.Suspicious() {
		a.add(in.Reputation.RiskScore, "", fmt.Sprintf("Domain reputation: %s", in.Reputation.Reason))
	}
	return a, nil
}
