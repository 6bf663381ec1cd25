package reputation

import (
	"testing"

	"github.com/mikey/spam-scorer/internal/core"
	"github.com/stretchr/testify/assert"
)

func TestExtractDomain(t *testing.T) {
	tests := []struct {
		sender string
		want   string
	}{
		{"user@Gmail.com", "gmail.com"},
		{"John Doe <john@Example.ORG>", "example.org"},
		{"no-at-sign", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.sender, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractDomain(tt.sender))
		})
	}
}

func TestResolver_Resolve(t *testing.T) {
	r := NewResolver(nil, nil)

	tests := []struct {
		name       string
		sender     string
		reputation core.Reputation
		verified   bool
		risk       int
		reason     string
	}{
		{"trusted", "user@gmail.com", core.ReputationGood, true, 0, ReasonTrusted},
		{"trusted display name", "Apple <no-reply@apple.com>", core.ReputationGood, true, 0, ReasonTrusted},
		{"known suspicious", "noreply@urgent-security-alert.com", core.ReputationSuspicious, false, RiskKnownSuspicious, ReasonKnownSuspicious},
		{"brand pattern", "help@apple-support-desk.net", core.ReputationSuspicious, false, RiskPatternMatch, ReasonPattern},
		{"account verify pattern", "x@account-verify-now.io", core.ReputationSuspicious, false, RiskPatternMatch, ReasonPattern},
		{"word suspicious", "a@very-suspicious.biz", core.ReputationSuspicious, false, RiskPatternMatch, ReasonPattern},
		{"no domain", "not an address", core.ReputationSuspicious, false, RiskStructure, ReasonMalformed},
		{"dotless domain", "root@localhost", core.ReputationSuspicious, false, RiskStructure, ReasonMalformed},
		{"short domain", "a@b.com", core.ReputationUnknown, false, RiskStructure, ReasonStructure},
		{"numeric domain", "promo@deals12345.com", core.ReputationUnknown, false, RiskStructure, ReasonStructure},
		{"ordinary unknown", "someone@example-company.com", core.ReputationUnknown, false, 0, ReasonUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Resolve(tt.sender)
			assert.Equal(t, tt.reputation, res.Reputation)
			assert.Equal(t, tt.verified, res.Verified)
			assert.Equal(t, tt.risk, res.RiskScore)
			assert.Equal(t, tt.reason, res.Reason)
		})
	}
}

func TestResolver_EmptyDomainNeverTrusted(t *testing.T) {
	r := NewResolver([]string{"", "  "}, nil)

	res := r.Resolve("nobody")
	assert.Equal(t, "", res.Domain)
	assert.Equal(t, core.ReputationSuspicious, res.Reputation)
	assert.False(t, res.Verified)
}

func TestResolver_ExtraTrustedDomains(t *testing.T) {
	r := NewResolver([]string{" Corp.Example.COM "}, nil)

	res := r.Resolve("ceo@corp.example.com")
	assert.Equal(t, core.ReputationGood, res.Reputation)
	assert.True(t, res.Verified)
	assert.False(t, res.Suspicious())

	analysis := res.SenderAnalysis()
	assert.Equal(t, "corp.example.com", analysis.Domain)
	assert.True(t, analysis.Verified)
}
