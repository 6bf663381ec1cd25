package reputation

import (
	"strings"

	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/lexicon"
	"go.uber.org/zap"
)

// Risk contributions of the individual rules
const (
	RiskKnownSuspicious = 25
	RiskPatternMatch    = 15
	RiskStructure       = 10
)

// Reasons attached to a resolution
const (
	ReasonTrusted         = "trusted domain"
	ReasonKnownSuspicious = "known suspicious domain"
	ReasonPattern         = "suspicious domain pattern"
	ReasonMalformed       = "missing or malformed domain"
	ReasonStructure       = "suspicious domain structure"
	ReasonUnknown         = "unknown domain"
)

// Result is the reputation of one sender
type Result struct {
	Domain     string
	Reputation core.Reputation
	Verified   bool
	RiskScore  int
	Reason     string
}

// Suspicious reports whether the domain adds risk to the enhanced pipeline
func (r Result) Suspicious() bool {
	return r.RiskScore > 0
}

// SenderAnalysis converts the result into its public form
func (r Result) SenderAnalysis() core.SenderAnalysis {
	return core.SenderAnalysis{
		Domain:     r.Domain,
		Reputation: r.Reputation,
		Verified:   r.Verified,
	}
}

// Resolver classifies sender domains
type Resolver struct {
	trusted    map[string]struct{}
	suspicious map[string]struct{}
}

// NewResolver creates a resolver trusting the built-in domains plus extraTrusted
func NewResolver(extraTrusted []string, logger *zap.Logger) *Resolver {
	r := &Resolver{
		trusted:    make(map[string]struct{}, len(lexicon.TrustedDomains)+len(extraTrusted)),
		suspicious: make(map[string]struct{}, len(lexicon.SuspiciousDomains)),
	}
	for _, d := range lexicon.TrustedDomains {
		r.trusted[d] = struct{}{}
	}
	normalized := make([]string, 0, len(extraTrusted))
	for _, d := range extraTrusted {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		r.trusted[d] = struct{}{}
		normalized = append(normalized, d)
	}
	for _, d := range lexicon.SuspiciousDomains {
		r.suspicious[d] = struct{}{}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized reputation resolver", zap.Strings("extra_trusted_domains", normalized))
	}

	return r
}

// ExtractDomain returns the lower-cased text following the first '@' up to a '>'
func ExtractDomain(sender string) string {
	m := lexicon.SenderDomainPattern.FindStringSubmatch(sender)
	if m == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(m[1]))
}

// Resolve classifies the domain of sender. It never fails: a sender without
// a domain is suspicious.
func (r *Resolver) Resolve(sender string) Result {
	domain := ExtractDomain(sender)

	if domain == "" {
		return suspicious(domain, RiskStructure, ReasonMalformed)
	}

	if _, ok := r.trusted[domain]; ok {
		return Result{
			Domain:     domain,
			Reputation: core.ReputationGood,
			Verified:   true,
			Reason:     ReasonTrusted,
		}
	}

	if _, ok := r.suspicious[domain]; ok {
		return suspicious(domain, RiskKnownSuspicious, ReasonKnownSuspicious)
	}

	if lexicon.MatchAny(lexicon.SuspiciousDomainPatterns, domain) {
		return suspicious(domain, RiskPatternMatch, ReasonPattern)
	}

	if !strings.Contains(domain, ".") {
		return suspicious(domain, RiskStructure, ReasonMalformed)
	}

	// Short or numeric-heavy domains only feed the enhanced domain-risk signal;
	// the reputation itself stays unknown.
	if len(domain) < 8 || lexicon.NumericRun.MatchString(domain) {
		return Result{
			Domain:     domain,
			Reputation: core.ReputationUnknown,
			RiskScore:  RiskStructure,
			Reason:     ReasonStructure,
		}
	}

	return Result{
		Domain:     domain,
		Reputation: core.ReputationUnknown,
		Reason:     ReasonUnknown,
	}
}

func suspicious(domain string, risk int, reason string) Result {
	return Result{
		Domain:     domain,
		Reputation: core.ReputationSuspicious,
		RiskScore:  risk,
		Reason:     reason,
	}
}
