// Package lexicon holds the read-only word lists, domain sets and regex
// families shared by every detector. Nothing in this package is mutated
// after init, so the tables are safe for concurrent use.
package lexicon

import (
	"regexp"
	"strings"
)

// PhishingKeywords are matched as case-insensitive substrings of subject and body.
var PhishingKeywords = []string{
	"urgent", "immediate", "verify account", "suspended", "click here",
	"limited time", "act now", "confirm identity", "security alert",
	"update payment", "expired", "locked account", "win", "congratulations",
	"free money", "tax refund", "inheritance", "lottery", "prince",
}

// UrgencyWords drive the base urgency detector.
var UrgencyWords = []string{
	"urgent", "immediate", "asap", "now", "today", "expires",
}

// LinkShorteners are hosts that hide the real link target. A link matches
// when it contains one anywhere.
var LinkShorteners = []string{
	"bit.ly", "tinyurl.com", "goo.gl",
}

// HostOnlyLinkShorteners match only as the link host, since they also occur
// inside ordinary domains (microsoft.com contains t.co).
var HostOnlyLinkShorteners = []string{
	"t.co",
}

// TrustedDomains are sender domains that are considered verified.
var TrustedDomains = []string{
	"gmail.com", "outlook.com", "yahoo.com", "hotmail.com", "apple.com",
	"microsoft.com", "google.com", "amazon.com", "paypal.com",
	"linkedin.com", "facebook.com",
}

// SuspiciousDomains are sender domains known to be used in campaigns.
var SuspiciousDomains = []string{
	"urgent-security-alert.com",
	"security-team-alert.com",
	"account-verification.net",
	"payment-update.org",
}

// SuspiciousDomainPatterns flag domains built to look like security notices
// or brand support desks.
var SuspiciousDomainPatterns = mustCompileAll(
	`(?i)security.*alert`,
	`(?i)urgent.*team`,
	`(?i)account.*verify`,
	`(?i)payment.*update`,
	`(?i)microsoft.*security`,
	`(?i)apple.*support`,
	`(?i)suspicious`,
)

// CommonMisspellings are words that rarely survive a spell checker.
var CommonMisspellings = []string{
	"recieve", "seperate", "occured", "definately",
}

// TranslationArtifacts are phrases typical of machine or non-native translation.
var TranslationArtifacts = []string{
	"kindly", "please to", "do the needful", "revert back", "prepone", "good name",
}

// Sentiment word lists used by the enhanced pipeline.
var (
	SentimentUrgentWords       = []string{"urgent", "immediate", "now", "asap", "quickly", "fast", "hurry"}
	SentimentManipulativeWords = []string{"limited", "exclusive", "special", "secret", "guaranteed", "free", "win"}
	SentimentFearWords         = []string{"suspended", "blocked", "terminated", "expired", "lose", "miss"}
)

// Regex families matched against "subject content" by the advanced pattern detector.
var (
	PhishingPatterns = mustCompileAll(
		`(?i)verify.*account.*immediately`,
		`(?i)suspended.*24.*hours`,
		`(?i)click.*here.*now`,
		`(?i)limited.*time.*offer`,
		`(?i)confirm.*identity.*urgent`,
		`(?i)security.*alert.*action`,
		`(?i)update.*payment.*expire`,
		`(?i)congratulations.*winner`,
	)

	SocialEngineeringPatterns = mustCompileAll(
		`(?i)dear.*valued.*customer`,
		`(?i)act.*now.*or.*lose`,
		`(?i)final.*notice`,
		`(?i)immediate.*action.*required`,
		`(?i)don't.*miss.*out`,
		`(?i)exclusive.*offer.*you`,
	)

	AdvancedThreatPatterns = mustCompileAll(
		`(?i)\b(bit\.ly|tinyurl|goo\.gl|t\.co)\b`,
		`[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}\.[0-9]{1,3}`,
		`(?i)urgent.*security.*team`,
		`(?i)microsoft.*apple.*google.*security`,
		`(?i)tax.*refund.*irs`,
		`(?i)inheritance.*million.*dollars`,
	)
)

// Text shape patterns shared by the grammar and linguistic detectors.
var (
	SenderDomainPattern      = regexp.MustCompile(`@([^>]+)`)
	LinkPattern              = regexp.MustCompile(`https?://\S+`)
	AttachmentPattern        = regexp.MustCompile(`(?i)attachment|download|file`)
	RepeatedWhitespace       = regexp.MustCompile(`\s{2,}`)
	RepeatedPunctuation      = regexp.MustCompile(`[.!?]{2,}`)
	ShoutingRun              = regexp.MustCompile(`[A-Z]{4,}`)
	TerminalPunctuation      = regexp.MustCompile(`[.!?]$`)
	NumericRun               = regexp.MustCompile(`\d{3,}`)
	MisspellingPattern       = wordAlternation(CommonMisspellings)
	TranslationArtifactMatch = wordAlternation(TranslationArtifacts)
)

func mustCompileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		out = append(out, regexp.MustCompile(expr))
	}
	return out
}

func wordAlternation(words []string) *regexp.Regexp {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(quoted, "|") + `)\b`)
}

// MatchAny reports whether any pattern matches text.
func MatchAny(patterns []*regexp.Regexp, text string) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}
