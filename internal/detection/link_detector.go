package detection

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/lexicon"
)

const shortenedLinkScore = 25

// LinkDetector flags links routed through URL shorteners
type LinkDetector struct{}

// NewLinkDetector creates a new suspicious link detector
func NewLinkDetector() *LinkDetector {
	return &LinkDetector{}
}

// Name returns the detector name
func (d *LinkDetector) Name() string {
	return "Shortened Links"
}

// Detect adds a flat score no matter how many shortened links are present
func (d *LinkDetector) Detect(in Input) Finding {
	suspicious := 0
	for _, link := range lexicon.LinkPattern.FindAllString(in.Content, -1) {
		if isShortened(link) {
			suspicious++
		}
	}
	if suspicious == 0 {
		return Finding{}
	}

	return Finding{
		Score: shortenedLinkScore,
		Indicators: []core.Indicator{{
			Type:        core.IndicatorSuspiciousLinks,
			Severity:    core.SeverityHigh,
			Description: "Suspicious shortened URLs detected",
			Details:     fmt.Sprintf("Found %d suspicious link(s)", suspicious),
		}},
	}
}

// isShortened reports whether link contains a shortener domain. Host-only
// shorteners must be the link host or one of its parents.
func isShortened(link string) bool {
	lower := strings.ToLower(link)
	for _, s := range lexicon.LinkShorteners {
		if strings.Contains(lower, s) {
			return true
		}
	}

	host := linkHost(link)
	for _, s := range lexicon.HostOnlyLinkShorteners {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

func linkHost(link string) string {
	if u, err := url.Parse(link); err == nil && u.Host != "" {
		return strings.ToLower(u.Hostname())
	}

	// url.Parse rejects some links that mail bodies still carry, fall back to
	// cutting the authority out by hand
	rest := link
	if i := strings.Index(rest, "://"); i >= 0 {
		rest = rest[i+3:]
	}
	if i := strings.IndexAny(rest, "/?#"); i >= 0 {
		rest = rest[:i]
	}
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest = rest[i+1:]
	}
	if i := strings.Index(rest, ":"); i >= 0 {
		rest = rest[:i]
	}
	return strings.ToLower(rest)
}
