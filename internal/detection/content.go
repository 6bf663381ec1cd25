package detection

import (
	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/lexicon"
)

// Profile derives the content summary reported alongside the score
func Profile(in Input) core.ContentAnalysis {
	return core.ContentAnalysis{
		SuspiciousWords: phishingMatches(in),
		UrgencyLevel:    urgencyLevel(in),
		LinkCount:       len(lexicon.LinkPattern.FindAllString(in.Content, -1)),
		AttachmentCount: len(lexicon.AttachmentPattern.FindAllString(in.Content, -1)),
	}
}
