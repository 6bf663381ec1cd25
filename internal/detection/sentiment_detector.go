package detection

import (
	"context"

	"github.com/mikey/spam-scorer/internal/lexicon"
)

const (
	manipulativeScore = 10
	pressureScore     = 8
	sentimentMinHits  = 2
)

// SentimentDetector looks for manipulative and high-pressure tone in the body
type SentimentDetector struct{}

// NewSentimentDetector creates a new sentiment detector
func NewSentimentDetector() *SentimentDetector {
	return &SentimentDetector{}
}

// Name returns the detector name
func (d *SentimentDetector) Name() string {
	return "Sentiment"
}

// Assess scores manipulative and urgent tone; fear words are only categorised
func (d *SentimentDetector) Assess(_ context.Context, in Input) (Assessment, error) {
	var a Assessment
	if countWords(lexicon.SentimentManipulativeWords, in.Content) >= sentimentMinHits {
		a.add(manipulativeScore, "", "Manipulative language patterns")
	}
	if countWords(lexicon.SentimentUrgentWords, in.Content) >= sentimentMinHits {
		a.add(pressureScore, "", "High-pressure psychological tactics")
	}
	if countWords(lexicon.SentimentFearWords, in.Content) > 0 {
		a.add(0, CategoryFearAppeal, "")
	}
	return a, nil
}
