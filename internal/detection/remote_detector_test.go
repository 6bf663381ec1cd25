package detection

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mikey/spam-scorer/internal/adapters/cache"
	"github.com/mikey/spam-scorer/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClassifier struct {
	calls   int
	verdict core.RemoteVerdict
	err     error
}

func (c *countingClassifier) Classify(context.Context, core.AnalysisInput) (*core.RemoteVerdict, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	v := c.verdict
	return &v, nil
}

func TestRemoteDetector_SpamVerdict(t *testing.T) {
	classifier := &countingClassifier{verdict: core.RemoteVerdict{IsSpam: true, Score: 0.76, ModelUsed: "m1", Explanation: "lottery scam"}}
	d := NewRemoteDetector(classifier, nil, time.Hour, time.Second, nil)

	a, err := d.Assess(context.Background(), input("x@example-company.com", "Hi", "body"))
	require.NoError(t, err)
	assert.Equal(t, 15, a.Score)
	assert.Equal(t, []string{CategoryRemoteSpam}, a.Categories)
	assert.Equal(t, []string{"Remote classifier (m1): lottery scam"}, a.RiskFactors)
}

func TestRemoteDetector_HamVerdictAddsNothing(t *testing.T) {
	classifier := &countingClassifier{verdict: core.RemoteVerdict{IsSpam: false, Score: 0.1}}
	d := NewRemoteDetector(classifier, nil, time.Hour, time.Second, nil)

	a, err := d.Assess(context.Background(), input("x@example-company.com", "Hi", "body"))
	require.NoError(t, err)
	assert.Zero(t, a.Score)
	assert.Empty(t, a.RiskFactors)
}

func TestRemoteDetector_ScoreIsClamped(t *testing.T) {
	classifier := &countingClassifier{verdict: core.RemoteVerdict{IsSpam: true, Score: 3}}
	d := NewRemoteDetector(classifier, nil, time.Hour, time.Second, nil)

	a, err := d.Assess(context.Background(), input("x@example-company.com", "", ""))
	require.NoError(t, err)
	assert.Equal(t, 20, a.Score)
}

func TestRemoteDetector_UsesCache(t *testing.T) {
	store := cache.NewMemoryCache(nil, 0)
	classifier := &countingClassifier{verdict: core.RemoteVerdict{IsSpam: true, Score: 0.5, ModelUsed: "m"}}
	d := NewRemoteDetector(classifier, store, time.Hour, time.Second, nil)
	in := input("x@example-company.com", "Hi", "body")

	first, err := d.Assess(context.Background(), in)
	require.NoError(t, err)
	second, err := d.Assess(context.Background(), in)
	require.NoError(t, err)

	assert.Equal(t, 1, classifier.calls)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, store.Len())

	_, err = d.Assess(context.Background(), input("x@example-company.com", "Other", "body"))
	require.NoError(t, err)
	assert.Equal(t, 2, classifier.calls)
}

func TestRemoteDetector_ErrorIsReturned(t *testing.T) {
	classifier := &countingClassifier{err: errors.New("unreachable")}
	d := NewRemoteDetector(classifier, cache.NewMemoryCache(nil, 0), time.Hour, time.Second, nil)

	_, err := d.Assess(context.Background(), input("x@example-company.com", "", ""))
	assert.ErrorContains(t, err, "unreachable")
}

func TestCacheKey(t *testing.T) {
	a := CacheKey(core.AnalysisInput{Sender: "ab", Subject: "c"})
	b := CacheKey(core.AnalysisInput{Sender: "a", Subject: "bc"})

	assert.NotEqual(t, a, b)
	assert.Len(t, a, 64)
	assert.Equal(t, a, CacheKey(core.AnalysisInput{Sender: "ab", Subject: "c"}))
}
