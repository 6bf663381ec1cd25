package detection

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"github.com/mikey/spam-scorer/internal/core"
	"go.uber.org/zap"
)

// remoteMaxScore is the confidence added for a remote verdict with score 1.0
const remoteMaxScore = 20

// RemoteDetector consults a network-backed classifier. It is the only
// enhanced detector that can block, and it never waits longer than timeout.
type RemoteDetector struct {
	classifier core.RemoteClassifier
	cache      core.VerdictCache
	cacheTTL   time.Duration
	timeout    time.Duration
	logger     *zap.Logger
}

// NewRemoteDetector creates a detector backed by classifier. cache may be nil.
func NewRemoteDetector(
	classifier core.RemoteClassifier,
	cache core.VerdictCache,
	cacheTTL time.Duration,
	timeout time.Duration,
	logger *zap.Logger,
) *RemoteDetector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RemoteDetector{
		classifier: classifier,
		cache:      cache,
		cacheTTL:   cacheTTL,
		timeout:    timeout,
		logger:     logger,
	}
}

// Name returns the detector name
func (d *RemoteDetector) Name() string {
	return "Remote Classifier"
}

// Assess asks the remote classifier, or the cache, for a verdict
func (d *RemoteDetector) Assess(ctx context.Context, in Input) (Assessment, error) {
	verdict, err := d.verdict(ctx, in.AnalysisInput())
	if err != nil {
		return Assessment{}, err
	}

	var a Assessment
	if verdict.IsSpam {
		score := int(math.Round(math.Max(0, math.Min(verdict.Score, 1)) * remoteMaxScore))
		a.add(score, CategoryRemoteSpam, fmt.Sprintf("Remote classifier (%s): %s", verdict.ModelUsed, verdict.Explanation))
	}
	return a, nil
}

func (d *RemoteDetector) verdict(ctx context.Context, input core.AnalysisInput) (*core.RemoteVerdict, error) {
	key := CacheKey(input)

	if d.cache != nil {
		if entry, err := d.cache.Get(ctx, key); err == nil {
			d.logger.Debug("Cache hit for remote verdict", zap.String("key", key))
			v := entry.Verdict
			return &v, nil
		}
	}

	callCtx := ctx
	if d.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	verdict, err := d.classifier.Classify(callCtx, input)
	if err != nil {
		return nil, fmt.Errorf("failed to classify email remotely: %w", err)
	}

	if d.cache != nil {
		now := time.Now()
		entry := &core.CacheEntry{
			Key:       key,
			Verdict:   *verdict,
			LastSeen:  now,
			ExpiresAt: now.Add(d.cacheTTL),
		}
		if err := d.cache.Set(ctx, entry); err != nil {
			d.logger.Error("Failed to update cache", zap.Error(err))
		}
	}

	return verdict, nil
}

// CacheKey fingerprints an input for the verdict cache
func CacheKey(input core.AnalysisInput) string {
	h := sha256.New()
	for _, part := range []string{input.Sender, input.Subject, input.Content} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
