package core

import (
	"context"
)

// RemoteClassifier defines the interface for network-backed spam classifiers
type RemoteClassifier interface {
	// Classify asks the remote service for a verdict on one email
	Classify(ctx context.Context, input AnalysisInput) (*RemoteVerdict, error)
}

// VerdictCache defines the interface for caching remote verdicts
type VerdictCache interface {
	// Get retrieves a cached entry by key
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *CacheEntry) error

	// Delete removes a cache entry
	Delete(ctx context.Context, key string) error

	// Cleanup removes expired entries
	Cleanup(ctx context.Context) error
}
