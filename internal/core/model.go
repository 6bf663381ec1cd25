package core

import (
	"time"
)

// IndicatorType is the category of a single finding
type IndicatorType string

const (
	IndicatorPhishing        IndicatorType = "phishing"
	IndicatorSuspiciousLinks IndicatorType = "suspicious_links"
	IndicatorUrgency         IndicatorType = "urgency"
	IndicatorSender          IndicatorType = "sender"
	IndicatorGrammar         IndicatorType = "grammar"
	IndicatorAttachment      IndicatorType = "attachment"
	IndicatorAIDetection     IndicatorType = "ai_detection"
)

// Severity grades an indicator
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Reputation is the trust classification of a sender domain
type Reputation string

const (
	ReputationGood       Reputation = "good"
	ReputationUnknown    Reputation = "unknown"
	ReputationSuspicious Reputation = "suspicious"
)

// RiskLevel is the three-way risk tier derived from the spam score
type RiskLevel string

const (
	RiskSafe       RiskLevel = "safe"
	RiskSuspicious RiskLevel = "suspicious"
	RiskDangerous  RiskLevel = "dangerous"
)

// Method selects which pipeline produced a result
type Method string

const (
	MethodLocal Method = "local"
	MethodAI    Method = "ai"
)

// AnalysisInput is the immutable input of one analysis call
type AnalysisInput struct {
	Content string `json:"content"`
	Subject string `json:"subject"`
	Sender  string `json:"sender"`
}

// Indicator represents one discrete finding from a detector
type Indicator struct {
	Type        IndicatorType `json:"type"`
	Severity    Severity      `json:"severity"`
	Description string        `json:"description"`
	Details     string        `json:"details"`
}

// SenderAnalysis summarises the sender domain
type SenderAnalysis struct {
	Domain     string     `json:"domain"`
	Reputation Reputation `json:"reputation"`
	Verified   bool       `json:"verified"`
}

// ContentAnalysis summarises the message body
type ContentAnalysis struct {
	SuspiciousWords []string `json:"suspiciousWords"`
	UrgencyLevel    int      `json:"urgencyLevel"`
	LinkCount       int      `json:"linkCount"`
	AttachmentCount int      `json:"attachmentCount"`
}

// AnalysisResult is the value returned for every analysed email.
// It holds no references to live resources and is safe to marshal as JSON.
type AnalysisResult struct {
	SpamScore       int             `json:"spamScore"`
	RiskLevel       RiskLevel       `json:"riskLevel"`
	Indicators      []Indicator     `json:"indicators"`
	SenderAnalysis  SenderAnalysis  `json:"senderAnalysis"`
	ContentAnalysis ContentAnalysis `json:"contentAnalysis"`
	AnalysisMethod  Method          `json:"analysisMethod"`
	Confidence      int             `json:"confidence"`
	Reasoning       string          `json:"reasoning,omitempty"`
}

// RemoteVerdict is the answer of a network-backed classifier
type RemoteVerdict struct {
	IsSpam       bool
	Score        float64
	Confidence   float64
	Explanation  string
	AnalyzedAt   time.Time
	ModelUsed    string
	ProcessingID string
}

// CacheEntry is a remote verdict stored for reuse
type CacheEntry struct {
	Key       string
	Verdict   RemoteVerdict
	LastSeen  time.Time
	ExpiresAt time.Time
}
