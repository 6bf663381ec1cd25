package filter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/mailparse"
	"github.com/mikey/spam-scorer/internal/ports"
	"go.uber.org/zap"
)

// Output formats supported by the CLI filter
const (
	FormatText = "text"
	FormatJSON = "json"
)

// CliFilter prints analysis results for a single email
type CliFilter struct {
	analyzer ports.Analyzer
	logger   *zap.Logger
	method   core.Method
	format   string
	verbose  bool
	out      io.Writer
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(analyzer ports.Analyzer, logger *zap.Logger, method core.Method, format string, verbose bool) (*CliFilter, error) {
	if format != FormatText && format != FormatJSON {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}
	return &CliFilter{
		analyzer: analyzer,
		logger:   logger,
		method:   method,
		format:   format,
		verbose:  verbose,
		out:      os.Stdout,
	}, nil
}

// SetOutput redirects the report, mainly for tests
func (f *CliFilter) SetOutput(w io.Writer) {
	f.out = w
}

// ProcessEmail analyzes the email and prints the report
func (f *CliFilter) ProcessEmail(ctx context.Context, email *mailparse.Record) (*core.AnalysisResult, error) {
	f.logger.Debug("Processing email", zap.String("sender", email.Sender))

	startTime := time.Now()
	result, err := f.analyzer.Analyze(ctx, email.AnalysisInput(), f.method)
	if err != nil {
		f.logger.Error("Failed to analyze email", zap.Error(err))
		return nil, err
	}
	duration := time.Since(startTime)

	if f.format == FormatJSON {
		enc := json.NewEncoder(f.out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return nil, fmt.Errorf("failed to encode result: %w", err)
		}
		return result, nil
	}

	f.printText(email, result, duration)
	return result, nil
}

func (f *CliFilter) printText(email *mailparse.Record, result *core.AnalysisResult, duration time.Duration) {
	w := f.out

	fmt.Fprintf(w, "\n=== Email Summary ===\n")
	fmt.Fprintf(w, "From: %s\n", email.Sender)
	fmt.Fprintf(w, "Subject: %s\n", email.Subject)
	fmt.Fprintf(w, "Body length: %d bytes\n", len(email.Content))
	if len(email.AttachmentNames) > 0 {
		fmt.Fprintf(w, "Attachments: %v\n", email.AttachmentNames)
	}

	if f.verbose {
		preview := email.Content
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Fprintf(w, "\nBody preview:\n%s\n", preview)
	}

	fmt.Fprintf(w, "\n=== Results ===\n")
	fmt.Fprintf(w, "Risk level: %s\n", result.RiskLevel)
	fmt.Fprintf(w, "Spam score: %d/100\n", result.SpamScore)
	fmt.Fprintf(w, "Method: %s\n", result.AnalysisMethod)
	fmt.Fprintf(w, "Confidence: %d%%\n", result.Confidence)
	fmt.Fprintf(w, "Sender: %s (%s, verified=%t)\n",
		result.SenderAnalysis.Domain, result.SenderAnalysis.Reputation, result.SenderAnalysis.Verified)
	fmt.Fprintf(w, "Links: %d, attachment mentions: %d, urgency: %d\n",
		result.ContentAnalysis.LinkCount, result.ContentAnalysis.AttachmentCount, result.ContentAnalysis.UrgencyLevel)
	if result.Reasoning != "" {
		fmt.Fprintf(w, "Reasoning: %s\n", result.Reasoning)
	}

	if len(result.Indicators) > 0 {
		fmt.Fprintf(w, "\n=== Indicators ===\n")
		for _, ind := range result.Indicators {
			fmt.Fprintf(w, "[%s] %s: %s - %s\n", ind.Severity, ind.Type, ind.Description, ind.Details)
		}
	}

	fmt.Fprintf(w, "\nProcessing time: %v\n", duration)
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
