package ports

import (
	"context"

	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/mailparse"
)

// EmailFilter is a caller of the analysis engine: a CLI, an MTA content
// filter or an HTTP API
type EmailFilter interface {
	// ProcessEmail analyzes one extracted email
	ProcessEmail(ctx context.Context, email *mailparse.Record) (*core.AnalysisResult, error)

	// Start starts the email filter service
	Start() error

	// Stop stops the email filter service
	Stop() error
}

// Analyzer is the engine entry point used by the filters
type Analyzer interface {
	Analyze(ctx context.Context, input core.AnalysisInput, method core.Method) (*core.AnalysisResult, error)
}
