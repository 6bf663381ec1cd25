package utils

import (
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const truncationMarker = "\n[... Content truncated due to size limits ...]"

// TextProcessor prepares email text before it is sent to a remote classifier
type TextProcessor struct {
	logger *zap.Logger
}

// NewTextProcessor creates a new TextProcessor
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextProcessor{
		logger: logger,
	}
}

// TruncateText truncates text to at most maxSize bytes without splitting a
// UTF-8 sequence. A non-positive maxSize disables truncation.
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]
	for len(truncated) > 0 && !utf8.ValidString(truncated) {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + truncationMarker
}

// SanitizeUTF8 drops invalid UTF-8 sequences and applies NFKC normalisation
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	chain := transform.Chain(runes.ReplaceIllFormed(), runes.Remove(runes.Predicate(isReplacementChar)), norm.NFKC)
	sanitized, _, err := transform.String(chain, text)
	if err != nil {
		tp.logger.Warn("Failed to sanitize text", zap.Error(err))
		return text
	}

	if len(sanitized) != len(text) {
		tp.logger.Debug("Text sanitized",
			zap.Int("original_size", len(text)),
			zap.Int("sanitized_size", len(sanitized)))
	}

	return sanitized
}

func isReplacementChar(r rune) bool {
	return r == utf8.RuneError
}

// ProcessText truncates and sanitizes text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.SanitizeUTF8(tp.TruncateText(text, maxSize))
}
