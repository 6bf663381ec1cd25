package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mikey/spam-scorer/internal/core"
)

// ClassifierPrompt is the instruction sent to every remote model.
// Arguments: sender, subject, body.
const ClassifierPrompt = `You are a spam detection system. Analyze the following email and determine if it's spam.
Respond with a JSON object containing:
- is_spam: boolean (true if spam, false if not)
- score: number between 0 and 1 (higher means more likely to be spam)
- confidence: number between 0 and 1 (how confident you are in your assessment)
- explanation: string (brief explanation of why you think it's spam or not)

Email:
From: %s
Subject: %s
Body:
%s

Respond only with the JSON object and nothing else.`

// ClassifierResponse is the JSON object a remote model is asked to produce
type ClassifierResponse struct {
	IsSpam      bool    `json:"is_spam"`
	Score       float64 `json:"score"`
	Confidence  float64 `json:"confidence"`
	Explanation string  `json:"explanation"`
}

// BuildPrompt renders the classifier prompt for input. The body is truncated
// to maxBodySize bytes and sanitized first.
func (tp *TextProcessor) BuildPrompt(input core.AnalysisInput, maxBodySize int) string {
	body := tp.ProcessText(input.Content, maxBodySize)
	return fmt.Sprintf(ClassifierPrompt, input.Sender, input.Subject, body)
}

// ParseClassifierResponse decodes a model reply. Models often wrap the JSON
// in prose or code fences, so the outermost {...} is tried when the whole
// reply is not valid JSON.
func ParseClassifierResponse(text string) (*ClassifierResponse, error) {
	var resp ClassifierResponse
	if err := json.Unmarshal([]byte(text), &resp); err == nil {
		return &resp, nil
	}

	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return nil, errors.New("failed to extract JSON from LLM response")
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), &resp); err != nil {
		return nil, fmt.Errorf("failed to parse LLM response as JSON: %w", err)
	}
	return &resp, nil
}

// Verdict converts the response into a core verdict
func (r *ClassifierResponse) Verdict(model, processingID string) *core.RemoteVerdict {
	return &core.RemoteVerdict{
		IsSpam:       r.IsSpam,
		Score:        r.Score,
		Confidence:   r.Confidence,
		Explanation:  r.Explanation,
		AnalyzedAt:   time.Now(),
		ModelUsed:    model,
		ProcessingID: processingID,
	}
}
