// Package mailparse turns raw email text into the sender, subject and plain
// text body consumed by the analyzer.
package mailparse

import (
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/mikey/spam-scorer/internal/core"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// ErrNotEmail is returned when no header could be parsed
	ErrNotEmail = errors.New("input does not look like an email message")

	// ErrMissingSender is returned when neither From nor Sender is present
	ErrMissingSender = errors.New("email has no sender")

	// ErrUnsupportedFile is returned for uploads that are not .eml / message/rfc822
	ErrUnsupportedFile = errors.New("unsupported file type, expected .eml or message/rfc822")
)

var (
	softLineBreak    = regexp.MustCompile(`=\r?\n`)
	quotedPrintable  = regexp.MustCompile(`(?:=[0-9A-F]{2})+`)
	htmlTag          = regexp.MustCompile(`<[^>]*>`)
	whitespaceRun    = regexp.MustCompile(`\s+`)
	angleAddress     = regexp.MustCompile(`<([^>]+)>`)
	bareEmailAddress = regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`)
)

// Record is the extracted view of one email
type Record struct {
	Sender          string            `json:"sender"`
	Subject         string            `json:"subject"`
	Content         string            `json:"content"`
	Headers         map[string]string `json:"headers"`
	AttachmentNames []string          `json:"attachmentNames,omitempty"`
}

// Parse splits raw text into headers and body. It never fails: absent
// headers yield empty strings.
func Parse(raw string) *Record {
	headers := make(map[string]string)
	var body []string
	current := ""
	inHeaders := true

	for _, line := range strings.Split(raw, "\n") {
		if !inHeaders {
			body = append(body, line)
			continue
		}

		if strings.TrimSpace(line) == "" {
			inHeaders = false
			continue
		}

		// folded header line
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			if current != "" {
				headers[current] += " " + strings.TrimSpace(line)
			}
			continue
		}

		name, value, found := strings.Cut(line, ":")
		if !found || name == "" {
			continue
		}
		current = strings.ToLower(strings.TrimSpace(name))
		headers[current] = strings.TrimSpace(value)
	}

	sender := headers["from"]
	if sender == "" {
		sender = headers["sender"]
	}

	return &Record{
		Sender:  ExtractAddress(sender),
		Subject: headers["subject"],
		Content: CleanBody(strings.Join(body, "\n")),
		Headers: headers,
	}
}

// Validate reports whether the record is usable for analysis
func (r *Record) Validate() error {
	if len(r.Headers) == 0 {
		return ErrNotEmail
	}
	if r.Sender == "" {
		return ErrMissingSender
	}
	return nil
}

// AnalysisInput returns the three strings the analyzer consumes
func (r *Record) AnalysisInput() core.AnalysisInput {
	return core.AnalysisInput{Sender: r.Sender, Subject: r.Subject, Content: r.Content}
}

// CleanBody decodes quoted-printable escapes, strips HTML tags and collapses
// whitespace
func CleanBody(body string) string {
	body = softLineBreak.ReplaceAllString(body, "")
	body = quotedPrintable.ReplaceAllStringFunc(body, decodeEscapes)
	return normalize(stripMarkup(body))
}

// decodeEscapes decodes a run of =XX escapes. Runs that are not valid UTF-8
// are read as Latin-1.
func decodeEscapes(run string) string {
	decoded := make([]byte, 0, len(run)/3)
	for i := 0; i+3 <= len(run); i += 3 {
		b, err := strconv.ParseUint(run[i+1:i+3], 16, 8)
		if err != nil {
			return run
		}
		decoded = append(decoded, byte(b))
	}
	if utf8.Valid(decoded) {
		return string(decoded)
	}
	latin1, err := charmap.ISO8859_1.NewDecoder().Bytes(decoded)
	if err != nil {
		return string(decoded)
	}
	return string(latin1)
}

func stripMarkup(body string) string {
	body = htmlTag.ReplaceAllString(body, " ")
	body = whitespaceRun.ReplaceAllString(body, " ")
	return strings.TrimSpace(body)
}

// normalize replaces ill-formed UTF-8 and folds compatibility forms so that
// full-width or stylised letters match the lexicon
func normalize(s string) string {
	out, _, err := transform.String(transform.Chain(runes.ReplaceIllFormed(), norm.NFKC), s)
	if err != nil {
		return s
	}
	return out
}

// ExtractAddress returns the bare address of a From field such as
// "Name <user@example.com>". Unrecognised input is returned trimmed.
func ExtractAddress(field string) string {
	if m := angleAddress.FindStringSubmatch(field); m != nil {
		return m[1]
	}
	if m := bareEmailAddress.FindStringSubmatch(field); m != nil {
		return m[1]
	}
	return strings.TrimSpace(field)
}

// ValidateFile checks an upload by name and content type
func ValidateFile(name, contentType string) error {
	if strings.EqualFold(filepath.Ext(name), ".eml") {
		return nil
	}
	if strings.EqualFold(strings.TrimSpace(strings.Split(contentType, ";")[0]), "message/rfc822") {
		return nil
	}
	return ErrUnsupportedFile
}
