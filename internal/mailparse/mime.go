package mailparse

import (
	"fmt"
	"io"
	"strings"

	"github.com/jhillyerd/enmime"
)

// ParseMIME decodes a full RFC 5322 message, including multipart bodies,
// transfer encodings and encoded-word headers. The plain text part is
// preferred; the HTML part is used with its tags stripped otherwise.
func ParseMIME(r io.Reader) (*Record, error) {
	env, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read MIME message: %w", err)
	}

	headers := make(map[string]string)
	for _, key := range env.GetHeaderKeys() {
		headers[strings.ToLower(key)] = env.GetHeader(key)
	}
	if len(headers) == 0 {
		return nil, ErrNotEmail
	}

	sender := env.GetHeader("From")
	if sender == "" {
		sender = env.GetHeader("Sender")
	}

	body := env.Text
	if strings.TrimSpace(body) == "" {
		body = env.HTML
	}

	names := make([]string, 0, len(env.Attachments))
	for _, a := range env.Attachments {
		if a.FileName != "" {
			names = append(names, a.FileName)
		}
	}

	return &Record{
		Sender:          ExtractAddress(sender),
		Subject:         env.GetHeader("Subject"),
		Content:         normalize(stripMarkup(body)),
		Headers:         headers,
		AttachmentNames: names,
	}, nil
}
