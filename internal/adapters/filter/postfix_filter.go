package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/mikey/spam-scorer/internal/config"
	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/mailparse"
	"github.com/mikey/spam-scorer/internal/ports"
	"go.uber.org/zap"
)

const defaultSubjectPrefix = "[**SPAM**] "

// PostfixFilter implements a Postfix after-queue content filter. Messages
// are analyzed, annotated with X-Spam headers and relayed back to Postfix.
type PostfixFilter struct {
	analyzer       ports.Analyzer
	logger         *zap.Logger
	method         core.Method
	listenAddr     string
	blockSpam      bool
	headers        config.HeaderNames
	relayAddr      string
	postfixEnabled bool
	subjectPrefix  string
	modifySubject  bool
	timeout        time.Duration

	mu       sync.Mutex
	server   *smtp.Server
	listener net.Listener
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(
	analyzer ports.Analyzer,
	logger *zap.Logger,
	method core.Method,
	cfg config.ServerConfig,
) *PostfixFilter {
	subjectPrefix := cfg.SubjectPrefix
	if subjectPrefix == "" && cfg.ModifySubject {
		subjectPrefix = defaultSubjectPrefix
	}

	timeout := cfg.AnalysisTimeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &PostfixFilter{
		analyzer:       analyzer,
		logger:         logger,
		method:         method,
		listenAddr:     cfg.ListenAddress,
		blockSpam:      cfg.BlockSpam,
		headers:        cfg.Headers,
		relayAddr:      net.JoinHostPort(cfg.PostfixAddress, fmt.Sprintf("%d", cfg.PostfixPort)),
		postfixEnabled: cfg.PostfixEnabled,
		subjectPrefix:  subjectPrefix,
		modifySubject:  cfg.ModifySubject,
		timeout:        timeout,
	}
}

// Start starts listening for SMTP connections from Postfix
func (f *PostfixFilter) Start() error {
	listener, err := net.Listen("tcp", f.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.listenAddr, err)
	}

	server := smtp.NewServer(&smtpBackend{filter: f})
	server.Addr = f.listenAddr
	server.Domain = "localhost"
	server.ReadTimeout = 30 * time.Second
	server.WriteTimeout = 30 * time.Second
	server.MaxMessageBytes = 30 * 1024 * 1024
	server.MaxRecipients = 50

	f.mu.Lock()
	f.server = server
	f.listener = listener
	f.mu.Unlock()

	f.logger.Info("Postfix filter starting", zap.String("address", listener.Addr().String()))

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, smtp.ErrServerClosed) {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound listen address once started
func (f *PostfixFilter) Addr() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listener == nil {
		return f.listenAddr
	}
	return f.listener.Addr().String()
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessEmail analyzes an extracted email with the configured method. When
// the deadline expires during enhanced analysis the local method is run
// instead, so every relayed message carries a classification.
func (f *PostfixFilter) ProcessEmail(ctx context.Context, email *mailparse.Record) (*core.AnalysisResult, error) {
	result, err := f.analyzer.Analyze(ctx, email.AnalysisInput(), f.method)
	if err == nil || f.method == core.MethodLocal || !errors.Is(err, context.DeadlineExceeded) {
		return result, err
	}

	f.logger.Warn("Analysis deadline exceeded, falling back to local analysis",
		zap.String("sender", email.Sender),
		zap.Duration("timeout", f.timeout),
		zap.Error(err))
	return f.analyzer.Analyze(context.WithoutCancel(ctx), email.AnalysisInput(), core.MethodLocal)
}

// extract prefers the MIME decoder and falls back to the line parser, which never fails
func (f *PostfixFilter) extract(raw []byte) *mailparse.Record {
	record, err := mailparse.ParseMIME(bytes.NewReader(raw))
	if err != nil {
		f.logger.Warn("Failed to decode MIME message, using plain parser", zap.Error(err))
		return mailparse.Parse(string(raw))
	}
	return record
}

func (f *PostfixFilter) shouldReject(result *core.AnalysisResult) bool {
	return f.blockSpam && result != nil && result.RiskLevel == core.RiskDangerous
}

// annotate prepends the spam headers to raw and rewrites the subject of
// flagged messages. The body is copied unchanged.
func (f *PostfixFilter) annotate(raw []byte, subject string, result *core.AnalysisResult, analysisErr error) []byte {
	var out bytes.Buffer
	flagged := result != nil && result.RiskLevel != core.RiskSafe

	if result != nil {
		fmt.Fprintf(&out, "%s: %t\r\n", f.headers.Spam, flagged)
		fmt.Fprintf(&out, "%s: %d\r\n", f.headers.Score, result.SpamScore)
		fmt.Fprintf(&out, "%s: %s\r\n", f.headers.Risk, result.RiskLevel)
		fmt.Fprintf(&out, "%s: %s\r\n", f.headers.Reason, headerValue(reason(result)))
	}
	if analysisErr != nil {
		fmt.Fprintf(&out, "X-Spam-Analysis-Error: %s\r\n", headerValue(analysisErr.Error()))
	}

	rewrite := flagged && f.modifySubject && f.subjectPrefix != "" && !strings.HasPrefix(subject, f.subjectPrefix)
	if !rewrite {
		out.Write(raw)
		return out.Bytes()
	}

	headerEnd := len(raw)
	if i := bytes.Index(raw, []byte("\r\n\r\n")); i >= 0 {
		headerEnd = i + 2
	} else if i := bytes.Index(raw, []byte("\n\n")); i >= 0 {
		headerEnd = i + 1
	}

	newSubject := mime.QEncoding.Encode("utf-8", f.subjectPrefix+subject)
	inSubject := false
	wroteSubject := false
	for _, line := range bytes.SplitAfter(raw[:headerEnd], []byte("\n")) {
		if inSubject && len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			continue
		}
		inSubject = false
		if len(line) >= 8 && strings.EqualFold(string(line[:8]), "subject:") {
			fmt.Fprintf(&out, "Subject: %s\r\n", newSubject)
			inSubject = true
			wroteSubject = true
			continue
		}
		out.Write(line)
	}
	if !wroteSubject {
		fmt.Fprintf(&out, "Subject: %s\r\n", newSubject)
	}
	out.Write(raw[headerEnd:])

	return out.Bytes()
}

// reason summarises the result for the reason header
func reason(result *core.AnalysisResult) string {
	if result.Reasoning != "" {
		return result.Reasoning
	}
	if len(result.Indicators) == 0 {
		return "No threat indicators"
	}
	descriptions := make([]string, 0, len(result.Indicators))
	for _, ind := range result.Indicators {
		descriptions = append(descriptions, ind.Description)
	}
	return strings.Join(descriptions, "; ")
}

// headerValue flattens s onto a single header line
func headerValue(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// sendToPostfix relays the processed email back to Postfix
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", f.relayAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}
	if !recipientOK {
		return errors.New("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}
	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	if err := c.Quit(); err != nil {
		// the message has already been accepted
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{
		filter: b.filter,
		id:     uuid.NewString(),
	}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	id         string
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data analyzes, annotates and relays one message
func (s *smtpSession) Data(r io.Reader) error {
	f := s.filter
	logger := f.logger.With(zap.String("session_id", s.id))

	raw, err := io.ReadAll(r)
	if err != nil {
		logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	record := f.extract(raw)
	if record.Sender == "" {
		record.Sender = s.sender
	}

	ctx, cancel := context.WithTimeout(context.Background(), f.timeout)
	defer cancel()

	result, analysisErr := f.ProcessEmail(ctx, record)
	if analysisErr != nil {
		logger.Error("Failed to analyze email",
			zap.Error(analysisErr),
			zap.String("sender", record.Sender))
	}

	if analysisErr == nil && f.shouldReject(result) {
		logger.Info("Rejecting spam email",
			zap.String("sender", record.Sender),
			zap.String("sender_domain", result.SenderAnalysis.Domain),
			zap.Int("spam_score", result.SpamScore),
			zap.String("risk_level", string(result.RiskLevel)))
		return &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as spam (score: %d)", result.SpamScore),
		}
	}

	annotated := f.annotate(raw, record.Subject, result, analysisErr)

	if f.postfixEnabled {
		if err := f.sendToPostfix(s.sender, s.recipients, annotated); err != nil {
			logger.Error("Failed to send email back to Postfix",
				zap.Error(err),
				zap.String("sender", record.Sender))
			return err
		}
	} else {
		logger.Warn("Postfix forwarding disabled, message accepted without relay")
	}

	if result != nil {
		logger.Info("Processed email",
			zap.String("sender", record.Sender),
			zap.String("sender_domain", result.SenderAnalysis.Domain),
			zap.Int("spam_score", result.SpamScore),
			zap.String("risk_level", string(result.RiskLevel)),
			zap.String("method", string(result.AnalysisMethod)))
	}

	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
