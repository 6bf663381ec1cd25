package filter

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/mikey/spam-scorer/internal/analyzer"
	"github.com/mikey/spam-scorer/internal/config"
	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/detection"
	"github.com/mikey/spam-scorer/internal/mailparse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAnalyzer returns a canned result and records its inputs
type fakeAnalyzer struct {
	mu      sync.Mutex
	result  *core.AnalysisResult
	err     error
	inputs  []core.AnalysisInput
	methods []core.Method
}

func (a *fakeAnalyzer) Analyze(_ context.Context, input core.AnalysisInput, method core.Method) (*core.AnalysisResult, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inputs = append(a.inputs, input)
	a.methods = append(a.methods, method)
	if a.err != nil {
		return nil, a.err
	}
	r := *a.result
	return &r, nil
}

func (a *fakeAnalyzer) calls() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.inputs)
}

func testServerConfig() config.ServerConfig {
	return config.ServerConfig{
		ListenAddress: "127.0.0.1:0",
		Headers: config.HeaderNames{
			Spam:   "X-Spam-Status",
			Score:  "X-Spam-Score",
			Risk:   "X-Spam-Risk",
			Reason: "X-Spam-Reason",
		},
		PostfixAddress:  "127.0.0.1",
		PostfixPort:     10026,
		SubjectPrefix:   "[SPAM] ",
		ModifySubject:   true,
		AnalysisTimeout: 5 * time.Second,
	}
}

func dangerousResult() *core.AnalysisResult {
	return &core.AnalysisResult{
		SpamScore: 85,
		RiskLevel: core.RiskDangerous,
		Indicators: []core.Indicator{
			{Type: core.IndicatorPhishing, Severity: core.SeverityHigh, Description: "Phishing keywords detected"},
			{Type: core.IndicatorUrgency, Severity: core.SeverityMedium, Description: "Urgent language detected"},
		},
		SenderAnalysis: core.SenderAnalysis{Domain: "fake-bank.com", Reputation: core.ReputationSuspicious},
		AnalysisMethod: core.MethodLocal,
		Confidence:     75,
	}
}

func safeResult() *core.AnalysisResult {
	return &core.AnalysisResult{
		SpamScore:      0,
		RiskLevel:      core.RiskSafe,
		Indicators:     []core.Indicator{},
		SenderAnalysis: core.SenderAnalysis{Domain: "gmail.com", Reputation: core.ReputationGood, Verified: true},
		AnalysisMethod: core.MethodLocal,
		Confidence:     75,
	}
}

const rawMessage = "From: Alerts <alerts@fake-bank.com>\r\n" +
	"To: user@example.com\r\n" +
	"Subject: Verify your\r\n" +
	" account\r\n" +
	"\r\n" +
	"Click here now: http://bit.ly/x\r\n"

func TestAnnotate_FlaggedRewritesSubject(t *testing.T) {
	f := NewPostfixFilter(&fakeAnalyzer{}, zap.NewNop(), core.MethodLocal, testServerConfig())

	out := string(f.annotate([]byte(rawMessage), "Verify your account", dangerousResult(), nil))

	assert.True(t, strings.HasPrefix(out, "X-Spam-Status: true\r\nX-Spam-Score: 85\r\nX-Spam-Risk: dangerous\r\n"))
	assert.Contains(t, out, "X-Spam-Reason: Phishing keywords detected; Urgent language detected\r\n")
	assert.Contains(t, out, "Subject: [SPAM] Verify your account\r\n")
	assert.NotContains(t, out, "Subject: Verify your\r\n")
	assert.Equal(t, 1, strings.Count(out, "Subject:"))
	assert.True(t, strings.HasSuffix(out, "\r\n\r\nClick here now: http://bit.ly/x\r\n"))
}

func TestAnnotate_SafeLeavesMessage(t *testing.T) {
	f := NewPostfixFilter(&fakeAnalyzer{}, zap.NewNop(), core.MethodLocal, testServerConfig())

	out := string(f.annotate([]byte(rawMessage), "Verify your account", safeResult(), nil))

	assert.True(t, strings.HasPrefix(out, "X-Spam-Status: false\r\n"))
	assert.Contains(t, out, "X-Spam-Reason: No threat indicators\r\n")
	assert.True(t, strings.HasSuffix(out, rawMessage))
}

func TestAnnotate_SubjectAlreadyPrefixed(t *testing.T) {
	f := NewPostfixFilter(&fakeAnalyzer{}, zap.NewNop(), core.MethodLocal, testServerConfig())
	raw := "Subject: [SPAM] hello\n\nbody\n"

	out := string(f.annotate([]byte(raw), "[SPAM] hello", dangerousResult(), nil))

	assert.True(t, strings.HasSuffix(out, raw))
	assert.NotContains(t, out, "[SPAM] [SPAM]")
}

func TestAnnotate_MissingSubjectIsAdded(t *testing.T) {
	f := NewPostfixFilter(&fakeAnalyzer{}, zap.NewNop(), core.MethodLocal, testServerConfig())
	raw := "From: a@fake-bank.com\n\nbody\n"

	out := string(f.annotate([]byte(raw), "", dangerousResult(), nil))

	assert.Contains(t, out, "From: a@fake-bank.com\nSubject: [SPAM] \r\n\nbody\n")
}

func TestAnnotate_UsesReasoningAndReportsError(t *testing.T) {
	f := NewPostfixFilter(&fakeAnalyzer{}, zap.NewNop(), core.MethodAI, testServerConfig())
	result := dangerousResult()
	result.Reasoning = "High confidence spam detection (95%).\nPrimary concerns: x"

	out := string(f.annotate([]byte(rawMessage), "Verify your account", result, nil))
	assert.Contains(t, out, "X-Spam-Reason: High confidence spam detection (95%). Primary concerns: x\r\n")

	out = string(f.annotate([]byte(rawMessage), "Verify your account", nil, errors.New("analysis\nfailed")))
	assert.True(t, strings.HasPrefix(out, "X-Spam-Analysis-Error: analysis failed\r\n"))
	assert.NotContains(t, out, "X-Spam-Status")
	assert.True(t, strings.HasSuffix(out, rawMessage))
}

func TestShouldReject(t *testing.T) {
	cfg := testServerConfig()
	f := NewPostfixFilter(&fakeAnalyzer{}, zap.NewNop(), core.MethodLocal, cfg)
	assert.False(t, f.shouldReject(dangerousResult()))

	cfg.BlockSpam = true
	f = NewPostfixFilter(&fakeAnalyzer{}, zap.NewNop(), core.MethodLocal, cfg)
	assert.True(t, f.shouldReject(dangerousResult()))
	assert.False(t, f.shouldReject(safeResult()))
	assert.False(t, f.shouldReject(nil))

	suspicious := dangerousResult()
	suspicious.RiskLevel = core.RiskSuspicious
	assert.False(t, f.shouldReject(suspicious))
}

func TestSession_AnalyzesWithoutRelay(t *testing.T) {
	analyzer := &fakeAnalyzer{result: safeResult()}
	f := NewPostfixFilter(analyzer, zap.NewNop(), core.MethodLocal, testServerConfig())

	session := &smtpSession{filter: f, id: "test"}
	require.NoError(t, session.Mail("envelope@fake-bank.com", nil))
	require.NoError(t, session.Rcpt("user@example.com", nil))

	raw := "To: user@example.com\r\nSubject: hi\r\n\r\nplain body\r\n"
	require.NoError(t, session.Data(strings.NewReader(raw)))

	require.Equal(t, 1, analyzer.calls())
	assert.Equal(t, "envelope@fake-bank.com", analyzer.inputs[0].Sender)
	assert.Equal(t, "hi", analyzer.inputs[0].Subject)
	assert.Contains(t, analyzer.inputs[0].Content, "plain body")
	assert.Equal(t, core.MethodLocal, analyzer.methods[0])
}

func TestSession_RejectsDangerous(t *testing.T) {
	cfg := testServerConfig()
	cfg.BlockSpam = true
	f := NewPostfixFilter(&fakeAnalyzer{result: dangerousResult()}, zap.NewNop(), core.MethodLocal, cfg)

	session := &smtpSession{filter: f, id: "test"}
	err := session.Data(strings.NewReader(rawMessage))

	var smtpErr *smtp.SMTPError
	require.ErrorAs(t, err, &smtpErr)
	assert.Equal(t, 550, smtpErr.Code)
	assert.Equal(t, smtp.EnhancedCode{5, 7, 1}, smtpErr.EnhancedCode)
}

// stalledClassifier blocks until the request context is done
type stalledClassifier struct {
	mu    sync.Mutex
	calls int
}

func (c *stalledClassifier) Classify(ctx context.Context, _ core.AnalysisInput) (*core.RemoteVerdict, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	<-ctx.Done()
	return nil, ctx.Err()
}

// methodRecorder wraps an analyzer and records the requested methods
type methodRecorder struct {
	mu      sync.Mutex
	next    *analyzer.Service
	methods []core.Method
	errs    []error
}

func (r *methodRecorder) Analyze(ctx context.Context, input core.AnalysisInput, method core.Method) (*core.AnalysisResult, error) {
	result, err := r.next.Analyze(ctx, input, method)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.methods = append(r.methods, method)
	r.errs = append(r.errs, err)
	return result, err
}

func stalledService(classifier core.RemoteClassifier) *analyzer.Service {
	remote := detection.NewRemoteDetector(classifier, nil, 0, 0, zap.NewNop())
	return analyzer.NewService(nil, detection.BaseSuite(), detection.EnhancedSuite(remote), zap.NewNop())
}

func TestProcessEmail_DeadlineFallsBackToLocal(t *testing.T) {
	classifier := &stalledClassifier{}
	recorder := &methodRecorder{next: stalledService(classifier)}
	cfg := testServerConfig()
	cfg.AnalysisTimeout = 50 * time.Millisecond
	f := NewPostfixFilter(recorder, zap.NewNop(), core.MethodAI, cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	result, err := f.ProcessEmail(ctx, mailparse.Parse(rawMessage))
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, core.MethodLocal, result.AnalysisMethod)
	assert.Equal(t, 75, result.Confidence)
	assert.Equal(t, 1, classifier.calls)

	require.Equal(t, []core.Method{core.MethodAI, core.MethodLocal}, recorder.methods)
	assert.ErrorIs(t, recorder.errs[0], context.DeadlineExceeded)
	assert.NoError(t, recorder.errs[1])
}

func TestProcessEmail_OtherErrorsAreNotRetried(t *testing.T) {
	a := &fakeAnalyzer{err: errors.New("boom")}
	f := NewPostfixFilter(a, zap.NewNop(), core.MethodAI, testServerConfig())

	_, err := f.ProcessEmail(context.Background(), mailparse.Parse(rawMessage))
	assert.EqualError(t, err, "boom")
	assert.Equal(t, 1, a.calls())
}

func TestSession_StalledClassifierStillAnnotates(t *testing.T) {
	recorder := &methodRecorder{next: stalledService(&stalledClassifier{})}
	cfg := testServerConfig()
	cfg.AnalysisTimeout = 50 * time.Millisecond
	f := NewPostfixFilter(recorder, zap.NewNop(), core.MethodAI, cfg)

	session := &smtpSession{filter: f, id: "test"}
	require.NoError(t, session.Mail("alerts@fake-bank.com", nil))
	require.NoError(t, session.Rcpt("user@example.com", nil))
	require.NoError(t, session.Data(strings.NewReader(rawMessage)))

	require.Equal(t, []core.Method{core.MethodAI, core.MethodLocal}, recorder.methods)
	assert.NoError(t, recorder.errs[1])
}

// sinkBackend is a minimal SMTP server standing in for Postfix
type sinkBackend struct {
	mu       sync.Mutex
	messages [][]byte
	received chan struct{}
}

func (b *sinkBackend) NewSession(_ *smtp.Conn) (smtp.Session, error) {
	return &sinkSession{backend: b}, nil
}

type sinkSession struct {
	backend *sinkBackend
}

func (s *sinkSession) Reset()                                   {}
func (s *sinkSession) Logout() error                            { return nil }
func (s *sinkSession) Mail(_ string, _ *smtp.MailOptions) error { return nil }
func (s *sinkSession) Rcpt(_ string, _ *smtp.RcptOptions) error { return nil }

func (s *sinkSession) Data(r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.backend.mu.Lock()
	s.backend.messages = append(s.backend.messages, data)
	s.backend.mu.Unlock()
	s.backend.received <- struct{}{}
	return nil
}

func TestPostfixFilter_RelaysAnnotatedMessage(t *testing.T) {
	sink := &sinkBackend{received: make(chan struct{}, 1)}
	sinkServer := smtp.NewServer(sink)
	sinkServer.Domain = "localhost"
	sinkListener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	go sinkServer.Serve(sinkListener)
	defer sinkServer.Close()

	host, port, err := net.SplitHostPort(sinkListener.Addr().String())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)

	cfg := testServerConfig()
	cfg.PostfixEnabled = true
	cfg.PostfixAddress = host
	cfg.PostfixPort = portNum

	f := NewPostfixFilter(&fakeAnalyzer{result: dangerousResult()}, zap.NewNop(), core.MethodLocal, cfg)
	require.NoError(t, f.Start())
	defer f.Stop()

	c, err := smtp.Dial(f.Addr())
	require.NoError(t, err)
	defer c.Close()
	require.NoError(t, c.SendMail("alerts@fake-bank.com", []string{"user@example.com"}, strings.NewReader(rawMessage)))

	select {
	case <-sink.received:
	case <-time.After(5 * time.Second):
		t.Fatal("relayed message not received")
	}

	sink.mu.Lock()
	defer sink.mu.Unlock()
	require.Len(t, sink.messages, 1)
	relayed := sink.messages[0]
	assert.True(t, bytes.HasPrefix(relayed, []byte("X-Spam-Status: true\r\n")))
	assert.Contains(t, string(relayed), "Subject: [SPAM] Verify your account")
	assert.Contains(t, string(relayed), "Click here now: http://bit.ly/x")
}
