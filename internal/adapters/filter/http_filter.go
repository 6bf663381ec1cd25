package filter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mikey/spam-scorer/internal/analyzer"
	"github.com/mikey/spam-scorer/internal/config"
	"github.com/mikey/spam-scorer/internal/core"
	"github.com/mikey/spam-scorer/internal/mailparse"
	"github.com/mikey/spam-scorer/internal/ports"
	"go.uber.org/zap"
)

// TraceHeader carries the request trace id in both directions
const TraceHeader = "X-Trace-ID"

const traceKey = "trace_id"

// ErrEmptyEmail is returned when a request has neither subject nor content
var ErrEmptyEmail = errors.New("email has no subject or content")

// APIResponse is the envelope of every HTTP API response
type APIResponse struct {
	Status    string               `json:"status"`
	Code      int                  `json:"code"`
	Message   string               `json:"message,omitempty"`
	TraceID   string               `json:"trace_id"`
	Timestamp string               `json:"timestamp"`
	Result    *core.AnalysisResult `json:"result,omitempty"`
	Error     *ErrorInfo           `json:"error,omitempty"`
}

// ErrorInfo describes a failed request
type ErrorInfo struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// AnalyzeRequest is the JSON body of POST /v1/analyze
type AnalyzeRequest struct {
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Content string `json:"content"`
	Method  string `json:"method"`
}

// HTTPFilter exposes the analyzer as a JSON API
type HTTPFilter struct {
	analyzer    ports.Analyzer
	logger      *zap.Logger
	method      core.Method
	listenAddr  string
	maxBodySize int64
	engine      *gin.Engine

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewHTTPFilter creates the HTTP API and registers its routes
func NewHTTPFilter(analyzer ports.Analyzer, logger *zap.Logger, method core.Method, cfg config.HTTPConfig) *HTTPFilter {
	switch cfg.GinMode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		gin.SetMode(cfg.GinMode)
	}

	f := &HTTPFilter{
		analyzer:    analyzer,
		logger:      logger,
		method:      method,
		listenAddr:  cfg.ListenAddress,
		maxBodySize: cfg.MaxBodySize,
	}

	r := gin.New()
	r.Use(gin.Recovery(), f.traceMiddleware(), f.loggingMiddleware())
	r.GET("/healthz", f.handleHealth)
	v1 := r.Group("/v1")
	v1.POST("/analyze", f.handleAnalyze)
	v1.POST("/analyze/eml", f.handleAnalyzeEML)
	f.engine = r

	return f
}

// Handler returns the router, mainly for tests
func (f *HTTPFilter) Handler() http.Handler {
	return f.engine
}

// Start starts serving HTTP requests in the background
func (f *HTTPFilter) Start() error {
	listener, err := net.Listen("tcp", f.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", f.listenAddr, err)
	}

	srv := &http.Server{
		Handler:           f.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	f.mu.Lock()
	f.server = srv
	f.listener = listener
	f.mu.Unlock()

	f.logger.Info("HTTP API starting", zap.String("address", listener.Addr().String()))

	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			f.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Addr returns the bound listen address once started
func (f *HTTPFilter) Addr() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listener == nil {
		return f.listenAddr
	}
	return f.listener.Addr().String()
}

// Stop shuts the server down, waiting for in-flight requests
func (f *HTTPFilter) Stop() error {
	f.mu.Lock()
	srv := f.server
	f.mu.Unlock()
	if srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP server: %w", err)
	}
	f.logger.Info("HTTP API stopped")
	return nil
}

// ProcessEmail analyzes an extracted email with the default method
func (f *HTTPFilter) ProcessEmail(ctx context.Context, email *mailparse.Record) (*core.AnalysisResult, error) {
	return f.analyzer.Analyze(ctx, email.AnalysisInput(), f.method)
}

func (f *HTTPFilter) traceMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := c.GetHeader(TraceHeader)
		if traceID == "" {
			traceID = uuid.NewString()
		}
		c.Set(traceKey, traceID)
		c.Header(TraceHeader, traceID)
		if f.maxBodySize > 0 {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, f.maxBodySize)
		}
		c.Next()
	}
}

func (f *HTTPFilter) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		f.logger.Info("HTTP request",
			zap.String("trace_id", c.GetString(traceKey)),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (f *HTTPFilter) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, f.response(c, "success", http.StatusOK, "ok", nil, nil))
}

func (f *HTTPFilter) handleAnalyze(c *gin.Context) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		f.fail(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if strings.TrimSpace(req.Subject) == "" && strings.TrimSpace(req.Content) == "" {
		f.fail(c, http.StatusBadRequest, "Empty email", ErrEmptyEmail)
		return
	}

	method, err := f.resolveMethod(req.Method)
	if err != nil {
		f.fail(c, http.StatusBadRequest, "Invalid analysis method", err)
		return
	}

	record := &mailparse.Record{
		Sender:  mailparse.ExtractAddress(req.Sender),
		Subject: req.Subject,
		Content: req.Content,
	}
	f.analyze(c, record, method)
}

func (f *HTTPFilter) handleAnalyzeEML(c *gin.Context) {
	method, err := f.resolveMethod(c.Query("method"))
	if err != nil {
		f.fail(c, http.StatusBadRequest, "Invalid analysis method", err)
		return
	}

	raw, err := f.readMessage(c)
	if err != nil {
		f.fail(c, http.StatusBadRequest, "Invalid email upload", err)
		return
	}

	record, err := mailparse.ParseMIME(bytes.NewReader(raw))
	if err != nil {
		f.logger.Debug("Failed to decode MIME message, using plain parser",
			zap.String("trace_id", c.GetString(traceKey)),
			zap.Error(err))
		record = mailparse.Parse(string(raw))
	}
	if err := record.Validate(); err != nil {
		f.fail(c, http.StatusBadRequest, "Failed to parse email", err)
		return
	}

	f.analyze(c, record, method)
}

// readMessage accepts either a multipart upload in the "file" field or a raw
// message/rfc822 body
func (f *HTTPFilter) readMessage(c *gin.Context) ([]byte, error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		header, err := c.FormFile("file")
		if err != nil {
			return nil, fmt.Errorf("failed to read uploaded file: %w", err)
		}
		if err := mailparse.ValidateFile(header.Filename, header.Header.Get("Content-Type")); err != nil {
			return nil, err
		}
		file, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("failed to open uploaded file: %w", err)
		}
		defer file.Close()
		return io.ReadAll(file)
	}

	if err := mailparse.ValidateFile("", c.ContentType()); err != nil {
		return nil, err
	}
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return raw, nil
}

func (f *HTTPFilter) analyze(c *gin.Context, record *mailparse.Record, method core.Method) {
	result, err := f.analyzer.Analyze(c.Request.Context(), record.AnalysisInput(), method)
	if err != nil {
		f.logger.Error("Failed to analyze email",
			zap.String("trace_id", c.GetString(traceKey)),
			zap.Error(err))
		f.fail(c, http.StatusInternalServerError, "Analysis failed", err)
		return
	}

	c.JSON(http.StatusOK, f.response(c, "success", http.StatusOK, "Email analyzed", result, nil))
}

func (f *HTTPFilter) resolveMethod(name string) (core.Method, error) {
	if name == "" {
		return f.method, nil
	}
	return analyzer.ParseMethod(name)
}

func (f *HTTPFilter) fail(c *gin.Context, code int, message string, err error) {
	c.AbortWithStatusJSON(code, f.response(c, "error", code, message, nil, err))
}

func (f *HTTPFilter) response(c *gin.Context, status string, code int, message string, result *core.AnalysisResult, err error) APIResponse {
	resp := APIResponse{
		Status:    status,
		Code:      code,
		Message:   message,
		TraceID:   c.GetString(traceKey),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Result:    result,
	}

	if err != nil {
		errType := "unknown_error"
		switch code {
		case http.StatusBadRequest:
			errType = "invalid_request"
		case http.StatusInternalServerError:
			errType = "internal_error"
		}
		resp.Error = &ErrorInfo{
			Type:    errType,
			Message: err.Error(),
			Detail:  fmt.Sprintf("%+v", err),
		}
	}

	return resp
}
