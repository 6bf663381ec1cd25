package config

import (
	"fmt"
	"strings"
	"time"
)

// Supported remote classifier providers
const (
	ProviderNone    = "none"
	ProviderBedrock = "bedrock"
	ProviderGemini  = "gemini"
	ProviderOpenAI  = "openai"
)

// AnalysisConfig selects the default pipeline
type AnalysisConfig struct {
	Method        string
	RemoteTimeout time.Duration
}

// RemoteConfig selects the optional network-backed classifier
type RemoteConfig struct {
	Provider string
}

// BedrockConfig represents the configuration for Amazon Bedrock
type BedrockConfig struct {
	Region      string
	ModelID     string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// GeminiConfig represents the configuration for Google Gemini
type GeminiConfig struct {
	APIKey      string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// OpenAIConfig represents the configuration for OpenAI
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	ModelName   string
	MaxTokens   int
	Temperature float32
	TopP        float32
	MaxBodySize int
}

// CacheConfig controls the remote verdict cache
type CacheConfig struct {
	Enabled          bool
	TTL              time.Duration
	CleanupFrequency time.Duration
}

// HeaderNames are the headers added to filtered messages
type HeaderNames struct {
	Spam   string
	Score  string
	Risk   string
	Reason string
}

// ServerConfig configures the mail filter daemon
type ServerConfig struct {
	FilterType      string
	ListenAddress   string
	BlockSpam       bool
	Headers         HeaderNames
	PostfixAddress  string
	PostfixPort     int
	PostfixEnabled  bool
	SubjectPrefix   string
	ModifySubject   bool
	AnalysisTimeout time.Duration
}

// HTTPConfig configures the HTTP API
type HTTPConfig struct {
	ListenAddress string
	GinMode       string
	MaxBodySize   int64
}

// LoggingConfig configures the logger
type LoggingConfig struct {
	Level  string
	Format string
}

// GetAnalysis returns the analysis configuration
func (c *Config) GetAnalysis() (AnalysisConfig, error) {
	timeout, err := c.GetDuration("analysis.remote_timeout")
	if err != nil {
		return AnalysisConfig{}, err
	}
	return AnalysisConfig{
		Method:        strings.ToLower(c.GetString("analysis.method")),
		RemoteTimeout: timeout,
	}, nil
}

// GetRemote returns the remote classifier configuration
func (c *Config) GetRemote() (RemoteConfig, error) {
	provider := strings.ToLower(strings.TrimSpace(c.GetString("remote.provider")))
	if provider == "" {
		provider = ProviderNone
	}
	switch provider {
	case ProviderNone, ProviderBedrock, ProviderGemini, ProviderOpenAI:
		return RemoteConfig{Provider: provider}, nil
	default:
		return RemoteConfig{}, fmt.Errorf("unsupported remote provider: %s", provider)
	}
}

// GetWhitelistedDomains returns operator-trusted sender domains
func (c *Config) GetWhitelistedDomains() []string {
	return c.GetStringSlice("spam.whitelisted_domains")
}

// GetBedrock returns the Bedrock configuration
func (c *Config) GetBedrock() BedrockConfig {
	return BedrockConfig{
		Region:      c.GetString("bedrock.region"),
		ModelID:     c.GetString("bedrock.model_id"),
		MaxTokens:   c.GetInt("bedrock.max_tokens"),
		Temperature: float32(c.GetFloat64("bedrock.temperature")),
		TopP:        float32(c.GetFloat64("bedrock.top_p")),
		MaxBodySize: c.GetInt("bedrock.max_body_size"),
	}
}

// GetGemini returns the Gemini configuration
func (c *Config) GetGemini() GeminiConfig {
	return GeminiConfig{
		APIKey:      c.GetString("gemini.api_key"),
		ModelName:   c.GetString("gemini.model_name"),
		MaxTokens:   c.GetInt("gemini.max_tokens"),
		Temperature: float32(c.GetFloat64("gemini.temperature")),
		TopP:        float32(c.GetFloat64("gemini.top_p")),
		MaxBodySize: c.GetInt("gemini.max_body_size"),
	}
}

// GetOpenAI returns the OpenAI configuration
func (c *Config) GetOpenAI() OpenAIConfig {
	return OpenAIConfig{
		APIKey:      c.GetString("openai.api_key"),
		BaseURL:     c.GetString("openai.base_url"),
		ModelName:   c.GetString("openai.model_name"),
		MaxTokens:   c.GetInt("openai.max_tokens"),
		Temperature: float32(c.GetFloat64("openai.temperature")),
		TopP:        float32(c.GetFloat64("openai.top_p")),
		MaxBodySize: c.GetInt("openai.max_body_size"),
	}
}

// GetCache returns the cache configuration
func (c *Config) GetCache() (CacheConfig, error) {
	ttl, err := c.GetDuration("cache.ttl")
	if err != nil {
		return CacheConfig{}, err
	}
	cleanup, err := c.GetDuration("cache.cleanup_frequency")
	if err != nil {
		return CacheConfig{}, err
	}
	return CacheConfig{
		Enabled:          c.GetBool("cache.enabled"),
		TTL:              ttl,
		CleanupFrequency: cleanup,
	}, nil
}

// GetServer returns the mail filter configuration
func (c *Config) GetServer() (ServerConfig, error) {
	timeout, err := c.GetDuration("server.analysis_timeout")
	if err != nil {
		return ServerConfig{}, err
	}
	return ServerConfig{
		FilterType:    strings.ToLower(c.GetString("server.filter_type")),
		ListenAddress: c.GetString("server.listen_address"),
		BlockSpam:     c.GetBool("server.block_spam"),
		Headers: HeaderNames{
			Spam:   c.GetString("server.headers.spam"),
			Score:  c.GetString("server.headers.score"),
			Risk:   c.GetString("server.headers.risk"),
			Reason: c.GetString("server.headers.reason"),
		},
		PostfixAddress:  c.GetString("server.postfix.address"),
		PostfixPort:     c.GetInt("server.postfix.port"),
		PostfixEnabled:  c.GetBool("server.postfix.enabled"),
		SubjectPrefix:   c.GetString("server.subject_prefix"),
		ModifySubject:   c.GetBool("server.modify_subject"),
		AnalysisTimeout: timeout,
	}, nil
}

// GetHTTP returns the HTTP API configuration
func (c *Config) GetHTTP() HTTPConfig {
	return HTTPConfig{
		ListenAddress: c.GetString("http.listen_address"),
		GinMode:       c.GetString("http.gin_mode"),
		MaxBodySize:   c.v.GetInt64("http.max_body_size"),
	}
}

// GetLogging returns the logging configuration
func (c *Config) GetLogging() LoggingConfig {
	return LoggingConfig{
		Level:  c.GetString("logging.level"),
		Format: c.GetString("logging.format"),
	}
}
