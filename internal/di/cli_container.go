package di

import (
	"flag"
	"strings"

	"go.uber.org/dig"
	"go.uber.org/zap"

	"github.com/mikey/spam-scorer/internal/config"
	"github.com/mikey/spam-scorer/internal/logging"
)

// CLIFlags contains all command line flags for the CLI application
type CLIFlags struct {
	// Analysis flags
	Method string
	Format string

	// Remote classifier flags
	Provider      string
	MaxTokens     int
	Temperature   float64
	TopP          float64
	MaxBodySize   int
	RemoteTimeout string

	// Bedrock flags
	BedrockRegion  string
	BedrockModelID string

	// Gemini flags
	GeminiAPIKey    string
	GeminiModelName string

	// OpenAI flags
	OpenAIAPIKey    string
	OpenAIModelName string
	OpenAIBaseURL   string

	// Sender flags
	Whitelist string

	// Input flags
	InputFile  string
	Verbose    bool
	JSONLog    bool
	ConfigFile string
}

// ParseFlags parses command line flags and returns a CLIFlags struct
func ParseFlags(args []string) (*CLIFlags, error) {
	flags := &CLIFlags{}
	fs := flag.NewFlagSet("spam-detector", flag.ContinueOnError)

	// Analysis flags
	fs.StringVar(&flags.Method, "method", "ai", "Analysis method (local, ai)")
	fs.StringVar(&flags.Format, "format", "text", "Output format (text, json)")

	// Remote classifier flags
	fs.StringVar(&flags.Provider, "provider", "none", "Remote classifier (none, bedrock, gemini, openai)")
	fs.IntVar(&flags.MaxTokens, "max-tokens", 1000, "Maximum tokens for the classifier response")
	fs.Float64Var(&flags.Temperature, "temperature", 0.1, "Temperature for classifier generation")
	fs.Float64Var(&flags.TopP, "top-p", 0.9, "Top-p for classifier generation")
	fs.IntVar(&flags.MaxBodySize, "max-body-size", 4096, "Maximum email body size sent to the classifier")
	fs.StringVar(&flags.RemoteTimeout, "remote-timeout", "10s", "Timeout for one remote classification")

	// Bedrock flags
	fs.StringVar(&flags.BedrockRegion, "bedrock-region", "us-east-1", "AWS region for Bedrock")
	fs.StringVar(&flags.BedrockModelID, "bedrock-model", "anthropic.claude-3-haiku-20240307-v1:0", "Bedrock model ID")

	// Gemini flags
	fs.StringVar(&flags.GeminiAPIKey, "gemini-api-key", "", "API key for Google Gemini")
	fs.StringVar(&flags.GeminiModelName, "gemini-model", "gemini-1.5-flash", "Gemini model name")

	// OpenAI flags
	fs.StringVar(&flags.OpenAIAPIKey, "openai-api-key", "", "API key for OpenAI")
	fs.StringVar(&flags.OpenAIModelName, "openai-model", "gpt-4o-mini", "OpenAI model name")
	fs.StringVar(&flags.OpenAIBaseURL, "openai-base-url", "", "Base URL of an OpenAI compatible API")

	// Sender flags
	fs.StringVar(&flags.Whitelist, "whitelist", "", "Comma-separated list of trusted sender domains")

	// Input flags
	fs.StringVar(&flags.InputFile, "file", "", "Input email file (use stdin if not specified)")
	fs.BoolVar(&flags.Verbose, "verbose", false, "Enable verbose logging and body preview")
	fs.BoolVar(&flags.JSONLog, "json-log", false, "Output logs in JSON format")
	fs.StringVar(&flags.ConfigFile, "config", "", "Path to config file (overrides command line flags)")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return flags, nil
}

// BuildCLIContainer creates and configures a dependency injection container for the CLI application
func BuildCLIContainer(flags *CLIFlags) (*dig.Container, error) {
	container := dig.New()

	// Register flags
	if err := container.Provide(func() *CLIFlags { return flags }); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(func(flags *CLIFlags) (*zap.Logger, error) {
		return logging.InitConsoleLogger(flags.Verbose, flags.JSONLog)
	}); err != nil {
		return nil, err
	}

	// Register configuration
	if err := container.Provide(func(flags *CLIFlags, logger *zap.Logger) (*config.Config, error) {
		if flags.ConfigFile != "" {
			cfg, err := config.NewFromFile(flags.ConfigFile)
			if err != nil {
				return nil, err
			}
			applyCLIOverrides(cfg, flags)
			logger.Info("Loaded configuration from file", zap.String("file", cfg.GetViper().ConfigFileUsed()))
			return cfg, nil
		}

		// Create config from command line flags
		return createConfigFromFlags(flags), nil
	}); err != nil {
		return nil, err
	}

	if err := provideEngine(container); err != nil {
		return nil, err
	}

	return container, nil
}

// applyCLIOverrides forces the settings that always come from the command line
func applyCLIOverrides(cfg *config.Config, flags *CLIFlags) {
	cfg.Set("server.filter_type", "cli")
	cfg.Set("cli.verbose", flags.Verbose)
	cfg.Set("cli.format", flags.Format)
	cfg.Set("analysis.method", flags.Method)
}

// createConfigFromFlags creates a configuration from command line flags
func createConfigFromFlags(flags *CLIFlags) *config.Config {
	v := config.NewEmptyViper()

	// Set remote classifier
	v.Set("remote.provider", flags.Provider)
	v.Set("analysis.remote_timeout", flags.RemoteTimeout)

	// A one-shot run gains nothing from the verdict cache
	v.Set("cache.enabled", false)

	// Set provider-specific configuration
	switch flags.Provider {
	case config.ProviderBedrock:
		v.Set("bedrock.region", flags.BedrockRegion)
		v.Set("bedrock.model_id", flags.BedrockModelID)
		v.Set("bedrock.max_tokens", flags.MaxTokens)
		v.Set("bedrock.temperature", flags.Temperature)
		v.Set("bedrock.top_p", flags.TopP)
		v.Set("bedrock.max_body_size", flags.MaxBodySize)
	case config.ProviderGemini:
		v.Set("gemini.api_key", flags.GeminiAPIKey)
		v.Set("gemini.model_name", flags.GeminiModelName)
		v.Set("gemini.max_tokens", flags.MaxTokens)
		v.Set("gemini.temperature", flags.Temperature)
		v.Set("gemini.top_p", flags.TopP)
		v.Set("gemini.max_body_size", flags.MaxBodySize)
	case config.ProviderOpenAI:
		v.Set("openai.api_key", flags.OpenAIAPIKey)
		v.Set("openai.model_name", flags.OpenAIModelName)
		v.Set("openai.base_url", flags.OpenAIBaseURL)
		v.Set("openai.max_tokens", flags.MaxTokens)
		v.Set("openai.temperature", flags.Temperature)
		v.Set("openai.top_p", flags.TopP)
		v.Set("openai.max_body_size", flags.MaxBodySize)
	}

	// Set trusted sender domains
	if flags.Whitelist != "" {
		domains := strings.Split(flags.Whitelist, ",")
		for i, domain := range domains {
			domains[i] = strings.TrimSpace(domain)
		}
		v.Set("spam.whitelisted_domains", domains)
	}

	cfg := config.NewFromViper(v)
	applyCLIOverrides(cfg, flags)
	return cfg
}
