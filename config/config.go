package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/upb/line-llm-relay/utils"
	"gopkg.in/yaml.v3"
)

// DefaultModelCandidates is the fallback order used when nothing is configured
const DefaultModelCandidates = "gemini-2.5-flash,gemini-2.0-flash"

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Line          LineConfig
	Providers     ProvidersConfig
	Relay         RelayConfig
	Operator      OperatorConfig
	Observability ObservabilityConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int `validate:"gte=1,lte=65535"`
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LineConfig holds the messaging channel credentials
type LineConfig struct {
	ChannelAccessToken string
	ChannelSecret      string
	BaseURL            string `validate:"required,url"`
	Timeout            time.Duration
}

// ProvidersConfig holds generative backend configurations
type ProvidersConfig struct {
	// Default receives candidate names without a provider prefix
	Default string `validate:"oneof=gemini openai"`
	Gemini  GeminiConfig
	OpenAI  OpenAIConfig
}

// GeminiConfig holds Gemini provider configuration
type GeminiConfig struct {
	APIKey  string
	BaseURL string `validate:"required,url"`
	Timeout time.Duration
}

// OpenAIConfig holds OpenAI-compatible provider configuration
type OpenAIConfig struct {
	APIKey  string
	BaseURL string `validate:"required,url"`
	Timeout time.Duration
}

// RelayConfig holds the fallback and reply settings
type RelayConfig struct {
	// Candidates is the ordered model list, highest priority first
	Candidates         []string `validate:"required,min=1"`
	CandidatesFile     string
	SystemInstruction  string
	SearchEnabled      bool
	Temperature        float64 `validate:"gte=0,lte=2"`
	MaxOutputTokens    int     `validate:"gte=0"`
	TriggerPrefix      string
	ExcerptLimit       int `validate:"gte=1"`
	StopOnUnauthorized bool
	ListModelsOnStart  bool
}

// OperatorConfig holds the bearer token settings for the admin endpoints.
// An empty secret disables them.
type OperatorConfig struct {
	JWTSecret string
	JWTIssuer string
}

// ObservabilityConfig holds logging configuration
type ObservabilityConfig struct {
	LogLevel  string `validate:"required,oneof=debug info warn error"`
	LogFormat string `validate:"required,oneof=json console"`
}

// candidatesFile is the YAML layout of MODEL_CANDIDATES_FILE
type candidatesFile struct {
	Candidates []string `yaml:"candidates"`
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 180*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Line: LineConfig{
			ChannelAccessToken: getEnv("LINE_CHANNEL_ACCESS_TOKEN", ""),
			ChannelSecret:      getEnv("LINE_CHANNEL_SECRET", ""),
			BaseURL:            getEnv("LINE_API_BASE_URL", "https://api.line.me"),
			Timeout:            getEnvAsDuration("LINE_TIMEOUT", 10*time.Second),
		},
		Providers: ProvidersConfig{
			Default: getEnv("DEFAULT_PROVIDER", "gemini"),
			Gemini: GeminiConfig{
				APIKey:  getEnv("GEMINI_API_KEY", ""),
				BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
				Timeout: getEnvAsDuration("GEMINI_TIMEOUT", 60*time.Second),
			},
			OpenAI: OpenAIConfig{
				APIKey:  getEnv("OPENAI_API_KEY", ""),
				BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
				Timeout: getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
			},
		},
		Relay: RelayConfig{
			Candidates:         getEnvAsList("MODEL_CANDIDATES", DefaultModelCandidates),
			CandidatesFile:     getEnv("MODEL_CANDIDATES_FILE", ""),
			SystemInstruction:  getEnv("SYSTEM_INSTRUCTION", ""),
			SearchEnabled:      getEnvAsBool("SEARCH_TOOL_ENABLED", false),
			Temperature:        getEnvAsFloat("GENERATION_TEMPERATURE", 0),
			MaxOutputTokens:    getEnvAsInt("GENERATION_MAX_OUTPUT_TOKENS", 0),
			TriggerPrefix:      getEnv("TRIGGER_PREFIX", ""),
			ExcerptLimit:       getEnvAsInt("REPLY_EXCERPT_LIMIT", 80),
			StopOnUnauthorized: getEnvAsBool("STOP_ON_UNAUTHORIZED", false),
			ListModelsOnStart:  getEnvAsBool("LIST_MODELS_ON_STARTUP", false),
		},
		Operator: OperatorConfig{
			JWTSecret: getEnv("OPERATOR_JWT_SECRET", ""),
			JWTIssuer: getEnv("OPERATOR_JWT_ISSUER", "line-llm-relay"),
		},
		Observability: ObservabilityConfig{
			LogLevel:  getEnv("LOG_LEVEL", "info"),
			LogFormat: getEnv("LOG_FORMAT", "json"),
		},
	}

	if cfg.Relay.CandidatesFile != "" {
		candidates, err := LoadCandidatesFile(cfg.Relay.CandidatesFile)
		if err != nil {
			return nil, err
		}
		cfg.Relay.Candidates = candidates
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadCandidatesFile reads an ordered candidate list from a YAML file
func LoadCandidatesFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read candidates file: %w", err)
	}

	var file candidatesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse candidates file %s: %w", path, err)
	}

	candidates := make([]string, 0, len(file.Candidates))
	for _, c := range file.Candidates {
		if c = strings.TrimSpace(c); c != "" {
			candidates = append(candidates, c)
		}
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("candidates file %s lists no models", path)
	}
	return candidates, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	if err := utils.ValidateStruct(c); err != nil {
		if fields := utils.GetValidationFields(err); len(fields) > 0 {
			return fmt.Errorf("%s: %v", err.Error(), fields)
		}
		return err
	}

	if len(c.Relay.Candidates) == 0 {
		return fmt.Errorf("at least one model candidate is required")
	}

	if c.Providers.Default == "openai" && c.Providers.OpenAI.APIKey == "" {
		return fmt.Errorf("openai api key is required when it is the default provider")
	}

	if c.IsProduction() {
		if c.Line.ChannelAccessToken == "" {
			return fmt.Errorf("line channel access token is required in production")
		}
		if c.Line.ChannelSecret == "" {
			return fmt.Errorf("line channel secret is required in production")
		}
		if c.Providers.Gemini.APIKey == "" && c.Providers.OpenAI.APIKey == "" {
			return fmt.Errorf("at least one model provider must be configured in production")
		}
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// AdminEnabled reports whether the operator endpoints can authenticate anyone
func (c *Config) AdminEnabled() bool {
	return c.Operator.JWTSecret != ""
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 10000)
func getPort() int {
	if value := os.Getenv("PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	if value := os.Getenv("SERVER_PORT"); value != "" {
		if p, err := strconv.Atoi(value); err == nil {
			return p
		}
	}
	return 10000
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma separated variable, dropping blank entries
func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
