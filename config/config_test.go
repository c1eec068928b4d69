package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name: "default configuration",
			envVars: map[string]string{
				"ENVIRONMENT": "development",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 10000, cfg.Server.Port)
				assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 180*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, "https://api.line.me", cfg.Line.BaseURL)
				assert.Equal(t, 10*time.Second, cfg.Line.Timeout)
				assert.Equal(t, "https://generativelanguage.googleapis.com/v1beta", cfg.Providers.Gemini.BaseURL)
				assert.Equal(t, "gemini", cfg.Providers.Default)
				assert.Equal(t, []string{"gemini-2.5-flash", "gemini-2.0-flash"}, cfg.Relay.Candidates)
				assert.Equal(t, 80, cfg.Relay.ExcerptLimit)
				assert.Empty(t, cfg.Relay.TriggerPrefix)
				assert.False(t, cfg.Relay.StopOnUnauthorized)
				assert.False(t, cfg.Relay.SearchEnabled)
				assert.Equal(t, "line-llm-relay", cfg.Operator.JWTIssuer)
				assert.False(t, cfg.AdminEnabled())
				assert.Equal(t, "info", cfg.Observability.LogLevel)
				assert.Equal(t, "json", cfg.Observability.LogFormat)
			},
		},
		{
			name: "production configuration",
			envVars: map[string]string{
				"ENVIRONMENT":               "production",
				"PORT":                      "9000",
				"LINE_CHANNEL_ACCESS_TOKEN": "token",
				"LINE_CHANNEL_SECRET":       "secret",
				"GEMINI_API_KEY":            "key",
				"OPERATOR_JWT_SECRET":       "operator-secret",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.IsProduction())
				assert.False(t, cfg.IsDevelopment())
				assert.Equal(t, 9000, cfg.Server.Port)
				assert.Equal(t, "token", cfg.Line.ChannelAccessToken)
				assert.True(t, cfg.AdminEnabled())
			},
		},
		{
			name: "PORT wins over SERVER_PORT",
			envVars: map[string]string{
				"PORT":        "8080",
				"SERVER_PORT": "9090",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 8080, cfg.Server.Port)
			},
		},
		{
			name: "relay settings",
			envVars: map[string]string{
				"MODEL_CANDIDATES":             " gemini-2.5-pro , ,openai/gpt-4o-mini ",
				"SYSTEM_INSTRUCTION":           "Answer briefly.",
				"SEARCH_TOOL_ENABLED":          "true",
				"GENERATION_TEMPERATURE":       "0.4",
				"GENERATION_MAX_OUTPUT_TOKENS": "512",
				"TRIGGER_PREFIX":               "/ai",
				"REPLY_EXCERPT_LIMIT":          "40",
				"STOP_ON_UNAUTHORIZED":         "true",
				"LIST_MODELS_ON_STARTUP":       "true",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"gemini-2.5-pro", "openai/gpt-4o-mini"}, cfg.Relay.Candidates)
				assert.Equal(t, "Answer briefly.", cfg.Relay.SystemInstruction)
				assert.True(t, cfg.Relay.SearchEnabled)
				assert.Equal(t, 0.4, cfg.Relay.Temperature)
				assert.Equal(t, 512, cfg.Relay.MaxOutputTokens)
				assert.Equal(t, "/ai", cfg.Relay.TriggerPrefix)
				assert.Equal(t, 40, cfg.Relay.ExcerptLimit)
				assert.True(t, cfg.Relay.StopOnUnauthorized)
				assert.True(t, cfg.Relay.ListModelsOnStart)
			},
		},
		{
			name: "openai as default provider",
			envVars: map[string]string{
				"DEFAULT_PROVIDER": "openai",
				"OPENAI_API_KEY":   "sk-test",
				"MODEL_CANDIDATES": "gpt-4o-mini",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "openai", cfg.Providers.Default)
				assert.Equal(t, []string{"gpt-4o-mini"}, cfg.Relay.Candidates)
			},
		},
		{
			name: "custom timeouts",
			envVars: map[string]string{
				"SERVER_READ_TIMEOUT":  "60s",
				"SERVER_WRITE_TIMEOUT": "90s",
				"GEMINI_TIMEOUT":       "15s",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 90*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, 15*time.Second, cfg.Providers.Gemini.Timeout)
			},
		},
		{
			name: "console logging",
			envVars: map[string]string{
				"LOG_LEVEL":  "debug",
				"LOG_FORMAT": "console",
			},
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Observability.LogLevel)
				assert.Equal(t, "console", cfg.Observability.LogFormat)
			},
		},
		{
			name:    "candidate list of only separators",
			envVars: map[string]string{"MODEL_CANDIDATES": " , ,"},
			wantErr: true,
		},
		{
			name:    "unknown log format",
			envVars: map[string]string{"LOG_FORMAT": "logfmt"},
			wantErr: true,
		},
		{
			name:    "invalid line base url",
			envVars: map[string]string{"LINE_API_BASE_URL": "not a url"},
			wantErr: true,
		},
		{
			name: "production without line credentials",
			envVars: map[string]string{
				"ENVIRONMENT":    "production",
				"GEMINI_API_KEY": "key",
			},
			wantErr: true,
		},
		{
			name: "production without provider key",
			envVars: map[string]string{
				"ENVIRONMENT":               "production",
				"LINE_CHANNEL_ACCESS_TOKEN": "token",
				"LINE_CHANNEL_SECRET":       "secret",
			},
			wantErr: true,
		},
		{
			name:    "missing candidates file",
			envVars: map[string]string{"MODEL_CANDIDATES_FILE": "/nonexistent/candidates.yaml"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func TestNew_CandidatesFileOverridesList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "candidates.yaml")
	content := "candidates:\n  - gemini-2.5-pro\n  - \"  \"\n  - openai/gpt-4o-mini\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	os.Clearenv()
	os.Setenv("MODEL_CANDIDATES", "gemini-2.0-flash")
	os.Setenv("MODEL_CANDIDATES_FILE", path)

	cfg, err := New(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"gemini-2.5-pro", "openai/gpt-4o-mini"}, cfg.Relay.Candidates)
	assert.Equal(t, path, cfg.Relay.CandidatesFile)
}

func TestLoadCandidatesFile(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
		errMsg  string
	}{
		{
			name:    "ordered list",
			content: "candidates: [a, b, c]\n",
			want:    []string{"a", "b", "c"},
		},
		{
			name:    "empty list",
			content: "candidates: []\n",
			errMsg:  "lists no models",
		},
		{
			name:    "malformed yaml",
			content: "candidates: [a, b\n",
			errMsg:  "parse candidates file",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "c.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o600))

			got, err := LoadCandidatesFile(path)
			if tt.errMsg != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Server:      ServerConfig{Port: 10000},
		Line:        LineConfig{BaseURL: "https://api.line.me"},
		Providers: ProvidersConfig{
			Default: "gemini",
			Gemini:  GeminiConfig{BaseURL: "https://generativelanguage.googleapis.com/v1beta"},
			OpenAI:  OpenAIConfig{BaseURL: "https://api.openai.com/v1"},
		},
		Relay: RelayConfig{
			Candidates:   []string{"gemini-2.5-flash"},
			ExcerptLimit: 80,
		},
		Observability: ObservabilityConfig{LogLevel: "info", LogFormat: "json"},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:   "valid development config",
			mutate: func(*Config) {},
		},
		{
			name:    "no candidates",
			mutate:  func(c *Config) { c.Relay.Candidates = nil },
			wantErr: true,
			errMsg:  "Relay.Candidates",
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: true,
			errMsg:  "Server.Port",
		},
		{
			name:    "unknown default provider",
			mutate:  func(c *Config) { c.Providers.Default = "mistral" },
			wantErr: true,
			errMsg:  "Providers.Default",
		},
		{
			name:    "openai default without key",
			mutate:  func(c *Config) { c.Providers.Default = "openai" },
			wantErr: true,
			errMsg:  "openai api key is required",
		},
		{
			name: "openai default with key",
			mutate: func(c *Config) {
				c.Providers.Default = "openai"
				c.Providers.OpenAI.APIKey = "sk"
			},
		},
		{
			name:    "zero excerpt limit",
			mutate:  func(c *Config) { c.Relay.ExcerptLimit = 0 },
			wantErr: true,
			errMsg:  "Relay.ExcerptLimit",
		},
		{
			name: "production requires line token",
			mutate: func(c *Config) {
				c.Environment = "production"
				c.Providers.Gemini.APIKey = "key"
			},
			wantErr: true,
			errMsg:  "line channel access token is required",
		},
		{
			name: "production with openai only",
			mutate: func(c *Config) {
				c.Environment = "prod"
				c.Line.ChannelAccessToken = "token"
				c.Line.ChannelSecret = "secret"
				c.Providers.OpenAI.APIKey = "sk"
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.Validate()

			if tt.wantErr {
				require.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"dev", "dev", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"development", "development", true},
		{"dev", "dev", true},
		{"production", "production", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsDevelopment())
		})
	}
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{
		Host: "0.0.0.0",
		Port: 10000,
	}

	assert.Equal(t, "0.0.0.0:10000", cfg.Address())
}

func TestGetEnvAsList(t *testing.T) {
	tests := []struct {
		name         string
		value        string
		defaultValue string
		want         []string
	}{
		{"comma separated", "a,b,c", "x", []string{"a", "b", "c"}},
		{"trims and drops blanks", " a , ,b ", "x", []string{"a", "b"}},
		{"empty uses default", "", "x,y", []string{"x", "y"}},
		{"only separators", ",,", "x", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv("TEST_LIST", tt.value)
			}
			assert.Equal(t, tt.want, getEnvAsList("TEST_LIST", tt.defaultValue))
		})
	}
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "TEST_INT", "42", 10, 42},
		{"empty value", "TEST_INT", "", 10, 10},
		{"invalid int", "TEST_INT", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
			}
			got := getEnvAsInt(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "TEST_BOOL", "true", false, true},
		{"false", "TEST_BOOL", "false", true, false},
		{"empty value", "TEST_BOOL", "", true, true},
		{"invalid bool", "TEST_BOOL", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
			}
			got := getEnvAsBool(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsFloat(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue float64
		want         float64
	}{
		{"valid float", "TEST_FLOAT", "3.14", 1.0, 3.14},
		{"empty value", "TEST_FLOAT", "", 1.0, 1.0},
		{"invalid float", "TEST_FLOAT", "not-a-number", 1.0, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
			}
			got := getEnvAsFloat(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"valid duration", "TEST_DURATION", "30s", 10 * time.Second, 30 * time.Second},
		{"empty value", "TEST_DURATION", "", 10 * time.Second, 10 * time.Second},
		{"invalid duration", "TEST_DURATION", "not-a-duration", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
			}
			got := getEnvAsDuration(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}
