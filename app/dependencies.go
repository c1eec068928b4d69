package app

import (
	"context"
	"fmt"

	"github.com/upb/line-llm-relay/auth"
	"github.com/upb/line-llm-relay/config"
	"github.com/upb/line-llm-relay/middleware"
	"github.com/upb/line-llm-relay/services/line"
	"github.com/upb/line-llm-relay/services/providers"
	"github.com/upb/line-llm-relay/services/providers/gemini"
	"github.com/upb/line-llm-relay/services/providers/openai"
	"github.com/upb/line-llm-relay/services/relay"
	"github.com/upb/line-llm-relay/services/reply"
	"github.com/upb/line-llm-relay/services/routing"
	"go.uber.org/zap"
)

// Relay answers one prompt with one reply text
type Relay interface {
	Handle(ctx context.Context, prompt string) string
	Candidates() []routing.ModelCandidate
}

// Replier sends a reply through the messaging channel
type Replier interface {
	Reply(ctx context.Context, replyToken, text string) error
}

// ModelLister enumerates the models the configured backends offer
type ModelLister interface {
	ListModels(ctx context.Context) ([]providers.ModelInfo, error)
}

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config *config.Config
	Logger *zap.Logger

	// Providers
	Providers *providers.Registry
	Models    ModelLister

	// Relay core
	Routing *routing.RoutingService
	Relay   Relay

	// Messaging channel
	Replier Replier
	Trigger *line.Trigger

	// Auth
	Operator       *auth.OperatorValidator
	AuthMiddleware *middleware.AuthMiddleware
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initProviders(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize providers: %w", err)
	}

	if err := deps.initRelay(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize relay: %w", err)
	}

	deps.initLine(cfg)

	if err := deps.initAuth(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initProviders registers every backend with credentials. Gemini is always
// registered; DEFAULT_PROVIDER picks the backend for unprefixed candidate names.
func (d *Dependencies) initProviders(cfg *config.Config) error {
	registry := providers.NewRegistry()

	geminiProvider := gemini.NewGeminiAdapter(providers.ProviderConfig{
		APIKey:  cfg.Providers.Gemini.APIKey,
		BaseURL: cfg.Providers.Gemini.BaseURL,
		Timeout: cfg.Providers.Gemini.Timeout,
	})
	if err := registry.RegisterProvider(geminiProvider); err != nil {
		return err
	}
	if cfg.Providers.Gemini.APIKey == "" {
		d.Logger.Warn("gemini api key not set, upstream calls will be rejected")
	}

	if cfg.Providers.OpenAI.APIKey != "" {
		openAIProvider := openai.NewOpenAIAdapter(providers.ProviderConfig{
			APIKey:  cfg.Providers.OpenAI.APIKey,
			BaseURL: cfg.Providers.OpenAI.BaseURL,
			Timeout: cfg.Providers.OpenAI.Timeout,
		})
		if err := registry.RegisterProvider(openAIProvider); err != nil {
			return err
		}
	}

	if name := cfg.Providers.Default; name != "" {
		if err := registry.SetDefault(name); err != nil {
			return fmt.Errorf("default provider %q: %w", name, err)
		}
	}

	d.Providers = registry
	d.Models = registry
	d.Logger.Info("providers registered",
		zap.Strings("providers", registry.ListProviders()),
		zap.String("default", registry.DefaultProvider()))
	return nil
}

func (d *Dependencies) initRelay(cfg *config.Config) error {
	candidates, err := routing.NewCandidates(cfg.Relay.Candidates)
	if err != nil {
		return err
	}

	routingConfig := routing.DefaultRoutingConfig()
	routingConfig.StopOnUnauthorized = cfg.Relay.StopOnUnauthorized
	d.Routing = routing.NewRoutingService(routingConfig, d.Providers, d.Logger)

	d.Relay = relay.NewService(d.Routing, reply.NewComposer(cfg.Relay.ExcerptLimit), candidates, relay.Options{
		Instruction:     cfg.Relay.SystemInstruction,
		SearchEnabled:   cfg.Relay.SearchEnabled,
		Temperature:     cfg.Relay.Temperature,
		MaxOutputTokens: cfg.Relay.MaxOutputTokens,
	}, d.Logger)

	names := make([]string, len(candidates))
	for i, c := range candidates {
		names[i] = c.Name
	}
	d.Logger.Info("relay initialized",
		zap.Strings("candidates", names),
		zap.Bool("stop_on_unauthorized", cfg.Relay.StopOnUnauthorized),
		zap.Bool("search_enabled", cfg.Relay.SearchEnabled))
	return nil
}

func (d *Dependencies) initLine(cfg *config.Config) {
	d.Replier = line.NewClient(line.ClientConfig{
		ChannelAccessToken: cfg.Line.ChannelAccessToken,
		BaseURL:            cfg.Line.BaseURL,
		Timeout:            cfg.Line.Timeout,
	})
	d.Trigger = line.NewTrigger(cfg.Relay.TriggerPrefix)

	if cfg.Line.ChannelSecret == "" || cfg.Line.ChannelAccessToken == "" {
		d.Logger.Warn("line channel credentials incomplete, webhook calls will be rejected")
	}
	if prefix := d.Trigger.Prefix(); prefix != "" {
		d.Logger.Info("trigger prefix enabled", zap.String("prefix", prefix))
	}
}

func (d *Dependencies) initAuth(cfg *config.Config) error {
	if !cfg.AdminEnabled() {
		d.Logger.Warn("operator secret not configured, admin endpoints disabled")
		// reject-all validator so protected routes return 401
		d.AuthMiddleware = middleware.NewAuthMiddleware(&rejectAllValidator{}, d.Logger)
		return nil
	}

	validator, err := auth.NewOperatorValidator(auth.OperatorConfig{
		Secret: cfg.Operator.JWTSecret,
		Issuer: cfg.Operator.JWTIssuer,
	})
	if err != nil {
		return err
	}

	d.Operator = validator
	d.AuthMiddleware = middleware.NewAuthMiddleware(validator, d.Logger)
	d.Logger.Info("operator auth initialized", zap.String("issuer", cfg.Operator.JWTIssuer))
	return nil
}

// rejectAllValidator rejects all tokens (used when no operator secret is set)
type rejectAllValidator struct{}

func (*rejectAllValidator) ValidateToken(context.Context, string) (*middleware.Claims, error) {
	return nil, fmt.Errorf("authentication not configured")
}

// LogAvailableModels lists upstream models once, for operators checking
// candidate names at boot. Failures are logged, never fatal.
func (d *Dependencies) LogAvailableModels(ctx context.Context) {
	models, err := d.Models.ListModels(ctx)
	if err != nil {
		d.Logger.Warn("failed to list models", zap.Error(err))
		return
	}

	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	d.Logger.Info("available models", zap.Int("count", len(ids)), zap.Strings("models", ids))
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	return nil
}
