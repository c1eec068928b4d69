package relay

import (
	"context"

	"github.com/upb/line-llm-relay/services/providers"
	"github.com/upb/line-llm-relay/services/reply"
	"github.com/upb/line-llm-relay/services/routing"
	"go.uber.org/zap"
)

// Resolver runs the fallback walk for one request
type Resolver interface {
	Resolve(ctx context.Context, req providers.GenerationRequest, candidates []routing.ModelCandidate) routing.FallbackResult
}

// Options are the per-deployment generation settings applied to every message
type Options struct {
	Instruction     string
	SearchEnabled   bool
	Temperature     float64
	MaxOutputTokens int
}

// Service turns one user prompt into one reply string
type Service struct {
	resolver   Resolver
	composer   *reply.Composer
	candidates []routing.ModelCandidate
	options    Options
	logger     *zap.Logger
}

// NewService creates a relay service. The candidate slice is copied and
// never mutated afterwards.
func NewService(resolver Resolver, composer *reply.Composer, candidates []routing.ModelCandidate, options Options, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		resolver:   resolver,
		composer:   composer,
		candidates: append([]routing.ModelCandidate(nil), candidates...),
		options:    options,
		logger:     logger,
	}
}

// Candidates returns a copy of the configured candidate list
func (s *Service) Candidates() []routing.ModelCandidate {
	return append([]routing.ModelCandidate(nil), s.candidates...)
}

// Handle answers a prompt. It never fails: every outcome becomes text.
func (s *Service) Handle(ctx context.Context, prompt string) string {
	req := providers.GenerationRequest{
		Text:            prompt,
		Instruction:     s.options.Instruction,
		SearchEnabled:   s.options.SearchEnabled,
		Temperature:     s.options.Temperature,
		MaxOutputTokens: s.options.MaxOutputTokens,
	}

	result := s.resolver.Resolve(ctx, req, s.candidates)
	s.logger.Debug("relay resolved", zap.Stringer("result", result))

	return s.composer.Compose(result)
}
