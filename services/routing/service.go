package routing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/upb/line-llm-relay/middleware"
	"github.com/upb/line-llm-relay/services/providers"
	"go.uber.org/zap"
)

// Generator performs one text generation against a named model
type Generator interface {
	Generate(ctx context.Context, model string, req providers.GenerationRequest) (string, error)
}

// RoutingConfig holds configuration for the fallback walk
type RoutingConfig struct {
	// StopOnUnauthorized ends the walk at the first rejected credential
	// instead of trying the remaining candidates.
	StopOnUnauthorized bool
}

// DefaultRoutingConfig returns the default configuration
func DefaultRoutingConfig() RoutingConfig {
	return RoutingConfig{
		StopOnUnauthorized: false,
	}
}

// RoutingService walks the ordered candidate list until one model answers
type RoutingService struct {
	config    RoutingConfig
	generator Generator
	logger    *zap.Logger
}

// NewRoutingService creates a new routing service
func NewRoutingService(config RoutingConfig, generator Generator, logger *zap.Logger) *RoutingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RoutingService{
		config:    config,
		generator: generator,
		logger:    logger,
	}
}

// Resolve tries each candidate once, in order, and returns exactly one result.
// The first non-empty answer wins. When every candidate fails the result
// carries the kind and raw message of the last failure.
func (s *RoutingService) Resolve(ctx context.Context, req providers.GenerationRequest, candidates []ModelCandidate) FallbackResult {
	requestID := middleware.GetRequestIDFromContext(ctx)

	if len(candidates) == 0 {
		s.logger.Error("no model candidates configured", zap.String("request_id", requestID))
		return Exhausted(KindOther, ErrNoCandidates.Error())
	}

	attempts := make([]Attempt, 0, len(candidates))
	var last Attempt

	for i, candidate := range candidates {
		start := time.Now()
		text, err := s.generator.Generate(ctx, candidate.Name, req)
		attempt := newAttempt(candidate, text, err, time.Since(start))
		attempts = append(attempts, attempt)

		if attempt.Succeeded() {
			s.logger.Info("candidate answered",
				zap.String("request_id", requestID),
				zap.String("candidate", candidate.Name),
				zap.Int("position", candidate.Position),
				zap.Duration("latency", attempt.Latency))

			result := Answered(text, candidate)
			result.Attempts = attempts
			return result
		}
		last = attempt

		remaining := len(candidates) - i - 1
		s.logger.Warn("candidate failed",
			zap.String("request_id", requestID),
			zap.String("candidate", candidate.Name),
			zap.Int("position", candidate.Position),
			zap.String("kind", string(last.Kind)),
			zap.Int("status", last.Status),
			zap.Duration("latency", last.Latency),
			zap.Int("remaining", remaining),
			zap.String("error", last.Raw))

		if last.Kind == KindUnauthorized && s.config.StopOnUnauthorized {
			break
		}
	}

	s.logger.Error("all candidates failed",
		zap.String("request_id", requestID),
		zap.String("kind", string(last.Kind)),
		zap.Int("attempts", len(attempts)))

	result := Exhausted(last.Kind, last.Raw)
	result.Attempts = attempts
	return result
}

// newAttempt records one call. A blank answer counts as a transient failure.
func newAttempt(candidate ModelCandidate, text string, err error, latency time.Duration) Attempt {
	attempt := Attempt{Candidate: candidate, Latency: latency}
	switch {
	case err != nil:
		attempt.Kind = Classify(err)
		attempt.Raw = err.Error()
		attempt.Status = providers.StatusCode(err)
	case strings.TrimSpace(text) == "":
		attempt.Kind = KindOther
		attempt.Raw = fmt.Sprintf("empty response from %s", candidate.Name)
	}
	return attempt
}
