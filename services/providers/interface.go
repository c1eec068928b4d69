package providers

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider represents a generative text backend
type Provider interface {
	// Name returns the provider name (e.g., "gemini", "openai")
	Name() string

	// Generate performs one completion against the given model and returns its text
	Generate(ctx context.Context, model string, req GenerationRequest) (string, error)

	// ListModels returns the models the upstream service currently offers
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// GenerationRequest is the immutable input for one inbound message.
// It is built once and shared by every candidate attempt.
type GenerationRequest struct {
	// Text is the user prompt
	Text string `json:"text"`

	// Instruction is an optional system instruction
	Instruction string `json:"instruction,omitempty"`

	// SearchEnabled attaches the live web-search grounding tool when the backend supports it
	SearchEnabled bool `json:"search_enabled,omitempty"`

	// Temperature controls randomness; zero leaves the backend default
	Temperature float64 `json:"temperature,omitempty"`

	// MaxOutputTokens limits the response length; zero leaves the backend default
	MaxOutputTokens int `json:"max_output_tokens,omitempty"`
}

// ModelInfo contains metadata about an upstream model
type ModelInfo struct {
	ID          string `json:"id"`
	Provider    string `json:"provider"`
	DisplayName string `json:"display_name,omitempty"`
	Description string `json:"description,omitempty"`

	InputTokenLimit  int `json:"input_token_limit,omitempty"`
	OutputTokenLimit int `json:"output_token_limit,omitempty"`
}

// ProviderConfig holds common configuration for providers
type ProviderConfig struct {
	// APIKey for authentication
	APIKey string

	// BaseURL for the API (optional override)
	BaseURL string

	// Timeout bounds one HTTP call
	Timeout time.Duration

	// Additional headers
	Headers map[string]string
}

// ProviderError represents an error from a provider.
// Error() always renders the HTTP status code when one is known so that
// callers classifying failures by message see it.
type ProviderError struct {
	// Provider that generated the error
	Provider string

	// Code is the upstream error code or status name
	Code string

	// Message is the error message
	Message string

	// StatusCode is the HTTP status code (if applicable)
	StatusCode int

	// Cause is the underlying error
	Cause error
}

// Error implements the error interface
func (e *ProviderError) Error() string {
	msg := e.Provider + ": "
	if e.StatusCode != 0 {
		msg += fmt.Sprintf("%d ", e.StatusCode)
	}
	if e.Code != "" {
		msg += e.Code + ": "
	}
	msg += e.Message
	if e.Cause != nil && e.Cause.Error() != e.Message {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap implements error unwrapping
func (e *ProviderError) Unwrap() error {
	return e.Cause
}

// NewProviderError creates a new provider error
func NewProviderError(provider, code, message string, statusCode int, cause error) *ProviderError {
	return &ProviderError{
		Provider:   provider,
		Code:       code,
		Message:    message,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

// StatusCode extracts the HTTP status of a provider error, or 0
func StatusCode(err error) int {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.StatusCode
	}
	return 0
}
