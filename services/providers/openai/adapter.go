package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/upb/line-llm-relay/services/providers"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
)

// OpenAIAdapter implements the Provider interface for OpenAI-compatible
// chat completion APIs
type OpenAIAdapter struct {
	config     providers.ProviderConfig
	httpClient *http.Client
}

// NewOpenAIAdapter creates a new OpenAI adapter
func NewOpenAIAdapter(config providers.ProviderConfig) *OpenAIAdapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &OpenAIAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (a *OpenAIAdapter) Name() string {
	return "openai"
}

// Generate performs a single chat completion request
func (a *OpenAIAdapter) Generate(ctx context.Context, model string, req providers.GenerationRequest) (string, error) {
	reqBody, err := json.Marshal(a.buildOpenAIRequest(model, req))
	if err != nil {
		return "", providers.NewProviderError(a.Name(), "MARSHAL_ERROR", "failed to marshal request", 0, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, a.config.BaseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", providers.NewProviderError(a.Name(), "REQUEST_ERROR", "failed to create request", 0, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	a.setHeaders(httpReq)

	respBody, status, err := a.do(httpReq)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", a.handleErrorResponse(status, respBody)
	}

	var openaiResp OpenAIChatResponse
	if err := json.Unmarshal(respBody, &openaiResp); err != nil {
		return "", providers.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "failed to unmarshal response", status, err)
	}
	if len(openaiResp.Choices) == 0 {
		return "", nil
	}
	return openaiResp.Choices[0].Message.Content, nil
}

// ListModels returns the models exposed by the upstream /models endpoint
func (a *OpenAIAdapter) ListModels(ctx context.Context) ([]providers.ModelInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, a.config.BaseURL+"/models", nil)
	if err != nil {
		return nil, providers.NewProviderError(a.Name(), "REQUEST_ERROR", "failed to create request", 0, err)
	}
	a.setHeaders(httpReq)

	respBody, status, err := a.do(httpReq)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, a.handleErrorResponse(status, respBody)
	}

	var list OpenAIModelList
	if err := json.Unmarshal(respBody, &list); err != nil {
		return nil, providers.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "failed to unmarshal model list", status, err)
	}

	models := make([]providers.ModelInfo, 0, len(list.Data))
	for _, m := range list.Data {
		models = append(models, providers.ModelInfo{ID: m.ID, Provider: a.Name()})
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

func (a *OpenAIAdapter) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}
}

func (a *OpenAIAdapter) do(req *http.Request) ([]byte, int, error) {
	httpResp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, providers.NewProviderError(a.Name(), "HTTP_ERROR", "HTTP request failed", 0, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, httpResp.StatusCode, providers.NewProviderError(a.Name(), "READ_ERROR", "failed to read response", httpResp.StatusCode, err)
	}
	return body, httpResp.StatusCode, nil
}

// buildOpenAIRequest converts the unified request to OpenAI format
func (a *OpenAIAdapter) buildOpenAIRequest(model string, req providers.GenerationRequest) *OpenAIChatRequest {
	openaiReq := &OpenAIChatRequest{Model: model}

	if req.Instruction != "" {
		openaiReq.Messages = append(openaiReq.Messages, OpenAIMessage{Role: "system", Content: req.Instruction})
	}
	openaiReq.Messages = append(openaiReq.Messages, OpenAIMessage{Role: "user", Content: req.Text})

	if req.MaxOutputTokens > 0 {
		maxTokens := req.MaxOutputTokens
		openaiReq.MaxTokens = &maxTokens
	}
	if req.Temperature > 0 {
		temperature := req.Temperature
		openaiReq.Temperature = &temperature
	}

	return openaiReq
}

// handleErrorResponse handles OpenAI error responses
func (a *OpenAIAdapter) handleErrorResponse(statusCode int, body []byte) error {
	var errResp OpenAIErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(statusCode)
		}
		return providers.NewProviderError(a.Name(), "UNKNOWN_ERROR", msg, statusCode, nil)
	}

	code := errResp.Error.Code
	if code == "" {
		code = errResp.Error.Type
	}

	return providers.NewProviderError(
		a.Name(),
		code,
		errResp.Error.Message,
		statusCode,
		errors.New(errResp.Error.Message),
	)
}

// OpenAI-specific request/response types

type OpenAIChatRequest struct {
	Model       string          `json:"model"`
	Messages    []OpenAIMessage `json:"messages"`
	MaxTokens   *int            `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type OpenAIMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type OpenAIChatResponse struct {
	ID      string         `json:"id"`
	Object  string         `json:"object"`
	Created int64          `json:"created"`
	Model   string         `json:"model"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
}

type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type OpenAIModelList struct {
	Data []OpenAIModel `json:"data"`
}

type OpenAIModel struct {
	ID      string `json:"id"`
	OwnedBy string `json:"owned_by"`
}

type OpenAIErrorResponse struct {
	Error OpenAIError `json:"error"`
}

type OpenAIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    string `json:"code"`
}
