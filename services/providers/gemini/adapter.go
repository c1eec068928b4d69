package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/upb/line-llm-relay/services/providers"
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

	providerName = "gemini"

	// maxResponseBytes caps how much of an upstream body is read
	maxResponseBytes = 8 << 20
)

// GeminiAdapter implements the Provider interface for the Gemini REST API
type GeminiAdapter struct {
	config     providers.ProviderConfig
	httpClient *http.Client
}

// NewGeminiAdapter creates a new Gemini adapter
func NewGeminiAdapter(config providers.ProviderConfig) *GeminiAdapter {
	if config.BaseURL == "" {
		config.BaseURL = defaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	return &GeminiAdapter{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// Name returns the provider name
func (a *GeminiAdapter) Name() string {
	return providerName
}

// Generate performs a single generateContent call. There is no retry here;
// falling back to another model is the caller's decision.
func (a *GeminiAdapter) Generate(ctx context.Context, model string, req providers.GenerationRequest) (string, error) {
	model = strings.TrimPrefix(model, "models/")
	if model == "" {
		return "", providers.NewProviderError(a.Name(), "INVALID_MODEL", "model name is empty", http.StatusNotFound, nil)
	}

	reqBody, err := json.Marshal(a.buildRequest(req))
	if err != nil {
		return "", providers.NewProviderError(a.Name(), "MARSHAL_ERROR", "failed to marshal request", 0, err)
	}

	endpoint := fmt.Sprintf("%s/models/%s:generateContent", a.config.BaseURL, url.PathEscape(model))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(reqBody))
	if err != nil {
		return "", providers.NewProviderError(a.Name(), "REQUEST_ERROR", "failed to create request", 0, err)
	}
	a.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	respBody, status, err := a.do(httpReq)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", a.handleErrorResponse(status, respBody)
	}

	var resp GenerateContentResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", providers.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "failed to unmarshal response", status, err)
	}

	if len(resp.Candidates) == 0 && resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", providers.NewProviderError(a.Name(), "BLOCKED", "prompt blocked: "+resp.PromptFeedback.BlockReason, 0, nil)
	}

	return resp.Text(), nil
}

// ListModels returns the models that support generateContent
func (a *GeminiAdapter) ListModels(ctx context.Context) ([]providers.ModelInfo, error) {
	var models []providers.ModelInfo
	pageToken := ""

	for {
		endpoint := a.config.BaseURL + "/models?pageSize=1000"
		if pageToken != "" {
			endpoint += "&pageToken=" + url.QueryEscape(pageToken)
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
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

		var page ListModelsResponse
		if err := json.Unmarshal(respBody, &page); err != nil {
			return nil, providers.NewProviderError(a.Name(), "UNMARSHAL_ERROR", "failed to unmarshal model list", status, err)
		}

		for _, m := range page.Models {
			if !m.supports("generateContent") {
				continue
			}
			models = append(models, providers.ModelInfo{
				ID:               strings.TrimPrefix(m.Name, "models/"),
				Provider:         a.Name(),
				DisplayName:      m.DisplayName,
				Description:      m.Description,
				InputTokenLimit:  m.InputTokenLimit,
				OutputTokenLimit: m.OutputTokenLimit,
			})
		}

		if page.NextPageToken == "" {
			return models, nil
		}
		pageToken = page.NextPageToken
	}
}

func (a *GeminiAdapter) setHeaders(req *http.Request) {
	req.Header.Set("x-goog-api-key", a.config.APIKey)
	for k, v := range a.config.Headers {
		req.Header.Set(k, v)
	}
}

func (a *GeminiAdapter) do(req *http.Request) ([]byte, int, error) {
	httpResp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, 0, providers.NewProviderError(a.Name(), "HTTP_ERROR", "HTTP request failed", 0, err)
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBytes))
	if err != nil {
		return nil, httpResp.StatusCode, providers.NewProviderError(a.Name(), "READ_ERROR", "failed to read response", httpResp.StatusCode, err)
	}
	return body, httpResp.StatusCode, nil
}

// buildRequest converts the unified request to the Gemini wire format
func (a *GeminiAdapter) buildRequest(req providers.GenerationRequest) *GenerateContentRequest {
	out := &GenerateContentRequest{
		Contents: []Content{
			{Role: "user", Parts: []Part{{Text: req.Text}}},
		},
	}

	if req.Instruction != "" {
		out.SystemInstruction = &Content{Parts: []Part{{Text: req.Instruction}}}
	}
	if req.SearchEnabled {
		out.Tools = []Tool{{GoogleSearch: &struct{}{}}}
	}
	if req.Temperature > 0 || req.MaxOutputTokens > 0 {
		cfg := &GenerationConfig{}
		if req.Temperature > 0 {
			t := req.Temperature
			cfg.Temperature = &t
		}
		if req.MaxOutputTokens > 0 {
			cfg.MaxOutputTokens = req.MaxOutputTokens
		}
		out.GenerationConfig = cfg
	}

	return out
}

// handleErrorResponse turns a non-200 body into a ProviderError. The error
// reason (e.g. API_KEY_INVALID) is kept in the message when present.
func (a *GeminiAdapter) handleErrorResponse(statusCode int, body []byte) error {
	var errResp ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Error.Message == "" {
		msg := strings.TrimSpace(string(body))
		if msg == "" {
			msg = http.StatusText(statusCode)
		}
		return providers.NewProviderError(a.Name(), "UNKNOWN_ERROR", msg, statusCode, nil)
	}

	message := errResp.Error.Message
	if reason := errResp.Error.reason(); reason != "" && !strings.Contains(message, reason) {
		message += " [" + reason + "]"
	}

	return providers.NewProviderError(a.Name(), errResp.Error.Status, message, statusCode, nil)
}

// Gemini-specific request/response types

type GenerateContentRequest struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	Tools             []Tool            `json:"tools,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type Part struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type Tool struct {
	GoogleSearch *struct{} `json:"google_search,omitempty"`
}

type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

type GenerateContentResponse struct {
	Candidates     []Candidate     `json:"candidates"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
}

// Text joins the non-thought text parts of the first candidate
func (r *GenerateContentResponse) Text() string {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range r.Candidates[0].Content.Parts {
		if part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

type Candidate struct {
	Content      *Content `json:"content,omitempty"`
	FinishReason string   `json:"finishReason,omitempty"`
}

type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type ListModelsResponse struct {
	Models        []Model `json:"models"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

type Model struct {
	Name                       string   `json:"name"`
	DisplayName                string   `json:"displayName"`
	Description                string   `json:"description"`
	InputTokenLimit            int      `json:"inputTokenLimit"`
	OutputTokenLimit           int      `json:"outputTokenLimit"`
	SupportedGenerationMethods []string `json:"supportedGenerationMethods"`
}

func (m Model) supports(method string) bool {
	for _, s := range m.SupportedGenerationMethods {
		if s == method {
			return true
		}
	}
	return false
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

type ErrorBody struct {
	Code    int           `json:"code"`
	Message string        `json:"message"`
	Status  string        `json:"status"`
	Details []ErrorDetail `json:"details,omitempty"`
}

type ErrorDetail struct {
	Type   string `json:"@type"`
	Reason string `json:"reason,omitempty"`
}

func (b ErrorBody) reason() string {
	for _, d := range b.Details {
		if d.Reason != "" {
			return d.Reason
		}
	}
	return ""
}
