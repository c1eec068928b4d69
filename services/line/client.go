package line

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultAPIBaseURL = "https://api.line.me"

	// MaxTextRunes is the Messaging API limit for one text message
	MaxTextRunes = 5000
)

// ClientConfig holds Messaging API client configuration
type ClientConfig struct {
	ChannelAccessToken string
	BaseURL            string
	Timeout            time.Duration
}

// Client sends replies through the Messaging API
type Client struct {
	config     ClientConfig
	httpClient *http.Client
}

// NewClient creates a new Messaging API client
func NewClient(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = defaultAPIBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// APIError is a non-2xx answer from the Messaging API
type APIError struct {
	StatusCode int
	Message    string
	RequestID  string
}

func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("line api: %d %s (request %s)", e.StatusCode, e.Message, e.RequestID)
	}
	return fmt.Sprintf("line api: %d %s", e.StatusCode, e.Message)
}

// ReplyRequest is the body of POST /v2/bot/message/reply
type ReplyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []TextMessage `json:"messages"`
}

// TextMessage is an outgoing text message
type TextMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Reply answers a webhook event with a single text message.
// Text longer than MaxTextRunes is truncated.
func (c *Client) Reply(ctx context.Context, replyToken, text string) error {
	body, err := json.Marshal(ReplyRequest{
		ReplyToken: replyToken,
		Messages:   []TextMessage{{Type: MessageTypeText, Text: TruncateText(text, MaxTextRunes)}},
	})
	if err != nil {
		return fmt.Errorf("marshal reply: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/v2/bot/message/reply", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create reply request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.ChannelAccessToken)
	req.Header.Set("X-Line-Retry-Key", uuid.NewString())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send reply: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    strings.TrimSpace(string(respBody)),
		RequestID:  resp.Header.Get("X-Line-Request-Id"),
	}
	var parsed struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(respBody, &parsed) == nil && parsed.Message != "" {
		apiErr.Message = parsed.Message
	}
	return apiErr
}

// TruncateText caps text at max runes
func TruncateText(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max])
}
