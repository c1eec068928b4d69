package line

import (
	"encoding/json"
	"fmt"

	"github.com/upb/line-llm-relay/utils"
)

// Event and message types the relay cares about
const (
	EventTypeMessage = "message"
	MessageTypeText  = "text"
)

// WebhookRequest is the body LINE posts to the callback endpoint
type WebhookRequest struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events" validate:"dive"`
}

// Event is one webhook event. Only fields used by the relay are decoded.
type Event struct {
	Type            string           `json:"type" validate:"required"`
	Mode            string           `json:"mode,omitempty"`
	Timestamp       int64            `json:"timestamp"`
	ReplyToken      string           `json:"replyToken,omitempty"`
	WebhookEventID  string           `json:"webhookEventId,omitempty"`
	Source          *Source          `json:"source,omitempty"`
	Message         *Message         `json:"message,omitempty"`
	DeliveryContext *DeliveryContext `json:"deliveryContext,omitempty"`
}

// Source identifies where the event came from
type Source struct {
	Type    string `json:"type"`
	UserID  string `json:"userId,omitempty"`
	GroupID string `json:"groupId,omitempty"`
	RoomID  string `json:"roomId,omitempty"`
}

// Message is the message payload of a message event
type Message struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

// DeliveryContext tells whether the event is a redelivery
type DeliveryContext struct {
	IsRedelivery bool `json:"isRedelivery"`
}

// IsText reports whether the event is a text message that can be answered
func (e Event) IsText() bool {
	return e.Type == EventTypeMessage &&
		e.Message != nil &&
		e.Message.Type == MessageTypeText &&
		e.ReplyToken != ""
}

// IsRedelivery reports whether LINE marked the event as redelivered
func (e Event) IsRedelivery() bool {
	return e.DeliveryContext != nil && e.DeliveryContext.IsRedelivery
}

// ParseWebhook decodes and validates a webhook body
func ParseWebhook(body []byte) (*WebhookRequest, error) {
	var req WebhookRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}
	if err := utils.ValidateStruct(&req); err != nil {
		return nil, err
	}
	return &req, nil
}
