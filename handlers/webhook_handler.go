package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/upb/line-llm-relay/app"
	"github.com/upb/line-llm-relay/middleware"
	"github.com/upb/line-llm-relay/services"
	"github.com/upb/line-llm-relay/services/line"
	"github.com/upb/line-llm-relay/utils"
	"go.uber.org/zap"
)

// WebhookHandler handles POST /callback. The signature has already been
// checked; every event is handled in order on the request goroutine and the
// webhook is acknowledged with a plain OK once all of them are done.
func WebhookHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := middleware.GetRequestIDFromContext(r.Context())
		logger := deps.Logger.With(zap.String("request_id", requestID))

		body, err := io.ReadAll(r.Body)
		if err != nil {
			HandleServiceError(w, services.WrapError(services.ErrorTypeValidation, "failed to read webhook body", err), logger)
			return
		}

		payload, err := line.ParseWebhook(body)
		if err != nil {
			logger.Warn("invalid webhook payload", zap.Error(err))
			if utils.IsValidationError(err) {
				HandleValidationError(w, err, logger)
				return
			}
			HandleServiceError(w, services.ErrInvalidPayload, logger)
			return
		}

		// upstream calls must outlive a caller that hangs up
		ctx := context.WithoutCancel(r.Context())

		for _, event := range payload.Events {
			handleEvent(ctx, deps, logger, event)
		}

		_ = utils.WriteText(w, http.StatusOK, "OK")
	}
}

func handleEvent(ctx context.Context, deps *app.Dependencies, logger *zap.Logger, event line.Event) {
	eventLogger := logger.With(
		zap.String("event_type", event.Type),
		zap.String("webhook_event_id", event.WebhookEventID))

	if !event.IsText() {
		eventLogger.Debug("ignoring non-text event")
		return
	}

	prompt, ok := deps.Trigger.Extract(event.Message.Text)
	if !ok {
		eventLogger.Debug("message not addressed to the bot")
		return
	}

	if event.IsRedelivery() {
		eventLogger.Info("handling redelivered event")
	}

	text := deps.Relay.Handle(ctx, prompt)

	if err := deps.Replier.Reply(ctx, event.ReplyToken, text); err != nil {
		eventLogger.Error("failed to deliver reply", zap.Error(err))
		return
	}

	eventLogger.Info("reply delivered", zap.Int("reply_runes", len([]rune(text))))
}
