package middleware

import (
	"bytes"
	"errors"
	"io"
	"net/http"

	"github.com/upb/line-llm-relay/services"
	"github.com/upb/line-llm-relay/services/line"
	"github.com/upb/line-llm-relay/utils"
	"go.uber.org/zap"
)

// MaxWebhookBodyBytes caps the webhook body read into memory
const MaxWebhookBodyBytes = 1 << 20

// VerifyLineSignature rejects webhook calls whose X-Line-Signature does not
// match the raw body. The verified body is handed on unchanged.
func VerifyLineSignature(channelSecret string, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := GetRequestIDFromContext(r.Context())

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxWebhookBodyBytes))
			if err != nil {
				var tooLarge *http.MaxBytesError
				if errors.As(err, &tooLarge) {
					logger.Warn("webhook body too large",
						zap.String("request_id", requestID),
						zap.Int64("limit", tooLarge.Limit))
					tooLargeErr := services.ErrBodyTooLarge.WithDetail("limit_bytes", tooLarge.Limit)
					_ = utils.WriteError(w, http.StatusRequestEntityTooLarge, tooLargeErr.Error(), tooLargeErr.Details)
					return
				}
				logger.Warn("failed to read webhook body",
					zap.String("request_id", requestID),
					zap.Error(err))
				_ = utils.WriteBadRequest(w, services.ErrInvalidPayload.Error(), nil)
				return
			}

			if err := line.VerifySignature(channelSecret, body, r.Header.Get(line.SignatureHeader)); err != nil {
				logger.Warn("webhook signature rejected",
					zap.String("request_id", requestID),
					zap.Error(err))
				_ = utils.WriteBadRequest(w, services.ErrInvalidSignature.Error(), nil)
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			r.ContentLength = int64(len(body))
			next.ServeHTTP(w, r)
		})
	}
}
