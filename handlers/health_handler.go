package handlers

import (
	"net/http"
	"time"

	"github.com/upb/line-llm-relay/app"
	"github.com/upb/line-llm-relay/utils"
	"go.uber.org/zap"
)

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles GET /healthz.
// Basic liveness check - always returns 200 if the process is serving.
func HealthCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteOK(w, HealthResponse{
			Status:    "healthy",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// ReadinessCheck handles GET /readyz. It only inspects local configuration;
// upstream services are never called.
func ReadinessCheck(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]string)
		ready := true

		check := func(name string, ok bool) {
			if ok {
				checks[name] = "healthy"
				return
			}
			checks[name] = "unhealthy"
			ready = false
		}

		cfg := deps.Config
		check("candidates", deps.Relay != nil && len(deps.Relay.Candidates()) > 0)
		check("line_credentials", cfg.Line.ChannelSecret != "" && cfg.Line.ChannelAccessToken != "")
		check("provider_credentials", cfg.Providers.Gemini.APIKey != "" || cfg.Providers.OpenAI.APIKey != "")

		status := "healthy"
		httpStatus := http.StatusOK
		if !ready {
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
		}

		response := HealthResponse{
			Status:    status,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Checks:    checks,
		}

		if err := utils.WriteJSON(w, httpStatus, utils.SuccessResponse{Data: response}); err != nil {
			deps.Logger.Error("failed to write readiness response", zap.Error(err))
		}
	}
}
