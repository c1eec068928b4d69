package handlers

import (
	"net/http"

	"github.com/upb/line-llm-relay/app"
	"github.com/upb/line-llm-relay/middleware"
	"github.com/upb/line-llm-relay/services"
	"github.com/upb/line-llm-relay/services/providers"
	"github.com/upb/line-llm-relay/utils"
	"go.uber.org/zap"
)

// CandidateView is one configured candidate as shown to operators
type CandidateView struct {
	Name     string `json:"name"`
	Position int    `json:"position"`
}

// CandidatesResponse lists the configured fallback order
type CandidatesResponse struct {
	Candidates         []CandidateView `json:"candidates"`
	StopOnUnauthorized bool            `json:"stop_on_unauthorized"`
	TriggerPrefix      string          `json:"trigger_prefix,omitempty"`
}

// ModelsResponse lists the upstream models
type ModelsResponse struct {
	Models []providers.ModelInfo `json:"models"`
	Count  int                   `json:"count"`
}

// ListCandidatesHandler handles GET /admin/candidates
func ListCandidatesHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		candidates := deps.Relay.Candidates()
		views := make([]CandidateView, len(candidates))
		for i, c := range candidates {
			views[i] = CandidateView{Name: c.Name, Position: c.Position}
		}

		_ = utils.WriteOK(w, CandidatesResponse{
			Candidates:         views,
			StopOnUnauthorized: deps.Config.Relay.StopOnUnauthorized,
			TriggerPrefix:      deps.Trigger.Prefix(),
		})
	}
}

// ListModelsHandler handles GET /admin/models
func ListModelsHandler(deps *app.Dependencies) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := deps.Logger.With(zap.String("request_id", middleware.GetRequestIDFromContext(r.Context())))

		models, err := deps.Models.ListModels(r.Context())
		if err != nil {
			logger.Warn("failed to list upstream models", zap.Error(err))
			HandleServiceError(w, services.WrapExternal("failed to list upstream models", err), logger)
			return
		}
		if models == nil {
			models = []providers.ModelInfo{}
		}

		_ = utils.WriteOK(w, ModelsResponse{Models: models, Count: len(models)})
	}
}
