package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/upb/line-llm-relay/services/routing"
)

func TestHealthCheck(t *testing.T) {
	deps := testDeps(&fakeRelay{}, &fakeReplier{}, "")

	w := httptest.NewRecorder()
	HealthCheck(deps)(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var response struct {
		Data HealthResponse `json:"data"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
	assert.Equal(t, "healthy", response.Data.Status)
	assert.NotEmpty(t, response.Data.Timestamp)
}

func TestReadinessCheck(t *testing.T) {
	candidates := []routing.ModelCandidate{{Name: "gemini-2.5-flash", Position: 0}}

	tests := []struct {
		name       string
		candidates []routing.ModelCandidate
		secret     string
		geminiKey  string
		openAIKey  string
		wantStatus int
		wantChecks map[string]string
	}{
		{
			name:       "ready",
			candidates: candidates,
			secret:     "secret",
			geminiKey:  "key",
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{
				"candidates":           "healthy",
				"line_credentials":     "healthy",
				"provider_credentials": "healthy",
			},
		},
		{
			name:       "openai key is enough",
			candidates: candidates,
			secret:     "secret",
			openAIKey:  "sk",
			wantStatus: http.StatusOK,
			wantChecks: map[string]string{
				"candidates":           "healthy",
				"line_credentials":     "healthy",
				"provider_credentials": "healthy",
			},
		},
		{
			name:       "missing everything",
			wantStatus: http.StatusServiceUnavailable,
			wantChecks: map[string]string{
				"candidates":           "unhealthy",
				"line_credentials":     "unhealthy",
				"provider_credentials": "unhealthy",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			deps := testDeps(&fakeRelay{candidates: tt.candidates}, &fakeReplier{}, "")
			deps.Config.Line.ChannelSecret = tt.secret
			deps.Config.Providers.Gemini.APIKey = tt.geminiKey
			deps.Config.Providers.OpenAI.APIKey = tt.openAIKey

			w := httptest.NewRecorder()
			ReadinessCheck(deps)(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, w.Code)

			var response struct {
				Data HealthResponse `json:"data"`
			}
			require.NoError(t, json.NewDecoder(w.Body).Decode(&response))
			assert.Equal(t, tt.wantChecks, response.Data.Checks)
		})
	}
}
