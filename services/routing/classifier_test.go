package routing

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/upb/line-llm-relay/services/providers"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"nil error", nil, KindOther},
		{"quota exhausted", errors.New("429 RESOURCE_EXHAUSTED: quota exceeded"), KindRateLimited},
		{"unauthorized status", errors.New("401 Unauthorized"), KindUnauthorized},
		{"invalid key marker", errors.New("400 INVALID_ARGUMENT: API_KEY_INVALID"), KindUnauthorized},
		{"unauthenticated marker lower case", errors.New("request unauthenticated"), KindUnauthorized},
		{"invalid api key phrase", errors.New("Invalid API key provided"), KindUnauthorized},
		{"model not found", errors.New("404 NOT_FOUND: models/foo is not found"), KindNotFound},
		{"server error", errors.New("500 INTERNAL"), KindOther},
		{"timeout", errors.New("context deadline exceeded"), KindOther},
		{"429 wins over 401", errors.New("429 after 401 retry"), KindRateLimited},
		{"401 wins over 404", errors.New("401 on /models/404"), KindUnauthorized},
		{"wrapped error", fmt.Errorf("generate: %w", errors.New("404 missing")), KindNotFound},
		{
			name: "provider error renders status",
			err:  providers.NewProviderError("gemini", "RESOURCE_EXHAUSTED", "quota", 429, nil),
			want: KindRateLimited,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassifyMessage_Empty(t *testing.T) {
	assert.Equal(t, KindOther, ClassifyMessage(""))
}
