package routing

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoCandidates is returned when a candidate list is built from no usable names.
var ErrNoCandidates = errors.New("at least one model candidate is required")

// ModelCandidate identifies one model in the ordered fallback list
type ModelCandidate struct {
	// Name is the model identifier, optionally prefixed with a provider ("openai/gpt-4o")
	Name string `json:"name"`

	// Position is the zero-based index in the configured list
	Position int `json:"position"`
}

// NewCandidates builds the ordered candidate list from model names.
// Blank entries are skipped; the result is never empty on success.
func NewCandidates(names []string) ([]ModelCandidate, error) {
	candidates := make([]ModelCandidate, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		candidates = append(candidates, ModelCandidate{Name: name, Position: len(candidates)})
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	return candidates, nil
}

// ErrorKind is the coarse category of a failed generation attempt
type ErrorKind string

const (
	KindRateLimited  ErrorKind = "rate_limited"
	KindUnauthorized ErrorKind = "unauthorized"
	KindNotFound     ErrorKind = "not_found"
	KindOther        ErrorKind = "other"
)

// Outcome is the terminal state of one orchestration
type Outcome string

const (
	OutcomeAnswered  Outcome = "answered"
	OutcomeExhausted Outcome = "exhausted"
)

// Attempt records a single call against one candidate
type Attempt struct {
	Candidate ModelCandidate `json:"candidate"`
	Kind      ErrorKind      `json:"kind,omitempty"`
	Raw       string         `json:"raw,omitempty"`
	Status    int            `json:"status,omitempty"`
	Latency   time.Duration  `json:"latency"`
}

// Succeeded reports whether the attempt produced usable text
func (a Attempt) Succeeded() bool {
	return a.Kind == ""
}

// FallbackResult is the single result of walking the candidate list.
// Exactly one of the Answered or Exhausted shapes is populated.
type FallbackResult struct {
	Outcome Outcome

	// Answered
	Text      string
	Candidate ModelCandidate

	// Exhausted
	Kind ErrorKind
	Raw  string

	Attempts []Attempt
}

// Answered builds a successful result
func Answered(text string, candidate ModelCandidate) FallbackResult {
	return FallbackResult{Outcome: OutcomeAnswered, Text: text, Candidate: candidate}
}

// Exhausted builds a failed result carrying the last failure
func Exhausted(kind ErrorKind, raw string) FallbackResult {
	return FallbackResult{Outcome: OutcomeExhausted, Kind: kind, Raw: raw}
}

// IsAnswered reports whether a candidate produced text
func (r FallbackResult) IsAnswered() bool {
	return r.Outcome == OutcomeAnswered
}

func (r FallbackResult) String() string {
	if r.IsAnswered() {
		return fmt.Sprintf("answered by %s after %d attempt(s)", r.Candidate.Name, len(r.Attempts))
	}
	return fmt.Sprintf("exhausted (%s) after %d attempt(s)", r.Kind, len(r.Attempts))
}
