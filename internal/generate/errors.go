package generate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrPollTimeout reports an exhausted poll budget for a submitted job.
var ErrPollTimeout = errors.New("provider did not finish within the poll budget")

// ProviderError is a non-success response from an upstream API. The body is
// kept for diagnostics.
type ProviderError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	body := strings.TrimSpace(e.Body)
	if len(body) > 300 {
		body = body[:300] + "..."
	}
	return fmt.Sprintf("%s rejected request: status %d: %s", e.Provider, e.Status, body)
}

// StrategyFailure records why one generation strategy gave up.
type StrategyFailure struct {
	Strategy string
	Err      error
}

// ExhaustedError aggregates the failures of every attempted strategy.
type ExhaustedError struct {
	Failures []StrategyFailure
}

func (e *ExhaustedError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s: %v", f.Strategy, f.Err))
	}
	return "all generation strategies exhausted: " + strings.Join(parts, "; ")
}
