package generate

import (
	"context"

	"github.com/rs/zerolog/log"
)

// Strategy is one concrete way to turn (image, prompt) into a video.
type Strategy interface {
	Name() string
	Attempt(ctx context.Context, image []byte, prompt string) ([]byte, error)
}

// Result is a produced video together with the strategy that made it.
type Result struct {
	Video    []byte
	Provider string
}

// Orchestrator tries strategies in a fixed priority order and returns the
// first success. A failed strategy is never retried; its reason is recorded
// and the next strategy runs.
type Orchestrator struct {
	strategies []Strategy
}

func NewOrchestrator(strategies ...Strategy) *Orchestrator {
	return &Orchestrator{strategies: strategies}
}

// Generate runs the fallback chain. When every strategy fails the returned
// error is an *ExhaustedError naming each attempt and its reason.
func (o *Orchestrator) Generate(ctx context.Context, image []byte, prompt string) (Result, error) {
	var failures []StrategyFailure

	for _, s := range o.strategies {
		video, err := s.Attempt(ctx, image, prompt)
		if err != nil {
			log.Warn().Err(err).Str("strategy", s.Name()).Msg("generation strategy failed, trying next")
			failures = append(failures, StrategyFailure{Strategy: s.Name(), Err: err})
			continue
		}
		log.Info().Str("strategy", s.Name()).Int("video_bytes", len(video)).Msg("generation succeeded")
		return Result{Video: video, Provider: s.Name()}, nil
	}

	return Result{}, &ExhaustedError{Failures: failures}
}
