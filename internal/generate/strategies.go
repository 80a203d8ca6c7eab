package generate

import (
	"context"
	"net/http"
)

// Provider is an upstream that accepts a job and is polled for its result.
type Provider interface {
	Name() string
	Submit(ctx context.Context, image []byte, prompt string) (string, error)
	PollOnce(ctx context.Context, jobID string) (PollResult, error)
}

// PromptEnhancer rewrites a raw prompt from the image content. It returns
// the original prompt when it cannot do better.
type PromptEnhancer interface {
	Enhance(ctx context.Context, image []byte, mime, prompt string) string
}

// ClipSynthesizer builds a clip locally from a single still.
type ClipSynthesizer interface {
	Synthesize(ctx context.Context, image []byte) ([]byte, error)
}

// enhancedStrategy runs the vision enhancement step before submitting to the
// provider. Enhancement failure degrades to the raw prompt inside the
// enhancer, so this strategy only fails on provider errors.
type enhancedStrategy struct {
	provider Provider
	enhancer PromptEnhancer
	poll     PollConfig
}

func NewEnhancedStrategy(provider Provider, enhancer PromptEnhancer, poll PollConfig) Strategy {
	return &enhancedStrategy{provider: provider, enhancer: enhancer, poll: poll}
}

func (s *enhancedStrategy) Name() string { return "enhanced+" + s.provider.Name() }

func (s *enhancedStrategy) Attempt(ctx context.Context, image []byte, prompt string) ([]byte, error) {
	enhanced := s.enhancer.Enhance(ctx, image, http.DetectContentType(image), prompt)
	return submitAndPoll(ctx, s.provider, image, enhanced, s.poll)
}

// directStrategy submits the raw user prompt as-is.
type directStrategy struct {
	provider Provider
	poll     PollConfig
}

func NewDirectStrategy(provider Provider, poll PollConfig) Strategy {
	return &directStrategy{provider: provider, poll: poll}
}

func (s *directStrategy) Name() string { return s.provider.Name() }

func (s *directStrategy) Attempt(ctx context.Context, image []byte, prompt string) ([]byte, error) {
	return submitAndPoll(ctx, s.provider, image, prompt, s.poll)
}

// localClipStrategy animates the still with a host-local encoder. The prompt
// is ignored; this is the degraded last resort.
type localClipStrategy struct {
	synth ClipSynthesizer
}

func NewLocalClipStrategy(synth ClipSynthesizer) Strategy {
	return &localClipStrategy{synth: synth}
}

func (s *localClipStrategy) Name() string { return "local-ffmpeg" }

func (s *localClipStrategy) Attempt(ctx context.Context, image []byte, _ string) ([]byte, error) {
	return s.synth.Synthesize(ctx, image)
}

func submitAndPoll(ctx context.Context, p Provider, image []byte, prompt string, poll PollConfig) ([]byte, error) {
	jobID, err := p.Submit(ctx, image, prompt)
	if err != nil {
		return nil, err
	}
	return PollUntilReady(ctx, p, jobID, poll)
}
