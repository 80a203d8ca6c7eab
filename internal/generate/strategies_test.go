package generate

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeProvider always rejects submissions.
type rejectingProvider struct {
	submits int
}

func (p *rejectingProvider) Name() string { return "stability" }

func (p *rejectingProvider) Submit(ctx context.Context, image []byte, prompt string) (string, error) {
	p.submits++
	return "", &ProviderError{Provider: p.Name(), Status: 401, Body: "bad key"}
}

func (p *rejectingProvider) PollOnce(ctx context.Context, jobID string) (PollResult, error) {
	return PollResult{}, errors.New("unreachable")
}

// readyProvider accepts and completes on the first poll.
type readyProvider struct {
	lastPrompt string
	video      []byte
}

func (p *readyProvider) Name() string { return "stability" }

func (p *readyProvider) Submit(ctx context.Context, image []byte, prompt string) (string, error) {
	p.lastPrompt = prompt
	return "job-1", nil
}

func (p *readyProvider) PollOnce(ctx context.Context, jobID string) (PollResult, error) {
	return PollResult{Status: PollReady, Video: p.video}, nil
}

type staticEnhancer struct{ out string }

func (e staticEnhancer) Enhance(ctx context.Context, image []byte, mime, prompt string) string {
	if e.out == "" {
		return prompt
	}
	return e.out
}

type failingSynth struct{}

func (failingSynth) Synthesize(ctx context.Context, image []byte) ([]byte, error) {
	return nil, errors.New("ffmpeg binary not found")
}

func fastPoll() PollConfig {
	return PollConfig{Interval: time.Millisecond, MaxAttempts: 3, Sleep: noSleep}
}

func TestFullChainExhaustsInOrderWhenSubmissionAlwaysFails(t *testing.T) {
	t.Parallel()

	provider := &rejectingProvider{}
	o := NewOrchestrator(
		NewEnhancedStrategy(provider, staticEnhancer{out: "richer prompt"}, fastPoll()),
		NewDirectStrategy(provider, fastPoll()),
		NewLocalClipStrategy(failingSynth{}),
	)

	_, err := o.Generate(context.Background(), []byte("img"), "wave motion")
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if len(exhausted.Failures) != 3 {
		t.Fatalf("expected 3 failures, got %d", len(exhausted.Failures))
	}
	want := []string{"enhanced+stability", "stability", "local-ffmpeg"}
	for i, name := range want {
		if exhausted.Failures[i].Strategy != name {
			t.Fatalf("failure %d: got %q want %q", i, exhausted.Failures[i].Strategy, name)
		}
		if exhausted.Failures[i].Err == nil {
			t.Fatalf("failure %d missing reason", i)
		}
	}
	if provider.submits != 2 {
		t.Fatalf("expected 2 submissions (enhanced + direct), got %d", provider.submits)
	}
}

func TestEnhancedStrategySubmitsEnhancedPrompt(t *testing.T) {
	t.Parallel()

	provider := &readyProvider{video: []byte("mp4")}
	s := NewEnhancedStrategy(provider, staticEnhancer{out: "a sweeping aerial shot"}, fastPoll())

	video, err := s.Attempt(context.Background(), []byte("img"), "fly")
	if err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if string(video) != "mp4" {
		t.Fatalf("video mismatch: %q", video)
	}
	if provider.lastPrompt != "a sweeping aerial shot" {
		t.Fatalf("provider got prompt %q, want the enhanced one", provider.lastPrompt)
	}
}

func TestDirectStrategyKeepsRawPrompt(t *testing.T) {
	t.Parallel()

	provider := &readyProvider{video: []byte("mp4")}
	s := NewDirectStrategy(provider, fastPoll())

	if _, err := s.Attempt(context.Background(), []byte("img"), "slow motion"); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if provider.lastPrompt != "slow motion" {
		t.Fatalf("provider got prompt %q, want raw prompt", provider.lastPrompt)
	}
}
