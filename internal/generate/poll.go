package generate

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Poller issues a single status request for a submitted job.
type Poller interface {
	PollOnce(ctx context.Context, jobID string) (PollResult, error)
}

// SleepFunc waits between poll attempts. Injected so tests run without real
// time passing.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// PollConfig bounds one poll loop. The interval is constant: no backoff, no
// jitter. Total wait stays predictable for a user with a few-minute patience
// budget.
type PollConfig struct {
	Interval    time.Duration
	MaxAttempts int
	Sleep       SleepFunc
}

func (c PollConfig) withDefaults() PollConfig {
	if c.Interval <= 0 {
		c.Interval = 5 * time.Second
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 30
	}
	if c.Sleep == nil {
		c.Sleep = sleepContext
	}
	return c
}

// job is the in-flight bookkeeping for one submitted generation request.
// It lives only for the duration of a single poll loop.
type job struct {
	id           string
	submittedAt  time.Time
	attemptsMade int
	maxAttempts  int
}

// PollUntilReady repeatedly polls a submitted job until it is ready, fails,
// or the attempt budget runs out. Stop conditions in priority order: ready
// returns immediately, a failed outcome aborts without retry, pending
// continues until the budget is exhausted and then reports a timeout.
func PollUntilReady(ctx context.Context, p Poller, jobID string, cfg PollConfig) ([]byte, error) {
	cfg = cfg.withDefaults()
	j := job{id: jobID, submittedAt: time.Now(), maxAttempts: cfg.MaxAttempts}

	for j.attemptsMade < j.maxAttempts {
		if err := cfg.Sleep(ctx, cfg.Interval); err != nil {
			return nil, err
		}
		j.attemptsMade++

		res, err := p.PollOnce(ctx, j.id)
		if err != nil {
			return nil, err
		}
		switch res.Status {
		case PollReady:
			log.Debug().
				Str("job_id", j.id).
				Int("attempts", j.attemptsMade).
				Dur("elapsed", time.Since(j.submittedAt)).
				Msg("generation job ready")
			return res.Video, nil
		case PollFailed:
			return nil, res.Reason
		case PollPending:
			// keep waiting
		}
	}
	return nil, ErrPollTimeout
}
