package outscraper

import (
	"context"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
)

const (
	defaultPollInitial     = 2 * time.Second
	defaultPollCap         = 30 * time.Second
	defaultPollMaxAttempts = 12
)

// ErrPollExhausted is wrapped into the error returned when a job is still
// pending after the attempt budget runs out.
var ErrPollExhausted = eris.New("outscraper: poll attempts exhausted")

// PollOption configures polling behavior.
type PollOption func(*pollConfig)

type pollConfig struct {
	initial     time.Duration
	cap         time.Duration
	maxAttempts int
}

func defaultPollConfig() pollConfig {
	return pollConfig{
		initial:     defaultPollInitial,
		cap:         defaultPollCap,
		maxAttempts: defaultPollMaxAttempts,
	}
}

// WithPollInterval overrides the initial poll interval.
func WithPollInterval(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.initial = d
	}
}

// WithPollCap overrides the maximum poll interval.
func WithPollCap(d time.Duration) PollOption {
	return func(c *pollConfig) {
		c.cap = d
	}
}

// WithPollMaxAttempts overrides the attempt budget.
func WithPollMaxAttempts(n int) PollOption {
	return func(c *pollConfig) {
		c.maxAttempts = n
	}
}

// PollJob polls GetJob until the job reaches a terminal state, the context
// expires, or the attempt budget is exhausted. The wait between attempts
// doubles from 2s up to a 30s cap.
func PollJob(ctx context.Context, client Client, requestID string, opts ...PollOption) (*JobResponse, error) {
	cfg := defaultPollConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	interval := cfg.initial
	for attempt := 0; attempt < cfg.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, eris.Wrap(ctx.Err(), fmt.Sprintf("outscraper: poll job %s", requestID))
		case <-time.After(interval):
		}

		job, err := client.GetJob(ctx, requestID)
		if err != nil {
			return nil, eris.Wrap(err, fmt.Sprintf("outscraper: poll job %s", requestID))
		}

		switch job.Status {
		case StatusSuccess:
			return job, nil
		case StatusFailed:
			return nil, eris.Errorf("outscraper: job %s failed", requestID)
		}

		interval *= 2
		if interval > cfg.cap {
			interval = cfg.cap
		}
	}

	return nil, eris.Wrap(ErrPollExhausted, fmt.Sprintf("job %s still pending after %d attempts", requestID, cfg.maxAttempts))
}
