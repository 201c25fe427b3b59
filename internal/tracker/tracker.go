// Package tracker drives one generation job from submission to a terminal
// state. Each Tracker is the single writer of its job.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"mediagen/internal/domain"
	"mediagen/internal/gateway"
	"mediagen/internal/infra"
	"mediagen/internal/providers"
)

// MaxConsecutivePollFailures caps transient poll errors in a row. Polls that
// get no answer before their deadline do not count; the max-wait ceiling
// settles those.
const MaxConsecutivePollFailures = 5

// pollTimeout bounds one poll. It is further cut to whatever is left before
// the max-wait ceiling.
const pollTimeout = 30 * time.Second

// Poller is the slice of the gateway a tracker needs.
type Poller interface {
	Poll(ctx context.Context, job *domain.GenerationJob) (providers.PollResult, error)
	Cancel(ctx context.Context, job *domain.GenerationJob) error
}

// Options configures a Tracker.
type Options struct {
	Job        domain.GenerationJob
	Descriptor domain.ProviderDescriptor
	Poller     Poller
	Clock      clockwork.Clock
	Logger     *infra.Logger
	// OnTerminal runs once, after the job reaches a terminal state.
	OnTerminal func(domain.GenerationJob)
}

// Tracker owns the lifecycle of one job.
type Tracker struct {
	desc       domain.ProviderDescriptor
	poller     Poller
	clock      clockwork.Clock
	logger     *infra.Logger
	onTerminal func(domain.GenerationJob)

	mu       sync.Mutex
	job      domain.GenerationJob
	failures int

	stop     chan struct{}
	stopOnce sync.Once
	settled  sync.Once
	done     chan struct{}
}

// New builds a tracker for a freshly submitted job.
func New(opts Options) *Tracker {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	job := opts.Job
	if job.State == "" {
		job.State = domain.JobStateSubmitted
	}
	return &Tracker{
		desc:       opts.Descriptor,
		poller:     opts.Poller,
		clock:      clock,
		logger:     logger,
		onTerminal: opts.OnTerminal,
		job:        job,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Snapshot returns a copy of the job as last observed. A job past its
// max-wait ceiling is timed out here even while a poll is still in flight.
func (t *Tracker) Snapshot() domain.GenerationJob {
	t.mu.Lock()
	if t.job.State.IsTerminal() || !t.expiredLocked() {
		defer t.mu.Unlock()
		return t.job
	}
	snap := t.finishLocked(domain.JobStateTimedOut, domain.ErrTimedOut)
	t.mu.Unlock()
	t.settle(snap)
	return snap
}

// Done is closed when Run returns.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Run polls at the provider's cadence until the job is terminal, ctx is
// cancelled or Cancel is called.
func (t *Tracker) Run(ctx context.Context) {
	defer close(t.done)
	for {
		wait := t.desc.PollInterval
		if left := t.untilCeiling(); left < wait {
			wait = left
		}
		if wait <= 0 {
			if snap := t.Step(ctx); snap.State.IsTerminal() {
				return
			}
			continue
		}
		timer := t.clock.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-t.stop:
			timer.Stop()
			return
		case <-timer.Chan():
		}
		if snap := t.Step(ctx); snap.State.IsTerminal() {
			return
		}
	}
}

// Step performs one poll cycle and returns the resulting snapshot. The hard
// max-wait ceiling is checked before and after talking to the provider, and
// the poll itself may not run past it.
func (t *Tracker) Step(ctx context.Context) domain.GenerationJob {
	t.mu.Lock()
	if t.job.State.IsTerminal() {
		defer t.mu.Unlock()
		return t.job
	}
	if t.expiredLocked() {
		snap := t.finishLocked(domain.JobStateTimedOut, domain.ErrTimedOut)
		t.mu.Unlock()
		t.settle(snap)
		return snap
	}
	job := t.job
	timeout := min(pollTimeout, t.clock.Until(job.SubmittedAt.Add(t.desc.MaxWait)))
	t.mu.Unlock()

	pollCtx, cancel := context.WithTimeout(ctx, timeout)
	result, err := t.poller.Poll(pollCtx, &job)
	cancel()

	t.mu.Lock()
	if t.job.State.IsTerminal() {
		defer t.mu.Unlock()
		return t.job
	}
	t.job.LastPolledAt = t.clock.Now()
	switch {
	case err != nil && ctx.Err() != nil:
		// Shutting down; leave the job as is.
	case err != nil && noResponse(err):
		t.logger.Debug().
			Err(err).
			Str("job_id", t.job.JobID).
			Msg("tracker: poll got no response")
	case err != nil:
		t.recordPollErrorLocked(err)
	default:
		t.failures = 0
		t.applyLocked(result)
	}
	if !t.job.State.IsTerminal() && t.expiredLocked() {
		t.finishLocked(domain.JobStateTimedOut, domain.ErrTimedOut)
	}
	snap := t.job
	t.mu.Unlock()
	if snap.State.IsTerminal() {
		t.settle(snap)
	}
	return snap
}

// Cancel moves the job to FAILED(cancelled) and stops polling. It always
// succeeds locally; the remote cancel is best-effort and only attempted on
// the first call.
func (t *Tracker) Cancel(ctx context.Context) domain.GenerationJob {
	t.mu.Lock()
	if t.job.State.IsTerminal() {
		defer t.mu.Unlock()
		return t.job
	}
	snap := t.finishLocked(domain.JobStateFailed, domain.ErrCancelled)
	t.mu.Unlock()

	t.stopOnce.Do(func() { close(t.stop) })
	if err := t.poller.Cancel(ctx, &snap); err != nil {
		t.logger.Warn().
			Err(err).
			Str("job_id", snap.JobID).
			Str("provider", snap.ProviderID).
			Msg("tracker: remote cancel failed")
	}
	t.settle(snap)
	return snap
}

func (t *Tracker) expiredLocked() bool {
	return t.clock.Since(t.job.SubmittedAt) >= t.desc.MaxWait
}

func (t *Tracker) untilCeiling() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.clock.Until(t.job.SubmittedAt.Add(t.desc.MaxWait))
}

// noResponse reports a poll that timed out waiting for the provider, as
// opposed to one the provider answered with an error.
func noResponse(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (t *Tracker) recordPollErrorLocked(err error) {
	if gateway.Classify(err) != domain.ClassTransient {
		t.finishLocked(domain.JobStateFailed, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err))
		return
	}
	t.failures++
	t.logger.Debug().
		Err(err).
		Str("job_id", t.job.JobID).
		Int("consecutive_failures", t.failures).
		Msg("tracker: transient poll failure")
	if t.failures >= MaxConsecutivePollFailures {
		t.finishLocked(domain.JobStateFailed, fmt.Errorf("%w: %v", domain.ErrPollingExhausted, err))
	}
}

func (t *Tracker) applyLocked(result providers.PollResult) {
	switch result.State {
	case providers.RemoteQueued:
		t.advanceLocked(domain.JobStateQueued)
		t.progressLocked(result.Progress)
	case providers.RemoteRunning:
		t.advanceLocked(domain.JobStateRunning)
		t.progressLocked(result.Progress)
	case providers.RemoteSucceeded:
		if result.ArtifactRef == "" {
			t.finishLocked(domain.JobStateFailed, domain.ErrArtifactMissing)
			return
		}
		t.job.ArtifactRef = result.ArtifactRef
		t.progressLocked(100)
		t.finishLocked(domain.JobStateCompleted, nil)
	case providers.RemoteCancelled:
		t.finishLocked(domain.JobStateFailed, domain.ErrCancelled)
	case providers.RemoteFailed:
		t.finishLocked(domain.JobStateFailed, fmt.Errorf("%w: %s", domain.ErrProviderFailure, result.Reason))
	}
}

// advanceLocked ignores provider-reported regressions such as RUNNING back to QUEUED.
func (t *Tracker) advanceLocked(next domain.JobState) {
	if t.job.State.Advances(next) {
		t.job.State = next
	}
}

func (t *Tracker) progressLocked(p int) {
	p = providers.ClampProgress(p)
	if p > t.job.ProgressPercent {
		t.job.ProgressPercent = p
	}
}

func (t *Tracker) finishLocked(state domain.JobState, err error) domain.GenerationJob {
	t.job.State = state
	t.job.TerminalError = err
	t.logger.Info().
		Str("job_id", t.job.JobID).
		Str("provider", t.job.ProviderID).
		Str("state", string(state)).
		Str("error", domain.ErrorCode(err)).
		Msg("tracker: job finished")
	return t.job
}

func (t *Tracker) settle(snap domain.GenerationJob) {
	t.settled.Do(func() {
		if t.onTerminal != nil {
			t.onTerminal(snap)
		}
	})
}
