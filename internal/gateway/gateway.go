// Package gateway puts every concrete provider behind one submit/poll/fetch
// contract and walks the per-media fallback chain on submission.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/providers"
)

const (
	defaultMaxRetries  = 2
	defaultBackoffBase = 2 * time.Second
)

// Options configures a Gateway.
type Options struct {
	Registry    *providers.Registry
	Providers   map[string]providers.Provider
	Clock       clockwork.Clock
	Logger      *infra.Logger
	MaxRetries  int
	BackoffBase time.Duration
}

// Gateway submits scripts through the fallback chain and proxies polling,
// fetching and cancellation to the provider that accepted a job.
type Gateway struct {
	registry    *providers.Registry
	providers   map[string]providers.Provider
	clock       clockwork.Clock
	logger      *infra.Logger
	maxRetries  int
	backoffBase time.Duration
}

// New validates that every configured descriptor has an implementation.
func New(opts Options) (*Gateway, error) {
	if opts.Registry == nil {
		return nil, errors.New("gateway: registry is required")
	}
	for _, d := range opts.Registry.Descriptors() {
		if _, ok := opts.Providers[d.ProviderID]; !ok {
			return nil, fmt.Errorf("gateway: no provider implementation for %q", d.ProviderID)
		}
	}
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
	maxRetries := opts.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	base := opts.BackoffBase
	if base <= 0 {
		base = defaultBackoffBase
	}
	return &Gateway{
		registry:    opts.Registry,
		providers:   opts.Providers,
		clock:       clock,
		logger:      logger,
		maxRetries:  maxRetries,
		backoffBase: base,
	}, nil
}

// Registry exposes the read-only provider configuration.
func (g *Gateway) Registry() *providers.Registry {
	return g.registry
}

// Submit walks the chain for mediaType until one provider accepts the script.
// A permanent_for_request failure aborts the chain and is returned as is;
// otherwise exhausting the chain yields *domain.AllProvidersExhaustedError.
func (g *Gateway) Submit(ctx context.Context, script domain.GenerationScript, mediaType domain.MediaType) (*domain.GenerationJob, error) {
	if err := script.Validate(); err != nil {
		return nil, err
	}
	chain := g.registry.Chain(mediaType)
	exhausted := &domain.AllProvidersExhaustedError{MediaType: mediaType}
	for _, d := range chain {
		job, err := g.submitTo(ctx, d, script)
		if err == nil {
			return job, nil
		}
		var subErr *domain.SubmissionError
		if !errors.As(err, &subErr) {
			return nil, err
		}
		if subErr.Class == domain.ClassPermanentForRequest {
			g.logger.Warn().
				Str("provider", d.ProviderID).
				Str("reason", subErr.Reason).
				Msg("gateway: request rejected, aborting chain")
			return nil, subErr
		}
		g.logger.Info().
			Str("provider", d.ProviderID).
			Str("class", string(subErr.Class)).
			Str("reason", subErr.Reason).
			Msg("gateway: falling back to next provider")
		exhausted.Failures = append(exhausted.Failures, subErr)
	}
	return nil, exhausted
}

func (g *Gateway) submitTo(ctx context.Context, d domain.ProviderDescriptor, script domain.GenerationScript) (*domain.GenerationJob, error) {
	if d.MaxPromptLength > 0 && len([]rune(script.FullPrompt)) > d.MaxPromptLength {
		return nil, &domain.SubmissionError{
			Class:      domain.ClassPermanentForProvider,
			ProviderID: d.ProviderID,
			Reason:     fmt.Sprintf("prompt length %d exceeds limit %d", len([]rune(script.FullPrompt)), d.MaxPromptLength),
		}
	}
	duration := providers.NearestAllowed(script.DurationSeconds, d.AllowedDurations)
	if duration != script.DurationSeconds {
		g.logger.Debug().
			Str("provider", d.ProviderID).
			Int("requested", script.DurationSeconds).
			Int("coerced", duration).
			Msg("gateway: duration coerced")
	}
	provider := g.providers[d.ProviderID]
	req := providers.SubmitRequest{Prompt: script.FullPrompt, DurationSeconds: duration}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = g.backoffBase
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = g.backoffBase << g.maxRetries
	b.MaxElapsedTime = 0
	b.Reset()

	for attempt := 0; ; attempt++ {
		jobID, err := provider.Submit(ctx, req)
		if err == nil {
			now := g.clock.Now()
			g.logger.Info().
				Str("provider", d.ProviderID).
				Str("job_id", jobID).
				Int("attempt", attempt+1).
				Msg("gateway: job submitted")
			return &domain.GenerationJob{
				JobID:           jobID,
				ProviderID:      d.ProviderID,
				MediaType:       d.MediaType,
				State:           domain.JobStateSubmitted,
				SubmittedAt:     now,
				SourceCount:     script.SourceCount,
				CompositionMode: script.CompositionMode,
				DurationSeconds: duration,
			}, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		class, rule := classify(err)
		subErr := &domain.SubmissionError{
			Class:      class,
			ProviderID: d.ProviderID,
			Reason:     reason(err),
			StatusCode: statusCode(err),
			Err:        err,
		}
		if class != domain.ClassTransient || attempt >= g.maxRetries {
			return nil, subErr
		}
		wait := b.NextBackOff()
		g.logger.Debug().
			Str("provider", d.ProviderID).
			Str("rule", rule).
			Dur("wait", wait).
			Int("attempt", attempt+1).
			Msg("gateway: transient submit failure, retrying")
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-g.clock.After(wait):
		}
	}
}

// Descriptor returns the configuration of the provider that owns job.
func (g *Gateway) Descriptor(job *domain.GenerationJob) (domain.ProviderDescriptor, error) {
	d, ok := g.registry.Descriptor(job.ProviderID)
	if !ok {
		return domain.ProviderDescriptor{}, fmt.Errorf("gateway: unknown provider %q: %w", job.ProviderID, domain.ErrNotFound)
	}
	return d, nil
}

// Poll asks the owning provider for the job's current state.
func (g *Gateway) Poll(ctx context.Context, job *domain.GenerationJob) (providers.PollResult, error) {
	provider, err := g.provider(job)
	if err != nil {
		return providers.PollResult{}, err
	}
	result, err := provider.Poll(ctx, job.JobID)
	if err != nil {
		return providers.PollResult{}, err
	}
	result.Progress = providers.ClampProgress(result.Progress)
	return result, nil
}

// Fetch downloads the artifact of a completed job.
func (g *Gateway) Fetch(ctx context.Context, job *domain.GenerationJob) (*providers.Download, error) {
	provider, err := g.provider(job)
	if err != nil {
		return nil, err
	}
	if job.ArtifactRef == "" {
		return nil, domain.ErrArtifactMissing
	}
	return provider.Fetch(ctx, job.ArtifactRef)
}

// Cancel forwards a cancel to providers that support it. Providers without
// a cancel operation are left to finish on their own.
func (g *Gateway) Cancel(ctx context.Context, job *domain.GenerationJob) error {
	provider, err := g.provider(job)
	if err != nil {
		return err
	}
	canceler, ok := provider.(providers.Canceler)
	if !ok {
		return nil
	}
	return canceler.Cancel(ctx, job.JobID)
}

func (g *Gateway) provider(job *domain.GenerationJob) (providers.Provider, error) {
	provider, ok := g.providers[job.ProviderID]
	if !ok {
		return nil, fmt.Errorf("gateway: unknown provider %q: %w", job.ProviderID, domain.ErrNotFound)
	}
	return provider, nil
}
