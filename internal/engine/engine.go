// Package engine runs the caller-facing operations: it turns sources into a
// submitted job, keeps one tracker per job and hands out artifacts.
package engine

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"mediagen/internal/compose"
	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/ingest"
	"mediagen/internal/style"
	"mediagen/internal/tracker"
)

// DefaultRetention is how long a terminal job stays tracked in memory.
const DefaultRetention = time.Hour

const recordTimeout = 5 * time.Second

// ContextProvider returns free-text context for an opaque user key.
type ContextProvider interface {
	Lookup(ctx context.Context, userKey string) (string, error)
}

// SourceProvider resolves an external handle into source items.
type SourceProvider = ingest.Source

// Gateway submits scripts and reports on the jobs it created.
type Gateway interface {
	Submit(ctx context.Context, script domain.GenerationScript, mediaType domain.MediaType) (*domain.GenerationJob, error)
	Descriptor(job *domain.GenerationJob) (domain.ProviderDescriptor, error)
	tracker.Poller
}

// Resolver hands out artifacts of completed jobs.
type Resolver interface {
	Resolve(ctx context.Context, job domain.GenerationJob) (*domain.Artifact, error)
	Forget(ctx context.Context, job domain.GenerationJob)
}

// Recorder persists job history beyond the in-memory tracker index.
type Recorder interface {
	Create(ctx context.Context, job domain.GenerationJob, userKey string) error
	UpdateState(ctx context.Context, job domain.GenerationJob) error
	GetByHandle(ctx context.Context, handle string) (*domain.GenerationJob, error)
}

// StartRequest describes one generation.
type StartRequest struct {
	Sources         []domain.SourceItem
	Handles         []string
	Mode            domain.CompositionMode
	DurationSeconds int
	MediaType       domain.MediaType
	UserKey         string
}

// Options wires the engine's collaborators. Sources, Contexts and Recorder
// are optional.
type Options struct {
	Gateway   Gateway
	Resolver  Resolver
	Sources   SourceProvider
	Contexts  ContextProvider
	Recorder  Recorder
	Clock     clockwork.Clock
	Logger    *infra.Logger
	Retention time.Duration
}

type entry struct {
	tracker    *tracker.Tracker
	finishedAt time.Time
}

// Engine coordinates extraction, composition, submission and tracking.
type Engine struct {
	gateway   Gateway
	resolver  Resolver
	sources   SourceProvider
	contexts  ContextProvider
	recorder  Recorder
	clock     clockwork.Clock
	logger    *infra.Logger
	retention time.Duration

	mu   sync.Mutex
	jobs map[string]*entry

	runCtx  context.Context
	stopRun context.CancelFunc
	wg      sync.WaitGroup
	cron    *cron.Cron
}

// New builds an engine. Call Close to stop its trackers.
func New(opts Options) (*Engine, error) {
	if opts.Gateway == nil {
		return nil, errors.New("engine: gateway is required")
	}
	if opts.Resolver == nil {
		return nil, errors.New("engine: resolver is required")
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
	sources := opts.Sources
	if sources == nil {
		sources = ingest.Disabled{}
	}
	retention := opts.Retention
	if retention <= 0 {
		retention = DefaultRetention
	}
	runCtx, stop := context.WithCancel(context.Background())
	return &Engine{
		gateway:   opts.Gateway,
		resolver:  opts.Resolver,
		sources:   sources,
		contexts:  opts.Contexts,
		recorder:  opts.Recorder,
		clock:     clock,
		logger:    logger,
		retention: retention,
		jobs:      make(map[string]*entry),
		runCtx:    runCtx,
		stopRun:   stop,
	}, nil
}

// Start runs ingest, extraction, composition and submission, then begins
// tracking the accepted job. The returned snapshot is in SUBMITTED state.
func (e *Engine) Start(ctx context.Context, req StartRequest) (domain.GenerationJob, error) {
	mediaType := req.MediaType
	if mediaType == "" {
		mediaType = domain.MediaTypeVideo
	}

	items := e.collectSources(ctx, req)
	if len(items) == 0 {
		return domain.GenerationJob{}, domain.ErrNoSources
	}
	profiles, err := style.ExtractAll(items)
	if err != nil {
		return domain.GenerationJob{}, err
	}
	script, err := compose.Compose(profiles, req.Mode, req.DurationSeconds)
	if err != nil {
		return domain.GenerationJob{}, err
	}
	script = compose.WithContext(script, e.lookupContext(ctx, req.UserKey))

	job, err := e.gateway.Submit(ctx, script, mediaType)
	if err != nil {
		return domain.GenerationJob{}, err
	}
	job.Handle = uuid.NewString()
	desc, err := e.gateway.Descriptor(job)
	if err != nil {
		return domain.GenerationJob{}, fmt.Errorf("engine: %w", err)
	}

	if e.recorder != nil {
		if err := e.recorder.Create(ctx, *job, req.UserKey); err != nil {
			e.logger.Warn().Err(err).Str("job_id", job.Handle).Msg("engine: record submission failed")
		}
	}

	t := tracker.New(tracker.Options{
		Job:        *job,
		Descriptor: desc,
		Poller:     e.gateway,
		Clock:      e.clock,
		Logger:     e.logger,
		OnTerminal: e.finished,
	})
	e.mu.Lock()
	e.jobs[job.Handle] = &entry{tracker: t}
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		t.Run(e.runCtx)
	}()

	e.logger.Info().
		Str("job_id", job.Handle).
		Str("provider", job.ProviderID).
		Str("mode", string(job.CompositionMode)).
		Int("source_count", job.SourceCount).
		Msg("engine: job started")
	return t.Snapshot(), nil
}

// collectSources returns explicit sources untouched followed by the best
// ingested ones, ranked by engagement and capped to what the mode accepts.
func (e *Engine) collectSources(ctx context.Context, req StartRequest) []domain.SourceItem {
	items := append([]domain.SourceItem(nil), req.Sources...)
	if len(req.Handles) == 0 {
		return items
	}
	room := compose.MaxSources(req.Mode) - len(items)
	if room <= 0 {
		return items
	}
	fetched := ingest.Gather(ctx, e.sources, req.Handles, e.logger)
	slices.SortStableFunc(fetched, func(a, b domain.SourceItem) int {
		return cmp.Compare(b.Engagement(), a.Engagement())
	})
	if len(fetched) > room {
		fetched = fetched[:room]
	}
	for _, item := range fetched {
		items = append(items, style.Placeholder(item))
	}
	return items
}

func (e *Engine) lookupContext(ctx context.Context, userKey string) string {
	if e.contexts == nil || strings.TrimSpace(userKey) == "" {
		return ""
	}
	text, err := e.contexts.Lookup(ctx, userKey)
	if err != nil {
		e.logger.Warn().Err(err).Msg("engine: context lookup failed, continuing without")
		return ""
	}
	return text
}

// Status returns the latest snapshot of a job. Jobs no longer tracked are
// served from the recorder when one is configured.
func (e *Engine) Status(ctx context.Context, handle string) (domain.GenerationJob, error) {
	if t, ok := e.lookup(handle); ok {
		return t.Snapshot(), nil
	}
	return e.archived(ctx, handle)
}

// Artifact resolves the artifact of a completed job.
func (e *Engine) Artifact(ctx context.Context, handle string) (*domain.Artifact, error) {
	job, err := e.Status(ctx, handle)
	if err != nil {
		return nil, err
	}
	return e.resolver.Resolve(ctx, job)
}

// Cancel stops tracking a job and asks its provider to cancel. Cancelling a
// finished job returns it unchanged.
func (e *Engine) Cancel(ctx context.Context, handle string) (domain.GenerationJob, error) {
	if t, ok := e.lookup(handle); ok {
		return t.Cancel(ctx), nil
	}
	return e.archived(ctx, handle)
}

// Counts reports how many tracked jobs are in each state.
func (e *Engine) Counts() map[domain.JobState]int {
	e.mu.Lock()
	trackers := make([]*tracker.Tracker, 0, len(e.jobs))
	for _, en := range e.jobs {
		trackers = append(trackers, en.tracker)
	}
	e.mu.Unlock()

	out := make(map[domain.JobState]int)
	for _, t := range trackers {
		out[t.Snapshot().State]++
	}
	return out
}

// Evict drops jobs that have been terminal for longer than the retention
// period along with their cached artifacts. It returns how many were removed.
func (e *Engine) Evict(ctx context.Context) int {
	now := e.clock.Now()
	var stale []domain.GenerationJob
	e.mu.Lock()
	for handle, en := range e.jobs {
		if en.finishedAt.IsZero() || now.Sub(en.finishedAt) < e.retention {
			continue
		}
		stale = append(stale, en.tracker.Snapshot())
		delete(e.jobs, handle)
	}
	e.mu.Unlock()

	for _, job := range stale {
		e.resolver.Forget(ctx, job)
	}
	if len(stale) > 0 {
		e.logger.Debug().Int("evicted", len(stale)).Msg("engine: evicted finished jobs")
	}
	return len(stale)
}

// StartJanitor schedules Evict on a cron spec such as "@every 1m".
func (e *Engine) StartJanitor(spec string) error {
	c := cron.New()
	if _, err := c.AddFunc(spec, func() { e.Evict(e.runCtx) }); err != nil {
		return fmt.Errorf("engine: janitor schedule %q: %w", spec, err)
	}
	c.Start()
	e.mu.Lock()
	e.cron = c
	e.mu.Unlock()
	return nil
}

// Close stops the janitor and every tracker, then waits for them to return.
func (e *Engine) Close() {
	e.mu.Lock()
	c := e.cron
	e.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
	e.stopRun()
	e.wg.Wait()
}

func (e *Engine) lookup(handle string) (*tracker.Tracker, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	en, ok := e.jobs[handle]
	if !ok {
		return nil, false
	}
	return en.tracker, true
}

func (e *Engine) archived(ctx context.Context, handle string) (domain.GenerationJob, error) {
	if e.recorder == nil {
		return domain.GenerationJob{}, domain.ErrNotFound
	}
	job, err := e.recorder.GetByHandle(ctx, handle)
	if err != nil {
		return domain.GenerationJob{}, err
	}
	return *job, nil
}

func (e *Engine) finished(job domain.GenerationJob) {
	e.mu.Lock()
	if en, ok := e.jobs[job.Handle]; ok {
		en.finishedAt = e.clock.Now()
	}
	e.mu.Unlock()

	if e.recorder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()
	if err := e.recorder.UpdateState(ctx, job); err != nil {
		e.logger.Warn().Err(err).Str("job_id", job.Handle).Msg("engine: record terminal state failed")
	}
}
