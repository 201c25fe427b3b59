// Package resolver hands out the artifact of a completed job.
package resolver

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/providers"
	"mediagen/internal/storage"
)

// Fetcher downloads a job's artifact from its provider.
type Fetcher interface {
	Fetch(ctx context.Context, job *domain.GenerationJob) (*providers.Download, error)
}

// Store keeps resolved artifacts so repeated reads do not hit the provider.
type Store interface {
	Write(ctx context.Context, key string, data []byte) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}

type cached struct {
	key  string
	mime string
}

// Resolver turns COMPLETED jobs into artifacts.
type Resolver struct {
	fetcher Fetcher
	store   Store
	logger  *infra.Logger

	mu    sync.Mutex
	index map[string]cached
}

// New builds a resolver. store may be nil, in which case every call fetches.
func New(fetcher Fetcher, store Store, logger *infra.Logger) *Resolver {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &Resolver{fetcher: fetcher, store: store, logger: logger, index: make(map[string]cached)}
}

// Resolve returns the artifact of job. It fails with a not_ready
// ResolutionError unless the job is COMPLETED, and with artifact_expired when
// the provider no longer serves the artifact.
func (r *Resolver) Resolve(ctx context.Context, job domain.GenerationJob) (*domain.Artifact, error) {
	id := cacheID(job)
	if job.State != domain.JobStateCompleted {
		return nil, &domain.ResolutionError{Kind: domain.ResolutionNotReady, JobID: id}
	}

	if artifact, ok := r.fromStore(ctx, job); ok {
		return artifact, nil
	}

	dl, err := r.fetcher.Fetch(ctx, &job)
	if err != nil {
		if providers.IsExpired(err) {
			return nil, &domain.ResolutionError{Kind: domain.ResolutionArtifactExpired, JobID: id, Err: err}
		}
		return nil, fmt.Errorf("resolver: fetch %s: %w", id, err)
	}

	artifact := &domain.Artifact{
		JobID:      job.JobID,
		ProviderID: job.ProviderID,
		MIME:       dl.MIME,
		Data:       dl.Data,
	}
	if strings.HasPrefix(job.ArtifactRef, "http://") || strings.HasPrefix(job.ArtifactRef, "https://") {
		artifact.URL = job.ArtifactRef
	}
	if r.store != nil && len(dl.Data) > 0 {
		key, err := r.store.Write(ctx, storage.ArtifactKey(string(job.MediaType), id, dl.MIME), dl.Data)
		if err != nil {
			r.logger.Warn().Err(err).
				Str("job_id", job.JobID).
				Str("provider", job.ProviderID).
				Msg("resolver: persist artifact failed")
		} else {
			artifact.StorageKey = key
			r.mu.Lock()
			r.index[id] = cached{key: key, mime: dl.MIME}
			r.mu.Unlock()
		}
	}
	return artifact, nil
}

// Forget drops the cached copy of a job's artifact.
func (r *Resolver) Forget(ctx context.Context, job domain.GenerationJob) {
	id := cacheID(job)
	r.mu.Lock()
	entry, ok := r.index[id]
	delete(r.index, id)
	r.mu.Unlock()
	if ok && r.store != nil {
		if err := r.store.Delete(ctx, entry.key); err != nil {
			r.logger.Warn().Err(err).Str("job_id", job.JobID).Msg("resolver: delete cached artifact failed")
		}
	}
}

func (r *Resolver) fromStore(ctx context.Context, job domain.GenerationJob) (*domain.Artifact, bool) {
	if r.store == nil {
		return nil, false
	}
	r.mu.Lock()
	entry, ok := r.index[cacheID(job)]
	r.mu.Unlock()
	if !ok {
		return nil, false
	}
	data, err := r.store.Read(ctx, entry.key)
	if err != nil {
		r.logger.Debug().Err(err).Str("key", entry.key).Msg("resolver: cached artifact unreadable, refetching")
		return nil, false
	}
	return &domain.Artifact{
		JobID:      job.JobID,
		ProviderID: job.ProviderID,
		MIME:       entry.mime,
		StorageKey: entry.key,
		Data:       data,
	}, true
}

func cacheID(job domain.GenerationJob) string {
	if job.Handle != "" {
		return job.Handle
	}
	return job.JobID
}
