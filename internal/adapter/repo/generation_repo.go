package repo

import (
	"context"
	"fmt"
	"time"

	"mediagen/internal/domain"
	"mediagen/internal/infra"
	"mediagen/internal/sqlinline"
)

// GenerationRepositoryPG records every submitted job and its terminal state
// so history survives tracker eviction and restarts.
type GenerationRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewGenerationRepository creates a repository backed by PostgreSQL.
func NewGenerationRepository(sql infra.SQLExecutor) *GenerationRepositoryPG {
	return &GenerationRepositoryPG{sql: sql}
}

// EnsureSchema creates the tables used by the service when missing.
func (r *GenerationRepositoryPG) EnsureSchema(ctx context.Context) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QEnsureSchema); err != nil {
		return fmt.Errorf("repo: ensure schema: %w", err)
	}
	return nil
}

// Create inserts a freshly submitted job.
func (r *GenerationRepositoryPG) Create(ctx context.Context, job domain.GenerationJob, userKey string) error {
	_, err := r.sql.Exec(ctx, sqlinline.QInsertGenerationJob,
		job.Handle,
		job.JobID,
		job.ProviderID,
		string(job.MediaType),
		string(job.State),
		job.ProgressPercent,
		string(job.CompositionMode),
		job.SourceCount,
		job.DurationSeconds,
		userKey,
		job.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("repo: insert job %s: %w", job.Handle, err)
	}
	return nil
}

// UpdateState stores the job's latest state, progress and outcome.
func (r *GenerationRepositoryPG) UpdateState(ctx context.Context, job domain.GenerationJob) error {
	var message string
	if job.TerminalError != nil {
		message = job.TerminalError.Error()
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QUpdateGenerationJobState,
		job.Handle,
		string(job.State),
		job.ProgressPercent,
		job.ErrorCode(),
		message,
		job.ArtifactRef,
	)
	if err != nil {
		return fmt.Errorf("repo: update job %s: %w", job.Handle, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("repo: update job %s: %w", job.Handle, domain.ErrNotFound)
	}
	return nil
}

// GetByHandle fetches an archived job.
func (r *GenerationRepositoryPG) GetByHandle(ctx context.Context, handle string) (*domain.GenerationJob, error) {
	row := r.sql.QueryRow(ctx, sqlinline.QSelectGenerationJob, handle)
	var (
		job       domain.GenerationJob
		media     string
		state     string
		mode      string
		errorCode string
	)
	if err := row.Scan(
		&job.Handle,
		&job.JobID,
		&job.ProviderID,
		&media,
		&state,
		&job.ProgressPercent,
		&mode,
		&job.SourceCount,
		&job.DurationSeconds,
		&errorCode,
		&job.ArtifactRef,
		&job.SubmittedAt,
	); err != nil {
		if infra.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("repo: get job %s: %w", handle, err)
	}
	job.MediaType = domain.MediaType(media)
	job.State = domain.JobState(state)
	job.CompositionMode = domain.CompositionMode(mode)
	if errorCode != "" {
		job.TerminalError = &domain.ArchivedError{Code: errorCode}
	}
	return &job, nil
}

// CountByState aggregates jobs submitted since the given instant.
func (r *GenerationRepositoryPG) CountByState(ctx context.Context, since time.Time) (map[domain.JobState]int, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QCountGenerationJobsByState, since)
	if err != nil {
		return nil, fmt.Errorf("repo: count jobs: %w", err)
	}
	defer rows.Close()
	out := make(map[domain.JobState]int)
	for rows.Next() {
		var (
			state string
			count int
		)
		if err := rows.Scan(&state, &count); err != nil {
			return nil, fmt.Errorf("repo: scan count: %w", err)
		}
		out[domain.JobState(state)] = count
	}
	return out, rows.Err()
}
