package repo

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"mediagen/internal/domain"
	"mediagen/internal/sqlinline"
)

type call struct {
	query string
	args  []any
}

type stubExecutor struct {
	tag  string
	err  error
	row  []any
	rows [][]any

	calls []call
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.calls = append(s.calls, call{query, args})
	return pgconn.NewCommandTag(s.tag), s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	s.calls = append(s.calls, call{query, args})
	return stubRow{values: s.row, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	s.calls = append(s.calls, call{query, args})
	if s.err != nil {
		return nil, s.err
	}
	return &stubRows{rows: s.rows, pos: -1}, nil
}

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type stubRows struct {
	rows [][]any
	pos  int
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return nil }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *stubRows) Values() ([]any, error)                       { return r.rows[r.pos], nil }
func (r *stubRows) RawValues() [][]byte                          { return nil }
func (r *stubRows) Conn() *pgx.Conn                              { return nil }

func (r *stubRows) Next() bool {
	r.pos++
	return r.pos < len(r.rows)
}

func (r *stubRows) Scan(dest ...any) error {
	return assign(dest, r.rows[r.pos])
}

func assign(dest, values []any) error {
	if len(dest) != len(values) {
		return errors.New("column count mismatch")
	}
	for i, v := range values {
		reflect.ValueOf(dest[i]).Elem().Set(reflect.ValueOf(v))
	}
	return nil
}

func sampleJob() domain.GenerationJob {
	return domain.GenerationJob{
		Handle:          "6c1f",
		JobID:           "models/veo/operations/abc",
		ProviderID:      "veo-3",
		MediaType:       domain.MediaTypeVideo,
		State:           domain.JobStateSubmitted,
		SourceCount:     3,
		CompositionMode: domain.ModeFusionBlend,
		DurationSeconds: 8,
		SubmittedAt:     time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestCreateBindsColumnsInOrder(t *testing.T) {
	exec := &stubExecutor{tag: "INSERT 0 1"}
	if err := NewGenerationRepository(exec).Create(context.Background(), sampleJob(), "shop-7"); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	got := exec.calls[0]
	if got.query != sqlinline.QInsertGenerationJob {
		t.Fatalf("unexpected query used")
	}
	want := []any{"6c1f", "models/veo/operations/abc", "veo-3", "video", "SUBMITTED", 0, "fusion_blend", 3, 8, "shop-7", sampleJob().SubmittedAt}
	if !reflect.DeepEqual(got.args, want) {
		t.Fatalf("args = %v, want %v", got.args, want)
	}
}

func TestUpdateStateStoresErrorCode(t *testing.T) {
	exec := &stubExecutor{tag: "UPDATE 1"}
	job := sampleJob()
	job.State = domain.JobStateFailed
	job.ProgressPercent = 40
	job.TerminalError = domain.ErrCancelled
	if err := NewGenerationRepository(exec).UpdateState(context.Background(), job); err != nil {
		t.Fatalf("UpdateState returned error: %v", err)
	}
	args := exec.calls[0].args
	if args[1] != "FAILED" || args[2] != 40 || args[3] != "cancelled" || args[4] != "cancelled" {
		t.Fatalf("args = %v", args)
	}

	missing := &stubExecutor{tag: "UPDATE 0"}
	if err := NewGenerationRepository(missing).UpdateState(context.Background(), job); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestGetByHandle(t *testing.T) {
	job := sampleJob()
	exec := &stubExecutor{row: []any{
		job.Handle, job.JobID, job.ProviderID, "video", "TIMED_OUT", 70, "fusion_blend", 3, 8, "timed_out", "", job.SubmittedAt,
	}}
	got, err := NewGenerationRepository(exec).GetByHandle(context.Background(), job.Handle)
	if err != nil {
		t.Fatalf("GetByHandle returned error: %v", err)
	}
	if got.State != domain.JobStateTimedOut || got.ErrorCode() != "timed_out" || got.ProgressPercent != 70 {
		t.Fatalf("job = %s/%s/%d", got.State, got.ErrorCode(), got.ProgressPercent)
	}
	if got.CompositionMode != domain.ModeFusionBlend || got.SourceCount != 3 {
		t.Fatalf("job mode = %s sources = %d", got.CompositionMode, got.SourceCount)
	}

	if _, err := NewGenerationRepository(&stubExecutor{err: pgx.ErrNoRows}).GetByHandle(context.Background(), "x"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want not found", err)
	}
}

func TestCountByState(t *testing.T) {
	exec := &stubExecutor{rows: [][]any{{"COMPLETED", 4}, {"FAILED", 1}}}
	since := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	got, err := NewGenerationRepository(exec).CountByState(context.Background(), since)
	if err != nil {
		t.Fatalf("CountByState returned error: %v", err)
	}
	if got[domain.JobStateCompleted] != 4 || got[domain.JobStateFailed] != 1 {
		t.Fatalf("counts = %v", got)
	}
	if exec.calls[0].args[0] != since {
		t.Fatalf("since arg = %v", exec.calls[0].args[0])
	}
}
