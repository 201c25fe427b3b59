package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"mediagen/internal/domain"
	"mediagen/internal/engine"
	"mediagen/internal/infra"
	"mediagen/internal/providers"
)

// Engine is the orchestration surface the handlers drive.
type Engine interface {
	Start(ctx context.Context, req engine.StartRequest) (domain.GenerationJob, error)
	Status(ctx context.Context, handle string) (domain.GenerationJob, error)
	Artifact(ctx context.Context, handle string) (*domain.Artifact, error)
	Cancel(ctx context.Context, handle string) (domain.GenerationJob, error)
	Counts() map[domain.JobState]int
}

// History aggregates persisted jobs. It is nil when no database is configured.
type History interface {
	CountByState(ctx context.Context, since time.Time) (map[domain.JobState]int, error)
}

// App carries the dependencies shared by every handler.
type App struct {
	Engine   Engine
	Registry *providers.Registry
	History  History
	Contexts ContextStore
	Logger   *infra.Logger
}

// NewApp builds the handler set. history may be nil.
func NewApp(eng Engine, registry *providers.Registry, history History, logger *infra.Logger) *App {
	if logger == nil {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &App{Engine: eng, Registry: registry, History: history, Logger: logger}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable *bool  `json:"retryable,omitempty"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, errorBody{Error: errCode, Message: message})
}
