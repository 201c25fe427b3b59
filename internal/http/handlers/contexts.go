package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// ContextStore keeps the free-text context prepended to a user's prompts.
type ContextStore interface {
	Lookup(ctx context.Context, userKey string) (string, error)
	Put(ctx context.Context, userKey, content string) error
}

type contextBody struct {
	UserKey string `json:"user_key"`
	Content string `json:"content"`
}

func (a *App) GetContext(w http.ResponseWriter, r *http.Request) {
	if a.Contexts == nil {
		a.error(w, http.StatusNotFound, "not_found", "context store disabled")
		return
	}
	key := chi.URLParam(r, "user_key")
	content, err := a.Contexts.Lookup(r.Context(), key)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	if content == "" {
		a.error(w, http.StatusNotFound, "not_found", "no context for user")
		return
	}
	a.json(w, http.StatusOK, contextBody{UserKey: key, Content: content})
}

func (a *App) PutContext(w http.ResponseWriter, r *http.Request) {
	if a.Contexts == nil {
		a.error(w, http.StatusNotFound, "not_found", "context store disabled")
		return
	}
	var body contextBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&body); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	key := chi.URLParam(r, "user_key")
	if strings.TrimSpace(body.Content) == "" {
		a.error(w, http.StatusBadRequest, "bad_request", "content required")
		return
	}
	if err := a.Contexts.Put(r.Context(), key, body.Content); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
