package handlers

import (
	"errors"
	"net/http"

	"mediagen/internal/domain"
)

// writeError maps the domain error taxonomy onto HTTP statuses.
func (a *App) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	code := domain.ErrorCode(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		a.Logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		a.error(w, status, code, "internal error")
		return
	}
	body := errorBody{Error: code, Message: err.Error()}
	var exhausted *domain.AllProvidersExhaustedError
	if errors.As(err, &exhausted) {
		retryable := exhausted.Retryable()
		body.Retryable = &retryable
		if retryable {
			w.Header().Set("Retry-After", "30")
		}
	}
	a.json(w, status, body)
}

func statusFor(err error) int {
	var (
		compErr *domain.CompositionError
		subErr  *domain.SubmissionError
		exhErr  *domain.AllProvidersExhaustedError
		resErr  *domain.ResolutionError
	)
	switch {
	case errors.As(err, &exhErr):
		return http.StatusServiceUnavailable
	case errors.As(err, &resErr):
		if resErr.Kind == domain.ResolutionArtifactExpired {
			return http.StatusGone
		}
		return http.StatusConflict
	case errors.As(err, &compErr), errors.Is(err, domain.ErrExtraction), errors.Is(err, domain.ErrNoSources):
		return http.StatusUnprocessableEntity
	case errors.As(err, &subErr):
		if subErr.Class == domain.ClassPermanentForRequest {
			return http.StatusUnprocessableEntity
		}
		return http.StatusBadGateway
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
