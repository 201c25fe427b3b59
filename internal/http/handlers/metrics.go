package handlers

import (
	"net/http"
	"time"

	"mediagen/internal/domain"
)

const historyWindow = 24 * time.Hour

func stateCounts(in map[domain.JobState]int) map[string]int {
	out := make(map[string]int, len(in))
	for state, n := range in {
		out[string(state)] = n
	}
	return out
}

// TrackerMetrics reports live tracker counts and, with a database, the last
// 24 hours of submissions by state.
func (a *App) TrackerMetrics(w http.ResponseWriter, r *http.Request) {
	live := a.Engine.Counts()
	total := 0
	for _, n := range live {
		total += n
	}
	body := map[string]any{
		"tracked":  total,
		"by_state": stateCounts(live),
	}
	if a.History != nil {
		history, err := a.History.CountByState(r.Context(), time.Now().Add(-historyWindow))
		if err != nil {
			a.Logger.Warn().Err(err).Msg("metrics: history unavailable")
		} else {
			body["last_24h"] = stateCounts(history)
		}
	}
	a.json(w, http.StatusOK, body)
}
