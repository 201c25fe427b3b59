package handlers

import (
	"net/http"
)

type healthResponse struct {
	Status      string `json:"status"`
	Persistence bool   `json:"persistence"`
	Tracked     int    `json:"tracked"`
}

// Health reports liveness plus whether job history survives a restart.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	tracked := 0
	if a.Engine != nil {
		for _, n := range a.Engine.Counts() {
			tracked += n
		}
	}
	a.json(w, http.StatusOK, healthResponse{Status: "ok", Persistence: a.History != nil, Tracked: tracked})
}
