package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/relayhub/internal/relay"
)

// handleGetState returns the full engine snapshot: bus and controller
// status, every relay, all rules and the armed timers.
func (s *Server) handleGetState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

// handleListRelays returns the state and mode of every relay.
func (s *Server) handleListRelays(w http.ResponseWriter, _ *http.Request) {
	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"relays": snap.Relays,
		"count":  len(snap.Relays),
	})
}

// handleGetRelay returns one relay by id.
func (s *Server) handleGetRelay(w http.ResponseWriter, r *http.Request) {
	id, err := relay.ParseID(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "relay id must be a number")
		return
	}

	for _, view := range s.engine.Snapshot().Relays {
		if view.ID == id {
			writeJSON(w, http.StatusOK, view)
			return
		}
	}
	writeNotFound(w, "relay not found")
}

// handleListSchedules returns every rule keyed by relay, plus the timers
// currently armed and their next fire times.
func (s *Server) handleListSchedules(w http.ResponseWriter, _ *http.Request) {
	snap := s.engine.Snapshot()
	writeJSON(w, http.StatusOK, map[string]any{
		"schedules": snap.Schedules,
		"armed":     snap.Armed,
	})
}
