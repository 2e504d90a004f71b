// Package httpintrospect exposes a Registry's live actors over HTTP,
// grounded on the teacher framework's examples/scheduler-demo
// SchedulerAPIModule: a small go-chi/chi/v5 router whose handlers
// translate kernel state into JSON, with chi.URLParam for path
// parameters and the same http.Error/json.NewEncoder response style.
package httpintrospect

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mitchellwrosen/gentw"
)

// Registry is the subset of timewarp.Registry the router needs.
type Registry interface {
	Actors() []string
	Lookup(id string) (timewarp.Inspectable, error)
}

// actorSummary is the wire shape returned for each actor.
type actorSummary struct {
	ID           string `json:"id"`
	LVT          uint64 `json:"lvt"`
	HistoryDepth int    `json:"historyDepth"`
	PastLogDepth int    `json:"pastLogDepth"`
}

// NewRouter builds a chi.Router exposing:
//
//	GET /healthz        -- liveness probe, always 200
//	GET /actors         -- summary of every live actor
//	GET /actors/{id}    -- summary of a single actor, 404 if unknown
func NewRouter(reg Registry) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", handleHealthz)
	r.Get("/actors", handleListActors(reg))
	r.Get("/actors/{id}", handleGetActor(reg))

	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleListActors(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := reg.Actors()
		summaries := make([]actorSummary, 0, len(ids))
		for _, id := range ids {
			ref, err := reg.Lookup(id)
			if err != nil {
				continue
			}
			summaries = append(summaries, summarize(ref))
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"actors": summaries,
			"count":  len(summaries),
		})
	}
}

func handleGetActor(reg Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if id == "" {
			http.Error(w, "actor id is required", http.StatusBadRequest)
			return
		}

		ref, err := reg.Lookup(id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(summarize(ref))
	}
}

func summarize(ref timewarp.Inspectable) actorSummary {
	return actorSummary{
		ID:           ref.ID(),
		LVT:          uint64(ref.LVT()),
		HistoryDepth: ref.HistoryDepth(),
		PastLogDepth: ref.PastLogDepth(),
	}
}
