package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/leeaandrob/marketlens/internal/domain"
	"github.com/leeaandrob/marketlens/internal/storage"
)

// Handlers holds the API handlers.
type Handlers struct {
	store *storage.Store
}

// NewHandlers creates new API handlers.
func NewHandlers(store *storage.Store) *Handlers {
	return &Handlers{store: store}
}

// Response helpers

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// HealthCheck reports server liveness.
func (h *Handlers) HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStats returns store-level counters.
func (h *Handlers) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// GetDomainView returns the ranked view for one domain.
func (h *Handlers) GetDomainView(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "domain")
	if _, ok := domain.Names[name]; !ok {
		respondError(w, http.StatusBadRequest, "Unknown domain: "+name)
		return
	}

	analyzed, err := h.store.AllAnalyzed(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch analyses")
		return
	}

	view, err := domain.Aggregate(name, "", analyzed)
	if err != nil {
		respondError(w, http.StatusBadRequest, view.Error)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// GetHeadlines returns the high-relevance categorization across all
// domains.
func (h *Handlers) GetHeadlines(w http.ResponseWriter, r *http.Request) {
	analyzed, err := h.store.AllAnalyzed(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to fetch analyses")
		return
	}

	respondJSON(w, http.StatusOK, domain.Categorize(analyzed))
}
