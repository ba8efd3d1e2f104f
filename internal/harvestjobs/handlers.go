package harvestjobs

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/EmpoweredVote/geoharvest/internal/config"
)

// Routes returns the admin harvest routes, to be mounted under /admin/harvest.
func (m *Manager) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", m.StartHarvest)
	r.Get("/", m.ListHarvestJobs)
	r.Get("/{jobID}", m.GetHarvestStatus)
	return r
}

// StartHarvest handles POST /admin/harvest
// Accepts an optional {"start_datum": "2024-01-01"}.
func (m *Manager) StartHarvest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		StartDatum string `json:"start_datum"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var start time.Time
	if s := strings.TrimSpace(body.StartDatum); s != "" {
		t, err := time.Parse(config.DateLayout, s)
		if err != nil {
			http.Error(w, "start_datum must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		start = t
	}

	job, err := m.Start(start)
	if errors.Is(err, ErrJobRunning) {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}
	if errors.Is(err, ErrShuttingDown) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]string{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// GetHarvestStatus handles GET /admin/harvest/{jobID}
func (m *Manager) GetHarvestStatus(w http.ResponseWriter, r *http.Request) {
	job, ok := m.Get(chi.URLParam(r, "jobID"))
	if !ok {
		http.Error(w, "Job not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(job)
}

// ListHarvestJobs handles GET /admin/harvest
func (m *Manager) ListHarvestJobs(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(m.List())
}
