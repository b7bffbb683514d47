package statusapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/leapstack-labs/ingestiond/internal/execstore"
	"github.com/leapstack-labs/ingestiond/internal/model"
)

// DatasetLister is the subset of *scheduler.Scheduler this surface needs.
type DatasetLister interface {
	Specs() []model.DatasetSpec
}

// ExecutionHistory is the subset of *execstore.Store this surface needs.
type ExecutionHistory interface {
	Recent(limit int) ([]execstore.Record, error)
}

// datasetSummary is the read-only projection of a DatasetSpec this
// surface exposes; it deliberately omits connection keys, parameters,
// and destination configuration.
type datasetSummary struct {
	ID      string `json:"id"`
	Enabled bool   `json:"enabled"`
	Cron    string `json:"cron"`
}

// Register wires /healthz, /datasets, /datasets/*, and /executions onto r.
func Register(r *Router, datasets DatasetLister, history ExecutionHistory) {
	r.GET("/healthz", healthzHandler)
	r.GET("/datasets", datasetsHandler(datasets))
	r.GET("/datasets/*", datasetDetailHandler(datasets))
	r.GET("/executions", executionsHandler(history))
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func datasetsHandler(datasets DatasetLister) HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		specs := datasets.Specs()
		out := make([]datasetSummary, 0, len(specs))
		for _, spec := range specs {
			out = append(out, datasetSummary{ID: spec.ID, Enabled: spec.Enabled, Cron: spec.Cron})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func datasetDetailHandler(datasets DatasetLister) HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		id := strings.TrimPrefix(req.URL.Path, "/datasets/")
		for _, spec := range datasets.Specs() {
			if spec.ID == id {
				writeJSON(w, http.StatusOK, datasetSummary{ID: spec.ID, Enabled: spec.Enabled, Cron: spec.Cron})
				return
			}
		}
		http.Error(w, "dataset not found", http.StatusNotFound)
	}
}

func executionsHandler(history ExecutionHistory) HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		records, err := history.Recent(50)
		if err != nil {
			http.Error(w, "reading execution history failed", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, records)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
