package api

import (
	"net/http"

	"stormlightlabs.org/rankcore/internal/core"
)

// MetaRoutes exposes ingestion run metadata.
type MetaRoutes struct {
	runs core.ImportRunRepository
}

// NewMetaRoutes creates the meta HTTP surface.
func NewMetaRoutes(runs core.ImportRunRepository) *MetaRoutes {
	return &MetaRoutes{runs: runs}
}

func (mr *MetaRoutes) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/meta/import-runs", mr.handleImportRuns)
}

// handleImportRuns godoc
// @Summary Recent ingestion runs
// @Description Returns the most recent ingestion run per provider.
// @Tags meta
// @Produce json
// @Success 200 {array} core.ImportMetrics
// @Failure 500 {object} ErrorResponse
// @Router /meta/import-runs [get]
func (mr *MetaRoutes) handleImportRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := mr.runs.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
