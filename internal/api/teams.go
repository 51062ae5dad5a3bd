package api

import (
	"net/http"
	"time"

	"stormlightlabs.org/rankcore/internal/cache"
	"stormlightlabs.org/rankcore/internal/core"
)

// TeamRoutes serves master team identity records.
type TeamRoutes struct {
	repo  core.MasterTeamRepository
	cache *cache.Client
}

// NewTeamRoutes creates the team HTTP surface.
func NewTeamRoutes(repo core.MasterTeamRepository, cacheClient *cache.Client) *TeamRoutes {
	return &TeamRoutes{repo: repo, cache: cacheClient}
}

func (tr *TeamRoutes) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/teams/{master_id}", tr.handleGet)
}

// handleGet godoc
// @Summary Master team identity
// @Description Returns the canonical master team record for a master id.
// @Tags teams
// @Produce json
// @Param master_id path string true "Master team id"
// @Success 200 {object} core.MasterTeam
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /teams/{master_id} [get]
func (tr *TeamRoutes) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := core.MasterID(r.PathValue("master_id"))

	key := tr.cache.EntityKey("master_team", string(id))
	val, err := tr.cache.GetOrCompute(ctx, key, 30*time.Minute, func() (any, error) {
		return tr.repo.Get(ctx, id)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	team, _ := val.(*core.MasterTeam)
	if team == nil {
		writeError(w, core.NewNotFoundError("master_team", string(id)))
		return
	}

	writeJSON(w, http.StatusOK, team)
}
