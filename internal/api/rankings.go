package api

import (
	"net/http"
	"time"

	"stormlightlabs.org/rankcore/internal/cache"
	"stormlightlabs.org/rankcore/internal/core"
)

// RankingRoutes serves cohort ranking snapshots produced by the ranking
// engine's most recent run (§1.9); it never triggers a live run itself.
type RankingRoutes struct {
	repo  core.RankedTeamRepository
	cache *cache.Client
}

// NewRankingRoutes creates the ranking HTTP surface.
func NewRankingRoutes(repo core.RankedTeamRepository, cacheClient *cache.Client) *RankingRoutes {
	return &RankingRoutes{repo: repo, cache: cacheClient}
}

func (rr *RankingRoutes) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/rankings/{age}/{gender}", rr.handleList)
	mux.HandleFunc("GET /v1/rankings/{age}/{gender}/{team_id}", rr.handleOne)
}

// handleList godoc
// @Summary Cohort ranking snapshot
// @Description Returns the most recent ranked-team snapshot for an (age, gender) cohort, rank-ordered.
// @Tags rankings
// @Produce json
// @Param age path string true "Age group, e.g. u14"
// @Param gender path string true "Gender, e.g. Male or Female"
// @Success 200 {array} core.RankedTeam
// @Failure 500 {object} ErrorResponse
// @Router /rankings/{age}/{gender} [get]
func (rr *RankingRoutes) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cohort := core.Cohort{AgeGroup: core.AgeGroup(r.PathValue("age")), Gender: core.Gender(r.PathValue("gender"))}

	key := rr.cache.ListKey("ranking", map[string]string{"age": string(cohort.AgeGroup), "gender": string(cohort.Gender)})
	val, err := rr.cache.GetOrCompute(ctx, key, 60*time.Second, func() (any, error) {
		return rr.repo.ListCohort(ctx, cohort)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, val)
}

// handleOne godoc
// @Summary Single team's ranking row
// @Description Returns one team's ranked row within a cohort.
// @Tags rankings
// @Produce json
// @Param age path string true "Age group, e.g. u14"
// @Param gender path string true "Gender, e.g. Male or Female"
// @Param team_id path string true "Master team id"
// @Success 200 {object} core.RankedTeam
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /rankings/{age}/{gender}/{team_id} [get]
func (rr *RankingRoutes) handleOne(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	cohort := core.Cohort{AgeGroup: core.AgeGroup(r.PathValue("age")), Gender: core.Gender(r.PathValue("gender"))}
	masterID := core.MasterID(r.PathValue("team_id"))

	row, err := rr.repo.Get(ctx, cohort, masterID)
	if err != nil {
		writeError(w, err)
		return
	}
	if row == nil {
		writeError(w, core.NewNotFoundError("ranked_team", string(masterID)))
		return
	}

	writeJSON(w, http.StatusOK, row)
}
