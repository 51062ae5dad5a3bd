package api

import (
	"net/http"
	"strconv"

	"stormlightlabs.org/rankcore/internal/core"
	"stormlightlabs.org/rankcore/internal/review"
)

// ReviewRoutes serves the operator review queue and its approve/reject/
// requeue mutations, delegating to a review.Queue so the HTTP surface and
// the review CLI command share one adjudication path. gate wraps the three
// mutation handlers behind operator auth; a nil gate leaves them open,
// matching debug-mode behavior elsewhere in the API.
type ReviewRoutes struct {
	queue *review.Queue
	gate  func(http.Handler) http.Handler
}

// NewReviewRoutes creates the review HTTP surface.
func NewReviewRoutes(queue *review.Queue, gate func(http.Handler) http.Handler) *ReviewRoutes {
	return &ReviewRoutes{queue: queue, gate: gate}
}

func (rr *ReviewRoutes) wrap(h http.HandlerFunc) http.Handler {
	if rr.gate == nil {
		return h
	}
	return rr.gate(h)
}

func (rr *ReviewRoutes) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/review", rr.handleList)
	mux.Handle("POST /v1/review/{id}/approve", rr.wrap(rr.handleApprove))
	mux.Handle("POST /v1/review/{id}/reject", rr.wrap(rr.handleReject))
	mux.Handle("POST /v1/review/{id}/requeue", rr.wrap(rr.handleRequeue))
}

// handleList godoc
// @Summary Pending review queue
// @Description Returns uncertain or unmatched team records awaiting operator adjudication.
// @Tags review
// @Produce json
// @Param limit query int false "Page size" default(50)
// @Param offset query int false "Page offset" default(0)
// @Success 200 {array} core.ReviewEntry
// @Failure 500 {object} ErrorResponse
// @Router /review [get]
func (rr *ReviewRoutes) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	page := core.Page{Limit: getIntQuery(r, "limit", 50), Offset: getIntQuery(r, "offset", 0)}

	entries, err := rr.queue.ListPending(ctx, page)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (rr *ReviewRoutes) parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeBadRequest(w, "invalid review id")
		return 0, false
	}
	return id, true
}

// handleApprove godoc
// @Summary Approve a review entry
// @Description Approves the suggested master team, creating an alias and removing the entry from the queue.
// @Tags review
// @Produce json
// @Param id path int true "Review entry id"
// @Success 200 {object} core.Alias
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /review/{id}/approve [post]
func (rr *ReviewRoutes) handleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := rr.parseID(w, r)
	if !ok {
		return
	}

	entry, err := rr.queue.Reviews.Get(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if entry == nil {
		writeError(w, core.NewNotFoundError("review_entry", r.PathValue("id")))
		return
	}
	if entry.SuggestedMasterID == nil {
		writeBadRequest(w, "review entry has no suggested master team to approve")
		return
	}

	if err := rr.queue.Approve(ctx, id, *entry.SuggestedMasterID); err != nil {
		writeError(w, err)
		return
	}

	a, err := rr.queue.Aliases.Lookup(ctx, entry.ProviderID, entry.ProviderTeamID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, a)
}

// handleReject godoc
// @Summary Reject a review entry
// @Description Marks a review entry rejected without creating an alias.
// @Tags review
// @Produce json
// @Param id path int true "Review entry id"
// @Success 200 {object} HealthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /review/{id}/reject [post]
func (rr *ReviewRoutes) handleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := rr.parseID(w, r)
	if !ok {
		return
	}

	entry, err := rr.queue.Reviews.Get(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if entry == nil {
		writeError(w, core.NewNotFoundError("review_entry", r.PathValue("id")))
		return
	}

	if err := rr.queue.Reject(ctx, id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "rejected"})
}

// handleRequeue godoc
// @Summary Requeue a resolved review entry
// @Description Resets an approved or rejected review entry back to pending.
// @Tags review
// @Produce json
// @Param id path int true "Review entry id"
// @Success 200 {object} HealthResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /review/{id}/requeue [post]
func (rr *ReviewRoutes) handleRequeue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := rr.parseID(w, r)
	if !ok {
		return
	}

	entry, err := rr.queue.Reviews.Get(ctx, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if entry == nil {
		writeError(w, core.NewNotFoundError("review_entry", r.PathValue("id")))
		return
	}

	if err := rr.queue.Requeue(ctx, id); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "pending"})
}
