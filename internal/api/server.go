package api

import (
	"context"
	"database/sql"
	_ "expvar"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"stormlightlabs.org/rankcore/internal/alias"
	"stormlightlabs.org/rankcore/internal/cache"
	"stormlightlabs.org/rankcore/internal/core"
	docs "stormlightlabs.org/rankcore/internal/docs"
	"stormlightlabs.org/rankcore/internal/echo"
	"stormlightlabs.org/rankcore/internal/middleware"
	"stormlightlabs.org/rankcore/internal/repository"
	"stormlightlabs.org/rankcore/internal/review"
)

// Server is the top-level HTTP handler for the rankcore API.
type Server struct {
	mux *http.ServeMux
}

// NewServer wires repositories, the alias cache, and every Registrar into
// one mux. operatorToken gates the review-mutation endpoints; an empty
// string leaves them open (debug mode).
func NewServer(db *sql.DB, cacheClient *cache.Client, aliases *alias.Cache, operatorToken string) *Server {
	echo.Info("Initializing repositories...")

	masterRepo := repository.NewMasterTeamRepository(db)
	rankedRepo := repository.NewRankedTeamRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	runsRepo := repository.NewImportRunRepository(db)
	aliasRepo := repository.NewAliasRepository(db)

	echo.Info("Registering routes...")

	var gate func(http.Handler) http.Handler
	if operatorToken != "" {
		gate = middleware.RequireOperatorToken(operatorToken)
	}

	// A served approval bypasses the in-memory alias cache (review.Queue
	// writes straight to the repository), so the rematch trigger reloads it
	// from storage to pick up the newly approved mapping.
	onApprove := func(ctx context.Context, masterID core.MasterID) error {
		return aliases.Preload(ctx)
	}
	reviewQueue := review.New(reviewRepo, aliasRepo, onApprove)

	return newServer(
		NewRankingRoutes(rankedRepo, cacheClient),
		NewTeamRoutes(masterRepo, cacheClient),
		NewReviewRoutes(reviewQueue, gate),
		NewMetaRoutes(runsRepo),
		NewAuthRoutes(),
	)
}

func newServer(registrars ...Registrar) *Server {
	docs.SwaggerInfo.BasePath = "/v1"

	mux := http.NewServeMux()
	for _, r := range registrars {
		r.RegisterRoutes(mux)
	}

	// @Summary Health check
	// @Description Check if the API server is running
	// @Tags meta
	// @Produce json
	// @Success 200 {object} HealthResponse
	// @Router /health [get]
	mux.HandleFunc("GET /v1/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
	})

	mux.HandleFunc("/docs/", httpSwagger.WrapHandler)
	mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs/", http.StatusMovedPermanently)
	})
	mux.Handle("GET /debug/vars", http.DefaultServeMux)

	return &Server{mux: mux}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
