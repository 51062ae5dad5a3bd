package api

import (
	"net/http"

	"stormlightlabs.org/rankcore/internal/authx"
)

// AuthRoutes handles the one-time operator GitHub OAuth login that mints the
// bearer token required by RequireOperatorToken on review mutation routes.
type AuthRoutes struct{}

// NewAuthRoutes creates the operator-login HTTP surface.
func NewAuthRoutes() *AuthRoutes {
	return &AuthRoutes{}
}

func (ar *AuthRoutes) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/auth/github", ar.handleLogin)
	mux.HandleFunc("GET /v1/auth/github/callback", ar.handleCallback)
}

// handleLogin godoc
// @Summary Begin operator GitHub login
// @Description Redirects to GitHub's OAuth consent screen.
// @Tags meta
// @Router /auth/github [get]
func (ar *AuthRoutes) handleLogin(w http.ResponseWriter, r *http.Request) {
	cfg := authx.GitHubConfig()
	http.Redirect(w, r, cfg.AuthCodeURL("rankcore-operator"), http.StatusFound)
}

// handleCallback godoc
// @Summary Complete operator GitHub login
// @Description Exchanges the OAuth code and persists the operator's bearer token.
// @Tags meta
// @Router /auth/github/callback [get]
func (ar *AuthRoutes) handleCallback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	if code == "" {
		writeBadRequest(w, "missing code")
		return
	}

	cfg := authx.GitHubConfig()
	tok, err := authx.Exchange(r.Context(), cfg, code)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := authx.SaveToken(tok); err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "operator token saved"})
}
