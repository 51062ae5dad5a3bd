// Package api provides the read-only HTTP surface over rankings, team
// identities, and the review queue.
//
// @title rankcore API
// @version 1.0
// @BasePath /v1
//
// @contact.name API Support
// @contact.url https://github.com/stormlightlabs/rankcore
//
// @license.name MPL-2.0
// @license.url https://opensource.org/license/mpl-2-0
//
// @tag.name rankings
// @tag.description Cohort ranking snapshots
//
// @tag.name teams
// @tag.description Master team identities
//
// @tag.name review
// @tag.description Operator review queue for uncertain matches
//
// @tag.name meta
// @tag.description Ingestion run metadata
package api

import "net/http"

// Registrar is anything that can add its endpoints to a mux.
type Registrar interface {
	RegisterRoutes(mux *http.ServeMux)
}

// ErrorResponse is the JSON body of a non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the JSON body of GET /v1/health.
type HealthResponse struct {
	Status string `json:"status"`
}
