package api

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"stormlightlabs.org/rankcore/internal/core"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	data, err := json.Marshal(v)
	if err != nil {
		log.Printf("writeJSON marshal error: %v", err)
		return
	}

	if _, err := w.Write(data); err != nil {
		log.Printf("writeJSON write error: %v", err)
	}
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: msg})
}

// writeError writes an error response with the appropriate HTTP status code:
// 404 for core.NotFoundError, 500 for everything else.
func writeError(w http.ResponseWriter, err error) {
	if core.IsNotFound(err) {
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: err.Error()})
}

func getIntQuery(r *http.Request, key string, defaultVal int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return i
}
