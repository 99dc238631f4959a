package api

import (
	"encoding/json"
	"net/http"
	"strings"
)

// Problem is the body of every error response.
type Problem struct {
	// Error is the status text in snake case, e.g. "not_found".
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the client may already be gone
	json.NewEncoder(w).Encode(v)
}

// writeProblem answers with status and a Problem naming it.
func writeProblem(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, Problem{Error: problemCode(status), Detail: detail})
}

func problemCode(status int) string {
	return strings.ReplaceAll(strings.ToLower(http.StatusText(status)), " ", "_")
}
