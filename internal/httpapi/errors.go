package httpapi

import (
	"encoding/json"
	"net/http"

	"opcalcd/pkg/types"
)

// writeJSONError writes a consistent JSON error payload. Used only for
// transport-level failures; operation failures ride the execute response
// body with success=false.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}
