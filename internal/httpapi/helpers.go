package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// writeJSON writes v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeData wraps v in the success envelope used by all resource endpoints.
func writeData(w http.ResponseWriter, status int, v any) {
	writeJSON(w, status, map[string]any{
		"success": true,
		"data":    v,
	})
}

// writeError writes the error envelope. The request id is included when the
// middleware attached one, so clients can quote it in reports.
func writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	body := map[string]any{
		"success": false,
		"error": map[string]any{
			"code":    status,
			"message": message,
		},
	}
	if rid := RequestIDFromContext(r.Context()); rid != "" {
		body["request_id"] = rid
	}
	writeJSON(w, status, body)
}

// decodeJSON decodes the request body into v. Unknown fields are allowed:
// update endpoints accept full resource objects.
func decodeJSON(r *http.Request, v any) error {
	defer func() {
		_, _ = io.Copy(io.Discard, r.Body)
	}()
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
}
