package middleware

import (
	"encoding/json"
	"net/http"
)

// writeError writes the API's error body. Middleware cannot use the handlers package, so
// the shape is repeated here.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"status":  status,
		"message": message,
		"detail":  message,
	})
}
