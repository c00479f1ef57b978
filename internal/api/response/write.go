package response

import (
	"encoding/json"
	"net/http"
)

// JSON writes data as a JSON body. Health and stats are live values, so
// nothing the API returns is cacheable.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}
