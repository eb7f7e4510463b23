package oasbind

import (
	"net/http"

	json "github.com/goccy/go-json"
)

// jsonMarshal and jsonUnmarshal are the single JSON codec for the package.
func jsonMarshal(v any) ([]byte, error)      { return json.Marshal(v) }
func jsonUnmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// writeJSON writes v as an application/json response with the given status.
func writeJSON(w http.ResponseWriter, v any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(v)
}

// writeProblem maps err through Problem and writes it as an RFC 9457
// application/problem+json response.
func writeProblem(w http.ResponseWriter, err error) {
	pd := Problem(err)
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(pd.Status)
	//nolint:errcheck,gosec // best-effort after WriteHeader
	json.NewEncoder(w).Encode(pd)
}
