package oasbind

import (
	"net/http"
	"strings"
)

// TrailingSlash returns middleware that 301-redirects non-root paths with a
// trailing slash to the slash-stripped equivalent, preserving the query
// string. The root path is exempt. The Service applies this outermost on
// every request.
func TrailingSlash() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" && strings.HasSuffix(r.URL.Path, "/") {
				target := strings.TrimRight(r.URL.Path, "/")
				if r.URL.RawQuery != "" {
					target += "?" + r.URL.RawQuery
				}
				http.Redirect(w, r, target, http.StatusMovedPermanently)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
