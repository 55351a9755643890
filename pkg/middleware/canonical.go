package middleware

import (
	"net/http"

	"github.com/vango-dev/appcore/pkg/routepath"
)

// Canonical redirects requests for non-canonical paths ("/users/",
// "/a//b") to their canonical form with 308 Permanent Redirect, which
// preserves the method and body. Paths that cannot be canonicalized get
// 400 Bad Request.
func Canonical(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean, changed, err := routepath.Canonicalize(r.URL.EscapedPath())
		if err != nil {
			http.Error(w, "Invalid path", http.StatusBadRequest)
			return
		}
		if changed {
			target := clean
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusPermanentRedirect)
			return
		}
		next.ServeHTTP(w, r)
	})
}
