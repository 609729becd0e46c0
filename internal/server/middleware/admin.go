package middleware

import (
	"net/http"
)

// CredentialVerifier checks basic-auth credentials.
type CredentialVerifier interface {
	VerifyAdmin(user, password string) bool
}

// BasicAuth guards next with HTTP basic authentication.
func BasicAuth(realm string, verifier CredentialVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, password, ok := r.BasicAuth()
			if !ok || !verifier.VerifyAdmin(user, password) {
				w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`", charset="UTF-8"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
