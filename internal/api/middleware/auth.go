package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/newthinker/signaledge/internal/api/response"
	"github.com/newthinker/signaledge/internal/core"
)

// APIKeyAuth guards the backtest API with a shared key, read from X-API-Key
// or an "Authorization: Bearer" header. An empty apiKey disables the check.
func APIKeyAuth(apiKey string) func(http.Handler) http.Handler {
	want := []byte(apiKey)
	return func(next http.Handler) http.Handler {
		if apiKey == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := presentedKey(r)
			if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				response.Error(w, http.StatusUnauthorized, core.WrapError(core.ErrUnauthorized, nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func presentedKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	auth := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(auth, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}
