package middle

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/vendorpay/vendorpay/infra/response"
)

// AuthMiddleware guards the versioned merchant API with the bearer API key
// fixed at process start. An empty key means the deployment is misconfigured
// and every guarded request is refused.
func AuthMiddleware(apiKey string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if apiKey == "" {
				response.Error(w, http.StatusInternalServerError, "API key not configured", nil)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Error(w, http.StatusUnauthorized, "Authorization header required", nil)
				return
			}

			presented, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || presented == "" {
				response.Error(w, http.StatusUnauthorized, "Invalid authorization format. Use: Bearer <api_key>", nil)
				return
			}

			if subtle.ConstantTimeCompare([]byte(presented), []byte(apiKey)) != 1 {
				response.Error(w, http.StatusUnauthorized, "Invalid API key", nil)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
