package middleware

import (
	"net/http"

	"github.com/campusdesk/cd-backend/internal/config"
	"github.com/go-chi/cors"
)

// NewCORSHandler builds the CORS middleware from deploy config. Every
// endpoint behind this is Bearer-authenticated, so the Authorization and
// Content-Type headers must survive preflight no matter what the
// deployment lists.
func NewCORSHandler(cfg *config.CORSConfig) func(http.Handler) http.Handler {
	headers := cfg.AllowedHeaders
	for _, required := range []string{"Authorization", "Content-Type"} {
		if !containsFold(headers, required) {
			headers = append(headers, required)
		}
	}

	return cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   cfg.AllowedMethods,
		AllowedHeaders:   headers,
		ExposedHeaders:   cfg.ExposedHeaders,
		AllowCredentials: cfg.AllowCredentials,
		MaxAge:           cfg.MaxAge,
	})
}

func containsFold(list []string, want string) bool {
	for _, s := range list {
		if http.CanonicalHeaderKey(s) == http.CanonicalHeaderKey(want) {
			return true
		}
	}
	return false
}
