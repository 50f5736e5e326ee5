package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/angelmondragon/droppoint-backend/pkg/config"
)

var devOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
}

// CORS allows the configured storefront and ops origins. Outside dev an empty
// list means no browser origin is allowed.
func CORS(app config.AppConfig) func(http.Handler) http.Handler {
	origins := app.CORSOrigins
	if len(origins) == 0 && app.IsDev() {
		origins = devOrigins
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			idempotencyHeader, requestIDHeader,
			// EventSource reconnects send this on the order stream.
			"Last-Event-ID",
		},
		ExposedHeaders:   []string{requestIDHeader, replayedHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
