package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

var defaultCORSOrigins = []string{
	"http://localhost:3000",            // local dev
	"https://cryptocart.store",         // storefront
	"https://admin.cryptocart.store",   // admin console
	"https://staging.cryptocart.store", // staging storefront
}

// CORS returns middleware that applies the API's allowed origin policy.
// Webhook deliveries are server-to-server and never preflight, so this only
// matters for the health and metrics surfaces browsers may hit.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   defaultCORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           300,
	}).Handler
}
