package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/pure-golang/mailrelay/httpserver/middleware"
	"github.com/pure-golang/mailrelay/mail"
)

// NewRouter mounts the relay endpoint and the liveness probe.
func NewRouter(relay mail.Relay) http.Handler {
	h := NewHandler(relay)

	r := chi.NewRouter()
	r.Use(
		middleware.Recovery,
		middleware.Monitoring,
		cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{
				http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut,
				http.MethodPatch, http.MethodDelete, http.MethodOptions,
			},
			AllowedHeaders:   []string{"*"},
			AllowCredentials: true,
			MaxAge:           600,
		}),
	)

	r.Post("/send-email", h.SendEmail)
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("pong"))
	})

	return r
}
