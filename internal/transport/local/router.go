package local

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"golang.org/x/time/rate"

	"github.com/nsplab/thing-service/internal/transport/apigw"
)

// NewRouter builds the development router over the lambda mapper.
func NewRouter(mapper *apigw.Mapper) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "If-Modified-Since", PrincipalHeader},
		MaxAge:         300,
	}))

	// 5 requests/second, burst of 10 — applied to mutating endpoints.
	mutatingRL := NewRateLimiter(rate.Limit(5), 10)

	r.Route("/things", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			writeResponse(w, mapper.ListThings(req.Context(), eventFromRequest(req)))
		})
		r.With(mutatingRL.Limit).Post("/", func(w http.ResponseWriter, req *http.Request) {
			writeResponse(w, mapper.CreateThing(req.Context(), eventFromRequest(req)))
		})
		r.Get("/{uuid}", func(w http.ResponseWriter, req *http.Request) {
			writeResponse(w, mapper.GetThing(req.Context(), eventFromRequest(req, "uuid")))
		})
		r.With(mutatingRL.Limit).Put("/{uuid}", func(w http.ResponseWriter, req *http.Request) {
			writeResponse(w, mapper.UpdateThing(req.Context(), eventFromRequest(req, "uuid")))
		})
		r.With(mutatingRL.Limit).Delete("/{uuid}", func(w http.ResponseWriter, req *http.Request) {
			writeResponse(w, mapper.DeleteThing(req.Context(), eventFromRequest(req, "uuid")))
		})
	})

	return r
}
