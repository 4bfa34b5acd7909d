package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-ticketing/internal/auth"
)

// NewRouter builds the API router. Everything except health, metrics and
// the public event reads requires a bearer token.
func NewRouter(h *EventHandler, jwtService *auth.JWTService, allowedOrigins []string, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(logger))          // structured access log
	r.Use(CORS(allowedOrigins))

	r.Get("/health", HealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	// Public reads
	r.Get("/events", h.ListEvents)
	r.Get("/events/{id}", h.GetEvent)
	r.Get("/events/{id}/reviews", h.ListReviews)
	r.Get("/leaderboard", h.Leaderboard)

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(jwtService))

		r.Post("/events/{id}/register", h.Register)
		r.Post("/events/{id}/teams", h.CreateTeam)
		r.Post("/events/{id}/teams/join", h.JoinTeam)
		r.Post("/events/{id}/reviews", h.SubmitReview)

		r.Get("/tickets/{ticketID}", h.GetTicket)
		r.Delete("/tickets/{ticketID}", h.CancelTicket)

		r.Group(func(r chi.Router) {
			r.Use(RequireStaff)

			r.Post("/events", h.CreateEvent)
			r.Put("/events/{id}", h.UpdateEvent)
			r.Delete("/events/{id}", h.DeleteEvent)
			r.Post("/events/{id}/open", h.SetOpen)
			r.Get("/events/{id}/registrations", h.ListRegistrations)
			r.Get("/events/{id}/emails", h.ListEmails)
			r.Post("/checkin", h.CheckIn)
		})
	})

	return r
}
