package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robertarktes/course-bookings/internal/domain"
	"github.com/robertarktes/course-bookings/internal/observability"
)

type RouterConfig struct {
	Logger        observability.Logger
	JWTSecret     string
	Limiter       Limiter
	RateLimitUser int
	RateLimitIP   int
	Health        *Health
}

func SetupRouter(h *Handlers, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(cfg.Logger))
	r.Use(TracingMiddleware)

	if cfg.Health != nil {
		r.Get("/v1/healthz", cfg.Health.Healthz)
		r.Get("/v1/readyz", cfg.Health.Readyz)
	}
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	r.Group(func(r chi.Router) {
		if cfg.Limiter != nil {
			r.Use(IPRateLimitMiddleware(cfg.Limiter, cfg.RateLimitIP, cfg.Logger))
		}

		r.Get("/v1/courses", h.ListCourses)
		r.Get("/v1/courses/{id}", h.GetCourse)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.JWTSecret))
			if cfg.Limiter != nil {
				r.Use(UserRateLimitMiddleware(cfg.Limiter, cfg.RateLimitUser, cfg.Logger))
			}
			r.Use(IdempotencyMiddleware)

			r.Get("/v1/courses/{id}/booked", h.HasBookedCourse)
			r.Get("/v1/bookings/mine", h.ListMyBookings)
			r.Get("/v1/bookings/{id}", h.GetBooking)
			r.Post("/v1/bookings", h.CreateBooking)
			r.Put("/v1/bookings/{id}", h.UpdateBooking)
			r.Delete("/v1/bookings/{id}", h.CancelBooking)

			r.Group(func(r chi.Router) {
				r.Use(RequireRole(domain.RoleAdmin))
				r.Get("/v1/bookings", h.ListBookings)
				r.Get("/v1/courses/{id}/bookings", h.ListCourseBookings)
				r.Post("/v1/courses", h.CreateCourse)
			})
		})
	})

	return r
}
