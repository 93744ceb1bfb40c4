package main

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *Application) routes() http.Handler {
	router := chi.NewRouter()
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		app.Http.NotFound(w, r, "Page not found")
	})
	router.MethodNotAllowed(app.Http.MethodNotAllowed)
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(app.instrument)
	router.Use(app.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: app.cfg.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", adminKeyHeader},
		ExposedHeaders: []string{"X-Cache"},
		MaxAge:         300,
	}))
	router.Use(app.RateLimiter)
	router.Use(app.Authenticate)
	router.Use(app.invalidateCache)

	router.Handle("/metrics", promhttp.Handler())
	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthcheck", app.healthcheck)
		r.Route("/accounts", func(r chi.Router) {
			r.Use(httprate.LimitByIP(app.cfg.Limiter.AccountsRpm, time.Minute))
			r.Post("/register", app.register)
			r.Post("/login", app.login)
			r.With(app.requireAuthenticatedUser).Get("/me", app.me)
		})
		r.Route("/users", func(r chi.Router) {
			r.With(app.cacheResponse).Get("/", app.listUsers)
			r.Route("/{userID}", func(r chi.Router) {
				r.With(app.cacheResponse).Get("/", app.getUser)
				r.Route("/movies", func(r chi.Router) {
					r.With(app.cacheResponse).Get("/", app.getUserList)
					r.With(app.requireSelf).Post("/", app.addMovieToList)
					r.With(app.cacheResponse).Get("/{movieID}", app.getListEntry)
					r.With(app.requireSelf).Put("/{movieID}", app.addExistingMovieToList)
					r.With(app.requireSelf).Patch("/{movieID}", app.updateRating)
					r.With(app.requireSelf).Delete("/{movieID}", app.removeFromList)
				})
			})
		})
		r.Route("/movies", func(r chi.Router) {
			r.With(app.cacheResponse).Get("/", app.listMovies)
			r.With(app.cacheResponse).Get("/top-rated", app.topRatedMovies)
			r.Route("/{movieID}", func(r chi.Router) {
				r.With(app.cacheResponse).Get("/", app.getMovie)
				r.With(app.requireAdmin).Delete("/", app.deleteMovie)
				r.With(app.cacheResponse).Get("/comments", app.listComments)
				r.With(app.requireAuthenticatedUser).Post("/comments", app.addComment)
				r.Get("/recommendations", app.recommendations)
			})
		})
		r.Route("/metadata", func(r chi.Router) {
			r.With(app.cacheResponse).Get("/search", app.searchMetadata)
			r.With(app.cacheResponse).Get("/{externalID}", app.getMetadata)
		})
		r.Post("/ai/resolve-title", app.resolveTitle)
	})
	return router
}
