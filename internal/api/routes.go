package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/khanhnotech/congdongacf-gateway/internal/config"
)

// NewRouter assembles the HTTP surface. Streaming endpoints are mounted
// outside the compression and timeout wrappers; both break long-lived
// responses.
func NewRouter(cfg *config.Config, srv *Server, mw *Middleware, metricsHandler http.Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.RequestLogger)
	r.Use(mw.Recoverer)
	r.Use(mw.SecurityHeaders)
	r.Use(mw.CORS(cfg.Security.CORSAllowedOrigins))
	r.Use(mw.RateLimit(cfg.Security.RateLimitRPM))

	r.Get("/healthz", srv.handleHealth)
	r.Get("/readyz", srv.handleReady)
	r.Get("/ping", srv.handlePing)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(mw.Compress)
			r.Use(mw.Timeout(30 * time.Second))

			r.Route("/feed/{list}", func(r chi.Router) {
				r.Get("/", srv.handleFeed)
				r.Get("/more", srv.handleFeedMore)
				r.Post("/refresh", srv.handleFeedRefresh)
			})

			r.Route("/articles", func(r chi.Router) {
				r.Get("/{idOrSlug}", srv.handleArticle)
				r.Post("/{idOrSlug}/like", srv.handleLike)
				r.Post("/{idOrSlug}/share", srv.handleShare)
				r.Get("/{idOrSlug}/comments", srv.handleComments)
				r.Post("/{idOrSlug}/comments", srv.handleCreateComment)
			})

			r.Route("/members", func(r chi.Router) {
				r.Get("/top", srv.handleTopMembers)
				r.Get("/{id}", srv.handleProfile)
				r.Post("/{id}/follow", srv.handleFollow)
			})

			r.Get("/topics", srv.handleTopics)
			r.Get("/events", srv.handleEvents)
			r.Post("/session/logout", srv.handleLogout)
		})

		if srv.hub != nil {
			r.Get("/stream", srv.hub.ServeSSE)
			r.Get("/ws", srv.hub.ServeWS)
		}
	})

	return r
}
