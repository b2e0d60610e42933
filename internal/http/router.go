package http

import (
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"uniqiita/internal/auth"
	"uniqiita/internal/config"
	"uniqiita/internal/moderation"
	"uniqiita/internal/platform/metrics"
	"uniqiita/internal/tags"
)

// Dependencies groups what the router needs. Metrics and Credentials may be nil.
type Dependencies struct {
	Config        config.Config
	Authenticator *auth.Authenticator
	Tags          *tags.Service
	Moderation    *moderation.Service
	Credentials   CredentialStatus
	Metrics       *metrics.Metrics
	Logger        *slog.Logger
}

// NewRouter wires application routes and middleware using chi.
func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(corsOptions(cfg)))
	r.Use(newSecurityHeadersMiddleware(cfg.Environment))
	r.Use(newSlogMiddleware(logger, deps.Metrics))

	r.Get("/healthz", livenessHandler)
	r.Head("/healthz", livenessHandler)
	r.Get("/health", newHealthHandler(cfg.Environment, deps.Credentials))
	if deps.Metrics != nil && cfg.MetricsEnabled {
		r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())
	}

	authHandler := NewAuthHandler(deps.Authenticator, cfg.Session, logger)
	tagHandler := NewTagHandler(deps.Tags, logger)
	adminHandler := NewAdminHandler(deps.Moderation, logger)

	r.Post("/auth/firebase-login", authHandler.Login)
	r.Post("/auth/logout", authHandler.Logout)
	r.Get("/v1/articles/ping", articlesPingHandler)

	// Both spellings are served; there is no trailing-slash redirect.
	for _, path := range []string{"/v1/tags", "/v1/tags/"} {
		r.Get(path, tagHandler.List)
		r.Post(path, tagHandler.Create)
	}

	r.Group(func(r chi.Router) {
		r.Use(newSessionMiddleware(deps.Authenticator, cfg.Session.CookieName, logger))

		r.Get("/auth/me", authHandler.Me)

		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(requireUser)
			r.Use(newRequireAdminMiddleware(deps.Authenticator))

			r.Delete("/purge/by-email", adminHandler.PurgeByEmail)
			r.Delete("/purge/by-email/", adminHandler.PurgeByEmail)
			r.Delete("/purge/dummy", adminHandler.PurgeDummy)
			r.Delete("/purge/dummy/", adminHandler.PurgeDummy)
			r.Put("/users/{id}/role", adminHandler.SetRole)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not Found")
	})

	return r
}

func corsOptions(cfg config.Config) cors.Options {
	opts := cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if cfg.AllowedOriginPattern == "" {
		return opts
	}

	// Config validation already compiled the pattern.
	pattern := regexp.MustCompile(cfg.AllowedOriginPattern)
	allowed := make(map[string]struct{}, len(cfg.AllowedOrigins))
	for _, origin := range cfg.AllowedOrigins {
		allowed[origin] = struct{}{}
	}
	opts.AllowOriginFunc = func(_ *http.Request, origin string) bool {
		if _, ok := allowed[origin]; ok {
			return true
		}
		return pattern.MatchString(origin)
	}
	return opts
}
