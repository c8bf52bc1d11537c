package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Rhaonthemoon/radio-bug/api/controllers"
	"github.com/Rhaonthemoon/radio-bug/api/middleware"
	"github.com/Rhaonthemoon/radio-bug/internal/auth"
	"github.com/Rhaonthemoon/radio-bug/internal/episodes"
	"github.com/Rhaonthemoon/radio-bug/internal/posts"
	"github.com/Rhaonthemoon/radio-bug/internal/shows"
	"github.com/Rhaonthemoon/radio-bug/internal/uploads"
	"github.com/Rhaonthemoon/radio-bug/pkg/auth/session"
	"github.com/Rhaonthemoon/radio-bug/pkg/config"
	"github.com/Rhaonthemoon/radio-bug/pkg/enums"
	"github.com/Rhaonthemoon/radio-bug/pkg/logger"
	"github.com/Rhaonthemoon/radio-bug/pkg/storage"
)

// Dependencies carries everything the router wires into handlers.
type Dependencies struct {
	Config   *config.Config
	Logger   *logger.Logger
	Sessions session.AccessSessionChecker

	DB      storage.Pinger
	Redis   storage.Pinger
	Storage storage.Pinger

	Auth     auth.Service
	Shows    shows.Service
	Episodes episodes.Service
	Posts    posts.Service
	Uploads  uploads.Service

	MetricsHandler http.Handler
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	logg := deps.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.FrontendURL),
	)

	authed := middleware.Auth(cfg.JWT, deps.Sessions, logg)
	adminOnly := middleware.RequireRole(string(enums.UserRoleAdmin), logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.Dep("db", deps.DB),
			controllers.Dep("redis", deps.Redis),
			controllers.Dep("storage", deps.Storage),
		))
	})

	if deps.MetricsHandler != nil {
		r.Handle("/metrics", deps.MetricsHandler)
	}

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Post("/register", controllers.AuthRegister(deps.Auth, logg))
		r.Get("/verify-email", controllers.AuthVerifyEmail(deps.Auth, logg))
		r.Post("/resend-verification", controllers.AuthResendVerification(deps.Auth, logg))
		r.Post("/login", controllers.AuthLogin(deps.Auth, logg))
		r.Post("/logout", controllers.AuthLogout(deps.Auth, cfg.JWT, logg))
		r.Post("/refresh", controllers.AuthRefresh(deps.Auth, logg))
		r.Post("/forgot-password", controllers.AuthForgotPassword(deps.Auth, logg))
		r.Post("/reset-password", controllers.AuthResetPassword(deps.Auth, logg))
		r.With(authed).Get("/me", controllers.AuthMe(deps.Auth, logg))
	})

	r.Route("/api/v1/shows", func(r chi.Router) {
		r.Get("/slug/{slug}", controllers.ShowBySlug(deps.Shows, logg))

		r.Group(func(r chi.Router) {
			r.Use(authed)

			r.Get("/", controllers.ShowList(deps.Shows, logg))
			r.Get("/{showId}", controllers.ShowByID(deps.Shows, logg))

			r.Route("/artist", func(r chi.Router) {
				r.Post("/request", controllers.ShowArtistRequest(deps.Shows, logg))
				r.Get("/mine", controllers.ShowArtistMine(deps.Shows, logg))
				r.Get("/approved", controllers.ShowArtistApproved(deps.Shows, logg))
			})

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/", controllers.ShowCreate(deps.Shows, logg))
				r.Put("/{showId}", controllers.ShowUpdate(deps.Shows, logg))
				r.Delete("/{showId}", controllers.ShowDelete(deps.Shows, logg))
				r.Get("/admin/requests", controllers.ShowPendingRequests(deps.Shows, logg))
				r.Put("/admin/{showId}/approve", controllers.ShowApprove(deps.Shows, logg))
				r.Put("/admin/{showId}/reject", controllers.ShowReject(deps.Shows, logg))
			})
		})
	})

	r.Route("/api/v1/episodes", func(r chi.Router) {
		r.Get("/public/show/{showSlug}", controllers.EpisodePublicByShow(deps.Episodes, logg))
		r.Get("/public/{episodeId}/stream", controllers.EpisodePublicStream(deps.Episodes, logg))

		r.Group(func(r chi.Router) {
			r.Use(authed)

			r.Get("/", controllers.EpisodeList(deps.Episodes, logg))
			r.Post("/", controllers.EpisodeCreate(deps.Episodes, logg))
			r.Get("/{episodeId}", controllers.EpisodeByID(deps.Episodes, logg))
			r.Put("/{episodeId}", controllers.EpisodeUpdate(deps.Episodes, logg))
			r.Delete("/{episodeId}", controllers.EpisodeDelete(deps.Episodes, logg))
			r.Get("/{episodeId}/stream", controllers.EpisodeStream(deps.Episodes, logg))

			r.Post("/{episodeId}/upload", controllers.EpisodeUploadAudio(deps.Episodes, logg))
			r.Post("/{episodeId}/upload-image", controllers.EpisodeUploadImage(deps.Episodes, logg))
			r.Delete("/{episodeId}/audio", controllers.EpisodeDeleteAudio(deps.Episodes, logg))
			r.Delete("/{episodeId}/image", controllers.EpisodeDeleteImage(deps.Episodes, logg))

			r.Group(func(r chi.Router) {
				r.Use(adminOnly)
				r.Post("/{episodeId}/publish-mixcloud", controllers.EpisodePublishMixcloud(deps.Episodes, logg))
				r.Get("/{episodeId}/mixcloud-status", controllers.EpisodeMixcloudStatus(deps.Episodes, logg))
			})
		})
	})

	r.Route("/api/v1/posts", func(r chi.Router) {
		r.Get("/", controllers.PostPublicList(deps.Posts, logg))
		r.Get("/slug/{slug}", controllers.PostBySlug(deps.Posts, logg))

		r.Group(func(r chi.Router) {
			r.Use(authed, adminOnly)
			r.Get("/admin", controllers.PostList(deps.Posts, logg))
			r.Get("/admin/{postId}", controllers.PostByID(deps.Posts, logg))
			r.Post("/", controllers.PostCreate(deps.Posts, logg))
			r.Put("/{postId}", controllers.PostUpdate(deps.Posts, logg))
			r.Delete("/{postId}", controllers.PostDelete(deps.Posts, logg))
		})
	})

	r.Route("/api/v1/upload", func(r chi.Router) {
		r.Use(authed)
		r.Post("/presign/{resource}/{docId}", controllers.UploadPresign(deps.Uploads, logg))
		r.Post("/confirm/{resource}/{docId}", controllers.UploadConfirm(deps.Uploads, logg))
	})

	return r
}
