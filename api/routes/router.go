package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/openlots/openlots-backend/api/controllers"
	"github.com/openlots/openlots-backend/api/middleware"
	"github.com/openlots/openlots-backend/internal/auth"
	"github.com/openlots/openlots-backend/internal/bids"
	"github.com/openlots/openlots-backend/internal/comments"
	"github.com/openlots/openlots-backend/internal/listings"
	"github.com/openlots/openlots-backend/internal/watchlist"
	"github.com/openlots/openlots-backend/pkg/config"
	"github.com/openlots/openlots-backend/pkg/db"
	"github.com/openlots/openlots-backend/pkg/logger"
	"github.com/openlots/openlots-backend/pkg/redis"
)

// RouterParams bundles everything the HTTP surface needs.
type RouterParams struct {
	Config           *config.Config
	Logger           *logger.Logger
	DBPinger         db.Pinger
	RedisClient      *redis.Client
	Registry         *prometheus.Registry
	AuthService      auth.Service
	ListingService   listings.Service
	BidService       bids.Service
	CommentService   comments.Service
	WatchlistService watchlist.Service
}

func NewRouter(p RouterParams) http.Handler {
	cfg := p.Config
	logg := p.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginNameLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterNameLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, p.DBPinger, p.RedisClient))
	})

	if p.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(p.Registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, p.RedisClient, logg)).Post("/auth/register", controllers.AuthRegister(p.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, p.RedisClient, logg)).Post("/auth/login", controllers.AuthLogin(p.AuthService, logg))

		// Public browse surface.
		r.Group(func(r chi.Router) {
			r.Get("/listings", controllers.ListingsIndex(p.ListingService, logg))
			r.Get("/listings/{listingId}", controllers.ListingsGet(p.ListingService, logg))
			r.Get("/listings/{listingId}/bids", controllers.BidsList(p.BidService, logg))
			r.Get("/listings/{listingId}/bids/winner", controllers.BidsWinner(p.BidService, logg))
			r.Get("/listings/{listingId}/comments", controllers.CommentsList(p.CommentService, logg))
		})

		// Authenticated surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))

			r.Get("/auth/me", controllers.AuthMe(p.AuthService, logg))

			r.Post("/listings", controllers.ListingsCreate(p.ListingService, logg))
			r.Get("/listings/mine", controllers.ListingsMine(p.ListingService, logg))
			r.Patch("/listings/{listingId}", controllers.ListingsUpdate(p.ListingService, logg))
			r.Delete("/listings/{listingId}", controllers.ListingsDelete(p.ListingService, logg))
			r.Post("/listings/{listingId}/close", controllers.ListingsClose(p.ListingService, logg))
			r.Post("/listings/{listingId}/bids", controllers.BidsPlace(p.BidService, logg))
			r.Post("/listings/{listingId}/comments", controllers.CommentsAdd(p.CommentService, logg))
			r.Patch("/comments/{commentId}", controllers.CommentsEdit(p.CommentService, logg))

			r.Post("/listings/{listingId}/watch", controllers.WatchlistToggle(p.WatchlistService, logg))
			r.Get("/watchlist", controllers.WatchlistList(p.WatchlistService, logg))
		})
	})

	return r
}
