package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/discovery/pkg/health"
	"github.com/utafrali/discovery/pkg/middleware"
	"github.com/utafrali/discovery/internal/analytics"
	"github.com/utafrali/discovery/internal/catalog"
	"github.com/utafrali/discovery/internal/indexer"
	"github.com/utafrali/discovery/internal/recommend"
	"github.com/utafrali/discovery/internal/search"
)

// Deps bundles the services the router exposes.
type Deps struct {
	Search   *search.Service
	Composer *recommend.Composer
	Catalog  *catalog.Service
	Indexer  *indexer.Indexer
	Recorder *analytics.Recorder

	CORS   middleware.CORSConfig
	Logger *slog.Logger
}

// NewRouter creates a chi router with all discovery routes registered.
func NewRouter(deps Deps, healthHandler *health.Handler) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(deps.CORS))
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.Tracing("discovery"))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.PrometheusMetrics("discovery"))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	searchHandler := NewSearchHandler(deps.Search, deps.Logger)
	recHandler := NewRecommendationHandler(deps.Composer, deps.Logger)
	productHandler := NewProductHandler(deps.Catalog, deps.Logger)
	indexHandler := NewIndexHandler(deps.Indexer, deps.Logger)
	analyticsHandler := NewAnalyticsHandler(deps.Recorder, deps.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/search", func(r chi.Router) {
			r.Get("/", searchHandler.Search)
			r.Get("/suggest", searchHandler.Suggest)
			r.Get("/popular", searchHandler.PopularTerms)
		})

		r.Route("/recommendations", func(r chi.Router) {
			r.Get("/popular", recHandler.Popular)
			r.Get("/trending", recHandler.Trending)
			r.Get("/similar/{id}", recHandler.Similar)
			r.Get("/also-bought/{id}", recHandler.AlsoBought)
			r.Get("/personalized/{userID}", recHandler.Personalized)
		})

		r.Route("/products", func(r chi.Router) {
			// Product details are already cached server-side for five
			// minutes; let clients cache them for one.
			r.Use(middleware.CacheControl(60))
			r.Get("/{id}", productHandler.GetByID)
			r.Get("/slug/{slug}", productHandler.GetBySlug)
		})

		r.Group(func(r chi.Router) {
			r.Use(ContentTypeJSON)
			r.Post("/analytics/click", analyticsHandler.Click)
		})

		r.Route("/index", func(r chi.Router) {
			r.Post("/reindex", indexHandler.Reindex)
			r.Post("/{id}", indexHandler.UpsertProduct)
			r.Delete("/{id}", indexHandler.RemoveProduct)
		})
	})

	return r
}
