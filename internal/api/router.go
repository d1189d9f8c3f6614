package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/servimatch/servimatch/internal/app"
	"github.com/servimatch/servimatch/internal/cache"
	"github.com/servimatch/servimatch/internal/handlers"
	"github.com/servimatch/servimatch/internal/middleware"
	"github.com/servimatch/servimatch/internal/monitoring"
	"github.com/servimatch/servimatch/internal/realtime"
	"github.com/servimatch/servimatch/internal/services"
)

// Dependencies carries the shared collaborators the router wires into
// handlers. Email and SMS senders are optional; absent channels are skipped
// during dispatch.
type Dependencies struct {
	DB    *gorm.DB
	Cfg   *app.Config
	Hub   *realtime.Hub
	Store cache.Store
	Rate  middleware.RateStore
	Mon   *monitoring.Module
	Email services.EmailSender
	SMS   services.SMSSender
}

// NewRouter builds the Gin engine, wires middleware and registers routes.
func NewRouter(deps Dependencies) (*gin.Engine, error) {
	if deps.DB == nil {
		return nil, fmt.Errorf("database handle must be provided")
	}
	if deps.Cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS())
	r.Use(middleware.Identity())
	// Basic rate limiting: 100 requests/minute per IP+path
	if deps.Rate != nil {
		r.Use(middleware.RateLimitWithStore(deps.Rate, 100, time.Minute))
	} else {
		r.Use(middleware.RateLimit(100, time.Minute))
	}

	registerHealthRoutes(r, deps.Cfg, deps.Mon)
	registerMetricsRoute(r, deps.Cfg, deps.Mon)

	notificationService, err := services.NewNotificationService(deps.DB, deps.Hub, deps.Store)
	if err != nil {
		return nil, err
	}
	notificationService.WithWindow(deps.Cfg.Notifications.DedupWindow)

	requestService, err := services.NewRequestService(deps.DB, notificationService)
	if err != nil {
		return nil, err
	}

	matchService, err := services.NewMatchService(deps.DB)
	if err != nil {
		return nil, err
	}

	rankingService, err := services.NewRankingService(deps.DB)
	if err != nil {
		return nil, err
	}

	dispatchService, err := services.NewDispatchService(deps.Hub, notificationService, deps.Email, deps.SMS)
	if err != nil {
		return nil, err
	}

	requestHandler, err := handlers.NewRequestHandler(requestService, matchService, dispatchService)
	if err != nil {
		return nil, err
	}

	professionalHandler, err := handlers.NewProfessionalHandler(rankingService)
	if err != nil {
		return nil, err
	}

	notificationHandler, err := handlers.NewNotificationHandler(notificationService)
	if err != nil {
		return nil, err
	}

	api := r.Group("/api")
	api.Use(middleware.RequireIdentity())

	registerRequestRoutes(api, requestHandler)
	registerProfessionalRoutes(api, professionalHandler)
	registerNotificationRoutes(api, notificationHandler)
	registerMonitoringRoutes(api, handlers.NewMonitoringHandler(deps.Mon, deps.Cfg))

	registerRealtimeRoutes(r, deps.Hub)

	return r, nil
}

func registerMetricsRoute(r *gin.Engine, cfg *app.Config, mon *monitoring.Module) {
	if cfg == nil || !cfg.Monitoring.Prometheus.Enabled || mon == nil {
		return
	}
	endpoint := cfg.Monitoring.Prometheus.Endpoint
	if endpoint == "" {
		endpoint = "/metrics"
	}
	r.GET(endpoint, gin.WrapH(mon.Handler()))
}
