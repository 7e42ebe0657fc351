package server

import (
	"github.com/cloudface-ai/CloudFace-Ai/internal/auth"
	"github.com/cloudface-ai/CloudFace-Ai/internal/config"
	"github.com/cloudface-ai/CloudFace-Ai/internal/event"
	"github.com/cloudface-ai/CloudFace-Ai/internal/ingest"
	"github.com/cloudface-ai/CloudFace-Ai/internal/logger"
	"github.com/cloudface-ai/CloudFace-Ai/internal/metrics"
	"github.com/cloudface-ai/CloudFace-Ai/internal/resolver"
	"github.com/cloudface-ai/CloudFace-Ai/internal/sharelink"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	"go.uber.org/zap"
)

// Dependencies groups the services required by the HTTP router.
type Dependencies struct {
	Config           config.Config
	Log              *zap.Logger
	DB               *pgxpool.Pool
	Provider         *minio.Client
	AuthService      *auth.Service
	EventService     *event.Service
	Coordinator      *ingest.Coordinator
	Progress         ingest.ProgressSink
	Layout           resolver.Layout
	Mirror           *resolver.Mirror
	ShareLinkService *sharelink.Service
}

// NewRouter builds a Gin engine with foundational middleware and routes.
func NewRouter(deps Dependencies) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(logger.Middleware(deps.Log))

	registerHealthRoutes(router, deps)
	metrics.Register(router, deps.Config.Metrics.PrometheusPath)

	api := router.Group("/v1")
	if deps.AuthService != nil {
		auth.RegisterRoutes(api, deps.AuthService)
	}

	if deps.EventService != nil {
		event.RegisterPublicRoutes(api, deps.EventService)
	}
	if deps.ShareLinkService != nil {
		sharelink.RegisterPublicRoutes(api, deps.ShareLinkService)
	}

	if deps.AuthService != nil {
		protected := api.Group("/")
		protected.Use(auth.Middleware(deps.AuthService))

		if deps.EventService != nil {
			event.RegisterRoutes(protected, deps.EventService)

			if deps.Coordinator != nil {
				ingest.RegisterRoutes(protected, deps.Coordinator, deps.EventService, deps.Progress)
			}
			if deps.Mirror != nil {
				resolver.RegisterRoutes(protected, deps.Layout, deps.Mirror, deps.EventService)
			}
			if deps.ShareLinkService != nil {
				sharelink.RegisterRoutes(protected, deps.ShareLinkService)
			}
		}
	}

	return router
}
