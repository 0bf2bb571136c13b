package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docredact-backend/internal/documents"
	"docredact-backend/internal/extractions"
	"docredact-backend/internal/profiles"
	"docredact-backend/internal/redactions"
	"docredact-backend/internal/services/health"
	"docredact-backend/internal/shared/config"
	"docredact-backend/internal/shared/metrics"
	"docredact-backend/internal/shared/server/middleware"
	"docredact-backend/internal/shared/server/respond"
)

// ExternalRateLimitGroup covers routes that call the field service.
const ExternalRateLimitGroup = "EXTERNAL"

// RouterDeps are the handlers mounted by NewRouter.
type RouterDeps struct {
	Config            config.Config
	Health            *health.Service
	DocumentHandler   *documents.Handler
	ProfileHandler    *profiles.Handler
	ExtractionHandler *extractions.Handler
	RedactionHandler  *redactions.Handler
	RateLimiter       *middleware.RateLimiter
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api")
	api.Use(middleware.RateLimit(middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			ExternalRateLimitGroup: {
				Rate:  deps.Config.ExternalRateLimitRPS,
				Burst: deps.Config.ExternalRateLimitBurst,
			},
		},
		GroupFor: rateLimitGroup,
		Limiter:  deps.RateLimiter,
	}))

	api.GET("/health", func(c *gin.Context) {
		status := deps.Health.Status(c.Request.Context())
		code := http.StatusOK
		if !status.OK {
			code = http.StatusServiceUnavailable
		}
		respond.JSON(c, code, status)
	})

	if deps.DocumentHandler != nil {
		deps.DocumentHandler.RegisterRoutes(api)
	}
	if deps.ProfileHandler != nil {
		deps.ProfileHandler.RegisterRoutes(api)
	}
	if deps.ExtractionHandler != nil {
		deps.ExtractionHandler.RegisterRoutes(api)
	}
	if deps.RedactionHandler != nil {
		deps.RedactionHandler.RegisterRoutes(api)
	}

	return r
}

func rateLimitGroup(c *gin.Context) string {
	switch c.FullPath() {
	case "/api/documents/:id/extract", "/api/documents/:id/redact":
		return ExternalRateLimitGroup
	}
	return ""
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
