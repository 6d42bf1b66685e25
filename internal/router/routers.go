package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/devcamper/config"
	"github.com/Payphone-Digital/devcamper/internal/handler"
	"github.com/Payphone-Digital/devcamper/internal/middleware"
)

type Router struct {
	authHandler     *handler.AuthHandler
	userHandler     *handler.UserHandler
	bootcampHandler *handler.BootcampHandler
	courseHandler   *handler.CourseHandler
	reviewHandler   *handler.ReviewHandler
	healthHandler   *handler.HealthHandler

	jwtMw      *middleware.JWTMiddleware
	rateWindow middleware.WindowStore
	Config     *config.Config
}

type Handlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Bootcamp *handler.BootcampHandler
	Course   *handler.CourseHandler
	Review   *handler.ReviewHandler
	Health   *handler.HealthHandler
}

// NewRouter wires handlers to routes. rateWindow counts requests per client
// in a shared store when several instances share traffic; nil keeps the
// counting in process.
func NewRouter(h Handlers, jwtMw *middleware.JWTMiddleware, rateWindow middleware.WindowStore, cfg *config.Config) *Router {
	return &Router{
		authHandler:     h.Auth,
		userHandler:     h.User,
		bootcampHandler: h.Bootcamp,
		courseHandler:   h.Course,
		reviewHandler:   h.Review,
		healthHandler:   h.Health,

		jwtMw:      jwtMw,
		rateWindow: rateWindow,
		Config:     cfg,
	}
}

func (r *Router) SetupRoutes() *gin.Engine {
	router := gin.New()
	router.MaxMultipartMemory = r.Config.Upload.MaxFileSize + 1<<20

	router.Use(middleware.RecoveryMiddleware())
	router.Use(middleware.RequestContext())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.SecurityHeaders(r.Config.IsProduction()))
	router.Use(middleware.CORS(r.Config.CORS))
	router.Use(middleware.SanitizeQuery(r.Config.Query.MultiValueKeys))
	router.Use(middleware.XSSClean())
	router.Use(middleware.RequestTimeout(r.Config.App.Timeout))

	router.Static("/uploads", r.Config.Upload.Path)

	api := router.Group("/api")
	{
		api.GET("/health", r.healthHandler.HealthCheck)
		api.GET("/health/live", r.healthHandler.BasicHealth)

		v1 := api.Group("/v1")
		{
			v1.Use(middleware.RateLimit(r.limiter()))

			r.authRoutes(v1)
			r.userRoutes(v1)
			r.bootcampRoutes(v1)
			r.courseRoutes(v1)
			r.reviewRoutes(v1)
		}
	}

	return router
}

func (r *Router) limiter() middleware.Limiter {
	window := time.Duration(r.Config.RateLimit.Duration) * time.Second
	if r.rateWindow != nil {
		return middleware.NewWindowLimiter(r.rateWindow, r.Config.RateLimit.Request, window)
	}
	return middleware.NewMemoryLimiter(r.Config.RateLimit.Request, window)
}
