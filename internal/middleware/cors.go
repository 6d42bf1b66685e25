package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Payphone-Digital/devcamper/config"
	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/pkg/logger"
)

// CORS builds the gin-contrib/cors handler from configuration. With no
// configured origins every origin is allowed, without credentials.
func CORS(cfg config.CORSConfig) gin.HandlerFunc {
	c := cors.Config{
		AllowMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders: []string{
			"Origin", constants.HeaderContentType, constants.HeaderAuthorization,
			"Accept", "X-Requested-With", constants.HeaderXRequestID,
		},
		ExposeHeaders: []string{
			constants.HeaderXRequestID,
			constants.HeaderRateLimitLimit,
			constants.HeaderRateLimitRemaining,
			constants.HeaderRateLimitReset,
		},
		MaxAge: cfg.MaxAge,
	}

	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = cfg.AllowedOrigins
		c.AllowCredentials = cfg.AllowCredentials
	}

	logger.GetLogger().Debug("CORS configured",
		zap.Strings("origins", cfg.AllowedOrigins),
		zap.Bool("allow_all", c.AllowAllOrigins),
		zap.Bool("credentials", c.AllowCredentials),
	)
	return cors.New(c)
}
