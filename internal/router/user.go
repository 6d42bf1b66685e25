package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/internal/middleware"
)

func (r *Router) userRoutes(version *gin.RouterGroup) {
	users := version.Group("/users")
	{
		// Admin only
		users.Use(r.jwtMw.Protect(), middleware.Authorize(constants.RoleAdmin))
		{
			users.GET("", r.userHandler.List)
			users.GET("/:id", r.userHandler.Get)
			users.POST("", r.userHandler.Create)
			users.PUT("/:id", r.userHandler.Update)
			users.DELETE("/:id", r.userHandler.Delete)
		}
	}
}
