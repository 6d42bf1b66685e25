package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/internal/middleware"
)

func (r *Router) courseRoutes(version *gin.RouterGroup) {
	courses := version.Group("/courses")
	{
		courses.GET("", r.courseHandler.List)
		courses.GET("/:id", r.courseHandler.Get)

		protected := courses.Group("")
		protected.Use(r.jwtMw.Protect(), middleware.Authorize(constants.RolePublisher, constants.RoleAdmin))
		{
			protected.PUT("/:id", r.courseHandler.Update)
			protected.DELETE("/:id", r.courseHandler.Delete)
		}
	}
}

func (r *Router) reviewRoutes(version *gin.RouterGroup) {
	reviews := version.Group("/reviews")
	{
		reviews.GET("", r.reviewHandler.List)
		reviews.GET("/:id", r.reviewHandler.Get)

		protected := reviews.Group("")
		protected.Use(r.jwtMw.Protect(), middleware.Authorize(constants.RoleUser, constants.RoleAdmin))
		{
			protected.PUT("/:id", r.reviewHandler.Update)
			protected.DELETE("/:id", r.reviewHandler.Delete)
		}
	}
}
