package router

import (
	"github.com/gin-gonic/gin"

	"github.com/Payphone-Digital/devcamper/internal/constants"
	"github.com/Payphone-Digital/devcamper/internal/middleware"
)

// bootcampRoutes also mounts the nested course and review collections. Every
// route under /bootcamps names the bootcamp parameter :id.
func (r *Router) bootcampRoutes(version *gin.RouterGroup) {
	publisher := middleware.Authorize(constants.RolePublisher, constants.RoleAdmin)
	reviewer := middleware.Authorize(constants.RoleUser, constants.RoleAdmin)

	bootcamps := version.Group("/bootcamps")
	{
		bootcamps.GET("", r.bootcampHandler.List)
		bootcamps.GET("/radius/:lat/:lng/:distance", r.bootcampHandler.WithinRadius)
		bootcamps.GET("/:id", r.bootcampHandler.Get)
		bootcamps.GET("/:id/courses", r.courseHandler.ListByBootcamp)
		bootcamps.GET("/:id/reviews", r.reviewHandler.ListByBootcamp)

		protected := bootcamps.Group("")
		protected.Use(r.jwtMw.Protect())
		{
			protected.POST("", publisher, r.bootcampHandler.Create)
			protected.PUT("/:id", publisher, r.bootcampHandler.Update)
			protected.DELETE("/:id", publisher, r.bootcampHandler.Delete)
			protected.PUT("/:id/photo", publisher, r.bootcampHandler.UploadPhoto)
			protected.POST("/:id/courses", publisher, r.courseHandler.Create)
			protected.POST("/:id/reviews", reviewer, r.reviewHandler.Create)
		}
	}
}
