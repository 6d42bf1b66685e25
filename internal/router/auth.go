package router

import "github.com/gin-gonic/gin"

func (r *Router) authRoutes(version *gin.RouterGroup) {
	auth := version.Group("/auth")
	{
		// Public routes
		auth.POST("/register", r.authHandler.Register)
		auth.POST("/login", r.authHandler.Login)
		auth.POST("/forgotpassword", r.authHandler.ForgotPassword)
		auth.PUT("/resetpassword/:resettoken", r.authHandler.ResetPassword)

		protected := auth.Group("")
		protected.Use(r.jwtMw.Protect())
		{
			protected.GET("/me", r.authHandler.Me)
			protected.GET("/logout", r.authHandler.Logout)
			protected.PUT("/updatedetails", r.authHandler.UpdateDetails)
			protected.PUT("/updatepassword", r.authHandler.UpdatePassword)
		}
	}
}
