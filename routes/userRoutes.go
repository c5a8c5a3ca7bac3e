package routes

import (
	"github.com/gin-gonic/gin"

	"civicdesk-be/controllers"
	"civicdesk-be/middlewares"
)

// UserRoutes sets up the user routes
func UserRoutes(r *gin.Engine) {
	user := r.Group("/api/user", middlewares.AuthMiddleware())
	{
		user.GET("/team", controllers.ListTeamMembers)
	}
}
