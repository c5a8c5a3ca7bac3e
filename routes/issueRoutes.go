package routes

import (
	"github.com/gin-gonic/gin"

	"civicdesk-be/controllers"
	"civicdesk-be/middlewares"
)

// dailyIssueLimit caps per-user issue reports per day.
const dailyIssueLimit = 10

// IssueRoutes sets up the issue routes
func IssueRoutes(r *gin.Engine, ctl *controllers.IssueController) {
	issue := r.Group("/api/issue", middlewares.AuthMiddleware())
	{
		issue.GET("", ctl.ListIssues)
		issue.GET("/analytics", ctl.GetIssueAnalytics)
		issue.POST("/create", middlewares.IssueRateLimiter(dailyIssueLimit), ctl.CreateIssue)
		issue.GET("/:id", ctl.GetIssue)
		issue.PUT("/:id", ctl.UpdateIssue)
		issue.DELETE("/:id", ctl.DeleteIssue)
		issue.POST("/:id/verify", ctl.VerifyIssue)
		issue.GET("/:id/comment", ctl.ListComments)
		issue.POST("/:id/comment", ctl.AddComment)
	}
}
