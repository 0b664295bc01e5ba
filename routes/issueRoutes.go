package routes

import (
	"os"
	"strconv"

	"civicgrid-be/controllers"
	"civicgrid-be/middlewares"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the citizen-facing issue routes
func IssueRoutes(r *gin.Engine, ic *controllers.IssueController) {
	dailyLimit := 10
	if raw := os.Getenv("ISSUE_DAILY_LIMIT"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			dailyLimit = n
		}
	}

	issue := r.Group("/api/issues")
	{
		issue.POST("", middlewares.AuthMiddleware(), middlewares.IssueRateLimiter(dailyLimit), ic.CreateIssue)
		issue.GET("", ic.GetAllIssues)
		issue.GET("/recent", controllers.RecentIssues)
		issue.GET("/analytics", controllers.GetIssueAnalytics)
		issue.GET("/:id", ic.GetIssue)
		issue.PUT("/:id", middlewares.AuthMiddleware(), ic.UpdateIssue)
		issue.DELETE("/:id", middlewares.AuthMiddleware(), ic.DeleteIssue)
		issue.POST("/:id/upvote", middlewares.AuthMiddleware(), ic.UpvoteIssue)
		issue.DELETE("/:id/upvote", middlewares.AuthMiddleware(), ic.RemoveUpvote)
	}
}
