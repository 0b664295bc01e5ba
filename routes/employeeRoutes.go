package routes

import (
	"civicgrid-be/controllers"
	"civicgrid-be/middlewares"
	"civicgrid-be/models"

	"github.com/gin-gonic/gin"
)

// EmployeeRoutes sets up the employee work-queue and resolution routes
func EmployeeRoutes(r *gin.Engine, ec *controllers.EmployeeController) {
	employee := r.Group("/api/employee")
	employee.Use(middlewares.AuthMiddleware(), middlewares.RequireRole(
		models.RoleFieldStaff, models.RoleSupervisor, models.RoleCommissioner, models.RoleAdmin,
	))
	{
		employee.GET("/issues", ec.ListAssignedIssues)
		employee.POST("/issues/:id/resolve", ec.ResolveIssue)
	}
}

// AdminRoutes sets up the admin assignment, escalation and sweep routes
func AdminRoutes(r *gin.Engine, esc *controllers.EscalationController) {
	admin := r.Group("/api/admin")
	admin.Use(middlewares.AuthMiddleware(), middlewares.RequireRole(models.RoleAdmin))
	{
		admin.POST("/issues/:id/assign", esc.AssignIssue)
		admin.POST("/issues/:id/escalate", esc.EscalateIssue)
		admin.GET("/issues/:id/timeline", esc.GetTimeline)
		admin.POST("/escalation/run", esc.RunSweep)
		admin.GET("/escalation/status", esc.SweepStatus)
	}
}
