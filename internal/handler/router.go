package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/middleware"
	"github.com/yogeshshepal-asm/asm-nextgen-grievance-redressal/internal/models"
)

// Handlers groups the API handlers mounted under the versioned prefix.
type Handlers struct {
	Grievances    *GrievanceHandler
	Workflow      *WorkflowHandler
	Analytics     *AnalyticsHandler
	Users         *UserHandler
	Notifications *NotificationHandler
}

// RegisterRoutes mounts every API route on api. Callers are expected to have
// installed middleware.Identity upstream.
func RegisterRoutes(api *gin.RouterGroup, h Handlers) {
	api.Use(middleware.RequireIdentity())

	staff := middleware.RequireStaff()
	admin := middleware.RequireRoles(models.RoleAdmin)

	grievances := api.Group("/grievances")
	grievances.POST("", h.Grievances.Submit)
	grievances.GET("", h.Grievances.List)
	grievances.GET("/:id", h.Grievances.Get)
	grievances.PATCH("/:id/status", staff, h.Grievances.UpdateStatus)
	grievances.POST("/:id/replies", h.Grievances.AddReply)
	grievances.POST("/:id/assign", staff, h.Grievances.Assign)
	grievances.POST("/:id/feedback", h.Grievances.Feedback)
	grievances.GET("/:id/draft-reply", staff, h.Grievances.DraftReply)
	grievances.GET("/:id/prediction", staff, h.Analytics.Prediction)
	grievances.GET("/:id/suggestions", staff, h.Workflow.Suggestions)
	grievances.POST("/:id/workflow", staff, h.Workflow.Apply)
	grievances.GET("/:id/workflow/preview", staff, h.Workflow.Preview)

	workflow := api.Group("/workflow", admin)
	workflow.POST("/sweep", h.Workflow.Sweep)
	workflow.GET("/rules", h.Workflow.ListRules)
	workflow.POST("/rules", h.Workflow.CreateRule)
	workflow.GET("/rules/:id", h.Workflow.GetRule)
	workflow.PUT("/rules/:id", h.Workflow.UpdateRule)
	workflow.DELETE("/rules/:id", h.Workflow.DeleteRule)
	workflow.PATCH("/rules/:id/enabled", h.Workflow.ToggleRule)

	analytics := api.Group("/analytics", staff)
	analytics.GET("", h.Analytics.Dashboard)
	analytics.GET("/snapshot", h.Analytics.Snapshot)
	analytics.GET("/resolution-times", h.Analytics.ResolutionTimes)
	analytics.GET("/sentiment-trends", h.Analytics.SentimentTrends)
	analytics.GET("/insights", h.Analytics.Insights)
	analytics.GET("/predictions", h.Analytics.Predictions)
	analytics.GET("/escalations", h.Analytics.Escalations)
	analytics.GET("/compare", h.Analytics.Compare)
	analytics.GET("/report", h.Analytics.Report)
	analytics.GET("/system", h.Analytics.System)

	users := api.Group("/users")
	users.GET("", staff, h.Users.List)
	users.POST("", admin, h.Users.Create)
	users.GET("/roles", staff, h.Users.Roles)
	users.POST("/roles", admin, h.Users.RegisterRole)
	users.GET("/:id", middleware.RBAC(middleware.Staff, middleware.Self), h.Users.Get)
	users.PUT("/:id", admin, h.Users.Update)
	users.DELETE("/:id", admin, h.Users.Delete)

	notifications := api.Group("/notifications")
	notifications.GET("", h.Notifications.List)
	notifications.PATCH("/:id/read", h.Notifications.MarkRead)
}
