package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/admin-console/internal/models"
	"github.com/SAP-F-2025/admin-console/internal/services"
	"github.com/SAP-F-2025/admin-console/internal/session"
	"github.com/SAP-F-2025/admin-console/internal/utils"
	"github.com/SAP-F-2025/admin-console/internal/validator"
)

const healthTimeout = 2 * time.Second

type HandlerManager struct {
	sessionHandler    *SessionHandler
	profileHandler    *ProfileHandler
	courseHandler     *CourseHandler
	assignmentHandler *AssignmentHandler
	messageHandler    *MessageHandler
	discussionHandler *DiscussionHandler
	dashboardHandler  *DashboardHandler
	console           *ConsoleMiddleware

	serviceManager services.ServiceManager
	registry       *session.Registry
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	registry *session.Registry,
	validator *validator.Validator,
	logger utils.Logger,
	secureCookie bool,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler:    NewSessionHandler(registry, validator, logger),
		profileHandler:    NewProfileHandler(serviceManager.Profile(), logger),
		courseHandler:     NewCourseHandler(serviceManager.Course(), logger),
		assignmentHandler: NewAssignmentHandler(serviceManager.Assignment(), serviceManager.Grading(), logger),
		messageHandler:    NewMessageHandler(serviceManager.Message(), logger),
		discussionHandler: NewDiscussionHandler(serviceManager.Discussion(), logger),
		dashboardHandler:  NewDashboardHandler(serviceManager.Dashboard(), logger),
		console:           NewConsoleMiddleware(registry, secureCookie, logger),
		serviceManager:    serviceManager,
		registry:          registry,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	v1.Use(hm.console.Attach())
	{
		// Session routes are reachable in every auth state
		sessions := v1.Group("/session")
		{
			sessions.GET("", hm.sessionHandler.GetSession)
			sessions.GET("/events", hm.sessionHandler.StreamSession)
			sessions.POST("/sign-in", hm.sessionHandler.SignIn)
			sessions.POST("/sign-out", hm.sessionHandler.SignOut)
			sessions.POST("/refresh", hm.sessionHandler.RefreshProfile)
		}

		// Everything else requires a teacher or admin profile
		console := v1.Group("")
		console.Use(hm.console.Guard())

		profiles := console.Group("/profiles")
		{
			profiles.GET("", hm.profileHandler.ListProfiles)
			profiles.GET("/me", hm.profileHandler.GetCurrentProfile)
			profiles.GET("/recipients", hm.profileHandler.ListRecipients)
			profiles.GET("/:id", hm.profileHandler.GetProfile)
			profiles.PUT("/:id", hm.profileHandler.UpdateProfile)
		}

		courses := console.Group("/courses")
		{
			courses.GET("", hm.courseHandler.ListCourses)
			courses.GET("/:id", hm.courseHandler.GetCourse)
			courses.POST("", hm.console.RequireRole(models.RoleTeacher), hm.courseHandler.CreateCourse)
			courses.PUT("/:id", hm.console.RequireRole(models.RoleTeacher), hm.courseHandler.UpdateCourse)
			courses.DELETE("/:id", hm.console.RequireRole(models.RoleTeacher), hm.courseHandler.DeleteCourse)
		}

		assignments := console.Group("/assignments")
		{
			assignments.GET("", hm.assignmentHandler.ListAssignments)
			assignments.GET("/statistics", hm.assignmentHandler.GetStatistics)
			assignments.GET("/:id", hm.assignmentHandler.GetAssignment)
			assignments.GET("/:id/submissions", hm.assignmentHandler.ListSubmissions)
			assignments.POST("", hm.console.RequireRole(models.RoleTeacher), hm.assignmentHandler.CreateAssignment)
			assignments.PUT("/:id", hm.console.RequireRole(models.RoleTeacher), hm.assignmentHandler.UpdateAssignment)
			assignments.DELETE("/:id", hm.console.RequireRole(models.RoleTeacher), hm.assignmentHandler.DeleteAssignment)
		}

		// Grading routes - Teachers and Admins only
		submissions := console.Group("/submissions")
		submissions.Use(hm.console.RequireRole(models.RoleTeacher))
		{
			submissions.POST("/:id/grade", hm.assignmentHandler.GradeSubmission)
		}

		messages := console.Group("/messages")
		{
			messages.GET("", hm.messageHandler.ListMessages)
			messages.POST("", hm.messageHandler.SendMessage)
			messages.PUT("/:id/read", hm.messageHandler.MarkRead)
			messages.DELETE("/:id", hm.messageHandler.DeleteMessage)
		}

		discussions := console.Group("/discussions")
		{
			discussions.GET("", hm.discussionHandler.ListDiscussions)
			discussions.GET("/:id", hm.discussionHandler.GetDiscussion)
			discussions.POST("", hm.discussionHandler.CreateDiscussion)
			discussions.POST("/:id/replies", hm.discussionHandler.ReplyToDiscussion)
			discussions.PUT("/:id/status", hm.discussionHandler.UpdateDiscussionStatus)
		}

		dashboard := console.Group("/dashboard")
		{
			dashboard.GET("/overview", hm.dashboardHandler.GetOverview)
			dashboard.GET("/recent-activities", hm.dashboardHandler.GetRecentActivities)
		}
	}

	router.GET("/health", hm.health)
}

func (hm *HandlerManager) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	if err := hm.serviceManager.HealthCheck(ctx); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": "admin-console",
			"error":   err.Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  "admin-console",
		"consoles": hm.registry.Len(),
	})
}
