package app

import (
	"time"

	"learnhub_backend/internal/config"
	"learnhub_backend/internal/middleware"
	"learnhub_backend/internal/model"
	"learnhub_backend/pkg/monitoring"
	"learnhub_backend/pkg/security"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, repos *repositories, auth middleware.Authenticator, cfg *config.Config) {
	window := time.Duration(cfg.RateLimit.WindowMinutes) * time.Minute

	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")

	public := api.Group("")
	public.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, window))
	{
		public.GET("/health", c.health.HealthCheck)
		public.GET("/courses", c.course.List)
		public.GET("/courses/:id", c.course.Get)
	}

	// 认证之后按用户限流
	authorized := api.Group("")
	authorized.Use(middleware.AuthMiddleware(auth), security.RateLimiter(cfg.RateLimit.MaxRequests, window))
	{
		authorized.POST("/enrollments", c.enrollment.Enroll)
		authorized.GET("/enrollments", c.enrollment.ListMine)
	}

	a.registerAdminRoutes(authorized, c, repos)
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers, repos *repositories) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RequireRole(repos.profile, model.RoleAdmin))
	{
		admin.POST("/students/:userId/enrollments", c.enrollment.AdminEnroll)
	}
}
