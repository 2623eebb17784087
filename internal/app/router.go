package app

import (
	"mindora_hub/pkg/monitoring"

	"github.com/gin-gonic/gin"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	router.GET("/metrics", monitoring.PrometheusHandler())

	api := router.Group("/api")
	{
		api.GET("/health", c.health.HealthCheck)

		dashboard := api.Group("/dashboard")
		{
			dashboard.GET("", c.dashboard.GetDashboard)
			dashboard.GET("/lessons", c.dashboard.GetLessonCards)
			dashboard.GET("/learning-path", c.dashboard.GetLearningPath)
			dashboard.POST("/focus", c.dashboard.Focus)
			dashboard.POST("/refresh", c.dashboard.Refresh)
		}

		api.GET("/achievements", c.achievement.GetAchievements)
		api.PUT("/progress/summary", c.achievement.UpdateProgressSummary)
	}
}
