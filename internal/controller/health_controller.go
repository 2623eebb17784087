package controller

import (
	"mindora_hub/internal/repository"
	"mindora_hub/internal/util"

	"github.com/gin-gonic/gin"
)

type HealthController struct {
	ContentRepo *repository.ContentRepository
	Scheduler   RefreshTrigger
}

func NewHealthController(contentRepo *repository.ContentRepository, scheduler RefreshTrigger) *HealthController {
	return &HealthController{ContentRepo: contentRepo, Scheduler: scheduler}
}

// @Summary Health check
// @Description Content store and refresh scheduler status
// @Tags System
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	content := gin.H{
		"modules": len(c.ContentRepo.Current()),
		"source":  "fallback",
	}
	if len(c.ContentRepo.Current()) > 0 {
		content["source"] = "live"
	}
	if ts := c.ContentRepo.ModulesRefreshedAt(); !ts.IsZero() {
		content["modulesRefreshedAt"] = ts
	}
	achievements, _ := c.ContentRepo.CurrentAchievements()
	content["achievements"] = len(achievements)
	if ts := c.ContentRepo.AchievementsRefreshedAt(); !ts.IsZero() {
		content["achievementsRefreshedAt"] = ts
	}

	util.Success(ctx, gin.H{
		"status": "ok",
		"components": gin.H{
			"content":   content,
			"scheduler": c.Scheduler.Stats(),
		},
	})
}
