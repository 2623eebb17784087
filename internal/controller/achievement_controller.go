package controller

import (
	"mindora_hub/internal/model"
	"mindora_hub/internal/service"
	"mindora_hub/internal/util"

	"github.com/gin-gonic/gin"
)

type AchievementController struct {
	DashboardService *service.DashboardService
}

func NewAchievementController(dashboardService *service.DashboardService) *AchievementController {
	return &AchievementController{DashboardService: dashboardService}
}

// @Summary List achievements
// @Description Every achievement as a tile, with earned and total counts
// @Tags Achievements
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/achievements [get]
func (c *AchievementController) GetAchievements(ctx *gin.Context) {
	util.Success(ctx, c.DashboardService.GetAllAchievements())
}

// @Summary Publish progress summary
// @Description Written by the progress subsystem, read by the dashboard
// @Tags Progress
// @Accept json
// @Produce json
// @Param summary body model.ProgressSummary true "Progress counters"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/progress/summary [put]
func (c *AchievementController) UpdateProgressSummary(ctx *gin.Context) {
	var summary model.ProgressSummary
	if err := ctx.ShouldBindJSON(&summary); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	c.DashboardService.UpdateProgress(summary)
	util.Success(ctx, summary)
}
