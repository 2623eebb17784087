package controller

import (
	"context"
	"errors"
	"mindora_hub/internal/service"
	"mindora_hub/internal/util"
	"time"

	"github.com/gin-gonic/gin"
)

// RefreshTrigger is the part of the scheduler the HTTP layer drives.
type RefreshTrigger interface {
	Trigger(trigger service.Trigger) bool
	WaitIdle(ctx context.Context) error
	Stats() service.SchedulerStats
}

type DashboardController struct {
	DashboardService *service.DashboardService
	Scheduler        RefreshTrigger
	WaitTimeout      time.Duration
}

func NewDashboardController(dashboardService *service.DashboardService, scheduler RefreshTrigger, waitTimeout time.Duration) *DashboardController {
	return &DashboardController{
		DashboardService: dashboardService,
		Scheduler:        scheduler,
		WaitTimeout:      waitTimeout,
	}
}

// @Summary Get dashboard
// @Description Progress summary, lesson cards, learning path and achievement preview
// @Tags Dashboard
// @Produce json
// @Success 200 {object} util.Response
// @Router /api/dashboard [get]
func (c *DashboardController) GetDashboard(ctx *gin.Context) {
	util.Success(ctx, c.DashboardService.GetDashboard())
}

// @Summary Get lesson cards
// @Tags Dashboard
// @Produce json
// @Param limit query int false "Number of cards" default(8)
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/dashboard/lessons [get]
func (c *DashboardController) GetLessonCards(ctx *gin.Context) {
	limit, err := util.ParseLimit(ctx.Query("limit"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Success(ctx, c.DashboardService.GetLessonCards(limit))
}

// @Summary Get learning path
// @Tags Dashboard
// @Produce json
// @Param limit query int false "Number of steps" default(5)
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response
// @Router /api/dashboard/learning-path [get]
func (c *DashboardController) GetLearningPath(ctx *gin.Context) {
	limit, err := util.ParseLimit(ctx.Query("limit"))
	if err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	util.Success(ctx, c.DashboardService.GetLearningPath(limit))
}

// @Summary Screen regained focus
// @Description Requests a refresh; coalesced when one is already running
// @Tags Dashboard
// @Produce json
// @Success 202 {object} util.Response
// @Router /api/dashboard/focus [post]
func (c *DashboardController) Focus(ctx *gin.Context) {
	started := c.Scheduler.Trigger(service.TriggerFocus)
	util.Accepted(ctx, gin.H{"started": started})
}

// @Summary Pull to refresh
// @Description Requests a refresh. With wait=true the call blocks until the scheduler is idle and returns the rebuilt dashboard.
// @Tags Dashboard
// @Produce json
// @Param wait query bool false "Wait for the refresh to finish"
// @Success 200 {object} util.Response
// @Success 202 {object} util.Response
// @Failure 504 {object} util.Response
// @Router /api/dashboard/refresh [post]
func (c *DashboardController) Refresh(ctx *gin.Context) {
	started := c.Scheduler.Trigger(service.TriggerManual)
	if !util.ParseBool(ctx.Query("wait")) {
		util.Accepted(ctx, gin.H{"started": started})
		return
	}

	waitCtx, cancel := context.WithTimeout(ctx.Request.Context(), c.WaitTimeout)
	defer cancel()
	if err := c.Scheduler.WaitIdle(waitCtx); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			util.GatewayTimeout(ctx, "refresh still running")
			return
		}
		util.LogInternalError(ctx, err)
		return
	}

	util.Success(ctx, c.DashboardService.GetDashboard())
}
