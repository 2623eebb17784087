package app

import (
	"context"
	"errors"
	"mindora_hub/internal/config"
	"mindora_hub/internal/controller"
	"mindora_hub/internal/model"
	"mindora_hub/internal/repository"
	"mindora_hub/internal/service"
	"mindora_hub/pkg/configwatcher"
	"mindora_hub/pkg/logger"
	"mindora_hub/pkg/monitoring"
	"mindora_hub/pkg/security"
	"mindora_hub/pkg/tracing"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"
)

const serviceName = "mindora-hub"

type App struct {
	Config          *config.Config
	Router          *gin.Engine
	repos           *repositories
	services        *services
	tracerProvider  *sdktrace.TracerProvider
	configCallbacks []func(*config.Config)
}

type repositories struct {
	content  *repository.ContentRepository
	progress *repository.ProgressRepository
}

type services struct {
	fetcher   *service.HTTPContentFetcher
	observer  *monitoring.RefreshObserver
	builder   *service.ViewModelBuilder
	scheduler *service.RefreshScheduler
	dashboard *service.DashboardService
}

type controllers struct {
	dashboard   *controller.DashboardController
	achievement *controller.AchievementController
	health      *controller.HealthController
}

func (a *App) RegisterConfigCallback(callback func(*config.Config)) {
	a.configCallbacks = append(a.configCallbacks, callback)
}

func (a *App) initRepositories() *repositories {
	return &repositories{
		content:  repository.NewContentRepository(),
		progress: repository.NewProgressRepository(),
	}
}

func (a *App) initServices(repos *repositories, cfg *config.Config) *services {
	observer := monitoring.NewRefreshObserver(logger.Log)
	fetcher := service.NewHTTPContentFetcher(cfg.Content, nil)
	builder := service.NewViewModelBuilder(observer)

	scheduler := service.NewRefreshScheduler(fetcher, service.NewReconciler(), repos.content, observer, service.RefreshOptions{
		UserID:            cfg.Profile.UserID,
		AllowedCategories: categories(cfg.Content.AllowedCategories),
		MaxRetries:        cfg.Refresh.MaxRetries,
		RetryInterval:     cfg.Refresh.RetryInterval,
	})

	return &services{
		fetcher:   fetcher,
		observer:  observer,
		builder:   builder,
		scheduler: scheduler,
		dashboard: service.NewDashboardService(repos.content, repos.progress, builder, viewLimits(cfg.Views)),
	}
}

func (a *App) initControllers(s *services, repos *repositories, cfg *config.Config) *controllers {
	return &controllers{
		dashboard:   controller.NewDashboardController(s.dashboard, s.scheduler, refreshWaitTimeout(cfg)),
		achievement: controller.NewAchievementController(s.dashboard),
		health:      controller.NewHealthController(repos.content, s.scheduler),
	}
}

func (a *App) setupMiddlewares(router *gin.Engine, cfg *config.Config) {
	router.Use(security.CORS(cfg.CORS.AllowedOrigins))
	router.Use(security.Secure())
	router.Use(security.RateLimiter(cfg.RateLimit.MaxRequests, time.Duration(cfg.RateLimit.WindowMinutes)*time.Minute))

	if cfg.Tracing.Enabled {
		router.Use(tracing.GinMiddleware())
	}

	router.Use(monitoring.MetricsMiddleware())
}

// applyConfig pushes the hot-reloadable settings into running components.
func (a *App) applyConfig(cfg *config.Config) {
	a.services.scheduler.SetAllowedCategories(categories(cfg.Content.AllowedCategories))
	a.services.dashboard.SetLimits(viewLimits(cfg.Views))
	for _, cb := range a.configCallbacks {
		cb(cfg)
	}
	logger.Log.Info("Applied reloaded settings",
		zap.Strings("allowed_categories", cfg.Content.AllowedCategories),
		zap.Int("lesson_limit", cfg.Views.LessonLimit),
	)
	a.services.scheduler.Trigger(service.TriggerConfigReload)
}

func (a *App) startBackgroundTasks(ctx context.Context, cfg *config.Config) {
	if cfg.Refresh.Interval > 0 {
		go func() {
			ticker := time.NewTicker(cfg.Refresh.Interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					a.services.scheduler.Trigger(service.TriggerInterval)
				}
			}
		}()
	}

	if cfg.Refresh.WatchConfig && cfg.SourceFile != "" {
		go func() {
			if err := configwatcher.Watch(ctx, cfg.SourceFile, configwatcher.DefaultDebounce, a.applyConfig); err != nil {
				logger.Log.Error("Config watcher stopped", zap.Error(err))
			}
		}()
	}
}

func NewApp(cfg *config.Config) *App {
	logger.InitLogger(cfg)
	logger.Log.Info("Logger initialized successfully", zap.String("mode", cfg.Server.Mode))

	app := &App{Config: cfg}

	repos := app.initRepositories()
	app.repos = repos
	services := app.initServices(repos, cfg)
	app.services = services
	controllers := app.initControllers(services, repos, cfg)

	monitoring.Init()

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	app.Router = router

	if cfg.Tracing.Enabled {
		tp, err := tracing.InitTracer(serviceName, cfg.Tracing.CollectorEndpoint)
		if err != nil {
			logger.Log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		app.tracerProvider = tp
	}

	app.setupMiddlewares(router, cfg)
	app.registerRoutes(router, controllers)

	return app
}

func (a *App) Run() {
	cfg := a.Config
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: a.Router,
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go func() {
		logger.Log.Info("Server running", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("listen", zap.Error(err))
		}
	}()

	a.services.scheduler.Trigger(service.TriggerMount)
	a.startBackgroundTasks(ctx, cfg)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Refresh.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := a.services.scheduler.WaitIdle(shutdownCtx); err != nil {
		logger.Log.Warn("Refresh still running at shutdown", zap.Error(err))
	}
	if a.tracerProvider != nil {
		if err := a.tracerProvider.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Failed to shutdown tracer provider", zap.Error(err))
		}
	}

	logger.Log.Info("Server exiting")
}

func categories(names []string) []model.Category {
	out := make([]model.Category, 0, len(names))
	for _, n := range names {
		out = append(out, model.Category(n))
	}
	return out
}

func viewLimits(v config.ViewsConfig) service.ViewLimits {
	return service.ViewLimits{
		LessonCards:        v.LessonLimit,
		LearningPath:       v.LearningPathLimit,
		AchievementPreview: v.AchievementPreview,
	}
}

// refreshWaitTimeout covers a run plus one coalesced follow-up, each with its retries.
func refreshWaitTimeout(cfg *config.Config) time.Duration {
	attempts := time.Duration(cfg.Refresh.MaxRetries + 1)
	perRun := attempts*cfg.Content.Timeout + (attempts-1)*cfg.Refresh.RetryInterval
	return 2*perRun + time.Second
}
