package service

import (
	"context"
	"mindora_hub/internal/model"
	"mindora_hub/internal/repository"
	"mindora_hub/pkg/tracing"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

type Trigger string

const (
	TriggerMount        Trigger = "mount"
	TriggerFocus        Trigger = "focus"
	TriggerManual       Trigger = "manual"
	TriggerInterval     Trigger = "interval"
	TriggerConfigReload Trigger = "config_reload"
)

type SchedulerState string

const (
	StateIdle       SchedulerState = "idle"
	StateRefreshing SchedulerState = "refreshing"
)

type RefreshOptions struct {
	UserID            string
	AllowedCategories []model.Category
	MaxRetries        int
	RetryInterval     time.Duration
}

type SchedulerStats struct {
	State       SchedulerState `json:"state"`
	Runs        int64          `json:"runs"`
	Coalesced   int64          `json:"coalesced"`
	LastTrigger Trigger        `json:"lastTrigger,omitempty"`
	LastRunAt   time.Time      `json:"lastRunAt"`
	LastError   string         `json:"lastError,omitempty"`
}

// RefreshScheduler runs the fetch, reconcile and commit pipeline. At most one
// pipeline is in flight; triggers that arrive meanwhile collapse into a single
// follow-up run, so commits always come from the latest started run.
type RefreshScheduler struct {
	fetcher    ContentFetcher
	reconciler *Reconciler
	store      *repository.ContentRepository
	observer   RefreshObserver

	mu             sync.Mutex
	state          SchedulerState
	pending        bool
	pendingTrigger Trigger
	idle           chan struct{}
	allowed        model.CategorySet
	opts           RefreshOptions
	stats          SchedulerStats
}

func NewRefreshScheduler(
	fetcher ContentFetcher,
	reconciler *Reconciler,
	store *repository.ContentRepository,
	observer RefreshObserver,
	opts RefreshOptions,
) *RefreshScheduler {
	if observer == nil {
		observer = NopObserver{}
	}
	if len(opts.AllowedCategories) == 0 {
		opts.AllowedCategories = model.DefaultCategories
	}
	return &RefreshScheduler{
		fetcher:    fetcher,
		reconciler: reconciler,
		store:      store,
		observer:   observer,
		state:      StateIdle,
		allowed:    model.NewCategorySet(opts.AllowedCategories...),
		opts:       opts,
	}
}

// Trigger starts a pipeline and returns true, or returns false when one is
// already running and the request was folded into the pending follow-up.
func (s *RefreshScheduler) Trigger(trigger Trigger) bool {
	s.mu.Lock()
	if s.state == StateRefreshing {
		s.pending = true
		s.pendingTrigger = trigger
		s.stats.Coalesced++
		s.mu.Unlock()
		s.observer.RefreshCoalesced(trigger)
		return false
	}
	s.state = StateRefreshing
	s.idle = make(chan struct{})
	s.mu.Unlock()

	go s.loop(trigger)
	return true
}

func (s *RefreshScheduler) loop(trigger Trigger) {
	for {
		s.run(trigger)

		s.mu.Lock()
		if !s.pending {
			s.state = StateIdle
			close(s.idle)
			s.mu.Unlock()
			return
		}
		s.pending = false
		trigger = s.pendingTrigger
		s.mu.Unlock()
	}
}

// WaitIdle blocks until no pipeline is running, including pending follow-ups.
func (s *RefreshScheduler) WaitIdle(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return nil
	}
	idle := s.idle
	s.mu.Unlock()

	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetAllowedCategories applies to the next pipeline run.
func (s *RefreshScheduler) SetAllowedCategories(categories []model.Category) {
	if len(categories) == 0 {
		return
	}
	s.mu.Lock()
	s.allowed = model.NewCategorySet(categories...)
	s.opts.AllowedCategories = append([]model.Category(nil), categories...)
	s.mu.Unlock()
}

func (s *RefreshScheduler) Stats() SchedulerStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats := s.stats
	stats.State = s.state
	return stats
}

type runParams struct {
	allowed    model.CategorySet
	userID     string
	maxRetries int
	retryEvery rate.Limit
}

func (s *RefreshScheduler) params() runParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	return runParams{
		allowed:    s.allowed,
		userID:     s.opts.UserID,
		maxRetries: s.opts.MaxRetries,
		retryEvery: rate.Every(s.opts.RetryInterval),
	}
}

func (s *RefreshScheduler) run(trigger Trigger) {
	runID := model.GenerateUUID()
	start := time.Now()
	p := s.params()

	ctx, span := tracing.Tracer.Start(context.Background(), "content.refresh", trace.WithAttributes(
		attribute.String("refresh.run_id", runID),
		attribute.String("refresh.trigger", string(trigger)),
	))
	defer span.End()

	s.observer.RefreshStarted(runID, trigger)

	// The chains never cancel each other.
	var g errgroup.Group
	var moduleErr, achievementErr error
	g.Go(func() error {
		moduleErr = s.refreshModules(ctx, runID, p)
		return nil
	})
	g.Go(func() error {
		achievementErr = s.refreshAchievements(ctx, runID, p)
		return nil
	})
	_ = g.Wait()

	s.mu.Lock()
	s.stats.Runs++
	s.stats.LastTrigger = trigger
	s.stats.LastRunAt = start
	s.stats.LastError = ""
	if moduleErr != nil {
		s.stats.LastError = moduleErr.Error()
	} else if achievementErr != nil {
		s.stats.LastError = achievementErr.Error()
	}
	s.mu.Unlock()

	s.observer.RefreshFinished(runID, trigger, time.Since(start))
}

// refreshModules keeps the last adopted snapshot when the fetch fails.
func (s *RefreshScheduler) refreshModules(ctx context.Context, runID string, p runParams) error {
	var modules model.ModuleCollection
	err := s.fetchWithRetry(ctx, runID, ResourceModules, p, func(ctx context.Context) error {
		var err error
		modules, err = s.fetcher.FetchModules(ctx)
		return err
	})
	if err != nil {
		return err
	}

	reconciled := s.reconciler.Reconcile(ModuleFetchResult{Modules: modules}, p.allowed)
	s.store.Replace(reconciled)
	s.observer.ModulesCommitted(runID, len(reconciled))
	return nil
}

// refreshAchievements degrades to an empty listing, or to an empty earned set
// when only the user lookup fails.
func (s *RefreshScheduler) refreshAchievements(ctx context.Context, runID string, p runParams) error {
	var achievements []model.Achievement
	err := s.fetchWithRetry(ctx, runID, ResourceAchievements, p, func(ctx context.Context) error {
		var err error
		achievements, err = s.fetcher.FetchAchievements(ctx)
		return err
	})
	if err != nil {
		s.store.ReplaceAchievements(nil, model.EarnedSet{})
		return err
	}

	earned := model.EarnedSet{}
	var earnedErr error
	if p.userID != "" {
		var fetched model.EarnedSet
		earnedErr = s.fetchWithRetry(ctx, runID, ResourceUserAchievements, p, func(ctx context.Context) error {
			var err error
			fetched, err = s.fetcher.FetchUserAchievements(ctx, p.userID)
			return err
		})
		if earnedErr == nil {
			earned = fetched
		}
	}

	s.store.ReplaceAchievements(achievements, earned)
	return earnedErr
}

// fetchWithRetry retries network failures only, paced by a per-chain limiter.
func (s *RefreshScheduler) fetchWithRetry(ctx context.Context, runID, resource string, p runParams, fetch func(context.Context) error) error {
	limiter := rate.NewLimiter(p.retryEvery, 1)

	var err error
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if werr := limiter.Wait(ctx); werr != nil {
			if err == nil {
				err = networkError(resource, 0, werr)
			}
			return err
		}

		s.observer.FetchStarted(runID, resource)
		start := time.Now()
		err = fetch(ctx)
		s.observer.FetchFinished(runID, resource, err, time.Since(start))

		if err == nil || !IsRetryable(err) {
			return err
		}
	}
	return err
}
