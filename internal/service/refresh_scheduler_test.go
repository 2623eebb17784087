package service

import (
	"context"
	"errors"
	"mindora_hub/internal/model"
	"mindora_hub/internal/repository"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type moduleResponse struct {
	modules model.ModuleCollection
	err     error
}

// fakeFetcher serves scripted module responses in order; the last one repeats.
// When gate is set, every module call blocks until it receives a value.
type fakeFetcher struct {
	mu              sync.Mutex
	moduleResponses []moduleResponse
	moduleCalls     int
	gate            chan struct{}
	started         chan struct{}

	achievements    []model.Achievement
	achievementsErr error
	earned          model.EarnedSet
	earnedErr       error
	userCalls       atomic.Int32
	lastUserID      atomic.Value
}

func (f *fakeFetcher) FetchModules(ctx context.Context) (model.ModuleCollection, error) {
	f.mu.Lock()
	idx := min(f.moduleCalls, len(f.moduleResponses)-1)
	f.moduleCalls++
	resp := f.moduleResponses[idx]
	gate, started := f.gate, f.started
	f.mu.Unlock()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	return resp.modules, resp.err
}

func (f *fakeFetcher) FetchAchievements(ctx context.Context) ([]model.Achievement, error) {
	return f.achievements, f.achievementsErr
}

func (f *fakeFetcher) FetchUserAchievements(ctx context.Context, userID string) (model.EarnedSet, error) {
	f.userCalls.Add(1)
	f.lastUserID.Store(userID)
	return f.earned, f.earnedErr
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.moduleCalls
}

func waitIdle(t *testing.T, s *RefreshScheduler) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.WaitIdle(ctx))
}

func newTestScheduler(f ContentFetcher, store *repository.ContentRepository, obs RefreshObserver, opts RefreshOptions) *RefreshScheduler {
	return NewRefreshScheduler(f, NewReconciler(), store, obs, opts)
}

func TestScheduler_MountCommitsReconciledModules(t *testing.T) {
	f := &fakeFetcher{moduleResponses: []moduleResponse{{modules: model.ModuleCollection{
		{ID: "m1", Title: "Intro to AI", Category: "ai", UserProgress: percent(42)},
		{ID: "m2", Title: "Ancient Egypt", Category: "history"},
		{ID: "m3", Title: "Budgeting", Category: "finance"},
	}}}}
	store := repository.NewContentRepository()
	obs := &recordingObserver{}
	s := newTestScheduler(f, store, obs, RefreshOptions{})

	assert.True(t, s.Trigger(TriggerMount))
	waitIdle(t, s)

	current := store.Current()
	require.Len(t, current, 2)
	assert.Equal(t, "m1", current[0].ID)
	assert.Equal(t, "m3", current[1].ID)
	assert.Equal(t, []int{2}, obs.commits)
	assert.Equal(t, []Trigger{TriggerMount}, obs.finished)

	stats := s.Stats()
	assert.Equal(t, StateIdle, stats.State)
	assert.Equal(t, int64(1), stats.Runs)
	assert.Equal(t, TriggerMount, stats.LastTrigger)
	assert.Empty(t, stats.LastError)
}

func TestScheduler_CoalescesTriggersIntoOneFollowUp(t *testing.T) {
	first := model.ModuleCollection{{ID: "old", Category: "math"}}
	second := model.ModuleCollection{{ID: "new", Category: "math"}}
	f := &fakeFetcher{
		moduleResponses: []moduleResponse{{modules: first}, {modules: second}},
		gate:            make(chan struct{}),
		started:         make(chan struct{}, 4),
	}
	store := repository.NewContentRepository()
	obs := &recordingObserver{}
	s := newTestScheduler(f, store, obs, RefreshOptions{})

	require.True(t, s.Trigger(TriggerMount))
	<-f.started

	assert.Equal(t, StateRefreshing, s.Stats().State)
	assert.False(t, s.Trigger(TriggerFocus))
	assert.False(t, s.Trigger(TriggerManual))

	f.gate <- struct{}{}
	<-f.started
	f.gate <- struct{}{}
	waitIdle(t, s)

	assert.Equal(t, 2, f.calls(), "exactly one follow-up run")
	require.Len(t, store.Current(), 1)
	assert.Equal(t, "new", store.Current()[0].ID)

	stats := s.Stats()
	assert.Equal(t, int64(2), stats.Runs)
	assert.Equal(t, int64(2), stats.Coalesced)
	assert.Equal(t, TriggerManual, stats.LastTrigger)
	assert.Equal(t, []Trigger{TriggerFocus, TriggerManual}, obs.coalesced)
	assert.Equal(t, []Trigger{TriggerMount, TriggerManual}, obs.finished)
}

func TestScheduler_TriggerAfterIdleStartsNewRun(t *testing.T) {
	f := &fakeFetcher{moduleResponses: []moduleResponse{{modules: model.ModuleCollection{{ID: "m1", Category: "ai"}}}}}
	s := newTestScheduler(f, repository.NewContentRepository(), nil, RefreshOptions{})

	assert.True(t, s.Trigger(TriggerMount))
	waitIdle(t, s)
	assert.True(t, s.Trigger(TriggerFocus))
	waitIdle(t, s)

	assert.Equal(t, 2, f.calls())
	assert.Equal(t, int64(0), s.Stats().Coalesced)
}

func TestScheduler_FailedFetchKeepsLastGoodSnapshot(t *testing.T) {
	f := &fakeFetcher{moduleResponses: []moduleResponse{
		{modules: model.ModuleCollection{{ID: "m1", Category: "ai"}}},
		{err: networkError(ResourceModules, 503, nil)},
	}}
	store := repository.NewContentRepository()
	s := newTestScheduler(f, store, nil, RefreshOptions{})

	s.Trigger(TriggerMount)
	waitIdle(t, s)
	adoptedAt := store.ModulesRefreshedAt()

	s.Trigger(TriggerFocus)
	waitIdle(t, s)

	require.Len(t, store.Current(), 1)
	assert.Equal(t, "m1", store.Current()[0].ID)
	assert.Equal(t, adoptedAt, store.ModulesRefreshedAt())
	assert.Contains(t, s.Stats().LastError, "fetch modules")
}

func TestScheduler_EmptyEligibleResultIsCommitted(t *testing.T) {
	f := &fakeFetcher{moduleResponses: []moduleResponse{
		{modules: model.ModuleCollection{{ID: "m1", Category: "ai"}}},
		{modules: model.ModuleCollection{{ID: "m2", Category: "history"}}},
	}}
	store := repository.NewContentRepository()
	obs := &recordingObserver{}
	s := newTestScheduler(f, store, obs, RefreshOptions{})

	s.Trigger(TriggerMount)
	waitIdle(t, s)
	s.Trigger(TriggerFocus)
	waitIdle(t, s)

	assert.Empty(t, store.Current())
	assert.Equal(t, []int{1, 0}, obs.commits)
}

func TestScheduler_RetriesNetworkErrorsOnly(t *testing.T) {
	t.Run("network", func(t *testing.T) {
		f := &fakeFetcher{moduleResponses: []moduleResponse{
			{err: networkError(ResourceModules, 0, errors.New("timeout"))},
			{err: networkError(ResourceModules, 502, nil)},
			{modules: model.ModuleCollection{{ID: "m1", Category: "math"}}},
		}}
		store := repository.NewContentRepository()
		s := newTestScheduler(f, store, nil, RefreshOptions{MaxRetries: 2, RetryInterval: time.Millisecond})

		s.Trigger(TriggerMount)
		waitIdle(t, s)

		assert.Equal(t, 3, f.calls())
		assert.Len(t, store.Current(), 1)
		assert.Empty(t, s.Stats().LastError)
	})

	t.Run("payload", func(t *testing.T) {
		f := &fakeFetcher{moduleResponses: []moduleResponse{
			{err: payloadError(ResourceModules, errors.New("success flag is false"))},
			{modules: model.ModuleCollection{{ID: "m1", Category: "math"}}},
		}}
		store := repository.NewContentRepository()
		s := newTestScheduler(f, store, nil, RefreshOptions{MaxRetries: 3, RetryInterval: time.Millisecond})

		s.Trigger(TriggerMount)
		waitIdle(t, s)

		assert.Equal(t, 1, f.calls())
		assert.Empty(t, store.Current())
	})

	t.Run("exhausted", func(t *testing.T) {
		f := &fakeFetcher{moduleResponses: []moduleResponse{{err: networkError(ResourceModules, 500, nil)}}}
		s := newTestScheduler(f, repository.NewContentRepository(), nil, RefreshOptions{MaxRetries: 2, RetryInterval: time.Millisecond})

		s.Trigger(TriggerMount)
		waitIdle(t, s)

		assert.Equal(t, 3, f.calls())
		assert.Contains(t, s.Stats().LastError, "status 500")
	})
}

func TestScheduler_AchievementChains(t *testing.T) {
	achievements := []model.Achievement{{ID: "a1", Name: "First Steps"}, {ID: "a2", Name: "Explorer"}}

	t.Run("with user", func(t *testing.T) {
		f := &fakeFetcher{
			moduleResponses: []moduleResponse{{modules: model.ModuleCollection{}}},
			achievements:    achievements,
			earned:          model.NewEarnedSet("a2"),
		}
		store := repository.NewContentRepository()
		s := newTestScheduler(f, store, nil, RefreshOptions{UserID: "user-42"})

		s.Trigger(TriggerMount)
		waitIdle(t, s)

		list, earned := store.CurrentAchievements()
		assert.Equal(t, achievements, list)
		assert.True(t, earned.Has("a2"))
		assert.Equal(t, "user-42", f.lastUserID.Load())
	})

	t.Run("without user", func(t *testing.T) {
		f := &fakeFetcher{
			moduleResponses: []moduleResponse{{modules: model.ModuleCollection{}}},
			achievements:    achievements,
			earned:          model.NewEarnedSet("a1"),
		}
		store := repository.NewContentRepository()
		s := newTestScheduler(f, store, nil, RefreshOptions{})

		s.Trigger(TriggerMount)
		waitIdle(t, s)

		list, earned := store.CurrentAchievements()
		assert.Len(t, list, 2)
		assert.Empty(t, earned)
		assert.Equal(t, int32(0), f.userCalls.Load())
	})

	t.Run("user lookup fails", func(t *testing.T) {
		f := &fakeFetcher{
			moduleResponses: []moduleResponse{{modules: model.ModuleCollection{}}},
			achievements:    achievements,
			earnedErr:       payloadError(ResourceUserAchievements, errors.New("expected an array")),
		}
		store := repository.NewContentRepository()
		s := newTestScheduler(f, store, nil, RefreshOptions{UserID: "u1"})

		s.Trigger(TriggerMount)
		waitIdle(t, s)

		list, earned := store.CurrentAchievements()
		assert.Len(t, list, 2)
		assert.Empty(t, earned)
		assert.Contains(t, s.Stats().LastError, "user_achievements")
	})

	t.Run("listing fails", func(t *testing.T) {
		f := &fakeFetcher{
			moduleResponses: []moduleResponse{{modules: model.ModuleCollection{{ID: "m1", Category: "ai"}}}},
			achievementsErr: networkError(ResourceAchievements, 0, errors.New("reset")),
			earned:          model.NewEarnedSet("a1"),
		}
		store := repository.NewContentRepository()
		store.ReplaceAchievements(achievements, model.NewEarnedSet("a1"))
		s := newTestScheduler(f, store, nil, RefreshOptions{UserID: "u1"})

		s.Trigger(TriggerMount)
		waitIdle(t, s)

		list, earned := store.CurrentAchievements()
		assert.Empty(t, list)
		assert.Empty(t, earned)
		assert.Equal(t, int32(0), f.userCalls.Load())
		assert.Len(t, store.Current(), 1, "module chain is independent of the achievement chain")
	})
}

func TestScheduler_SetAllowedCategoriesAppliesToNextRun(t *testing.T) {
	f := &fakeFetcher{moduleResponses: []moduleResponse{{modules: model.ModuleCollection{
		{ID: "m1", Category: "ai"},
		{ID: "m2", Category: "history"},
	}}}}
	store := repository.NewContentRepository()
	s := newTestScheduler(f, store, nil, RefreshOptions{})

	s.Trigger(TriggerMount)
	waitIdle(t, s)
	require.Len(t, store.Current(), 1)

	s.SetAllowedCategories([]model.Category{"history"})
	s.Trigger(TriggerConfigReload)
	waitIdle(t, s)

	require.Len(t, store.Current(), 1)
	assert.Equal(t, "m2", store.Current()[0].ID)

	s.SetAllowedCategories(nil)
	s.Trigger(TriggerManual)
	waitIdle(t, s)
	assert.Equal(t, "m2", store.Current()[0].ID, "an empty allow-list is ignored")
}

func TestScheduler_WaitIdleHonoursContext(t *testing.T) {
	f := &fakeFetcher{
		moduleResponses: []moduleResponse{{modules: model.ModuleCollection{}}},
		gate:            make(chan struct{}),
	}
	s := newTestScheduler(f, repository.NewContentRepository(), nil, RefreshOptions{})

	assert.NoError(t, s.WaitIdle(context.Background()), "idle scheduler returns immediately")

	s.Trigger(TriggerMount)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.WaitIdle(ctx), context.DeadlineExceeded)

	close(f.gate)
	waitIdle(t, s)
}

// Concurrent triggers never run two pipelines at once.
func TestScheduler_ConcurrentTriggersSerialise(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	f := &trackingFetcher{inFlight: &inFlight, maxInFlight: &maxInFlight}
	s := newTestScheduler(f, repository.NewContentRepository(), nil, RefreshOptions{})

	var accepted atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Trigger(TriggerFocus) {
				accepted.Add(1)
			}
		}()
	}
	wg.Wait()
	waitIdle(t, s)

	assert.Equal(t, int32(1), maxInFlight.Load())
	stats := s.Stats()
	assert.Equal(t, int64(50), accepted.Load()+stats.Coalesced)
	assert.GreaterOrEqual(t, stats.Runs, accepted.Load())
	assert.LessOrEqual(t, stats.Runs, int64(50))
}

type trackingFetcher struct {
	inFlight, maxInFlight *atomic.Int32
}

func (f *trackingFetcher) FetchModules(ctx context.Context) (model.ModuleCollection, error) {
	n := f.inFlight.Add(1)
	for {
		max := f.maxInFlight.Load()
		if n <= max || f.maxInFlight.CompareAndSwap(max, n) {
			break
		}
	}
	time.Sleep(time.Millisecond)
	f.inFlight.Add(-1)
	return model.ModuleCollection{}, nil
}

func (f *trackingFetcher) FetchAchievements(ctx context.Context) ([]model.Achievement, error) {
	return nil, nil
}

func (f *trackingFetcher) FetchUserAchievements(ctx context.Context, userID string) (model.EarnedSet, error) {
	return model.EarnedSet{}, nil
}
