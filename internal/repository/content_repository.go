package repository

import (
	"mindora_hub/internal/model"
	"sync/atomic"
	"time"
)

type moduleSnapshot struct {
	modules   model.ModuleCollection
	updatedAt time.Time
}

type achievementSnapshot struct {
	achievements []model.Achievement
	earned       model.EarnedSet
	updatedAt    time.Time
}

// ContentRepository holds the last adopted snapshot of remote content for the
// lifetime of the process. Each Replace swaps a whole snapshot, so a reader
// sees either the previous or the new state. Returned values are shared and
// must be treated as read-only.
type ContentRepository struct {
	modules      atomic.Pointer[moduleSnapshot]
	achievements atomic.Pointer[achievementSnapshot]
	now          func() time.Time
}

func NewContentRepository() *ContentRepository {
	r := &ContentRepository{now: time.Now}
	r.modules.Store(&moduleSnapshot{})
	r.achievements.Store(&achievementSnapshot{earned: model.EarnedSet{}})
	return r
}

func (r *ContentRepository) Replace(modules model.ModuleCollection) {
	r.modules.Store(&moduleSnapshot{
		modules:   modules.Clone(),
		updatedAt: r.now(),
	})
}

func (r *ContentRepository) Current() model.ModuleCollection {
	return r.modules.Load().modules
}

func (r *ContentRepository) ModulesRefreshedAt() time.Time {
	return r.modules.Load().updatedAt
}

func (r *ContentRepository) ReplaceAchievements(achievements []model.Achievement, earned model.EarnedSet) {
	snap := &achievementSnapshot{
		achievements: append([]model.Achievement(nil), achievements...),
		earned:       earned.Clone(),
		updatedAt:    r.now(),
	}
	r.achievements.Store(snap)
}

func (r *ContentRepository) CurrentAchievements() ([]model.Achievement, model.EarnedSet) {
	snap := r.achievements.Load()
	return snap.achievements, snap.earned
}

func (r *ContentRepository) AchievementsRefreshedAt() time.Time {
	return r.achievements.Load().updatedAt
}
