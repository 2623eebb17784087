package service

import (
	"mindora_hub/internal/model"
	"mindora_hub/internal/repository"
	"sync"
	"time"
)

type ViewLimits struct {
	LessonCards        int
	LearningPath       int
	AchievementPreview int
}

type DashboardService struct {
	ContentRepo  *repository.ContentRepository
	ProgressRepo *repository.ProgressRepository
	Builder      *ViewModelBuilder

	mu     sync.RWMutex
	limits ViewLimits
}

func NewDashboardService(
	contentRepo *repository.ContentRepository,
	progressRepo *repository.ProgressRepository,
	builder *ViewModelBuilder,
	limits ViewLimits,
) *DashboardService {
	return &DashboardService{
		ContentRepo:  contentRepo,
		ProgressRepo: progressRepo,
		Builder:      builder,
		limits:       limits,
	}
}

type Dashboard struct {
	Progress           model.ProgressSummary       `json:"progress"`
	LessonCards        []model.LessonCardView      `json:"lessonCards"`
	LearningPath       []model.LearningStepView    `json:"learningPath"`
	Achievements       []model.AchievementTileView `json:"achievements"`
	EarnedCount        int                         `json:"earnedCount"`
	TotalAchievements  int                         `json:"totalAchievements"`
	Live               bool                        `json:"live"`
	ModulesRefreshedAt *time.Time                  `json:"modulesRefreshedAt,omitempty"`
}

type AchievementList struct {
	Tiles       []model.AchievementTileView `json:"tiles"`
	EarnedCount int                         `json:"earnedCount"`
	Total       int                         `json:"total"`
}

func (s *DashboardService) SetLimits(limits ViewLimits) {
	s.mu.Lock()
	s.limits = limits
	s.mu.Unlock()
}

func (s *DashboardService) Limits() ViewLimits {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.limits
}

func (s *DashboardService) GetDashboard() *Dashboard {
	limits := s.Limits()
	modules := s.ContentRepo.Current()
	achievements, earned := s.ContentRepo.CurrentAchievements()

	dashboard := &Dashboard{
		Progress:          s.ProgressRepo.Current(),
		LessonCards:       s.Builder.BuildLessonCards(modules, limits.LessonCards),
		LearningPath:      s.Builder.BuildLearningPath(modules, limits.LearningPath),
		Achievements:      s.Builder.BuildAchievementTiles(achievements, earned, limits.AchievementPreview),
		EarnedCount:       CountEarned(achievements, earned),
		TotalAchievements: len(achievements),
		Live:              len(modules) > 0,
	}
	if ts := s.ContentRepo.ModulesRefreshedAt(); !ts.IsZero() {
		dashboard.ModulesRefreshedAt = &ts
	}
	return dashboard
}

// GetLessonCards uses the configured limit when limit is not positive.
func (s *DashboardService) GetLessonCards(limit int) []model.LessonCardView {
	if limit <= 0 {
		limit = s.Limits().LessonCards
	}
	return s.Builder.BuildLessonCards(s.ContentRepo.Current(), limit)
}

func (s *DashboardService) GetLearningPath(limit int) []model.LearningStepView {
	if limit <= 0 {
		limit = s.Limits().LearningPath
	}
	return s.Builder.BuildLearningPath(s.ContentRepo.Current(), limit)
}

// GetAllAchievements backs the "view all" list: every achievement as a tile.
func (s *DashboardService) GetAllAchievements() *AchievementList {
	achievements, earned := s.ContentRepo.CurrentAchievements()
	list := &AchievementList{
		Tiles:       []model.AchievementTileView{},
		EarnedCount: CountEarned(achievements, earned),
		Total:       len(achievements),
	}
	if len(achievements) > 0 {
		list.Tiles = s.Builder.BuildAchievementTiles(achievements, earned, len(achievements))
	}
	return list
}

func (s *DashboardService) UpdateProgress(summary model.ProgressSummary) {
	s.ProgressRepo.Replace(summary)
}
