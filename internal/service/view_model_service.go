package service

import (
	"math"
	"mindora_hub/internal/model"
)

const (
	DefaultLessonLimit        = 8
	DefaultLearningPathLimit  = 5
	DefaultAchievementPreview = 3

	// UnearnedTint replaces the achievement color on tiles the user has not unlocked.
	UnearnedTint = "#ddd"

	ViewLessonCards  = "lesson_cards"
	ViewLearningPath = "learning_path"
)

var lessonPalette = []string{"#4169e1", "#4ecdc4", "#2ed573", "#ff6b6b", "#4ecdc4", "#45b7d1", "#96ceb4", "#feca57"}

var learningPathPalette = []string{"#4ecdc4", "#45b7d1", "#ff6b6b", "#9b59b6", "#f39c12"}

// Shown when no eligible module is available.
var defaultLessonCards = []model.LessonCardView{
	{ID: "1", Title: "Grammar Basics", Progress: 0, Difficulty: model.DifficultyEasy, Color: "#4169e1"},
	{ID: "2", Title: "Vocabulary Builder", Progress: 0, Difficulty: model.DifficultyMedium, Color: "#4ecdc4"},
	{ID: "3", Title: "Reading Comprehension", Progress: 0, Difficulty: model.DifficultyHard, Color: "#2ed573"},
}

var defaultLearningPath = []model.LearningStepView{
	{Step: 1, Title: "Alphabet & Sounds", Completed: true, Color: "#4ecdc4"},
	{Step: 2, Title: "Basic Words", Completed: true, Color: "#45b7d1"},
	{Step: 3, Title: "Simple Sentences", Completed: false, Color: "#ff6b6b"},
	{Step: 4, Title: "Reading Stories", Completed: false, Color: "#9b59b6"},
	{Step: 5, Title: "Writing Practice", Completed: false, Color: "#f39c12"},
}

// DefaultLessonCards returns a fresh copy of the fallback lesson cards.
func DefaultLessonCards() []model.LessonCardView {
	return append([]model.LessonCardView(nil), defaultLessonCards...)
}

func DefaultLearningPath() []model.LearningStepView {
	return append([]model.LearningStepView(nil), defaultLearningPath...)
}

// ViewModelBuilder derives presentation structures. Output is rebuilt on every
// call and depends only on its inputs.
type ViewModelBuilder struct {
	observer RefreshObserver
}

func NewViewModelBuilder(observer RefreshObserver) *ViewModelBuilder {
	if observer == nil {
		observer = NopObserver{}
	}
	return &ViewModelBuilder{observer: observer}
}

func (b *ViewModelBuilder) BuildLessonCards(modules model.ModuleCollection, limit int) []model.LessonCardView {
	if len(modules) == 0 {
		b.observer.FallbackTriggered(ViewLessonCards)
		return DefaultLessonCards()
	}
	if limit <= 0 {
		limit = DefaultLessonLimit
	}

	n := min(limit, len(modules))
	cards := make([]model.LessonCardView, n)
	for i, m := range modules[:n] {
		cards[i] = model.LessonCardView{
			ID:         m.ID,
			Title:      m.Title,
			Progress:   int(math.Round(m.UserProgress.ClampedPercentage())),
			Difficulty: m.EffectiveDifficulty(),
			Color:      lessonPalette[i%len(lessonPalette)],
		}
	}
	return cards
}

func (b *ViewModelBuilder) BuildLearningPath(modules model.ModuleCollection, limit int) []model.LearningStepView {
	if len(modules) == 0 {
		b.observer.FallbackTriggered(ViewLearningPath)
		return DefaultLearningPath()
	}
	if limit <= 0 {
		limit = DefaultLearningPathLimit
	}

	n := min(limit, len(modules))
	steps := make([]model.LearningStepView, n)
	for i, m := range modules[:n] {
		steps[i] = model.LearningStepView{
			Step:      i + 1,
			Title:     m.Title,
			Completed: m.UserProgress.Completed(),
			Color:     learningPathPalette[i%len(learningPathPalette)],
		}
	}
	return steps
}

// BuildAchievementTiles keeps server order; earned status is looked up in
// earned at build time and never stored on the achievement.
func (b *ViewModelBuilder) BuildAchievementTiles(achievements []model.Achievement, earned model.EarnedSet, previewCount int) []model.AchievementTileView {
	if previewCount <= 0 {
		previewCount = DefaultAchievementPreview
	}

	n := min(previewCount, len(achievements))
	tiles := make([]model.AchievementTileView, n)
	for i, a := range achievements[:n] {
		isEarned := earned.Has(a.ID)
		tint := a.Color
		if !isEarned {
			tint = UnearnedTint
		}
		tiles[i] = model.AchievementTileView{
			ID:            a.ID,
			Name:          a.Name,
			Description:   a.Description,
			Symbol:        a.Symbol,
			SymbolIsImage: a.SymbolIsImage(),
			Color:         a.Color,
			Tint:          tint,
			Earned:        isEarned,
			Dimmed:        !isEarned,
		}
	}
	return tiles
}

// CountEarned counts the listed achievements present in earned.
func CountEarned(achievements []model.Achievement, earned model.EarnedSet) int {
	count := 0
	for _, a := range achievements {
		if earned.Has(a.ID) {
			count++
		}
	}
	return count
}
