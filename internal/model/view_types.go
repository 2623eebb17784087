package model

// ProgressSummary aggregate counters owned by the progress subsystem
type ProgressSummary struct {
	Streak         int `json:"streak" binding:"min=0"`
	Points         int `json:"points" binding:"min=0"`
	CompletedCount int `json:"completedCount" binding:"min=0"`
}

// LessonCardView lesson card on the dashboard
type LessonCardView struct {
	ID         string     `json:"id"`
	Title      string     `json:"title"`
	Progress   int        `json:"progress"`
	Difficulty Difficulty `json:"difficulty"`
	Color      string     `json:"color"`
}

// LearningStepView one step of the learning path
type LearningStepView struct {
	Step      int    `json:"step"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
	Color     string `json:"color"`
}

// AchievementTileView achievement preview tile
type AchievementTileView struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Description   string `json:"description"`
	Symbol        string `json:"symbol"`
	SymbolIsImage bool   `json:"symbolIsImage"`
	Color         string `json:"color"`
	Tint          string `json:"tint"`
	Earned        bool   `json:"earned"`
	Dimmed        bool   `json:"dimmed"`
}
