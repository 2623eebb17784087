package model

import (
	"encoding/json"
	"math"
)

type Category string

const (
	CategoryFinance       Category = "finance"
	CategoryAI            Category = "ai"
	CategoryMath          Category = "math"
	CategoryBrainstorming Category = "brainstorming"
	CategorySoftSkills    Category = "soft-skills"
)

// DefaultCategories is the allow-list of module types shown on the children dashboard.
var DefaultCategories = []Category{
	CategoryFinance,
	CategoryAI,
	CategoryMath,
	CategoryBrainstorming,
	CategorySoftSkills,
}

// CategorySet is an exact-match, case-sensitive set of categories.
type CategorySet map[Category]struct{}

func NewCategorySet(categories ...Category) CategorySet {
	set := make(CategorySet, len(categories))
	for _, c := range categories {
		set[c] = struct{}{}
	}
	return set
}

func (s CategorySet) Contains(c Category) bool {
	_, ok := s[c]
	return ok
}

type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// ParseDifficulty maps absent or unrecognised values to Easy.
func ParseDifficulty(s string) Difficulty {
	switch Difficulty(s) {
	case DifficultyMedium:
		return DifficultyMedium
	case DifficultyHard:
		return DifficultyHard
	default:
		return DifficultyEasy
	}
}

func (d *Difficulty) UnmarshalJSON(b []byte) error {
	var raw *string
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	if raw == nil {
		*d = DifficultyEasy
		return nil
	}
	*d = ParseDifficulty(*raw)
	return nil
}

// CompletionThreshold is the percentage a module must exceed to count as completed.
const CompletionThreshold = 80

type UserProgress struct {
	Percentage float64 `json:"percentage"`
}

// ClampedPercentage returns the percentage bounded to [0, 100].
func (p *UserProgress) ClampedPercentage() float64 {
	if p == nil || math.IsNaN(p.Percentage) {
		return 0
	}
	return math.Min(100, math.Max(0, p.Percentage))
}

// Completed is the one completion rule used across the dashboard.
func (p *UserProgress) Completed() bool {
	return p.ClampedPercentage() > CompletionThreshold
}

type Topic struct {
	ID    string `json:"_id"`
	Title string `json:"title"`
}

type Module struct {
	ID           string        `json:"_id"`
	Title        string        `json:"title"`
	Category     Category      `json:"moduleType"`
	Topics       []Topic       `json:"topics"`
	Difficulty   Difficulty    `json:"difficulty"`
	UserProgress *UserProgress `json:"userProgress,omitempty"`
}

// EffectiveDifficulty covers modules decoded without a difficulty field.
func (m Module) EffectiveDifficulty() Difficulty {
	if m.Difficulty == "" {
		return DifficultyEasy
	}
	return m.Difficulty
}

// ModuleCollection keeps server order.
type ModuleCollection []Module

func (c ModuleCollection) Clone() ModuleCollection {
	if c == nil {
		return nil
	}
	out := make(ModuleCollection, len(c))
	for i, m := range c {
		if m.Topics != nil {
			m.Topics = append([]Topic(nil), m.Topics...)
		}
		if m.UserProgress != nil {
			p := *m.UserProgress
			m.UserProgress = &p
		}
		out[i] = m
	}
	return out
}
