package repository

import (
	"mindora_hub/internal/model"
	"sync/atomic"
)

// ProgressRepository keeps the summary published by the progress subsystem.
type ProgressRepository struct {
	summary atomic.Pointer[model.ProgressSummary]
}

func NewProgressRepository() *ProgressRepository {
	r := &ProgressRepository{}
	r.summary.Store(&model.ProgressSummary{})
	return r
}

func (r *ProgressRepository) Replace(summary model.ProgressSummary) {
	r.summary.Store(&summary)
}

func (r *ProgressRepository) Current() model.ProgressSummary {
	return *r.summary.Load()
}
