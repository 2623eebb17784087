package service

import "mindora_hub/internal/model"

// ModuleFetchResult is the outcome of one module fetch.
type ModuleFetchResult struct {
	Modules model.ModuleCollection
	Err     error
}

// Reconciler decides what part of a fetch is eligible for display. It is pure:
// fallback substitution happens when views are built, not here.
type Reconciler struct{}

func NewReconciler() *Reconciler {
	return &Reconciler{}
}

// Reconcile returns an empty collection for a failed fetch. Otherwise it keeps
// modules whose category is allowed, dropping repeated ids after the first,
// in server order.
func (r *Reconciler) Reconcile(result ModuleFetchResult, allowed model.CategorySet) model.ModuleCollection {
	if result.Err != nil {
		return model.ModuleCollection{}
	}

	out := make(model.ModuleCollection, 0, len(result.Modules))
	seen := make(map[string]struct{}, len(result.Modules))
	for _, m := range result.Modules {
		if !allowed.Contains(m.Category) {
			continue
		}
		if _, dup := seen[m.ID]; dup {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	return out
}
