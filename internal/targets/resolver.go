// Package targets finds the goals that apply to a branch or coordinator and
// creates new ones.
package targets

import (
	"context"
	"fmt"
	"time"

	"salesperf-backend/internal/models"
	"salesperf-backend/internal/period"
	"salesperf-backend/internal/store"
)

// Scope names the single owner of a target: a branch or a coordinator.
type Scope struct {
	BranchID      *uint
	CoordinatorID *uint
}

func BranchScope(id uint) Scope      { return Scope{BranchID: &id} }
func CoordinatorScope(id uint) Scope { return Scope{CoordinatorID: &id} }

func (s Scope) filter() store.TargetFilter {
	if s.BranchID != nil {
		return store.TargetFilter{BranchID: s.BranchID, BranchOnly: true}
	}
	return store.TargetFilter{CoordinatorID: s.CoordinatorID, CoordinatorOnly: true}
}

type Resolver struct {
	repo store.Repository
}

func NewResolver(repo store.Repository) *Resolver {
	return &Resolver{repo: repo}
}

// Current returns the newest target of typ active at asOf, or nil.
func (r *Resolver) Current(ctx context.Context, s Scope, typ models.TargetType, asOf time.Time) (*models.Target, error) {
	f := s.filter()
	f.Type = typ
	f.ActiveAt = &asOf
	found, err := r.repo.FindTargets(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("find current %s target: %w", typ, err)
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// InWindow returns every target whose window intersects w, newest first. An
// empty typ matches both types.
func (r *Resolver) InWindow(ctx context.Context, s Scope, typ models.TargetType, w period.Window) ([]models.Target, error) {
	f := s.filter()
	f.Type = typ
	f.Overlaps = &w
	found, err := r.repo.FindTargets(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("find targets in window: %w", err)
	}
	return found, nil
}

// Achievement is achieved as a percentage of amount, unclamped. It is 0 when
// there is no positive amount to measure against.
func Achievement(achieved, amount float64) float64 {
	if amount <= 0 {
		return 0
	}
	return achieved / amount * 100
}

// AmountOf returns the amount of t, or 0 for no target.
func AmountOf(t *models.Target) float64 {
	if t == nil {
		return 0
	}
	return t.Amount
}

// SumAmounts totals the amounts of ts.
func SumAmounts(ts []models.Target) float64 {
	var sum float64
	for _, t := range ts {
		sum += t.Amount
	}
	return sum
}

// First returns the first target of typ in ts, or nil.
func First(ts []models.Target, typ models.TargetType) *models.Target {
	for i := range ts {
		if ts[i].TargetType == typ {
			return &ts[i]
		}
	}
	return nil
}
