// Package dashboard composes aggregates and targets into the role-specific
// summaries behind the dashboard and report pages.
//
// Every summary fans its independent lookups out concurrently and fails as a
// whole if any one of them fails.
package dashboard

import (
	"context"

	"github.com/shopspring/decimal"

	"salesperf-backend/internal/aggregate"
	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/period"
	"salesperf-backend/internal/store"
	"salesperf-backend/internal/targets"
)

type Assembler struct {
	repo    store.Repository
	engine  *aggregate.Engine
	targets *targets.Resolver
	clock   period.Clock
}

func NewAssembler(repo store.Repository, engine *aggregate.Engine, resolver *targets.Resolver, clock period.Clock) *Assembler {
	return &Assembler{repo: repo, engine: engine, targets: resolver, clock: clock}
}

// round1 rounds a percentage to one decimal place for display.
func round1(v float64) float64 {
	return decimal.NewFromFloat(v).Round(1).InexactFloat64()
}

func roundInt(v float64) int64 {
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

// coordinatorTargets sums the coordinator-scoped sales targets lying wholly
// inside w, keyed by the owning user id. A target spanning several months
// counts toward none of them.
func (a *Assembler) coordinatorTargets(ctx context.Context, w period.Window) (map[uint]float64, error) {
	found, err := a.repo.FindTargets(ctx, store.TargetFilter{
		CoordinatorOnly: true,
		Type:            models.TargetSales,
		Within:          &w,
	})
	if err != nil {
		return nil, err
	}
	sums := make(map[uint]float64, len(found))
	for _, t := range found {
		sums[*t.CoordinatorID] += t.Amount
	}
	return sums, nil
}

// failed wraps a fan-out failure. Classified errors pass through unchanged.
func failed(err error, what string) error {
	if _, ok := apperr.As(err); ok {
		return err
	}
	return apperr.Internal(err, "failed to fetch "+what)
}
