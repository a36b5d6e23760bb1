// Package leaderboard ranks agents, coordinators or branches by sales or
// registrations over a calendar period.
package leaderboard

import (
	"context"

	"salesperf-backend/internal/access"
	"salesperf-backend/internal/aggregate"
	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/period"
	"salesperf-backend/internal/store"
)

type Kind string

const (
	KindAgents       Kind = "agents"
	KindCoordinators Kind = "coordinators"
	KindBranches     Kind = "branches"
)

func (k Kind) groupBy() store.GroupBy {
	switch k {
	case KindAgents:
		return store.GroupByAgent
	case KindCoordinators:
		return store.GroupByCoordinator
	}
	return store.GroupByBranch
}

type Params struct {
	Kind   Kind
	Metric aggregate.Metric
	Period period.Token
}

// ParseParams validates the three query values. All of them are required.
func ParseParams(kind, metric, per string) (Params, error) {
	if kind == "" || metric == "" || per == "" {
		return Params{}, apperr.Invalid("missing required parameters: type, metric and period are required")
	}
	var p Params
	switch k := Kind(kind); k {
	case KindAgents, KindCoordinators, KindBranches:
		p.Kind = k
	default:
		return Params{}, apperr.Invalid("invalid type, must be one of: agents, coordinators, branches")
	}
	m, ok := aggregate.ParseMetric(metric)
	if !ok {
		return Params{}, apperr.Invalid("invalid metric, must be one of: sales, registrations")
	}
	p.Metric = m
	tok, ok := period.Parse(per, period.Weekly, period.Monthly, period.Yearly)
	if !ok {
		return Params{}, apperr.Invalid("invalid period, must be one of: weekly, monthly, yearly")
	}
	p.Period = tok
	return p, nil
}

type Entry struct {
	ID               uint    `json:"_id"`
	Name             string  `json:"name"`
	TotalPerformance float64 `json:"totalPerformance"`
	Rank             int     `json:"rank"`
}

type Service struct {
	engine *aggregate.Engine
	clock  period.Clock
}

func NewService(engine *aggregate.Engine, clock period.Clock) *Service {
	return &Service{engine: engine, clock: clock}
}

// Rank returns every group with records in the period, best first. Ranks are
// positions, so tied totals still get distinct ranks.
func (s *Service) Rank(ctx context.Context, actor *models.User, p Params) ([]Entry, error) {
	if !access.CanPerform(actor.Role, access.OpViewLeaderboard, access.ScopeGlobal) {
		return nil, apperr.Forbidden("leaderboard is not available for this role")
	}
	rows, err := s.engine.Aggregate(ctx, aggregate.Query{
		Window:  period.Resolve(p.Period, s.clock()),
		GroupBy: p.Kind.groupBy(),
		Metric:  p.Metric,
	})
	if err != nil {
		return nil, apperr.Internal(err, "failed to fetch leaderboard data")
	}
	entries := make([]Entry, len(rows))
	for i, r := range rows {
		entries[i] = Entry{
			ID:               r.ID,
			Name:             r.Name,
			TotalPerformance: r.Value(p.Metric),
			Rank:             i + 1,
		}
	}
	return entries, nil
}
