package dashboard

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"

	"salesperf-backend/internal/access"
	"salesperf-backend/internal/aggregate"
	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/period"
	"salesperf-backend/internal/store"
	"salesperf-backend/internal/targets"
)

const topAgentCount = 5

type BranchSales struct {
	ID         uint    `json:"_id"`
	BranchName string  `json:"branchName"`
	TotalSales float64 `json:"totalSales"`
}

type AgentAchievement struct {
	ID                    uint    `json:"_id"`
	AgentName             string  `json:"agentName"`
	TotalSales            float64 `json:"totalSales"`
	TotalRegistrations    int64   `json:"totalRegistrations"`
	MonthlyTarget         float64 `json:"monthlyTarget"`
	AchievementPercentage float64 `json:"achievementPercentage"`
}

type AdminSummary struct {
	UserCount              int64              `json:"userCount"`
	BranchCount            int64              `json:"branchCount"`
	SalesThisMonth         float64            `json:"salesThisMonth"`
	AverageAchievement     float64            `json:"averageAchievement"`
	BranchSalesPerformance []BranchSales      `json:"branchSalesPerformance"`
	TopAgents              []AgentAchievement `json:"topAgents"`
}

func branchSales(rows []aggregate.Row) []BranchSales {
	out := make([]BranchSales, len(rows))
	for i, r := range rows {
		out[i] = BranchSales{ID: r.ID, BranchName: r.Name, TotalSales: r.Sales}
	}
	return out
}

// AdminDashboard summarises the current month company-wide.
func (a *Assembler) AdminDashboard(ctx context.Context, actor *models.User) (*AdminSummary, error) {
	if !access.CanPerform(actor.Role, access.OpViewAdminDashboard, access.ScopeGlobal) {
		return nil, apperr.Forbidden("admin access required")
	}
	month := period.Resolve(period.Monthly, a.clock())

	var (
		users, branches int64
		totals          aggregate.Row
		byBranch        []aggregate.Row
		byAgent         []aggregate.Row
		agentTargets    map[uint]float64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = a.repo.CountUsers(gctx)
		return err
	})
	g.Go(func() (err error) {
		branches, err = a.repo.CountBranches(gctx)
		return err
	})
	g.Go(func() (err error) {
		totals, err = a.engine.Totals(gctx, month, aggregate.Filter{})
		return err
	})
	g.Go(func() (err error) {
		byBranch, err = a.engine.Aggregate(gctx, aggregate.Query{
			Window: month, GroupBy: store.GroupByBranch, Metric: aggregate.MetricSales,
		})
		return err
	})
	g.Go(func() (err error) {
		byAgent, err = a.engine.Aggregate(gctx, aggregate.Query{
			Window: month, GroupBy: store.GroupByAgent, Metric: aggregate.MetricSales,
		})
		return err
	})
	g.Go(func() (err error) {
		agentTargets, err = a.coordinatorTargets(gctx, month)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, failed(err, "dashboard summary")
	}

	// agents are matched against coordinator-scoped targets keyed by their own
	// id, so an agent without such a target scores 0
	agents := make([]AgentAchievement, len(byAgent))
	for i, r := range byAgent {
		target := agentTargets[r.ID]
		agents[i] = AgentAchievement{
			ID:                    r.ID,
			AgentName:             r.Name,
			TotalSales:            r.Sales,
			TotalRegistrations:    r.Registrations,
			MonthlyTarget:         target,
			AchievementPercentage: targets.Achievement(r.Sales, target),
		}
	}
	sort.SliceStable(agents, func(i, j int) bool {
		return agents[i].AchievementPercentage > agents[j].AchievementPercentage
	})
	if len(agents) > topAgentCount {
		agents = agents[:topAgentCount]
	}

	var average float64
	if len(agents) > 0 {
		var sum float64
		for _, ag := range agents {
			sum += ag.AchievementPercentage
		}
		average = round1(sum / float64(len(agents)))
	}

	return &AdminSummary{
		UserCount:              users,
		BranchCount:            branches,
		SalesThisMonth:         totals.Sales,
		AverageAchievement:     average,
		BranchSalesPerformance: branchSales(byBranch),
		TopAgents:              agents,
	}, nil
}
