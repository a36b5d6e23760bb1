package dashboard

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"salesperf-backend/internal/access"
	"salesperf-backend/internal/aggregate"
	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/period"
	"salesperf-backend/internal/store"
	"salesperf-backend/internal/targets"
)

const notAvailable = "N/A"

// ParseReportPeriod accepts monthly or ytd. An empty value means monthly.
func ParseReportPeriod(s string) (period.Token, error) {
	if s == "" {
		return period.Monthly, nil
	}
	tok, ok := period.Parse(s, period.Monthly, period.YTD)
	if !ok {
		return "", apperr.Invalid("period must be one of monthly, ytd")
	}
	return tok, nil
}

type PeriodInfo struct {
	Type      period.Token `json:"type"`
	Year      int          `json:"year"`
	Month     int          `json:"month"`
	MonthName string       `json:"monthName"`
	StartDate time.Time    `json:"startDate"`
	EndDate   time.Time    `json:"endDate"`
}

func periodInfo(tok period.Token, w period.Window, now time.Time) PeriodInfo {
	return PeriodInfo{
		Type:      tok,
		Year:      now.Year(),
		Month:     int(now.Month()),
		MonthName: now.Month().String(),
		StartDate: w.Start,
		EndDate:   w.End,
	}
}

type AdminReport struct {
	TotalSales          float64       `json:"totalSales"`
	AvgMonthlySales     int64         `json:"avgMonthlySales"`
	TopPerformingBranch BranchSales   `json:"topPerformingBranch"`
	NewRegistrations    int64         `json:"newRegistrations"`
	BranchSalesForChart []BranchSales `json:"branchSalesForChart"`
	LastUpdated         time.Time     `json:"lastUpdated"`
	Period              PeriodInfo    `json:"period"`
}

// AdminReport covers every branch over tok's window.
func (a *Assembler) AdminReport(ctx context.Context, actor *models.User, tok period.Token) (*AdminReport, error) {
	if !access.CanPerform(actor.Role, access.OpViewReport, access.ScopeGlobal) {
		return nil, apperr.Forbidden("admin access required")
	}
	now := a.clock()
	w := period.Resolve(tok, now)

	var (
		totals   aggregate.Row
		months   []aggregate.Bucket
		byBranch []aggregate.Row
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = a.engine.Totals(gctx, w, aggregate.Filter{})
		return err
	})
	g.Go(func() (err error) {
		months, err = a.engine.MonthlyTotals(gctx, w, aggregate.Filter{})
		return err
	})
	g.Go(func() (err error) {
		byBranch, err = a.engine.Aggregate(gctx, aggregate.Query{
			Window: w, GroupBy: store.GroupByBranch, Metric: aggregate.MetricSales,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, failed(err, "admin report")
	}

	chart := branchSales(byBranch)
	top := BranchSales{BranchName: notAvailable}
	if len(chart) > 0 {
		top = chart[0]
	}
	return &AdminReport{
		TotalSales:          totals.Sales,
		AvgMonthlySales:     roundInt(aggregate.MeanSales(months)),
		TopPerformingBranch: top,
		NewRegistrations:    totals.Registrations,
		BranchSalesForChart: chart,
		LastUpdated:         now,
		Period:              periodInfo(tok, w, now),
	}, nil
}

type TopAgent struct {
	Name  string  `json:"name"`
	Sales float64 `json:"sales"`
}

type AgentSales struct {
	ID         uint    `json:"_id"`
	AgentName  string  `json:"agentName"`
	TotalSales float64 `json:"totalSales"`
}

type ManagerReport struct {
	BranchSales           float64      `json:"branchSales"`
	TopAgent              TopAgent     `json:"topAgent"`
	TargetAchievement     float64      `json:"targetAchievement"`
	BranchTarget          float64      `json:"branchTarget"`
	NewRegistrations      int64        `json:"newRegistrations"`
	AgentPerformanceChart []AgentSales `json:"agentPerformanceChart"`
	LastUpdated           time.Time    `json:"lastUpdated"`
	Period                PeriodInfo   `json:"period"`
}

// ManagerReport covers one branch. The target compared against is the sales
// target active right now, whatever the window.
func (a *Assembler) ManagerReport(ctx context.Context, actor *models.User, tok period.Token, requested *uint) (*ManagerReport, error) {
	if !access.CanPerform(actor.Role, access.OpViewReport, access.ScopeBranch) {
		return nil, apperr.Forbidden("branch manager access required")
	}
	branchID, err := access.BranchOf(actor, requested)
	if err != nil {
		return nil, err
	}
	now := a.clock()
	w := period.Resolve(tok, now)

	var (
		totals  aggregate.Row
		byAgent []aggregate.Row
		current *models.Target
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = a.engine.Totals(gctx, w, aggregate.Branch(branchID))
		return err
	})
	g.Go(func() (err error) {
		byAgent, err = a.engine.Aggregate(gctx, aggregate.Query{
			Window: w, Filter: aggregate.Branch(branchID), GroupBy: store.GroupByAgent, Metric: aggregate.MetricSales,
		})
		return err
	})
	g.Go(func() (err error) {
		current, err = a.targets.Current(gctx, targets.BranchScope(branchID), models.TargetSales, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, failed(err, "manager report")
	}

	chart := make([]AgentSales, len(byAgent))
	for i, r := range byAgent {
		chart[i] = AgentSales{ID: r.ID, AgentName: r.Name, TotalSales: r.Sales}
	}
	top := TopAgent{Name: notAvailable}
	if len(byAgent) > 0 {
		top = TopAgent{Name: byAgent[0].Name, Sales: byAgent[0].Sales}
	}
	amount := targets.AmountOf(current)
	return &ManagerReport{
		BranchSales:           totals.Sales,
		TopAgent:              top,
		TargetAchievement:     round1(targets.Achievement(totals.Sales, amount)),
		BranchTarget:          amount,
		NewRegistrations:      totals.Registrations,
		AgentPerformanceChart: chart,
		LastUpdated:           now,
		Period:                periodInfo(tok, w, now),
	}, nil
}

type AgentPerformance struct {
	ID                 uint    `json:"_id"`
	AgentName          string  `json:"agentName"`
	TotalSales         float64 `json:"totalSales"`
	TotalRegistrations int64   `json:"totalRegistrations"`
}

type CoordinatorReport struct {
	TeamSales                 float64            `json:"teamSales"`
	TopAgentInTeam            AgentPerformance   `json:"topAgentInTeam"`
	TeamAchievementPercentage int64              `json:"teamAchievementPercentage"`
	NewRegistrations          int64              `json:"newRegistrations"`
	AgentPerformanceData      []AgentPerformance `json:"agentPerformanceData"`
	CurrentTarget             float64            `json:"currentTarget"`
	LastUpdated               time.Time          `json:"lastUpdated"`
	Period                    PeriodInfo         `json:"period"`
}

// CoordinatorReport covers the records the coordinator entered.
func (a *Assembler) CoordinatorReport(ctx context.Context, actor *models.User, tok period.Token) (*CoordinatorReport, error) {
	if !access.CanPerform(actor.Role, access.OpViewReport, access.ScopeTeam) {
		return nil, apperr.Forbidden("coordinator access required")
	}
	if !actor.HasBranch() {
		return nil, apperr.UnassignedScope("coordinator is not assigned to a branch")
	}
	now := a.clock()
	w := period.Resolve(tok, now)
	team := aggregate.Coordinator(actor.ID)

	var (
		totals  aggregate.Row
		byAgent []aggregate.Row
		current *models.Target
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		totals, err = a.engine.Totals(gctx, w, team)
		return err
	})
	g.Go(func() (err error) {
		byAgent, err = a.engine.Aggregate(gctx, aggregate.Query{
			Window: w, Filter: team, GroupBy: store.GroupByAgent, Metric: aggregate.MetricSales,
		})
		return err
	})
	g.Go(func() (err error) {
		current, err = a.targets.Current(gctx, targets.CoordinatorScope(actor.ID), models.TargetSales, now)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, failed(err, "coordinator report")
	}

	data := make([]AgentPerformance, len(byAgent))
	for i, r := range byAgent {
		data[i] = AgentPerformance{ID: r.ID, AgentName: r.Name, TotalSales: r.Sales, TotalRegistrations: r.Registrations}
	}
	top := AgentPerformance{AgentName: notAvailable}
	if len(data) > 0 {
		top = data[0]
	}
	amount := targets.AmountOf(current)
	return &CoordinatorReport{
		TeamSales:                 totals.Sales,
		TopAgentInTeam:            top,
		TeamAchievementPercentage: roundInt(targets.Achievement(totals.Sales, amount)),
		NewRegistrations:          totals.Registrations,
		AgentPerformanceData:      data,
		CurrentTarget:             amount,
		LastUpdated:               now,
		Period:                    periodInfo(tok, w, now),
	}, nil
}
