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

type CoordinatorPerformance struct {
	ID                         uint    `json:"_id"`
	Name                       string  `json:"name"`
	Email                      string  `json:"email"`
	MonthlySalesTarget         float64 `json:"monthlySalesTarget"`
	MonthlySales               float64 `json:"monthlySales"`
	MonthlyRegistrations       int64   `json:"monthlyRegistrations"`
	SalesAchievementPercentage float64 `json:"salesAchievementPercentage"`
}

type ManagerSummary struct {
	BranchID                       uint                     `json:"branchId"`
	BranchTargets                  []targets.Response       `json:"branchTargets"`
	SalesThisMonth                 float64                  `json:"salesThisMonth"`
	RegistrationsThisMonth         int64                    `json:"registrationsThisMonth"`
	SalesProgressPercentage        float64                  `json:"salesProgressPercentage"`
	RegistrationProgressPercentage float64                  `json:"registrationProgressPercentage"`
	CoordinatorPerformance         []CoordinatorPerformance `json:"coordinatorPerformance"`
	TopCoordinator                 *CoordinatorPerformance  `json:"topCoordinator"`

	// BranchRank is 1-based. A branch with no sales this month is placed
	// after every ranked branch and Ranked is false.
	BranchRank    int  `json:"branchRank"`
	Ranked        bool `json:"ranked"`
	TotalBranches int  `json:"totalBranches"`
}

// ManagerDashboard summarises the current month for one branch. Admins name
// the branch with requested.
func (a *Assembler) ManagerDashboard(ctx context.Context, actor *models.User, requested *uint) (*ManagerSummary, error) {
	if !access.CanPerform(actor.Role, access.OpViewManagerDashboard, access.ScopeBranch) {
		return nil, apperr.Forbidden("branch manager access required")
	}
	branchID, err := access.BranchOf(actor, requested)
	if err != nil {
		return nil, err
	}
	month := period.Resolve(period.Monthly, a.clock())

	var (
		branchTargets []models.Target
		totals        aggregate.Row
		coordinators  []models.User
		byCoordinator []aggregate.Row
		coordTargets  map[uint]float64
		ranking       []aggregate.Row
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		branchTargets, err = a.targets.InWindow(gctx, targets.BranchScope(branchID), "", month)
		return err
	})
	g.Go(func() (err error) {
		totals, err = a.engine.Totals(gctx, month, aggregate.Branch(branchID))
		return err
	})
	g.Go(func() (err error) {
		coordinators, err = a.repo.ListUsers(gctx, store.UserFilter{BranchID: &branchID, Role: models.RoleCoordinator})
		return err
	})
	g.Go(func() (err error) {
		byCoordinator, err = a.engine.Aggregate(gctx, aggregate.Query{
			Window: month, GroupBy: store.GroupByCoordinator, Metric: aggregate.MetricSales,
		})
		return err
	})
	g.Go(func() (err error) {
		coordTargets, err = a.coordinatorTargets(gctx, month)
		return err
	})
	g.Go(func() (err error) {
		ranking, err = a.engine.Aggregate(gctx, aggregate.Query{
			Window: month, GroupBy: store.GroupByBranch, Metric: aggregate.MetricSales,
		})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, failed(err, "manager dashboard")
	}

	sold := make(map[uint]aggregate.Row, len(byCoordinator))
	for _, r := range byCoordinator {
		sold[r.ID] = r
	}
	perf := make([]CoordinatorPerformance, len(coordinators))
	for i, c := range coordinators {
		r := sold[c.ID]
		target := coordTargets[c.ID]
		perf[i] = CoordinatorPerformance{
			ID:                         c.ID,
			Name:                       c.Name,
			Email:                      c.Email,
			MonthlySalesTarget:         target,
			MonthlySales:               r.Sales,
			MonthlyRegistrations:       r.Registrations,
			SalesAchievementPercentage: round1(targets.Achievement(r.Sales, target)),
		}
	}
	sort.SliceStable(perf, func(i, j int) bool {
		return perf[i].SalesAchievementPercentage > perf[j].SalesAchievementPercentage
	})

	salesGoal := targets.AmountOf(targets.First(branchTargets, models.TargetSales))
	registrationGoal := targets.AmountOf(targets.First(branchTargets, models.TargetRegistration))
	summary := &ManagerSummary{
		BranchID:                       branchID,
		BranchTargets:                  targets.ToResponses(branchTargets),
		SalesThisMonth:                 totals.Sales,
		RegistrationsThisMonth:         totals.Registrations,
		SalesProgressPercentage:        round1(targets.Achievement(totals.Sales, salesGoal)),
		RegistrationProgressPercentage: round1(targets.Achievement(float64(totals.Registrations), registrationGoal)),
		CoordinatorPerformance:         perf,
		TotalBranches:                  len(ranking),
	}
	if len(perf) > 0 {
		summary.TopCoordinator = &perf[0]
	}
	if rank, ok := aggregate.Rank(ranking, branchID); ok {
		summary.BranchRank, summary.Ranked = rank, true
	} else {
		summary.BranchRank = len(ranking) + 1
	}
	return summary, nil
}

type CoordinatorRef struct {
	ID    uint        `json:"_id"`
	Name  string      `json:"name"`
	Email string      `json:"email"`
	Role  models.Role `json:"role"`
}

type ManagerTargetsPage struct {
	AdminTargets         []targets.Response `json:"adminTargets"`
	CoordinatorsInBranch []CoordinatorRef   `json:"coordinatorsInBranch"`
}

// ManagerTargets lists every target set on the branch together with the
// coordinators a manager may assign targets to.
func (a *Assembler) ManagerTargets(ctx context.Context, actor *models.User, requested *uint) (*ManagerTargetsPage, error) {
	if !access.CanPerform(actor.Role, access.OpViewManagerTargetsPage, access.ScopeBranch) {
		return nil, apperr.Forbidden("branch manager access required")
	}
	branchID, err := access.BranchOf(actor, requested)
	if err != nil {
		return nil, err
	}

	var (
		branchTargets []models.Target
		coordinators  []models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		branchTargets, err = a.repo.FindTargets(gctx, store.TargetFilter{BranchID: &branchID, BranchOnly: true})
		return err
	})
	g.Go(func() (err error) {
		coordinators, err = a.repo.ListUsers(gctx, store.UserFilter{BranchID: &branchID, Role: models.RoleCoordinator})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, failed(err, "targets page")
	}

	refs := make([]CoordinatorRef, len(coordinators))
	for i, c := range coordinators {
		refs[i] = CoordinatorRef{ID: c.ID, Name: c.Name, Email: c.Email, Role: c.Role}
	}
	return &ManagerTargetsPage{
		AdminTargets:         targets.ToResponses(branchTargets),
		CoordinatorsInBranch: refs,
	}, nil
}
