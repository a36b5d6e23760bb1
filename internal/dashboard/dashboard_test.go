package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"salesperf-backend/internal/aggregate"
	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/period"
	"salesperf-backend/internal/sales"
	"salesperf-backend/internal/store"
	"salesperf-backend/internal/targets"
)

var now = time.Date(2024, time.March, 20, 12, 0, 0, 0, time.UTC)

type env struct {
	mem        *store.Memory
	asm        *Assembler
	sales      *sales.Service
	targets    *targets.Service
	b1, b2, b3 models.Branch
	admin      models.User
	manager    models.User
	idle       models.User
	coord      models.User
	coord2     models.User
	quiet      models.User
	agent      models.User
	agent2     models.User
	agent3     models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{mem: store.NewMemory()}
	e.b1 = models.Branch{Name: "B1"}
	e.b2 = models.Branch{Name: "B2"}
	e.b3 = models.Branch{Name: "B3"}
	for _, b := range []*models.Branch{&e.b1, &e.b2, &e.b3} {
		e.mem.PutBranch(b)
	}
	b1, b2, b3 := e.b1.ID, e.b2.ID, e.b3.ID

	e.admin = models.User{Name: "Ada", Email: "ada@x.io", Role: models.RoleAdmin}
	e.manager = models.User{Name: "Max", Email: "max@x.io", Role: models.RoleBranchManager, BranchID: &b1}
	e.idle = models.User{Name: "Ida", Email: "ida@x.io", Role: models.RoleBranchManager, BranchID: &b3}
	e.coord = models.User{Name: "Cem", Email: "cem@x.io", Role: models.RoleCoordinator, BranchID: &b1}
	e.quiet = models.User{Name: "Qin", Email: "qin@x.io", Role: models.RoleCoordinator, BranchID: &b1}
	e.coord2 = models.User{Name: "Can", Email: "can@x.io", Role: models.RoleCoordinator, BranchID: &b2}
	e.agent = models.User{Name: "Ali", Email: "ali@x.io", Role: models.RoleAgent, BranchID: &b1}
	e.agent2 = models.User{Name: "Ayse", Email: "ayse@x.io", Role: models.RoleAgent, BranchID: &b1}
	e.agent3 = models.User{Name: "Ahu", Email: "ahu@x.io", Role: models.RoleAgent, BranchID: &b2}
	for _, u := range []*models.User{&e.admin, &e.manager, &e.idle, &e.coord, &e.quiet, &e.coord2, &e.agent, &e.agent2, &e.agent3} {
		e.mem.PutUser(u)
	}

	log := zap.NewNop()
	e.sales = sales.NewService(e.mem, sales.NewValidator(e.mem), sales.NewWriter(e.mem, time.UTC, log))
	e.targets = targets.NewService(e.mem, log)
	e.asm = NewAssembler(e.mem, aggregate.NewEngine(e.mem), targets.NewResolver(e.mem), period.Fixed(now))
	return e
}

func (e *env) sell(t *testing.T, coord, agent models.User, date string, amount, regs float64) {
	t.Helper()
	_, err := e.sales.Create(context.Background(), &coord, agent.ID, sales.Entry{
		Date: date, SalesAmount: &amount, NewRegistrations: &regs,
	})
	require.NoError(t, err)
}

func marchTarget(typ models.TargetType, amount float64) targets.Input {
	return targets.Input{
		Type:        typ,
		Amount:      amount,
		Start:       time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		End:         time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC),
		EndDateOnly: true,
	}
}

func codeOf(t *testing.T, err error) apperr.Code {
	t.Helper()
	require.Error(t, err)
	return apperr.CodeOf(err)
}

func TestCoordinatorReportForTeam(t *testing.T) {
	e := newEnv(t)
	e.sell(t, e.coord, e.agent, "2024-03-15", 500, 2)
	// another coordinator's record in the same branch stays out of the team
	e.sell(t, e.quiet, e.agent2, "2024-03-16", 900, 1)

	r, err := e.asm.CoordinatorReport(context.Background(), &e.coord, period.Monthly)
	require.NoError(t, err)

	assert.Equal(t, 500.0, r.TeamSales)
	assert.EqualValues(t, 2, r.NewRegistrations)
	assert.Equal(t, "Ali", r.TopAgentInTeam.AgentName)
	assert.Equal(t, 500.0, r.TopAgentInTeam.TotalSales)
	require.Len(t, r.AgentPerformanceData, 1)
	assert.Equal(t, period.Monthly, r.Period.Type)
	assert.Equal(t, "March", r.Period.MonthName)
	assert.Equal(t, time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC), r.Period.StartDate)
}

func TestCoordinatorReportAchievementAndDefaults(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	r, err := e.asm.CoordinatorReport(ctx, &e.coord, period.Monthly)
	require.NoError(t, err)
	assert.Equal(t, notAvailable, r.TopAgentInTeam.AgentName)
	assert.Zero(t, r.TopAgentInTeam.TotalSales)
	assert.Empty(t, r.AgentPerformanceData)
	assert.Zero(t, r.TeamAchievementPercentage)

	_, err = e.targets.SetCoordinatorTarget(ctx, &e.manager, e.coord.ID, marchTarget(models.TargetSales, 300))
	require.NoError(t, err)
	e.sell(t, e.coord, e.agent, "2024-03-15", 100, 0)

	r, err = e.asm.CoordinatorReport(ctx, &e.coord, period.Monthly)
	require.NoError(t, err)
	assert.Equal(t, 300.0, r.CurrentTarget)
	// 33.33 rounds to a whole percentage
	assert.EqualValues(t, 33, r.TeamAchievementPercentage)
}

func TestManagerDashboardProgress(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.targets.SetBranchTarget(ctx, &e.admin, e.b1.ID, marchTarget(models.TargetSales, 1000))
	require.NoError(t, err)
	e.sell(t, e.coord, e.agent, "2024-03-15", 500, 2)

	s, err := e.asm.ManagerDashboard(ctx, &e.manager, nil)
	require.NoError(t, err)

	assert.Equal(t, e.b1.ID, s.BranchID)
	assert.Equal(t, 50.0, s.SalesProgressPercentage)
	assert.Zero(t, s.RegistrationProgressPercentage)
	assert.Equal(t, 500.0, s.SalesThisMonth)
	assert.EqualValues(t, 2, s.RegistrationsThisMonth)
	require.Len(t, s.BranchTargets, 1)
	assert.Equal(t, 1000.0, s.BranchTargets[0].Amount)
}

func TestManagerDashboardCoordinatorPerformance(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.targets.SetCoordinatorTarget(ctx, &e.manager, e.coord.ID, marchTarget(models.TargetSales, 400))
	require.NoError(t, err)
	e.sell(t, e.coord, e.agent, "2024-03-15", 100, 1)

	s, err := e.asm.ManagerDashboard(ctx, &e.manager, nil)
	require.NoError(t, err)

	// both coordinators of the branch are listed, the one without sales as zero
	require.Len(t, s.CoordinatorPerformance, 2)
	assert.Equal(t, e.coord.ID, s.CoordinatorPerformance[0].ID)
	assert.Equal(t, 25.0, s.CoordinatorPerformance[0].SalesAchievementPercentage)
	assert.Equal(t, 400.0, s.CoordinatorPerformance[0].MonthlySalesTarget)
	assert.Equal(t, e.quiet.ID, s.CoordinatorPerformance[1].ID)
	assert.Zero(t, s.CoordinatorPerformance[1].MonthlySales)
	require.NotNil(t, s.TopCoordinator)
	assert.Equal(t, "Cem", s.TopCoordinator.Name)
}

func TestManagerDashboardBranchRank(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.sell(t, e.coord, e.agent, "2024-03-10", 300, 0)
	e.sell(t, e.coord2, e.agent3, "2024-03-11", 700, 0)

	s, err := e.asm.ManagerDashboard(ctx, &e.manager, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.BranchRank)
	assert.True(t, s.Ranked)
	assert.Equal(t, 2, s.TotalBranches)

	s, err = e.asm.ManagerDashboard(ctx, &e.idle, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, s.BranchRank)
	assert.False(t, s.Ranked)
	assert.Equal(t, 2, s.TotalBranches)
	assert.Nil(t, s.TopCoordinator)
}

func TestManagerDashboardScope(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.sell(t, e.coord2, e.agent3, "2024-03-11", 700, 0)

	b2 := e.b2.ID
	s, err := e.asm.ManagerDashboard(ctx, &e.admin, &b2)
	require.NoError(t, err)
	assert.Equal(t, 700.0, s.SalesThisMonth)
	assert.Equal(t, 1, s.BranchRank)

	// a manager cannot point the dashboard at another branch
	s, err = e.asm.ManagerDashboard(ctx, &e.manager, &b2)
	require.NoError(t, err)
	assert.Equal(t, e.b1.ID, s.BranchID)

	_, err = e.asm.ManagerDashboard(ctx, &e.admin, nil)
	assert.Equal(t, apperr.CodeValidationFailed, codeOf(t, err))

	unassigned := models.User{ID: 99, Role: models.RoleBranchManager}
	_, err = e.asm.ManagerDashboard(ctx, &unassigned, nil)
	assert.Equal(t, apperr.CodeUnassignedScope, codeOf(t, err))

	_, err = e.asm.ManagerDashboard(ctx, &e.coord, nil)
	assert.Equal(t, apperr.CodeForbidden, codeOf(t, err))
}

func TestAdminDashboard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.sell(t, e.coord, e.agent, "2024-03-10", 300, 1)
	e.sell(t, e.coord, e.agent2, "2024-03-10", 200, 0)
	e.sell(t, e.coord2, e.agent3, "2024-03-11", 700, 2)
	e.sell(t, e.coord2, e.agent3, "2024-02-28", 5000, 0)

	// agent achievement reads coordinator-scoped targets keyed by the agent id
	err := e.mem.CreateTarget(ctx, &models.Target{
		TargetType:    models.TargetSales,
		Amount:        400,
		StartDate:     time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC),
		EndDate:       period.EndOfDay(time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)),
		CoordinatorID: &e.agent2.ID,
		SetByID:       e.manager.ID,
	})
	require.NoError(t, err)

	s, err := e.asm.AdminDashboard(ctx, &e.admin)
	require.NoError(t, err)

	assert.EqualValues(t, 9, s.UserCount)
	assert.EqualValues(t, 3, s.BranchCount)
	assert.Equal(t, 1200.0, s.SalesThisMonth)
	require.Len(t, s.BranchSalesPerformance, 2)
	assert.Equal(t, "B2", s.BranchSalesPerformance[0].BranchName)
	assert.Equal(t, 700.0, s.BranchSalesPerformance[0].TotalSales)

	require.Len(t, s.TopAgents, 3)
	assert.Equal(t, e.agent2.ID, s.TopAgents[0].ID)
	assert.Equal(t, 50.0, s.TopAgents[0].AchievementPercentage)
	assert.Equal(t, 400.0, s.TopAgents[0].MonthlyTarget)
	assert.Zero(t, s.TopAgents[1].AchievementPercentage)
	// (50 + 0 + 0) / 3
	assert.Equal(t, 16.7, s.AverageAchievement)

	_, err = e.asm.AdminDashboard(ctx, &e.manager)
	assert.Equal(t, apperr.CodeForbidden, codeOf(t, err))
}

func TestAdminReport(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	r, err := e.asm.AdminReport(ctx, &e.admin, period.YTD)
	require.NoError(t, err)
	assert.Equal(t, notAvailable, r.TopPerformingBranch.BranchName)
	assert.Zero(t, r.AvgMonthlySales)
	assert.Empty(t, r.BranchSalesForChart)

	e.sell(t, e.coord, e.agent, "2024-01-05", 100, 1)
	e.sell(t, e.coord2, e.agent3, "2024-03-11", 250, 3)
	e.sell(t, e.coord2, e.agent3, "2023-12-31", 999, 0)

	r, err = e.asm.AdminReport(ctx, &e.admin, period.YTD)
	require.NoError(t, err)
	assert.Equal(t, 350.0, r.TotalSales)
	assert.EqualValues(t, 4, r.NewRegistrations)
	// two months with sales: (100 + 250) / 2 = 175
	assert.EqualValues(t, 175, r.AvgMonthlySales)
	assert.Equal(t, "B2", r.TopPerformingBranch.BranchName)
	assert.Equal(t, now, r.LastUpdated)
	assert.Equal(t, time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC), r.Period.StartDate)

	r, err = e.asm.AdminReport(ctx, &e.admin, period.Monthly)
	require.NoError(t, err)
	assert.Equal(t, 250.0, r.TotalSales)
}

func TestManagerReport(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.targets.SetBranchTarget(ctx, &e.admin, e.b1.ID, marchTarget(models.TargetSales, 800))
	require.NoError(t, err)
	e.sell(t, e.coord, e.agent, "2024-03-10", 100, 1)
	e.sell(t, e.quiet, e.agent2, "2024-03-12", 300, 0)
	e.sell(t, e.coord2, e.agent3, "2024-03-11", 700, 0)

	r, err := e.asm.ManagerReport(ctx, &e.manager, period.Monthly, nil)
	require.NoError(t, err)

	assert.Equal(t, 400.0, r.BranchSales)
	assert.Equal(t, TopAgent{Name: "Ayse", Sales: 300}, r.TopAgent)
	assert.Equal(t, 800.0, r.BranchTarget)
	assert.Equal(t, 50.0, r.TargetAchievement)
	require.Len(t, r.AgentPerformanceChart, 2)
	assert.Equal(t, e.agent2.ID, r.AgentPerformanceChart[0].ID)

	r, err = e.asm.ManagerReport(ctx, &e.idle, period.Monthly, nil)
	require.NoError(t, err)
	assert.Equal(t, TopAgent{Name: notAvailable}, r.TopAgent)
	assert.Zero(t, r.TargetAchievement)
}

func TestReportAccess(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	_, err := e.asm.AdminReport(ctx, &e.coord, period.Monthly)
	assert.Equal(t, apperr.CodeForbidden, codeOf(t, err))
	_, err = e.asm.ManagerReport(ctx, &e.agent, period.Monthly, nil)
	assert.Equal(t, apperr.CodeForbidden, codeOf(t, err))
	_, err = e.asm.CoordinatorReport(ctx, &e.manager, period.Monthly)
	assert.Equal(t, apperr.CodeForbidden, codeOf(t, err))

	floating := models.User{ID: 98, Role: models.RoleCoordinator}
	_, err = e.asm.CoordinatorReport(ctx, &floating, period.Monthly)
	assert.Equal(t, apperr.CodeUnassignedScope, codeOf(t, err))
}

func TestManagerDashboardIgnoresMultiMonthCoordinatorTargets(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.targets.SetCoordinatorTarget(ctx, &e.manager, e.coord.ID, marchTarget(models.TargetSales, 400))
	require.NoError(t, err)
	quarter := marchTarget(models.TargetSales, 1200)
	quarter.Start = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)
	_, err = e.targets.SetCoordinatorTarget(ctx, &e.manager, e.coord.ID, quarter)
	require.NoError(t, err)
	e.sell(t, e.coord, e.agent, "2024-03-15", 100, 1)

	s, err := e.asm.ManagerDashboard(ctx, &e.manager, nil)
	require.NoError(t, err)
	require.NotEmpty(t, s.CoordinatorPerformance)
	assert.Equal(t, e.coord.ID, s.CoordinatorPerformance[0].ID)
	assert.Equal(t, 400.0, s.CoordinatorPerformance[0].MonthlySalesTarget)
	assert.Equal(t, 25.0, s.CoordinatorPerformance[0].SalesAchievementPercentage)
}

func TestManagerReportForAdmin(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.sell(t, e.coord, e.agent, "2024-03-15", 500, 2)

	r, err := e.asm.ManagerReport(ctx, &e.admin, period.Monthly, &e.b1.ID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, r.BranchSales)
	assert.EqualValues(t, 2, r.NewRegistrations)
	assert.Equal(t, "Ali", r.TopAgent.Name)

	_, err = e.asm.ManagerReport(ctx, &e.admin, period.Monthly, nil)
	assert.Equal(t, apperr.CodeValidationFailed, codeOf(t, err))
}

func TestParseReportPeriod(t *testing.T) {
	tok, err := ParseReportPeriod("")
	require.NoError(t, err)
	assert.Equal(t, period.Monthly, tok)

	tok, err = ParseReportPeriod("ytd")
	require.NoError(t, err)
	assert.Equal(t, period.YTD, tok)

	for _, bad := range []string{"weekly", "yearly", "MONTHLY", "quarter"} {
		_, err := ParseReportPeriod(bad)
		assert.Equal(t, apperr.CodeValidationFailed, codeOf(t, err), bad)
	}
}

func TestManagerTargetsPage(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.targets.SetBranchTarget(ctx, &e.admin, e.b1.ID, marchTarget(models.TargetSales, 800))
	require.NoError(t, err)
	_, err = e.targets.SetBranchTarget(ctx, &e.admin, e.b2.ID, marchTarget(models.TargetSales, 900))
	require.NoError(t, err)
	_, err = e.targets.SetCoordinatorTarget(ctx, &e.manager, e.coord.ID, marchTarget(models.TargetSales, 100))
	require.NoError(t, err)

	page, err := e.asm.ManagerTargets(ctx, &e.manager, nil)
	require.NoError(t, err)
	require.Len(t, page.AdminTargets, 1)
	assert.Equal(t, 800.0, page.AdminTargets[0].Amount)
	require.Len(t, page.CoordinatorsInBranch, 2)
	assert.Equal(t, "Cem", page.CoordinatorsInBranch[0].Name)

	_, err = e.asm.ManagerTargets(ctx, &e.coord, nil)
	assert.Equal(t, apperr.CodeForbidden, codeOf(t, err))
}

type failingRepo struct {
	*store.Memory
}

func (failingRepo) SumSales(context.Context, store.SalesQuery) ([]store.GroupTotal, error) {
	return nil, errors.New("connection reset")
}

func TestSubQueryFailureFailsWholeResponse(t *testing.T) {
	e := newEnv(t)
	repo := failingRepo{e.mem}
	asm := NewAssembler(repo, aggregate.NewEngine(repo), targets.NewResolver(repo), period.Fixed(now))

	_, err := asm.AdminDashboard(context.Background(), &e.admin)
	assert.Equal(t, apperr.CodeInternal, codeOf(t, err))
	_, err = asm.ManagerDashboard(context.Background(), &e.manager, nil)
	assert.Equal(t, apperr.CodeInternal, codeOf(t, err))
	_, err = asm.CoordinatorReport(context.Background(), &e.coord, period.YTD)
	assert.Equal(t, apperr.CodeInternal, codeOf(t, err))
}
