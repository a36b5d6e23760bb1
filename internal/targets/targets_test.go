package targets

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/period"
	"salesperf-backend/internal/store"
)

type env struct {
	mem     *store.Memory
	svc     *Service
	b1, b2  models.Branch
	admin   models.User
	manager models.User
	coord   models.User
	foreign models.User
	agent   models.User
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{mem: store.NewMemory()}
	e.b1 = models.Branch{Name: "B1"}
	e.b2 = models.Branch{Name: "B2"}
	e.mem.PutBranch(&e.b1)
	e.mem.PutBranch(&e.b2)
	b1, b2 := e.b1.ID, e.b2.ID

	e.admin = models.User{Name: "Ada", Email: "ada@x.io", Role: models.RoleAdmin}
	e.manager = models.User{Name: "Max", Email: "max@x.io", Role: models.RoleBranchManager, BranchID: &b1}
	e.coord = models.User{Name: "Cem", Email: "cem@x.io", Role: models.RoleCoordinator, BranchID: &b1}
	e.foreign = models.User{Name: "Fay", Email: "fay@x.io", Role: models.RoleCoordinator, BranchID: &b2}
	e.agent = models.User{Name: "Ali", Email: "ali@x.io", Role: models.RoleAgent, BranchID: &b1}
	for _, u := range []*models.User{&e.admin, &e.manager, &e.coord, &e.foreign, &e.agent} {
		e.mem.PutUser(u)
	}
	e.svc = NewService(e.mem, zap.NewNop())
	return e
}

func march(typ models.TargetType, amount float64) Input {
	return Input{
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

func TestAchievement(t *testing.T) {
	assert.Equal(t, 50.0, Achievement(500, 1000))
	assert.Equal(t, 250.0, Achievement(2500, 1000), "not clamped")
	assert.Zero(t, Achievement(500, 0))
	assert.Zero(t, Achievement(0, 1000))
	assert.Zero(t, AmountOf(nil))
}

func TestSetBranchTarget(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	got, err := e.svc.SetBranchTarget(ctx, &e.admin, e.b1.ID, march(models.TargetSales, 1000))
	require.NoError(t, err)
	assert.Equal(t, e.b1.ID, *got.BranchID)
	assert.Nil(t, got.CoordinatorID)
	assert.Equal(t, e.admin.ID, got.SetByID)
	require.NotNil(t, got.Branch)
	assert.Equal(t, "B1", got.Branch.Name)
	assert.Equal(t, period.EndOfDay(time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)), got.EndDate)
}

func TestSetBranchTargetRejectsOverlap(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.SetBranchTarget(ctx, &e.admin, e.b1.ID, march(models.TargetSales, 1000))
	require.NoError(t, err)

	overlapping := march(models.TargetSales, 500)
	overlapping.Start = time.Date(2024, time.March, 31, 0, 0, 0, 0, time.UTC)
	overlapping.End = time.Date(2024, time.April, 15, 0, 0, 0, 0, time.UTC)
	_, err = e.svc.SetBranchTarget(ctx, &e.admin, e.b1.ID, overlapping)
	assert.Equal(t, apperr.CodeOverlappingTarget, codeOf(t, err))
	assert.Equal(t, 400, apperr.Status(err))

	april := march(models.TargetSales, 500)
	april.Start = time.Date(2024, time.April, 1, 0, 0, 0, 0, time.UTC)
	april.End = time.Date(2024, time.April, 30, 0, 0, 0, 0, time.UTC)
	_, err = e.svc.SetBranchTarget(ctx, &e.admin, e.b1.ID, april)
	assert.NoError(t, err, "adjacent window")

	_, err = e.svc.SetBranchTarget(ctx, &e.admin, e.b1.ID, march(models.TargetRegistration, 20))
	assert.NoError(t, err, "other type")

	_, err = e.svc.SetBranchTarget(ctx, &e.admin, e.b2.ID, march(models.TargetSales, 20))
	assert.NoError(t, err, "other branch")
}

func TestSetBranchTargetValidation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	backwards := march(models.TargetSales, 1)
	backwards.Start, backwards.End = backwards.End, backwards.Start
	sameDay := march(models.TargetSales, 1)
	sameDay.End = sameDay.Start

	tests := []struct {
		name   string
		actor  *models.User
		branch uint
		in     Input
		code   apperr.Code
		status int
	}{
		{"manager may not", &e.manager, e.b1.ID, march(models.TargetSales, 1), apperr.CodeForbidden, 403},
		{"missing branch", &e.admin, 0, march(models.TargetSales, 1), apperr.CodeValidationFailed, 400},
		{"bad type", &e.admin, e.b1.ID, march("revenue", 1), apperr.CodeValidationFailed, 400},
		{"zero amount", &e.admin, e.b1.ID, march(models.TargetSales, 0), apperr.CodeValidationFailed, 400},
		{"negative amount", &e.admin, e.b1.ID, march(models.TargetSales, -5), apperr.CodeValidationFailed, 400},
		{"end before start", &e.admin, e.b1.ID, backwards, apperr.CodeValidationFailed, 400},
		{"end equals start", &e.admin, e.b1.ID, sameDay, apperr.CodeValidationFailed, 400},
		{"unknown branch", &e.admin, 999, march(models.TargetSales, 1), apperr.CodeBranchNotFound, 404},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.SetBranchTarget(ctx, tt.actor, tt.branch, tt.in)
			assert.Equal(t, tt.code, codeOf(t, err))
			assert.Equal(t, tt.status, apperr.Status(err))
		})
	}

	all, err := e.mem.FindTargets(ctx, store.TargetFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSetCoordinatorTarget(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	got, err := e.svc.SetCoordinatorTarget(ctx, &e.manager, e.coord.ID, march(models.TargetSales, 300))
	require.NoError(t, err)
	assert.Equal(t, e.coord.ID, *got.CoordinatorID)
	assert.Equal(t, e.manager.ID, got.SetByID)
	require.NotNil(t, got.Coordinator)
	assert.Equal(t, "Cem", got.Coordinator.Name)

	_, err = e.svc.SetCoordinatorTarget(ctx, &e.manager, e.coord.ID, march(models.TargetSales, 400))
	assert.NoError(t, err, "coordinator targets may overlap")

	unassigned := e.manager
	unassigned.BranchID = nil

	tests := []struct {
		name   string
		actor  *models.User
		coord  uint
		code   apperr.Code
		status int
	}{
		{"admin may not", &e.admin, e.coord.ID, apperr.CodeForbidden, 403},
		{"manager without branch", &unassigned, e.coord.ID, apperr.CodeUnassignedScope, 400},
		{"unknown coordinator", &e.manager, 999, apperr.CodeCoordinatorNotFound, 404},
		{"not a coordinator", &e.manager, e.agent.ID, apperr.CodeInvalidCoordinatorRole, 400},
		{"other branch", &e.manager, e.foreign.ID, apperr.CodeForbidden, 403},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.svc.SetCoordinatorTarget(ctx, tt.actor, tt.coord, march(models.TargetSales, 1))
			assert.Equal(t, tt.code, codeOf(t, err))
			assert.Equal(t, tt.status, apperr.Status(err))
		})
	}
}

func TestMyTargets(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.SetBranchTarget(ctx, &e.admin, e.b1.ID, march(models.TargetSales, 1000))
	require.NoError(t, err)
	_, err = e.svc.SetBranchTarget(ctx, &e.admin, e.b2.ID, march(models.TargetSales, 800))
	require.NoError(t, err)
	_, err = e.svc.SetCoordinatorTarget(ctx, &e.manager, e.coord.ID, march(models.TargetRegistration, 10))
	require.NoError(t, err)

	all, err := e.svc.MyTargets(ctx, &e.admin)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	mine, err := e.svc.MyTargets(ctx, &e.manager)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, e.b1.ID, *mine[0].BranchID)

	personal, err := e.svc.MyTargets(ctx, &e.coord)
	require.NoError(t, err)
	require.Len(t, personal, 1)
	assert.Equal(t, models.TargetRegistration, personal[0].TargetType)

	none, err := e.svc.MyTargets(ctx, &e.agent)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	_, err = e.svc.MyTargets(ctx, &models.User{ID: 99, Role: models.Role("guest")})
	assert.Equal(t, apperr.CodeForbidden, codeOf(t, err))
}

func TestResolverCurrentAndInWindow(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	_, err := e.svc.SetBranchTarget(ctx, &e.admin, e.b1.ID, march(models.TargetSales, 1000))
	require.NoError(t, err)
	_, err = e.svc.SetCoordinatorTarget(ctx, &e.manager, e.coord.ID, march(models.TargetSales, 100))
	require.NoError(t, err)
	_, err = e.svc.SetCoordinatorTarget(ctx, &e.manager, e.coord.ID, march(models.TargetSales, 200))
	require.NoError(t, err)

	r := e.svc.Resolver()
	mid := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)

	cur, err := r.Current(ctx, BranchScope(e.b1.ID), models.TargetSales, mid)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, AmountOf(cur))

	cur, err = r.Current(ctx, CoordinatorScope(e.coord.ID), models.TargetSales, mid)
	require.NoError(t, err)
	assert.Equal(t, 200.0, AmountOf(cur), "newest wins")

	none, err := r.Current(ctx, BranchScope(e.b1.ID), models.TargetSales, mid.AddDate(0, 1, 0))
	require.NoError(t, err)
	assert.Nil(t, none)

	inMarch, err := r.InWindow(ctx, CoordinatorScope(e.coord.ID), "", period.Month(2024, time.March, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, 300.0, SumAmounts(inMarch))
	assert.Nil(t, First(inMarch, models.TargetRegistration))
	assert.NotNil(t, First(inMarch, models.TargetSales))
}
