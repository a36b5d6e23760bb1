// Package store persists users, branches, sales records and targets.
package store

import (
	"context"
	"errors"
	"time"

	"salesperf-backend/internal/models"
	"salesperf-backend/internal/period"
)

var ErrNotFound = errors.New("record not found")

type GroupBy string

const (
	GroupByAgent       GroupBy = "agent"
	GroupByCoordinator GroupBy = "coordinator"
	GroupByBranch      GroupBy = "branch"
	GroupByNone        GroupBy = "none"
	// GroupByMonth keys are year*100 + month.
	GroupByMonth GroupBy = "month"
	// GroupByDay keys are year*10000 + month*100 + day.
	GroupByDay GroupBy = "day"
)

// SalesQuery selects records with Window.Start <= date <= Window.End that
// match every non-nil id filter.
type SalesQuery struct {
	Window        period.Window
	BranchID      *uint
	CoordinatorID *uint
	AgentID       *uint
	GroupBy       GroupBy
}

// GroupTotal is one group of a SumSales result. Groups with no records are
// never returned.
type GroupTotal struct {
	Key           uint
	Sales         float64
	Registrations int64
	Count         int64
}

type UserFilter struct {
	BranchID *uint
	Role     models.Role
}

type TargetFilter struct {
	BranchID        *uint
	CoordinatorID   *uint
	BranchOnly      bool
	CoordinatorOnly bool
	Type            models.TargetType
	ActiveAt        *time.Time
	Overlaps        *period.Window
	// Within keeps targets whose whole window falls inside it.
	Within *period.Window
}

type Repository interface {
	GetUser(ctx context.Context, id uint) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUsers(ctx context.Context, ids []uint) ([]models.User, error)
	ListUsers(ctx context.Context, f UserFilter) ([]models.User, error)
	CountUsers(ctx context.Context) (int64, error)

	GetBranch(ctx context.Context, id uint) (*models.Branch, error)
	FindBranches(ctx context.Context, ids []uint) ([]models.Branch, error)
	ListBranches(ctx context.Context) ([]models.Branch, error)
	CountBranches(ctx context.Context) (int64, error)

	CreateSalesRecord(ctx context.Context, rec *models.SalesRecord) error
	GetSalesRecord(ctx context.Context, id uint) (*models.SalesRecord, error)
	// SumSales returns groups in the order their first record was written.
	SumSales(ctx context.Context, q SalesQuery) ([]GroupTotal, error)

	CreateTarget(ctx context.Context, t *models.Target) error
	GetTarget(ctx context.Context, id uint) (*models.Target, error)
	// FindTargets returns the newest targets first.
	FindTargets(ctx context.Context, f TargetFilter) ([]models.Target, error)
}

// MonthKey and DayKey build GroupByMonth and GroupByDay keys.
func MonthKey(t time.Time) uint {
	return uint(t.Year()*100 + int(t.Month()))
}

func DayKey(t time.Time) uint {
	return uint(t.Year()*10000 + int(t.Month())*100 + t.Day())
}
