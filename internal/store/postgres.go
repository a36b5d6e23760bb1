package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"salesperf-backend/internal/models"
)

// Postgres is the gorm-backed Repository.
type Postgres struct {
	db *gorm.DB
}

var _ Repository = (*Postgres)(nil)

func NewPostgres(db *gorm.DB) *Postgres {
	return &Postgres{db: db}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

func (p *Postgres) GetUser(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := p.db.WithContext(ctx).First(&u, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (p *Postgres) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := p.db.WithContext(ctx).Where("LOWER(email) = LOWER(?)", email).First(&u).Error; err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (p *Postgres) FindUsers(ctx context.Context, ids []uint) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []models.User
	if err := p.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (p *Postgres) ListUsers(ctx context.Context, f UserFilter) ([]models.User, error) {
	q := p.db.WithContext(ctx).Model(&models.User{})
	if f.BranchID != nil {
		q = q.Where("branch_id = ?", *f.BranchID)
	}
	if f.Role != "" {
		q = q.Where("role = ?", f.Role)
	}
	var users []models.User
	if err := q.Order("id ASC").Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

func (p *Postgres) CountUsers(ctx context.Context) (int64, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&models.User{}).Count(&n).Error
	return n, err
}

func (p *Postgres) GetBranch(ctx context.Context, id uint) (*models.Branch, error) {
	var b models.Branch
	if err := p.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, notFound(err)
	}
	return &b, nil
}

func (p *Postgres) FindBranches(ctx context.Context, ids []uint) ([]models.Branch, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var branches []models.Branch
	if err := p.db.WithContext(ctx).Where("id IN ?", ids).Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}

func (p *Postgres) ListBranches(ctx context.Context) ([]models.Branch, error) {
	var branches []models.Branch
	if err := p.db.WithContext(ctx).Order("id ASC").Find(&branches).Error; err != nil {
		return nil, err
	}
	return branches, nil
}

func (p *Postgres) CountBranches(ctx context.Context) (int64, error) {
	var n int64
	err := p.db.WithContext(ctx).Model(&models.Branch{}).Count(&n).Error
	return n, err
}

func (p *Postgres) CreateSalesRecord(ctx context.Context, rec *models.SalesRecord) error {
	return p.db.WithContext(ctx).Omit("Agent", "Coordinator", "Branch").Create(rec).Error
}

func (p *Postgres) GetSalesRecord(ctx context.Context, id uint) (*models.SalesRecord, error) {
	var rec models.SalesRecord
	err := p.db.WithContext(ctx).
		Preload("Agent").
		Preload("Coordinator").
		Preload("Branch").
		First(&rec, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &rec, nil
}

type groupRow struct {
	GroupKey      uint
	Sales         float64
	Registrations int64
	Count         int64
}

// zoneName returns a zone postgres understands for AT TIME ZONE.
func zoneName(loc *time.Location) string {
	if loc == nil || loc == time.Local || loc.String() == "Local" {
		return "UTC"
	}
	return loc.String()
}

func (p *Postgres) SumSales(ctx context.Context, q SalesQuery) ([]GroupTotal, error) {
	var (
		keyExpr string
		keyArgs []any
	)
	switch q.GroupBy {
	case GroupByAgent:
		keyExpr = "agent_id"
	case GroupByCoordinator:
		keyExpr = "coordinator_id"
	case GroupByBranch:
		keyExpr = "branch_id"
	case GroupByNone, "":
		keyExpr = "0"
	case GroupByMonth:
		keyExpr = "to_char(date AT TIME ZONE ?, 'YYYYMM')::int"
		keyArgs = append(keyArgs, zoneName(q.Window.Start.Location()))
	case GroupByDay:
		keyExpr = "to_char(date AT TIME ZONE ?, 'YYYYMMDD')::int"
		keyArgs = append(keyArgs, zoneName(q.Window.Start.Location()))
	default:
		return nil, fmt.Errorf("unsupported grouping %q", q.GroupBy)
	}

	tx := p.db.WithContext(ctx).
		Model(&models.SalesRecord{}).
		Select(keyExpr+" AS group_key, "+
			"COALESCE(SUM(sales_amount), 0) AS sales, "+
			"COALESCE(SUM(new_registrations), 0) AS registrations, "+
			"COUNT(*) AS count, "+
			"MIN(id) AS first_id", keyArgs...).
		Where("date >= ? AND date <= ?", q.Window.Start, q.Window.End)
	if q.BranchID != nil {
		tx = tx.Where("branch_id = ?", *q.BranchID)
	}
	if q.CoordinatorID != nil {
		tx = tx.Where("coordinator_id = ?", *q.CoordinatorID)
	}
	if q.AgentID != nil {
		tx = tx.Where("agent_id = ?", *q.AgentID)
	}
	if q.GroupBy != GroupByNone && q.GroupBy != "" {
		tx = tx.Group("group_key").Order("first_id ASC")
	}

	var rows []groupRow
	if err := tx.Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]GroupTotal, 0, len(rows))
	for _, r := range rows {
		// an ungrouped aggregate over nothing still yields one row
		if r.Count == 0 {
			continue
		}
		out = append(out, GroupTotal{
			Key:           r.GroupKey,
			Sales:         r.Sales,
			Registrations: r.Registrations,
			Count:         r.Count,
		})
	}
	return out, nil
}

func (p *Postgres) CreateTarget(ctx context.Context, t *models.Target) error {
	if err := t.CheckOwner(); err != nil {
		return err
	}
	return p.db.WithContext(ctx).Omit("Branch", "Coordinator", "SetBy").Create(t).Error
}

func (p *Postgres) GetTarget(ctx context.Context, id uint) (*models.Target, error) {
	var t models.Target
	err := p.db.WithContext(ctx).
		Preload("Branch").
		Preload("Coordinator").
		Preload("SetBy").
		First(&t, id).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &t, nil
}

func (p *Postgres) FindTargets(ctx context.Context, f TargetFilter) ([]models.Target, error) {
	q := p.db.WithContext(ctx).Model(&models.Target{})
	if f.BranchID != nil {
		q = q.Where("branch_id = ?", *f.BranchID)
	}
	if f.CoordinatorID != nil {
		q = q.Where("coordinator_id = ?", *f.CoordinatorID)
	}
	if f.BranchOnly {
		q = q.Where("branch_id IS NOT NULL")
	}
	if f.CoordinatorOnly {
		q = q.Where("coordinator_id IS NOT NULL")
	}
	if f.Type != "" {
		q = q.Where("target_type = ?", f.Type)
	}
	if f.ActiveAt != nil {
		q = q.Where("start_date <= ? AND end_date >= ?", *f.ActiveAt, *f.ActiveAt)
	}
	if f.Overlaps != nil {
		q = q.Where("start_date <= ? AND end_date >= ?", f.Overlaps.End, f.Overlaps.Start)
	}
	if f.Within != nil {
		q = q.Where("start_date >= ? AND end_date <= ?", f.Within.Start, f.Within.End)
	}

	var targets []models.Target
	err := q.Preload("Branch").
		Preload("Coordinator").
		Preload("SetBy").
		Order("created_at DESC, id DESC").
		Find(&targets).Error
	if err != nil {
		return nil, err
	}
	return targets, nil
}
