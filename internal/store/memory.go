package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"salesperf-backend/internal/models"
)

// Memory is an in-process Repository. It backs service tests and local runs
// without a database.
type Memory struct {
	mu       sync.RWMutex
	now      func() time.Time
	nextID   uint
	users    []models.User
	branches []models.Branch
	records  []models.SalesRecord
	targets  []models.Target
}

var _ Repository = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{now: time.Now}
}

func (m *Memory) id() uint {
	m.nextID++
	return m.nextID
}

// PutUser inserts u, assigning an id when u.ID is zero.
func (m *Memory) PutUser(u *models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if u.ID == 0 {
		u.ID = m.id()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = m.now()
		u.UpdatedAt = u.CreatedAt
	}
	m.users = append(m.users, *u)
}

// PutBranch inserts b, assigning an id when b.ID is zero.
func (m *Memory) PutBranch(b *models.Branch) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		b.ID = m.id()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = m.now()
		b.UpdatedAt = b.CreatedAt
	}
	m.branches = append(m.branches, *b)
}

func (m *Memory) userByID(id uint) (models.User, bool) {
	for _, u := range m.users {
		if u.ID == id {
			return u, true
		}
	}
	return models.User{}, false
}

func (m *Memory) branchByID(id uint) (models.Branch, bool) {
	for _, b := range m.branches {
		if b.ID == id {
			return b, true
		}
	}
	return models.Branch{}, false
}

func (m *Memory) GetUser(_ context.Context, id uint) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.userByID(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			u := u
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindUsers(_ context.Context, ids []uint) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.User
	for _, id := range ids {
		if u, ok := m.userByID(id); ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (m *Memory) ListUsers(_ context.Context, f UserFilter) ([]models.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.User
	for _, u := range m.users {
		if f.BranchID != nil && !u.InBranch(*f.BranchID) {
			continue
		}
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func (m *Memory) CountUsers(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.users)), nil
}

func (m *Memory) GetBranch(_ context.Context, id uint) (*models.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.branchByID(id)
	if !ok {
		return nil, ErrNotFound
	}
	return &b, nil
}

func (m *Memory) FindBranches(_ context.Context, ids []uint) ([]models.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Branch
	for _, id := range ids {
		if b, ok := m.branchByID(id); ok {
			out = append(out, b)
		}
	}
	return out, nil
}

// ListBranches returns every branch in insertion order.
func (m *Memory) ListBranches(_ context.Context) ([]models.Branch, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]models.Branch(nil), m.branches...), nil
}

func (m *Memory) CountBranches(_ context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.branches)), nil
}

func (m *Memory) CreateSalesRecord(_ context.Context, rec *models.SalesRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec.ID = m.id()
	rec.CreatedAt = m.now()
	rec.UpdatedAt = rec.CreatedAt
	stored := *rec
	stored.Agent, stored.Coordinator, stored.Branch = nil, nil, nil
	m.records = append(m.records, stored)
	return nil
}

func (m *Memory) GetSalesRecord(_ context.Context, id uint) (*models.SalesRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.records {
		if r.ID != id {
			continue
		}
		if u, ok := m.userByID(r.AgentID); ok {
			r.Agent = &u
		}
		if u, ok := m.userByID(r.CoordinatorID); ok {
			r.Coordinator = &u
		}
		if b, ok := m.branchByID(r.BranchID); ok {
			r.Branch = &b
		}
		return &r, nil
	}
	return nil, ErrNotFound
}

func (m *Memory) SumSales(_ context.Context, q SalesQuery) ([]GroupTotal, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	loc := q.Window.Start.Location()
	index := make(map[uint]int)
	var out []GroupTotal
	for _, r := range m.records {
		if !q.Window.Contains(r.Date) {
			continue
		}
		if q.BranchID != nil && r.BranchID != *q.BranchID {
			continue
		}
		if q.CoordinatorID != nil && r.CoordinatorID != *q.CoordinatorID {
			continue
		}
		if q.AgentID != nil && r.AgentID != *q.AgentID {
			continue
		}

		var key uint
		switch q.GroupBy {
		case GroupByAgent:
			key = r.AgentID
		case GroupByCoordinator:
			key = r.CoordinatorID
		case GroupByBranch:
			key = r.BranchID
		case GroupByNone, "":
			key = 0
		case GroupByMonth:
			key = MonthKey(r.Date.In(loc))
		case GroupByDay:
			key = DayKey(r.Date.In(loc))
		default:
			return nil, fmt.Errorf("unsupported grouping %q", q.GroupBy)
		}

		i, ok := index[key]
		if !ok {
			i = len(out)
			index[key] = i
			out = append(out, GroupTotal{Key: key})
		}
		out[i].Sales += r.SalesAmount
		out[i].Registrations += r.NewRegistrations
		out[i].Count++
	}
	return out, nil
}

func (m *Memory) CreateTarget(_ context.Context, t *models.Target) error {
	if err := t.CheckOwner(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	t.ID = m.id()
	t.CreatedAt = m.now()
	t.UpdatedAt = t.CreatedAt
	stored := *t
	stored.Branch, stored.Coordinator, stored.SetBy = nil, nil, nil
	m.targets = append(m.targets, stored)
	return nil
}

func (m *Memory) withRefs(t models.Target) models.Target {
	if t.BranchID != nil {
		if b, ok := m.branchByID(*t.BranchID); ok {
			t.Branch = &b
		}
	}
	if t.CoordinatorID != nil {
		if u, ok := m.userByID(*t.CoordinatorID); ok {
			t.Coordinator = &u
		}
	}
	if u, ok := m.userByID(t.SetByID); ok {
		t.SetBy = &u
	}
	return t
}

func (m *Memory) GetTarget(_ context.Context, id uint) (*models.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.targets {
		if t.ID == id {
			t = m.withRefs(t)
			return &t, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) FindTargets(_ context.Context, f TargetFilter) ([]models.Target, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Target
	// newest first: ids grow with insertion
	for i := len(m.targets) - 1; i >= 0; i-- {
		t := m.targets[i]
		if f.BranchID != nil && (t.BranchID == nil || *t.BranchID != *f.BranchID) {
			continue
		}
		if f.CoordinatorID != nil && (t.CoordinatorID == nil || *t.CoordinatorID != *f.CoordinatorID) {
			continue
		}
		if f.BranchOnly && t.BranchID == nil {
			continue
		}
		if f.CoordinatorOnly && t.CoordinatorID == nil {
			continue
		}
		if f.Type != "" && t.TargetType != f.Type {
			continue
		}
		if f.ActiveAt != nil && !t.ActiveAt(*f.ActiveAt) {
			continue
		}
		if f.Overlaps != nil && !t.Overlaps(f.Overlaps.Start, f.Overlaps.End) {
			continue
		}
		if f.Within != nil && !t.Within(f.Within.Start, f.Within.End) {
			continue
		}
		out = append(out, m.withRefs(t))
	}
	return out, nil
}
