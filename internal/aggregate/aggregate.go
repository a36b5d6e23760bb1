// Package aggregate sums sales records over a window and scope, joins the
// groups to their owning users or branches, and orders them.
//
// Groups with no matching records are absent from every result. Callers that
// present a missing group must treat it as zero sales and an "N/A" name.
package aggregate

import (
	"context"
	"fmt"
	"sort"

	"salesperf-backend/internal/period"
	"salesperf-backend/internal/store"
)

type Metric string

const (
	MetricSales         Metric = "sales"
	MetricRegistrations Metric = "registrations"
)

func ParseMetric(s string) (Metric, bool) {
	switch Metric(s) {
	case MetricSales, MetricRegistrations:
		return Metric(s), true
	}
	return "", false
}

// Filter narrows records by equality on the non-nil ids.
type Filter struct {
	BranchID      *uint
	CoordinatorID *uint
	AgentID       *uint
}

// Branch, Coordinator and Agent build single-id filters.
func Branch(id uint) Filter      { return Filter{BranchID: &id} }
func Coordinator(id uint) Filter { return Filter{CoordinatorID: &id} }
func Agent(id uint) Filter       { return Filter{AgentID: &id} }

type Query struct {
	Window  period.Window
	Filter  Filter
	GroupBy store.GroupBy
	Metric  Metric
	// Limit truncates the sorted rows when positive.
	Limit int
}

type Row struct {
	ID            uint
	Name          string
	Sales         float64
	Registrations int64
	Count         int64
}

// Value is the row total for m.
func (r Row) Value(m Metric) float64 {
	if m == MetricRegistrations {
		return float64(r.Registrations)
	}
	return r.Sales
}

type Engine struct {
	repo store.Repository
}

func NewEngine(repo store.Repository) *Engine {
	return &Engine{repo: repo}
}

func (e *Engine) sum(ctx context.Context, w period.Window, f Filter, g store.GroupBy) ([]store.GroupTotal, error) {
	groups, err := e.repo.SumSales(ctx, store.SalesQuery{
		Window:        w,
		BranchID:      f.BranchID,
		CoordinatorID: f.CoordinatorID,
		AgentID:       f.AgentID,
		GroupBy:       g,
	})
	if err != nil {
		return nil, fmt.Errorf("sum sales by %s: %w", g, err)
	}
	return groups, nil
}

// Aggregate groups by agent, coordinator or branch, drops groups whose owner
// no longer exists, and sorts descending by q.Metric. Ties keep the order in
// which the groups' first records were written.
func (e *Engine) Aggregate(ctx context.Context, q Query) ([]Row, error) {
	groups, err := e.sum(ctx, q.Window, q.Filter, q.GroupBy)
	if err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return []Row{}, nil
	}

	names, err := e.names(ctx, q.GroupBy, groups)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(groups))
	for _, g := range groups {
		name, ok := names[g.Key]
		if !ok {
			continue
		}
		rows = append(rows, Row{
			ID:            g.Key,
			Name:          name,
			Sales:         g.Sales,
			Registrations: g.Registrations,
			Count:         g.Count,
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Value(q.Metric) > rows[j].Value(q.Metric)
	})
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows, nil
}

func (e *Engine) names(ctx context.Context, g store.GroupBy, groups []store.GroupTotal) (map[uint]string, error) {
	ids := make([]uint, len(groups))
	for i, gt := range groups {
		ids[i] = gt.Key
	}

	names := make(map[uint]string, len(ids))
	switch g {
	case store.GroupByAgent, store.GroupByCoordinator:
		users, err := e.repo.FindUsers(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load users: %w", err)
		}
		for _, u := range users {
			names[u.ID] = u.Name
		}
	case store.GroupByBranch:
		branches, err := e.repo.FindBranches(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load branches: %w", err)
		}
		for _, b := range branches {
			names[b.ID] = b.Name
		}
	default:
		return nil, fmt.Errorf("cannot rank by %q", g)
	}
	return names, nil
}

// Totals sums every record in the window and scope. An empty window gives a
// zero Row rather than an error.
func (e *Engine) Totals(ctx context.Context, w period.Window, f Filter) (Row, error) {
	groups, err := e.sum(ctx, w, f, store.GroupByNone)
	if err != nil {
		return Row{}, err
	}
	var r Row
	for _, g := range groups {
		r.Sales += g.Sales
		r.Registrations += g.Registrations
		r.Count += g.Count
	}
	return r, nil
}

// Total is Totals reduced to a single metric.
func (e *Engine) Total(ctx context.Context, w period.Window, f Filter, m Metric) (float64, error) {
	r, err := e.Totals(ctx, w, f)
	if err != nil {
		return 0, err
	}
	return r.Value(m), nil
}

// Rank returns the 1-based position of id in rows, or false when id has no row.
func Rank(rows []Row, id uint) (int, bool) {
	for i, r := range rows {
		if r.ID == id {
			return i + 1, true
		}
	}
	return 0, false
}
