package aggregate

import (
	"context"
	"fmt"
	"sort"
	"time"

	"salesperf-backend/internal/period"
	"salesperf-backend/internal/store"
)

// Bucket is one calendar month or day of a series. Only buckets with records
// are present.
type Bucket struct {
	Label         string
	Start         time.Time
	Sales         float64
	Registrations int64
	Count         int64
}

// MonthlyTotals buckets the window by calendar month, oldest first.
func (e *Engine) MonthlyTotals(ctx context.Context, w period.Window, f Filter) ([]Bucket, error) {
	groups, err := e.sum(ctx, w, f, store.GroupByMonth)
	if err != nil {
		return nil, err
	}
	loc := w.Start.Location()
	return buckets(groups, func(key uint) time.Time {
		return time.Date(int(key/100), time.Month(key%100), 1, 0, 0, 0, 0, loc)
	}, "2006-01"), nil
}

// DailySeries buckets the window by calendar day, oldest first.
func (e *Engine) DailySeries(ctx context.Context, w period.Window, f Filter) ([]Bucket, error) {
	groups, err := e.sum(ctx, w, f, store.GroupByDay)
	if err != nil {
		return nil, err
	}
	loc := w.Start.Location()
	return buckets(groups, func(key uint) time.Time {
		return time.Date(int(key/10000), time.Month(key/100%100), int(key%100), 0, 0, 0, 0, loc)
	}, time.DateOnly), nil
}

func buckets(groups []store.GroupTotal, start func(uint) time.Time, layout string) []Bucket {
	out := make([]Bucket, 0, len(groups))
	for _, g := range groups {
		s := start(g.Key)
		out = append(out, Bucket{
			Label:         s.Format(layout),
			Start:         s,
			Sales:         g.Sales,
			Registrations: g.Registrations,
			Count:         g.Count,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

// MeanSales is the average sales per bucket, 0 for no buckets.
func MeanSales(bs []Bucket) float64 {
	if len(bs) == 0 {
		return 0
	}
	var sum float64
	for _, b := range bs {
		sum += b.Sales
	}
	return sum / float64(len(bs))
}

func (b Bucket) String() string {
	return fmt.Sprintf("%s: %.2f (%d records)", b.Label, b.Sales, b.Count)
}
