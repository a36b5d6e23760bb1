// Package insights produces a short text commentary over daily sales totals.
package insights

import (
	"context"
	"time"

	"go.uber.org/zap"

	"salesperf-backend/internal/access"
	"salesperf-backend/internal/aggregate"
	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/period"
)

const recentDays = 30

type Point struct {
	Date       string  `json:"date"`
	TotalSales float64 `json:"totalSales"`
	Count      int64   `json:"count"`
}

type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Response struct {
	Insight    string    `json:"insight"`
	IsFallback bool      `json:"isFallback"`
	DataPoints int       `json:"dataPoints"`
	Series     []Point   `json:"series"`
	DateRange  DateRange `json:"dateRange"`
}

type Service struct {
	engine *aggregate.Engine
	gen    Generator
	clock  period.Clock
	log    *zap.Logger
}

func NewService(engine *aggregate.Engine, gen Generator, clock period.Clock, log *zap.Logger) *Service {
	if gen == nil {
		gen = Summarizer{}
	}
	return &Service{engine: engine, gen: gen, clock: clock, log: log}
}

// Recent covers the last 30 days up to the end of today. A generator failure
// yields the fallback text rather than an error.
func (s *Service) Recent(ctx context.Context, actor *models.User) (*Response, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	now := s.clock()
	w := period.Window{
		Start: period.StartOfDay(now.AddDate(0, 0, -recentDays)),
		End:   period.EndOfDay(now),
	}
	resp, series, err := s.series(ctx, w)
	if err != nil {
		return nil, err
	}
	text, err := s.gen.Generate(ctx, Request{From: w.Start, To: w.End, Series: series})
	if err != nil {
		s.log.Warn("insight generation failed, using fallback", zap.Error(err))
		resp.Insight, resp.IsFallback = fallbackText, true
		return resp, nil
	}
	resp.Insight = text
	return resp, nil
}

// Range covers an explicit window. Both dates are required; a date-only end
// includes the whole day.
func (s *Service) Range(ctx context.Context, actor *models.User, startDate, endDate string) (*Response, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}
	if startDate == "" || endDate == "" {
		return nil, apperr.Invalid("startDate and endDate are required")
	}
	loc := s.clock().Location()
	start, _, err := period.ParseDate(startDate, loc)
	if err != nil {
		return nil, apperr.Invalid("invalid startDate")
	}
	end, dateOnly, err := period.ParseDate(endDate, loc)
	if err != nil {
		return nil, apperr.Invalid("invalid endDate")
	}
	if dateOnly {
		end = period.EndOfDay(end)
	}
	if end.Before(start) {
		return nil, apperr.Invalid("endDate must not be before startDate")
	}

	w := period.Window{Start: start, End: end}
	resp, series, err := s.series(ctx, w)
	if err != nil {
		return nil, err
	}
	text, err := s.gen.Generate(ctx, Request{From: w.Start, To: w.End, Series: series})
	if err != nil {
		return nil, apperr.Internal(err, "failed to generate insight for the specified date range")
	}
	resp.Insight = text
	return resp, nil
}

func (s *Service) authorize(actor *models.User) error {
	if !access.CanPerform(actor.Role, access.OpViewInsights, access.ScopeGlobal) {
		return apperr.Forbidden("admin access required")
	}
	return nil
}

func (s *Service) series(ctx context.Context, w period.Window) (*Response, []aggregate.Bucket, error) {
	buckets, err := s.engine.DailySeries(ctx, w, aggregate.Filter{})
	if err != nil {
		return nil, nil, apperr.Internal(err, "failed to load sales series")
	}
	points := make([]Point, len(buckets))
	for i, b := range buckets {
		points[i] = Point{Date: b.Label, TotalSales: b.Sales, Count: b.Count}
	}
	return &Response{
		DataPoints: len(points),
		Series:     points,
		DateRange:  DateRange{From: w.Start.Format(time.DateOnly), To: w.End.Format(time.DateOnly)},
	}, buckets, nil
}
