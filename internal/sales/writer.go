package sales

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/metrics"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/period"
	"salesperf-backend/internal/store"
)

// Entry is the caller-supplied part of a record. Nil amounts are missing.
type Entry struct {
	Date             string
	SalesAmount      *float64
	NewRegistrations *float64
}

type Writer struct {
	repo store.Repository
	loc  *time.Location
	log  *zap.Logger
}

func NewWriter(repo store.Repository, loc *time.Location, log *zap.Logger) *Writer {
	if loc == nil {
		loc = time.UTC
	}
	return &Writer{repo: repo, loc: loc, log: log}
}

func (w *Writer) parse(e Entry) (time.Time, float64, int64, error) {
	if e.Date == "" || e.SalesAmount == nil || e.NewRegistrations == nil {
		return time.Time{}, 0, 0, apperr.Invalid("please provide agentId, date, sales_amount, and new_registrations")
	}
	date, _, err := period.ParseDate(e.Date, w.loc)
	if err != nil {
		return time.Time{}, 0, 0, apperr.Invalid("date must be YYYY-MM-DD or an RFC 3339 timestamp")
	}
	amount, regs := *e.SalesAmount, *e.NewRegistrations
	if amount < 0 || regs < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return time.Time{}, 0, 0, apperr.Invalid("sales amount and new registrations must be non-negative numbers")
	}
	if regs != math.Trunc(regs) || regs > math.MaxInt32 {
		return time.Time{}, 0, 0, apperr.Invalid("new registrations must be a whole number")
	}
	return date, amount, int64(regs), nil
}

// Write persists e under r. The branch always comes from the coordinator.
func (w *Writer) Write(ctx context.Context, r *Resolved, e Entry) (*models.SalesRecord, error) {
	date, amount, regs, err := w.parse(e)
	if err != nil {
		return nil, err
	}

	rec := &models.SalesRecord{
		AgentID:          r.Agent.ID,
		CoordinatorID:    r.Coordinator.ID,
		BranchID:         *r.Coordinator.BranchID,
		Date:             date,
		SalesAmount:      amount,
		NewRegistrations: regs,
	}
	if err := w.repo.CreateSalesRecord(ctx, rec); err != nil {
		return nil, apperr.Internal(err, "could not create sales record")
	}
	metrics.SalesRecordsCreated.Inc()
	w.log.Info("sales record created",
		zap.Uint("record_id", rec.ID),
		zap.Uint("agent_id", rec.AgentID),
		zap.Uint("coordinator_id", rec.CoordinatorID),
		zap.Uint("branch_id", rec.BranchID),
		zap.Float64("sales_amount", rec.SalesAmount),
	)

	saved, err := w.repo.GetSalesRecord(ctx, rec.ID)
	if err != nil {
		return nil, apperr.Internal(err, "could not load created sales record")
	}
	return saved, nil
}
