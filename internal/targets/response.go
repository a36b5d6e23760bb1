package targets

import (
	"time"

	"salesperf-backend/internal/models"
)

type Ref struct {
	ID   uint   `json:"_id"`
	Name string `json:"name"`
}

type BranchRef struct {
	ID       uint   `json:"_id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

type Response struct {
	ID          uint              `json:"_id"`
	TargetType  models.TargetType `json:"target_type"`
	Amount      float64           `json:"amount"`
	StartDate   time.Time         `json:"start_date"`
	EndDate     time.Time         `json:"end_date"`
	Branch      *BranchRef        `json:"branch"`
	Coordinator *Ref              `json:"coordinator"`
	SetBy       *Ref              `json:"setBy"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

// ToResponse renders t with whichever references were loaded; a reference
// that was set but not loaded keeps its id with an empty name.
func ToResponse(t models.Target) Response {
	r := Response{
		ID:         t.ID,
		TargetType: t.TargetType,
		Amount:     t.Amount,
		StartDate:  t.StartDate,
		EndDate:    t.EndDate,
		CreatedAt:  t.CreatedAt,
		UpdatedAt:  t.UpdatedAt,
	}
	switch {
	case t.Branch != nil:
		r.Branch = &BranchRef{ID: t.Branch.ID, Name: t.Branch.Name, Location: t.Branch.Location}
	case t.BranchID != nil:
		r.Branch = &BranchRef{ID: *t.BranchID}
	}
	switch {
	case t.Coordinator != nil:
		r.Coordinator = &Ref{ID: t.Coordinator.ID, Name: t.Coordinator.Name}
	case t.CoordinatorID != nil:
		r.Coordinator = &Ref{ID: *t.CoordinatorID}
	}
	if t.SetBy != nil {
		r.SetBy = &Ref{ID: t.SetBy.ID, Name: t.SetBy.Name}
	} else if t.SetByID != 0 {
		r.SetBy = &Ref{ID: t.SetByID}
	}
	return r
}

func ToResponses(ts []models.Target) []Response {
	out := make([]Response, len(ts))
	for i, t := range ts {
		out[i] = ToResponse(t)
	}
	return out
}
