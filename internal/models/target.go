package models

import (
	"errors"
	"time"
)

type TargetType string

const (
	TargetSales        TargetType = "sales"
	TargetRegistration TargetType = "registration"
)

func (t TargetType) Valid() bool {
	return t == TargetSales || t == TargetRegistration
}

var (
	ErrTargetWithoutOwner = errors.New("either branch or coordinator must be specified")
	ErrTargetTwoOwners    = errors.New("cannot set both branch and coordinator targets")
)

// Target belongs to exactly one of a branch or a coordinator.
type Target struct {
	ID            uint       `gorm:"primaryKey" json:"_id"`
	TargetType    TargetType `gorm:"size:20;not null;index:idx_targets_branch_window,priority:2" json:"target_type"`
	Amount        float64    `gorm:"not null" json:"amount"`
	StartDate     time.Time  `gorm:"not null;index:idx_targets_branch_window,priority:3" json:"start_date"`
	EndDate       time.Time  `gorm:"not null;index:idx_targets_branch_window,priority:4" json:"end_date"`
	BranchID      *uint      `gorm:"index:idx_targets_branch_window,priority:1" json:"branch,omitempty"`
	Branch        *Branch    `json:"-"`
	CoordinatorID *uint      `gorm:"index" json:"coordinator,omitempty"`
	Coordinator   *User      `gorm:"foreignKey:CoordinatorID" json:"-"`
	SetByID       uint       `gorm:"not null" json:"setBy"`
	SetBy         *User      `gorm:"foreignKey:SetByID" json:"-"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// CheckOwner enforces the branch XOR coordinator ownership rule.
func (t *Target) CheckOwner() error {
	if t.BranchID == nil && t.CoordinatorID == nil {
		return ErrTargetWithoutOwner
	}
	if t.BranchID != nil && t.CoordinatorID != nil {
		return ErrTargetTwoOwners
	}
	return nil
}

// ActiveAt reports whether at falls inside [StartDate, EndDate].
func (t *Target) ActiveAt(at time.Time) bool {
	return !at.Before(t.StartDate) && !at.After(t.EndDate)
}

// Within reports whether the target window lies entirely inside [start, end].
func (t *Target) Within(start, end time.Time) bool {
	return !t.StartDate.Before(start) && !t.EndDate.After(end)
}

// Overlaps reports whether the target window intersects [start, end].
func (t *Target) Overlaps(start, end time.Time) bool {
	return !t.StartDate.After(end) && !t.EndDate.Before(start)
}
