package models

import "time"

// SalesRecord is one day's sales for an agent, logged by a coordinator.
// BranchID is copied from the coordinator at write time and never supplied by
// the caller. Records are not updated after creation.
type SalesRecord struct {
	ID               uint      `gorm:"primaryKey" json:"_id"`
	AgentID          uint      `gorm:"index;not null" json:"agent"`
	Agent            *User     `gorm:"foreignKey:AgentID" json:"-"`
	CoordinatorID    uint      `gorm:"index;not null" json:"coordinator"`
	Coordinator      *User     `gorm:"foreignKey:CoordinatorID" json:"-"`
	BranchID         uint      `gorm:"index;not null" json:"branch"`
	Branch           *Branch   `json:"-"`
	Date             time.Time `gorm:"index;not null" json:"date"`
	SalesAmount      float64   `gorm:"not null;default:0" json:"sales_amount"`
	NewRegistrations int64     `gorm:"not null;default:0" json:"new_registrations"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}
