package models

import "time"

type Role string

const (
	RoleAdmin         Role = "admin"
	RoleBranchManager Role = "branch_manager"
	RoleCoordinator   Role = "coordinator"
	RoleAgent         Role = "agent"
)

// Valid reports whether r is one of the four known roles. Role strings are
// case-sensitive.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleBranchManager, RoleCoordinator, RoleAgent:
		return true
	}
	return false
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"_id"`
	BranchID     *uint     `gorm:"index" json:"branch"`
	Branch       *Branch   `json:"-"`
	Name         string    `gorm:"size:100;not null" json:"name"`
	Email        string    `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash string    `gorm:"size:255;not null" json:"-"`
	Role         Role      `gorm:"size:20;not null;index" json:"role"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasBranch reports whether the user is assigned to a branch.
func (u *User) HasBranch() bool {
	return u != nil && u.BranchID != nil
}

// InBranch reports whether the user is assigned to exactly the given branch.
func (u *User) InBranch(branchID uint) bool {
	return u.HasBranch() && *u.BranchID == branchID
}
