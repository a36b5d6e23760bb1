// Package access is the single place that decides which role may perform
// which operation over which scope.
package access

import (
	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/models"
)

type Operation string

const (
	OpCreateSalesRecord      Operation = "sales:create"
	OpListBranchAgents       Operation = "users:branch-agents"
	OpListBranchCoordinators Operation = "users:branch-coordinators"
	OpViewAdminDashboard     Operation = "dashboard:admin"
	OpViewManagerDashboard   Operation = "dashboard:manager"
	OpViewManagerTargetsPage Operation = "dashboard:manager-targets"
	OpViewReport             Operation = "report:view"
	OpViewLeaderboard        Operation = "leaderboard:view"
	OpViewTargets            Operation = "targets:view"
	OpSetBranchTarget        Operation = "targets:set-branch"
	OpSetCoordinatorTarget   Operation = "targets:set-coordinator"
	OpViewInsights           Operation = "insights:view"
	OpListBranches           Operation = "branches:list"
	OpListBranchManagers     Operation = "users:managers"
)

// Scope is the extent of data an operation touches.
type Scope string

const (
	ScopeGlobal Scope = "global"
	ScopeBranch Scope = "branch"
	ScopeTeam   Scope = "team"
	ScopeSelf   Scope = "self"
)

type grant map[models.Role][]Scope

// Admins reach manager-only branch views as well; without a branch of their own
// those requests then fail on the missing scope, not on the role.
var policy = map[Operation]grant{
	OpCreateSalesRecord: {
		models.RoleCoordinator: {ScopeTeam},
	},
	OpListBranchAgents: {
		models.RoleCoordinator: {ScopeBranch},
	},
	OpListBranchCoordinators: {
		models.RoleBranchManager: {ScopeBranch},
		models.RoleAdmin:         {ScopeBranch},
	},
	OpViewAdminDashboard: {
		models.RoleAdmin: {ScopeGlobal},
	},
	OpViewManagerDashboard: {
		models.RoleBranchManager: {ScopeBranch},
		models.RoleAdmin:         {ScopeBranch},
	},
	OpViewManagerTargetsPage: {
		models.RoleBranchManager: {ScopeBranch},
		models.RoleAdmin:         {ScopeBranch},
	},
	OpViewReport: {
		models.RoleAdmin:         {ScopeGlobal, ScopeBranch},
		models.RoleBranchManager: {ScopeBranch},
		models.RoleCoordinator:   {ScopeTeam},
	},
	OpViewLeaderboard: {
		models.RoleAdmin:         {ScopeGlobal},
		models.RoleBranchManager: {ScopeGlobal},
		models.RoleCoordinator:   {ScopeGlobal},
		models.RoleAgent:         {ScopeGlobal},
	},
	OpViewTargets: {
		models.RoleAdmin:         {ScopeGlobal},
		models.RoleBranchManager: {ScopeBranch},
		models.RoleCoordinator:   {ScopeSelf},
		models.RoleAgent:         {ScopeSelf},
	},
	OpSetBranchTarget: {
		models.RoleAdmin: {ScopeBranch},
	},
	OpSetCoordinatorTarget: {
		models.RoleBranchManager: {ScopeTeam},
	},
	OpViewInsights: {
		models.RoleAdmin: {ScopeGlobal},
	},
	OpListBranches: {
		models.RoleAdmin: {ScopeGlobal},
	},
	OpListBranchManagers: {
		models.RoleAdmin: {ScopeGlobal},
	},
}

// CanPerform reports whether role may run op over scope.
func CanPerform(role models.Role, op Operation, scope Scope) bool {
	for _, s := range policy[op][role] {
		if s == scope {
			return true
		}
	}
	return false
}

// Allowed reports whether role may run op over any scope at all. Route guards
// use it; services then check the concrete scope.
func Allowed(role models.Role, op Operation) bool {
	return len(policy[op][role]) > 0
}

// ReportScope is the scope a role's own reports cover.
func ReportScope(role models.Role) (Scope, bool) {
	switch role {
	case models.RoleAdmin:
		return ScopeGlobal, true
	case models.RoleBranchManager:
		return ScopeBranch, true
	case models.RoleCoordinator:
		return ScopeTeam, true
	}
	return "", false
}

// TargetScope is the scope of targets a role may list.
func TargetScope(role models.Role) (Scope, bool) {
	switch role {
	case models.RoleAdmin:
		return ScopeGlobal, true
	case models.RoleBranchManager:
		return ScopeBranch, true
	case models.RoleCoordinator, models.RoleAgent:
		return ScopeSelf, true
	}
	return "", false
}

// BranchOf resolves the branch a branch-scoped request runs against. Admins
// name one explicitly; every other role is pinned to its own branch.
func BranchOf(u *models.User, requested *uint) (uint, error) {
	if u.Role == models.RoleAdmin && requested != nil {
		return *requested, nil
	}
	if !u.HasBranch() {
		if u.Role == models.RoleAdmin {
			return 0, apperr.Invalid("branch_id is required")
		}
		return 0, apperr.UnassignedScope("user is not assigned to a branch")
	}
	return *u.BranchID, nil
}
