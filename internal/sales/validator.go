// Package sales is the write path for daily sales records and the branch
// roster lookups the entry form needs.
package sales

import (
	"context"
	"errors"

	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/store"
)

// Resolved is the hierarchy a new record is written under.
type Resolved struct {
	Agent       *models.User
	Coordinator *models.User
	Branch      *models.Branch
}

// Validator checks the agent, coordinator and branch chain. It never writes.
type Validator struct {
	repo store.Repository
}

func NewValidator(repo store.Repository) *Validator {
	return &Validator{repo: repo}
}

// Validate runs the hierarchy checks in a fixed order and stops at the first
// failure.
func (v *Validator) Validate(ctx context.Context, agentID uint, coordinator *models.User) (*Resolved, error) {
	if !coordinator.HasBranch() {
		return nil, apperr.Validation(apperr.CodeMissingBranchAssignment,
			"coordinator must be assigned to a branch to create sales records")
	}

	if agentID == 0 {
		return nil, apperr.NotFound(apperr.CodeAgentNotFound, "selected agent does not exist")
	}
	agent, err := v.repo.GetUser(ctx, agentID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(apperr.CodeAgentNotFound, "selected agent does not exist")
	}
	if err != nil {
		return nil, apperr.Internal(err, "could not load agent")
	}
	if agent.Role != models.RoleAgent {
		return nil, apperr.Validation(apperr.CodeInvalidAgentRole, "selected user is not an agent")
	}

	branch, err := v.repo.GetBranch(ctx, *coordinator.BranchID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(apperr.CodeBranchNotFound, "coordinator's assigned branch does not exist")
	}
	if err != nil {
		return nil, apperr.Internal(err, "could not load branch")
	}

	if agent.HasBranch() && *agent.BranchID != branch.ID {
		return nil, apperr.Validation(apperr.CodeBranchMismatch,
			"agent must belong to the same branch as the coordinator")
	}

	return &Resolved{Agent: agent, Coordinator: coordinator, Branch: branch}, nil
}
