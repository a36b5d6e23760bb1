package sales

import (
	"context"

	"salesperf-backend/internal/access"
	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/store"
)

type Service struct {
	repo      store.Repository
	validator *Validator
	writer    *Writer
}

func NewService(repo store.Repository, validator *Validator, writer *Writer) *Service {
	return &Service{repo: repo, validator: validator, writer: writer}
}

// Create validates the hierarchy, then writes. Nothing is stored when either
// step fails.
func (s *Service) Create(ctx context.Context, actor *models.User, agentID uint, e Entry) (*models.SalesRecord, error) {
	if !access.CanPerform(actor.Role, access.OpCreateSalesRecord, access.ScopeTeam) {
		return nil, apperr.Forbidden("only coordinators can log sales")
	}
	resolved, err := s.validator.Validate(ctx, agentID, actor)
	if err != nil {
		return nil, err
	}
	return s.writer.Write(ctx, resolved, e)
}

// BranchAgents lists the agents of the coordinator's branch.
func (s *Service) BranchAgents(ctx context.Context, actor *models.User) ([]models.User, error) {
	if !access.CanPerform(actor.Role, access.OpListBranchAgents, access.ScopeBranch) {
		return nil, apperr.Forbidden("only coordinators can list branch agents")
	}
	return s.roster(ctx, actor, nil, models.RoleAgent)
}

// BranchCoordinators lists the coordinators of a branch. Admins pick the
// branch with requested.
func (s *Service) BranchCoordinators(ctx context.Context, actor *models.User, requested *uint) ([]models.User, error) {
	if !access.CanPerform(actor.Role, access.OpListBranchCoordinators, access.ScopeBranch) {
		return nil, apperr.Forbidden("only branch managers can list branch coordinators")
	}
	return s.roster(ctx, actor, requested, models.RoleCoordinator)
}

func (s *Service) roster(ctx context.Context, actor *models.User, requested *uint, role models.Role) ([]models.User, error) {
	branchID, err := access.BranchOf(actor, requested)
	if err != nil {
		return nil, err
	}
	users, err := s.repo.ListUsers(ctx, store.UserFilter{BranchID: &branchID, Role: role})
	if err != nil {
		return nil, apperr.Internal(err, "could not list users")
	}
	return users, nil
}
