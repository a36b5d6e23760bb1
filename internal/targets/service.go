package targets

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"salesperf-backend/internal/access"
	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/metrics"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/period"
	"salesperf-backend/internal/store"
)

// Input is a requested target window. A date-only End covers its whole day.
type Input struct {
	Type        models.TargetType
	Amount      float64
	Start       time.Time
	End         time.Time
	EndDateOnly bool
}

func (in Input) validate() error {
	if !in.Type.Valid() {
		return apperr.Invalid("please select a valid target type (sales or registration)")
	}
	if in.Amount <= 0 {
		return apperr.Invalid("please enter a valid positive target amount")
	}
	if in.Start.IsZero() {
		return apperr.Invalid("please provide a start date")
	}
	if in.End.IsZero() {
		return apperr.Invalid("please provide an end date")
	}
	if !in.End.After(in.Start) {
		return apperr.Invalid("end date must be after start date")
	}
	return nil
}

func (in Input) window() (time.Time, time.Time) {
	if in.EndDateOnly {
		return in.Start, period.EndOfDay(in.End)
	}
	return in.Start, in.End
}

type Service struct {
	repo     store.Repository
	resolver *Resolver
	log      *zap.Logger
}

func NewService(repo store.Repository, log *zap.Logger) *Service {
	return &Service{repo: repo, resolver: NewResolver(repo), log: log}
}

func (s *Service) Resolver() *Resolver { return s.resolver }

// SetBranchTarget creates a branch-wide target. Two targets of the same type
// for one branch may not overlap in time. The overlap check and the insert
// are not atomic.
func (s *Service) SetBranchTarget(ctx context.Context, actor *models.User, branchID uint, in Input) (*models.Target, error) {
	if !access.CanPerform(actor.Role, access.OpSetBranchTarget, access.ScopeBranch) {
		return nil, apperr.Forbidden("only admins can set branch targets")
	}
	if branchID == 0 {
		return nil, apperr.Invalid("please select a branch")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	if _, err := s.repo.GetBranch(ctx, branchID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(apperr.CodeBranchNotFound, "selected branch not found")
		}
		return nil, apperr.Internal(err, "could not load branch")
	}

	start, end := in.window()
	overlapping, err := s.resolver.InWindow(ctx, BranchScope(branchID), in.Type, period.Window{Start: start, End: end})
	if err != nil {
		return nil, apperr.Internal(err, "could not check existing targets")
	}
	if len(overlapping) > 0 {
		return nil, apperr.Validation(apperr.CodeOverlappingTarget,
			"a target already exists for this branch and type during the specified period")
	}

	t := &models.Target{
		TargetType: in.Type,
		Amount:     in.Amount,
		StartDate:  start,
		EndDate:    end,
		BranchID:   &branchID,
		SetByID:    actor.ID,
	}
	return s.create(ctx, t, "branch")
}

// SetCoordinatorTarget creates a personal target for a coordinator in the
// manager's own branch. Overlaps are allowed.
func (s *Service) SetCoordinatorTarget(ctx context.Context, actor *models.User, coordinatorID uint, in Input) (*models.Target, error) {
	if !access.CanPerform(actor.Role, access.OpSetCoordinatorTarget, access.ScopeTeam) {
		return nil, apperr.Forbidden("only branch managers can set coordinator targets")
	}
	if !actor.HasBranch() {
		return nil, apperr.UnassignedScope("branch manager is not assigned to a branch")
	}
	if coordinatorID == 0 {
		return nil, apperr.Invalid("please select a coordinator")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	coordinator, err := s.repo.GetUser(ctx, coordinatorID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, apperr.NotFound(apperr.CodeCoordinatorNotFound, "coordinator not found")
		}
		return nil, apperr.Internal(err, "could not load coordinator")
	}
	if coordinator.Role != models.RoleCoordinator {
		return nil, apperr.Validation(apperr.CodeInvalidCoordinatorRole,
			"target can only be set for users with coordinator role")
	}
	if !coordinator.InBranch(*actor.BranchID) {
		return nil, apperr.Forbidden("you can only set targets for coordinators in your branch")
	}

	start, end := in.window()
	t := &models.Target{
		TargetType:    in.Type,
		Amount:        in.Amount,
		StartDate:     start,
		EndDate:       end,
		CoordinatorID: &coordinatorID,
		SetByID:       actor.ID,
	}
	return s.create(ctx, t, "coordinator")
}

func (s *Service) create(ctx context.Context, t *models.Target, scope string) (*models.Target, error) {
	if err := s.repo.CreateTarget(ctx, t); err != nil {
		return nil, apperr.Internal(err, "could not save target")
	}
	metrics.TargetsCreated.WithLabelValues(scope).Inc()
	s.log.Info("target created",
		zap.Uint("target_id", t.ID),
		zap.String("scope", scope),
		zap.String("type", string(t.TargetType)),
		zap.Uint("set_by", t.SetByID),
	)

	saved, err := s.repo.GetTarget(ctx, t.ID)
	if err != nil {
		return nil, apperr.Internal(err, "could not load saved target")
	}
	return saved, nil
}

// MyTargets lists the targets the actor's role may see, newest first.
func (s *Service) MyTargets(ctx context.Context, actor *models.User) ([]models.Target, error) {
	scope, ok := access.TargetScope(actor.Role)
	if !ok || !access.CanPerform(actor.Role, access.OpViewTargets, scope) {
		return nil, apperr.Forbidden("your role has no targets")
	}

	var f store.TargetFilter
	switch scope {
	case access.ScopeBranch:
		if !actor.HasBranch() {
			return nil, apperr.UnassignedScope("branch manager is not assigned to a branch")
		}
		f = BranchScope(*actor.BranchID).filter()
	case access.ScopeSelf:
		if actor.Role != models.RoleCoordinator {
			// agents never own a target
			return []models.Target{}, nil
		}
		f = CoordinatorScope(actor.ID).filter()
	}

	found, err := s.repo.FindTargets(ctx, f)
	if err != nil {
		return nil, apperr.Internal(err, "could not load targets")
	}
	return found, nil
}
