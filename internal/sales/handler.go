package sales

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/auth"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/store"
)

type CreateSalesRecordRequest struct {
	AgentID          uint     `json:"agentId"`
	Date             string   `json:"date"`
	SalesAmount      *float64 `json:"sales_amount"`
	NewRegistrations *float64 `json:"new_registrations"`
}

type Ref struct {
	ID   uint   `json:"_id"`
	Name string `json:"name"`
}

type SalesRecordResponse struct {
	ID               uint      `json:"_id"`
	Agent            Ref       `json:"agent"`
	Coordinator      Ref       `json:"coordinator"`
	Branch           Ref       `json:"branch"`
	Date             time.Time `json:"date"`
	SalesAmount      float64   `json:"sales_amount"`
	NewRegistrations int64     `json:"new_registrations"`
	CreatedAt        time.Time `json:"createdAt"`
}

type UserResponse struct {
	ID     uint        `json:"_id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Role   models.Role `json:"role"`
	Branch *Ref        `json:"branch"`
}

func toRecordResponse(r *models.SalesRecord) SalesRecordResponse {
	out := SalesRecordResponse{
		ID:               r.ID,
		Agent:            Ref{ID: r.AgentID},
		Coordinator:      Ref{ID: r.CoordinatorID},
		Branch:           Ref{ID: r.BranchID},
		Date:             r.Date,
		SalesAmount:      r.SalesAmount,
		NewRegistrations: r.NewRegistrations,
		CreatedAt:        r.CreatedAt,
	}
	if r.Agent != nil {
		out.Agent.Name = r.Agent.Name
	}
	if r.Coordinator != nil {
		out.Coordinator.Name = r.Coordinator.Name
	}
	if r.Branch != nil {
		out.Branch.Name = r.Branch.Name
	}
	return out
}

func toUserResponses(users []models.User, branch *models.Branch) []UserResponse {
	out := make([]UserResponse, len(users))
	for i, u := range users {
		out[i] = UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role}
		if u.BranchID != nil {
			out[i].Branch = &Ref{ID: *u.BranchID}
			if branch != nil && branch.ID == *u.BranchID {
				out[i].Branch.Name = branch.Name
			}
		}
	}
	return out
}

// POST /api/sales
func CreateSalesRecordHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body CreateSalesRecordRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Invalid("invalid request body")
		}

		rec, err := svc.Create(c.UserContext(), user, body.AgentID, Entry{
			Date:             body.Date,
			SalesAmount:      body.SalesAmount,
			NewRegistrations: body.NewRegistrations,
		})
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(toRecordResponse(rec))
	}
}

// GET /api/users/branch-agents
func BranchAgentsHandler(svc *Service, repo store.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		agents, err := svc.BranchAgents(c.UserContext(), user)
		if err != nil {
			return err
		}
		return c.JSON(toUserResponses(agents, branchOf(c, repo, agents)))
	}
}

// GET /api/users/branch-coordinators?branch_id=
func BranchCoordinatorsHandler(svc *Service, repo store.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		requested, err := auth.BranchQuery(c)
		if err != nil {
			return err
		}
		coordinators, err := svc.BranchCoordinators(c.UserContext(), user, requested)
		if err != nil {
			return err
		}
		return c.JSON(toUserResponses(coordinators, branchOf(c, repo, coordinators)))
	}
}

// branchOf loads the shared branch of a roster for display. A lookup failure
// only loses the name.
func branchOf(c *fiber.Ctx, repo store.Repository, users []models.User) *models.Branch {
	if len(users) == 0 || users[0].BranchID == nil {
		return nil
	}
	b, err := repo.GetBranch(c.UserContext(), *users[0].BranchID)
	if err != nil {
		return nil
	}
	return b
}
