package targets

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/auth"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/period"
)

type SetBranchTargetRequest struct {
	BranchID   uint    `json:"branchId"`
	TargetType string  `json:"target_type"`
	Amount     float64 `json:"amount"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
}

type SetCoordinatorTargetRequest struct {
	CoordinatorID uint    `json:"coordinatorId"`
	TargetType    string  `json:"target_type"`
	Amount        float64 `json:"amount"`
	StartDate     string  `json:"start_date"`
	EndDate       string  `json:"end_date"`
}

func parseInput(typ string, amount float64, start, end string, loc *time.Location) (Input, error) {
	in := Input{Type: models.TargetType(typ), Amount: amount}
	var err error
	if start != "" {
		if in.Start, _, err = period.ParseDate(start, loc); err != nil {
			return Input{}, apperr.Invalid("please provide valid dates in the correct format")
		}
	}
	if end != "" {
		if in.End, in.EndDateOnly, err = period.ParseDate(end, loc); err != nil {
			return Input{}, apperr.Invalid("please provide valid dates in the correct format")
		}
	}
	return in, nil
}

// POST /api/targets/branch
func SetBranchTargetHandler(svc *Service, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body SetBranchTargetRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Invalid("invalid request body")
		}
		in, err := parseInput(body.TargetType, body.Amount, body.StartDate, body.EndDate, loc)
		if err != nil {
			return err
		}

		t, err := svc.SetBranchTarget(c.UserContext(), user, body.BranchID, in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"message": "Branch target set successfully!",
			"target":  ToResponse(*t),
		})
	}
}

// POST /api/targets/coordinator
func SetCoordinatorTargetHandler(svc *Service, loc *time.Location) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}

		var body SetCoordinatorTargetRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Invalid("invalid request body")
		}
		in, err := parseInput(body.TargetType, body.Amount, body.StartDate, body.EndDate, loc)
		if err != nil {
			return err
		}

		t, err := svc.SetCoordinatorTarget(c.UserContext(), user, body.CoordinatorID, in)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(ToResponse(*t))
	}
}

// GET /api/targets/my-targets
func MyTargetsHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		found, err := svc.MyTargets(c.UserContext(), user)
		if err != nil {
			return err
		}
		return c.JSON(ToResponses(found))
	}
}
