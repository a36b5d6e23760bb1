package insights

import (
	"github.com/gofiber/fiber/v2"

	"salesperf-backend/internal/auth"
)

// GET /api/ai/insights
func RecentHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		out, err := svc.Recent(c.UserContext(), user)
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}

// GET /api/ai/insights/range?startDate=2024-03-01&endDate=2024-03-31
func RangeHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		out, err := svc.Range(c.UserContext(), user, c.Query("startDate"), c.Query("endDate"))
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}
