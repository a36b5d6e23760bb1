package dashboard

import (
	"github.com/gofiber/fiber/v2"

	"salesperf-backend/internal/auth"
)

// GET /api/dashboard/admin-summary
func AdminSummaryHandler(a *Assembler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		out, err := a.AdminDashboard(c.UserContext(), user)
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}

// GET /api/dashboard/manager-summary
// branch_manager: own branch from the user record
// admin: ?branch_id=1 required
func ManagerSummaryHandler(a *Assembler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		requested, err := auth.BranchQuery(c)
		if err != nil {
			return err
		}
		out, err := a.ManagerDashboard(c.UserContext(), user, requested)
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}

// GET /api/dashboard/manager-targets-page
func ManagerTargetsPageHandler(a *Assembler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		requested, err := auth.BranchQuery(c)
		if err != nil {
			return err
		}
		out, err := a.ManagerTargets(c.UserContext(), user, requested)
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}

// GET /api/dashboard/admin-report?period=monthly|ytd
func AdminReportHandler(a *Assembler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		tok, err := ParseReportPeriod(c.Query("period"))
		if err != nil {
			return err
		}
		out, err := a.AdminReport(c.UserContext(), user, tok)
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}

// GET /api/dashboard/manager-report?period=monthly|ytd
func ManagerReportHandler(a *Assembler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		tok, err := ParseReportPeriod(c.Query("period"))
		if err != nil {
			return err
		}
		requested, err := auth.BranchQuery(c)
		if err != nil {
			return err
		}
		out, err := a.ManagerReport(c.UserContext(), user, tok, requested)
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}

// GET /api/dashboard/coordinator-report?period=monthly|ytd
func CoordinatorReportHandler(a *Assembler) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		tok, err := ParseReportPeriod(c.Query("period"))
		if err != nil {
			return err
		}
		out, err := a.CoordinatorReport(c.UserContext(), user, tok)
		if err != nil {
			return err
		}
		return c.JSON(out)
	}
}
