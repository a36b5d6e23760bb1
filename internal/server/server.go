// Package server builds the HTTP application: middleware, error rendering and
// the route table.
package server

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"salesperf-backend/internal/access"
	"salesperf-backend/internal/admin"
	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/auth"
	"salesperf-backend/internal/dashboard"
	"salesperf-backend/internal/insights"
	"salesperf-backend/internal/leaderboard"
	"salesperf-backend/internal/metrics"
	"salesperf-backend/internal/sales"
	"salesperf-backend/internal/store"
	"salesperf-backend/internal/targets"
)

const genericError = "unexpected server error"

type Deps struct {
	Repo        store.Repository
	Sales       *sales.Service
	Targets     *targets.Service
	Dashboard   *dashboard.Assembler
	Leaderboard *leaderboard.Service
	Insights    *insights.Service
	Directory   *admin.Directory
	Log         *zap.Logger

	JWTSecret      string
	JWTTTL         time.Duration
	AllowedOrigins string
	Location       *time.Location
}

// ErrorHandler renders every error as {"error", "code"}. Internal failures are
// logged with their cause and shown with a generic message only.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		if errors.As(err, &fe) {
			return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
		}

		fields := []zap.Field{
			zap.Error(err),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Any("request_id", c.Locals(requestid.ConfigDefault.ContextKey)),
		}
		status := apperr.Status(err)
		e, ok := apperr.As(err)
		if !ok || status >= fiber.StatusInternalServerError {
			log.Error("request failed", fields...)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": genericError,
				"code":  apperr.CodeInternal,
			})
		}
		log.Debug("request rejected", append(fields, zap.String("code", string(e.Code)))...)
		return c.Status(status).JSON(fiber.Map{"error": e.Message, "code": e.Code})
	}
}

func New(d Deps) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: ErrorHandler(d.Log),
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{Generator: uuid.NewString}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: d.AllowedOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))
	app.Use(metrics.Middleware())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", metrics.Handler())

	api := app.Group("/api")

	// Public auth
	api.Post("/auth/login", auth.LoginHandler(d.JWTSecret, d.JWTTTL, d.Repo, d.Log))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(d.JWTSecret, d.Repo))

	protected.Get("/auth/me", auth.MeHandler(d.Repo))

	// Sales entry
	protected.Post("/sales", auth.Require(access.OpCreateSalesRecord), sales.CreateSalesRecordHandler(d.Sales))
	protected.Get("/users/branch-agents", auth.Require(access.OpListBranchAgents), sales.BranchAgentsHandler(d.Sales, d.Repo))
	protected.Get("/users/branch-coordinators", auth.Require(access.OpListBranchCoordinators), sales.BranchCoordinatorsHandler(d.Sales, d.Repo))

	// Targets
	protected.Post("/targets/branch", auth.Require(access.OpSetBranchTarget), targets.SetBranchTargetHandler(d.Targets, d.Location))
	protected.Post("/targets/coordinator", auth.Require(access.OpSetCoordinatorTarget), targets.SetCoordinatorTargetHandler(d.Targets, d.Location))
	protected.Get("/targets/my-targets", auth.Require(access.OpViewTargets), targets.MyTargetsHandler(d.Targets))
	protected.Get("/targets/mytargets", auth.Require(access.OpViewTargets), targets.MyTargetsHandler(d.Targets))

	// Dashboards and reports
	dash := protected.Group("/dashboard")
	dash.Get("/admin-summary", auth.Require(access.OpViewAdminDashboard), dashboard.AdminSummaryHandler(d.Dashboard))
	dash.Get("/manager-summary", auth.Require(access.OpViewManagerDashboard), dashboard.ManagerSummaryHandler(d.Dashboard))
	dash.Get("/manager-targets-page", auth.Require(access.OpViewManagerTargetsPage), dashboard.ManagerTargetsPageHandler(d.Dashboard))
	dash.Get("/admin-report", auth.Require(access.OpViewReport), dashboard.AdminReportHandler(d.Dashboard))
	dash.Get("/manager-report", auth.Require(access.OpViewReport), dashboard.ManagerReportHandler(d.Dashboard))
	dash.Get("/coordinator-report", auth.Require(access.OpViewReport), dashboard.CoordinatorReportHandler(d.Dashboard))

	// Leaderboard
	protected.Get("/leaderboard", auth.Require(access.OpViewLeaderboard), leaderboard.Handler(d.Leaderboard))
	protected.Get("/leaderboard/export", auth.Require(access.OpViewLeaderboard), leaderboard.ExportHandler(d.Leaderboard))

	// Admin lookups
	protected.Get("/branches", auth.Require(access.OpListBranches), admin.ListBranchesHandler(d.Directory))
	protected.Get("/users/managers", auth.Require(access.OpListBranchManagers), admin.ListManagersHandler(d.Directory))

	// Insights
	protected.Get("/ai/insights", auth.Require(access.OpViewInsights), insights.RecentHandler(d.Insights))
	protected.Get("/ai/insights/range", auth.Require(access.OpViewInsights), insights.RangeHandler(d.Insights))
	// paths used by the existing web client
	protected.Get("/ai/summary", auth.Require(access.OpViewInsights), insights.RecentHandler(d.Insights))
	protected.Get("/ai/insights-by-date", auth.Require(access.OpViewInsights), insights.RangeHandler(d.Insights))

	return app
}
