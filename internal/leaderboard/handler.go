package leaderboard

import (
	"github.com/gofiber/fiber/v2"

	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/auth"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func rank(c *fiber.Ctx, svc *Service) (Params, []Entry, error) {
	user, err := auth.CurrentUser(c)
	if err != nil {
		return Params{}, nil, err
	}
	p, err := ParseParams(c.Query("type"), c.Query("metric"), c.Query("period"))
	if err != nil {
		return Params{}, nil, err
	}
	entries, err := svc.Rank(c.UserContext(), user, p)
	return p, entries, err
}

// GET /api/leaderboard?type=&metric=&period=
func Handler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		_, entries, err := rank(c, svc)
		if err != nil {
			return err
		}
		return c.JSON(entries)
	}
}

// GET /api/leaderboard/export?type=&metric=&period=
func ExportHandler(svc *Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		p, entries, err := rank(c, svc)
		if err != nil {
			return err
		}
		buf, err := Export(entries)
		if err != nil {
			return apperr.Internal(err, "could not build workbook")
		}
		c.Attachment(FileName(p))
		c.Set(fiber.HeaderContentType, xlsxContentType)
		return c.Send(buf.Bytes())
	}
}
