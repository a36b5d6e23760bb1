package auth

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"salesperf-backend/internal/access"
	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/store"
)

const ctxUserKey = "current_user"

// JWTMiddleware verifies the bearer token and loads the user it names, so
// role and branch changes apply without a new login.
func JWTMiddleware(secret string, repo store.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperr.Unauthorized("missing Authorization header")
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return apperr.Unauthorized("Authorization header must be 'Bearer <token>'")
		}

		claims, err := ParseToken(secret, parts[1])
		if err != nil {
			return apperr.Unauthorized("invalid or expired token")
		}

		user, err := repo.GetUser(c.UserContext(), claims.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Unauthorized("user no longer exists")
		}
		if err != nil {
			return apperr.Internal(err, "could not load user")
		}

		c.Locals(ctxUserKey, user)
		return c.Next()
	}
}

// CurrentUser returns the principal loaded by JWTMiddleware.
func CurrentUser(c *fiber.Ctx) (*models.User, error) {
	user, ok := c.Locals(ctxUserKey).(*models.User)
	if !ok || user == nil {
		return nil, apperr.Unauthorized("not authenticated")
	}
	return user, nil
}

// Require rejects principals whose role may not run op at all.
func Require(op access.Operation) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := CurrentUser(c)
		if err != nil {
			return err
		}
		if !access.Allowed(user.Role, op) {
			return apperr.Forbidden("you are not allowed to perform this action")
		}
		return c.Next()
	}
}

// BranchQuery reads the optional branch_id query parameter admins use to
// pick a branch.
func BranchQuery(c *fiber.Ctx) (*uint, error) {
	raw := c.Query("branch_id")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return nil, apperr.Invalid("branch_id is invalid")
	}
	b := uint(id)
	return &b, nil
}
