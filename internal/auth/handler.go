package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/store"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type UserResponse struct {
	ID       uint        `json:"_id"`
	Name     string      `json:"name"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	BranchID *uint       `json:"branch"`
}

type BranchInfo struct {
	ID       uint   `json:"_id"`
	Name     string `json:"name"`
	Location string `json:"location"`
}

func toUserResponse(u *models.User) UserResponse {
	return UserResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, BranchID: u.BranchID}
}

const badCredentials = "invalid email or password"

func LoginHandler(secret string, ttl time.Duration, repo store.Repository, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var body LoginRequest
		if err := c.BodyParser(&body); err != nil {
			return apperr.Invalid("invalid request body")
		}

		body.Email = strings.TrimSpace(strings.ToLower(body.Email))
		if body.Email == "" || body.Password == "" {
			return apperr.Invalid("email and password are required")
		}

		user, err := repo.GetUserByEmail(c.UserContext(), body.Email)
		if errors.Is(err, store.ErrNotFound) {
			return apperr.Unauthorized(badCredentials)
		}
		if err != nil {
			return apperr.Internal(err, "could not load user")
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(body.Password)); err != nil {
			log.Debug("login rejected", zap.Uint("user_id", user.ID))
			return apperr.Unauthorized(badCredentials)
		}

		token, err := GenerateToken(secret, ttl, user, time.Now())
		if err != nil {
			return apperr.Internal(err, "could not issue token")
		}

		return c.JSON(fiber.Map{
			"token": token,
			"user":  toUserResponse(user),
		})
	}
}

func MeHandler(repo store.Repository) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := CurrentUser(c)
		if err != nil {
			return err
		}

		response := fiber.Map{"user": toUserResponse(user)}
		if user.BranchID != nil {
			branch, err := repo.GetBranch(c.UserContext(), *user.BranchID)
			switch {
			case err == nil:
				response["branch"] = BranchInfo{ID: branch.ID, Name: branch.Name, Location: branch.Location}
			case !errors.Is(err, store.ErrNotFound):
				return apperr.Internal(err, "could not load branch")
			}
		}
		return c.JSON(response)
	}
}
