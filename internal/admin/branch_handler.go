// Package admin serves the read-only lookups admins use to pick branches and
// managers when scoping dashboards and setting targets.
package admin

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"

	"salesperf-backend/internal/access"
	"salesperf-backend/internal/apperr"
	"salesperf-backend/internal/auth"
	"salesperf-backend/internal/models"
	"salesperf-backend/internal/store"
)

type Contact struct {
	ID    uint   `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type BranchResponse struct {
	ID                uint      `json:"_id"`
	Name              string    `json:"name"`
	Location          string    `json:"location"`
	CreatedAt         time.Time `json:"createdAt"`
	BranchManager     *Contact  `json:"branchManager"`
	BranchCoordinator *Contact  `json:"branchCoordinator"`
	TotalAgents       int       `json:"totalAgents"`
}

type BranchRef struct {
	ID   uint   `json:"_id"`
	Name string `json:"name"`
}

type ManagerResponse struct {
	ID     uint       `json:"_id"`
	Name   string     `json:"name"`
	Email  string     `json:"email"`
	Role   string     `json:"role"`
	Branch *BranchRef `json:"branch"`
}

type Directory struct {
	repo store.Repository
}

func NewDirectory(repo store.Repository) *Directory {
	return &Directory{repo: repo}
}

// load fetches every branch and every user together.
func (d *Directory) load(ctx context.Context) ([]models.Branch, []models.User, error) {
	var (
		branches []models.Branch
		users    []models.User
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		branches, err = d.repo.ListBranches(gctx)
		return err
	})
	g.Go(func() (err error) {
		users, err = d.repo.ListUsers(gctx, store.UserFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, apperr.Internal(err, "could not load branches")
	}
	return branches, users, nil
}

// Branches lists every branch, newest first, with its first manager and
// coordinator and its agent head count.
func (d *Directory) Branches(ctx context.Context, actor *models.User) ([]BranchResponse, error) {
	if !access.CanPerform(actor.Role, access.OpListBranches, access.ScopeGlobal) {
		return nil, apperr.Forbidden("admin access required")
	}
	branches, users, err := d.load(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[uint]*BranchResponse, len(branches))
	res := make([]BranchResponse, len(branches))
	for i, b := range branches {
		j := len(branches) - 1 - i
		res[j] = BranchResponse{ID: b.ID, Name: b.Name, Location: b.Location, CreatedAt: b.CreatedAt}
		byID[b.ID] = &res[j]
	}
	for _, u := range users {
		if u.BranchID == nil {
			continue
		}
		b, ok := byID[*u.BranchID]
		if !ok {
			continue
		}
		switch u.Role {
		case models.RoleBranchManager:
			if b.BranchManager == nil {
				b.BranchManager = &Contact{ID: u.ID, Name: u.Name, Email: u.Email}
			}
		case models.RoleCoordinator:
			if b.BranchCoordinator == nil {
				b.BranchCoordinator = &Contact{ID: u.ID, Name: u.Name, Email: u.Email}
			}
		case models.RoleAgent:
			b.TotalAgents++
		}
	}
	return res, nil
}

// Managers lists every branch manager with the branch they run.
func (d *Directory) Managers(ctx context.Context, actor *models.User) ([]ManagerResponse, error) {
	if !access.CanPerform(actor.Role, access.OpListBranchManagers, access.ScopeGlobal) {
		return nil, apperr.Forbidden("admin access required")
	}
	branches, users, err := d.load(ctx)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(branches))
	for _, b := range branches {
		names[b.ID] = b.Name
	}

	res := make([]ManagerResponse, 0)
	for _, u := range users {
		if u.Role != models.RoleBranchManager {
			continue
		}
		m := ManagerResponse{ID: u.ID, Name: u.Name, Email: u.Email, Role: string(u.Role)}
		if u.BranchID != nil {
			m.Branch = &BranchRef{ID: *u.BranchID, Name: names[*u.BranchID]}
		}
		res = append(res, m)
	}
	return res, nil
}

// GET /api/branches
func ListBranchesHandler(d *Directory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		res, err := d.Branches(c.UserContext(), user)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}

// GET /api/users/managers
func ListManagersHandler(d *Directory) fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := auth.CurrentUser(c)
		if err != nil {
			return err
		}
		res, err := d.Managers(c.UserContext(), user)
		if err != nil {
			return err
		}
		return c.JSON(res)
	}
}
