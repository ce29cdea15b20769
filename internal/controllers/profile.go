package controllers

import (
	"context"
	"log/slog"
	"strconv"
	"strings"

	"github.com/adamanr/hcm_gateway/internal/entity"
	"github.com/adamanr/hcm_gateway/internal/storage"
	"golang.org/x/sync/singleflight"
)

// ProfileController resolves the signed-in employee and edits the profile.
type ProfileController struct {
	deps  *Dependens
	kv    *storage.KV
	group singleflight.Group
}

func NewProfileController(deps *Dependens) *ProfileController {
	return &ProfileController{
		deps: deps,
		kv:   storage.NewKV(deps.Redis, deps.Config.Redis.ProfileTTL, deps.Logger),
	}
}

// Resolve returns the employee profile, cached in the key-value store.
// Concurrent misses for one employee share a single backend fetch.
func (c *ProfileController) Resolve(ctx context.Context, employeeID int64) (*entity.Employee, error) {
	cached, err := c.kv.Profile(ctx, employeeID)
	if err != nil {
		c.deps.Logger.Warn("Profile cache unavailable", slog.String("error", err.Error()))
	}
	if cached != nil {
		return cached, nil
	}

	v, err, _ := c.group.Do(strconv.FormatInt(employeeID, 10), func() (any, error) {
		fetchCtx := context.WithoutCancel(ctx)

		employee, err := c.deps.Backend.GetEmployee(fetchCtx, employeeID)
		if err != nil {
			c.deps.Logger.Error("Error fetching employee",
				slog.Int64("employee_id", employeeID),
				slog.String("error", err.Error()),
			)
			return nil, err
		}
		employee.Password = ""

		if err := c.kv.SetProfile(fetchCtx, *employee); err != nil {
			c.deps.Logger.Warn("Error caching profile", slog.String("error", err.Error()))
		}

		return employee, nil
	})
	if err != nil {
		return nil, err
	}

	employee := *v.(*entity.Employee)
	return &employee, nil
}

// Session builds the explicit caller context from verified claims.
func (c *ProfileController) Session(ctx context.Context, claims *entity.Claims, token string) (*entity.Session, error) {
	employee, err := c.Resolve(ctx, int64(claims.ID))
	if err != nil {
		return nil, err
	}

	return &entity.Session{Claims: claims, Employee: *employee, Token: token}, nil
}

func (c *ProfileController) Update(ctx context.Context, session *entity.Session, update entity.ProfileUpdate) (*entity.Employee, error) {
	if err := c.deps.validate(update); err != nil {
		return nil, err
	}

	employee, err := c.deps.Backend.GetEmployee(ctx, session.EmployeeID())
	if err != nil {
		c.deps.Logger.Error("Error fetching employee", slog.String("error", err.Error()))
		return nil, err
	}

	if update.Email != nil {
		employee.Email = strings.TrimSpace(*update.Email)
	}
	if update.MobileNo != nil {
		employee.MobileNo = strings.TrimSpace(*update.MobileNo)
	}
	if update.Address != nil {
		employee.Address = strings.TrimSpace(*update.Address)
	}
	employee.Password = ""

	if err := c.deps.Backend.SaveEmployee(ctx, *employee); err != nil {
		c.deps.Logger.Error("Error saving employee", slog.String("error", err.Error()))
		return nil, err
	}

	c.invalidate(ctx, session.EmployeeID())

	c.deps.Logger.Info("Profile updated", slog.Int64("employee_id", session.EmployeeID()))
	return employee, nil
}

// ChangePassword verifies the current password with the backend login
// before saving the new one.
func (c *ProfileController) ChangePassword(ctx context.Context, session *entity.Session, req entity.PasswordChange) error {
	if err := c.deps.validate(req); err != nil {
		return err
	}

	userName := ""
	if session.Claims != nil {
		userName = session.Claims.UserName
	}

	user, err := c.deps.Backend.AuthUser(ctx, entity.LoginRequest{
		UserName: userName,
		Password: req.OldPassword,
		UserType: int(session.UserType()),
	})
	if err != nil {
		if rejectedByBackend(err) {
			return ErrWrongPassword
		}

		c.deps.Logger.Error("Error verifying password", slog.String("error", err.Error()))
		return err
	}
	if user.EmployeeKey() != session.EmployeeID() {
		c.deps.Logger.Warn("Wrong current password", slog.Int64("employee_id", session.EmployeeID()))
		return ErrWrongPassword
	}

	employee, err := c.deps.Backend.GetEmployee(ctx, session.EmployeeID())
	if err != nil {
		c.deps.Logger.Error("Error fetching employee", slog.String("error", err.Error()))
		return err
	}
	employee.Password = req.NewPassword

	if err := c.deps.Backend.SaveEmployee(ctx, *employee); err != nil {
		c.deps.Logger.Error("Error saving password", slog.String("error", err.Error()))
		return err
	}

	c.invalidate(ctx, session.EmployeeID())

	c.deps.Logger.Info("Password changed", slog.Int64("employee_id", session.EmployeeID()))
	return nil
}

func (c *ProfileController) invalidate(ctx context.Context, employeeID int64) {
	if err := c.kv.DeleteProfile(ctx, employeeID); err != nil {
		c.deps.Logger.Warn("Error invalidating profile cache", slog.String("error", err.Error()))
	}
}
