package controllers

import (
	"context"
	"log/slog"
	"time"

	"github.com/adamanr/hcm_gateway/internal/config"
	"github.com/adamanr/hcm_gateway/internal/entity"
	"github.com/go-playground/validator/v10"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

type Controllers struct {
	AuthController          *AuthController
	ProfileController       *ProfileController
	LeaveApprovalController *LeaveApprovalController
	AttendanceController    *AttendanceController
	SelfServiceController   *SelfServiceController
}

func NewControllers(deps *Dependens) *Controllers {
	return &Controllers{
		AuthController:          NewAuthController(deps),
		ProfileController:       NewProfileController(deps),
		LeaveApprovalController: NewLeaveApprovalController(deps),
		AttendanceController:    NewAttendanceController(deps),
		SelfServiceController:   NewSelfServiceController(deps),
	}
}

// Backend is the part of the HCM REST backend the controllers use.
type Backend interface {
	GetEmployee(ctx context.Context, employeeID int64) (*entity.Employee, error)
	AuthUser(ctx context.Context, req entity.LoginRequest) (*entity.AuthUser, error)
	SaveEmployee(ctx context.Context, employee entity.Employee) error
	GetAuthorizedPersons(ctx context.Context, req entity.AuthorizationRequest) ([]entity.AuthorizationEntry, error)
	GetFinalApprovalList(ctx context.Context, companyID, employeeID int64) ([]entity.LeaveApplication, error)
	GetManagerApprovalList(ctx context.Context, companyID, employeeID int64) ([]entity.LeaveApplication, error)
	GetLeaveDetails(ctx context.Context, applyLeaveID int64) (*entity.LeaveApplication, error)
	GetRoleDetails(ctx context.Context, companyID int64) ([]entity.RoleDetail, error)
	CheckPayrollCreation(ctx context.Context, req entity.PayrollCheckRequest) (*entity.BackendResult, error)
	SaveLeaveApproval(ctx context.Context, payload entity.ApprovalPayload) error
	SaveLeaveFinalApproval(ctx context.Context, payload entity.ApprovalPayload) error
	GetGeoFence(ctx context.Context, companyID int64) (*entity.GeoFence, error)
	GetPayslips(ctx context.Context, companyID, employeeID int64) ([]entity.Payslip, error)
	GetExitRequests(ctx context.Context, companyID, employeeID int64) ([]entity.ExitRequest, error)
	GetExpenseRequests(ctx context.Context, companyID, employeeID int64) ([]entity.ExpenseRequest, error)
}

type Dependens struct {
	DB interface {
		Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
		QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
		Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	}
	Redis interface {
		Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
		Get(ctx context.Context, key string) *redis.StringCmd
		Del(ctx context.Context, keys ...string) *redis.IntCmd
	}
	Backend   Backend
	Validator *validator.Validate
	Logger    *slog.Logger
	Config    *config.Config
}
