package controllers

import (
	"context"
	"log/slog"
	"time"

	"github.com/adamanr/hcm_gateway/internal/entity"
	"github.com/adamanr/hcm_gateway/internal/leave"
	"github.com/adamanr/hcm_gateway/internal/pagination"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	insertDecisionQuery = `INSERT INTO leave_decisions
		(id, apply_leave_id, employee_id, approver_id, company_id, stage, action, approved_days, unapproved_days, remarks, decided_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	countDecisionsQuery = `SELECT COUNT(*) FROM leave_decisions WHERE approver_id = $1`

	listDecisionsQuery = `SELECT id, apply_leave_id, employee_id, approver_id, company_id, stage, action,
		approved_days, unapproved_days, remarks, decided_at
		FROM leave_decisions WHERE approver_id = $1
		ORDER BY decided_at DESC LIMIT $2 OFFSET $3`
)

// LeaveApprovalController runs the leave approval workflow for the
// signed-in approver.
type LeaveApprovalController struct {
	deps *Dependens
	now  func() time.Time
}

func NewLeaveApprovalController(deps *Dependens) *LeaveApprovalController {
	return &LeaveApprovalController{
		deps: deps,
		now:  time.Now,
	}
}

// Authorizers lists who may give final approval for the viewer's context.
func (c *LeaveApprovalController) Authorizers(ctx context.Context, session *entity.Session) ([]entity.AuthorizationEntry, error) {
	req := entity.AuthorizationRequest{
		DepartmentID:   session.Employee.DepartmentID.Int64(),
		DesignationID:  session.Employee.DesignationID.Int64(),
		EmployeeID:     session.EmployeeID(),
		ControllerName: c.deps.Config.Workflow.ControllerName,
		ActionName:     c.deps.Config.Workflow.ActionName,
		ChildCompanyID: session.CompanyID(),
		BranchID:       session.Employee.BranchID.Int64(),
		UserType:       session.UserType(),
	}

	entries, err := c.deps.Backend.GetAuthorizedPersons(ctx, req)
	if err != nil {
		c.deps.Logger.Error("Error fetching authorized persons", slog.String("error", err.Error()))
		return nil, err
	}

	return entries, nil
}

func (c *LeaveApprovalController) Stage(ctx context.Context, session *entity.Session) (leave.Stage, error) {
	entries, err := c.Authorizers(ctx, session)
	if err != nil {
		return "", err
	}

	return leave.RouteFor(leave.IsAuthorizer(entries, session.EmployeeID())), nil
}

// Queue returns one page of the applications awaiting the viewer.
func (c *LeaveApprovalController) Queue(ctx context.Context, session *entity.Session, page, pageSize int) (*entity.ApprovalQueue, error) {
	stage, err := c.Stage(ctx, session)
	if err != nil {
		return nil, err
	}

	return c.queueFor(ctx, session, stage, page, pageSize)
}

func (c *LeaveApprovalController) queueFor(ctx context.Context, session *entity.Session, stage leave.Stage, page, pageSize int) (*entity.ApprovalQueue, error) {
	list, err := c.pending(ctx, session, stage)
	if err != nil {
		return nil, err
	}

	page, pageSize = pagination.Params(page, pageSize, c.deps.Config.Workflow.PageSize)

	return &entity.ApprovalQueue{
		Stage: string(stage),
		Page:  pagination.Paginate(list, page, pageSize),
	}, nil
}

// pending returns every application awaiting the viewer at the given stage,
// without the viewer's own rows and limited to the viewer's branch.
func (c *LeaveApprovalController) pending(ctx context.Context, session *entity.Session, stage leave.Stage) ([]entity.LeaveApplication, error) {
	var (
		list []entity.LeaveApplication
		err  error
	)

	if stage == leave.StageFinal {
		list, err = c.deps.Backend.GetFinalApprovalList(ctx, session.CompanyID(), session.EmployeeID())
	} else {
		list, err = c.deps.Backend.GetManagerApprovalList(ctx, session.CompanyID(), session.EmployeeID())
	}
	if err != nil {
		c.deps.Logger.Error("Error fetching approval list",
			slog.String("stage", string(stage)),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	list = leave.ExcludeOwn(list, session.EmployeeID())

	roles, err := c.deps.Backend.GetRoleDetails(ctx, session.CompanyID())
	if err != nil {
		c.deps.Logger.Error("Error fetching role details", slog.String("error", err.Error()))
		return nil, err
	}

	return leave.FilterByBranch(list, leave.BranchOf(roles, session.EmployeeID())), nil
}

func inQueue(list []entity.LeaveApplication, applyLeaveID int64) bool {
	for _, item := range list {
		if item.Key() == applyLeaveID {
			return true
		}
	}

	return false
}

// Detail fetches one application. Every call goes to the backend.
func (c *LeaveApprovalController) Detail(ctx context.Context, applyLeaveID int64) (*entity.LeaveApplication, error) {
	detail, err := c.deps.Backend.GetLeaveDetails(ctx, applyLeaveID)
	if err != nil {
		c.deps.Logger.Error("Error fetching leave details",
			slog.Int64("apply_leave_id", applyLeaveID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	return detail, nil
}

// CheckPayroll returns ErrPayrollAlreadyRun when payroll covering the
// leave's start date has already been processed.
func (c *LeaveApprovalController) CheckPayroll(ctx context.Context, session *entity.Session, detail *entity.LeaveApplication) error {
	result, err := c.deps.Backend.CheckPayrollCreation(ctx, entity.PayrollCheckRequest{
		EmployeeID:    detail.EmployeeID.Int64(),
		CompanyID:     session.CompanyID(),
		BranchID:      detail.BranchID.Int64(),
		FromLeaveDate: detail.FromLeaveDate,
	})
	if err != nil {
		c.deps.Logger.Error("Error checking payroll", slog.String("error", err.Error()))
		return err
	}

	if result.IsSuccess {
		c.deps.Logger.Warn("Payroll already processed",
			slog.Int64("apply_leave_id", detail.Key()),
			slog.String("from_leave_date", detail.FromLeaveDate),
		)
		return ErrPayrollAlreadyRun
	}

	return nil
}

// Decide validates and submits an approval or rejection, records it in the
// decision journal and returns the refreshed first page of the queue.
func (c *LeaveApprovalController) Decide(ctx context.Context, session *entity.Session, applyLeaveID int64, req entity.DecisionRequest) (*entity.DecisionResult, error) {
	if err := c.deps.validate(req); err != nil {
		return nil, err
	}
	if _, err := leave.ValidateRequest(req); err != nil {
		return nil, err
	}

	detail, err := c.Detail(ctx, applyLeaveID)
	if err != nil {
		return nil, err
	}

	if detail.EmployeeID.Int64() == session.EmployeeID() {
		return nil, ErrSelfDecision
	}

	decision, err := leave.ValidateDecision(detail.LeaveNo.Float64(), req)
	if err != nil {
		return nil, err
	}

	stage, err := c.Stage(ctx, session)
	if err != nil {
		return nil, err
	}

	queue, err := c.pending(ctx, session, stage)
	if err != nil {
		return nil, err
	}
	if !inQueue(queue, detail.Key()) {
		c.deps.Logger.Warn("Leave is not in the approver's queue",
			slog.Int64("apply_leave_id", detail.Key()),
			slog.Int64("approver_id", session.EmployeeID()),
			slog.String("stage", string(stage)),
		)
		return nil, ErrNotInQueue
	}

	next, err := leave.Transition(leave.ParseStatus(detail.Status), stage, decision.Action)
	if err != nil {
		c.deps.Logger.Warn("Refusing decision",
			slog.Int64("apply_leave_id", detail.Key()),
			slog.String("status", detail.Status),
			slog.String("stage", string(stage)),
		)
		return nil, err
	}

	if decision.Action == leave.ActionApprove {
		if err := c.CheckPayroll(ctx, session, detail); err != nil {
			return nil, err
		}
	}

	payload := leave.Payload(session, detail, decision, req)
	if stage == leave.StageFinal {
		err = c.deps.Backend.SaveLeaveFinalApproval(ctx, payload)
	} else {
		err = c.deps.Backend.SaveLeaveApproval(ctx, payload)
	}
	if err != nil {
		c.deps.Logger.Error("Error saving leave decision",
			slog.Int64("apply_leave_id", detail.Key()),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	c.deps.Logger.Info("Leave decision saved",
		slog.Int64("apply_leave_id", detail.Key()),
		slog.String("stage", string(stage)),
		slog.String("action", string(decision.Action)),
	)

	c.record(ctx, session, detail, stage, decision)

	result := &entity.DecisionResult{
		ApplyLeaveID: detail.Key(),
		Stage:        string(stage),
		Status:       next.String(),
	}

	refreshed, err := c.queueFor(ctx, session, stage, 1, c.deps.Config.Workflow.PageSize)
	if err != nil {
		c.deps.Logger.Warn("Error refreshing approval queue", slog.String("error", err.Error()))
		result.Queue = entity.ApprovalQueue{Stage: string(stage)}
		return result, nil
	}
	result.Queue = *refreshed

	return result, nil
}

func (c *LeaveApprovalController) record(ctx context.Context, session *entity.Session, detail *entity.LeaveApplication, stage leave.Stage, d leave.Decision) {
	_, err := c.deps.DB.Exec(ctx, insertDecisionQuery,
		uuid.New(),
		detail.Key(),
		detail.EmployeeID.Int64(),
		session.EmployeeID(),
		session.CompanyID(),
		string(stage),
		string(d.Action),
		d.ApprovedDays,
		d.UnapprovedDays,
		d.Remarks,
		c.now().UTC(),
	)
	if err != nil {
		c.deps.Logger.Error("Error recording leave decision",
			slog.Int64("apply_leave_id", detail.Key()),
			slog.String("error", err.Error()),
		)
	}
}

// Decisions pages through the decisions the viewer has made, newest first.
func (c *LeaveApprovalController) Decisions(ctx context.Context, session *entity.Session, page, pageSize int) (*entity.Page[entity.LeaveDecision], error) {
	page, pageSize = pagination.Params(page, pageSize, c.deps.Config.Workflow.PageSize)

	var total int
	if err := c.deps.DB.QueryRow(ctx, countDecisionsQuery, session.EmployeeID()).Scan(&total); err != nil {
		c.deps.Logger.Error("Error counting leave decisions", slog.String("error", err.Error()))
		return nil, err
	}

	if pagination.PastEnd(total, page, pageSize) {
		return &entity.Page[entity.LeaveDecision]{
			Items:      []entity.LeaveDecision{},
			Page:       page,
			PageSize:   pageSize,
			TotalItems: total,
			TotalPages: pagination.Pages(total, pageSize),
		}, nil
	}

	rows, err := c.deps.DB.Query(ctx, listDecisionsQuery, session.EmployeeID(), pageSize, (page-1)*pageSize)
	if err != nil {
		c.deps.Logger.Error("Error querying leave decisions", slog.String("error", err.Error()))
		return nil, err
	}
	defer rows.Close()

	decisions, err := pgx.CollectRows(rows, pgx.RowToStructByName[entity.LeaveDecision])
	if err != nil {
		c.deps.Logger.Error("Error collecting rows", slog.String("error", err.Error()))
		return nil, err
	}

	return &entity.Page[entity.LeaveDecision]{
		Items:      decisions,
		Page:       page,
		PageSize:   pageSize,
		TotalItems: total,
		TotalPages: pagination.Pages(total, pageSize),
	}, nil
}
