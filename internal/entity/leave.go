package entity

import (
	"time"

	"github.com/google/uuid"
)

// LeaveApplication is both the approval-queue row and the detail record;
// the detail endpoint fills more of the fields.
type LeaveApplication struct {
	ID               FlexInt   `json:"id"`
	ApplyLeaveID     FlexInt   `json:"applyLeaveId"`
	EmployeeID       FlexInt   `json:"employeeId"`
	EmployeeName     string    `json:"employeeName"`
	Department       string    `json:"department"`
	Designation      string    `json:"designation"`
	BranchID         FlexInt   `json:"branchId"`
	LeaveName        string    `json:"leaveName"`
	LeaveNo          FlexFloat `json:"leaveNo"`
	FromLeaveDate    string    `json:"fromLeaveDate"`
	ToLeaveDate      string    `json:"toLeaveDate"`
	Remarks          string    `json:"remarks"`
	Status           string    `json:"status"`
	ReportingRemarks string    `json:"reportingRemarks"`
	DocumentPath     string    `json:"documentPath"`
}

// Key is the id the approval endpoints expect.
func (l LeaveApplication) Key() int64 {
	if l.ApplyLeaveID != 0 {
		return l.ApplyLeaveID.Int64()
	}

	return l.ID.Int64()
}

type AuthorizationRequest struct {
	DepartmentID   int64  `json:"DepartmentId"`
	DesignationID  int64  `json:"DesignationId"`
	EmployeeID     int64  `json:"EmployeeId"`
	ControllerName string `json:"ControllerName"`
	ActionName     string `json:"ActionName"`
	ChildCompanyID int64  `json:"ChildCompanyId"`
	BranchID       int64  `json:"BranchId"`
	UserType       int64  `json:"UserType"`
}

// AuthorizationEntry names one person allowed to give final approval.
type AuthorizationEntry struct {
	EmployeeID FlexInt `json:"employeeId"`
}

type RoleDetail struct {
	EmployeeID FlexInt `json:"employeeId"`
	RoleID     FlexInt `json:"roleId"`
	BranchID   FlexInt `json:"branchId"`
}

type PayrollCheckRequest struct {
	EmployeeID    int64  `json:"EmployeeId"`
	CompanyID     int64  `json:"CompanyId"`
	BranchID      int64  `json:"BranchId"`
	FromLeaveDate string `json:"fromLeaveDate"`
}

// BackendResult is the loose {isSuccess, message} answer several endpoints share.
type BackendResult struct {
	IsSuccess bool   `json:"isSuccess"`
	Message   string `json:"message"`
}

const (
	ApprovalStatusApproved = 1
	ApprovalStatusRejected = 2
)

type ApprovalPayload struct {
	CompanyID            int64   `json:"CompanyId"`
	EmployeeID           int64   `json:"EmployeeId"`
	ApplyLeaveID         int64   `json:"ApplyLeaveId"`
	ApprovedPaidLeave    float64 `json:"ApprovedPaidLeave"`
	ApprovedUnpaidLeave  float64 `json:"ApprovedUnpaidLeave"`
	ApprovalStatus       int     `json:"ApprovalStatus"`
	ReportingRemarks     string  `json:"ReportingRemarks"`
	TaskAssignEmployeeID int64   `json:"TaskAssignEmployeeId"`
	TaskDescription      string  `json:"TaskDescription"`
	ApprovedBy           int64   `json:"ApprovedBy"`
}

// DecisionRequest is what the approver submits for one leave application.
type DecisionRequest struct {
	Action               string  `json:"action" validate:"required,oneof=approve reject"`
	ApprovedDays         float64 `json:"approvedDays" validate:"gte=0"`
	UnapprovedDays       float64 `json:"unapprovedDays" validate:"gte=0"`
	Remarks              string  `json:"remarks" validate:"max=1000"`
	TaskAssignEmployeeID int64   `json:"taskAssignEmployeeId" validate:"gte=0"`
	TaskDescription      string  `json:"taskDescription" validate:"max=1000"`
}

type ApprovalQueue struct {
	Stage string                 `json:"stage"`
	Page  Page[LeaveApplication] `json:"page"`
}

type DecisionResult struct {
	ApplyLeaveID int64         `json:"applyLeaveId"`
	Stage        string        `json:"stage"`
	Status       string        `json:"status"`
	Queue        ApprovalQueue `json:"queue"`
}

// LeaveDecision is one row of the decision journal.
type LeaveDecision struct {
	ID             uuid.UUID `json:"id" db:"id"`
	ApplyLeaveID   int64     `json:"applyLeaveId" db:"apply_leave_id"`
	EmployeeID     int64     `json:"employeeId" db:"employee_id"`
	ApproverID     int64     `json:"approverId" db:"approver_id"`
	CompanyID      int64     `json:"companyId" db:"company_id"`
	Stage          string    `json:"stage" db:"stage"`
	Action         string    `json:"action" db:"action"`
	ApprovedDays   float64   `json:"approvedDays" db:"approved_days"`
	UnapprovedDays float64   `json:"unapprovedDays" db:"unapproved_days"`
	Remarks        string    `json:"remarks" db:"remarks"`
	DecidedAt      time.Time `json:"decidedAt" db:"decided_at"`
}

// Page is one slice of an in-memory list.
type Page[T any] struct {
	Items      []T `json:"items"`
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	TotalItems int `json:"totalItems"`
	TotalPages int `json:"totalPages"`
}
