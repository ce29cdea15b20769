package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/adamanr/hcm_gateway/internal/entity"
)

const (
	epEmployee        = "EmpRegistration/GetEmpRegistrationById"
	epAuthUser        = "EmpRegistration/GetAuthUser"
	epSaveEmployee    = "EmpRegistration/SaveEmpRegistration"
	epAuthorizers     = "FunctionalAccess/GetAllAuthorizatonPersonForTheAction"
	epFinalList       = "ApplyLeave/GetLeaveListForFinalApproval"
	epManagerList     = "ApplyLeave/GetApplyLeaveListForApproval"
	epLeaveDetail     = "ApplyLeave/GetApplyLeaveDetailsById"
	epRoleDetails     = "RoleConfiguration/getAllRoleDetailsCompanyWise"
	epPayrollCheck    = "PayRollRun/CheckPayRollCreationForLeaveApproval"
	epSaveApproval    = "LeaveApproval/SaveLeaveApproval"
	epSaveFinal       = "LeaveApproval/SaveLeaveFinalApproval"
	epGeoFence        = "GeoFencing/GetGeoFenceDetails"
	epPayslips        = "PaySlip/GetPaySlipListByEmployeeId"
	epExitRequests    = "EmployeeExit/GetEmployeeExitListByEmployeeId"
	epExpenseRequests = "ExpenseRequest/GetExpenseRequestListByEmployeeId"
)

func (c *Client) GetEmployee(ctx context.Context, employeeID int64) (*entity.Employee, error) {
	var employee entity.Employee
	if err := c.get(ctx, epEmployee, &employee, employeeID); err != nil {
		return nil, notFound(err)
	}
	if employee.ID == 0 {
		return nil, ErrNotFound
	}

	return &employee, nil
}

func (c *Client) AuthUser(ctx context.Context, req entity.LoginRequest) (*entity.AuthUser, error) {
	var user entity.AuthUser
	if err := c.do(ctx, http.MethodPost, epAuthUser, epAuthUser, req, &user); err != nil {
		return nil, notFound(err)
	}

	return &user, nil
}

func (c *Client) SaveEmployee(ctx context.Context, employee entity.Employee) error {
	return c.save(ctx, epSaveEmployee, employee)
}

func (c *Client) GetAuthorizedPersons(ctx context.Context, req entity.AuthorizationRequest) ([]entity.AuthorizationEntry, error) {
	var entries []entity.AuthorizationEntry
	if err := c.do(ctx, http.MethodPost, epAuthorizers, epAuthorizers, req, &entries); err != nil && !errors.Is(err, errEmptyBody) {
		return nil, err
	}

	return entries, nil
}

func (c *Client) GetFinalApprovalList(ctx context.Context, companyID, employeeID int64) ([]entity.LeaveApplication, error) {
	var list []entity.LeaveApplication
	if err := c.get(ctx, epFinalList, &list, companyID, employeeID); err != nil && !errors.Is(err, errEmptyBody) {
		return nil, err
	}

	return list, nil
}

func (c *Client) GetManagerApprovalList(ctx context.Context, companyID, employeeID int64) ([]entity.LeaveApplication, error) {
	var list []entity.LeaveApplication
	if err := c.get(ctx, epManagerList, &list, companyID, employeeID); err != nil && !errors.Is(err, errEmptyBody) {
		return nil, err
	}

	return list, nil
}

func (c *Client) GetLeaveDetails(ctx context.Context, applyLeaveID int64) (*entity.LeaveApplication, error) {
	var leave entity.LeaveApplication
	if err := c.get(ctx, epLeaveDetail, &leave, applyLeaveID); err != nil {
		return nil, notFound(err)
	}
	if leave.Key() == 0 {
		return nil, ErrNotFound
	}

	return &leave, nil
}

func (c *Client) GetRoleDetails(ctx context.Context, companyID int64) ([]entity.RoleDetail, error) {
	var roles []entity.RoleDetail
	if err := c.get(ctx, epRoleDetails, &roles, companyID); err != nil && !errors.Is(err, errEmptyBody) {
		return nil, err
	}

	return roles, nil
}

// CheckPayrollCreation reports whether payroll already ran for the
// employee and period of the leave.
func (c *Client) CheckPayrollCreation(ctx context.Context, req entity.PayrollCheckRequest) (*entity.BackendResult, error) {
	var result entity.BackendResult
	if err := c.do(ctx, http.MethodPost, epPayrollCheck, epPayrollCheck, req, &result); err != nil && !errors.Is(err, errEmptyBody) {
		return nil, err
	}

	return &result, nil
}

func (c *Client) SaveLeaveApproval(ctx context.Context, payload entity.ApprovalPayload) error {
	return c.save(ctx, epSaveApproval, payload)
}

func (c *Client) SaveLeaveFinalApproval(ctx context.Context, payload entity.ApprovalPayload) error {
	return c.save(ctx, epSaveFinal, payload)
}

func (c *Client) GetGeoFence(ctx context.Context, companyID int64) (*entity.GeoFence, error) {
	var fence entity.GeoFence
	if err := c.get(ctx, epGeoFence, &fence, companyID); err != nil {
		return nil, notFound(err)
	}

	return &fence, nil
}

func (c *Client) GetPayslips(ctx context.Context, companyID, employeeID int64) ([]entity.Payslip, error) {
	var list []entity.Payslip
	if err := c.get(ctx, epPayslips, &list, companyID, employeeID); err != nil && !errors.Is(err, errEmptyBody) {
		return nil, err
	}

	return list, nil
}

func (c *Client) GetExitRequests(ctx context.Context, companyID, employeeID int64) ([]entity.ExitRequest, error) {
	var list []entity.ExitRequest
	if err := c.get(ctx, epExitRequests, &list, companyID, employeeID); err != nil && !errors.Is(err, errEmptyBody) {
		return nil, err
	}

	return list, nil
}

func (c *Client) GetExpenseRequests(ctx context.Context, companyID, employeeID int64) ([]entity.ExpenseRequest, error) {
	var list []entity.ExpenseRequest
	if err := c.get(ctx, epExpenseRequests, &list, companyID, employeeID); err != nil && !errors.Is(err, errEmptyBody) {
		return nil, err
	}

	return list, nil
}

func (c *Client) get(ctx context.Context, endpoint string, out any, ids ...int64) error {
	path := endpoint
	for _, id := range ids {
		path = fmt.Sprintf("%s/%d", path, id)
	}

	return c.do(ctx, http.MethodGet, endpoint, path, nil, out)
}

// save posts a payload to an endpoint that answers with an optional
// {isSuccess, message}. An explicit isSuccess=false is a failure.
func (c *Client) save(ctx context.Context, endpoint string, payload any) error {
	var raw json.RawMessage

	err := c.do(ctx, http.MethodPost, endpoint, endpoint, payload, &raw)
	switch {
	case errors.Is(err, errEmptyBody):
		return nil
	case err != nil:
		return err
	}

	var result struct {
		IsSuccess *bool  `json:"isSuccess"`
		Message   string `json:"message"`
	}
	if json.Unmarshal(raw, &result) == nil && result.IsSuccess != nil && !*result.IsSuccess {
		return &Error{Endpoint: endpoint, Status: http.StatusOK, Message: result.Message}
	}

	return nil
}

func notFound(err error) error {
	if errors.Is(err, errEmptyBody) {
		return ErrNotFound
	}

	return err
}
