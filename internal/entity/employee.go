package entity

import (
	"github.com/golang-jwt/jwt/v5"
)

// Employee is the profile returned by EmpRegistration/GetEmpRegistrationById.
type Employee struct {
	ID             FlexInt `json:"id"`
	EmployeeCode   string  `json:"employeeCode"`
	EmployeeName   string  `json:"employeeName"`
	DepartmentID   FlexInt `json:"departmentId"`
	DepartmentName string  `json:"departmentName,omitempty"`
	DesignationID  FlexInt `json:"designationId"`
	Designation    string  `json:"designationName,omitempty"`
	ChildCompanyID FlexInt `json:"childCompanyId"`
	BranchID       FlexInt `json:"branchId"`
	UserType       FlexInt `json:"userType"`
	Email          string  `json:"email"`
	MobileNo       string  `json:"mobileNo"`
	Address        string  `json:"address"`
	Password       string  `json:"password,omitempty"`
}

// AuthUser is the answer of EmpRegistration/GetAuthUser.
type AuthUser struct {
	ID             FlexInt `json:"id"`
	EmployeeID     FlexInt `json:"employeeId"`
	UserName       string  `json:"userName"`
	UserType       FlexInt `json:"userType"`
	ChildCompanyID FlexInt `json:"childCompanyId"`
	Message        string  `json:"message"`
}

// EmployeeKey returns the employee id, falling back to the user id for
// backends that only send one of them.
func (u AuthUser) EmployeeKey() int64 {
	if u.EmployeeID != 0 {
		return u.EmployeeID.Int64()
	}

	return u.ID.Int64()
}

type LoginRequest struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
	UserType int    `json:"userType" validate:"omitempty,min=1"`
}

type LoginResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Employee     *Employee `json:"employee,omitempty"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ProfileUpdate struct {
	Email    *string `json:"email" validate:"omitempty,email"`
	MobileNo *string `json:"mobileNo" validate:"omitempty,min=6,max=20"`
	Address  *string `json:"address" validate:"omitempty,max=500"`
}

type PasswordChange struct {
	OldPassword string `json:"oldPassword" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,nefield=OldPassword"`
}

type Claims struct {
	jwt.RegisteredClaims

	ID        uint64 `json:"id"`
	UserName  string `json:"user_name"`
	CompanyID int64  `json:"company_id"`
	UserType  int64  `json:"user_type"`
	TokenType string `json:"token_type"`
	TokenID   string `json:"token_id"`
}

// Session is the signed-in caller: verified token claims plus the resolved
// employee profile. It is passed explicitly to every workflow step.
type Session struct {
	Claims   *Claims
	Employee Employee
	Token    string
}

func (s *Session) EmployeeID() int64 {
	if s.Employee.ID != 0 {
		return s.Employee.ID.Int64()
	}
	if s.Claims == nil {
		return 0
	}

	return int64(s.Claims.ID)
}

func (s *Session) CompanyID() int64 {
	if s.Employee.ChildCompanyID != 0 {
		return s.Employee.ChildCompanyID.Int64()
	}
	if s.Claims == nil {
		return 0
	}

	return s.Claims.CompanyID
}

func (s *Session) UserType() int64 {
	if s.Employee.UserType != 0 {
		return s.Employee.UserType.Int64()
	}
	if s.Claims != nil && s.Claims.UserType != 0 {
		return s.Claims.UserType
	}

	return 1
}
