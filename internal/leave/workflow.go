package leave

import (
	"errors"
	"math"
	"strings"

	"github.com/adamanr/hcm_gateway/internal/entity"
)

// Stage is which approval pipeline the viewer works in.
type Stage string

const (
	StageFinal   Stage = "final"
	StageManager Stage = "manager"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

var (
	ErrNoDaysRequested   = errors.New("leave has no requested days")
	ErrZeroDays          = errors.New("approved and unapproved days cannot both be zero")
	ErrDaysExceedRequest = errors.New("approved and unapproved days exceed the requested days")
	ErrRemarksRequired   = errors.New("remarks are required to reject a leave")
	ErrNegativeDays      = errors.New("day counts cannot be negative")
	ErrUnknownAction     = errors.New("unknown decision action")
)

// dayEpsilon absorbs float noise from half-day counts.
const dayEpsilon = 1e-9

// Decision is a validated decision ready to submit.
type Decision struct {
	Action         Action
	ApprovedDays   float64
	UnapprovedDays float64
	Remarks        string
}

// IsAuthorizer reports whether employeeID is in the authorizer list.
func IsAuthorizer(entries []entity.AuthorizationEntry, employeeID int64) bool {
	for _, e := range entries {
		if e.EmployeeID.Int64() == employeeID {
			return true
		}
	}

	return false
}

func RouteFor(isAuthorizer bool) Stage {
	if isAuthorizer {
		return StageFinal
	}

	return StageManager
}

// ExcludeOwn drops the viewer's own applications.
func ExcludeOwn(list []entity.LeaveApplication, employeeID int64) []entity.LeaveApplication {
	out := make([]entity.LeaveApplication, 0, len(list))
	for _, l := range list {
		if l.EmployeeID.Int64() != employeeID {
			out = append(out, l)
		}
	}

	return out
}

// BranchOf returns the viewer's branch restriction; zero means none.
func BranchOf(roles []entity.RoleDetail, employeeID int64) int64 {
	for _, r := range roles {
		if r.EmployeeID.Int64() == employeeID {
			return r.BranchID.Int64()
		}
	}

	return 0
}

// FilterByBranch keeps rows of the given branch. Branch zero keeps all.
func FilterByBranch(list []entity.LeaveApplication, branchID int64) []entity.LeaveApplication {
	if branchID == 0 {
		return list
	}

	out := make([]entity.LeaveApplication, 0, len(list))
	for _, l := range list {
		if l.BranchID.Int64() == branchID {
			out = append(out, l)
		}
	}

	return out
}

// ValidateRequest runs the checks that need no leave record: a known
// action, remarks for a rejection and a non-zero, non-negative day split
// for an approval. A rejection carries zero day counts.
func ValidateRequest(req entity.DecisionRequest) (Decision, error) {
	action := Action(strings.ToLower(strings.TrimSpace(req.Action)))
	remarks := strings.TrimSpace(req.Remarks)

	switch action {
	case ActionReject:
		if remarks == "" {
			return Decision{}, ErrRemarksRequired
		}
		return Decision{Action: ActionReject, Remarks: remarks}, nil
	case ActionApprove:
	default:
		return Decision{}, ErrUnknownAction
	}

	if req.ApprovedDays < 0 || req.UnapprovedDays < 0 {
		return Decision{}, ErrNegativeDays
	}
	if req.ApprovedDays+req.UnapprovedDays == 0 {
		return Decision{}, ErrZeroDays
	}

	return Decision{
		Action:         ActionApprove,
		ApprovedDays:   req.ApprovedDays,
		UnapprovedDays: req.UnapprovedDays,
		Remarks:        remarks,
	}, nil
}

// ValidateDecision checks a decision against the requested day count of
// the leave it applies to. A leave with no requested days cannot be
// decided either way.
func ValidateDecision(requestedDays float64, req entity.DecisionRequest) (Decision, error) {
	d, err := ValidateRequest(req)
	if err != nil {
		return Decision{}, err
	}

	if requestedDays <= 0 {
		return Decision{}, ErrNoDaysRequested
	}
	if d.Action == ActionReject {
		return d, nil
	}

	total := d.ApprovedDays + d.UnapprovedDays
	if math.IsNaN(total) || total-requestedDays > dayEpsilon {
		return Decision{}, ErrDaysExceedRequest
	}

	return d, nil
}

// Payload builds the backend body for a decision.
func Payload(session *entity.Session, leave *entity.LeaveApplication, d Decision, req entity.DecisionRequest) entity.ApprovalPayload {
	status := entity.ApprovalStatusApproved
	if d.Action == ActionReject {
		status = entity.ApprovalStatusRejected
	}

	return entity.ApprovalPayload{
		CompanyID:            session.CompanyID(),
		EmployeeID:           leave.EmployeeID.Int64(),
		ApplyLeaveID:         leave.Key(),
		ApprovedPaidLeave:    d.ApprovedDays,
		ApprovedUnpaidLeave:  d.UnapprovedDays,
		ApprovalStatus:       status,
		ReportingRemarks:     d.Remarks,
		TaskAssignEmployeeID: req.TaskAssignEmployeeID,
		TaskDescription:      strings.TrimSpace(req.TaskDescription),
		ApprovedBy:           session.EmployeeID(),
	}
}
