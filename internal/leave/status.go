package leave

import (
	"errors"
	"strings"
)

// Status is the parsed form of the backend's free-text leave status.
type Status int

const (
	StatusUnknown Status = iota
	StatusPending
	StatusApprovedByManager
	StatusApproved
	StatusRejected
)

var ErrInvalidTransition = errors.New("leave is not awaiting this decision")

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusApprovedByManager:
		return "ApprovedByManager"
	case StatusApproved:
		return "Approved"
	case StatusRejected:
		return "Rejected"
	default:
		return "Unknown"
	}
}

// Terminal reports whether no further decision is accepted.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// ParseStatus maps the backend text onto a Status. Matching ignores case
// and surrounding whitespace.
func ParseStatus(raw string) Status {
	text := strings.ToLower(strings.TrimSpace(raw))

	switch {
	case text == "" || strings.Contains(text, "pending"):
		return StatusPending
	case strings.Contains(text, "reject"):
		return StatusRejected
	case strings.Contains(text, "approved") && strings.Contains(text, "manager"):
		return StatusApprovedByManager
	case strings.Contains(text, "approved"):
		return StatusApproved
	default:
		return StatusUnknown
	}
}

// Transition returns the status a decision at the given stage produces.
// Unknown statuses are let through as pending, since the backend remains
// the authority on what it accepts.
func Transition(from Status, stage Stage, action Action) (Status, error) {
	if from == StatusUnknown {
		from = StatusPending
	}
	if from.Terminal() {
		return from, ErrInvalidTransition
	}

	if action == ActionReject {
		return StatusRejected, nil
	}

	switch stage {
	case StageFinal:
		return StatusApproved, nil
	case StageManager:
		if from == StatusApprovedByManager {
			return from, ErrInvalidTransition
		}
		return StatusApprovedByManager, nil
	default:
		return from, ErrInvalidTransition
	}
}
