package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/adamanr/hcm_gateway/internal/backend"
	"github.com/adamanr/hcm_gateway/internal/controllers"
	"github.com/adamanr/hcm_gateway/internal/geo"
	"github.com/adamanr/hcm_gateway/internal/leave"
)

var (
	badRequest = []error{
		controllers.ErrValidation,
		leave.ErrNoDaysRequested,
		leave.ErrZeroDays,
		leave.ErrDaysExceedRequest,
		leave.ErrRemarksRequired,
		leave.ErrNegativeDays,
		leave.ErrUnknownAction,
		geo.ErrInvalidCoordinates,
	}
	unauthorized = []error{
		controllers.ErrInvalidCredentials,
		controllers.ErrInvalidToken,
		controllers.ErrTokenRevoked,
	}
	forbidden = []error{
		controllers.ErrWrongPassword,
		controllers.ErrSelfDecision,
		controllers.ErrNotInQueue,
		controllers.ErrOutsideFence,
		controllers.ErrFaceNotVerified,
	}
	conflict = []error{
		controllers.ErrPayrollAlreadyRun,
		controllers.ErrAlreadyCheckedIn,
		controllers.ErrNotCheckedIn,
		leave.ErrInvalidTransition,
	}
)

// statusFor maps an error to the HTTP status and the message shown to the client.
func statusFor(err error) (int, string) {
	var paramErr *InvalidParamFormatError
	if errors.As(err, &paramErr) {
		return http.StatusBadRequest, paramErr.Error()
	}

	for _, group := range []struct {
		status int
		errs   []error
	}{
		{http.StatusBadRequest, badRequest},
		{http.StatusUnauthorized, unauthorized},
		{http.StatusForbidden, forbidden},
		{http.StatusConflict, conflict},
	} {
		for _, target := range group.errs {
			if errors.Is(err, target) {
				return group.status, err.Error()
			}
		}
	}

	if errors.Is(err, backend.ErrNotFound) {
		return http.StatusNotFound, "Not found"
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, backend.GenericMessage
	}

	var upstream *backend.Error
	if errors.As(err, &upstream) {
		return http.StatusBadGateway, upstream.UserMessage()
	}

	return http.StatusInternalServerError, "Internal server error"
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)

	if status >= http.StatusInternalServerError {
		s.deps.Logger.Error("Request failed",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	} else {
		s.deps.Logger.Warn("Request rejected",
			slog.String("path", r.URL.Path),
			slog.Int("status", status),
			slog.String("error", err.Error()),
		)
	}

	s.httpResponse(w, status, map[string]string{"error": msg}, "error")
}
