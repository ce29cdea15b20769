package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/adamanr/hcm_gateway/internal/controllers"
	"github.com/adamanr/hcm_gateway/internal/entity"
	"github.com/adamanr/hcm_gateway/internal/geo"
)

const maxBodyBytes = 1 << 20

type Server struct {
	deps        *controllers.Dependens
	Controllers *controllers.Controllers
}

func NewServer(deps *controllers.Dependens) *Server {
	return &Server{
		deps:        deps,
		Controllers: controllers.NewControllers(deps),
	}
}

var _ ServerInterface = (*Server)(nil)

// AuthLogin authenticates a user against the backend and returns a token pair.
func (s *Server) AuthLogin(w http.ResponseWriter, r *http.Request) {
	var req entity.LoginRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	resp, err := s.Controllers.AuthController.AuthLogin(r.Context(), &req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, resp, "success")
}

// AuthRefresh exchanges a refresh token for a new pair.
func (s *Server) AuthRefresh(w http.ResponseWriter, r *http.Request) {
	var req entity.RefreshRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	if req.RefreshToken == "" {
		s.respondError(w, r, &controllers.FieldError{Field: "refresh_token", Tag: "required"})
		return
	}

	resp, err := s.Controllers.AuthController.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, resp, "success")
}

// AuthLogout revokes the presented access token and the optional refresh token.
func (s *Server) AuthLogout(w http.ResponseWriter, r *http.Request) {
	var req entity.RefreshRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		s.deps.Logger.Warn("Error decoding request body", slog.String("path", r.URL.Path), slog.String("error", err.Error()))
		s.httpResponse(w, http.StatusBadRequest, map[string]string{"error": "Invalid request body"}, "error")
		return
	}

	session := sessionFrom(r.Context())
	if err := s.Controllers.AuthController.AuthLogout(r.Context(), session.Token, req.RefreshToken); err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, map[string]string{"message": "Logged out successfully"}, "success")
}

func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())

	s.httpResponse(w, http.StatusOK, session.Employee, "success")
}

func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var update entity.ProfileUpdate
	if !s.decodeBody(w, r, &update) {
		return
	}

	employee, err := s.Controllers.ProfileController.Update(r.Context(), sessionFrom(r.Context()), update)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, employee, "success")
}

func (s *Server) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req entity.PasswordChange
	if !s.decodeBody(w, r, &req) {
		return
	}

	if err := s.Controllers.ProfileController.ChangePassword(r.Context(), sessionFrom(r.Context()), req); err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, map[string]string{"message": "Password changed"}, "success")
}

// GetApprovalQueue returns the viewer's pending leave approvals for the stage they act at.
func (s *Server) GetApprovalQueue(w http.ResponseWriter, r *http.Request, params PageParams) {
	queue, err := s.Controllers.LeaveApprovalController.Queue(r.Context(), sessionFrom(r.Context()), intValue(params.Page), intValue(params.PageSize))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, queue, "success")
}

func (s *Server) GetLeaveDetails(w http.ResponseWriter, r *http.Request, id int64) {
	detail, err := s.Controllers.LeaveApprovalController.Detail(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, detail, "success")
}

// DecideLeave approves or rejects a leave application and returns the refreshed queue.
func (s *Server) DecideLeave(w http.ResponseWriter, r *http.Request, id int64) {
	var req entity.DecisionRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	result, err := s.Controllers.LeaveApprovalController.Decide(r.Context(), sessionFrom(r.Context()), id, req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, result, "success")
}

func (s *Server) GetDecisions(w http.ResponseWriter, r *http.Request, params PageParams) {
	page, err := s.Controllers.LeaveApprovalController.Decisions(r.Context(), sessionFrom(r.Context()), intValue(params.Page), intValue(params.PageSize))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, page, "success")
}

func (s *Server) GetGeoFence(w http.ResponseWriter, r *http.Request, params GeoFenceParams) {
	var point *geo.Point
	if params.Lat != nil && params.Lng != nil {
		point = &geo.Point{Latitude: *params.Lat, Longitude: *params.Lng}
	}

	view, err := s.Controllers.AttendanceController.GeoFence(r.Context(), sessionFrom(r.Context()), point)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, view, "success")
}

func (s *Server) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req entity.CheckInRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	record, err := s.Controllers.AttendanceController.CheckIn(r.Context(), sessionFrom(r.Context()), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusCreated, record, "success")
}

func (s *Server) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req entity.CheckOutRequest
	if !s.decodeBody(w, r, &req) {
		return
	}

	record, err := s.Controllers.AttendanceController.CheckOut(r.Context(), sessionFrom(r.Context()), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, record, "success")
}

// GetCurrentAttendance returns the open attendance record; data is null when not checked in.
func (s *Server) GetCurrentAttendance(w http.ResponseWriter, r *http.Request) {
	record, err := s.Controllers.AttendanceController.Current(r.Context(), sessionFrom(r.Context()))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, record, "success")
}

func (s *Server) GetAttendanceHistory(w http.ResponseWriter, r *http.Request, params PageParams) {
	page, err := s.Controllers.AttendanceController.History(r.Context(), sessionFrom(r.Context()), intValue(params.Page), intValue(params.PageSize))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, page, "success")
}

func (s *Server) GetPayslips(w http.ResponseWriter, r *http.Request, params PageParams) {
	page, err := s.Controllers.SelfServiceController.Payslips(r.Context(), sessionFrom(r.Context()), intValue(params.Page), intValue(params.PageSize))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, page, "success")
}

// GetPayslipPDF streams one payslip as application/pdf.
func (s *Server) GetPayslipPDF(w http.ResponseWriter, r *http.Request, id int64) {
	var buf bytes.Buffer
	if err := s.Controllers.SelfServiceController.PayslipPDF(r.Context(), sessionFrom(r.Context()), id, &buf); err != nil {
		s.respondError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"payslip-%d.pdf\"", id))
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		s.deps.Logger.Error("Error writing payslip", slog.String("error", err.Error()))
	}
}

func (s *Server) GetExitRequests(w http.ResponseWriter, r *http.Request, params PageParams) {
	page, err := s.Controllers.SelfServiceController.ExitRequests(r.Context(), sessionFrom(r.Context()), intValue(params.Page), intValue(params.PageSize))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, page, "success")
}

func (s *Server) GetExpenseRequests(w http.ResponseWriter, r *http.Request, params PageParams) {
	page, err := s.Controllers.SelfServiceController.ExpenseRequests(r.Context(), sessionFrom(r.Context()), intValue(params.Page), intValue(params.PageSize))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.httpResponse(w, http.StatusOK, page, "success")
}

// decodeBody reads a JSON request body into dst and answers 400 on failure.
func (s *Server) decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(dst)
	if err == nil {
		return true
	}

	s.deps.Logger.Warn("Error decoding request body", slog.String("path", r.URL.Path), slog.String("error", err.Error()))

	msg := "Invalid request body"
	if errors.Is(err, io.EOF) {
		msg = "Request body is empty"
	}
	s.httpResponse(w, http.StatusBadRequest, map[string]string{"error": msg}, "error")

	return false
}

func (s *Server) httpResponse(w http.ResponseWriter, status int, data any, respType string) {
	writeResponse(w, s.deps.Logger, status, data, respType)
}

func writeResponse(w http.ResponseWriter, logger *slog.Logger, status int, data any, respType string) {
	resp := map[string]any{
		"status": status,
		"type":   respType,
		"data":   data,
	}

	respData, marshalErr := json.Marshal(resp)
	if marshalErr != nil {
		logger.Error("Error marshaling response", slog.String("error", marshalErr.Error()))
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(respData); err != nil {
		logger.Error("Error writing response", slog.String("error", err.Error()))
	}
}

func bearerToken(header string) string {
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
