package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

// PageParams defines parameters for paginated listings.
type PageParams struct {
	Page     *int `form:"page,omitempty" json:"page,omitempty"`
	PageSize *int `form:"page_size,omitempty" json:"page_size,omitempty"`
}

// GeoFenceParams defines parameters for GetGeoFence.
type GeoFenceParams struct {
	Lat *float64 `form:"lat,omitempty" json:"lat,omitempty"`
	Lng *float64 `form:"lng,omitempty" json:"lng,omitempty"`
}

// ServerInterface represents all server handlers behind /api/v1.
type ServerInterface interface {
	// (POST /auth/login)
	AuthLogin(w http.ResponseWriter, r *http.Request)
	// (POST /auth/refresh)
	AuthRefresh(w http.ResponseWriter, r *http.Request)
	// (POST /auth/logout)
	AuthLogout(w http.ResponseWriter, r *http.Request)
	// (GET /profile)
	GetProfile(w http.ResponseWriter, r *http.Request)
	// (PUT /profile)
	UpdateProfile(w http.ResponseWriter, r *http.Request)
	// (POST /profile/password)
	ChangePassword(w http.ResponseWriter, r *http.Request)
	// (GET /leave/approvals)
	GetApprovalQueue(w http.ResponseWriter, r *http.Request, params PageParams)
	// (GET /leave/approvals/{id})
	GetLeaveDetails(w http.ResponseWriter, r *http.Request, id int64)
	// (POST /leave/approvals/{id}/decision)
	DecideLeave(w http.ResponseWriter, r *http.Request, id int64)
	// (GET /leave/decisions)
	GetDecisions(w http.ResponseWriter, r *http.Request, params PageParams)
	// (GET /attendance/geofence)
	GetGeoFence(w http.ResponseWriter, r *http.Request, params GeoFenceParams)
	// (POST /attendance/check-in)
	CheckIn(w http.ResponseWriter, r *http.Request)
	// (POST /attendance/check-out)
	CheckOut(w http.ResponseWriter, r *http.Request)
	// (GET /attendance/current)
	GetCurrentAttendance(w http.ResponseWriter, r *http.Request)
	// (GET /attendance/history)
	GetAttendanceHistory(w http.ResponseWriter, r *http.Request, params PageParams)
	// (GET /payslips)
	GetPayslips(w http.ResponseWriter, r *http.Request, params PageParams)
	// (GET /payslips/{id}/pdf)
	GetPayslipPDF(w http.ResponseWriter, r *http.Request, id int64)
	// (GET /exit-requests)
	GetExitRequests(w http.ResponseWriter, r *http.Request, params PageParams)
	// (GET /expense-requests)
	GetExpenseRequests(w http.ResponseWriter, r *http.Request, params PageParams)
}

// InvalidParamFormatError is returned when a path or query parameter cannot be bound.
type InvalidParamFormatError struct {
	ParamName string
	Err       error
}

func (e *InvalidParamFormatError) Error() string {
	return fmt.Sprintf("invalid format for parameter %s: %s", e.ParamName, e.Err.Error())
}

func (e *InvalidParamFormatError) Unwrap() error {
	return e.Err
}

// ServerInterfaceWrapper binds request parameters and dispatches to the handler.
type ServerInterfaceWrapper struct {
	Handler          ServerInterface
	ErrorHandlerFunc func(w http.ResponseWriter, r *http.Request, err error)
}

func (siw *ServerInterfaceWrapper) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	var id int64

	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id, runtime.BindStyledParameterOptions{
		ParamLocation: runtime.ParamLocationPath,
		Explode:       false,
		Required:      true,
	})
	if err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "id", Err: err})
		return 0, false
	}

	return id, true
}

func (siw *ServerInterfaceWrapper) pageParams(w http.ResponseWriter, r *http.Request) (PageParams, bool) {
	var params PageParams

	if err := runtime.BindQueryParameter("form", true, false, "page", r.URL.Query(), &params.Page); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "page", Err: err})
		return params, false
	}

	if err := runtime.BindQueryParameter("form", true, false, "page_size", r.URL.Query(), &params.PageSize); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "page_size", Err: err})
		return params, false
	}

	return params, true
}

func (siw *ServerInterfaceWrapper) withPage(handle func(http.ResponseWriter, *http.Request, PageParams)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, ok := siw.pageParams(w, r)
		if !ok {
			return
		}
		handle(w, r, params)
	}
}

func (siw *ServerInterfaceWrapper) withID(handle func(http.ResponseWriter, *http.Request, int64)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := siw.pathID(w, r)
		if !ok {
			return
		}
		handle(w, r, id)
	}
}

// GetGeoFence operation middleware.
func (siw *ServerInterfaceWrapper) GetGeoFence(w http.ResponseWriter, r *http.Request) {
	var params GeoFenceParams

	if err := runtime.BindQueryParameter("form", true, false, "lat", r.URL.Query(), &params.Lat); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "lat", Err: err})
		return
	}

	if err := runtime.BindQueryParameter("form", true, false, "lng", r.URL.Query(), &params.Lng); err != nil {
		siw.ErrorHandlerFunc(w, r, &InvalidParamFormatError{ParamName: "lng", Err: err})
		return
	}

	siw.Handler.GetGeoFence(w, r, params)
}

// Routes holds the middleware applied to each route group.
type Routes struct {
	Authenticate func(http.Handler) http.Handler
	Idempotent   func(http.Handler) http.Handler
}

// HandlerFromMux mounts the /api/v1 routes of si on r.
func HandlerFromMux(si ServerInterface, r chi.Router, routes Routes, errorHandler func(w http.ResponseWriter, r *http.Request, err error)) http.Handler {
	wrapper := ServerInterfaceWrapper{
		Handler:          si,
		ErrorHandlerFunc: errorHandler,
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", si.AuthLogin)
		r.Post("/auth/refresh", si.AuthRefresh)

		r.Group(func(r chi.Router) {
			if routes.Authenticate != nil {
				r.Use(routes.Authenticate)
			}

			r.Post("/auth/logout", si.AuthLogout)

			r.Get("/profile", si.GetProfile)
			r.Put("/profile", si.UpdateProfile)
			r.Post("/profile/password", si.ChangePassword)

			r.Get("/leave/approvals", wrapper.withPage(si.GetApprovalQueue))
			r.Get("/leave/approvals/{id}", wrapper.withID(si.GetLeaveDetails))
			r.Get("/leave/decisions", wrapper.withPage(si.GetDecisions))

			r.Get("/attendance/geofence", wrapper.GetGeoFence)
			r.Get("/attendance/current", si.GetCurrentAttendance)
			r.Get("/attendance/history", wrapper.withPage(si.GetAttendanceHistory))

			r.Get("/payslips", wrapper.withPage(si.GetPayslips))
			r.Get("/payslips/{id}/pdf", wrapper.withID(si.GetPayslipPDF))
			r.Get("/exit-requests", wrapper.withPage(si.GetExitRequests))
			r.Get("/expense-requests", wrapper.withPage(si.GetExpenseRequests))

			r.Group(func(r chi.Router) {
				if routes.Idempotent != nil {
					r.Use(routes.Idempotent)
				}

				r.Post("/leave/approvals/{id}/decision", wrapper.withID(si.DecideLeave))
				r.Post("/attendance/check-in", si.CheckIn)
				r.Post("/attendance/check-out", si.CheckOut)
			})
		})
	})

	return r
}

func intValue(p *int) int {
	if p == nil {
		return 0
	}

	return *p
}
