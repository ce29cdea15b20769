package controllers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/adamanr/hcm_gateway/internal/entity"
	"github.com/adamanr/hcm_gateway/internal/geo"
	"github.com/adamanr/hcm_gateway/internal/storage"
	"github.com/google/uuid"
)

// AttendanceController gates check-in and check-out on the office geofence
// and, for check-in, on the face-hold gate.
type AttendanceController struct {
	deps *Dependens
	kv   *storage.KV
	gate geo.FaceGate
	now  func() time.Time
}

func NewAttendanceController(deps *Dependens) *AttendanceController {
	return &AttendanceController{
		deps: deps,
		kv:   storage.NewKV(deps.Redis, deps.Config.Redis.ProfileTTL, deps.Logger),
		gate: geo.NewFaceGate(deps.Config),
		now:  time.Now,
	}
}

// GeoFence returns the office fence and, when a point is given, the
// distance to it.
func (c *AttendanceController) GeoFence(ctx context.Context, session *entity.Session, point *geo.Point) (*entity.GeoFenceView, error) {
	fence, err := c.deps.Backend.GetGeoFence(ctx, session.CompanyID())
	if err != nil {
		c.deps.Logger.Error("Error fetching geofence", slog.String("error", err.Error()))
		return nil, err
	}

	view := &entity.GeoFenceView{Fence: *fence}
	if point == nil {
		return view, nil
	}

	distance, within, err := geo.Within(*fence, *point)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	view.DistanceMeters = &distance
	view.Within = &within

	return view, nil
}

func (c *AttendanceController) CheckIn(ctx context.Context, session *entity.Session, req entity.CheckInRequest) (*entity.AttendanceRecord, error) {
	if err := c.deps.validate(req); err != nil {
		return nil, err
	}

	point := geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
	distance, err := c.insideFence(ctx, session, point)
	if err != nil {
		return nil, err
	}

	held, err := c.gate.Verify(req.Observations)
	if err != nil {
		c.deps.Logger.Warn("Face verification failed",
			slog.Int64("employee_id", session.EmployeeID()),
			slog.Duration("held", held),
		)
		return nil, fmt.Errorf("%w: %s", ErrFaceNotVerified, err.Error())
	}

	current, err := c.kv.CurrentAttendance(ctx, session.EmployeeID())
	if err != nil {
		return nil, err
	}
	if current != nil {
		return nil, ErrAlreadyCheckedIn
	}

	record := entity.AttendanceRecord{
		ID:               uuid.New(),
		EmployeeID:       session.EmployeeID(),
		CheckInAt:        c.now().UTC(),
		CheckInLatitude:  point.Latitude,
		CheckInLongitude: point.Longitude,
		DistanceMeters:   distance,
		FaceHeldMillis:   held.Milliseconds(),
	}

	if err := c.kv.SetCurrentAttendance(ctx, record); err != nil {
		return nil, err
	}

	c.deps.Logger.Info("Checked in",
		slog.Int64("employee_id", record.EmployeeID),
		slog.Float64("distance_m", distance),
	)
	return &record, nil
}

func (c *AttendanceController) CheckOut(ctx context.Context, session *entity.Session, req entity.CheckOutRequest) (*entity.AttendanceRecord, error) {
	if err := c.deps.validate(req); err != nil {
		return nil, err
	}

	point := geo.Point{Latitude: *req.Latitude, Longitude: *req.Longitude}
	if _, err := c.insideFence(ctx, session, point); err != nil {
		return nil, err
	}

	record, err := c.kv.CurrentAttendance(ctx, session.EmployeeID())
	if err != nil {
		return nil, err
	}
	if record == nil {
		return nil, ErrNotCheckedIn
	}

	checkedOut := c.now().UTC()
	record.CheckOutAt = &checkedOut
	record.CheckOutLatitude = point.Latitude
	record.CheckOutLongitude = point.Longitude

	if err := c.kv.AppendHistory(ctx, *record, c.deps.Config.Attendance.HistoryLimit); err != nil {
		return nil, err
	}
	if err := c.kv.ClearCurrentAttendance(ctx, session.EmployeeID()); err != nil {
		return nil, err
	}

	c.deps.Logger.Info("Checked out", slog.Int64("employee_id", record.EmployeeID))
	return record, nil
}

// Current returns the open attendance record, or nil.
func (c *AttendanceController) Current(ctx context.Context, session *entity.Session) (*entity.AttendanceRecord, error) {
	return c.kv.CurrentAttendance(ctx, session.EmployeeID())
}

func (c *AttendanceController) History(ctx context.Context, session *entity.Session, page, pageSize int) (*entity.Page[entity.AttendanceRecord], error) {
	records, err := c.kv.History(ctx, session.EmployeeID())
	if err != nil {
		return nil, err
	}

	return paginate(records, page, pageSize, c.deps.Config.Workflow.PageSize), nil
}

func (c *AttendanceController) insideFence(ctx context.Context, session *entity.Session, point geo.Point) (float64, error) {
	fence, err := c.deps.Backend.GetGeoFence(ctx, session.CompanyID())
	if err != nil {
		c.deps.Logger.Error("Error fetching geofence", slog.String("error", err.Error()))
		return 0, err
	}

	distance, within, err := geo.Within(*fence, point)
	if errors.Is(err, geo.ErrInvalidCoordinates) {
		return 0, fmt.Errorf("%w: %s", ErrValidation, err.Error())
	}
	if err != nil {
		return 0, err
	}

	if !within {
		c.deps.Logger.Warn("Outside geofence",
			slog.Int64("employee_id", session.EmployeeID()),
			slog.Float64("distance_m", distance),
			slog.Float64("radius_m", fence.Radius),
		)
		return distance, fmt.Errorf("%w: %.0f m from %s, allowed %.0f m", ErrOutsideFence, distance, fenceName(fence), fence.Radius)
	}

	return distance, nil
}

func fenceName(fence *entity.GeoFence) string {
	if fence.LocationName != "" {
		return fence.LocationName
	}

	return "the office"
}
