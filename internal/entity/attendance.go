package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// GeoFence is the configured office circle. The backend spells the latitude
// key "lattitude"; the correct spelling is accepted too.
type GeoFence struct {
	ID           FlexInt `json:"id"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Radius       float64 `json:"radius"`
	LocationName string  `json:"locationName"`
}

func (g *GeoFence) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID           FlexInt    `json:"id"`
		Lattitude    *FlexFloat `json:"lattitude"`
		Latitude     *FlexFloat `json:"latitude"`
		Longitude    FlexFloat  `json:"longitude"`
		Radius       FlexFloat  `json:"radius"`
		LocationName string     `json:"locationName"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	g.ID = raw.ID
	g.Longitude = raw.Longitude.Float64()
	g.Radius = raw.Radius.Float64()
	g.LocationName = raw.LocationName

	switch {
	case raw.Lattitude != nil:
		g.Latitude = raw.Lattitude.Float64()
	case raw.Latitude != nil:
		g.Latitude = raw.Latitude.Float64()
	default:
		g.Latitude = 0
	}

	return nil
}

type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// FaceObservation is one face-detector frame reported by the device.
type FaceObservation struct {
	At          time.Time     `json:"at" validate:"required"`
	FrameWidth  float64       `json:"frameWidth" validate:"gt=0"`
	FrameHeight float64       `json:"frameHeight" validate:"gt=0"`
	Faces       []BoundingBox `json:"faces"`
}

type CheckInRequest struct {
	Latitude     *float64          `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude    *float64          `json:"longitude" validate:"required,min=-180,max=180"`
	Observations []FaceObservation `json:"observations" validate:"required,min=1,dive"`
}

type CheckOutRequest struct {
	Latitude  *float64 `json:"latitude" validate:"required,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"required,min=-180,max=180"`
}

type AttendanceRecord struct {
	ID                uuid.UUID  `json:"id"`
	EmployeeID        int64      `json:"employeeId"`
	CheckInAt         time.Time  `json:"checkInAt"`
	CheckInLatitude   float64    `json:"checkInLatitude"`
	CheckInLongitude  float64    `json:"checkInLongitude"`
	DistanceMeters    float64    `json:"distanceMeters"`
	FaceHeldMillis    int64      `json:"faceHeldMillis"`
	CheckOutAt        *time.Time `json:"checkOutAt,omitempty"`
	CheckOutLatitude  float64    `json:"checkOutLatitude,omitempty"`
	CheckOutLongitude float64    `json:"checkOutLongitude,omitempty"`
}

type GeoFenceView struct {
	Fence          GeoFence `json:"fence"`
	DistanceMeters *float64 `json:"distanceMeters,omitempty"`
	Within         *bool    `json:"within,omitempty"`
}
