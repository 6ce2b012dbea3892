package vehicle

import (
	"strconv"
	"time"

	"github.com/corray333/backend-labs/tms/internal/service/models/order"
)

// Vehicle is a truck of the organization fleet.
type Vehicle struct {
	ID                 int64    `json:"id"`
	OrganizationID     int64    `json:"organizationId"`
	LicensePlate       string   `json:"licensePlate"`
	TonPayloadCapacity *float64 `json:"tonPayloadCapacity,omitempty"`
	CubicMeterCapacity *float64 `json:"cubicMeterCapacity,omitempty"`
	PalletCapacity     *float64 `json:"palletCapacity,omitempty"`
	IsActive           bool     `json:"isActive"`
}

// Capacity returns the capacity of the vehicle expressed in unit.
// KILOGRAM is derived from the ton payload. ok is false when the vehicle has no such capacity.
func (v *Vehicle) Capacity(unit order.UnitOfMeasure) (capacity float64, ok bool) {
	switch unit {
	case order.UnitTon:
		if v.TonPayloadCapacity != nil {
			return *v.TonPayloadCapacity, true
		}
	case order.UnitKilogram:
		if v.TonPayloadCapacity != nil {
			return *v.TonPayloadCapacity * 1000, true
		}
	case order.UnitCubicMeter:
		if v.CubicMeterCapacity != nil {
			return *v.CubicMeterCapacity, true
		}
	case order.UnitPallet:
		if v.PalletCapacity != nil {
			return *v.PalletCapacity, true
		}
	}

	return 0, false
}

// Location is an inferred position. It is not stored on the vehicle.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Known     bool    `json:"known"`
}

// String formats the location as "lat,lng", or "" when unknown.
func (l Location) String() string {
	if !l.Known {
		return ""
	}

	return strconv.FormatFloat(l.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(l.Longitude, 'f', -1, 64)
}

// Candidate is a vehicle free for the order window, enriched with its location and trailing trip aggregate.
type Candidate struct {
	Vehicle
	CurrentLocation   Location `json:"currentLocation"`
	TrailingCost      float64  `json:"trailingCost"`
	TrailingTripCount int      `json:"trailingTripCount"`
}

// Window is the pickup to delivery interval of an order.
type Window struct {
	PickupDate   time.Time
	DeliveryDate time.Time
}

// CandidateQuery holds the parameters of the availability query.
type CandidateQuery struct {
	OrganizationID int64
	OrderCode      string
	Window         Window
	Unit           order.UnitOfMeasure
	PeriodStart    time.Time
	PeriodEnd      time.Time
}
