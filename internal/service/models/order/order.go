package order

import (
	"time"

	"github.com/corray333/backend-labs/tms/internal/service/models/customer"
	"github.com/corray333/backend-labs/tms/internal/service/models/route"
	"github.com/corray333/backend-labs/tms/internal/service/models/routestatus"
)

// StatusType is the lifecycle state of an order or of a trip.
type StatusType string

const (
	StatusNew                 StatusType = "NEW"
	StatusPendingConfirmation StatusType = "PENDING_CONFIRMATION"
	StatusUnconfirmed         StatusType = "UNCONFIRMED"
	StatusConfirmed           StatusType = "CONFIRMED"
	StatusWaitingForPickup    StatusType = "WAITING_FOR_PICKUP"
	StatusWarehouseGoingTo    StatusType = "WAREHOUSE_GOING_TO"
	StatusInProgress          StatusType = "IN_PROGRESS"
	StatusDelivered           StatusType = "DELIVERED"
	StatusCompleted           StatusType = "COMPLETED"
	StatusCanceled            StatusType = "CANCELED"
)

// UnitOfMeasure is the capacity unit an order is measured in.
type UnitOfMeasure string

const (
	UnitTon        UnitOfMeasure = "TON"
	UnitKilogram   UnitOfMeasure = "KILOGRAM"
	UnitCubicMeter UnitOfMeasure = "CUBIC_METER"
	UnitPallet     UnitOfMeasure = "PALLET"
)

// Valid reports whether u is a known unit.
func (u UnitOfMeasure) Valid() bool {
	switch u {
	case UnitTon, UnitKilogram, UnitCubicMeter, UnitPallet:
		return true
	}

	return false
}

// Item is one line of cargo.
type Item struct {
	ID          int64   `json:"id,omitempty"`
	OrderID     int64   `json:"orderId,omitempty"`
	Name        string  `json:"name"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit,omitempty"`
	Weight      float64 `json:"weight,omitempty"`
	CubicMeters float64 `json:"cubicMeters,omitempty"`
	Notes       string  `json:"notes,omitempty"`
}

// Participant is a user following the order.
type Participant struct {
	ID      int64  `json:"id,omitempty"`
	OrderID int64  `json:"orderId,omitempty"`
	UserID  int64  `json:"userId"`
	Role    string `json:"role,omitempty"`
}

// Status is one entry of the append-only status history.
type Status struct {
	ID          int64      `json:"id,omitempty"`
	OrderID     int64      `json:"orderId"`
	Type        StatusType `json:"type"`
	CreatedByID int64      `json:"createdById,omitempty"`
	CreatedAt   time.Time  `json:"createdAt,omitempty"`
}

// MerchandiseType classifies the goods of an order.
type MerchandiseType struct {
	ID   int64  `json:"id"`
	Name string `json:"name,omitempty"`
}

// Order is the order aggregate.
type Order struct {
	ID               int64                          `json:"id,omitempty"`
	OrganizationID   int64                          `json:"organizationId"`
	Code             string                         `json:"code"`
	OrderDate        time.Time                      `json:"orderDate"`
	DeliveryDate     time.Time                      `json:"deliveryDate"`
	PaymentDueDate   *time.Time                     `json:"paymentDueDate,omitempty"`
	IsDraft          bool                           `json:"isDraft"`
	TotalAmount      float64                        `json:"totalAmount"`
	Weight           float64                        `json:"weight"`
	CubicMeters      float64                        `json:"cubicMeters,omitempty"`
	UnitOfMeasure    UnitOfMeasure                  `json:"unitOfMeasure"`
	CustomerID       int64                          `json:"customerId"`
	Customer         *customer.Customer             `json:"customer,omitempty"`
	RouteID          int64                          `json:"routeId"`
	Route            *route.Route                   `json:"route,omitempty"`
	RouteStatusIDs   []int64                        `json:"routeStatusIds,omitempty"`
	RouteStatuses    []routestatus.OrderRouteStatus `json:"routeStatuses,omitempty"`
	Items            []Item                         `json:"items,omitempty"`
	Participants     []Participant                  `json:"participants,omitempty"`
	MerchandiseTypes []MerchandiseType              `json:"merchandiseTypes,omitempty"`
	MerchandiseNote  string                         `json:"merchandiseNote,omitempty"`
	Notes            string                         `json:"notes,omitempty"`
	Meta             map[string]any                 `json:"meta,omitempty"`
	LastStatusType   StatusType                     `json:"lastStatusType,omitempty"`
	CreatedByID      int64                          `json:"createdById,omitempty"`
	UpdatedByID      int64                          `json:"updatedById,omitempty"`
	CreatedAt        time.Time                      `json:"createdAt,omitempty"`
	UpdatedAt        time.Time                      `json:"updatedAt,omitempty"`
}
