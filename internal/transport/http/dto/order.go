package dto

import (
	"errors"
	"reflect"
	"strings"
	"time"

	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/customer"
	"github.com/corray333/backend-labs/tms/internal/service/models/order"
	"github.com/corray333/backend-labs/tms/internal/service/models/route"
	"github.com/corray333/backend-labs/tms/internal/service/models/routestatus"
	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

// Validate checks v against its validate tags and reports failures per json field path.
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return errs.Validation("INVALID_REQUEST", err.Error())
	}

	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		_, path, _ := strings.Cut(fe.Namespace(), ".")
		msg := fe.Tag()
		if fe.Param() != "" {
			msg += "=" + fe.Param()
		}
		fields[path] = msg
	}

	return errs.ValidationFields("INVALID_REQUEST", fields)
}

type Address struct {
	ID           int64    `json:"id"           validate:"gte=0"`
	Country      string   `json:"country"`
	City         string   `json:"city"`
	District     string   `json:"district"`
	Ward         string   `json:"ward"`
	AddressLine1 string   `json:"addressLine1"`
	AddressLine2 string   `json:"addressLine2"`
	PostalCode   string   `json:"postalCode"`
	Latitude     *float64 `json:"latitude"     validate:"omitempty,gte=-90,lte=90"`
	Longitude    *float64 `json:"longitude"    validate:"omitempty,gte=-180,lte=180"`
}

func (a *Address) toModel() *route.Address {
	if a == nil {
		return nil
	}

	return &route.Address{
		ID:           a.ID,
		Country:      a.Country,
		City:         a.City,
		District:     a.District,
		Ward:         a.Ward,
		AddressLine1: a.AddressLine1,
		AddressLine2: a.AddressLine2,
		PostalCode:   a.PostalCode,
		Latitude:     a.Latitude,
		Longitude:    a.Longitude,
	}
}

type Point struct {
	ID           int64    `json:"id"           validate:"gte=0"`
	TempID       string   `json:"tempId"       validate:"required_without=ID"`
	Code         string   `json:"code"`
	Name         string   `json:"name"         validate:"required"`
	ContactName  string   `json:"contactName"`
	ContactEmail string   `json:"contactEmail" validate:"omitempty,email"`
	PhoneNumber  string   `json:"phoneNumber"`
	Notes        string   `json:"notes"`
	Address      *Address `json:"address"`
}

func (p *Point) toModel() route.Point {
	return route.Point{
		ID:           p.ID,
		TempID:       p.TempID,
		Code:         p.Code,
		Name:         p.Name,
		ContactName:  p.ContactName,
		ContactEmail: p.ContactEmail,
		PhoneNumber:  p.PhoneNumber,
		Notes:        p.Notes,
		Address:      p.Address.toModel(),
	}
}

type Route struct {
	ID             int64   `json:"id"             validate:"gte=0"`
	Type           string  `json:"type"           validate:"required,oneof=FIXED NON_FIXED"`
	Code           string  `json:"code"`
	Name           string  `json:"name"`
	PickupPoints   []Point `json:"pickupPoints"   validate:"dive"`
	DeliveryPoints []Point `json:"deliveryPoints" validate:"dive"`
}

func (r *Route) toModel() *route.Route {
	rt := &route.Route{
		ID:   r.ID,
		Type: route.Type(r.Type),
		Code: r.Code,
		Name: r.Name,
	}
	for i := range r.PickupPoints {
		rt.PickupPoints = append(rt.PickupPoints, r.PickupPoints[i].toModel())
	}
	for i := range r.DeliveryPoints {
		rt.DeliveryPoints = append(rt.DeliveryPoints, r.DeliveryPoints[i].toModel())
	}

	return rt
}

type PointRef struct {
	ID     int64  `json:"id"     validate:"gte=0"`
	TempID string `json:"tempId" validate:"required_without=ID"`
}

type RouteStatus struct {
	ID           int64          `json:"id"           validate:"gte=0"`
	Type         string         `json:"type"         validate:"omitempty,oneof=PICKUP DELIVERY"`
	RoutePoint   PointRef       `json:"routePoint"`
	ExpectedTime *time.Time     `json:"expectedTime"`
	IsArrived    bool           `json:"isArrived"`
	Notes        string         `json:"notes"`
	Meta         map[string]any `json:"meta"`
}

type BankAccount struct {
	AccountNumber string `json:"accountNumber" validate:"required"`
	HolderName    string `json:"holderName"    validate:"required"`
	BankName      string `json:"bankName"      validate:"required"`
	BankBranch    string `json:"bankBranch"`
}

type Customer struct {
	ID              int64        `json:"id"              validate:"gte=0"`
	Type            string       `json:"type"            validate:"required,oneof=FIXED CASUAL"`
	Code            string       `json:"code"`
	Name            string       `json:"name"            validate:"required_if=Type CASUAL"`
	TaxCode         string       `json:"taxCode"`
	Email           string       `json:"email"           validate:"omitempty,email"`
	PhoneNumber     string       `json:"phoneNumber"`
	BusinessAddress string       `json:"businessAddress"`
	BankAccount     *BankAccount `json:"bankAccount"`
}

func (c *Customer) toModel() *customer.Customer {
	cust := &customer.Customer{
		ID:              c.ID,
		Type:            customer.Type(c.Type),
		Code:            c.Code,
		Name:            c.Name,
		TaxCode:         c.TaxCode,
		Email:           c.Email,
		PhoneNumber:     c.PhoneNumber,
		BusinessAddress: c.BusinessAddress,
	}
	if c.BankAccount != nil {
		cust.BankAccount = &customer.BankAccount{
			AccountNumber: c.BankAccount.AccountNumber,
			HolderName:    c.BankAccount.HolderName,
			BankName:      c.BankAccount.BankName,
			BankBranch:    c.BankAccount.BankBranch,
		}
	}

	return cust
}

type Item struct {
	ID          int64   `json:"id"          validate:"gte=0"`
	Name        string  `json:"name"        validate:"required"`
	Quantity    float64 `json:"quantity"    validate:"gte=0"`
	Unit        string  `json:"unit"`
	Weight      float64 `json:"weight"      validate:"gte=0"`
	CubicMeters float64 `json:"cubicMeters" validate:"gte=0"`
	Notes       string  `json:"notes"`
}

type Participant struct {
	ID     int64  `json:"id"     validate:"gte=0"`
	UserID int64  `json:"userId" validate:"gt=0"`
	Role   string `json:"role"`
}

type MerchandiseType struct {
	ID int64 `json:"id" validate:"gt=0"`
}

// Order is the body shared by order create and update requests.
type Order struct {
	OrganizationID   int64             `json:"organizationId"   validate:"gt=0"`
	ActorID          int64             `json:"actorId"          validate:"gte=0"`
	OrderDate        time.Time         `json:"orderDate"        validate:"required"`
	DeliveryDate     time.Time         `json:"deliveryDate"     validate:"required"`
	PaymentDueDate   *time.Time        `json:"paymentDueDate"`
	IsDraft          bool              `json:"isDraft"`
	TotalAmount      float64           `json:"totalAmount"      validate:"gte=0"`
	Weight           float64           `json:"weight"           validate:"gte=0"`
	CubicMeters      float64           `json:"cubicMeters"      validate:"gte=0"`
	UnitOfMeasure    string            `json:"unitOfMeasure"    validate:"omitempty,oneof=TON KILOGRAM CUBIC_METER PALLET"`
	Customer         Customer          `json:"customer"`
	Route            Route             `json:"route"`
	RouteStatuses    []RouteStatus     `json:"routeStatuses"    validate:"dive"`
	Items            []Item            `json:"items"            validate:"dive"`
	Participants     []Participant     `json:"participants"     validate:"dive"`
	MerchandiseTypes []MerchandiseType `json:"merchandiseTypes" validate:"dive"`
	MerchandiseNote  string            `json:"merchandiseNote"`
	Notes            string            `json:"notes"`
	Meta             map[string]any    `json:"meta"`
}

// ToModel converts the request body to the order aggregate.
func (r *Order) ToModel() order.Order {
	o := order.Order{
		OrganizationID:  r.OrganizationID,
		OrderDate:       r.OrderDate,
		DeliveryDate:    r.DeliveryDate,
		PaymentDueDate:  r.PaymentDueDate,
		IsDraft:         r.IsDraft,
		TotalAmount:     r.TotalAmount,
		Weight:          r.Weight,
		CubicMeters:     r.CubicMeters,
		UnitOfMeasure:   order.UnitOfMeasure(r.UnitOfMeasure),
		Customer:        r.Customer.toModel(),
		CustomerID:      r.Customer.ID,
		Route:           r.Route.toModel(),
		RouteID:         r.Route.ID,
		MerchandiseNote: r.MerchandiseNote,
		Notes:           r.Notes,
		Meta:            r.Meta,
	}

	for _, s := range r.RouteStatuses {
		o.RouteStatuses = append(o.RouteStatuses, routestatus.OrderRouteStatus{
			ID:           s.ID,
			Type:         route.PointType(s.Type),
			RoutePoint:   route.PointRef{ID: s.RoutePoint.ID, TempID: s.RoutePoint.TempID},
			ExpectedTime: s.ExpectedTime,
			IsArrived:    s.IsArrived,
			Notes:        s.Notes,
			Meta:         s.Meta,
		})
	}
	for _, it := range r.Items {
		o.Items = append(o.Items, order.Item{
			ID:          it.ID,
			Name:        it.Name,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			Weight:      it.Weight,
			CubicMeters: it.CubicMeters,
			Notes:       it.Notes,
		})
	}
	for _, p := range r.Participants {
		o.Participants = append(o.Participants, order.Participant{ID: p.ID, UserID: p.UserID, Role: p.Role})
	}
	for _, m := range r.MerchandiseTypes {
		o.MerchandiseTypes = append(o.MerchandiseTypes, order.MerchandiseType{ID: m.ID})
	}

	return o
}
