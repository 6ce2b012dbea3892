package dataapi

import (
	"context"
	"errors"
	"fmt"

	"github.com/corray333/backend-labs/tms/internal/dal/dataapi"
	"github.com/corray333/backend-labs/tms/internal/service/models/route"
)

const (
	routesEntity      = "routes"
	routePointsEntity = "route-points"
	addressesEntity   = "addresses"
)

// ErrPendingPoint is returned when a route references a point that has no persisted id yet.
var ErrPendingPoint = errors.New("route references an unsaved route point")

// RouteDal is the write shape of a route.
type RouteDal struct {
	Organization   int64      `json:"organization,omitempty"`
	Customer       int64      `json:"customer,omitempty"`
	Type           route.Type `json:"type"`
	Code           string     `json:"code,omitempty"`
	Name           string     `json:"name,omitempty"`
	Distance       float64    `json:"distance,omitempty"`
	PickupPoints   []int64    `json:"pickupPoints"`
	DeliveryPoints []int64    `json:"deliveryPoints"`
}

// RouteDalFromModel converts service layer Route model to RouteDal.
func RouteDalFromModel(r *route.Route) (*RouteDal, error) {
	pickups, err := pointIDs(r.PickupPoints)
	if err != nil {
		return nil, err
	}
	deliveries, err := pointIDs(r.DeliveryPoints)
	if err != nil {
		return nil, err
	}

	return &RouteDal{
		Organization:   r.OrganizationID,
		Customer:       r.CustomerID,
		Type:           r.Type,
		Code:           r.Code,
		Name:           r.Name,
		Distance:       r.Distance,
		PickupPoints:   pickups,
		DeliveryPoints: deliveries,
	}, nil
}

func pointIDs(points []route.Point) ([]int64, error) {
	ids := make([]int64, 0, len(points))
	for _, p := range points {
		if p.ID == 0 {
			return nil, fmt.Errorf("%w: temp id %q", ErrPendingPoint, p.TempID)
		}
		ids = append(ids, p.ID)
	}

	return ids, nil
}

// RouteReadDal is the normalized read shape of a route.
type RouteReadDal struct {
	ID             int64             `json:"id"`
	Type           route.Type        `json:"type"`
	Code           string            `json:"code"`
	Name           string            `json:"name"`
	Distance       float64           `json:"distance"`
	Organization   *dataapi.Relation `json:"organization"`
	Customer       *dataapi.Relation `json:"customer"`
	PickupPoints   []PointReadDal    `json:"pickupPoints"`
	DeliveryPoints []PointReadDal    `json:"deliveryPoints"`
}

// ToModel converts RouteReadDal to service layer Route model.
func (d *RouteReadDal) ToModel() *route.Route {
	r := &route.Route{
		ID:             d.ID,
		OrganizationID: dataapi.RelationID(d.Organization),
		CustomerID:     dataapi.RelationID(d.Customer),
		Type:           d.Type,
		Code:           d.Code,
		Name:           d.Name,
		Distance:       d.Distance,
		PickupPoints:   make([]route.Point, 0, len(d.PickupPoints)),
		DeliveryPoints: make([]route.Point, 0, len(d.DeliveryPoints)),
	}
	for _, p := range d.PickupPoints {
		r.PickupPoints = append(r.PickupPoints, p.ToModel())
	}
	for _, p := range d.DeliveryPoints {
		r.DeliveryPoints = append(r.DeliveryPoints, p.ToModel())
	}

	return r
}

// PointReadDal is the normalized read shape of a route point.
type PointReadDal struct {
	ID           int64          `json:"id"`
	Code         string         `json:"code"`
	Name         string         `json:"name"`
	ContactName  string         `json:"contactName"`
	ContactEmail string         `json:"contactEmail"`
	PhoneNumber  string         `json:"phoneNumber"`
	Notes        string         `json:"notes"`
	DisplayOrder int            `json:"displayOrder"`
	Address      *route.Address `json:"address"`
}

// ToModel converts PointReadDal to service layer Point model.
func (d *PointReadDal) ToModel() route.Point {
	return route.Point{
		ID:           d.ID,
		Code:         d.Code,
		Name:         d.Name,
		ContactName:  d.ContactName,
		ContactEmail: d.ContactEmail,
		PhoneNumber:  d.PhoneNumber,
		Notes:        d.Notes,
		DisplayOrder: d.DisplayOrder,
		Address:      d.Address,
	}
}

// RoutePopulate lists the relations needed to rebuild a route with its addresses.
var RoutePopulate = []string{
	"customer",
	"organization",
	"pickupPoints.address",
	"deliveryPoints.address",
}

// RouteRepository stores routes, route points and addresses through the data API.
type RouteRepository struct {
	client *dataapi.Client
}

// NewRouteRepository creates a new RouteRepository.
func NewRouteRepository(client *dataapi.Client) *RouteRepository {
	return &RouteRepository{client: client}
}

// Get loads a route with its ordered points.
func (r *RouteRepository) Get(ctx context.Context, id int64) (*route.Route, error) {
	rec, err := r.client.Get(ctx, routesEntity, id, RoutePopulate...)
	if err != nil {
		return nil, fmt.Errorf("failed to get route: %w", err)
	}

	var dal RouteReadDal
	if err := rec.Decode(&dal); err != nil {
		return nil, fmt.Errorf("failed to decode route: %w", err)
	}

	return dal.ToModel(), nil
}

// Create stores a new route referencing already persisted points.
func (r *RouteRepository) Create(ctx context.Context, rt route.Route) (route.Route, error) {
	dal, err := RouteDalFromModel(&rt)
	if err != nil {
		return route.Route{}, err
	}

	rec, err := r.client.Create(ctx, routesEntity, dal)
	if err != nil {
		return route.Route{}, fmt.Errorf("failed to create route: %w", err)
	}
	rt.ID = rec.ID()

	return rt, nil
}

// Update overwrites a route and its point lists.
func (r *RouteRepository) Update(ctx context.Context, rt route.Route) (route.Route, error) {
	dal, err := RouteDalFromModel(&rt)
	if err != nil {
		return route.Route{}, err
	}

	if _, err := r.client.Update(ctx, routesEntity, rt.ID, dal); err != nil {
		return route.Route{}, fmt.Errorf("failed to update route: %w", err)
	}

	return rt, nil
}

// UpsertAddress updates the address when it has an id and creates it otherwise.
func (r *RouteRepository) UpsertAddress(
	ctx context.Context,
	organizationID int64,
	addr route.Address,
) (route.Address, error) {
	fields := map[string]any{
		"organization": organizationID,
		"country":      addr.Country,
		"city":         addr.City,
		"district":     addr.District,
		"ward":         addr.Ward,
		"addressLine1": addr.AddressLine1,
		"addressLine2": addr.AddressLine2,
		"postalCode":   addr.PostalCode,
		"latitude":     addr.Latitude,
		"longitude":    addr.Longitude,
	}

	if addr.ID > 0 {
		if _, err := r.client.Update(ctx, addressesEntity, addr.ID, fields); err != nil {
			return route.Address{}, fmt.Errorf("failed to update address: %w", err)
		}

		return addr, nil
	}

	rec, err := r.client.Create(ctx, addressesEntity, fields)
	if err != nil {
		return route.Address{}, fmt.Errorf("failed to create address: %w", err)
	}
	addr.ID = rec.ID()

	return addr, nil
}

// UpsertPoint updates the point when it has an id and creates it otherwise.
// The returned point has no temp id.
func (r *RouteRepository) UpsertPoint(ctx context.Context, p route.Point, actorID int64) (route.Point, error) {
	fields := map[string]any{
		"code":          p.Code,
		"name":          p.Name,
		"contactName":   p.ContactName,
		"contactEmail":  p.ContactEmail,
		"phoneNumber":   p.PhoneNumber,
		"notes":         p.Notes,
		"displayOrder":  p.DisplayOrder,
		"updatedByUser": actorID,
	}
	if p.Address != nil && p.Address.ID > 0 {
		fields["address"] = p.Address.ID
	}
	if p.OrganizationID > 0 {
		fields["organization"] = p.OrganizationID
	}
	if p.CustomerID > 0 {
		fields["customer"] = p.CustomerID
	}

	if p.ID > 0 {
		if _, err := r.client.Update(ctx, routePointsEntity, p.ID, fields); err != nil {
			return route.Point{}, fmt.Errorf("failed to update route point: %w", err)
		}
		p.TempID = ""

		return p, nil
	}

	fields["createdByUser"] = actorID
	rec, err := r.client.Create(ctx, routePointsEntity, fields)
	if err != nil {
		return route.Point{}, fmt.Errorf("failed to create route point: %w", err)
	}
	p.ID = rec.ID()
	p.TempID = ""

	return p, nil
}
