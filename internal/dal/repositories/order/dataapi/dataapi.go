package dataapi

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/corray333/backend-labs/tms/internal/dal/dataapi"
	routedal "github.com/corray333/backend-labs/tms/internal/dal/repositories/route/dataapi"
	"github.com/corray333/backend-labs/tms/internal/service/models/customer"
	"github.com/corray333/backend-labs/tms/internal/service/models/order"
	"github.com/corray333/backend-labs/tms/internal/service/models/route"
	"github.com/corray333/backend-labs/tms/internal/service/models/routestatus"
)

const (
	ordersEntity        = "orders"
	itemsEntity         = "order-items"
	participantsEntity  = "order-participants"
	statusesEntity      = "order-statuses"
	routeStatusesEntity = "order-route-statuses"
)

// ErrUnresolvedRoutePoint is returned when a route status still points at a temp id.
var ErrUnresolvedRoutePoint = errors.New("route status references an unsaved route point")

// OrderDal is the write shape of an order.
type OrderDal struct {
	Organization     int64               `json:"organization"`
	Code             string              `json:"code"`
	OrderDate        time.Time           `json:"orderDate"`
	DeliveryDate     time.Time           `json:"deliveryDate"`
	PaymentDueDate   *time.Time          `json:"paymentDueDate"`
	IsDraft          bool                `json:"isDraft"`
	TotalAmount      float64             `json:"totalAmount"`
	Weight           float64             `json:"weight"`
	CubicMeters      float64             `json:"cubicMeters"`
	UnitOfMeasure    order.UnitOfMeasure `json:"unitOfMeasure"`
	Customer         int64               `json:"customer,omitempty"`
	Route            int64               `json:"route,omitempty"`
	RouteStatuses    []int64             `json:"routeStatuses"`
	MerchandiseTypes []int64             `json:"merchandiseTypes"`
	MerchandiseNote  string              `json:"merchandiseNote,omitempty"`
	Notes            string              `json:"notes,omitempty"`
	Meta             map[string]any      `json:"meta,omitempty"`
	LastStatusType   order.StatusType    `json:"lastStatusType,omitempty"`
	CreatedByUser    int64               `json:"createdByUser,omitempty"`
	UpdatedByUser    int64               `json:"updatedByUser,omitempty"`
}

// OrderDalFromModel converts service layer Order model to OrderDal.
func OrderDalFromModel(o *order.Order) *OrderDal {
	merchandise := make([]int64, 0, len(o.MerchandiseTypes))
	for _, m := range o.MerchandiseTypes {
		merchandise = append(merchandise, m.ID)
	}
	statuses := o.RouteStatusIDs
	if statuses == nil {
		statuses = []int64{}
	}

	return &OrderDal{
		Organization:     o.OrganizationID,
		Code:             o.Code,
		OrderDate:        o.OrderDate,
		DeliveryDate:     o.DeliveryDate,
		PaymentDueDate:   o.PaymentDueDate,
		IsDraft:          o.IsDraft,
		TotalAmount:      o.TotalAmount,
		Weight:           o.Weight,
		CubicMeters:      o.CubicMeters,
		UnitOfMeasure:    o.UnitOfMeasure,
		Customer:         o.CustomerID,
		Route:            o.RouteID,
		RouteStatuses:    statuses,
		MerchandiseTypes: merchandise,
		MerchandiseNote:  o.MerchandiseNote,
		Notes:            o.Notes,
		Meta:             o.Meta,
		LastStatusType:   o.LastStatusType,
		CreatedByUser:    o.CreatedByID,
		UpdatedByUser:    o.UpdatedByID,
	}
}

// OrderReadDal is the normalized read shape of an order with its populated relations.
type OrderReadDal struct {
	ID               int64                   `json:"id"`
	Code             string                  `json:"code"`
	OrderDate        time.Time               `json:"orderDate"`
	DeliveryDate     time.Time               `json:"deliveryDate"`
	PaymentDueDate   *time.Time              `json:"paymentDueDate"`
	IsDraft          bool                    `json:"isDraft"`
	TotalAmount      float64                 `json:"totalAmount"`
	Weight           float64                 `json:"weight"`
	CubicMeters      float64                 `json:"cubicMeters"`
	UnitOfMeasure    order.UnitOfMeasure     `json:"unitOfMeasure"`
	MerchandiseNote  string                  `json:"merchandiseNote"`
	Notes            string                  `json:"notes"`
	Meta             map[string]any          `json:"meta"`
	LastStatusType   order.StatusType        `json:"lastStatusType"`
	CreatedAt        time.Time               `json:"createdAt"`
	UpdatedAt        time.Time               `json:"updatedAt"`
	Organization     *dataapi.Relation       `json:"organization"`
	Customer         *customer.Customer      `json:"customer"`
	Route            *routedal.RouteReadDal  `json:"route"`
	RouteStatuses    []RouteStatusReadDal    `json:"routeStatuses"`
	Items            []order.Item            `json:"items"`
	Participants     []ParticipantReadDal    `json:"participants"`
	MerchandiseTypes []order.MerchandiseType `json:"merchandiseTypes"`
}

// RouteStatusReadDal is the normalized read shape of an order route status.
type RouteStatusReadDal struct {
	ID           int64             `json:"id"`
	Type         route.PointType   `json:"type"`
	ExpectedTime *time.Time        `json:"expectedTime"`
	IsArrived    bool              `json:"isArrived"`
	Notes        string            `json:"notes"`
	Meta         map[string]any    `json:"meta"`
	RoutePoint   *dataapi.Relation `json:"routePoint"`
}

// ParticipantReadDal is the normalized read shape of an order participant.
type ParticipantReadDal struct {
	ID   int64             `json:"id"`
	Role string            `json:"role"`
	User *dataapi.Relation `json:"user"`
}

// ToModel converts OrderReadDal to service layer Order model.
func (d *OrderReadDal) ToModel() *order.Order {
	o := &order.Order{
		ID:               d.ID,
		OrganizationID:   dataapi.RelationID(d.Organization),
		Code:             d.Code,
		OrderDate:        d.OrderDate,
		DeliveryDate:     d.DeliveryDate,
		PaymentDueDate:   d.PaymentDueDate,
		IsDraft:          d.IsDraft,
		TotalAmount:      d.TotalAmount,
		Weight:           d.Weight,
		CubicMeters:      d.CubicMeters,
		UnitOfMeasure:    d.UnitOfMeasure,
		MerchandiseTypes: d.MerchandiseTypes,
		MerchandiseNote:  d.MerchandiseNote,
		Notes:            d.Notes,
		Meta:             d.Meta,
		LastStatusType:   d.LastStatusType,
		Items:            d.Items,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		Customer:         d.Customer,
	}
	if d.Customer != nil {
		o.CustomerID = d.Customer.ID
	}
	if d.Route != nil {
		o.Route = d.Route.ToModel()
		o.RouteID = d.Route.ID
	}
	for _, s := range d.RouteStatuses {
		o.RouteStatusIDs = append(o.RouteStatusIDs, s.ID)
		o.RouteStatuses = append(o.RouteStatuses, routestatus.OrderRouteStatus{
			ID:             s.ID,
			OrganizationID: o.OrganizationID,
			Type:           s.Type,
			RoutePoint:     route.PointRef{ID: dataapi.RelationID(s.RoutePoint)},
			ExpectedTime:   s.ExpectedTime,
			IsArrived:      s.IsArrived,
			Notes:          s.Notes,
			Meta:           s.Meta,
		})
	}
	for _, p := range d.Participants {
		o.Participants = append(o.Participants, order.Participant{
			ID:      p.ID,
			OrderID: d.ID,
			UserID:  dataapi.RelationID(p.User),
			Role:    p.Role,
		})
	}

	return o
}

var orderPopulate = []string{
	"organization",
	"customer",
	"route.customer",
	"route.pickupPoints.address",
	"route.deliveryPoints.address",
	"routeStatuses.routePoint",
	"items",
	"participants.user",
	"merchandiseTypes",
}

// OrderRepository stores the order aggregate through the data API.
type OrderRepository struct {
	client *dataapi.Client
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(client *dataapi.Client) *OrderRepository {
	return &OrderRepository{client: client}
}

// Create stores the order record. Children are stored with their own calls.
func (r *OrderRepository) Create(ctx context.Context, o order.Order) (order.Order, error) {
	rec, err := r.client.Create(ctx, ordersEntity, OrderDalFromModel(&o))
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to create order: %w", err)
	}
	o.ID = rec.ID()

	return o, nil
}

// Update overwrites the order record.
func (r *OrderRepository) Update(ctx context.Context, o order.Order) (order.Order, error) {
	if _, err := r.client.Update(ctx, ordersEntity, o.ID, OrderDalFromModel(&o)); err != nil {
		return order.Order{}, fmt.Errorf("failed to update order: %w", err)
	}

	return o, nil
}

// ExistsByCode reports whether the organization already has an order with code.
func (r *OrderRepository) ExistsByCode(ctx context.Context, organizationID int64, code string) (bool, error) {
	recs, err := r.client.Find(ctx, ordersEntity, dataapi.Query{
		Filters: map[string]string{
			"organization.id": strconv.FormatInt(organizationID, 10),
			"code":            code,
		},
		Limit: 1,
	})
	if err != nil {
		return false, fmt.Errorf("failed to check order code: %w", err)
	}

	return len(recs) > 0, nil
}

// Query retrieves orders with their relations based on filter criteria.
func (r *OrderRepository) Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	q := dataapi.Query{
		Filters:  map[string]string{},
		Populate: orderPopulate,
		Limit:    filter.Limit,
	}
	if filter.OrganizationID > 0 {
		q.Filters["organization.id"] = strconv.FormatInt(filter.OrganizationID, 10)
	}
	if filter.Code != "" {
		q.Filters["code"] = filter.Code
	}
	if filter.ID > 0 {
		q.Filters["id"] = strconv.FormatInt(filter.ID, 10)
	}

	recs, err := r.client.Find(ctx, ordersEntity, q)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	result := make([]order.Order, 0, len(recs))
	for _, rec := range recs {
		var dal OrderReadDal
		if err := rec.Decode(&dal); err != nil {
			return nil, fmt.Errorf("failed to decode order: %w", err)
		}
		result = append(result, *dal.ToModel())
	}

	return result, nil
}

// UpsertItem updates the item when it has an id and creates it otherwise.
func (r *OrderRepository) UpsertItem(ctx context.Context, item order.Item, actorID int64) (order.Item, error) {
	fields := map[string]any{
		"order":         item.OrderID,
		"name":          item.Name,
		"quantity":      item.Quantity,
		"unit":          item.Unit,
		"weight":        item.Weight,
		"cubicMeters":   item.CubicMeters,
		"notes":         item.Notes,
		"updatedByUser": actorID,
	}

	if item.ID > 0 {
		if _, err := r.client.Update(ctx, itemsEntity, item.ID, fields); err != nil {
			return order.Item{}, fmt.Errorf("failed to update order item: %w", err)
		}

		return item, nil
	}

	fields["createdByUser"] = actorID
	rec, err := r.client.Create(ctx, itemsEntity, fields)
	if err != nil {
		return order.Item{}, fmt.Errorf("failed to create order item: %w", err)
	}
	item.ID = rec.ID()

	return item, nil
}

// CreateParticipant stores a new order participant.
func (r *OrderRepository) CreateParticipant(
	ctx context.Context,
	p order.Participant,
	actorID int64,
) (order.Participant, error) {
	rec, err := r.client.Create(ctx, participantsEntity, map[string]any{
		"order":         p.OrderID,
		"user":          p.UserID,
		"role":          p.Role,
		"createdByUser": actorID,
	})
	if err != nil {
		return order.Participant{}, fmt.Errorf("failed to create order participant: %w", err)
	}
	p.ID = rec.ID()

	return p, nil
}

// CreateStatus appends a status to the order history.
func (r *OrderRepository) CreateStatus(ctx context.Context, s order.Status) (order.Status, error) {
	rec, err := r.client.Create(ctx, statusesEntity, map[string]any{
		"order":         s.OrderID,
		"type":          s.Type,
		"createdByUser": s.CreatedByID,
	})
	if err != nil {
		return order.Status{}, fmt.Errorf("failed to create order status: %w", err)
	}
	s.ID = rec.ID()

	return s, nil
}

// UpsertRouteStatus updates the route status when it has an id and creates it otherwise.
// The status must reference a persisted route point.
func (r *OrderRepository) UpsertRouteStatus(
	ctx context.Context,
	s routestatus.OrderRouteStatus,
	actorID int64,
) (routestatus.OrderRouteStatus, error) {
	if s.RoutePoint.IsPending() {
		return routestatus.OrderRouteStatus{}, fmt.Errorf("%w: temp id %q", ErrUnresolvedRoutePoint, s.RoutePoint.TempID)
	}
	s.RoutePoint.TempID = ""

	fields := map[string]any{
		"type":          s.Type,
		"routePoint":    s.RoutePoint.ID,
		"expectedTime":  s.ExpectedTime,
		"isArrived":     s.IsArrived,
		"notes":         s.Notes,
		"meta":          s.Meta,
		"updatedByUser": actorID,
	}
	if s.OrganizationID > 0 {
		fields["organization"] = s.OrganizationID
	}

	if s.ID > 0 {
		if _, err := r.client.Update(ctx, routeStatusesEntity, s.ID, fields); err != nil {
			return routestatus.OrderRouteStatus{}, fmt.Errorf("failed to update route status: %w", err)
		}

		return s, nil
	}

	fields["createdByUser"] = actorID
	rec, err := r.client.Create(ctx, routeStatusesEntity, fields)
	if err != nil {
		return routestatus.OrderRouteStatus{}, fmt.Errorf("failed to create route status: %w", err)
	}
	s.ID = rec.ID()

	return s, nil
}
