package ordersvc

import (
	"context"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/order"
	"github.com/corray333/backend-labs/tms/internal/service/models/settings"
	"go.opentelemetry.io/otel"
)

// Snapshot is what the caller last saw of the order before editing it.
type Snapshot struct {
	CustomerID int64
	RouteID    int64
	IsDraft    bool
}

// UpdateCommand is the edited order plus its previous snapshot.
type UpdateCommand struct {
	Order    order.Order
	Previous Snapshot
	ActorID  int64
}

// UpdateOrder stores an edited order. The customer and the route are compared with the
// previous snapshot by id to decide whether they are reused, updated or created. The code
// is regenerated only for customer specific codes when the customer changed.
func (s *OrderService) UpdateOrder(ctx context.Context, cmd UpdateCommand) (order.Order, error) {
	ctx, span := otel.Tracer("ordersvc").Start(ctx, "Service.UpdateOrder")
	defer span.End()

	o := cmd.Order
	if o.ID <= 0 || o.Code == "" {
		return order.Order{}, errs.ValidationFields("INVALID_ORDER", map[string]string{
			"id": "id and code of the order being updated are required",
		})
	}
	if err := validateOrder(&o); err != nil {
		return order.Order{}, err
	}

	cfg, err := s.settingsRepo.Get(ctx, o.OrganizationID)
	if err != nil {
		return order.Order{}, errs.Internal("SETTINGS_LOAD_FAILED", err)
	}

	cust, err := s.resolveCustomer(ctx, &o, cmd.ActorID)
	if err != nil {
		return order.Order{}, err
	}
	o.Customer = cust
	o.CustomerID = cust.ID

	routeID := o.RouteID
	if o.Route != nil {
		routeID = o.Route.ID
	}
	change := routeChange{
		sameCustomer:  cmd.Previous.CustomerID > 0 && cust.ID == cmd.Previous.CustomerID,
		sameRoute:     cmd.Previous.RouteID > 0 && routeID == cmd.Previous.RouteID,
		keepStatusIDs: true,
	}

	rt, statuses, err := s.resolveRoute(ctx, &o, change, cmd.ActorID)
	if err != nil {
		return order.Order{}, err
	}
	o.Route = rt
	o.RouteID = rt.ID
	o.RouteStatuses = statuses
	o.RouteStatusIDs = statusIDs(statuses)

	if cfg.OrderCode.Strategy == settings.CodeStrategyCustomerSpecific && !change.sameCustomer {
		previousCode := o.Code
		o.Code, err = s.codes.Unique(ctx, o.OrganizationID, cfg.OrderCode, codeSeed(cfg.OrderCode.Strategy, &o))
		if err != nil {
			return order.Order{}, err
		}
		slog.InfoContext(ctx, "order code regenerated", "previous_code", previousCode, "order_code", o.Code)
	}

	activated := cmd.Previous.IsDraft && !o.IsDraft
	if activated {
		o.LastStatusType = order.StatusNew
	}
	o.UpdatedByID = cmd.ActorID

	if _, err := s.orderRepo.Update(ctx, o); err != nil {
		return order.Order{}, errs.Internal("ORDER_UPDATE_FAILED", err)
	}

	if err := s.saveChildren(ctx, &o, cmd.ActorID); err != nil {
		return order.Order{}, err
	}

	if activated {
		if _, err := s.orderRepo.CreateStatus(ctx, order.Status{
			OrderID:     o.ID,
			Type:        order.StatusNew,
			CreatedByID: cmd.ActorID,
			CreatedAt:   time.Now(),
		}); err != nil {
			return order.Order{}, errs.Internal("ORDER_STATUS_CREATE_FAILED", err)
		}
	}

	slog.InfoContext(ctx, "order updated",
		"organization_id", o.OrganizationID,
		"order_id", o.ID,
		"order_code", o.Code,
		"same_customer", change.sameCustomer,
		"same_route", change.sameRoute,
	)

	s.publishEvent(ctx, order.EventUpdated, &o)

	return o, nil
}

// GetOrder loads an order of the organization by code.
func (s *OrderService) GetOrder(ctx context.Context, organizationID int64, code string) (order.Order, error) {
	ctx, span := otel.Tracer("ordersvc").Start(ctx, "Service.GetOrder")
	defer span.End()

	orders, err := s.orderRepo.Query(ctx, &order.QueryOrdersModel{
		OrganizationID: organizationID,
		Code:           code,
		Limit:          1,
	})
	if err != nil {
		return order.Order{}, errs.Internal("ORDER_LOAD_FAILED", err)
	}
	if len(orders) == 0 {
		return order.Order{}, errs.NotFound("ORDER_NOT_FOUND", "order "+code+" not found")
	}

	return orders[0], nil
}
