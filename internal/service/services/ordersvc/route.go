package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/tms/internal/dal/dataapi"
	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/order"
	"github.com/corray333/backend-labs/tms/internal/service/models/route"
	"github.com/corray333/backend-labs/tms/internal/service/models/routestatus"
	"github.com/corray333/backend-labs/tms/internal/service/services/routesvc"
	"github.com/google/uuid"
)

// routeChange compares the route and customer of an order with its previous snapshot.
type routeChange struct {
	sameCustomer bool
	sameRoute    bool
	// keepStatusIDs is set on update, where the statuses already belong to the order.
	keepStatusIDs bool
}

// resolveRoute returns the route of the order and its persisted route statuses.
func (s *OrderService) resolveRoute(
	ctx context.Context,
	o *order.Order,
	change routeChange,
	actorID int64,
) (*route.Route, []routestatus.OrderRouteStatus, error) {
	var rt route.Route
	if o.Route != nil {
		rt = *o.Route
	} else {
		rt = route.Route{ID: o.RouteID, Type: route.TypeFixed}
	}

	statuses := make([]routestatus.OrderRouteStatus, len(o.RouteStatuses))
	copy(statuses, o.RouteStatuses)
	if !change.keepStatusIDs {
		for i := range statuses {
			statuses[i].ID = 0
		}
	}

	switch rt.Type {
	case route.TypeFixed, "":
		return s.resolveFixedRoute(ctx, o, rt.ID, statuses, actorID)
	case route.TypeNonFixed:
		return s.resolveNonFixedRoute(ctx, o, rt, statuses, change, actorID)
	default:
		return nil, nil, errs.ValidationFields("INVALID_ROUTE", map[string]string{
			"route.type": "must be FIXED or NON_FIXED",
		})
	}
}

// resolveFixedRoute references an existing template route and upserts the statuses of its points.
func (s *OrderService) resolveFixedRoute(
	ctx context.Context,
	o *order.Order,
	routeID int64,
	statuses []routestatus.OrderRouteStatus,
	actorID int64,
) (*route.Route, []routestatus.OrderRouteStatus, error) {
	if routeID <= 0 {
		return nil, nil, errs.ValidationFields("ROUTE_REQUIRED", map[string]string{
			"route.id": "a fixed route must reference an existing route",
		})
	}

	rt, err := s.routeRepo.Get(ctx, routeID)
	if errors.Is(err, dataapi.ErrNotFound) {
		return nil, nil, errs.ValidationFields("ROUTE_NOT_FOUND", map[string]string{
			"route.id": fmt.Sprintf("route %d does not exist", routeID),
		})
	}
	if err != nil {
		return nil, nil, errs.Internal("ROUTE_LOAD_FAILED", err)
	}

	known := make(map[int64]bool, len(rt.PickupPoints)+len(rt.DeliveryPoints))
	for _, p := range append(append([]route.Point{}, rt.PickupPoints...), rt.DeliveryPoints...) {
		known[p.ID] = true
	}

	saved := make([]routestatus.OrderRouteStatus, 0, len(statuses))
	for _, st := range statuses {
		if !known[st.RoutePoint.ID] {
			return nil, nil, errs.ValidationFields("ROUTE_STATUS_UNKNOWN_POINT", map[string]string{
				"routeStatuses.routePoint": "must reference a point of the fixed route",
			})
		}
		st.RoutePoint.TempID = ""
		if st.OrganizationID == 0 {
			st.OrganizationID = o.OrganizationID
		}

		stored, err := s.statusRepo.UpsertRouteStatus(ctx, st, actorID)
		if err != nil {
			return nil, nil, errs.Internal("ROUTE_STATUS_UPSERT_FAILED", err)
		}
		saved = append(saved, stored)
	}

	return rt, saved, nil
}

// resolveNonFixedRoute reconciles the ad hoc points of the order and stores the route.
//
// Same customer and same route updates the route in place. When the customer changed but the
// route did not, the points still belong to the previous customer, so they are copied as new points
// of the current customer and a new route is created.
//
// A different route is one branch whether or not the customer changed: the caller picked that
// route for the current customer, so it is updated when it exists and created otherwise. Nothing
// of the previous route is touched in either case.
func (s *OrderService) resolveNonFixedRoute(
	ctx context.Context,
	o *order.Order,
	rt route.Route,
	statuses []routestatus.OrderRouteStatus,
	change routeChange,
	actorID int64,
) (*route.Route, []routestatus.OrderRouteStatus, error) {
	if len(rt.PickupPoints) == 0 || len(rt.DeliveryPoints) == 0 {
		return nil, nil, errs.ValidationFields("ROUTE_POINTS_REQUIRED", map[string]string{
			"route": "a non fixed route needs at least one pickup and one delivery point",
		})
	}

	reown := change.sameRoute && !change.sameCustomer
	if reown {
		rt, statuses = reownRoute(rt, statuses)
	}

	pickups, err := s.reconciler.Reconcile(ctx, routesvc.Input{
		OrganizationID: o.OrganizationID,
		CustomerID:     o.CustomerID,
		ActorID:        actorID,
		Points:         rt.PickupPoints,
		Statuses:       statuses,
	})
	if err != nil {
		return nil, nil, err
	}
	deliveries, err := s.reconciler.Reconcile(ctx, routesvc.Input{
		OrganizationID: o.OrganizationID,
		CustomerID:     o.CustomerID,
		ActorID:        actorID,
		Points:         rt.DeliveryPoints,
		Statuses:       statuses,
	})
	if err != nil {
		return nil, nil, err
	}

	if skipped := len(pickups.Skipped) + len(deliveries.Skipped); skipped > 0 {
		slog.WarnContext(ctx, "route saved without some points",
			"organization_id", o.OrganizationID,
			"skipped", skipped,
		)
	}
	if len(pickups.Points) == 0 || len(deliveries.Points) == 0 {
		return nil, nil, errs.Internal(
			"ROUTE_POINTS_UNSAVED",
			errors.New("no pickup or no delivery point could be saved"),
		)
	}

	rt.Type = route.TypeNonFixed
	rt.OrganizationID = o.OrganizationID
	rt.CustomerID = o.CustomerID
	rt.PickupPoints = pickups.Points
	rt.DeliveryPoints = deliveries.Points

	if rt.ID > 0 {
		updated, err := s.routeRepo.Update(ctx, rt)
		if err != nil {
			return nil, nil, errs.Internal("ROUTE_UPDATE_FAILED", err)
		}
		rt = updated
	} else {
		created, err := s.routeRepo.Create(ctx, rt)
		if err != nil {
			return nil, nil, errs.Internal("ROUTE_CREATE_FAILED", err)
		}
		rt = created
	}

	return &rt, append(pickups.Statuses, deliveries.Statuses...), nil
}

// reownRoute turns every point of rt into a pending copy and repoints the statuses at the copies.
// Persisted points get a fresh temp id; points that were never saved keep theirs. The copy has
// no id so a new route is created.
func reownRoute(
	rt route.Route,
	statuses []routestatus.OrderRouteStatus,
) (route.Route, []routestatus.OrderRouteStatus) {
	tempIDs := make(map[int64]string)
	clone := func(points []route.Point) []route.Point {
		out := make([]route.Point, len(points))
		for i, p := range points {
			// Pending points keep the client temp id their statuses already reference.
			if p.ID > 0 || p.TempID == "" {
				tempID := uuid.NewString()
				if p.ID > 0 {
					tempIDs[p.ID] = tempID
				}
				p.ID = 0
				p.TempID = tempID
			}
			p.CustomerID = 0
			if p.Address != nil {
				addr := *p.Address
				addr.ID = 0
				p.Address = &addr
			}
			out[i] = p
		}

		return out
	}

	rt.ID = 0
	rt.PickupPoints = clone(rt.PickupPoints)
	rt.DeliveryPoints = clone(rt.DeliveryPoints)

	remapped := make([]routestatus.OrderRouteStatus, len(statuses))
	for i, st := range statuses {
		if tempID, ok := tempIDs[st.RoutePoint.ID]; ok {
			st.RoutePoint = route.PointRef{TempID: tempID}
		}
		remapped[i] = st
	}

	return rt, remapped
}

func statusIDs(statuses []routestatus.OrderRouteStatus) []int64 {
	ids := make([]int64, 0, len(statuses))
	for _, st := range statuses {
		ids = append(ids, st.ID)
	}

	return ids
}
