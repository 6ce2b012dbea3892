package ordersvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/dispatch"
	"github.com/corray333/backend-labs/tms/internal/service/models/order"
	"github.com/corray333/backend-labs/tms/internal/service/models/settings"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

// CreateCommand is a new order with its customer, route and route statuses inlined.
type CreateCommand struct {
	Order   order.Order
	ActorID int64
}

// CreateResult is the stored order and, for non-draft orders, the outcome of the dispatch pass.
type CreateResult struct {
	Order    order.Order
	Dispatch *dispatch.Result
}

// CreateOrder resolves the customer and the route, generates a unique code and stores the order
// with its items, participants and first status.
func (s *OrderService) CreateOrder(ctx context.Context, cmd CreateCommand) (CreateResult, error) {
	ctx, span := otel.Tracer("ordersvc").Start(ctx, "Service.CreateOrder")
	defer span.End()

	o := cmd.Order
	if err := validateOrder(&o); err != nil {
		return CreateResult{}, err
	}

	cfg, err := s.settingsRepo.Get(ctx, o.OrganizationID)
	if err != nil {
		return CreateResult{}, errs.Internal("SETTINGS_LOAD_FAILED", err)
	}

	cust, err := s.resolveCustomer(ctx, &o, cmd.ActorID)
	if err != nil {
		return CreateResult{}, err
	}
	o.Customer = cust
	o.CustomerID = cust.ID

	rt, statuses, err := s.resolveRoute(ctx, &o, routeChange{}, cmd.ActorID)
	if err != nil {
		return CreateResult{}, err
	}
	o.Route = rt
	o.RouteID = rt.ID
	o.RouteStatuses = statuses
	o.RouteStatusIDs = statusIDs(statuses)

	o.Code, err = s.codes.Unique(ctx, o.OrganizationID, cfg.OrderCode, codeSeed(cfg.OrderCode.Strategy, &o))
	if err != nil {
		return CreateResult{}, err
	}

	o.CreatedByID = cmd.ActorID
	o.UpdatedByID = cmd.ActorID
	o.LastStatusType = ""
	if !o.IsDraft {
		o.LastStatusType = order.StatusNew
	}

	stored, err := s.orderRepo.Create(ctx, o)
	if err != nil {
		return CreateResult{}, errs.Internal("ORDER_CREATE_FAILED", err)
	}
	o.ID = stored.ID

	if err := s.saveChildren(ctx, &o, cmd.ActorID); err != nil {
		return CreateResult{}, err
	}

	if !o.IsDraft {
		if _, err := s.orderRepo.CreateStatus(ctx, order.Status{
			OrderID:     o.ID,
			Type:        order.StatusNew,
			CreatedByID: cmd.ActorID,
			CreatedAt:   time.Now(),
		}); err != nil {
			return CreateResult{}, errs.Internal("ORDER_STATUS_CREATE_FAILED", err)
		}
	}

	slog.InfoContext(ctx, "order created",
		"organization_id", o.OrganizationID,
		"order_id", o.ID,
		"order_code", o.Code,
		"is_draft", o.IsDraft,
	)

	s.publishEvent(ctx, order.EventCreated, &o)

	res := CreateResult{Order: o}
	if !o.IsDraft && s.dispatcher != nil {
		d := s.dispatch(ctx, &o, cfg.Dispatch)
		res.Dispatch = &d
	}

	return res, nil
}

// dispatch runs the best-effort dispatch pass. It never fails the order write.
func (s *OrderService) dispatch(ctx context.Context, o *order.Order, cfg settings.Dispatch) dispatch.Result {
	res, err := s.dispatcher.RecommendFor(ctx, o, cfg)
	if err != nil {
		slog.WarnContext(ctx, "dispatch pass failed", "order_code", o.Code, "error", err)

		return dispatch.Warning(dispatch.MessageFailed)
	}

	return res
}

// saveChildren stores items and participants concurrently.
func (s *OrderService) saveChildren(ctx context.Context, o *order.Order, actorID int64) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	items := make([]order.Item, len(o.Items))
	for i, item := range o.Items {
		g.Go(func() error {
			item.OrderID = o.ID
			saved, err := s.orderRepo.UpsertItem(gctx, item, actorID)
			if err != nil {
				return fmt.Errorf("item %q: %w", item.Name, err)
			}
			items[i] = saved

			return nil
		})
	}

	participants := make([]order.Participant, len(o.Participants))
	for i, p := range o.Participants {
		g.Go(func() error {
			if p.ID > 0 {
				participants[i] = p

				return nil
			}
			p.OrderID = o.ID
			saved, err := s.orderRepo.CreateParticipant(gctx, p, actorID)
			if err != nil {
				return fmt.Errorf("participant %d: %w", p.UserID, err)
			}
			participants[i] = saved

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return errs.Internal("ORDER_CHILDREN_SAVE_FAILED", err)
	}
	o.Items = items
	o.Participants = participants

	return nil
}

func validateOrder(o *order.Order) error {
	fields := map[string]string{}
	if o.OrganizationID <= 0 {
		fields["organizationId"] = "required"
	}
	if o.Customer == nil && o.CustomerID <= 0 {
		fields["customer"] = "required"
	}
	if o.Route == nil && o.RouteID <= 0 {
		fields["route"] = "required"
	}
	if o.UnitOfMeasure != "" && !o.UnitOfMeasure.Valid() {
		fields["unitOfMeasure"] = "must be one of TON, KILOGRAM, CUBIC_METER, PALLET"
	}
	if !o.OrderDate.IsZero() && !o.DeliveryDate.IsZero() && o.DeliveryDate.Before(o.OrderDate) {
		fields["deliveryDate"] = "must not be before orderDate"
	}
	if len(fields) > 0 {
		return errs.ValidationFields("INVALID_ORDER", fields)
	}

	return nil
}

func codeSeed(strategy settings.CodeStrategy, o *order.Order) string {
	switch strategy {
	case settings.CodeStrategyCustomerSpecific:
		if o.Customer != nil {
			return o.Customer.Code
		}
	case settings.CodeStrategyRouteSpecific:
		if o.Route != nil {
			return o.Route.Code
		}
	}

	return ""
}
