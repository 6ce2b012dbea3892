package iorderrepo

import (
	"context"

	"github.com/corray333/backend-labs/tms/internal/service/models/order"
	"github.com/corray333/backend-labs/tms/internal/service/models/routestatus"
)

// IOrderRepository is an interface for the order aggregate.
type IOrderRepository interface {
	Create(ctx context.Context, o order.Order) (order.Order, error)
	Update(ctx context.Context, o order.Order) (order.Order, error)
	ExistsByCode(ctx context.Context, organizationID int64, code string) (bool, error)
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)

	UpsertItem(ctx context.Context, item order.Item, actorID int64) (order.Item, error)
	CreateParticipant(ctx context.Context, p order.Participant, actorID int64) (order.Participant, error)
	CreateStatus(ctx context.Context, s order.Status) (order.Status, error)
}

// IRouteStatusRepository is an interface for per-order route point statuses.
type IRouteStatusRepository interface {
	UpsertRouteStatus(ctx context.Context, s routestatus.OrderRouteStatus, actorID int64) (routestatus.OrderRouteStatus, error)
}
