package irouterepo

import (
	"context"

	"github.com/corray333/backend-labs/tms/internal/service/models/route"
)

// IRouteRepository is an interface for routes and their points.
// Create and Update persist the point lists by the point ids in the order given.
type IRouteRepository interface {
	Get(ctx context.Context, id int64) (*route.Route, error)
	Create(ctx context.Context, r route.Route) (route.Route, error)
	Update(ctx context.Context, r route.Route) (route.Route, error)
}

// IRoutePointRepository is an interface for route points and addresses.
type IRoutePointRepository interface {
	UpsertAddress(ctx context.Context, organizationID int64, addr route.Address) (route.Address, error)
	UpsertPoint(ctx context.Context, p route.Point, actorID int64) (route.Point, error)
}
