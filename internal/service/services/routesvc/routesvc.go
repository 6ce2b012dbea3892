package routesvc

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/tms/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/tms/internal/dal/interfaces/irouterepo"
	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/route"
	"github.com/corray333/backend-labs/tms/internal/service/models/routestatus"
	"go.opentelemetry.io/otel"
)

// Input is one ordered list of route points of an order together with the order's route statuses.
type Input struct {
	OrganizationID int64
	CustomerID     int64
	ActorID        int64
	Points         []route.Point
	Statuses       []routestatus.OrderRouteStatus
}

// SkippedPoint is a point left out of the route because its address could not be saved.
type SkippedPoint struct {
	Ref route.PointRef
	Err error
}

// Result holds the persisted points in input order and the ids of the statuses upserted for them.
type Result struct {
	PointRefs []route.PointRef
	Points    []route.Point
	StatusIDs []int64
	Statuses  []routestatus.OrderRouteStatus
	Skipped   []SkippedPoint
}

// Reconciler persists route points and attaches the order route statuses to them.
type Reconciler struct {
	pointRepo  irouterepo.IRoutePointRepository
	statusRepo iorderrepo.IRouteStatusRepository
}

// NewReconciler creates a new Reconciler.
func NewReconciler(
	pointRepo irouterepo.IRoutePointRepository,
	statusRepo iorderrepo.IRouteStatusRepository,
) *Reconciler {
	return &Reconciler{
		pointRepo:  pointRepo,
		statusRepo: statusRepo,
	}
}

// Reconcile upserts the points one by one in input order, which becomes their display order.
// Each status matching a point by id or temp id is upserted with the persisted point id.
// A point whose address cannot be saved is skipped and reported; a point or status write
// failure aborts the pass, leaving earlier writes in place.
func (r *Reconciler) Reconcile(ctx context.Context, in Input) (Result, error) {
	ctx, span := otel.Tracer("routesvc").Start(ctx, "Reconciler.Reconcile")
	defer span.End()

	var res Result
	for i := range in.Points {
		p := in.Points[i]
		ref := p.Ref()

		if p.Address.HasData() {
			addr, err := r.pointRepo.UpsertAddress(ctx, in.OrganizationID, *p.Address)
			if err != nil {
				slog.WarnContext(ctx, "skipping route point, address upsert failed",
					"organization_id", in.OrganizationID,
					"route_point_id", ref.ID,
					"temp_id", ref.TempID,
					"error", err,
				)
				res.Skipped = append(res.Skipped, SkippedPoint{Ref: ref, Err: err})

				continue
			}
			p.Address = &addr
		}

		if p.OrganizationID == 0 {
			p.OrganizationID = in.OrganizationID
		}
		if p.CustomerID == 0 {
			p.CustomerID = in.CustomerID
		}
		p.DisplayOrder = len(res.Points) + 1

		saved, err := r.pointRepo.UpsertPoint(ctx, p, in.ActorID)
		if err != nil {
			return res, errs.Internal("ROUTE_POINT_UPSERT_FAILED", err)
		}

		for _, s := range in.Statuses {
			if !s.MatchesPoint(&p) {
				continue
			}
			s.RoutePoint = route.PointRef{ID: saved.ID}
			if s.OrganizationID == 0 {
				s.OrganizationID = in.OrganizationID
			}

			stored, err := r.statusRepo.UpsertRouteStatus(ctx, s, in.ActorID)
			if err != nil {
				return res, errs.Internal(
					"ROUTE_STATUS_UPSERT_FAILED",
					fmt.Errorf("route point %d: %w", saved.ID, err),
				)
			}
			res.StatusIDs = append(res.StatusIDs, stored.ID)
			res.Statuses = append(res.Statuses, stored)

			break
		}

		res.Points = append(res.Points, saved)
		res.PointRefs = append(res.PointRefs, saved.Ref())
	}

	return res, nil
}
