package postgres

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/tms/internal/dal/postgres"
	"github.com/corray333/backend-labs/tms/internal/service/models/order"
	"github.com/corray333/backend-labs/tms/internal/service/models/vehicle"
)

// Trip statuses that never hold a vehicle: not started yet, or already closed.
var nonBlockingTripStatuses = []string{
	string(order.StatusNew),
	string(order.StatusPendingConfirmation),
	string(order.StatusDelivered),
	string(order.StatusCompleted),
}

var closedTripStatuses = []string{
	string(order.StatusDelivered),
	string(order.StatusCompleted),
}

var capacityColumns = map[order.UnitOfMeasure]string{
	order.UnitTon:        "v.ton_payload_capacity",
	order.UnitKilogram:   "v.ton_payload_capacity",
	order.UnitCubicMeter: "v.cubic_meter_capacity",
	order.UnitPallet:     "v.pallet_capacity",
}

// VehicleRepository runs the vehicle availability query against the TMS read database.
type VehicleRepository struct {
	client *postgres.Client
}

// NewVehicleRepository creates a new VehicleRepository.
func NewVehicleRepository(client *postgres.Client) *VehicleRepository {
	return &VehicleRepository{client: client}
}

// FindCandidates returns the active vehicles of the organization that are not committed to another
// order overlapping q.Window, each with its last known location before the pickup date and its
// trailing cost and trip count in [q.PeriodStart, q.PeriodEnd].
func (r *VehicleRepository) FindCandidates(ctx context.Context, q vehicle.CandidateQuery) ([]vehicle.Candidate, error) {
	query, args, err := buildCandidateQuery(q)
	if err != nil {
		return nil, err
	}

	rows, err := r.client.Pool().Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidate vehicles: %w", err)
	}
	defer rows.Close()

	var candidates []vehicle.Candidate
	for rows.Next() {
		var (
			c         vehicle.Candidate
			lat, lng  *float64
			tripCount int64
		)
		err := rows.Scan(
			&c.ID,
			&c.OrganizationID,
			&c.LicensePlate,
			&c.TonPayloadCapacity,
			&c.CubicMeterCapacity,
			&c.PalletCapacity,
			&c.IsActive,
			&lat,
			&lng,
			&c.TrailingCost,
			&tripCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan candidate vehicle: %w", err)
		}
		if lat != nil && lng != nil {
			c.CurrentLocation = vehicle.Location{Latitude: *lat, Longitude: *lng, Known: true}
		}
		c.TrailingTripCount = int(tripCount)
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating candidate vehicles: %w", err)
	}

	return candidates, nil
}

type cte struct {
	name  string
	query sq.SelectBuilder
}

// withClause renders the common table expressions with '?' placeholders so the outer
// builder can renumber them together with its own arguments.
func withClause(ctes ...cte) (string, []any, error) {
	parts := make([]string, 0, len(ctes))
	var args []any
	for _, c := range ctes {
		sql, cargs, err := c.query.ToSql()
		if err != nil {
			return "", nil, fmt.Errorf("failed to build %s: %w", c.name, err)
		}
		parts = append(parts, c.name+" AS ("+sql+")")
		args = append(args, cargs...)
	}

	return "WITH " + strings.Join(parts, ", "), args, nil
}

func buildCandidateQuery(q vehicle.CandidateQuery) (string, []any, error) {
	capacityColumn, ok := capacityColumns[q.Unit]
	if !ok {
		return "", nil, fmt.Errorf("unsupported unit of measure %q", q.Unit)
	}

	tripDelivered := sq.Select("trip_id", "MAX(created_at) AS delivered_at").
		From("order_trip_statuses").
		Where(sq.Eq{"type": string(order.StatusDelivered)}).
		GroupBy("trip_id")

	// A trip occupies its vehicle over [pickup_date, delivered_at ?? delivery_date].
	busyVehicles := sq.Select("t.vehicle_id").
		Distinct().
		From("order_trips t").
		Join("orders o ON o.id = t.order_id").
		LeftJoin("trip_delivered td ON td.trip_id = t.id").
		Where(sq.Eq{"t.organization_id": q.OrganizationID}).
		Where(sq.NotEq{"o.code": q.OrderCode}).
		Where("o.last_status_type IS DISTINCT FROM ?", string(order.StatusCanceled)).
		Where(sq.NotEq{"COALESCE(t.last_status_type, 'NEW')": nonBlockingTripStatuses}).
		Where(sq.LtOrEq{"t.pickup_date": q.Window.DeliveryDate}).
		Where(sq.GtOrEq{"COALESCE(td.delivered_at, t.delivery_date)": q.Window.PickupDate})

	lastMessage := sq.Select("m.latitude", "m.longitude").
		From("order_trip_messages m").
		Where("m.trip_id = t.id").
		Where(sq.Eq{"m.type": string(order.StatusDelivered)}).
		Where("m.latitude IS NOT NULL AND m.longitude IS NOT NULL").
		OrderBy("m.created_at DESC").
		Limit(1)
	lastMessageSQL, lastMessageArgs, err := lastMessage.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build delivery message lookup: %w", err)
	}

	lastDeliveryAddress := sq.Select("ad.latitude", "ad.longitude").
		From("route_delivery_points rdp").
		Join("route_points rp ON rp.id = rdp.route_point_id").
		Join("addresses ad ON ad.id = rp.address_id").
		Where("rdp.route_id = o.route_id").
		Where("ad.latitude IS NOT NULL AND ad.longitude IS NOT NULL").
		OrderBy("rdp.display_order DESC").
		Limit(1)
	lastDeliveryAddressSQL, lastDeliveryAddressArgs, err := lastDeliveryAddress.ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build delivery address lookup: %w", err)
	}

	locationHistory := sq.Select(
		"DISTINCT ON (t.vehicle_id) t.vehicle_id",
		"COALESCE(msg.latitude, addr.latitude) AS latitude",
		"COALESCE(msg.longitude, addr.longitude) AS longitude",
	).
		From("order_trips t").
		Join("orders o ON o.id = t.order_id").
		LeftJoin("trip_delivered td ON td.trip_id = t.id").
		LeftJoin("LATERAL ("+lastMessageSQL+") msg ON TRUE", lastMessageArgs...).
		LeftJoin("LATERAL ("+lastDeliveryAddressSQL+") addr ON TRUE", lastDeliveryAddressArgs...).
		Where(sq.Eq{"t.organization_id": q.OrganizationID}).
		Where(sq.Lt{"GREATEST(td.delivered_at, t.delivery_date)": q.Window.PickupDate}).
		Where("COALESCE(msg.latitude, addr.latitude) IS NOT NULL").
		OrderBy("t.vehicle_id", "GREATEST(td.delivered_at, t.delivery_date) DESC")

	trailing := sq.Select(
		"t.vehicle_id",
		"COALESCE(SUM(t.driver_cost), 0) AS cost",
		"COUNT(*) AS trips",
	).
		From("order_trips t").
		LeftJoin("trip_delivered td ON td.trip_id = t.id").
		Where(sq.Eq{"t.organization_id": q.OrganizationID}).
		Where(sq.Eq{"t.last_status_type": closedTripStatuses}).
		Where("COALESCE(td.delivered_at, t.delivery_date) BETWEEN ? AND ?", q.PeriodStart, q.PeriodEnd).
		GroupBy("t.vehicle_id")

	with, withArgs, err := withClause(
		cte{name: "trip_delivered", query: tripDelivered},
		cte{name: "busy_vehicles", query: busyVehicles},
		cte{name: "location_history", query: locationHistory},
		cte{name: "trailing", query: trailing},
	)
	if err != nil {
		return "", nil, err
	}

	// Vehicles without any trip have no busy row and no history, so the anti-join keeps them.
	query, args, err := sq.Select(
		"v.id",
		"v.organization_id",
		"v.license_plate",
		"v.ton_payload_capacity",
		"v.cubic_meter_capacity",
		"v.pallet_capacity",
		"v.is_active",
		"lh.latitude",
		"lh.longitude",
		"COALESCE(tr.cost, 0)",
		"COALESCE(tr.trips, 0)",
	).
		Prefix(with, withArgs...).
		From("vehicles v").
		LeftJoin("location_history lh ON lh.vehicle_id = v.id").
		LeftJoin("trailing tr ON tr.vehicle_id = v.id").
		Where(sq.Eq{"v.organization_id": q.OrganizationID}).
		Where("v.is_active").
		Where("v.published_at IS NOT NULL").
		Where(capacityColumn + " IS NOT NULL").
		Where("NOT EXISTS (SELECT 1 FROM busy_vehicles b WHERE b.vehicle_id = v.id)").
		OrderBy("v.id").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return "", nil, fmt.Errorf("failed to build candidate query: %w", err)
	}

	return query, args, nil
}
