package dispatchsvc

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/corray333/backend-labs/tms/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/tms/internal/dal/interfaces/isettingsrepo"
	"github.com/corray333/backend-labs/tms/internal/dal/interfaces/ivehiclerepo"
	"github.com/corray333/backend-labs/tms/internal/dal/scoring"
	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/dispatch"
	"github.com/corray333/backend-labs/tms/internal/service/models/order"
	"github.com/corray333/backend-labs/tms/internal/service/models/route"
	"github.com/corray333/backend-labs/tms/internal/service/models/settings"
	"github.com/corray333/backend-labs/tms/internal/service/models/vehicle"
	"go.opentelemetry.io/otel"
)

// scorer submits a dispatch package to the recommendation service.
type scorer interface {
	Submit(ctx context.Context, r scoring.Request) (json.RawMessage, error)
}

// DispatchService finds free vehicles for an order and hands them to the recommendation service.
type DispatchService struct {
	settingsRepo isettingsrepo.ISettingsRepository
	orderRepo    iorderrepo.IOrderRepository
	vehicleRepo  ivehiclerepo.IVehicleRepository
	scorer       scorer
	now          func() time.Time
}

// option is a function that configures the DispatchService.
type option func(*DispatchService)

// MustNewDispatchService creates a new DispatchService.
func MustNewDispatchService(opts ...option) *DispatchService {
	s := &DispatchService{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if s.settingsRepo == nil || s.orderRepo == nil || s.vehicleRepo == nil || s.scorer == nil {
		panic("dispatch service is missing a dependency")
	}

	return s
}

// WithSettingsRepository sets the organization settings source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSettingsRepository(repo isettingsrepo.ISettingsRepository) option {
	return func(s *DispatchService) {
		s.settingsRepo = repo
	}
}

// WithOrderRepository sets the order source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithOrderRepository(repo iorderrepo.IOrderRepository) option {
	return func(s *DispatchService) {
		s.orderRepo = repo
	}
}

// WithVehicleRepository sets the availability query.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithVehicleRepository(repo ivehiclerepo.IVehicleRepository) option {
	return func(s *DispatchService) {
		s.vehicleRepo = repo
	}
}

// WithScorer sets the recommendation service client.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithScorer(sc scorer) option {
	return func(s *DispatchService) {
		s.scorer = sc
	}
}

// WithClock overrides the clock used for the trailing period.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *DispatchService) {
		s.now = now
	}
}

// Recommend runs a dispatch pass for the order with code.
// Only caller errors are returned: an unknown order or an order without window or unit.
// Every other failure is logged and reported as a warning result.
func (s *DispatchService) Recommend(ctx context.Context, organizationID int64, code string) (dispatch.Result, error) {
	ctx, span := otel.Tracer("dispatchsvc").Start(ctx, "Dispatch.Recommend")
	defer span.End()

	cfg, err := s.settingsRepo.Get(ctx, organizationID)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load dispatch settings", "organization_id", organizationID, "error", err)

		return dispatch.Warning(dispatch.MessageFailed), nil
	}
	if !cfg.Dispatch.Enabled {
		return dispatch.Warning(dispatch.MessageNotEnabled), nil
	}

	orders, err := s.orderRepo.Query(ctx, &order.QueryOrdersModel{OrganizationID: organizationID, Code: code, Limit: 1})
	if err != nil {
		slog.ErrorContext(ctx, "failed to load order for dispatch", "order_code", code, "error", err)

		return dispatch.Warning(dispatch.MessageFailed), nil
	}
	if len(orders) == 0 {
		return dispatch.Result{}, errs.NotFound("ORDER_NOT_FOUND", "order "+code+" not found")
	}

	return s.RecommendFor(ctx, &orders[0], cfg.Dispatch)
}

// RecommendFor runs a dispatch pass for an already loaded order.
func (s *DispatchService) RecommendFor(
	ctx context.Context,
	o *order.Order,
	cfg settings.Dispatch,
) (dispatch.Result, error) {
	if !cfg.Enabled {
		return dispatch.Warning(dispatch.MessageNotEnabled), nil
	}

	window, err := orderWindow(o)
	if err != nil {
		return dispatch.Result{}, err
	}

	now := s.now()
	candidates, err := s.vehicleRepo.FindCandidates(ctx, vehicle.CandidateQuery{
		OrganizationID: o.OrganizationID,
		OrderCode:      o.Code,
		Window:         window,
		Unit:           o.UnitOfMeasure,
		PeriodStart:    cfg.Period().Start(now),
		PeriodEnd:      now,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to find candidate vehicles", "order_code", o.Code, "error", err)

		return dispatch.Warning(dispatch.MessageFailed), nil
	}
	if len(candidates) == 0 {
		return dispatch.Warning(dispatch.MessageNoMatch), nil
	}

	return s.Submit(ctx, o, candidates, cfg.Priority), nil
}

// Submit sends the order and its candidates to the recommendation service.
// It never fails: errors are logged and turned into a warning result.
func (s *DispatchService) Submit(
	ctx context.Context,
	o *order.Order,
	candidates []vehicle.Candidate,
	priority json.RawMessage,
) dispatch.Result {
	req := BuildRequest(o, candidates, priority)

	resp, err := s.scorer.Submit(ctx, req)
	if err != nil {
		slog.WarnContext(ctx, "dispatch recommendation failed",
			"organization_id", o.OrganizationID,
			"order_code", o.Code,
			"candidates", len(req.VehicleList),
			"error", err,
		)

		return dispatch.Warning(dispatch.MessageFailed)
	}

	slog.InfoContext(ctx, "dispatch recommendation submitted",
		"organization_id", o.OrganizationID,
		"order_code", o.Code,
		"candidates", len(req.VehicleList),
		"response", string(resp),
	)

	return dispatch.Result{
		NumberOfDispatchedVehicle: len(req.VehicleList),
		Message:                   dispatch.MessageSubmitted,
		Color:                     dispatch.ColorSuccess,
	}
}

// BuildRequest assembles the commodity descriptor and the vehicle list.
// Candidates without capacity in the order unit are left out.
func BuildRequest(o *order.Order, candidates []vehicle.Candidate, priority json.RawMessage) scoring.Request {
	commodity := scoring.Commodity{
		OrderID:         o.ID,
		OrderCode:       o.Code,
		ReceivingTime:   o.OrderDate.Format(scoring.TimeLayout),
		DeliveryTime:    o.DeliveryDate.Format(scoring.TimeLayout),
		CommodityType:   string(o.UnitOfMeasure),
		CommodityName:   commodityName(o),
		CommodityWeight: o.Weight,
		CustomerID:      o.CustomerID,
	}
	if o.UnitOfMeasure == order.UnitCubicMeter {
		commodity.CommodityWeight = o.CubicMeters
	}
	if o.Route != nil {
		commodity.PickupLocation = pointLocation(o.Route.FirstPickup()).String()
		commodity.DeliveryLocation = pointLocation(o.Route.LastDelivery()).String()
	}

	vehicles := make([]scoring.Vehicle, 0, len(candidates))
	for _, c := range candidates {
		capacity, ok := c.Capacity(o.UnitOfMeasure)
		if !ok {
			continue
		}
		vehicles = append(vehicles, scoring.Vehicle{
			LicensePlate:    c.LicensePlate,
			Capacity:        capacity,
			CurrentLocation: c.CurrentLocation.String(),
			TripCount:       c.TrailingTripCount,
			TrailingCost:    c.TrailingCost,
		})
	}

	return scoring.Request{
		Commodity:    commodity,
		VehicleList:  vehicles,
		PriorityItem: priority,
	}
}

func orderWindow(o *order.Order) (vehicle.Window, error) {
	fields := map[string]string{}
	if o.OrderDate.IsZero() {
		fields["orderDate"] = "required for dispatch"
	}
	if o.DeliveryDate.IsZero() {
		fields["deliveryDate"] = "required for dispatch"
	}
	if !o.UnitOfMeasure.Valid() {
		fields["unitOfMeasure"] = "must be one of TON, KILOGRAM, CUBIC_METER, PALLET"
	}
	if len(fields) == 0 && o.DeliveryDate.Before(o.OrderDate) {
		fields["deliveryDate"] = "must not be before orderDate"
	}
	if len(fields) > 0 {
		return vehicle.Window{}, errs.ValidationFields("INVALID_DISPATCH_ORDER", fields)
	}

	return vehicle.Window{PickupDate: o.OrderDate, DeliveryDate: o.DeliveryDate}, nil
}

func commodityName(o *order.Order) string {
	names := make([]string, 0, len(o.MerchandiseTypes))
	for _, m := range o.MerchandiseTypes {
		if m.Name != "" {
			names = append(names, m.Name)
		}
	}
	if len(names) == 0 {
		return o.MerchandiseNote
	}

	return strings.Join(names, ", ")
}

func pointLocation(p *route.Point) vehicle.Location {
	if p == nil || p.Address == nil || p.Address.Latitude == nil || p.Address.Longitude == nil {
		return vehicle.Location{}
	}

	return vehicle.Location{Latitude: *p.Address.Latitude, Longitude: *p.Address.Longitude, Known: true}
}
