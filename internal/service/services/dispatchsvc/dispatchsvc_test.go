package dispatchsvc

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/corray333/backend-labs/tms/internal/dal/scoring"
	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/dispatch"
	"github.com/corray333/backend-labs/tms/internal/service/models/order"
	"github.com/corray333/backend-labs/tms/internal/service/models/route"
	"github.com/corray333/backend-labs/tms/internal/service/models/routestatus"
	"github.com/corray333/backend-labs/tms/internal/service/models/settings"
	"github.com/corray333/backend-labs/tms/internal/service/models/vehicle"
)

type fakeSettings struct {
	s   settings.Organization
	err error
}

func (f *fakeSettings) Get(context.Context, int64) (settings.Organization, error) { return f.s, f.err }

type fakeOrders struct {
	orders []order.Order
}

func (f *fakeOrders) Create(_ context.Context, o order.Order) (order.Order, error) { return o, nil }
func (f *fakeOrders) Update(_ context.Context, o order.Order) (order.Order, error) { return o, nil }
func (f *fakeOrders) ExistsByCode(context.Context, int64, string) (bool, error)    { return false, nil }
func (f *fakeOrders) Query(_ context.Context, q *order.QueryOrdersModel) ([]order.Order, error) {
	var out []order.Order
	for _, o := range f.orders {
		if o.Code == q.Code {
			out = append(out, o)
		}
	}

	return out, nil
}
func (f *fakeOrders) UpsertItem(_ context.Context, i order.Item, _ int64) (order.Item, error) {
	return i, nil
}
func (f *fakeOrders) CreateParticipant(_ context.Context, p order.Participant, _ int64) (order.Participant, error) {
	return p, nil
}
func (f *fakeOrders) CreateStatus(_ context.Context, s order.Status) (order.Status, error) {
	return s, nil
}
func (f *fakeOrders) UpsertRouteStatus(
	_ context.Context,
	s routestatus.OrderRouteStatus,
	_ int64,
) (routestatus.OrderRouteStatus, error) {
	return s, nil
}

type fakeVehicles struct {
	candidates []vehicle.Candidate
	got        vehicle.CandidateQuery
}

func (f *fakeVehicles) FindCandidates(_ context.Context, q vehicle.CandidateQuery) ([]vehicle.Candidate, error) {
	f.got = q
	return f.candidates, nil
}

type fakeScorer struct {
	err error
	got *scoring.Request
}

func (f *fakeScorer) Submit(_ context.Context, r scoring.Request) (json.RawMessage, error) {
	f.got = &r
	if f.err != nil {
		return nil, f.err
	}

	return json.RawMessage(`{}`), nil
}

func ptr(f float64) *float64 { return &f }

var now = time.Date(2024, 1, 11, 8, 0, 0, 0, time.UTC)

func newOrder(unit order.UnitOfMeasure) order.Order {
	return order.Order{
		ID:             10,
		OrganizationID: 1,
		Code:           "ACME000001",
		OrderDate:      time.Date(2024, 1, 12, 9, 30, 0, 0, time.UTC),
		DeliveryDate:   time.Date(2024, 1, 14, 17, 0, 0, 0, time.UTC),
		UnitOfMeasure:  unit,
		Weight:         3,
		CustomerID:     5,
		Route: &route.Route{
			PickupPoints:   []route.Point{{Address: &route.Address{Latitude: ptr(10.75), Longitude: ptr(106.5)}}},
			DeliveryPoints: []route.Point{{Address: &route.Address{Latitude: ptr(21), Longitude: ptr(105.8)}}},
		},
	}
}

func newService(st *fakeSettings, orders *fakeOrders, vehicles *fakeVehicles, sc *fakeScorer) *DispatchService {
	return MustNewDispatchService(
		WithSettingsRepository(st),
		WithOrderRepository(orders),
		WithVehicleRepository(vehicles),
		WithScorer(sc),
		WithClock(func() time.Time { return now }),
	)
}

func enabled(priority string) *fakeSettings {
	return &fakeSettings{s: settings.Organization{
		OrganizationID: 1,
		Dispatch:       settings.Dispatch{Enabled: true, Priority: json.RawMessage(priority)},
	}}
}

func TestRecommendNotEnabled(t *testing.T) {
	sc := &fakeScorer{}
	s := newService(&fakeSettings{s: settings.Default(1)}, &fakeOrders{}, &fakeVehicles{}, sc)

	res, err := s.Recommend(context.Background(), 1, "X")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if res.Color != dispatch.ColorWarning || res.Message != dispatch.MessageNotEnabled {
		t.Errorf("result = %+v", res)
	}
	if sc.got != nil {
		t.Error("scoring service must not be called")
	}
}

func TestRecommendNoCandidates(t *testing.T) {
	sc := &fakeScorer{}
	s := newService(enabled(""), &fakeOrders{orders: []order.Order{newOrder(order.UnitTon)}}, &fakeVehicles{}, sc)

	res, err := s.Recommend(context.Background(), 1, "ACME000001")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if res.Color != dispatch.ColorWarning || res.Message != dispatch.MessageNoMatch {
		t.Errorf("result = %+v", res)
	}
	if sc.got != nil {
		t.Error("scoring service must not be called without candidates")
	}
}

func TestRecommendUnknownOrder(t *testing.T) {
	s := newService(enabled(""), &fakeOrders{}, &fakeVehicles{}, &fakeScorer{})

	_, err := s.Recommend(context.Background(), 1, "MISSING")
	if err == nil || errs.KindOf(err) != errs.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestRecommendMissingWindow(t *testing.T) {
	o := newOrder(order.UnitTon)
	o.DeliveryDate = time.Time{}
	s := newService(enabled(""), &fakeOrders{orders: []order.Order{o}}, &fakeVehicles{}, &fakeScorer{})

	_, err := s.Recommend(context.Background(), 1, o.Code)
	e, ok := errs.As(err)
	if !ok || e.Kind != errs.KindValidation || e.Fields["deliveryDate"] == "" {
		t.Fatalf("expected validation error on deliveryDate, got %v", err)
	}
}

func TestRecommendSubmitsNormalizedCapacity(t *testing.T) {
	vehicles := &fakeVehicles{candidates: []vehicle.Candidate{
		{
			Vehicle:           vehicle.Vehicle{ID: 1, LicensePlate: "51C-1", TonPayloadCapacity: ptr(5)},
			CurrentLocation:   vehicle.Location{Latitude: 10.5, Longitude: 106.25, Known: true},
			TrailingTripCount: 4,
		},
		{
			Vehicle: vehicle.Vehicle{ID: 2, LicensePlate: "51C-2", TonPayloadCapacity: ptr(2.5)},
		},
	}}
	sc := &fakeScorer{}
	s := newService(
		enabled(`{"period":{"value":2,"unit":"week"},"weight":1}`),
		&fakeOrders{orders: []order.Order{newOrder(order.UnitKilogram)}},
		vehicles,
		sc,
	)

	res, err := s.Recommend(context.Background(), 1, "ACME000001")
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}
	if res.Color != dispatch.ColorSuccess || res.NumberOfDispatchedVehicle != 2 {
		t.Errorf("result = %+v", res)
	}

	if want := now.AddDate(0, 0, -14); !vehicles.got.PeriodStart.Equal(want) {
		t.Errorf("period start = %v, want %v", vehicles.got.PeriodStart, want)
	}
	if vehicles.got.OrderCode != "ACME000001" || vehicles.got.Unit != order.UnitKilogram {
		t.Errorf("query = %+v", vehicles.got)
	}

	req := sc.got
	if req == nil {
		t.Fatal("scoring service was not called")
	}
	if req.VehicleList[0].Capacity != 5000 {
		t.Errorf("capacity = %v, want 5000", req.VehicleList[0].Capacity)
	}
	if req.VehicleList[0].CurrentLocation != "10.5,106.25" || req.VehicleList[1].CurrentLocation != "" {
		t.Errorf("locations = %q, %q", req.VehicleList[0].CurrentLocation, req.VehicleList[1].CurrentLocation)
	}
	if req.VehicleList[0].TripCount != 4 {
		t.Errorf("trip count = %d, want 4", req.VehicleList[0].TripCount)
	}
	if req.Commodity.ReceivingTime != "2024-01-12 09:30:00" || req.Commodity.DeliveryTime != "2024-01-14 17:00:00" {
		t.Errorf("times = %q, %q", req.Commodity.ReceivingTime, req.Commodity.DeliveryTime)
	}
	if req.Commodity.PickupLocation != "10.75,106.5" || req.Commodity.DeliveryLocation != "21,105.8" {
		t.Errorf("commodity locations = %q, %q", req.Commodity.PickupLocation, req.Commodity.DeliveryLocation)
	}
	if string(req.PriorityItem) != `{"period":{"value":2,"unit":"week"},"weight":1}` {
		t.Errorf("priority should be forwarded verbatim, got %s", req.PriorityItem)
	}
}

func TestRecommendScoringFailureIsWarning(t *testing.T) {
	sc := &fakeScorer{err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}}
	vehicles := &fakeVehicles{candidates: []vehicle.Candidate{
		{Vehicle: vehicle.Vehicle{ID: 1, PalletCapacity: ptr(12)}},
	}}
	s := newService(enabled(""), &fakeOrders{orders: []order.Order{newOrder(order.UnitPallet)}}, vehicles, sc)

	res, err := s.Recommend(context.Background(), 1, "ACME000001")
	if err != nil {
		t.Fatalf("scoring failures must not be returned: %v", err)
	}
	if res.Color != dispatch.ColorWarning || res.NumberOfDispatchedVehicle != 0 {
		t.Errorf("result = %+v", res)
	}
}

func TestBuildRequestSkipsVehiclesWithoutCapacity(t *testing.T) {
	o := newOrder(order.UnitCubicMeter)
	o.CubicMeters = 20
	req := BuildRequest(&o, []vehicle.Candidate{
		{Vehicle: vehicle.Vehicle{LicensePlate: "A", TonPayloadCapacity: ptr(5)}},
		{Vehicle: vehicle.Vehicle{LicensePlate: "B", CubicMeterCapacity: ptr(30)}},
	}, nil)

	if len(req.VehicleList) != 1 || req.VehicleList[0].LicensePlate != "B" {
		t.Errorf("vehicle list = %+v", req.VehicleList)
	}
	if req.Commodity.CommodityWeight != 20 {
		t.Errorf("commodity weight = %v, want cubic meters", req.Commodity.CommodityWeight)
	}
}
