package httptransport

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/dispatch"
	"github.com/corray333/backend-labs/tms/internal/service/models/order"
	"github.com/corray333/backend-labs/tms/internal/service/services/ordersvc"
)

type fakeOrders struct {
	created *ordersvc.CreateCommand
	updated *ordersvc.UpdateCommand
	err     error
}

func (f *fakeOrders) CreateOrder(_ context.Context, cmd ordersvc.CreateCommand) (ordersvc.CreateResult, error) {
	f.created = &cmd
	if f.err != nil {
		return ordersvc.CreateResult{}, f.err
	}
	o := cmd.Order
	o.ID = 7
	o.Code = "ACMEC00001"
	res := dispatch.Warning(dispatch.MessageNotEnabled)

	return ordersvc.CreateResult{Order: o, Dispatch: &res}, nil
}

func (f *fakeOrders) UpdateOrder(_ context.Context, cmd ordersvc.UpdateCommand) (order.Order, error) {
	f.updated = &cmd
	return cmd.Order, f.err
}

func (f *fakeOrders) GetOrder(_ context.Context, orgID int64, code string) (order.Order, error) {
	if f.err != nil {
		return order.Order{}, f.err
	}

	return order.Order{ID: 7, OrganizationID: orgID, Code: code}, nil
}

type fakeDispatcher struct {
	res dispatch.Result
	err error
}

func (f *fakeDispatcher) Recommend(context.Context, int64, string) (dispatch.Result, error) {
	return f.res, f.err
}

type fakeDB struct{ err error }

func (f fakeDB) Ping(context.Context) error { return f.err }

func newTestTransport(orders *fakeOrders, d *fakeDispatcher, db fakeDB) http.Handler {
	h := NewHTTPTransport(orders, d, db)
	h.RegisterRoutes()

	return h.Handler()
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	return w
}

type errorResponse struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

const validOrder = `{
	"organizationId": 1,
	"actorId": 3,
	"orderDate": "2025-01-10T00:00:00Z",
	"deliveryDate": "2025-01-12T00:00:00Z",
	"unitOfMeasure": "TON",
	"weight": 5,
	"customer": {"type": "CASUAL", "name": "Acme Corp"},
	"route": {
		"type": "NON_FIXED",
		"pickupPoints": [{"tempId": "p1", "name": "Warehouse"}],
		"deliveryPoints": [{"tempId": "d1", "name": "Store", "address": {"latitude": 10.5, "longitude": 106.2}}]
	},
	"routeStatuses": [{"type": "PICKUP", "routePoint": {"tempId": "p1"}}],
	"items": [{"name": "Rice", "quantity": 10}]
}`

func TestCreateOrder(t *testing.T) {
	orders := &fakeOrders{}
	h := newTestTransport(orders, &fakeDispatcher{}, fakeDB{})

	w := do(t, h, http.MethodPost, "/api/orders", validOrder)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	var body struct {
		Order    order.Order      `json:"order"`
		Dispatch *dispatch.Result `json:"dispatch"`
	}
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Order.Code != "ACMEC00001" || body.Dispatch == nil || body.Dispatch.Color != dispatch.ColorWarning {
		t.Errorf("unexpected response: %+v", body)
	}

	cmd := orders.created
	if cmd == nil {
		t.Fatal("service was not called")
	}
	if cmd.ActorID != 3 {
		t.Errorf("expected actor 3, got %d", cmd.ActorID)
	}
	if cmd.Order.Route == nil || len(cmd.Order.Route.DeliveryPoints) != 1 {
		t.Fatalf("route not converted: %+v", cmd.Order.Route)
	}
	if lat := cmd.Order.Route.DeliveryPoints[0].Address.Latitude; lat == nil || *lat != 10.5 {
		t.Errorf("latitude not converted: %v", lat)
	}
	if len(cmd.Order.RouteStatuses) != 1 || cmd.Order.RouteStatuses[0].RoutePoint.TempID != "p1" {
		t.Errorf("route statuses not converted: %+v", cmd.Order.RouteStatuses)
	}
}

func TestCreateOrderRejectsInvalidBody(t *testing.T) {
	orders := &fakeOrders{}
	h := newTestTransport(orders, &fakeDispatcher{}, fakeDB{})

	body := strings.Replace(validOrder, `"organizationId": 1`, `"organizationId": 0`, 1)
	body = strings.Replace(body, `"type": "CASUAL"`, `"type": "WALK_IN"`, 1)

	w := do(t, h, http.MethodPost, "/api/orders", body)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}

	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Fields["organizationId"] != "gt=0" {
		t.Errorf("expected organizationId failure, got %v", resp.Error.Fields)
	}
	if _, ok := resp.Error.Fields["customer.type"]; !ok {
		t.Errorf("expected customer.type failure, got %v", resp.Error.Fields)
	}
	if orders.created != nil {
		t.Error("service must not be called for invalid input")
	}
}

func TestCreateOrderRejectsMalformedJSON(t *testing.T) {
	h := newTestTransport(&fakeOrders{}, &fakeDispatcher{}, fakeDB{})

	w := do(t, h, http.MethodPost, "/api/orders", "{")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestInternalErrorsAreNotLeaked(t *testing.T) {
	orders := &fakeOrders{err: errs.Internal("ORDER_CREATE_FAILED", errors.New("pq: connection reset"))}
	h := newTestTransport(orders, &fakeDispatcher{}, fakeDB{})

	w := do(t, h, http.MethodPost, "/api/orders", validOrder)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "connection reset") {
		t.Errorf("internal cause leaked: %s", w.Body.String())
	}

	var resp errorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Error.Code != "ORDER_CREATE_FAILED" {
		t.Errorf("expected ORDER_CREATE_FAILED, got %q", resp.Error.Code)
	}
}

func TestUpdateOrder(t *testing.T) {
	orders := &fakeOrders{}
	h := newTestTransport(orders, &fakeDispatcher{}, fakeDB{})

	body := strings.Replace(validOrder, `"organizationId": 1,`,
		`"organizationId": 1, "code": "ACMEC00001", "previous": {"customerId": 4, "routeId": 9, "isDraft": true},`, 1)

	w := do(t, h, http.MethodPut, "/api/orders/7", body)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	cmd := orders.updated
	if cmd == nil {
		t.Fatal("service was not called")
	}
	if cmd.Order.ID != 7 || cmd.Order.Code != "ACMEC00001" {
		t.Errorf("path id or code not applied: %d %q", cmd.Order.ID, cmd.Order.Code)
	}
	if cmd.Previous.CustomerID != 4 || cmd.Previous.RouteID != 9 || !cmd.Previous.IsDraft {
		t.Errorf("previous snapshot not converted: %+v", cmd.Previous)
	}
}

func TestUpdateOrderRequiresCode(t *testing.T) {
	orders := &fakeOrders{}
	h := newTestTransport(orders, &fakeDispatcher{}, fakeDB{})

	w := do(t, h, http.MethodPut, "/api/orders/7", validOrder)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if orders.updated != nil {
		t.Error("service must not be called without a code")
	}
}

func TestGetOrder(t *testing.T) {
	h := newTestTransport(&fakeOrders{}, &fakeDispatcher{}, fakeDB{})

	w := do(t, h, http.MethodGet, "/api/organizations/1/orders/ACMEC00001", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var o order.Order
	if err := json.NewDecoder(w.Body).Decode(&o); err != nil {
		t.Fatal(err)
	}
	if o.OrganizationID != 1 || o.Code != "ACMEC00001" {
		t.Errorf("unexpected order: %+v", o)
	}
}

func TestGetOrderNotFound(t *testing.T) {
	orders := &fakeOrders{err: errs.NotFound("ORDER_NOT_FOUND", "order not found")}
	h := newTestTransport(orders, &fakeDispatcher{}, fakeDB{})

	w := do(t, h, http.MethodGet, "/api/organizations/1/orders/MISSING", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestDispatchOrder(t *testing.T) {
	d := &fakeDispatcher{res: dispatch.Result{
		NumberOfDispatchedVehicle: 2,
		Message:                   dispatch.MessageSubmitted,
		Color:                     dispatch.ColorSuccess,
	}}
	h := newTestTransport(&fakeOrders{}, d, fakeDB{})

	w := do(t, h, http.MethodPost, "/api/organizations/1/orders/ACMEC00001/dispatch", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var res dispatch.Result
	if err := json.NewDecoder(w.Body).Decode(&res); err != nil {
		t.Fatal(err)
	}
	if res != d.res {
		t.Errorf("expected %+v, got %+v", d.res, res)
	}
}

func TestDispatchOrderRejectsBadOrganization(t *testing.T) {
	h := newTestTransport(&fakeOrders{}, &fakeDispatcher{}, fakeDB{})

	w := do(t, h, http.MethodPost, "/api/organizations/abc/orders/X/dispatch", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestHealth(t *testing.T) {
	ok := newTestTransport(&fakeOrders{}, &fakeDispatcher{}, fakeDB{})
	if w := do(t, ok, http.MethodGet, "/health", ""); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}

	down := newTestTransport(&fakeOrders{}, &fakeDispatcher{}, fakeDB{err: errors.New("refused")})
	if w := do(t, down, http.MethodGet, "/health", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", w.Code)
	}
}
