package routesvc

import (
	"context"
	"errors"
	"testing"

	"github.com/corray333/backend-labs/tms/internal/service/errs"
	"github.com/corray333/backend-labs/tms/internal/service/models/route"
	"github.com/corray333/backend-labs/tms/internal/service/models/routestatus"
)

type fakePoints struct {
	nextID       int64
	failAddress  string
	failPoint    bool
	upserted     []route.Point
	addressCalls int
}

func (f *fakePoints) UpsertAddress(_ context.Context, _ int64, a route.Address) (route.Address, error) {
	f.addressCalls++
	if a.City == f.failAddress {
		return route.Address{}, errors.New("address service down")
	}
	if a.ID == 0 {
		f.nextID++
		a.ID = 1000 + f.nextID
	}

	return a, nil
}

func (f *fakePoints) UpsertPoint(_ context.Context, p route.Point, _ int64) (route.Point, error) {
	if f.failPoint {
		return route.Point{}, errors.New("conflict")
	}
	if p.ID == 0 {
		f.nextID++
		p.ID = f.nextID
	}
	p.TempID = ""
	f.upserted = append(f.upserted, p)

	return p, nil
}

type fakeStatuses struct {
	nextID int64
	saved  []routestatus.OrderRouteStatus
}

func (f *fakeStatuses) UpsertRouteStatus(
	_ context.Context,
	s routestatus.OrderRouteStatus,
	_ int64,
) (routestatus.OrderRouteStatus, error) {
	if s.ID == 0 {
		f.nextID++
		s.ID = 500 + f.nextID
	}
	f.saved = append(f.saved, s)

	return s, nil
}

func TestReconcileResolvesTempIDs(t *testing.T) {
	points := &fakePoints{}
	statuses := &fakeStatuses{}
	r := NewReconciler(points, statuses)

	res, err := r.Reconcile(context.Background(), Input{
		OrganizationID: 1,
		CustomerID:     2,
		ActorID:        3,
		Points: []route.Point{
			{TempID: "t1", Name: "Warehouse", Address: &route.Address{City: "HCM"}},
		},
		Statuses: []routestatus.OrderRouteStatus{
			{Type: route.PointTypePickup, RoutePoint: route.PointRef{TempID: "t1"}},
		},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if len(res.Points) != 1 || len(res.StatusIDs) != 1 {
		t.Fatalf("got %d points and %d statuses, want 1 and 1", len(res.Points), len(res.StatusIDs))
	}
	pointID := res.Points[0].ID
	if pointID == 0 {
		t.Fatal("point was not persisted")
	}
	for _, s := range statuses.saved {
		if s.RoutePoint.ID != pointID {
			t.Errorf("status references point %d, want %d", s.RoutePoint.ID, pointID)
		}
		if s.RoutePoint.TempID != "" {
			t.Errorf("status still carries temp id %q", s.RoutePoint.TempID)
		}
		if s.OrganizationID != 1 {
			t.Errorf("status organization = %d, want 1", s.OrganizationID)
		}
	}
	if res.Points[0].Address == nil || res.Points[0].Address.ID == 0 {
		t.Errorf("point should reference the saved address")
	}
	if res.Points[0].CustomerID != 2 {
		t.Errorf("new point should belong to the order customer")
	}
}

func TestReconcilePreservesDisplayOrder(t *testing.T) {
	points := &fakePoints{nextID: 100}
	r := NewReconciler(points, &fakeStatuses{})

	res, err := r.Reconcile(context.Background(), Input{
		OrganizationID: 1,
		Points: []route.Point{
			{TempID: "a", Name: "A"},
			{ID: 7, Name: "B", DisplayOrder: 9},
			{TempID: "c", Name: "C"},
		},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	wantNames := []string{"A", "B", "C"}
	for i, p := range res.Points {
		if p.Name != wantNames[i] {
			t.Errorf("points[%d] = %s, want %s", i, p.Name, wantNames[i])
		}
		if p.DisplayOrder != i+1 {
			t.Errorf("%s display order = %d, want %d", p.Name, p.DisplayOrder, i+1)
		}
		if res.PointRefs[i].ID != p.ID {
			t.Errorf("refs[%d] = %d, want %d", i, res.PointRefs[i].ID, p.ID)
		}
	}
	if res.Points[1].ID != 7 {
		t.Errorf("existing point should keep its id, got %d", res.Points[1].ID)
	}
	if points.addressCalls != 0 {
		t.Errorf("points without address data must not touch addresses")
	}
}

func TestReconcileMatchesExistingPointByID(t *testing.T) {
	statuses := &fakeStatuses{}
	r := NewReconciler(&fakePoints{}, statuses)

	res, err := r.Reconcile(context.Background(), Input{
		Points: []route.Point{{ID: 42, Name: "Dock"}, {TempID: "x", Name: "No status"}},
		Statuses: []routestatus.OrderRouteStatus{
			{ID: 9, RoutePoint: route.PointRef{ID: 42}, IsArrived: true},
		},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(res.StatusIDs) != 1 || res.StatusIDs[0] != 9 {
		t.Errorf("status ids = %v, want [9]", res.StatusIDs)
	}
	if len(res.Points) != 2 {
		t.Errorf("a point without a status is not an error")
	}
}

func TestReconcileSkipsPointWithFailedAddress(t *testing.T) {
	r := NewReconciler(&fakePoints{failAddress: "BAD"}, &fakeStatuses{})

	res, err := r.Reconcile(context.Background(), Input{
		Points: []route.Point{
			{TempID: "a", Name: "A", Address: &route.Address{City: "BAD"}},
			{TempID: "b", Name: "B", Address: &route.Address{City: "OK"}},
		},
	})
	if err != nil {
		t.Fatalf("reconcile: %v", err)
	}
	if len(res.Skipped) != 1 || res.Skipped[0].Ref.TempID != "a" {
		t.Fatalf("skipped = %+v, want point a", res.Skipped)
	}
	if len(res.Points) != 1 || res.Points[0].Name != "B" || res.Points[0].DisplayOrder != 1 {
		t.Errorf("remaining points = %+v", res.Points)
	}
}

func TestReconcileAbortsOnPointFailure(t *testing.T) {
	r := NewReconciler(&fakePoints{failPoint: true}, &fakeStatuses{})

	_, err := r.Reconcile(context.Background(), Input{Points: []route.Point{{TempID: "a"}}})
	if err == nil || errs.KindOf(err) != errs.KindInternal {
		t.Fatalf("expected internal error, got %v", err)
	}
}
