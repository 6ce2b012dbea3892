package dataapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestNormalizeUnwrapsNestedEnvelopes(t *testing.T) {
	body := `{
		"data": {
			"id": 7,
			"attributes": {
				"code": "ABCDE12345",
				"meta": {"priority": "high"},
				"route": {"data": {"id": 3, "attributes": {"code": "R1"}}},
				"items": {"data": [{"id": 1, "attributes": {"name": "rice"}}]},
				"customer": {"data": null}
			}
		},
		"meta": {}
	}`
	var raw any
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	rec, err := recordFrom(raw)
	if err != nil {
		t.Fatalf("recordFrom: %v", err)
	}

	if rec.ID() != 7 {
		t.Fatalf("expected id 7, got %d", rec.ID())
	}
	if rec["code"] != "ABCDE12345" {
		t.Fatalf("expected code to be flattened, got %v", rec["code"])
	}
	route, ok := rec["route"].(map[string]any)
	if !ok || route["code"] != "R1" {
		t.Fatalf("expected route relation flattened, got %#v", rec["route"])
	}
	items, ok := rec["items"].([]any)
	if !ok || len(items) != 1 {
		t.Fatalf("expected one item, got %#v", rec["items"])
	}
	if rec["customer"] != nil {
		t.Fatalf("expected empty relation to be nil, got %#v", rec["customer"])
	}
	meta, ok := rec["meta"].(map[string]any)
	if !ok || meta["priority"] != "high" {
		t.Fatalf("expected meta bag kept, got %#v", rec["meta"])
	}
}

func TestCreateSendsTokenAndDataEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/customers" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("unexpected auth header %q", got)
		}
		b, _ := io.ReadAll(r.Body)
		var req struct {
			Data map[string]any `json:"data"`
		}
		if err := json.Unmarshal(b, &req); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if req.Data["name"] != "ACME" {
			t.Errorf("expected name in data envelope, got %v", req.Data)
		}
		_, _ = w.Write([]byte(`{"data":{"id":42,"attributes":{"name":"ACME"}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", time.Second)
	rec, err := c.Create(context.Background(), "customers", map[string]any{"name": "ACME"})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID() != 42 {
		t.Fatalf("expected id 42, got %d", rec.ID())
	}
}

func TestFindEncodesFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if got := q.Get("filters[organization][id][$eq]"); got != "5" {
			t.Errorf("unexpected organization filter %q", got)
		}
		if got := q.Get("filters[code][$eq]"); got != "X1" {
			t.Errorf("unexpected code filter %q", got)
		}
		if got := q.Get("pagination[pageSize]"); got != "1" {
			t.Errorf("unexpected page size %q", got)
		}
		_, _ = w.Write([]byte(`{"data":[{"id":1,"attributes":{"code":"X1"}}],"meta":{"pagination":{"total":1}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	recs, err := c.Find(context.Background(), "orders", Query{
		Filters: map[string]string{"organization.id": "5", "code": "X1"},
		Limit:   1,
	})
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(recs) != 1 || recs[0].ID() != 1 {
		t.Fatalf("unexpected records %#v", recs)
	}
}

func TestGetNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"missing"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	_, err := c.Get(context.Background(), "routes", 9)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"data":{"id":9,"attributes":{}}}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	rec, err := c.Get(context.Background(), "routes", 9)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if rec.ID() != 9 || calls.Load() != 2 {
		t.Fatalf("expected a retried success, got id=%d calls=%d", rec.ID(), calls.Load())
	}
}

func TestCreateIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	if _, err := c.Create(context.Background(), "orders", map[string]any{}); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestGetGivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	_, err := c.Get(context.Background(), "routes", 9)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Fatalf("expected the last status error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestGetDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "t", time.Second)
	if _, err := c.Get(context.Background(), "routes", 9); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single attempt, got %d", calls.Load())
	}
}

func TestShippedConfigEntityURL(t *testing.T) {
	v := viper.New()
	v.SetConfigFile("../../../config.yaml")
	if err := v.ReadInConfig(); err != nil {
		t.Fatalf("read config: %v", err)
	}

	c := NewClient(v.GetString("dataapi.base_url"), "t", time.Second)
	if got, want := c.entityURL("orders", 0, nil), "http://data-api:1337/api/orders"; got != want {
		t.Fatalf("entity url = %q, want %q", got, want)
	}
}
