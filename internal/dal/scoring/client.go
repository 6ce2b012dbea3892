package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
)

// TimeLayout is the date-time format expected by the recommendation service.
const TimeLayout = "2006-01-02 15:04:05"

// Commodity describes the order to dispatch.
type Commodity struct {
	OrderID          int64   `json:"order_id"`
	OrderCode        string  `json:"order_code"`
	ReceivingTime    string  `json:"receiving_time"`
	DeliveryTime     string  `json:"delivery_time"`
	CommodityType    string  `json:"commodity_type"`
	CommodityName    string  `json:"commodity_name"`
	CommodityWeight  float64 `json:"commodity_weight"`
	PickupLocation   string  `json:"pickup_location"`
	DeliveryLocation string  `json:"delivery_location"`
	CustomerID       int64   `json:"customer_id"`
}

// Vehicle is one candidate in the vehicle list.
type Vehicle struct {
	LicensePlate    string  `json:"license_plate"`
	Capacity        float64 `json:"capacity"`
	CurrentLocation string  `json:"current_location"`
	TripCount       int     `json:"trip_count"`
	TrailingCost    float64 `json:"trailing_cost"`
}

// Request is the body of a recommendation call.
type Request struct {
	Commodity    Commodity       `json:"commodity"`
	VehicleList  []Vehicle       `json:"vehicle_list"`
	PriorityItem json.RawMessage `json:"priority_item"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("recommendation service responded %d: %s", e.Code, e.Body)
}

// Client calls the external dispatch-recommendation service.
type Client struct {
	url     string
	session *http.Client
}

// NewClient creates a client posting to url.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:     url,
		session: &http.Client{Timeout: timeout},
	}
}

// MustNewClient creates a client from dispatch.scoring_url and dispatch.timeout_seconds.
func MustNewClient() *Client {
	url := viper.GetString("dispatch.scoring_url")
	if url == "" {
		panic("dispatch.scoring_url is not set in config")
	}

	return NewClient(url, time.Duration(viper.GetInt("dispatch.timeout_seconds"))*time.Second)
}

// Submit posts the request and returns the raw response body.
// The call is not retried: the service creates dispatch proposals on every request.
func (c *Client) Submit(ctx context.Context, r Request) (json.RawMessage, error) {
	ctx, span := otel.Tracer("scoring").Start(ctx, "Scoring.Submit")
	defer span.End()

	if r.VehicleList == nil {
		r.VehicleList = []Vehicle{}
	}
	if len(r.PriorityItem) == 0 {
		r.PriorityItem = json.RawMessage("{}")
	}

	payload, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.session.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		err := &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		span.RecordError(err)

		return nil, err
	}

	return body, nil
}
