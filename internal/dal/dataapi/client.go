package dataapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("entity not found")

// StatusError is a non-2xx answer of the data API.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("data api responded %d: %s", e.Code, e.Body)
}

// Client talks to the graph-style content API that stores every order entity.
// Entities are addressed by their plural API name, e.g. "orders" or "route-points".
type Client struct {
	baseURL string
	token   string
	session *http.Client
}

// NewClient creates a Client. baseURL is the API host; entity paths are served under /api.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		session: &http.Client{Timeout: timeout},
	}
}

// MustNewClient creates a Client from configuration. The token is read from DATA_API_TOKEN.
func MustNewClient() *Client {
	baseURL := viper.GetString("dataapi.base_url")
	if baseURL == "" {
		panic("dataapi.base_url is not set in config")
	}
	token := os.Getenv("DATA_API_TOKEN")
	if token == "" {
		panic("DATA_API_TOKEN is not set")
	}

	return NewClient(baseURL, token, time.Duration(viper.GetInt("dataapi.timeout_seconds"))*time.Second)
}

// Query narrows a Find call. Filter keys may be dotted to reach relations ("organization.id").
type Query struct {
	Filters  map[string]string
	Populate []string
	Limit    int
}

func (q Query) values() url.Values {
	v := url.Values{}
	for key, val := range q.Filters {
		path := strings.Split(key, ".")
		v.Set("filters["+strings.Join(path, "][")+"][$eq]", val)
	}
	for i, p := range q.Populate {
		v.Set("populate["+strconv.Itoa(i)+"]", p)
	}
	if q.Limit > 0 {
		v.Set("pagination[pageSize]", strconv.Itoa(q.Limit))
	}

	return v
}

type requestBody struct {
	Data any `json:"data"`
}

// Create stores a new entity and returns its normalized record.
func (c *Client) Create(ctx context.Context, entity string, fields any) (Record, error) {
	ctx, span := otel.Tracer("dataapi").Start(ctx, "DataAPI.Create")
	span.SetAttributes(attribute.String("entity", entity))
	defer span.End()

	var raw any
	if err := c.send(ctx, http.MethodPost, c.entityURL(entity, 0, nil), requestBody{Data: fields}, &raw); err != nil {
		return nil, fmt.Errorf("create %s: %w", entity, err)
	}

	return recordFrom(raw)
}

// Update changes the given fields of an existing entity.
func (c *Client) Update(ctx context.Context, entity string, id int64, fields any) (Record, error) {
	ctx, span := otel.Tracer("dataapi").Start(ctx, "DataAPI.Update")
	span.SetAttributes(attribute.String("entity", entity), attribute.Int64("id", id))
	defer span.End()

	var raw any
	if err := c.send(ctx, http.MethodPut, c.entityURL(entity, id, nil), requestBody{Data: fields}, &raw); err != nil {
		return nil, fmt.Errorf("update %s %d: %w", entity, id, err)
	}

	return recordFrom(raw)
}

// Get fetches one entity by id.
func (c *Client) Get(ctx context.Context, entity string, id int64, populate ...string) (Record, error) {
	ctx, span := otel.Tracer("dataapi").Start(ctx, "DataAPI.Get")
	span.SetAttributes(attribute.String("entity", entity), attribute.Int64("id", id))
	defer span.End()

	var raw any
	q := Query{Populate: populate}
	if err := c.send(ctx, http.MethodGet, c.entityURL(entity, id, q.values()), nil, &raw); err != nil {
		return nil, fmt.Errorf("get %s %d: %w", entity, id, err)
	}

	return recordFrom(raw)
}

// Find lists entities matching q.
func (c *Client) Find(ctx context.Context, entity string, q Query) ([]Record, error) {
	ctx, span := otel.Tracer("dataapi").Start(ctx, "DataAPI.Find")
	span.SetAttributes(attribute.String("entity", entity))
	defer span.End()

	var raw any
	if err := c.send(ctx, http.MethodGet, c.entityURL(entity, 0, q.values()), nil, &raw); err != nil {
		return nil, fmt.Errorf("find %s: %w", entity, err)
	}

	return recordsFrom(raw)
}

func (c *Client) entityURL(entity string, id int64, query url.Values) string {
	u := c.baseURL + "/api/" + entity
	if id > 0 {
		u += "/" + strconv.FormatInt(id, 10)
	}
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	return u
}

func (c *Client) send(ctx context.Context, method, endpoint string, body any, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
	}

	makeReq := func() (*http.Request, error) {
		var r io.Reader
		if payload != nil {
			r = bytes.NewReader(payload)
		}

		return c.newRequest(ctx, method, endpoint, r)
	}

	var (
		resp *http.Response
		err  error
	)
	if method == http.MethodGet {
		resp, err = c.doWithRetry(ctx, makeReq)
	} else {
		var req *http.Request
		req, err = makeReq()
		if err != nil {
			return err
		}
		resp, err = c.do(req)
	}
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Code == http.StatusNotFound {
			return fmt.Errorf("%w: %s", ErrNotFound, se.Body)
		}

		return err
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	resp, err := c.session.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		b, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		return nil, &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(b))}
	}

	return resp, nil
}

// doWithRetry retries reads on network errors and 429/5xx with exponential backoff.
// Writes are never retried since the API has no idempotency keys.
func (c *Client) doWithRetry(ctx context.Context, makeReq func() (*http.Request, error)) (*http.Response, error) {
	backoff := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))

	var resp *http.Response
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		req, err := makeReq()
		if err != nil {
			return err
		}

		resp, err = c.do(req)
		if err != nil && retryable(err) {
			return retry.RetryableError(err)
		}

		return err
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

func retryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		switch se.Code {
		case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return true
		}

		return false
	}

	var netErr net.Error

	return errors.As(err, &netErr)
}
