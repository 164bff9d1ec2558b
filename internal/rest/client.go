// Package rest talks to a hosted PostgREST endpoint (the REST surface of a
// Supabase project) and implements backend.Backend on top of it.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/tgienger/taskhours/internal/backend"
)

// Options configures a Client
type Options struct {
	URL        string        // project URL, e.g. https://abc.supabase.co
	Key        string        // anon or service key, sent as apikey and bearer token
	Timeout    time.Duration // per request, default 10s
	HTTPClient *http.Client
	Logger     logrus.FieldLogger
}

// Client is a backend.Backend speaking PostgREST over HTTP
type Client struct {
	base    string
	key     string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
	log     logrus.FieldLogger
}

var _ backend.Backend = (*Client)(nil)

// APIError is a non-2xx answer from the REST endpoint
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("rest: %d %s: %s", e.Status, e.Code, msg)
	}
	return fmt.Sprintf("rest: %d: %s", e.Status, msg)
}

// SQLState returns the Postgres error code PostgREST passed through, if any
func (e *APIError) SQLState() string {
	return e.Code
}

// New creates a client. The circuit opens after five consecutive
// transport or server failures; client errors (4xx) never trip it.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}

	c := &Client{
		base: strings.TrimRight(opts.URL, "/") + "/rest/v1/",
		key:  opts.Key,
		http: httpClient,
		log:  log,
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "rest-backend",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				return apiErr.Status < 500
			}
			return err == nil
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.WithFields(logrus.Fields{"breaker": name, "from": from.String(), "to": to.String()}).
				Warn("circuit breaker state changed")
		},
	})
	return c
}

// List returns the rows matching every filter in the requested order
func (c *Client) List(ctx context.Context, table string, q backend.Query) ([]backend.Row, error) {
	if err := backend.CheckQuery(table, q); err != nil {
		return nil, err
	}

	params := filterParams(q.Filters)
	params.Set("select", "*")
	if len(q.Order) > 0 {
		terms := make([]string, len(q.Order))
		for i, o := range q.Order {
			dir := "asc"
			if o.Desc {
				dir = "desc"
			}
			terms[i] = o.Column + "." + dir
		}
		params.Set("order", strings.Join(terms, ","))
	}

	var rows []backend.Row
	if err := c.do(ctx, http.MethodGet, table, params, nil, "", &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// Get retrieves a row by id
func (c *Client) Get(ctx context.Context, table string, id int64) (backend.Row, error) {
	rows, err := c.List(ctx, table, backend.Where(backend.Eq("id", id)))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s %d", backend.ErrNotFound, table, id)
	}
	return rows[0], nil
}

// Insert creates a row and returns its stored representation
func (c *Client) Insert(ctx context.Context, table string, values backend.Row) (backend.Row, error) {
	if err := backend.CheckValues(table, values); err != nil {
		return nil, err
	}

	var rows []backend.Row
	if err := c.do(ctx, http.MethodPost, table, nil, []backend.Row{values}, "return=representation", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("rest: insert into %s returned no row", table)
	}
	return rows[0], nil
}

// Update patches the row with the given id
func (c *Client) Update(ctx context.Context, table string, id int64, values backend.Row) error {
	if err := backend.CheckValues(table, values); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}
	params := filterParams([]backend.Filter{backend.Eq("id", id)})
	return c.do(ctx, http.MethodPatch, table, params, values, "return=minimal", nil)
}

// Delete removes every row matching all filters
func (c *Client) Delete(ctx context.Context, table string, filters ...backend.Filter) error {
	if err := backend.CheckFilters(table, filters); err != nil {
		return err
	}
	return c.do(ctx, http.MethodDelete, table, filterParams(filters), nil, "return=minimal", nil)
}

// Close releases idle connections
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, table string, params url.Values, body any, prefer string, out any) error {
	_, err := c.breaker.Execute(func() (any, error) {
		return nil, c.roundTrip(ctx, method, table, params, body, prefer, out)
	})
	if err != nil {
		c.log.WithFields(logrus.Fields{"method": method, "table": table}).WithError(err).Debug("rest request failed")
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, table string, params url.Values, body any, prefer string, out any) error {
	u := c.base + table
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
		if json.Unmarshal(data, apiErr) != nil {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// filterParams renders equality filters in PostgREST syntax
func filterParams(filters []backend.Filter) url.Values {
	params := url.Values{}
	for _, f := range filters {
		params.Add(f.Column, operand(f.Value))
	}
	return params
}

func operand(v any) string {
	switch x := v.(type) {
	case nil:
		return "is.null"
	case bool:
		return "eq." + strconv.FormatBool(x)
	case *int64:
		if x == nil {
			return "is.null"
		}
		return "eq." + strconv.FormatInt(*x, 10)
	case time.Time:
		return "eq." + x.Format(time.RFC3339)
	}
	return fmt.Sprintf("eq.%v", v)
}
