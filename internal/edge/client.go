// Package edge calls the hosted backend's edge functions: named remote
// procedures that take a JSON body and answer with a {data, error} envelope.
package edge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/dnscache"
	"github.com/tidwall/gjson"

	tipster "github.com/winmix/tipsterhub/internal"
	"github.com/winmix/tipsterhub/internal/circuitbreaker"
)

const (
	defaultTimeout  = 10 * time.Second
	maxResponseBody = 4 << 20

	// FuncModelPerformance computes accuracy metrics for one model.
	FuncModelPerformance = "model-performance"
)

// Observer receives one sample per invocation.
type Observer interface {
	ObserveEdge(function string, seconds float64, failed bool)
}

// StatusError is a non-2xx answer from an edge function.
type StatusError struct {
	Function string
	Status   int
	Message  string // envelope error, if any
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("edge: %s: status %d", e.Function, e.Status)
	}
	return fmt.Sprintf("edge: %s: status %d: %s", e.Function, e.Status, e.Message)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.Status }

func (e *StatusError) Unwrap() error { return tipster.ErrUpstream }

// Options configures a Client.
type Options struct {
	BaseURL  string
	APIKey   string
	Timeout  time.Duration            // per call; 0 means 10s
	Resolver *dnscache.Resolver       // optional
	Observer Observer                 // optional
	Breakers *circuitbreaker.Registry // optional; one breaker per function
}

// Client invokes edge functions over HTTP.
type Client struct {
	baseURL  string
	timeout  time.Duration
	http     *http.Client
	observer Observer
	breakers *circuitbreaker.Registry
}

// New creates a Client. BaseURL is required.
func New(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		return nil, fmt.Errorf("edge: base url is required")
	}
	if _, err := url.Parse(opts.BaseURL); err != nil {
		return nil, fmt.Errorf("edge: base url: %w", err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL:  strings.TrimRight(opts.BaseURL, "/"),
		timeout:  timeout,
		http:     &http.Client{Transport: bearer(NewTransport(opts.Resolver), opts.APIKey)},
		observer: opts.Observer,
		breakers: opts.Breakers,
	}, nil
}

// Invoke calls the named function with payload marshaled as JSON and returns
// the raw "data" member of the response. A non-2xx status, a non-empty
// "error" member or an open breaker yields an error wrapping
// tipster.ErrUpstream.
func (c *Client) Invoke(ctx context.Context, name string, payload any) (data []byte, err error) {
	start := time.Now()
	defer func() {
		if c.observer != nil {
			c.observer.ObserveEdge(name, time.Since(start).Seconds(), err != nil)
		}
	}()

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("edge: marshal %s payload: %w", name, err)
	}

	if c.breakers == nil {
		return c.invoke(ctx, name, body)
	}
	err = c.breakers.Get(name).Do(func() error {
		data, err = c.invoke(ctx, name, body)
		return err
	})
	if errors.Is(err, circuitbreaker.ErrOpen) {
		return nil, fmt.Errorf("edge: %s: %w: %w", name, tipster.ErrUpstream, err)
	}
	return data, err
}

func (c *Client) invoke(ctx context.Context, name string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/functions/v1/"+url.PathEscape(name), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("edge: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if id := tipster.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("edge: %s: %w: %w", name, tipster.ErrUpstream, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("edge: %s: read response: %w", name, err)
	}

	env := gjson.ParseBytes(raw)
	msg := errorMessage(env)
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Function: name, Status: resp.StatusCode, Message: msg}
	}
	if msg != "" {
		return nil, fmt.Errorf("edge: %s: %w: %s", name, tipster.ErrUpstream, msg)
	}

	d := env.Get("data")
	if !d.Exists() || d.Type == gjson.Null {
		return nil, nil
	}
	return []byte(d.Raw), nil
}

// errorMessage extracts the envelope's error, which is either a string or an
// object with a "message" member.
func errorMessage(env gjson.Result) string {
	e := env.Get("error")
	switch {
	case !e.Exists() || e.Type == gjson.Null:
		return ""
	case e.IsObject():
		if m := e.Get("message").String(); m != "" {
			return m
		}
		return e.Raw
	default:
		return e.String()
	}
}

// ModelPerformance fetches the analytics summary for one model. A nil result
// with a nil error means the function had nothing to report.
func (c *Client) ModelPerformance(ctx context.Context, modelID string) (*tipster.ModelPerformance, error) {
	data, err := c.Invoke(ctx, FuncModelPerformance, map[string]string{"model_id": modelID})
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, nil
	}
	var perf tipster.ModelPerformance
	if err := json.Unmarshal(data, &perf); err != nil {
		return nil, fmt.Errorf("edge: decode %s: %w: %w", FuncModelPerformance, tipster.ErrUpstream, err)
	}
	if perf.ModelID == "" {
		perf.ModelID = modelID
	}
	return &perf, nil
}
