package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	dashboard "github.com/goliatone/go-dashboard-designer/components/dashboard"
)

// HTTPConfig configures the REST telemetry client.
type HTTPConfig struct {
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
}

// HTTPClient talks to a telemetry backend over REST. It implements
// dashboard.TelemetrySource.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

var _ dashboard.TelemetrySource = (*HTTPClient)(nil)

// NewHTTPClient builds a client for the telemetry REST API.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("telemetry: base url is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  httpClient,
	}, nil
}

func (c *HTTPClient) Facilities(ctx context.Context) ([]dashboard.Facility, error) {
	var out []dashboard.Facility
	if err := c.do(ctx, http.MethodGet, "/facilities", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Systems(ctx context.Context, facilityID string) ([]dashboard.System, error) {
	var out []dashboard.System
	if err := c.do(ctx, http.MethodGet, "/facilities/"+url.PathEscape(facilityID)+"/systems", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Devices(ctx context.Context, systemID string) ([]dashboard.Device, error) {
	var out []dashboard.Device
	if err := c.do(ctx, http.MethodGet, "/systems/"+url.PathEscape(systemID)+"/devices", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *HTTPClient) Metrics(ctx context.Context, deviceID string) ([]dashboard.Metric, error) {
	var out []dashboard.Metric
	if err := c.do(ctx, http.MethodGet, "/devices/"+url.PathEscape(deviceID)+"/metrics", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Series posts the query to the telemetry endpoint.
func (c *HTTPClient) Series(ctx context.Context, query dashboard.SeriesQuery) ([]dashboard.Series, error) {
	req := seriesRequest{
		DeviceID: query.DeviceID,
		Metrics:  query.Metrics,
		From:     query.From.UTC(),
		To:       query.To.UTC(),
	}
	var resp []seriesResponse
	if err := c.do(ctx, http.MethodPost, "/telemetry/query", req, &resp); err != nil {
		return nil, err
	}
	out := make([]dashboard.Series, len(resp))
	for i, r := range resp {
		out[i] = r.toSeries()
	}
	return out, nil
}

func (c *HTTPClient) do(ctx context.Context, method, path string, payload any, target any) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("telemetry: encode payload: %w", err)
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("telemetry: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("telemetry: http request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var buf bytes.Buffer
		_, _ = buf.ReadFrom(resp.Body)
		return fmt.Errorf("telemetry: remote error %d: %s", resp.StatusCode, strings.TrimSpace(buf.String()))
	}
	if target == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("telemetry: decode response: %w", err)
	}
	return nil
}

type seriesRequest struct {
	DeviceID string    `json:"device_id"`
	Metrics  []string  `json:"metrics"`
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
}

type pointResponse struct {
	Name  time.Time `json:"name"`
	Value float64   `json:"value"`
}

// seriesResponse uses the chart-friendly {name, series:[{name, value}]} shape.
type seriesResponse struct {
	Name   string          `json:"name"`
	Series []pointResponse `json:"series"`
}

func (r seriesResponse) toSeries() dashboard.Series {
	points := make([]dashboard.Point, len(r.Series))
	for i, p := range r.Series {
		points[i] = dashboard.Point{Timestamp: p.Name, Value: p.Value}
	}
	return dashboard.Series{Name: r.Name, Points: points}
}
