// Package client talks to the co2dash REST backend.
package client

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"

	"github.com/luki/co2dash/internal/sensor"
	"github.com/luki/co2dash/internal/service"
	"github.com/luki/co2dash/internal/storage"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	http *resty.Client
}

func New(baseURL string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10*time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500*time.Millisecond).
		SetRetryMaxWaitTime(3*time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &Client{http: http}
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	apiErr := &APIError{}
	req := c.http.R().SetContext(ctx).SetError(apiErr)
	if body != nil {
		req.SetBody(body)
	}
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.IsError() {
		apiErr.Status = resp.StatusCode()
		return apiErr
	}
	return nil
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, resty.MethodGet, "/health", nil, nil)
}

func (c *Client) ListBuildings(ctx context.Context) ([]storage.Building, error) {
	var out []storage.Building
	err := c.do(ctx, resty.MethodGet, "/api/buildings", nil, &out)
	return out, err
}

func (c *Client) Building(ctx context.Context, id uuid.UUID) (service.BuildingDetail, error) {
	var out service.BuildingDetail
	err := c.do(ctx, resty.MethodGet, "/api/buildings/"+id.String(), nil, &out)
	return out, err
}

func (c *Client) CreateBuilding(ctx context.Context, name string) (storage.Building, error) {
	var out storage.Building
	err := c.do(ctx, resty.MethodPost, "/api/buildings", map[string]string{"name": name}, &out)
	return out, err
}

func (c *Client) AddDeviceToBuilding(ctx context.Context, buildingID uuid.UUID, hardwareID string) (storage.Device, error) {
	var out storage.Device
	err := c.do(ctx, resty.MethodPost, "/api/buildings/"+buildingID.String()+"/devices",
		map[string]string{"deviceId": hardwareID}, &out)
	return out, err
}

func (c *Client) ListDevices(ctx context.Context) ([]storage.Device, error) {
	var out []storage.Device
	err := c.do(ctx, resty.MethodGet, "/api/devices", nil, &out)
	return out, err
}

func (c *Client) Dashboard(ctx context.Context) (service.Dashboard, error) {
	var out service.Dashboard
	err := c.do(ctx, resty.MethodGet, "/api/alerts", nil, &out)
	return out, err
}

// PostGateway sends one reading the way a radio gateway does.
func (c *Client) PostGateway(ctx context.Context, p sensor.GatewayPayload) error {
	return c.do(ctx, resty.MethodPost, "/api/readings/gateway", p, nil)
}
