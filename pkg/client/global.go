package client

import (
	"context"
	"net/http"
)

type HealthResponse struct {
	Healthy bool   `json:"healthy"`
	Version string `json:"version,omitempty"`
}

// Health probes the server. A response without data reports unhealthy.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	res, err := c.do(ctx, http.MethodGet, "global/health", nil)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return &HealthResponse{}, nil
	}
	return &HealthResponse{
		Healthy: res.Get("healthy").Bool(),
		Version: res.Get("version").String(),
	}, nil
}
