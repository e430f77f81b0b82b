package api

import (
	"context"
	"net/http"
)

// CheckHealth calls the unauthenticated health endpoint
func (c *Client) CheckHealth(ctx context.Context) (*Health, error) {
	var health Health
	if err := c.Send(ctx, http.MethodGet, "/health", nil, nil, &health); err != nil {
		return nil, err
	}
	return &health, nil
}

// PortsAvailable reports the backend's remote port pool
func (c *Client) PortsAvailable(ctx context.Context) (*PortPool, error) {
	var pool PortPool
	if err := c.Send(ctx, http.MethodGet, "/ports/available", nil, nil, &pool); err != nil {
		return nil, err
	}
	return &pool, nil
}
