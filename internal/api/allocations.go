package api

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
)

// CreateAllocation requests a new service instance on an agent
func (c *Client) CreateAllocation(ctx context.Context, agentID int64, service string) (*Allocation, error) {
	var alloc Allocation
	body := allocationCreate{AgentID: agentID, Service: service}
	if err := c.Send(ctx, http.MethodPost, "/allocations/create", body, nil, &alloc); err != nil {
		return nil, err
	}
	return &alloc, nil
}

// ReleaseAllocation asks the backend to tear an allocation down
func (c *Client) ReleaseAllocation(ctx context.Context, id int64) error {
	var ok OK
	return c.Send(ctx, http.MethodPost, fmt.Sprintf("/allocations/%d/release", id), nil, nil, &ok)
}

// ListAllocations returns allocations, filtered server-side to one agent
// when agentID is non-nil
func (c *Client) ListAllocations(ctx context.Context, agentID *int64) ([]Allocation, error) {
	var query url.Values
	if agentID != nil {
		query = url.Values{"agent_id": {strconv.FormatInt(*agentID, 10)}}
	}

	var allocations []Allocation
	if err := c.Send(ctx, http.MethodGet, "/allocations/", nil, query, &allocations); err != nil {
		return nil, err
	}
	return allocations, nil
}
