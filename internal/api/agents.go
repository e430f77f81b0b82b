package api

import (
	"context"
	"fmt"
	"net/http"
)

// ListAgents returns every agent known to the backend
func (c *Client) ListAgents(ctx context.Context) ([]Agent, error) {
	var agents []Agent
	if err := c.Send(ctx, http.MethodGet, "/agents/", nil, nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

// DeleteAgent removes an agent
func (c *Client) DeleteAgent(ctx context.Context, id int64) error {
	var ok OK
	return c.Send(ctx, http.MethodDelete, fmt.Sprintf("/agents/%d", id), nil, nil, &ok)
}

// CreateAgentInvite asks the backend for a one-time registration secret
// for a new agent
func (c *Client) CreateAgentInvite(ctx context.Context, name string) (*Invite, error) {
	var invite Invite
	if err := c.Send(ctx, http.MethodPost, "/agents/create_invite", inviteCreate{Name: name}, nil, &invite); err != nil {
		return nil, err
	}
	return &invite, nil
}
