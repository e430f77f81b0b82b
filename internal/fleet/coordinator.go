// Package fleet keeps the client's merged view of agents and their
// allocations in step with the backend.
package fleet

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/thatjpcsguy/fleetctl/internal/api"
)

// Backend is the subset of the API client the coordinator reads from
type Backend interface {
	ListAgents(ctx context.Context) ([]api.Agent, error)
	ListAllocations(ctx context.Context, agentID *int64) ([]api.Allocation, error)
	DeleteAgent(ctx context.Context, id int64) error
}

// Coordinator owns the merged agent snapshot and its loading state
type Coordinator struct {
	backend Backend
	logger  *zap.Logger

	mu       sync.RWMutex
	agents   []api.Agent
	inflight int
}

// NewCoordinator creates a coordinator with an empty snapshot
func NewCoordinator(backend Backend, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		backend: backend,
		logger:  logger.With(zap.String("component", "coordinator")),
	}
}

// Refresh fetches agents and allocations concurrently and, when both
// succeed, replaces the snapshot with their merge. On failure the previous
// snapshot is kept and false is returned.
//
// Overlapping refreshes are not ordered: whichever finishes last leaves its
// snapshot standing. Callers must not depend on a particular refresh winning.
func (c *Coordinator) Refresh(ctx context.Context) bool {
	c.begin()
	defer c.end()

	var (
		agents      []api.Agent
		allocations []api.Allocation
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		fetched, err := c.backend.ListAgents(gctx)
		if err != nil {
			return fmt.Errorf("failed to list agents: %w", err)
		}
		agents = fetched
		return nil
	})
	g.Go(func() error {
		fetched, err := c.backend.ListAllocations(gctx, nil)
		if err != nil {
			return fmt.Errorf("failed to list allocations: %w", err)
		}
		allocations = fetched
		return nil
	})

	if err := g.Wait(); err != nil {
		c.logger.Warn("refresh failed, keeping previous snapshot", zap.Error(err))
		return false
	}

	merged := Merge(agents, allocations)

	c.mu.Lock()
	c.agents = merged
	c.mu.Unlock()

	c.logger.Debug("snapshot refreshed",
		zap.Int("agents", len(agents)),
		zap.Int("allocations", len(allocations)),
	)
	return true
}

// DeleteAgent deletes an agent and then refreshes whether or not the delete
// succeeded. It reports whether the delete succeeded.
func (c *Coordinator) DeleteAgent(ctx context.Context, id int64) bool {
	err := c.backend.DeleteAgent(ctx, id)
	if err != nil {
		c.logger.Warn("failed to delete agent", zap.Int64("agent_id", id), zap.Error(err))
	}
	c.Refresh(ctx)
	return err == nil
}

// Agents returns a copy of the current snapshot
func (c *Coordinator) Agents() []api.Agent {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return cloneAgents(c.agents)
}

// Agent looks up one agent in the current snapshot
func (c *Coordinator) Agent(id int64) (api.Agent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, agent := range c.agents {
		if agent.ID == id {
			return cloneAgents([]api.Agent{agent})[0], true
		}
	}
	return api.Agent{}, false
}

// Loading reports whether a refresh is in flight
func (c *Coordinator) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.inflight > 0
}

// Reset drops the cached snapshot, e.g. after logout
func (c *Coordinator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.agents = nil
}

func (c *Coordinator) begin() {
	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()
}

func (c *Coordinator) end() {
	c.mu.Lock()
	c.inflight--
	c.mu.Unlock()
}
