package fleet

import (
	"context"
	"errors"
	"sync"

	"github.com/thatjpcsguy/fleetctl/internal/api"
)

var errBackend = &api.NetworkError{Err: errors.New("connection refused")}

// fakeBackend is an in-memory stand-in for the fleet REST API
type fakeBackend struct {
	mu          sync.Mutex
	agents      []api.Agent
	allocations []api.Allocation
	nextID      int64

	listAgentsErr  error
	listAllocsErr  error
	createErr      error
	releaseErr     error
	deleteErr      error
	listAgentCalls int
	listAllocCalls int

	// block, when set, is waited on inside ListAgents
	block chan struct{}
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{nextID: 100}
}

func (f *fakeBackend) ListAgents(ctx context.Context) ([]api.Agent, error) {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.listAgentCalls++
	if f.listAgentsErr != nil {
		return nil, f.listAgentsErr
	}
	return append([]api.Agent{}, f.agents...), nil
}

func (f *fakeBackend) ListAllocations(ctx context.Context, agentID *int64) ([]api.Allocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listAllocCalls++
	if f.listAllocsErr != nil {
		return nil, f.listAllocsErr
	}
	var out []api.Allocation
	for _, a := range f.allocations {
		if agentID == nil || a.AgentID == *agentID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeBackend) DeleteAgent(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return f.deleteErr
	}
	kept := f.agents[:0]
	for _, a := range f.agents {
		if a.ID != id {
			kept = append(kept, a)
		}
	}
	f.agents = kept
	return nil
}

func (f *fakeBackend) CreateAllocation(ctx context.Context, agentID int64, service string) (*api.Allocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.nextID++
	alloc := api.Allocation{
		ID:         f.nextID,
		AgentID:    agentID,
		Service:    service,
		RemotePort: 50000 + int(f.nextID),
		Status:     api.AllocationRequested,
		CreatedAt:  "2024-01-01T00:00:00",
	}
	f.allocations = append(f.allocations, alloc)
	return &alloc, nil
}

func (f *fakeBackend) ReleaseAllocation(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.releaseErr != nil {
		return f.releaseErr
	}
	for i := range f.allocations {
		if f.allocations[i].ID == id {
			f.allocations[i].Status = api.AllocationReleased
		}
	}
	return nil
}

func (f *fakeBackend) set(fn func(f *fakeBackend)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

// scenarioBackend seeds the two-agent fleet used across tests
func scenarioBackend() *fakeBackend {
	f := newFakeBackend()
	f.agents = []api.Agent{
		{ID: 1, Name: "agent-001", Status: api.AgentOnline},
		{ID: 2, Name: "agent-002", Status: api.AgentOnline},
	}
	f.allocations = []api.Allocation{
		{ID: 10, AgentID: 1, Service: "code_server", Status: api.AllocationActive},
		{ID: 11, AgentID: 1, Service: "code_server", Status: api.AllocationReleased},
		{ID: 12, AgentID: 2, Service: "code_server", Status: api.AllocationStarting},
	}
	return f
}

func allocationIDs(agent api.Agent) []int64 {
	ids := make([]int64, 0, len(agent.ActiveAllocations))
	for _, a := range agent.ActiveAllocations {
		ids = append(ids, a.ID)
	}
	return ids
}
