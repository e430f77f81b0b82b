package fleet

import "github.com/thatjpcsguy/fleetctl/internal/api"

// Listed reports whether an allocation still belongs in its agent's active
// list. Released allocations are gone; failed ones stay so they can be
// inspected and released.
func Listed(alloc api.Allocation) bool {
	return alloc.Status != api.AllocationReleased
}

// Merge builds the denormalized agent view from one fetch of agents and one
// fetch of allocations. Each agent gets, in fetch order, the listed
// allocations whose AgentID matches its ID. Allocations referencing an
// unknown agent are dropped. Inputs are never modified.
func Merge(agents []api.Agent, allocations []api.Allocation) []api.Agent {
	byAgent := make(map[int64][]api.Allocation, len(agents))
	for _, alloc := range allocations {
		if !Listed(alloc) {
			continue
		}
		byAgent[alloc.AgentID] = append(byAgent[alloc.AgentID], alloc)
	}

	merged := make([]api.Agent, 0, len(agents))
	for _, agent := range agents {
		agent.ActiveAllocations = append([]api.Allocation{}, byAgent[agent.ID]...)
		merged = append(merged, agent)
	}
	return merged
}

// cloneAgents deep-copies the agent slice and each allocation list so
// callers can't reach into a stored snapshot
func cloneAgents(agents []api.Agent) []api.Agent {
	if agents == nil {
		return nil
	}
	out := make([]api.Agent, len(agents))
	for i, agent := range agents {
		agent.ActiveAllocations = append([]api.Allocation{}, agent.ActiveAllocations...)
		out[i] = agent
	}
	return out
}
