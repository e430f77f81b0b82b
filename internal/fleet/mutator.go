package fleet

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/thatjpcsguy/fleetctl/internal/api"
)

// DefaultService is the service provisioned when none is named
const DefaultService = "code_server"

// AllocationBackend is the subset of the API client the mutator writes through
type AllocationBackend interface {
	CreateAllocation(ctx context.Context, agentID int64, service string) (*api.Allocation, error)
	ReleaseAllocation(ctx context.Context, id int64) error
}

// Refresher resynchronizes the merged view after a mutation
type Refresher interface {
	Refresh(ctx context.Context) bool
}

// Mutator issues allocation lifecycle commands and refreshes the view
// before reporting completion
type Mutator struct {
	backend AllocationBackend
	view    Refresher
	logger  *zap.Logger

	mu       sync.Mutex
	inflight int
}

// NewMutator creates a mutator that refreshes view after each successful
// command
func NewMutator(backend AllocationBackend, view Refresher, logger *zap.Logger) *Mutator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mutator{
		backend: backend,
		view:    view,
		logger:  logger.With(zap.String("component", "mutator")),
	}
}

// Create provisions service on an agent. It reports success only; the
// cause of a failure goes to the log.
func (m *Mutator) Create(ctx context.Context, agentID int64, service string) bool {
	_, ok := m.CreateAllocation(ctx, agentID, service)
	return ok
}

// CreateAllocation is Create that also hands back the allocation the
// backend returned
func (m *Mutator) CreateAllocation(ctx context.Context, agentID int64, service string) (*api.Allocation, bool) {
	m.begin()
	defer m.end()

	if service == "" {
		service = DefaultService
	}

	alloc, err := m.backend.CreateAllocation(ctx, agentID, service)
	if err != nil {
		m.logger.Warn("failed to create allocation",
			zap.Int64("agent_id", agentID),
			zap.String("service", service),
			zap.Error(err),
		)
		return nil, false
	}

	m.view.Refresh(ctx)
	return alloc, true
}

// Release tears an allocation down
func (m *Mutator) Release(ctx context.Context, id int64) bool {
	m.begin()
	defer m.end()

	if err := m.backend.ReleaseAllocation(ctx, id); err != nil {
		m.logger.Warn("failed to release allocation", zap.Int64("allocation_id", id), zap.Error(err))
		return false
	}

	m.view.Refresh(ctx)
	return true
}

// Loading reports whether a command (including its refresh) is in flight
func (m *Mutator) Loading() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inflight > 0
}

func (m *Mutator) begin() {
	m.mu.Lock()
	m.inflight++
	m.mu.Unlock()
}

func (m *Mutator) end() {
	m.mu.Lock()
	m.inflight--
	m.mu.Unlock()
}
