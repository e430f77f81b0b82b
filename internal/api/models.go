package api

// AgentStatus is the connectivity state reported for an agent
type AgentStatus string

const (
	AgentOnline  AgentStatus = "online"
	AgentOffline AgentStatus = "offline"
)

// AllocationStatus is the lifecycle state of an allocation
type AllocationStatus string

const (
	AllocationRequested AllocationStatus = "requested"
	AllocationStarting  AllocationStatus = "starting"
	AllocationActive    AllocationStatus = "active"
	AllocationReleasing AllocationStatus = "releasing"
	AllocationReleased  AllocationStatus = "released"
	AllocationFailed    AllocationStatus = "failed"
)

// lifecycle order of the non-failure states
var allocationOrder = map[AllocationStatus]int{
	AllocationRequested: 0,
	AllocationStarting:  1,
	AllocationActive:    2,
	AllocationReleasing: 3,
	AllocationReleased:  4,
}

// Valid reports whether s is a known allocation status
func (s AllocationStatus) Valid() bool {
	if s == AllocationFailed {
		return true
	}
	_, ok := allocationOrder[s]
	return ok
}

// Terminal reports whether no further transition is possible from s
func (s AllocationStatus) Terminal() bool {
	return s == AllocationReleased || s == AllocationFailed
}

// CanTransition reports whether an allocation may move from one status to
// another. Each step advances by exactly one state; failed is reachable from
// any non-terminal state.
func CanTransition(from, to AllocationStatus) bool {
	if !from.Valid() || !to.Valid() || from.Terminal() {
		return false
	}
	if to == AllocationFailed {
		return true
	}
	return allocationOrder[to] == allocationOrder[from]+1
}

// Agent is a worker machine registered with the backend
type Agent struct {
	ID         int64       `json:"id"`
	Name       string      `json:"name"`
	Status     AgentStatus `json:"status"`
	LastSeenAt *string     `json:"last_seen_at"`
	IP         *string     `json:"ip"`

	// ActiveAllocations is computed locally on every refresh and is never
	// sent back to the backend.
	ActiveAllocations []Allocation `json:"-"`
}

// Allocation is a service instance provisioned on one agent
type Allocation struct {
	ID         int64            `json:"id"`
	AgentID    int64            `json:"agent_id"`
	Service    string           `json:"service"`
	RemotePort int              `json:"remote_port"`
	Status     AllocationStatus `json:"status"`
	AccessURL  *string          `json:"access_url"`
	CreatedAt  string           `json:"created_at"`
}

// Credentials are the username and password used for login and registration
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Token is the login response
type Token struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// User is returned by registration
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	CreatedAt string `json:"created_at"`
}

// Invite carries the one-time secret an agent uses to register itself
type Invite struct {
	Name   string `json:"name"`
	Secret string `json:"secret"`
}

// PortPool describes the backend's remote port range and its usage
type PortPool struct {
	Min            int `json:"min"`
	Max            int `json:"max"`
	AllocatedCount int `json:"allocated_count"`
}

// Health is the health check response
type Health struct {
	Status string `json:"status"`
}

// OK is the acknowledgement body returned by delete and release
type OK struct {
	OK bool `json:"ok"`
}

type allocationCreate struct {
	AgentID int64  `json:"agent_id"`
	Service string `json:"service"`
}

type inviteCreate struct {
	Name string `json:"name"`
}
