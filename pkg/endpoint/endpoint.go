package endpoint

import "fmt"

// Role identifies which side of the primary/replica pair an endpoint serves.
type Role int

const (
	RolePrimary Role = iota
	RoleReplica
)

func (r Role) String() string {
	switch r {
	case RolePrimary:
		return "primary"
	case RoleReplica:
		return "replica"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// Endpoint is one addressable backend target.
type Endpoint struct {
	URL  string
	Role Role
}

func (e Endpoint) String() string { return e.Role.String() + "(" + e.URL + ")" }

// Registry holds the two candidate endpoints. It is built once at startup
// and never changes afterwards.
type Registry struct {
	primary Endpoint
	replica Endpoint
}

// NewRegistry creates the primary/replica pair from two URLs.
func NewRegistry(primaryURL, replicaURL string) (*Registry, error) {
	if primaryURL == "" || replicaURL == "" {
		return nil, fmt.Errorf("both primary and replica URLs are required")
	}
	if primaryURL == replicaURL {
		return nil, fmt.Errorf("primary and replica URLs must differ: %s", primaryURL)
	}
	return &Registry{
		primary: Endpoint{URL: primaryURL, Role: RolePrimary},
		replica: Endpoint{URL: replicaURL, Role: RoleReplica},
	}, nil
}

func (r *Registry) Primary() Endpoint { return r.primary }
func (r *Registry) Replica() Endpoint { return r.replica }

// Other returns the alternate of e. An endpoint not in the registry maps to the primary.
func (r *Registry) Other(e Endpoint) Endpoint {
	if e.URL == r.primary.URL {
		return r.replica
	}
	return r.primary
}
